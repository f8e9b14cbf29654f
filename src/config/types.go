package config

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type BurrowConfig struct {
	Env         Environment
	Addr        string
	PrivateAddr string
	BaseUrl     string
	LogLevel    zerolog.Level
	Postgres    PostgresConfig
	EventStream EventStreamConfig
	Presence    PresenceConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type EventStreamConfig struct {
	// Interval between keepalive frames on long-lived connections. Proxies
	// tend to kill idle connections well before two minutes.
	HeartbeatIntervalSeconds int

	// Per-subscriber event buffer. Publishing to a full buffer drops the
	// event rather than blocking the publisher.
	SubscriberBufferSize int
}

func (c EventStreamConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSeconds) * time.Second
}

type PresenceConfig struct {
	TypingTimeoutSeconds int
	SweepIntervalSeconds int
}

func (c PresenceConfig) TypingTimeout() time.Duration {
	return time.Duration(c.TypingTimeoutSeconds) * time.Second
}

func (c PresenceConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
