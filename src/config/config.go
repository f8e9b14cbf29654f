package config

import (
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var Config BurrowConfig

func init() {
	// A missing .env is fine; everything has a dev default.
	godotenv.Load()

	Config = BurrowConfig{
		Env:         Environment(envOr("BURROW_ENV", string(Dev))),
		Addr:        envOr("BURROW_ADDR", ":9010"),
		PrivateAddr: envOr("BURROW_PRIVATE_ADDR", "localhost:9011"),
		BaseUrl:     envOr("BURROW_BASE_URL", "http://localhost:9010"),
		LogLevel:    envLogLevel("BURROW_LOG_LEVEL", zerolog.InfoLevel),
		Postgres: PostgresConfig{
			User:     envOr("BURROW_DB_USER", "burrow"),
			Password: envOr("BURROW_DB_PASSWORD", "password"),
			Hostname: envOr("BURROW_DB_HOST", "localhost"),
			Port:     envInt("BURROW_DB_PORT", 5432),
			DbName:   envOr("BURROW_DB_NAME", "burrow"),
			LogLevel: tracelog.LogLevelWarn,
			MinConn:  int32(envInt("BURROW_DB_MIN_CONN", 2)),
			MaxConn:  int32(envInt("BURROW_DB_MAX_CONN", 10)),
		},
		EventStream: EventStreamConfig{
			HeartbeatIntervalSeconds: envInt("BURROW_HEARTBEAT_INTERVAL", 30),
			SubscriberBufferSize:     envInt("BURROW_SUBSCRIBER_BUFFER", 64),
		},
		Presence: PresenceConfig{
			TypingTimeoutSeconds: 5,
			SweepIntervalSeconds: 2,
		},
	}
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func envLogLevel(name string, def zerolog.Level) zerolog.Level {
	if v := os.Getenv(name); v != "" {
		if level, err := zerolog.ParseLevel(v); err == nil {
			return level
		}
	}
	return def
}
