package models

import "time"

type NotificationKind string

const (
	NotificationVote   NotificationKind = "vote"
	NotificationReply  NotificationKind = "reply"
	NotificationFollow NotificationKind = "follow"
)

// Created as a side effect of other mutations. Immutable once written,
// except for the read flag.
type Notification struct {
	ID int `db:"id"`

	UserID int              `db:"user_id"`
	Kind   NotificationKind `db:"kind"`

	// JSON, shaped per kind. Opaque to the storage layer.
	Payload string `db:"payload"`

	Read bool `db:"read"`

	CreatedAt time.Time `db:"created_at"`
}
