package models

import "time"

type TopicSubscription struct {
	UserID    int       `db:"user_id"`
	TopicID   int       `db:"topic_id"`
	CreatedAt time.Time `db:"created_at"`
}
