package models

import "time"

type Topic struct {
	ID int `db:"id"`

	Slug string `db:"slug"`
	Name string `db:"name"`

	// Denormalized. Kept equal to the number of topic_subscription rows by
	// doing both writes in one transaction.
	SubscriberCount int `db:"subscriber_count"`

	CreatedAt time.Time `db:"created_at"`
}
