package models

import "time"

type Post struct {
	ID int `db:"id"`

	AuthorID *int `db:"author_id"`
	TopicID  int  `db:"topic_id"`

	Title string `db:"title"`
	Body  string `db:"body"`

	Pinned bool `db:"pinned"`
	Locked bool `db:"locked"`

	ViewCount int `db:"view_count"`

	// Derived cache of the sum over the vote table. Recomputed in full on
	// every vote change; never incremented in place.
	VoteCount int `db:"vote_count"`

	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}
