package models

import "time"

// Replies may nest at most this deep. A top-level comment has depth 0.
const MaxCommentDepth = 5

type Comment struct {
	ID int `db:"id"`

	PostID   int  `db:"post_id"`
	AuthorID *int `db:"author_id"`
	ParentID *int `db:"parent_id"`

	// 0 for top-level comments, parent.Depth+1 otherwise.
	Depth int `db:"depth"`

	// Materialized ancestor path (ltree), ending with this comment's own
	// label. See comments.PathLabel for the label encoding.
	Path string `db:"path"`

	Body string `db:"body"`

	VoteCount int `db:"vote_count"`

	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}
