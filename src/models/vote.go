package models

import "time"

type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

func (k TargetKind) Valid() bool {
	return k == TargetPost || k == TargetComment
}

// Stored as +1/-1 so that a target's score is a plain SUM over its rows.
type VoteDirection int

const (
	VoteUp   VoteDirection = 1
	VoteDown VoteDirection = -1
)

func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// At most one row may exist per (user, target id, target kind). The unique
// constraint in the database is what actually enforces this; application
// code always upserts against it.
type Vote struct {
	ID int `db:"id"`

	UserID     int           `db:"user_id"`
	TargetID   int           `db:"target_id"`
	TargetKind TargetKind    `db:"target_kind"`
	Direction  VoteDirection `db:"direction"`

	CreatedAt time.Time `db:"created_at"`
}
