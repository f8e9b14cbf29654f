package models

import "time"

type Follow struct {
	UserID         int       `db:"user_id"`
	FollowedUserID int       `db:"followed_user_id"`
	CreatedAt      time.Time `db:"created_at"`
}
