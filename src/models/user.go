package models

import "time"

type User struct {
	ID int `db:"id"`

	Username    string `db:"username"`
	DisplayName string `db:"display_name"`

	// Derived from votes on the user's posts and comments. Never treated as
	// a source of truth; see votes.RecalculateReputation.
	Reputation int `db:"reputation"`

	Verified bool `db:"verified"`
	Admin    bool `db:"admin"`

	CreatedAt     time.Time  `db:"created_at"`
	DeactivatedAt *time.Time `db:"deactivated_at"`
}

func (u *User) BestName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func (u *User) IsActive() bool {
	return u.DeactivatedAt == nil
}
