// Package auth consumes session tokens. Issuing them (signup, login) is a
// separate service; this process only validates what it is handed.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/jobs"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/utils"
)

const sessionPurgeInterval = 1 * time.Hour
const sessionDuration = time.Hour * 24 * 14

func makeSessionToken() string {
	tokenBytes := make([]byte, 40)
	_, err := io.ReadFull(rand.Reader, tokenBytes)
	if err != nil {
		panic(err)
	}

	return base64.StdEncoding.EncodeToString(tokenBytes)[:40]
}

// CreateSession issues a fresh session token for the user. The API never
// calls this; it exists for the admin CLI and for tests.
func CreateSession(ctx context.Context, dbConn db.ConnOrTx, userID int) (*models.Session, error) {
	session := models.Session{
		ID:        makeSessionToken(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(sessionDuration),
	}

	_, err := dbConn.Exec(ctx,
		"INSERT INTO session (id, user_id, expires_at) VALUES ($1, $2, $3)",
		session.ID, session.UserID, session.ExpiresAt,
	)
	if err != nil {
		return nil, oops.New(err, "failed to create session")
	}

	return &session, nil
}

/*
UserFromToken resolves a session token to its user. Returns db.NotFound for
unknown or expired tokens and deactivated users; callers treat all of those
identically, an invalid credential.
*/
func UserFromToken(ctx context.Context, dbConn db.ConnOrTx, token string) (*models.User, error) {
	if token == "" {
		return nil, db.NotFound
	}

	type sessionAndUser struct {
		Session models.Session `db:"session"`
		User    models.User    `db:"forum_user"`
	}
	row, err := db.QueryOne[sessionAndUser](ctx, dbConn,
		`
		---- Fetch session user
		SELECT $columns
		FROM
			session
			JOIN forum_user ON session.user_id = forum_user.id
		WHERE
			session.id = $1
			AND session.expires_at > NOW()
			AND forum_user.deactivated_at IS NULL
		`,
		token,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to fetch session")
	}
	return &row.User, nil
}

// DeleteExpiredSessions removes expired session rows and returns how many
// were deleted.
func DeleteExpiredSessions(ctx context.Context, dbConn db.ConnOrTx) (int64, error) {
	tag, err := dbConn.Exec(ctx,
		`
		---- Delete expired sessions
		DELETE FROM session
		WHERE expires_at <= NOW()
		`,
	)
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}
	return tag.RowsAffected(), nil
}

func PeriodicallyDeleteExpiredSessions(dbConn db.ConnOrTx) *jobs.Job {
	job := jobs.New("expired session deleter")

	go func() {
		defer job.Finish()
		for {
			n, err := DeleteExpiredSessions(job.Ctx, dbConn)
			if err == nil {
				if n > 0 {
					job.Logger.Info().Int64("num deleted sessions", n).Msg("deleted expired sessions")
				}
			} else {
				job.Logger.Error().Err(err).Msg("failed to delete expired sessions")
			}

			err = utils.SleepContext(job.Ctx, sessionPurgeInterval)
			if err != nil {
				job.Logger.Info().Msg("shutting down expired session deleter")
				return
			}
		}
	}()

	return job
}
