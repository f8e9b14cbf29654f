package migrations

import (
	"context"
	"time"

	"git.burrowchat.net/burrow/burrow/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddFollows{})
}

type AddFollows struct{}

func (m AddFollows) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2025, 12, 18, 14, 39, 11, 0, time.UTC))
}

func (m AddFollows) Name() string {
	return "AddFollows"
}

func (m AddFollows) Description() string {
	return "Adds user-to-user follows"
}

func (m AddFollows) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE follow (
			user_id INT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			followed_user_id INT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, followed_user_id)
		);
	`)
	return err
}

func (m AddFollows) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE follow;
	`)
	return err
}
