package migrations

import (
	"context"
	"time"

	"git.burrowchat.net/burrow/burrow/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddFeedIndexes{})
}

type AddFeedIndexes struct{}

func (m AddFeedIndexes) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 2, 7, 10, 15, 2, 0, time.UTC))
}

func (m AddFeedIndexes) Name() string {
	return "AddFeedIndexes"
}

func (m AddFeedIndexes) Description() string {
	return "Adds indexes matching the cursor sort orders on the post feed"
}

func (m AddFeedIndexes) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE INDEX post_by_created ON post (created_at DESC, id DESC) WHERE deleted_at IS NULL;
		CREATE INDEX post_by_votes ON post (vote_count DESC, created_at DESC, id DESC) WHERE deleted_at IS NULL;
	`)
	return err
}

func (m AddFeedIndexes) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP INDEX post_by_created;
		DROP INDEX post_by_votes;
	`)
	return err
}
