package migrations

import (
	"context"
	"time"

	"git.burrowchat.net/burrow/burrow/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(InitialSchema{})
}

type InitialSchema struct{}

func (m InitialSchema) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2025, 11, 4, 9, 12, 33, 0, time.UTC))
}

func (m InitialSchema) Name() string {
	return "InitialSchema"
}

func (m InitialSchema) Description() string {
	return "Creates the core forum tables"
}

func (m InitialSchema) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE EXTENSION IF NOT EXISTS ltree;

		CREATE TABLE forum_user (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			reputation INT NOT NULL DEFAULT 0,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			deactivated_at TIMESTAMP WITH TIME ZONE
		);

		CREATE TABLE session (
			id VARCHAR(40) PRIMARY KEY,
			user_id INT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE TABLE topic (
			id SERIAL PRIMARY KEY,
			slug VARCHAR(100) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			subscriber_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE TABLE post (
			id SERIAL PRIMARY KEY,
			author_id INT REFERENCES forum_user (id) ON DELETE SET NULL,
			topic_id INT NOT NULL REFERENCES topic (id),
			title VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			pinned BOOLEAN NOT NULL DEFAULT FALSE,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			view_count INT NOT NULL DEFAULT 0,
			vote_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP WITH TIME ZONE
		);

		CREATE TABLE comment (
			id SERIAL PRIMARY KEY,
			post_id INT NOT NULL REFERENCES post (id) ON DELETE CASCADE,
			author_id INT REFERENCES forum_user (id) ON DELETE SET NULL,
			parent_id INT REFERENCES comment (id),
			depth INT NOT NULL DEFAULT 0,
			path LTREE NOT NULL,
			body TEXT NOT NULL,
			vote_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP WITH TIME ZONE,
			CONSTRAINT comment_depth_bounded CHECK (depth >= 0 AND depth <= 5)
		);

		CREATE TABLE vote (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			target_id INT NOT NULL,
			target_kind VARCHAR(10) NOT NULL,
			direction INT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			CONSTRAINT vote_one_per_target UNIQUE (user_id, target_id, target_kind),
			CONSTRAINT vote_direction_valid CHECK (direction IN (-1, 1))
		);

		CREATE TABLE bookmark (
			user_id INT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			post_id INT NOT NULL REFERENCES post (id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, post_id)
		);

		CREATE TABLE topic_subscription (
			user_id INT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			topic_id INT NOT NULL REFERENCES topic (id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, topic_id)
		);

		CREATE TABLE notification (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES forum_user (id) ON DELETE CASCADE,
			kind VARCHAR(20) NOT NULL,
			payload TEXT NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX comment_path_gist ON comment USING GIST (path);
		CREATE INDEX comment_by_post ON comment (post_id, created_at);
		CREATE INDEX vote_by_target ON vote (target_id, target_kind);
		CREATE INDEX notification_by_user ON notification (user_id, created_at DESC);
	`)
	return err
}

func (m InitialSchema) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE notification;
		DROP TABLE topic_subscription;
		DROP TABLE bookmark;
		DROP TABLE vote;
		DROP TABLE comment;
		DROP TABLE post;
		DROP TABLE topic;
		DROP TABLE session;
		DROP TABLE forum_user;
	`)
	return err
}
