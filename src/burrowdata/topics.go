package burrowdata

import (
	"context"
	"errors"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/perf"
	"github.com/jackc/pgx/v5/pgconn"
)

type TopicsQuery struct {
	IDs   []int
	Slugs []string
}

func FetchTopics(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q TopicsQuery,
) ([]models.Topic, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch topics")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM topic
		WHERE TRUE
		`,
	)
	if len(q.IDs) > 0 {
		qb.Add(`AND topic.id = ANY ($?)`, q.IDs)
	}
	if len(q.Slugs) > 0 {
		qb.Add(`AND topic.slug = ANY ($?)`, q.Slugs)
	}
	qb.Add(`ORDER BY topic.name ASC`)

	topics, err := db.Query[models.Topic](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch topics")
	}

	result := make([]models.Topic, len(topics))
	for i := range topics {
		result[i] = *topics[i]
	}
	return result, nil
}

/*
SubscribeToTopic adds a subscription and bumps the topic's denormalized
subscriber count in the same transaction, so the counter can never drift
from the subscription rows. Subscribing twice is a Conflict.
*/
func SubscribeToTopic(
	ctx context.Context,
	dbConn db.ConnOrTx,
	user *models.User,
	topicID int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("TOPICS", "Subscribe to topic")
	defer perf.EndBlock()

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`
		---- Create topic subscription
		INSERT INTO topic_subscription (user_id, topic_id, created_at)
		VALUES ($1, $2, NOW())
		`,
		user.ID, topicID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return apperrors.New(apperrors.Conflict, "already subscribed to topic %d", topicID)
			case "23503": // foreign_key_violation
				return apperrors.New(apperrors.NotFound, "no topic with id %d", topicID)
			}
		}
		return oops.New(err, "failed to create topic subscription")
	}

	_, err = tx.Exec(ctx,
		`
		---- Bump subscriber count
		UPDATE topic
		SET subscriber_count = subscriber_count + 1
		WHERE id = $1
		`,
		topicID,
	)
	if err != nil {
		return oops.New(err, "failed to update topic subscriber count")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit topic subscription")
	}
	return nil
}

// UnsubscribeFromTopic removes a subscription. Unlike bookmark removal,
// unsubscribing from a topic you are not subscribed to is NotFound.
func UnsubscribeFromTopic(
	ctx context.Context,
	dbConn db.ConnOrTx,
	user *models.User,
	topicID int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("TOPICS", "Unsubscribe from topic")
	defer perf.EndBlock()

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`
		---- Delete topic subscription
		DELETE FROM topic_subscription
		WHERE user_id = $1 AND topic_id = $2
		`,
		user.ID, topicID,
	)
	if err != nil {
		return oops.New(err, "failed to delete topic subscription")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.NotFound, "not subscribed to topic %d", topicID)
	}

	_, err = tx.Exec(ctx,
		`
		---- Drop subscriber count
		UPDATE topic
		SET subscriber_count = subscriber_count - 1
		WHERE id = $1
		`,
		topicID,
	)
	if err != nil {
		return oops.New(err, "failed to update topic subscriber count")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit topic unsubscription")
	}
	return nil
}
