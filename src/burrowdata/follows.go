package burrowdata

import (
	"context"
	"errors"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/perf"
	"github.com/jackc/pgx/v5/pgconn"
)

// FollowUser makes user follow followedUserID and notifies the followed
// user. Following yourself is a Validation error; following twice is a
// no-op.
func FollowUser(
	ctx context.Context,
	dbConn db.ConnOrTx,
	eventBus *bus.Bus,
	user *models.User,
	followedUserID int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("FOLLOWS", "Follow user")
	defer perf.EndBlock()

	if user.ID == followedUserID {
		return apperrors.New(apperrors.Validation, "cannot follow yourself")
	}

	tag, err := dbConn.Exec(ctx,
		`
		---- Create follow
		INSERT INTO follow (user_id, followed_user_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, followed_user_id) DO NOTHING
		`,
		user.ID, followedUserID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperrors.New(apperrors.NotFound, "no user with id %d", followedUserID)
		}
		return oops.New(err, "failed to create follow")
	}
	if tag.RowsAffected() == 0 {
		// Already following. Do not notify again.
		return nil
	}

	notification, err := CreateNotification(ctx, dbConn, followedUserID, models.NotificationFollow, FollowNotificationPayload{
		FollowerID:   user.ID,
		FollowerName: user.BestName(),
	})
	if err != nil {
		return err
	}
	PublishNotification(ctx, eventBus, notification)
	return nil
}

func UnfollowUser(
	ctx context.Context,
	dbConn db.ConnOrTx,
	user *models.User,
	followedUserID int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("FOLLOWS", "Unfollow user")
	defer perf.EndBlock()

	_, err := dbConn.Exec(ctx,
		`
		---- Delete follow
		DELETE FROM follow
		WHERE user_id = $1 AND followed_user_id = $2
		`,
		user.ID, followedUserID,
	)
	if err != nil {
		return oops.New(err, "failed to delete follow")
	}
	return nil
}

// FetchFollowedUserIDs returns the ids of every user that userID follows.
func FetchFollowedUserIDs(
	ctx context.Context,
	dbConn db.ConnOrTx,
	userID int,
) ([]int, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch followed users")
	defer perf.EndBlock()

	ids, err := db.QueryScalar[int](ctx, dbConn,
		`
		SELECT followed_user_id
		FROM follow
		WHERE user_id = $1
		ORDER BY created_at DESC
		`,
		userID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch followed users")
	}
	return ids, nil
}
