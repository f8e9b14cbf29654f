// Package votes owns vote writes and the aggregates derived from them. The
// vote rows are the single source of truth; every cached count is recomputed
// from them in full, never nudged incrementally.
package votes

import (
	"context"
	"errors"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/burrowdata"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/logging"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/perf"
)

// target is the resolved vote target: who gets the reputation and which
// post the change should fan out under.
type target struct {
	authorID *int
	postID   int
}

/*
Cast records or changes a vote. Casting the same direction again is a no-op,
not a toggle; the only way to take a vote back is Remove.

Returns the target's vote count after the cast.
*/
func Cast(
	ctx context.Context,
	dbConn db.ConnOrTx,
	eventBus *bus.Bus,
	voter *models.User,
	targetID int,
	kind models.TargetKind,
	direction models.VoteDirection,
) (int, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("VOTES", "Cast vote")
	defer perf.EndBlock()

	if !kind.Valid() {
		return 0, apperrors.New(apperrors.Validation, "invalid vote target kind %q", kind)
	}
	if !direction.Valid() {
		return 0, apperrors.New(apperrors.Validation, "invalid vote direction %d", direction)
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	tgt, err := resolveTarget(ctx, tx, targetID, kind)
	if err != nil {
		return 0, err
	}

	/*
		The unique constraint on (user_id, target_id, target_kind) does the
		heavy lifting: concurrent casts collapse into one row no matter the
		interleaving. The WHERE on the conflict arm makes a repeat cast of
		the same direction touch nothing, which we detect by the missing
		RETURNING row.
	*/
	inserted, err := db.QueryOneScalar[bool](ctx, tx,
		`
		---- Upsert vote
		INSERT INTO vote (user_id, target_id, target_kind, direction, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, target_id, target_kind)
			DO UPDATE SET direction = EXCLUDED.direction
			WHERE vote.direction <> EXCLUDED.direction
		RETURNING (xmax = 0)
		`,
		voter.ID, targetID, kind, direction,
	)
	if err != nil && !errors.Is(err, db.NotFound) {
		return 0, oops.New(err, "failed to upsert vote")
	}
	changed := !errors.Is(err, db.NotFound)

	voteCount, err := recountTarget(ctx, tx, targetID, kind)
	if err != nil {
		return 0, err
	}

	var notification *bus.NotificationPayload
	if changed {
		if tgt.authorID != nil {
			err = RecalculateReputation(ctx, tx, *tgt.authorID)
			if err != nil {
				return 0, err
			}
		}

		if inserted && tgt.authorID != nil && *tgt.authorID != voter.ID {
			notification, err = burrowdata.CreateNotification(ctx, tx, *tgt.authorID, models.NotificationVote, burrowdata.VoteNotificationPayload{
				VoterID:    voter.ID,
				VoterName:  voter.BestName(),
				TargetID:   targetID,
				TargetKind: kind,
				PostID:     tgt.postID,
			})
			if err != nil {
				return 0, err
			}
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to commit vote")
	}

	if changed {
		publishVote(ctx, eventBus, targetID, kind, tgt.postID, voteCount)
		burrowdata.PublishNotification(ctx, eventBus, notification)
	}

	return voteCount, nil
}

// Remove deletes the voter's vote on a target. Removing a vote that does
// not exist is NotFound; there is nothing to remove, and the client's idea
// of their own vote state is wrong.
func Remove(
	ctx context.Context,
	dbConn db.ConnOrTx,
	eventBus *bus.Bus,
	voter *models.User,
	targetID int,
	kind models.TargetKind,
) (int, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("VOTES", "Remove vote")
	defer perf.EndBlock()

	if !kind.Valid() {
		return 0, apperrors.New(apperrors.Validation, "invalid vote target kind %q", kind)
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	tgt, err := resolveTarget(ctx, tx, targetID, kind)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx,
		`
		---- Delete vote
		DELETE FROM vote
		WHERE user_id = $1 AND target_id = $2 AND target_kind = $3
		`,
		voter.ID, targetID, kind,
	)
	if err != nil {
		return 0, oops.New(err, "failed to delete vote")
	}
	if tag.RowsAffected() == 0 {
		return 0, apperrors.New(apperrors.NotFound, "no vote to remove on %s %d", kind, targetID)
	}

	voteCount, err := recountTarget(ctx, tx, targetID, kind)
	if err != nil {
		return 0, err
	}
	if tgt.authorID != nil {
		err = RecalculateReputation(ctx, tx, *tgt.authorID)
		if err != nil {
			return 0, err
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to commit vote removal")
	}

	publishVote(ctx, eventBus, targetID, kind, tgt.postID, voteCount)

	return voteCount, nil
}

func resolveTarget(ctx context.Context, dbConn db.ConnOrTx, targetID int, kind models.TargetKind) (target, error) {
	switch kind {
	case models.TargetPost:
		post, err := db.QueryOne[models.Post](ctx, dbConn,
			`
			---- Resolve post vote target
			SELECT $columns
			FROM post
			WHERE id = $1 AND deleted_at IS NULL
			`,
			targetID,
		)
		if err != nil {
			if errors.Is(err, db.NotFound) {
				return target{}, apperrors.New(apperrors.NotFound, "no post with id %d", targetID)
			}
			return target{}, oops.New(err, "failed to resolve vote target")
		}
		return target{authorID: post.AuthorID, postID: post.ID}, nil
	case models.TargetComment:
		comment, err := db.QueryOne[models.Comment](ctx, dbConn,
			`
			---- Resolve comment vote target
			SELECT $columns
			FROM comment
			WHERE id = $1 AND deleted_at IS NULL
			`,
			targetID,
		)
		if err != nil {
			if errors.Is(err, db.NotFound) {
				return target{}, apperrors.New(apperrors.NotFound, "no comment with id %d", targetID)
			}
			return target{}, oops.New(err, "failed to resolve vote target")
		}
		return target{authorID: comment.AuthorID, postID: comment.PostID}, nil
	}
	return target{}, apperrors.New(apperrors.Validation, "invalid vote target kind %q", kind)
}

// recountTarget recomputes the target's cached vote count by summing its
// vote rows and returns the fresh value.
func recountTarget(ctx context.Context, dbConn db.ConnOrTx, targetID int, kind models.TargetKind) (int, error) {
	table := "post"
	if kind == models.TargetComment {
		table = "comment"
	}

	voteCount, err := db.QueryOneScalar[int](ctx, dbConn,
		`
		---- Recount `+table+` votes
		UPDATE `+table+`
		SET vote_count = COALESCE((
			SELECT SUM(direction)
			FROM vote
			WHERE target_id = $1 AND target_kind = $2
		), 0)
		WHERE id = $1
		RETURNING vote_count
		`,
		targetID, kind,
	)
	if err != nil {
		return 0, oops.New(err, "failed to recount votes")
	}
	return voteCount, nil
}

/*
RecalculateReputation recomputes a user's reputation as the sum of all votes
on all their posts and comments. It is idempotent, so any suspicion of drift
is fixed by simply calling it again.
*/
func RecalculateReputation(ctx context.Context, dbConn db.ConnOrTx, userID int) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Recalculate reputation")
	defer perf.EndBlock()

	_, err := dbConn.Exec(ctx,
		`
		---- Recalculate reputation
		UPDATE forum_user
		SET reputation = COALESCE((
			SELECT SUM(v.direction)
			FROM vote v
			WHERE
				(v.target_kind = 'post' AND v.target_id IN (
					SELECT id FROM post WHERE author_id = $1
				))
				OR (v.target_kind = 'comment' AND v.target_id IN (
					SELECT id FROM comment WHERE author_id = $1
				))
		), 0)
		WHERE id = $1
		`,
		userID,
	)
	if err != nil {
		return oops.New(err, "failed to recalculate reputation")
	}
	return nil
}

func publishVote(ctx context.Context, eventBus *bus.Bus, targetID int, kind models.TargetKind, postID int, voteCount int) {
	if eventBus == nil {
		return
	}
	err := eventBus.Publish(bus.Event{
		Kind: bus.EventVoteUpdated,
		Vote: &bus.VotePayload{
			TargetID:   targetID,
			TargetKind: kind,
			PostID:     postID,
			VoteCount:  voteCount,
		},
	})
	if err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Msg("failed to publish vote event")
	}
}
