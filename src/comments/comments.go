// Package comments manages the bounded-depth comment hierarchy. Every
// comment carries a materialized ltree path of its ancestors, so subtree
// queries are a single indexed predicate instead of a recursive walk.
package comments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/burrowdata"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/feed"
	"git.burrowchat.net/burrow/burrow/src/logging"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/perf"
)

var reNonLtreeChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

/*
PathLabel produces the ltree label for a comment. ltree labels may only
contain word characters, so anything else is stripped, and the "c" prefix
keeps the label from starting with a digit-only token that is easy to
confuse with an id elsewhere.
*/
func PathLabel(commentID int) string {
	return "c" + reNonLtreeChars.ReplaceAllString(fmt.Sprint(commentID), "")
}

type CreateCommentInput struct {
	PostID   int
	ParentID *int
	Body     string
}

/*
Create validates and inserts a comment, maintaining depth and the ancestor
path, and notifies whoever was replied to.

Validation rules: the post must exist, be visible, and not be locked; a
parent comment must belong to the same post; the resulting depth may not
exceed models.MaxCommentDepth.
*/
func Create(
	ctx context.Context,
	dbConn db.ConnOrTx,
	eventBus *bus.Bus,
	author *models.User,
	input CreateCommentInput,
) (*models.Comment, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("COMMENTS", "Create comment")
	defer perf.EndBlock()

	if strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.New(apperrors.Validation, "comment body must not be empty")
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	post, err := db.QueryOne[models.Post](ctx, tx,
		`
		---- Check post is commentable
		SELECT $columns
		FROM post
		WHERE id = $1 AND deleted_at IS NULL
		`,
		input.PostID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, apperrors.New(apperrors.NotFound, "no post with id %d", input.PostID)
		}
		return nil, oops.New(err, "failed to fetch post")
	}
	if post.Locked {
		return nil, apperrors.New(apperrors.Validation, "post %d is locked", post.ID)
	}

	depth := 0
	parentPath := ""
	var notifyUserID *int
	if input.ParentID != nil {
		parent, err := db.QueryOne[models.Comment](ctx, tx,
			`
			---- Fetch parent comment
			SELECT $columns
			FROM comment
			WHERE id = $1 AND deleted_at IS NULL
			`,
			*input.ParentID,
		)
		if err != nil {
			if errors.Is(err, db.NotFound) {
				return nil, apperrors.New(apperrors.NotFound, "no comment with id %d", *input.ParentID)
			}
			return nil, oops.New(err, "failed to fetch parent comment")
		}
		if parent.PostID != input.PostID {
			return nil, apperrors.New(apperrors.Validation,
				"parent comment %d belongs to post %d, not post %d",
				parent.ID, parent.PostID, input.PostID,
			)
		}
		depth = parent.Depth + 1
		if depth > models.MaxCommentDepth {
			return nil, apperrors.New(apperrors.Validation,
				"comments may not nest deeper than %d levels", models.MaxCommentDepth,
			)
		}
		parentPath = parent.Path
		notifyUserID = parent.AuthorID
	} else {
		notifyUserID = post.AuthorID
	}

	// The path needs the comment's own id, so insert first with the parent
	// path and complete it in the same transaction.
	comment, err := db.QueryOne[models.Comment](ctx, tx,
		`
		---- Create comment
		INSERT INTO comment (post_id, author_id, parent_id, depth, path, body, created_at)
		VALUES ($1, $2, $3, $4, ''::ltree, $5, NOW())
		RETURNING $columns
		`,
		input.PostID, author.ID, input.ParentID, depth, input.Body,
	)
	if err != nil {
		return nil, oops.New(err, "failed to create comment")
	}

	path := PathLabel(comment.ID)
	if parentPath != "" {
		path = parentPath + "." + path
	}
	_, err = tx.Exec(ctx,
		`
		---- Set comment path
		UPDATE comment
		SET path = $1::ltree
		WHERE id = $2
		`,
		path, comment.ID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to set comment path")
	}
	comment.Path = path

	var notification *bus.NotificationPayload
	if notifyUserID != nil && *notifyUserID != author.ID {
		notification, err = burrowdata.CreateNotification(ctx, tx, *notifyUserID, models.NotificationReply, burrowdata.ReplyNotificationPayload{
			CommentID:  comment.ID,
			PostID:     comment.PostID,
			AuthorID:   author.ID,
			AuthorName: author.BestName(),
		})
		if err != nil {
			return nil, err
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to commit comment")
	}

	burrowdata.PublishNotification(ctx, eventBus, notification)
	publishEvent(ctx, eventBus, bus.Event{
		Kind: bus.EventCommentAdded,
		Comment: &bus.CommentPayload{
			CommentID:  comment.ID,
			PostID:     comment.PostID,
			ParentID:   comment.ParentID,
			AuthorID:   author.ID,
			AuthorName: author.BestName(),
			Depth:      comment.Depth,
			Body:       comment.Body,
		},
	})

	return comment, nil
}

/*
Delete soft-deletes a comment. Children are untouched and stay addressable;
a thread does not collapse because one reply in the middle was removed.
Only the comment's author or an admin may delete it.
*/
func Delete(
	ctx context.Context,
	dbConn db.ConnOrTx,
	eventBus *bus.Bus,
	user *models.User,
	commentID int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("COMMENTS", "Delete comment")
	defer perf.EndBlock()

	comment, err := db.QueryOne[models.Comment](ctx, dbConn,
		`
		---- Fetch comment for delete
		SELECT $columns
		FROM comment
		WHERE id = $1 AND deleted_at IS NULL
		`,
		commentID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return apperrors.New(apperrors.NotFound, "no comment with id %d", commentID)
		}
		return oops.New(err, "failed to fetch comment")
	}

	isAuthor := comment.AuthorID != nil && *comment.AuthorID == user.ID
	if !isAuthor && !user.Admin {
		return apperrors.New(apperrors.Authorization, "you may only delete your own comments")
	}

	_, err = dbConn.Exec(ctx,
		`
		---- Soft delete comment
		UPDATE comment
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		`,
		commentID,
	)
	if err != nil {
		return oops.New(err, "failed to delete comment")
	}

	publishEvent(ctx, eventBus, bus.Event{
		Kind: bus.EventCommentDeleted,
		Comment: &bus.CommentPayload{
			CommentID: comment.ID,
			PostID:    comment.PostID,
			ParentID:  comment.ParentID,
			Depth:     comment.Depth,
		},
	})

	return nil
}

func publishEvent(ctx context.Context, eventBus *bus.Bus, e bus.Event) {
	if eventBus == nil {
		return
	}
	if err := eventBus.Publish(e); err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Msg("failed to publish comment event")
	}
}

type CommentsQuery struct {
	IDs       []int
	PostIDs   []int
	AuthorIDs []int

	// Restrict to the subtree rooted at this ltree path (inclusive).
	SubtreeOf string

	Page *feed.Page
}

type CommentAndStuff struct {
	Comment models.Comment
	Author  *models.User
}

func (c CommentAndStuff) FeedCursor() feed.Cursor {
	return feed.Cursor{
		Time:  c.Comment.CreatedAt,
		Score: c.Comment.Depth,
		ID:    c.Comment.ID,
	}
}

func FetchComments(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q CommentsQuery,
) ([]CommentAndStuff, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch comments")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM
			comment
			LEFT JOIN forum_user AS author ON comment.author_id = author.id
		WHERE
			comment.deleted_at IS NULL
		`,
	)
	if len(q.IDs) > 0 {
		qb.Add(`AND comment.id = ANY ($?)`, q.IDs)
	}
	if len(q.PostIDs) > 0 {
		qb.Add(`AND comment.post_id = ANY ($?)`, q.PostIDs)
	}
	if len(q.AuthorIDs) > 0 {
		qb.Add(`AND comment.author_id = ANY ($?)`, q.AuthorIDs)
	}
	if q.SubtreeOf != "" {
		qb.Add(`AND comment.path <@ $?::ltree`, q.SubtreeOf)
	}
	if q.Page != nil {
		page := *q.Page
		// A comment feed's "top" surfaces shallow replies first, newest
		// first within a depth. The depth column rides in the cursor's
		// score slot.
		if page.Order == feed.OrderTop {
			page.Order = feed.OrderTopShallow
		}
		page.AddCursorFilter(&qb, "comment.created_at", "comment.depth", "comment.id")
		page.AddOrderAndLimit(&qb, "comment.created_at", "comment.depth", "comment.id")
	} else {
		qb.Add(`ORDER BY comment.created_at ASC, comment.id ASC`)
	}

	type resultRow struct {
		Comment models.Comment `db:"comment"`
		Author  *models.User   `db:"author"`
	}

	rows, err := db.Query[resultRow](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch comments")
	}

	result := make([]CommentAndStuff, len(rows))
	for i, row := range rows {
		result[i] = CommentAndStuff{
			Comment: row.Comment,
			Author:  row.Author,
		}
	}
	return result, nil
}

// FetchCommentFeed runs a paginated comment query and assembles the
// connection shape the API serves.
func FetchCommentFeed(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q CommentsQuery,
	page feed.Page,
) (feed.Connection[CommentAndStuff], error) {
	q.Page = &page
	commentRows, err := FetchComments(ctx, dbConn, q)
	if err != nil {
		return feed.Connection[CommentAndStuff]{}, err
	}
	return feed.BuildConnection(page, commentRows, CommentAndStuff.FeedCursor), nil
}
