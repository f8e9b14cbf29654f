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

// BookmarkPost saves a post to the user's bookmarks. Bookmarking the same
// post twice is a no-op, not an error.
func BookmarkPost(
	ctx context.Context,
	dbConn db.ConnOrTx,
	user *models.User,
	postID int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("BOOKMARKS", "Bookmark post")
	defer perf.EndBlock()

	_, err := FetchPost(ctx, dbConn, postID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return apperrors.New(apperrors.NotFound, "no post with id %d", postID)
		}
		return err
	}

	_, err = dbConn.Exec(ctx,
		`
		---- Create bookmark
		INSERT INTO bookmark (user_id, post_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, post_id) DO NOTHING
		`,
		user.ID, postID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperrors.New(apperrors.NotFound, "no post with id %d", postID)
		}
		return oops.New(err, "failed to create bookmark")
	}
	return nil
}

/*
UnbookmarkPost removes a bookmark. Removing a bookmark that does not exist
succeeds; the end state is identical either way. Contrast with vote removal,
which reports NotFound for an absent vote.
*/
func UnbookmarkPost(
	ctx context.Context,
	dbConn db.ConnOrTx,
	user *models.User,
	postID int,
) error {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("BOOKMARKS", "Unbookmark post")
	defer perf.EndBlock()

	_, err := dbConn.Exec(ctx,
		`
		---- Delete bookmark
		DELETE FROM bookmark
		WHERE user_id = $1 AND post_id = $2
		`,
		user.ID, postID,
	)
	if err != nil {
		return oops.New(err, "failed to delete bookmark")
	}
	return nil
}

// FetchBookmarks returns the user's bookmark rows, newest first. For the
// bookmarked posts themselves, use FetchPosts with BookmarkedBy.
func FetchBookmarks(
	ctx context.Context,
	dbConn db.ConnOrTx,
	userID int,
) ([]models.Bookmark, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch bookmarks")
	defer perf.EndBlock()

	bookmarks, err := db.Query[models.Bookmark](ctx, dbConn,
		`
		SELECT $columns
		FROM bookmark
		WHERE user_id = $1
		ORDER BY created_at DESC
		`,
		userID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch bookmarks")
	}

	result := make([]models.Bookmark, len(bookmarks))
	for i := range bookmarks {
		result[i] = *bookmarks[i]
	}
	return result, nil
}
