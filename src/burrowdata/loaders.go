package burrowdata

import (
	"context"

	"git.burrowchat.net/burrow/burrow/src/batch"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
)

/*
Loaders is the per-request batch loader bundle. Handlers and serializers can
resolve entities point-wise; lookups of the same entity within one request
hit the cache, and concurrent lookups of different ids collapse into one
grouped query.

Construct a fresh bundle per request. The memoization is only correct
because the bundle dies with the request.
*/
type Loaders struct {
	Users    *batch.Loader[int, *models.User]
	Posts    *batch.Loader[int, *models.Post]
	Comments *batch.Loader[int, *models.Comment]

	// The rest are scoped to the request's current user. With no current
	// user they resolve to the zero value for every key.
	PostVotes    *batch.Loader[int, *models.Vote] // key: post id
	CommentVotes *batch.Loader[int, *models.Vote] // key: comment id
	Bookmarked   *batch.Loader[int, bool]         // key: post id
	Subscribed   *batch.Loader[int, bool]         // key: topic id
	Following    *batch.Loader[int, bool]         // key: followed user id
}

func NewLoaders(dbConn db.ConnOrTx, currentUser *models.User) *Loaders {
	currentUserID := 0
	if currentUser != nil {
		currentUserID = currentUser.ID
	}

	return &Loaders{
		Users: batch.NewLoader(func(ctx context.Context, ids []int) (map[int]*models.User, error) {
			users, err := db.Query[models.User](ctx, dbConn,
				`
				---- Batch fetch users
				SELECT $columns
				FROM forum_user
				WHERE id = ANY ($1) AND deactivated_at IS NULL
				`,
				ids,
			)
			if err != nil {
				return nil, oops.New(err, "failed to batch fetch users")
			}
			result := make(map[int]*models.User, len(users))
			for _, user := range users {
				result[user.ID] = user
			}
			return result, nil
		}),
		Posts: batch.NewLoader(func(ctx context.Context, ids []int) (map[int]*models.Post, error) {
			posts, err := db.Query[models.Post](ctx, dbConn,
				`
				---- Batch fetch posts
				SELECT $columns
				FROM post
				WHERE id = ANY ($1) AND deleted_at IS NULL
				`,
				ids,
			)
			if err != nil {
				return nil, oops.New(err, "failed to batch fetch posts")
			}
			result := make(map[int]*models.Post, len(posts))
			for _, post := range posts {
				result[post.ID] = post
			}
			return result, nil
		}),
		Comments: batch.NewLoader(func(ctx context.Context, ids []int) (map[int]*models.Comment, error) {
			comments, err := db.Query[models.Comment](ctx, dbConn,
				`
				---- Batch fetch comments
				SELECT $columns
				FROM comment
				WHERE id = ANY ($1) AND deleted_at IS NULL
				`,
				ids,
			)
			if err != nil {
				return nil, oops.New(err, "failed to batch fetch comments")
			}
			result := make(map[int]*models.Comment, len(comments))
			for _, comment := range comments {
				result[comment.ID] = comment
			}
			return result, nil
		}),
		PostVotes:    voteLoader(dbConn, currentUserID, models.TargetPost),
		CommentVotes: voteLoader(dbConn, currentUserID, models.TargetComment),
		Bookmarked: batch.NewLoader(func(ctx context.Context, postIDs []int) (map[int]bool, error) {
			if currentUserID == 0 {
				return nil, nil
			}
			ids, err := db.QueryScalar[int](ctx, dbConn,
				`
				---- Batch fetch bookmarks
				SELECT post_id
				FROM bookmark
				WHERE user_id = $1 AND post_id = ANY ($2)
				`,
				currentUserID, postIDs,
			)
			if err != nil {
				return nil, oops.New(err, "failed to batch fetch bookmarks")
			}
			result := make(map[int]bool, len(ids))
			for _, id := range ids {
				result[id] = true
			}
			return result, nil
		}),
		Subscribed: batch.NewLoader(func(ctx context.Context, topicIDs []int) (map[int]bool, error) {
			if currentUserID == 0 {
				return nil, nil
			}
			ids, err := db.QueryScalar[int](ctx, dbConn,
				`
				---- Batch fetch topic subscriptions
				SELECT topic_id
				FROM topic_subscription
				WHERE user_id = $1 AND topic_id = ANY ($2)
				`,
				currentUserID, topicIDs,
			)
			if err != nil {
				return nil, oops.New(err, "failed to batch fetch topic subscriptions")
			}
			result := make(map[int]bool, len(ids))
			for _, id := range ids {
				result[id] = true
			}
			return result, nil
		}),
		Following: batch.NewLoader(func(ctx context.Context, userIDs []int) (map[int]bool, error) {
			if currentUserID == 0 {
				return nil, nil
			}
			ids, err := db.QueryScalar[int](ctx, dbConn,
				`
				---- Batch fetch follows
				SELECT followed_user_id
				FROM follow
				WHERE user_id = $1 AND followed_user_id = ANY ($2)
				`,
				currentUserID, userIDs,
			)
			if err != nil {
				return nil, oops.New(err, "failed to batch fetch follows")
			}
			result := make(map[int]bool, len(ids))
			for _, id := range ids {
				result[id] = true
			}
			return result, nil
		}),
	}
}

func voteLoader(dbConn db.ConnOrTx, currentUserID int, kind models.TargetKind) *batch.Loader[int, *models.Vote] {
	return batch.NewLoader(func(ctx context.Context, targetIDs []int) (map[int]*models.Vote, error) {
		if currentUserID == 0 {
			return nil, nil
		}
		votes, err := db.Query[models.Vote](ctx, dbConn,
			`
			---- Batch fetch votes
			SELECT $columns
			FROM vote
			WHERE user_id = $1 AND target_kind = $2 AND target_id = ANY ($3)
			`,
			currentUserID, kind, targetIDs,
		)
		if err != nil {
			return nil, oops.New(err, "failed to batch fetch votes")
		}
		result := make(map[int]*models.Vote, len(votes))
		for _, vote := range votes {
			result[vote.TargetID] = vote
		}
		return result, nil
	})
}

/*
InvalidateVote drops every cached view of a vote target after a cast or
removal. The entity loader is dropped too because the target row's
vote_count changed. Later loads in the same request observe the new state.
*/
func (l *Loaders) InvalidateVote(kind models.TargetKind, targetID int) {
	switch kind {
	case models.TargetPost:
		l.PostVotes.Invalidate(targetID)
		l.Posts.Invalidate(targetID)
	case models.TargetComment:
		l.CommentVotes.Invalidate(targetID)
		l.Comments.Invalidate(targetID)
	}
}
