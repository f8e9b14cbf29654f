package burrowdata

import (
	"context"
	"errors"
	"strings"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/feed"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/perf"
)

type PostsQuery struct {
	IDs          []int
	TopicIDs     []int
	AuthorIDs    []int
	BookmarkedBy int // if set, only posts this user bookmarked

	// Soft-deleted posts are invisible unless this is set (admin tooling).
	IncludeDeleted bool

	Page *feed.Page
}

type PostAndStuff struct {
	Post         models.Post
	Author       *models.User // nil when the author's account is gone
	Topic        models.Topic
	CommentCount int
}

func (p PostAndStuff) FeedCursor() feed.Cursor {
	return feed.Cursor{
		Time:  p.Post.CreatedAt,
		Score: p.Post.VoteCount,
		ID:    p.Post.ID,
	}
}

func FetchPosts(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q PostsQuery,
) ([]PostAndStuff, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch posts")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM
			post
			LEFT JOIN forum_user AS author ON post.author_id = author.id
			JOIN topic ON post.topic_id = topic.id
			JOIN LATERAL (
				SELECT COUNT(*) AS count
				FROM comment
				WHERE comment.post_id = post.id AND comment.deleted_at IS NULL
			) AS comments ON TRUE
		WHERE TRUE
		`,
	)
	if len(q.IDs) > 0 {
		qb.Add(`AND post.id = ANY ($?)`, q.IDs)
	}
	if len(q.TopicIDs) > 0 {
		qb.Add(`AND post.topic_id = ANY ($?)`, q.TopicIDs)
	}
	if len(q.AuthorIDs) > 0 {
		qb.Add(`AND post.author_id = ANY ($?)`, q.AuthorIDs)
	}
	if q.BookmarkedBy != 0 {
		qb.Add(
			`
			AND post.id IN (
				SELECT post_id FROM bookmark WHERE user_id = $?
			)
			`,
			q.BookmarkedBy,
		)
	}
	if !q.IncludeDeleted {
		qb.Add(`AND post.deleted_at IS NULL`)
	}
	if q.Page != nil {
		q.Page.AddCursorFilter(&qb, "post.created_at", "post.vote_count", "post.id")
		q.Page.AddOrderAndLimit(&qb, "post.created_at", "post.vote_count", "post.id")
	} else {
		qb.Add(`ORDER BY post.created_at DESC, post.id DESC`)
	}

	type resultRow struct {
		Post         models.Post  `db:"post"`
		Author       *models.User `db:"author"`
		Topic        models.Topic `db:"topic"`
		CommentCount int          `db:"comments.count"`
	}

	rows, err := db.Query[resultRow](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch posts")
	}

	result := make([]PostAndStuff, len(rows))
	for i, row := range rows {
		result[i] = PostAndStuff{
			Post:         row.Post,
			Author:       row.Author,
			Topic:        row.Topic,
			CommentCount: row.CommentCount,
		}
	}
	return result, nil
}

func FetchPost(
	ctx context.Context,
	dbConn db.ConnOrTx,
	postID int,
) (PostAndStuff, error) {
	posts, err := FetchPosts(ctx, dbConn, PostsQuery{IDs: []int{postID}})
	if err != nil {
		return PostAndStuff{}, err
	}
	if len(posts) == 0 {
		return PostAndStuff{}, db.NotFound
	}
	return posts[0], nil
}

// FetchPostFeed runs a paginated post query and assembles the connection
// shape the API serves.
func FetchPostFeed(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q PostsQuery,
	page feed.Page,
) (feed.Connection[PostAndStuff], error) {
	q.Page = &page
	posts, err := FetchPosts(ctx, dbConn, q)
	if err != nil {
		return feed.Connection[PostAndStuff]{}, err
	}
	return feed.BuildConnection(page, posts, PostAndStuff.FeedCursor), nil
}

type CreatePostInput struct {
	TopicID int
	Title   string
	Body    string
}

func CreatePost(
	ctx context.Context,
	dbConn db.ConnOrTx,
	eventBus *bus.Bus,
	author *models.User,
	input CreatePostInput,
) (PostAndStuff, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("POSTS", "Create post")
	defer perf.EndBlock()

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return PostAndStuff{}, apperrors.New(apperrors.Validation, "title must not be empty")
	}
	if strings.TrimSpace(input.Body) == "" {
		return PostAndStuff{}, apperrors.New(apperrors.Validation, "body must not be empty")
	}

	_, err := db.QueryOne[models.Topic](ctx, dbConn,
		`
		---- Check topic exists
		SELECT $columns
		FROM topic
		WHERE id = $1
		`,
		input.TopicID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return PostAndStuff{}, apperrors.New(apperrors.NotFound, "no topic with id %d", input.TopicID)
		}
		return PostAndStuff{}, oops.New(err, "failed to check topic")
	}

	postID, err := db.QueryOneScalar[int](ctx, dbConn,
		`
		---- Create post
		INSERT INTO post (author_id, topic_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
		`,
		author.ID, input.TopicID, input.Title, input.Body,
	)
	if err != nil {
		return PostAndStuff{}, oops.New(err, "failed to create post")
	}

	post, err := FetchPost(ctx, dbConn, postID)
	if err != nil {
		return PostAndStuff{}, oops.New(err, "failed to fetch newly created post")
	}

	// Best effort. The row is committed regardless of fan-out.
	publishEvent(ctx, eventBus, bus.Event{
		Kind: bus.EventPostCreated,
		Post: &bus.PostPayload{
			PostID:   post.Post.ID,
			TopicID:  post.Post.TopicID,
			AuthorID: author.ID,
			Title:    post.Post.Title,
		},
	})

	return post, nil
}

// IncrementPostViews bumps the view counter without fetching the row. View
// counts are approximate and do not participate in vote consistency.
func IncrementPostViews(ctx context.Context, dbConn db.ConnOrTx, postID int) error {
	_, err := dbConn.Exec(ctx,
		`
		---- Increment post views
		UPDATE post
		SET view_count = view_count + 1
		WHERE id = $1 AND deleted_at IS NULL
		`,
		postID,
	)
	if err != nil {
		return oops.New(err, "failed to increment post views")
	}
	return nil
}
