package burrowdata

import (
	"context"

	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/models"
	"git.burrowchat.net/burrow/burrow/src/oops"
	"git.burrowchat.net/burrow/burrow/src/perf"
)

type UsersQuery struct {
	IDs       []int
	Usernames []string

	IncludeDeactivated bool
}

func FetchUsers(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q UsersQuery,
) ([]*models.User, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch users")
	defer perf.EndBlock()

	var qb db.QueryBuilder
	qb.Add(
		`
		SELECT $columns
		FROM forum_user
		WHERE TRUE
		`,
	)
	if len(q.IDs) > 0 {
		qb.Add(`AND forum_user.id = ANY ($?)`, q.IDs)
	}
	if len(q.Usernames) > 0 {
		qb.Add(`AND LOWER(forum_user.username) = ANY ($?)`, q.Usernames)
	}
	if !q.IncludeDeactivated {
		qb.Add(`AND forum_user.deactivated_at IS NULL`)
	}
	qb.Add(`ORDER BY forum_user.id ASC`)

	users, err := db.Query[models.User](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch users")
	}

	return users, nil
}

// FetchUser fetches a single user matching the query. Returns db.NotFound
// if none match.
func FetchUser(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q UsersQuery,
) (*models.User, error) {
	users, err := FetchUsers(ctx, dbConn, q)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, db.NotFound
	}
	return users[0], nil
}
