/*
This package contains lowish-level APIs for making database queries to our Postgres database. It streamlines the process of mapping query results to Go types, while allowing you to write arbitrary SQL queries.

The primary functions are Query and QueryIterator. See the package and function examples for detailed usage.

Query syntax

This package allows a few small extensions to SQL syntax to streamline the interaction between Go and Postgres.

Arguments can be provided using placeholders like $1, $2, etc. All arguments will be safely escaped and mapped from their Go type to the correct Postgres type. (This is a direct proxy to pgx.)

	postIDs, err := db.Query[int](ctx, conn,
		`
		SELECT id
		FROM post
		WHERE
			topic_id = ANY($1)
			AND deleted_at IS NULL
		`,
		[]int{1, 2},
	)

(This also demonstrates a useful tip: if you want to use a slice in your query, use Postgres arrays instead of IN.)

When querying individual fields, you can simply select the field like so:

	ids, err := db.Query[int](ctx, conn, `SELECT id FROM post`)

To query multiple columns at once, you may use a struct type with `db:"column_name"` tags, and the special $columns placeholder:

	type Post struct {
		ID        int       `db:"id"`
		Title     string    `db:"title"`
		CreatedAt time.Time `db:"created_at"`
	}
	posts, err := db.Query[Post](ctx, conn, `SELECT $columns FROM ...`)
	// Resulting query:
	// SELECT id, title, created_at FROM ...

Sometimes a table name prefix is required on each column to disambiguate between column names, especially when performing a JOIN. In those situations, you can include the prefix in the $columns placeholder like $columns{prefix}:

	type Post struct {
		ID        int       `db:"id"`
		Title     string    `db:"title"`
		CreatedAt time.Time `db:"created_at"`
	}
	orphans, err := db.Query[Post](ctx, conn, `
		SELECT $columns{post}
		FROM
			post
			LEFT JOIN forum_user AS author ON author.id = post.author_id
		WHERE
			author.id IS NULL
	`)
	// Resulting query:
	// SELECT post.id, post.title, post.created_at FROM ...
*/
package db
