package feed

import (
	"fmt"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/db"
	"git.burrowchat.net/burrow/burrow/src/utils"
)

type OrderBy string

const (
	// Creation time descending, id descending.
	OrderNewest OrderBy = "newest"
	// Creation time ascending, id ascending.
	OrderOldest OrderBy = "oldest"
	// Score descending, id descending.
	OrderTop OrderBy = "top"
	// Score (depth) ascending, then creation time descending, id descending.
	// Used for "top" comment listings: shallow replies first, newest first
	// within a depth.
	OrderTopShallow OrderBy = "topShallow"
)

func ParseOrderBy(s string) (OrderBy, error) {
	switch s {
	case "", "newest":
		return OrderNewest, nil
	case "oldest":
		return OrderOldest, nil
	case "top":
		return OrderTop, nil
	default:
		return "", apperrors.New(apperrors.Validation, "unknown ordering %q", s)
	}
}

const (
	MinPageSize = 1
	MaxPageSize = 50
)

// Callers may ask for whatever they like; we only ever serve [1, 50].
func ClampFirst(first int) int {
	return utils.IntClamp(MinPageSize, first, MaxPageSize)
}

type Page struct {
	Order  OrderBy
	Limit  int // already clamped
	Cursor *Cursor
}

func ParsePage(orderBy string, first int, after string) (Page, error) {
	order, err := ParseOrderBy(orderBy)
	if err != nil {
		return Page{}, err
	}

	p := Page{
		Order: order,
		Limit: ClampFirst(first),
	}
	if after != "" {
		cursor, err := DecodeCursor(after)
		if err != nil {
			return Page{}, err
		}
		p.Cursor = &cursor
	}
	return p, nil
}

/*
Appends the cursor predicate for this page to a query. The compound
comparison on (sort key, id) is what makes pages stable under concurrent
inserts and duplicate timestamps; do not "simplify" it to a single
timestamp comparison.
*/
func (p Page) AddCursorFilter(qb *db.QueryBuilder, timeCol, scoreCol, idCol string) {
	if p.Cursor == nil {
		return
	}
	c := *p.Cursor

	switch p.Order {
	case OrderNewest:
		qb.Add(
			`AND (`+timeCol+` < $? OR (`+timeCol+` = $? AND `+idCol+` < $?))`,
			c.Time, c.Time, c.ID,
		)
	case OrderOldest:
		qb.Add(
			`AND (`+timeCol+` > $? OR (`+timeCol+` = $? AND `+idCol+` > $?))`,
			c.Time, c.Time, c.ID,
		)
	case OrderTop:
		qb.Add(
			`AND (`+scoreCol+` < $? OR (`+scoreCol+` = $? AND `+idCol+` < $?))`,
			c.Score, c.Score, c.ID,
		)
	case OrderTopShallow:
		qb.Add(
			`AND (`+scoreCol+` > $? OR (`+scoreCol+` = $? AND (`+timeCol+` < $? OR (`+timeCol+` = $? AND `+idCol+` < $?))))`,
			c.Score, c.Score, c.Time, c.Time, c.ID,
		)
	default:
		panic(fmt.Sprintf("unknown ordering %q", p.Order))
	}
}

// Appends ORDER BY and LIMIT. Fetches one row beyond the page size so the
// caller can tell whether a next page exists without a second query.
func (p Page) AddOrderAndLimit(qb *db.QueryBuilder, timeCol, scoreCol, idCol string) {
	switch p.Order {
	case OrderNewest:
		qb.Add(`ORDER BY ` + timeCol + ` DESC, ` + idCol + ` DESC`)
	case OrderOldest:
		qb.Add(`ORDER BY ` + timeCol + ` ASC, ` + idCol + ` ASC`)
	case OrderTop:
		qb.Add(`ORDER BY ` + scoreCol + ` DESC, ` + idCol + ` DESC`)
	case OrderTopShallow:
		qb.Add(`ORDER BY ` + scoreCol + ` ASC, ` + timeCol + ` DESC, ` + idCol + ` DESC`)
	default:
		panic(fmt.Sprintf("unknown ordering %q", p.Order))
	}
	qb.Add(`LIMIT $?`, p.Limit+1)
}

type PageInfo struct {
	HasNextPage bool `json:"hasNextPage"`

	// Known limitation: this only reflects whether a cursor was supplied on
	// the request. It does not verify that the predecessor rows still exist.
	HasPreviousPage bool `json:"hasPreviousPage"`

	StartCursor *string `json:"startCursor"`
	EndCursor   *string `json:"endCursor"`
}

type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

/*
Assembles a Connection from the rows of a page query. rows may contain up to
Limit+1 entries; the extra peeked row only feeds HasNextPage and is never
returned, and never contributes a cursor.
*/
func BuildConnection[T any](p Page, rows []T, cursorOf func(T) Cursor) Connection[T] {
	hasNext := false
	if len(rows) > p.Limit {
		hasNext = true
		rows = rows[:p.Limit]
	}

	edges := make([]Edge[T], len(rows))
	for i, row := range rows {
		edges[i] = Edge[T]{
			Node:   row,
			Cursor: cursorOf(row).Encode(),
		}
	}

	info := PageInfo{
		HasNextPage:     hasNext,
		HasPreviousPage: p.Cursor != nil,
	}
	if len(edges) > 0 {
		info.StartCursor = &edges[0].Cursor
		info.EndCursor = &edges[len(edges)-1].Cursor
	}

	return Connection[T]{
		Edges:    edges,
		PageInfo: info,
	}
}
