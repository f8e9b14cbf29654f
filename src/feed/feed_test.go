package feed

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampFirst(t *testing.T) {
	assert.Equal(t, 1, ClampFirst(0))
	assert.Equal(t, 1, ClampFirst(-5))
	assert.Equal(t, 1, ClampFirst(1))
	assert.Equal(t, 25, ClampFirst(25))
	assert.Equal(t, 50, ClampFirst(50))
	assert.Equal(t, 50, ClampFirst(1000))
}

func TestCursorRoundtrip(t *testing.T) {
	orig := Cursor{
		Time:  time.Date(2024, 3, 9, 15, 4, 5, 123456789, time.UTC),
		Score: -3,
		ID:    42,
	}
	decoded, err := DecodeCursor(orig.Encode())
	require.NoError(t, err)
	assert.True(t, orig.Time.Equal(decoded.Time))
	assert.Equal(t, orig.Score, decoded.Score)
	assert.Equal(t, orig.ID, decoded.ID)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, garbage := range []string{
		"not base64!!!",
		"aGVsbG8=",       // "hello", no separators
		"MXwyfDN8NA==",   // too many fields
		"eHwyfDM=",       // bad timestamp
	} {
		_, err := DecodeCursor(garbage)
		require.Error(t, err, "input %q", garbage)
		assert.True(t, apperrors.Is(err, apperrors.Validation))
	}
}

func TestParseOrderBy(t *testing.T) {
	order, err := ParseOrderBy("")
	require.NoError(t, err)
	assert.Equal(t, OrderNewest, order)

	_, err = ParseOrderBy("bogus")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Validation))
}

func TestBuildConnection(t *testing.T) {
	cursorOf := func(id int) Cursor {
		return Cursor{Time: time.Unix(int64(id), 0), ID: id}
	}

	t.Run("peeked row sets hasNextPage and is dropped", func(t *testing.T) {
		p := Page{Order: OrderNewest, Limit: 2}
		conn := BuildConnection(p, []int{3, 2, 1}, cursorOf)
		require.Len(t, conn.Edges, 2)
		assert.Equal(t, 3, conn.Edges[0].Node)
		assert.Equal(t, 2, conn.Edges[1].Node)
		assert.True(t, conn.PageInfo.HasNextPage)
		assert.False(t, conn.PageInfo.HasPreviousPage)
		require.NotNil(t, conn.PageInfo.EndCursor)
		assert.Equal(t, cursorOf(2).Encode(), *conn.PageInfo.EndCursor)
	})

	t.Run("short page has no next", func(t *testing.T) {
		p := Page{Order: OrderNewest, Limit: 2}
		conn := BuildConnection(p, []int{3}, cursorOf)
		require.Len(t, conn.Edges, 1)
		assert.False(t, conn.PageInfo.HasNextPage)
	})

	t.Run("cursor presence implies previous page", func(t *testing.T) {
		c := cursorOf(9)
		p := Page{Order: OrderNewest, Limit: 2, Cursor: &c}
		conn := BuildConnection(p, []int{8, 7}, cursorOf)
		assert.True(t, conn.PageInfo.HasPreviousPage)
	})

	t.Run("empty page has nil cursors", func(t *testing.T) {
		p := Page{Order: OrderNewest, Limit: 2}
		conn := BuildConnection(p, nil, cursorOf)
		assert.Empty(t, conn.Edges)
		assert.Nil(t, conn.PageInfo.StartCursor)
		assert.Nil(t, conn.PageInfo.EndCursor)
	})
}

type fakeRow struct {
	id      int
	created time.Time
	score   int
}

// Walks an entire in-memory feed page by page, the way a client would, and
// returns the ids seen in order.
func paginateAll(t *testing.T, rows []fakeRow, order OrderBy, pageSize int) []int {
	t.Helper()

	less := func(a, b fakeRow) bool {
		switch order {
		case OrderNewest:
			if !a.created.Equal(b.created) {
				return a.created.After(b.created)
			}
			return a.id > b.id
		case OrderOldest:
			if !a.created.Equal(b.created) {
				return a.created.Before(b.created)
			}
			return a.id < b.id
		case OrderTop:
			if a.score != b.score {
				return a.score > b.score
			}
			return a.id > b.id
		case OrderTopShallow:
			if a.score != b.score {
				return a.score < b.score
			}
			if !a.created.Equal(b.created) {
				return a.created.After(b.created)
			}
			return a.id > b.id
		}
		panic("unknown ordering")
	}

	// Simulates the SQL cursor predicate: keep rows strictly after the
	// cursor position in the feed's ordering.
	afterCursor := func(row fakeRow, c Cursor) bool {
		cursorRow := fakeRow{id: c.ID, created: c.Time, score: c.Score}
		return less(cursorRow, row)
	}

	var seen []int
	var cursor *Cursor
	for i := 0; ; i++ {
		require.Less(t, i, 100, "pagination did not terminate")

		var page []fakeRow
		for _, row := range rows {
			if cursor != nil && !afterCursor(row, *cursor) {
				continue
			}
			page = append(page, row)
		}
		sort.SliceStable(page, func(i, j int) bool { return less(page[i], page[j]) })
		if len(page) > pageSize+1 {
			page = page[:pageSize+1]
		}

		p := Page{Order: order, Limit: pageSize, Cursor: cursor}
		conn := BuildConnection(p, page, func(r fakeRow) Cursor {
			return Cursor{Time: r.created, Score: r.score, ID: r.id}
		})
		for _, edge := range conn.Edges {
			seen = append(seen, edge.Node.id)
		}
		if !conn.PageInfo.HasNextPage {
			return seen
		}
		c, err := DecodeCursor(*conn.PageInfo.EndCursor)
		require.NoError(t, err)
		cursor = &c
	}
}

// Duplicate timestamps straddling a page boundary must not cause rows to be
// skipped or served twice.
func TestPaginationStableWithDuplicateTimestamps(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []fakeRow{
		{id: 1, created: base, score: 10},
		{id: 2, created: base.Add(time.Second), score: 4},
		{id: 3, created: base.Add(time.Second), score: 4}, // same instant and score as 2
		{id: 4, created: base.Add(2 * time.Second), score: 7},
		{id: 5, created: base.Add(2 * time.Second), score: 7},
		{id: 6, created: base.Add(3 * time.Second), score: 1},
		{id: 7, created: base.Add(3 * time.Second), score: 1},
	}

	for _, order := range []OrderBy{OrderNewest, OrderOldest, OrderTop, OrderTopShallow} {
		for pageSize := 1; pageSize <= len(rows)+1; pageSize++ {
			t.Run(fmt.Sprintf("%s/size%d", order, pageSize), func(t *testing.T) {
				seen := paginateAll(t, rows, order, pageSize)
				require.Len(t, seen, len(rows))
				unique := make(map[int]bool)
				for _, id := range seen {
					assert.False(t, unique[id], "row %d served twice", id)
					unique[id] = true
				}
			})
		}
	}
}
