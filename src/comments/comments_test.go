package comments

import (
	"testing"

	"git.burrowchat.net/burrow/burrow/src/feed"
	"git.burrowchat.net/burrow/burrow/src/models"
	"github.com/stretchr/testify/assert"
)

func TestPathLabel(t *testing.T) {
	assert.Equal(t, "c1", PathLabel(1))
	assert.Equal(t, "c123456", PathLabel(123456))
	// Negative ids never happen, but the label must stay a valid ltree
	// token even if one did.
	assert.Equal(t, "c7", PathLabel(-7))
}

func TestMaxDepthBoundary(t *testing.T) {
	// Depth 5 is the deepest allowed comment; its child would be depth 6.
	parent := models.Comment{Depth: models.MaxCommentDepth - 1}
	assert.LessOrEqual(t, parent.Depth+1, models.MaxCommentDepth)

	deepest := models.Comment{Depth: models.MaxCommentDepth}
	assert.Greater(t, deepest.Depth+1, models.MaxCommentDepth)
}

func TestCommentFeedCursorCarriesDepth(t *testing.T) {
	c := CommentAndStuff{
		Comment: models.Comment{ID: 9, Depth: 3},
	}
	cursor := c.FeedCursor()
	assert.Equal(t, 3, cursor.Score)
	assert.Equal(t, 9, cursor.ID)

	decoded, err := feed.DecodeCursor(cursor.Encode())
	assert.NoError(t, err)
	assert.Equal(t, 3, decoded.Score)
}
