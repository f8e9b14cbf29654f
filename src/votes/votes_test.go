package votes

import (
	"testing"

	"git.burrowchat.net/burrow/burrow/src/models"
	"github.com/stretchr/testify/assert"
)

func TestTargetKindValid(t *testing.T) {
	assert.True(t, models.TargetPost.Valid())
	assert.True(t, models.TargetComment.Valid())
	assert.False(t, models.TargetKind("user").Valid())
	assert.False(t, models.TargetKind("").Valid())
}

func TestVoteDirectionValid(t *testing.T) {
	assert.True(t, models.VoteUp.Valid())
	assert.True(t, models.VoteDown.Valid())
	assert.False(t, models.VoteDirection(0).Valid())
	assert.False(t, models.VoteDirection(2).Valid())
}

// In-memory mirror of the upsert semantics: one row per (user, target),
// repeat same direction changes nothing, and the count is always a full sum.
type voteSet map[int]models.VoteDirection

func (vs voteSet) cast(userID int, dir models.VoteDirection) (changed bool) {
	if existing, ok := vs[userID]; ok && existing == dir {
		return false
	}
	vs[userID] = dir
	return true
}

func (vs voteSet) sum() int {
	total := 0
	for _, dir := range vs {
		total += int(dir)
	}
	return total
}

func TestVoteAggregation(t *testing.T) {
	vs := make(voteSet)

	// Three users act on the same post: two upvotes and a downvote.
	assert.True(t, vs.cast(1, models.VoteUp))
	assert.True(t, vs.cast(2, models.VoteUp))
	assert.True(t, vs.cast(3, models.VoteDown))
	assert.Equal(t, 1, vs.sum())

	// User 1 repeats their upvote. Not a toggle; nothing changes.
	assert.False(t, vs.cast(1, models.VoteUp))
	assert.Equal(t, 1, vs.sum())

	// User 3 flips to an upvote. One row changes, count swings by two.
	assert.True(t, vs.cast(3, models.VoteUp))
	assert.Equal(t, 3, vs.sum())

	// One vote per user per target, no matter how many casts.
	assert.Len(t, vs, 3)
}
