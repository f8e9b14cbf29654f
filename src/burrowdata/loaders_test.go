package burrowdata

import (
	"context"
	"testing"

	"git.burrowchat.net/burrow/burrow/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prime refuses to overwrite a cached key, so a successful re-prime after
// InvalidateVote proves the entry was actually dropped.
func TestInvalidateVoteDropsCachedPost(t *testing.T) {
	ctx := context.Background()
	loaders := NewLoaders(nil, &models.User{ID: 1})

	loaders.Posts.Prime(10, &models.Post{ID: 10, VoteCount: 3})
	loaders.PostVotes.Prime(10, &models.Vote{TargetID: 10, Direction: models.VoteUp})

	loaders.InvalidateVote(models.TargetPost, 10)

	loaders.Posts.Prime(10, &models.Post{ID: 10, VoteCount: 4})
	loaders.PostVotes.Prime(10, nil)

	post, ok, err := loaders.Posts.Load(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, post.VoteCount)

	vote, ok, err := loaders.PostVotes.Load(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, vote)
}

func TestInvalidateVoteDropsCachedComment(t *testing.T) {
	ctx := context.Background()
	loaders := NewLoaders(nil, &models.User{ID: 1})

	loaders.Comments.Prime(7, &models.Comment{ID: 7, VoteCount: 0})
	loaders.Posts.Prime(10, &models.Post{ID: 10, VoteCount: 3})

	loaders.InvalidateVote(models.TargetComment, 7)

	loaders.Comments.Prime(7, &models.Comment{ID: 7, VoteCount: 1})
	comment, ok, err := loaders.Comments.Load(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, comment.VoteCount)

	// The post side is untouched by a comment vote.
	post, ok, err := loaders.Posts.Load(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, post.VoteCount)
}
