package bus

import (
	"testing"

	"git.burrowchat.net/burrow/burrow/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(sub *Subscriber) []Event {
	var events []Event
	for {
		select {
		case e := <-sub.Events:
			events = append(events, e)
		default:
			return events
		}
	}
}

func commentEvent(postID int) Event {
	return Event{
		Kind: EventCommentAdded,
		Comment: &CommentPayload{
			CommentID: 100,
			PostID:    postID,
			AuthorID:  1,
		},
	}
}

func TestPublishRoutesByPost(t *testing.T) {
	b := New(8)
	watching42 := b.Subscribe(Filter{PostID: 42})
	watching43 := b.Subscribe(Filter{PostID: 43})

	require.NoError(t, b.Publish(commentEvent(42)))

	got := drain(watching42)
	require.Len(t, got, 1)
	assert.Equal(t, EventCommentAdded, got[0].Kind)
	assert.Empty(t, drain(watching43))
}

func TestPostFilterMatchesAllPostScopedKinds(t *testing.T) {
	b := New(8)
	sub := b.Subscribe(Filter{PostID: 42})

	require.NoError(t, b.Publish(commentEvent(42)))
	require.NoError(t, b.Publish(Event{
		Kind:   EventTypingChanged,
		Typing: &TypingPayload{PostID: 42},
	}))
	require.NoError(t, b.Publish(Event{
		Kind: EventVoteUpdated,
		Vote: &VotePayload{TargetID: 9, TargetKind: models.TargetComment, PostID: 42, VoteCount: 3},
	}))
	require.NoError(t, b.Publish(Event{
		Kind: EventPostUpdated,
		Post: &PostPayload{PostID: 42, TopicID: 1, AuthorID: 2, Title: "t"},
	}))

	assert.Len(t, drain(sub), 4)
}

func TestVoteTargetFilter(t *testing.T) {
	b := New(8)
	sub := b.Subscribe(Filter{VoteTargetID: 7, VoteTargetKind: models.TargetPost})

	require.NoError(t, b.Publish(Event{
		Kind: EventVoteUpdated,
		Vote: &VotePayload{TargetID: 7, TargetKind: models.TargetPost, PostID: 7, VoteCount: 1},
	}))
	// Same id, different kind. Must not match.
	require.NoError(t, b.Publish(Event{
		Kind: EventVoteUpdated,
		Vote: &VotePayload{TargetID: 7, TargetKind: models.TargetComment, PostID: 99, VoteCount: 1},
	}))

	got := drain(sub)
	require.Len(t, got, 1)
	assert.Equal(t, models.TargetPost, got[0].Vote.TargetKind)
}

func TestNotificationFilterByRecipient(t *testing.T) {
	b := New(8)
	alice := b.Subscribe(Filter{RecipientID: 1})
	bob := b.Subscribe(Filter{RecipientID: 2})

	require.NoError(t, b.Publish(Event{
		Kind: EventNotificationReceived,
		Notification: &NotificationPayload{
			NotificationID: 5,
			RecipientID:    1,
			Kind:           models.NotificationReply,
		},
	}))

	require.Len(t, drain(alice), 1)
	assert.Empty(t, drain(bob))
}

func TestPublishRejectsMalformedEvents(t *testing.T) {
	b := New(8)

	// No payload at all.
	require.Error(t, b.Publish(Event{Kind: EventCommentAdded}))
	// Payload does not match the kind.
	require.Error(t, b.Publish(Event{
		Kind: EventCommentAdded,
		Vote: &VotePayload{TargetID: 1, TargetKind: models.TargetPost, PostID: 1},
	}))
	// Two payloads.
	require.Error(t, b.Publish(Event{
		Kind:    EventCommentAdded,
		Comment: &CommentPayload{CommentID: 1, PostID: 1},
		Vote:    &VotePayload{TargetID: 1, TargetKind: models.TargetPost, PostID: 1},
	}))
	require.Error(t, b.Publish(Event{Kind: "mystery"}))
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	b := New(1)
	sub := b.Subscribe(Filter{PostID: 42})

	require.NoError(t, b.Publish(commentEvent(42)))
	// Buffer is full now; this must return without blocking.
	require.NoError(t, b.Publish(commentEvent(42)))

	assert.Len(t, drain(sub), 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New(8)
	sub := b.Subscribe(Filter{PostID: 42})

	b.Unsubscribe(sub.ID)
	b.Unsubscribe(sub.ID) // second call is a no-op

	_, open := <-sub.Events
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())

	// Publishing after unsubscribe must not panic on the closed channel.
	require.NoError(t, b.Publish(commentEvent(42)))
}

func TestAddFilterWidensSubscription(t *testing.T) {
	b := New(8)
	sub := b.Subscribe(Filter{PostID: 42})

	require.NoError(t, b.Publish(commentEvent(43)))
	require.Empty(t, drain(sub))

	b.AddFilter(sub.ID, Filter{PostID: 43})

	require.NoError(t, b.Publish(commentEvent(43)))
	assert.Len(t, drain(sub), 1)
}
