package presence

import (
	"testing"
	"time"

	"git.burrowchat.net/burrow/burrow/src/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() (*Tracker, *time.Time) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(bus.New(8), 5*time.Second, 2*time.Second)
	tracker.now = func() time.Time { return now }
	return tracker, &now
}

func TestTypingRoster(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.StartTyping(42, 1, "alice")
	tracker.StartTyping(42, 2, "bob")
	tracker.StartTyping(99, 3, "carol")

	users := tracker.TypingUsers(42)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, "bob", users[1].Name)

	assert.Len(t, tracker.TypingUsers(99), 1)
	assert.Empty(t, tracker.TypingUsers(7))
}

func TestStopTyping(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.StartTyping(42, 1, "alice")
	tracker.StopTyping(42, 1)

	assert.Empty(t, tracker.TypingUsers(42))

	// Stopping a user who never started must not panic or publish.
	tracker.StopTyping(42, 1)
	tracker.StopTyping(7, 9)
}

// An entry that has passed the idle timeout must be invisible immediately,
// even though the sweeper has not run yet.
func TestStaleEntriesInvisibleBeforeSweep(t *testing.T) {
	tracker, now := newTestTracker()

	tracker.StartTyping(42, 1, "alice")
	*now = now.Add(6 * time.Second)
	tracker.StartTyping(42, 2, "bob")

	users := tracker.TypingUsers(42)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Name)
}

func TestRefreshKeepsEntryAlive(t *testing.T) {
	tracker, now := newTestTracker()

	tracker.StartTyping(42, 1, "alice")
	*now = now.Add(4 * time.Second)
	tracker.StartTyping(42, 1, "alice")
	*now = now.Add(4 * time.Second)

	assert.Len(t, tracker.TypingUsers(42), 1)
}

func TestSweepRemovesStaleAndEmptyPosts(t *testing.T) {
	tracker, now := newTestTracker()

	tracker.StartTyping(42, 1, "alice")
	tracker.StartTyping(43, 2, "bob")
	*now = now.Add(6 * time.Second)
	tracker.StartTyping(43, 3, "carol")

	tracker.Sweep()

	tracker.mu.Lock()
	_, post42Exists := tracker.posts[42]
	users43 := len(tracker.posts[43])
	tracker.mu.Unlock()

	assert.False(t, post42Exists, "post with no fresh entries should be dropped")
	assert.Equal(t, 1, users43)
}

func TestTypingChangePublishes(t *testing.T) {
	eventBus := bus.New(8)
	tracker := NewTracker(eventBus, 5*time.Second, 2*time.Second)
	sub := eventBus.Subscribe(bus.Filter{PostID: 42})

	tracker.StartTyping(42, 1, "alice")

	select {
	case e := <-sub.Events:
		require.Equal(t, bus.EventTypingChanged, e.Kind)
		require.NotNil(t, e.Typing)
		assert.Equal(t, 42, e.Typing.PostID)
		require.Len(t, e.Typing.Users, 1)
		assert.Equal(t, "alice", e.Typing.Users[0].Name)
	default:
		t.Fatal("expected a typing event")
	}

	tracker.StopTyping(42, 1)

	select {
	case e := <-sub.Events:
		require.NotNil(t, e.Typing)
		assert.Empty(t, e.Typing.Users)
	default:
		t.Fatal("expected a typing event after stop")
	}
}
