package presence

import (
	"sort"
	"sync"
	"time"

	"git.burrowchat.net/burrow/burrow/src/bus"
	"git.burrowchat.net/burrow/burrow/src/jobs"
	"git.burrowchat.net/burrow/burrow/src/logging"
	"git.burrowchat.net/burrow/burrow/src/utils"
)

/*
Tracker keeps "who is typing on which post" entirely in memory. Typing is a
transient signal; it is never persisted and is lost on restart, which is the
correct behavior.

A typing entry expires once no signal has arrived for the idle timeout.
Expiry is enforced twice: queries filter stale entries on the way out, and a
background sweep physically removes them so the maps cannot grow without
bound.
*/
type Tracker struct {
	bus           *bus.Bus
	idleTimeout   time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu    sync.Mutex
	posts map[int]map[int]entry
}

type entry struct {
	name       string
	lastSignal time.Time
}

func NewTracker(eventBus *bus.Bus, idleTimeout, sweepInterval time.Duration) *Tracker {
	return &Tracker{
		bus:           eventBus,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		now:           time.Now,
		posts:         make(map[int]map[int]entry),
	}
}

// StartTyping records or refreshes a typing signal and broadcasts the
// post's current typing roster.
func (t *Tracker) StartTyping(postID, userID int, name string) {
	t.mu.Lock()
	users, ok := t.posts[postID]
	if !ok {
		users = make(map[int]entry)
		t.posts[postID] = users
	}
	users[userID] = entry{name: name, lastSignal: t.now()}
	t.mu.Unlock()

	t.publish(postID)
}

// StopTyping removes the signal immediately, e.g. when the user submits
// their comment or clears the input.
func (t *Tracker) StopTyping(postID, userID int) {
	t.mu.Lock()
	changed := false
	if users, ok := t.posts[postID]; ok {
		if _, present := users[userID]; present {
			delete(users, userID)
			changed = true
		}
		if len(users) == 0 {
			delete(t.posts, postID)
		}
	}
	t.mu.Unlock()

	if changed {
		t.publish(postID)
	}
}

/*
TypingUsers returns who is currently typing on a post, sorted by user id for
a stable wire order. Staleness is re-checked here, so an entry the sweep has
not collected yet is still invisible the moment it passes the idle timeout.
*/
func (t *Tracker) TypingUsers(postID int) []bus.TypingUser {
	cutoff := t.now().Add(-t.idleTimeout)

	t.mu.Lock()
	defer t.mu.Unlock()

	var users []bus.TypingUser
	for userID, e := range t.posts[postID] {
		if e.lastSignal.Before(cutoff) {
			continue
		}
		users = append(users, bus.TypingUser{UserID: userID, Name: e.name})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

// Sweep removes every entry past the idle timeout and broadcasts an update
// for each post whose roster changed. Normally driven by RunSweeper; exposed
// for tests.
func (t *Tracker) Sweep() {
	cutoff := t.now().Add(-t.idleTimeout)

	t.mu.Lock()
	var changedPosts []int
	for postID, users := range t.posts {
		changed := false
		for userID, e := range users {
			if e.lastSignal.Before(cutoff) {
				delete(users, userID)
				changed = true
			}
		}
		if len(users) == 0 {
			delete(t.posts, postID)
		}
		if changed {
			changedPosts = append(changedPosts, postID)
		}
	}
	t.mu.Unlock()

	for _, postID := range changedPosts {
		t.publish(postID)
	}
}

func (t *Tracker) RunSweeper() *jobs.Job {
	job := jobs.New("presence sweeper")

	go func() {
		defer job.Finish()
		for {
			err := utils.SleepContext(job.Ctx, t.sweepInterval)
			if err != nil {
				job.Logger.Info().Msg("shutting down presence sweeper")
				return
			}
			t.Sweep()
		}
	}()

	return job
}

func (t *Tracker) publish(postID int) {
	err := t.bus.Publish(bus.Event{
		Kind: bus.EventTypingChanged,
		Typing: &bus.TypingPayload{
			PostID: postID,
			Users:  t.TypingUsers(postID),
		},
	})
	if err != nil {
		logging.Error().Err(err).Int("post", postID).Msg("failed to publish typing update")
	}
}
