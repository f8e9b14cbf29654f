package bus

import (
	"sync"

	"git.burrowchat.net/burrow/burrow/src/logging"
	"git.burrowchat.net/burrow/burrow/src/models"
	"github.com/google/uuid"
)

const DefaultSubscriberBuffer = 64

/*
A Filter selects which events a subscriber receives. Any one of its clauses
matching is enough:

  - PostID matches comment, typing, post, and vote events concerning that
    post.
  - VoteTargetID/VoteTargetKind match vote events for one specific target.
  - RecipientID matches notification events for that user.

The zero Filter matches nothing.
*/
type Filter struct {
	PostID int

	VoteTargetID   int
	VoteTargetKind models.TargetKind

	RecipientID int
}

func (f Filter) matches(e Event) bool {
	if f.PostID != 0 && e.postID() == f.PostID {
		return true
	}
	if f.VoteTargetID != 0 && e.Vote != nil &&
		e.Vote.TargetID == f.VoteTargetID && e.Vote.TargetKind == f.VoteTargetKind {
		return true
	}
	if f.RecipientID != 0 && e.Notification != nil &&
		e.Notification.RecipientID == f.RecipientID {
		return true
	}
	return false
}

type Subscriber struct {
	ID     uuid.UUID
	Events chan Event

	filters []Filter
}

/*
Bus fans events out from mutations to live connections. It is process-wide
and constructor-injected; nothing reaches for a global.

Publish never blocks: a subscriber whose buffer is full misses the event.
Live transports are best effort, the database remains the source of truth.
*/
type Bus struct {
	bufferSize int

	mu          sync.Mutex
	subscribers map[uuid.UUID]*Subscriber
}

func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultSubscriberBuffer
	}
	return &Bus{
		bufferSize:  bufferSize,
		subscribers: make(map[uuid.UUID]*Subscriber),
	}
}

func (b *Bus) Subscribe(filters ...Filter) *Subscriber {
	sub := &Subscriber{
		ID:      uuid.New(),
		Events:  make(chan Event, b.bufferSize),
		filters: filters,
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	return sub
}

// AddFilter widens an existing subscription, e.g. when a websocket client
// asks to watch another post.
func (b *Bus) AddFilter(id uuid.UUID, f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		sub.filters = append(sub.filters, f)
	}
}

// RemoveFilter narrows a subscription, dropping every filter equal to f.
func (b *Bus) RemoveFilter(id uuid.UUID, f Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	kept := sub.filters[:0]
	for _, existing := range sub.filters {
		if existing != f {
			kept = append(kept, existing)
		}
	}
	sub.filters = kept
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// twice.
func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.Events)
	}
}

/*
Publish delivers e to every subscriber with a matching filter. A malformed
event is an error; delivery itself never is. One slow subscriber cannot
block the mutation path or starve other subscribers.
*/
func (b *Bus) Publish(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		matched := false
		for _, f := range sub.filters {
			if f.matches(e) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		select {
		case sub.Events <- e:
		default:
			logging.Warn().
				Stringer("subscriber", sub.ID).
				Str("kind", string(e.Kind)).
				Msg("subscriber buffer full, dropping event")
		}
	}
	return nil
}

func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
