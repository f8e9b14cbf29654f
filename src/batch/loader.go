package batch

import (
	"context"
	"sync"
	"time"
)

// How long a Load call waits for siblings to pile on before the batch is
// dispatched. Long enough to collect every key from a burst of concurrent
// resolutions, short enough to be invisible in a request.
const dispatchWindow = 500 * time.Microsecond

// FetchFunc resolves a batch of keys in one shot. Keys with no corresponding
// value are simply absent from the returned map; that is not an error.
type FetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

/*
Loader coalesces point lookups into batch fetches and memoizes the results
for its lifetime. A Loader is scoped to a single request; create a fresh one
per request so the cache can never serve stale rows across requests.

Safe for concurrent use.
*/
type Loader[K comparable, V any] struct {
	fetch FetchFunc[K, V]

	mu      sync.Mutex
	cache   map[K]*thunk[V]
	pending []pendingLoad[K, V]
	batch   *batchState[K, V]
}

// pendingLoad pins the thunk alongside its key so that dispatch resolves the
// waiters that enqueued the key even if the cache entry was invalidated
// before the window elapsed.
type pendingLoad[K comparable, V any] struct {
	key   K
	thunk *thunk[V]
}

type thunk[V any] struct {
	done  chan struct{}
	value V
	ok    bool
	err   error
}

type batchState[K comparable, V any] struct {
	timer *time.Timer
}

func NewLoader[K comparable, V any](fetch FetchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{
		fetch: fetch,
		cache: make(map[K]*thunk[V]),
	}
}

/*
Load returns the value for key, batching the underlying fetch with any other
Load calls that arrive in the same dispatch window. A missing key yields the
zero value and ok == false, matching a map lookup.
*/
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	l.mu.Lock()
	t, cached := l.cache[key]
	if !cached {
		t = &thunk[V]{done: make(chan struct{})}
		l.cache[key] = t
		l.pending = append(l.pending, pendingLoad[K, V]{key: key, thunk: t})
		l.scheduleDispatch(ctx)
	}
	l.mu.Unlock()

	select {
	case <-t.done:
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}

	if t.err != nil {
		var zero V
		return zero, false, t.err
	}
	return t.value, t.ok, nil
}

// LoadAll resolves many keys through the same batching machinery. The result
// slice is parallel to keys; missing keys hold the zero value.
func (l *Loader[K, V]) LoadAll(ctx context.Context, keys []K) ([]V, error) {
	values := make([]V, len(keys))
	var firstErr error
	var wg sync.WaitGroup
	var errMu sync.Mutex

	for i, key := range keys {
		wg.Add(1)
		go func(i int, key K) {
			defer wg.Done()
			v, _, err := l.Load(ctx, key)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			values[i] = v
		}(i, key)
	}
	wg.Wait()

	return values, firstErr
}

// Prime seeds the cache, so a later Load of key never touches the fetch
// func. Useful when a list query already returned the rows.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.cache[key]; exists {
		return
	}
	t := &thunk[V]{done: make(chan struct{}), value: value, ok: true}
	close(t.done)
	l.cache[key] = t
}

// Invalidate drops key from the cache. The next Load fetches fresh. Loads
// already in flight are unaffected.
func (l *Loader[K, V]) Invalidate(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, key)
}

// Caller must hold l.mu.
func (l *Loader[K, V]) scheduleDispatch(ctx context.Context) {
	if l.batch != nil {
		return
	}
	b := &batchState[K, V]{}
	l.batch = b
	b.timer = time.AfterFunc(dispatchWindow, func() {
		l.dispatch(ctx, b)
	})
}

func (l *Loader[K, V]) dispatch(ctx context.Context, b *batchState[K, V]) {
	l.mu.Lock()
	if l.batch == b {
		l.batch = nil
	}
	loads := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(loads) == 0 {
		return
	}

	keys := make([]K, len(loads))
	for i, p := range loads {
		keys[i] = p.key
	}

	results, err := l.fetch(ctx, keys)
	for _, p := range loads {
		t := p.thunk
		if err != nil {
			t.err = err
		} else {
			t.value, t.ok = results[p.key]
		}
		close(t.done)
	}

	// A failed batch must not poison later loads of the same keys.
	if err != nil {
		l.mu.Lock()
		for _, p := range loads {
			if l.cache[p.key] == p.thunk {
				delete(l.cache, p.key)
			}
		}
		l.mu.Unlock()
	}
}
