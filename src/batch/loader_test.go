package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBatchesConcurrentCalls(t *testing.T) {
	ctx := context.Background()

	var fetches int32
	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]string, error) {
		atomic.AddInt32(&fetches, 1)
		out := make(map[int]string, len(keys))
		for _, k := range keys {
			out[k] = "user" + string(rune('0'+k))
		}
		return out, nil
	})

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, ok, err := loader.Load(ctx, i)
			require.NoError(t, err)
			require.True(t, ok)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	assert.Equal(t, "user3", results[3])
}

func TestLoadMemoizes(t *testing.T) {
	ctx := context.Background()

	var fetches int32
	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]int, error) {
		atomic.AddInt32(&fetches, 1)
		out := make(map[int]int, len(keys))
		for _, k := range keys {
			out[k] = k * 10
		}
		return out, nil
	})

	for i := 0; i < 3; i++ {
		v, ok, err := loader.Load(ctx, 7)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 70, v)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestLoadMissingKey(t *testing.T) {
	ctx := context.Background()

	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]string, error) {
		return map[int]string{}, nil
	})

	v, ok, err := loader.Load(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()

	var fetches int32
	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]int32, error) {
		n := atomic.AddInt32(&fetches, 1)
		out := make(map[int]int32, len(keys))
		for _, k := range keys {
			out[k] = n
		}
		return out, nil
	})

	v, _, err := loader.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	loader.Invalidate(1)

	v, _, err = loader.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestInvalidateWhilePendingStillResolves(t *testing.T) {
	ctx := context.Background()

	var fetches int32
	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]int32, error) {
		n := atomic.AddInt32(&fetches, 1)
		out := make(map[int]int32, len(keys))
		for _, k := range keys {
			out[k] = n
		}
		return out, nil
	})

	done := make(chan struct{})
	var v int32
	var ok bool
	var err error
	go func() {
		defer close(done)
		v, ok, err = loader.Load(ctx, 1)
	}()

	// Wait for the Load to enqueue, then invalidate inside the dispatch
	// window. The in-flight Load must still resolve instead of hanging or
	// crashing the dispatch goroutine.
	for {
		loader.mu.Lock()
		enqueued := len(loader.pending) == 1
		loader.mu.Unlock()
		if enqueued {
			break
		}
	}
	loader.Invalidate(1)

	<-done
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(1), v)

	// The invalidation still takes effect for the next Load.
	v, _, err = loader.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestPrimeSkipsFetch(t *testing.T) {
	ctx := context.Background()

	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]string, error) {
		t.Fatal("fetch should not run for primed keys")
		return nil, nil
	})

	loader.Prime(5, "primed")

	v, ok, err := loader.Load(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "primed", v)
}

func TestLoadAll(t *testing.T) {
	ctx := context.Background()

	var fetches int32
	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]int, error) {
		atomic.AddInt32(&fetches, 1)
		out := make(map[int]int, len(keys))
		for _, k := range keys {
			if k != 4 {
				out[k] = k * k
			}
		}
		return out, nil
	})

	values, err := loader.LoadAll(ctx, []int{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 9, 0}, values)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestFailedBatchDoesNotPoisonCache(t *testing.T) {
	ctx := context.Background()

	var fail atomic.Bool
	fail.Store(true)
	loader := NewLoader(func(ctx context.Context, keys []int) (map[int]int, error) {
		if fail.Load() {
			return nil, assert.AnError
		}
		out := make(map[int]int, len(keys))
		for _, k := range keys {
			out[k] = k
		}
		return out, nil
	})

	_, _, err := loader.Load(ctx, 1)
	require.Error(t, err)

	fail.Store(false)

	v, ok, err := loader.Load(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)
}
