package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illmade-knight/go-querycache/pkg/cache"
	"github.com/illmade-knight/go-querycache/pkg/medium"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSinks struct {
	mu       sync.Mutex
	errs     []error
	messages []string
}

func (r *recordingSinks) Report(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingSinks) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

type vaultBalance struct {
	VaultID string `json:"vaultId"`
	Balance string `json:"balance"`
}

func TestFetchableValue_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Success stores the result and brackets the fetching flag", func(t *testing.T) {
		// Arrange
		var fv *cache.FetchableValue[vaultBalance]
		var fetchingDuringCall bool
		handleFetch := func(ctx context.Context) (vaultBalance, error) {
			fetchingDuringCall = fv.IsFetching()
			return vaultBalance{VaultID: "0x01", Balance: "100"}, nil
		}
		var err error
		fv, err = cache.NewFetchableValue[vaultBalance](ctx, newRegistry(medium.NewInMemory()), "balance", vaultBalance{}, cache.JSONCodec[vaultBalance]{}, handleFetch)
		require.NoError(t, err)
		require.False(t, fv.IsFetching())

		// Act
		fv.Fetch(ctx)

		// Assert
		assert.True(t, fetchingDuringCall, "IsFetching should be true while the fetch function runs")
		assert.False(t, fv.IsFetching(), "IsFetching should be false once Fetch returns")
		assert.Equal(t, vaultBalance{VaultID: "0x01", Balance: "100"}, fv.Get())
	})

	t.Run("Failure keeps the value and reports without returning", func(t *testing.T) {
		// Arrange
		sinks := &recordingSinks{}
		remoteErr := errors.New("indexer unavailable")
		calls := 0
		handleFetch := func(ctx context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 7, nil
			}
			return 0, remoteErr
		}
		fv, err := cache.NewFetchableValue[int](ctx, newRegistry(medium.NewInMemory()), "count", 0, cache.JSONCodec[int]{}, handleFetch,
			cache.WithErrorReporter(sinks), cache.WithNotifier(sinks))
		require.NoError(t, err)
		fv.Fetch(ctx)
		require.Equal(t, 7, fv.Get())

		// Act
		fv.Fetch(ctx)

		// Assert
		assert.Equal(t, 7, fv.Get(), "A failed fetch must not change the value")
		assert.False(t, fv.IsFetching())
		require.Len(t, sinks.errs, 1)
		assert.ErrorIs(t, sinks.errs[0], remoteErr)
		require.Len(t, sinks.messages, 1)
		assert.Contains(t, sinks.messages[0], "count")
	})

	t.Run("Panicking fetch function is reported", func(t *testing.T) {
		sinks := &recordingSinks{}
		handleFetch := func(ctx context.Context) (int, error) { panic("wasm trap") }
		fv, err := cache.NewFetchableValue[int](ctx, newRegistry(medium.NewInMemory()), "count", 3, cache.JSONCodec[int]{}, handleFetch,
			cache.WithErrorReporter(sinks))
		require.NoError(t, err)

		require.NotPanics(t, func() { fv.Fetch(ctx) })
		assert.Equal(t, 3, fv.Get())
		assert.False(t, fv.IsFetching())
		require.Len(t, sinks.errs, 1)
		assert.Contains(t, sinks.errs[0].Error(), "wasm trap")
	})

	t.Run("Sinks are optional", func(t *testing.T) {
		handleFetch := func(ctx context.Context) (int, error) { return 0, errors.New("down") }
		fv, err := cache.NewFetchableValue[int](ctx, newRegistry(medium.NewInMemory()), "count", 1, cache.JSONCodec[int]{}, handleFetch)
		require.NoError(t, err)

		require.NotPanics(t, func() { fv.Fetch(ctx) })
		assert.Equal(t, 1, fv.Get())
	})

	t.Run("Nil fetch function is rejected", func(t *testing.T) {
		_, err := cache.NewFetchableValue[int](ctx, newRegistry(medium.NewInMemory()), "count", 0, cache.JSONCodec[int]{}, nil)
		assert.Error(t, err)
	})
}

func TestFetchableValue_SubscribeFetching(t *testing.T) {
	ctx := context.Background()
	fv, err := cache.NewFetchableValue[int](ctx, newRegistry(medium.NewInMemory()), "n", 0, cache.JSONCodec[int]{},
		func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	var states []bool
	unsubscribe := fv.SubscribeFetching(func(b bool) { states = append(states, b) })

	fv.Fetch(ctx)
	assert.Equal(t, []bool{false, true, false}, states)

	unsubscribe()
	fv.Fetch(ctx)
	assert.Len(t, states, 3)
}

func TestFetchableValue_SingleFlight(t *testing.T) {
	ctx := context.Background()

	// Arrange: a fetch that blocks until released.
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	handleFetch := func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 11, nil
	}
	fv, err := cache.NewFetchableValue[int](ctx, newRegistry(medium.NewInMemory()), "n", 0, cache.JSONCodec[int]{}, handleFetch)
	require.NoError(t, err)

	// Act: three overlapping fetches.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); fv.Fetch(ctx) }()
	<-started
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); fv.Fetch(ctx) }()
	}
	// Give the joining callers time to reach the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// Assert
	assert.Equal(t, int32(1), calls.Load(), "Overlapping fetches should share one remote call")
	assert.Equal(t, 11, fv.Get())
	assert.False(t, fv.IsFetching())

	// A fetch after completion starts a fresh call.
	fv.Fetch(ctx)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchableValue_CallerStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	handleFetch := func(ctx context.Context) (int, error) {
		<-release
		return 5, nil
	}
	fv, err := cache.NewFetchableValue[int](context.Background(), newRegistry(medium.NewInMemory()), "n", 0, cache.JSONCodec[int]{}, handleFetch)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act: Fetch returns when ctx ends even though the call is still outstanding.
	fv.Fetch(ctx)
	assert.True(t, fv.IsFetching())

	close(release)
	assert.Eventually(t, func() bool { return fv.Get() == 5 && !fv.IsFetching() }, time.Second, 5*time.Millisecond)
}

func TestFetchableValue_ManualSet(t *testing.T) {
	ctx := context.Background()
	fv, err := cache.NewFetchableValue[int](ctx, newRegistry(medium.NewInMemory()), "n", 0, cache.JSONCodec[int]{},
		func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	require.NoError(t, fv.Set(ctx, 99))
	assert.Equal(t, 99, fv.Get())
	assert.False(t, fv.IsFetching())
}
