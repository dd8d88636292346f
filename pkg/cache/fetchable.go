package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the latest value of a FetchableValue from its remote source.
type FetchFunc[T any] func(ctx context.Context) (T, error)

const fetchKey = "fetch"

// FetchableValue is a PersistentValue refreshed from a remote source.
//
// Fetch never returns the remote error: failures go to the configured
// ErrorReporter and Notifier and the previous value stays in place.
// Concurrent Fetch calls on one instance share a single remote call.
type FetchableValue[T any] struct {
	*PersistentValue[T]

	handleFetch FetchFunc[T]
	reporter    ErrorReporter
	notifier    Notifier
	logger      zerolog.Logger

	group            singleflight.Group
	fetching         atomic.Bool
	fetchingWatchers observers[bool]
}

// NewFetchableValue opens the persisted value for key through r and wraps it
// with handleFetch.
func NewFetchableValue[T any](
	ctx context.Context,
	r *Registry,
	key string,
	defaultValue T,
	codec Codec[T],
	handleFetch FetchFunc[T],
	opts ...Option,
) (*FetchableValue[T], error) {
	if handleFetch == nil {
		return nil, fmt.Errorf("fetch function for key %q cannot be nil", key)
	}
	pv, err := Open(ctx, r, key, defaultValue, codec, opts...)
	if err != nil {
		return nil, err
	}
	s := applyOptions(settings{}, opts)
	return &FetchableValue[T]{
		PersistentValue: pv,
		handleFetch:     handleFetch,
		reporter:        s.reporter,
		notifier:        s.notifier,
		logger:          r.logger.With().Str("component", "FetchableValue").Str("key", key).Logger(),
	}, nil
}

// Fetch refreshes the value from the remote source.
//
// A call made while another fetch on this instance is outstanding joins it
// instead of starting a second request. If ctx ends first, Fetch stops
// waiting; the shared request carries on and still stores its result.
func (f *FetchableValue[T]) Fetch(ctx context.Context) {
	ch := f.group.DoChan(fetchKey, func() (any, error) {
		f.fetchOnce(ctx)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (f *FetchableValue[T]) fetchOnce(ctx context.Context) {
	f.setFetching(true)
	defer f.setFetching(false)

	value, err := f.callFetch(ctx)
	if err != nil {
		f.fail(ctx, err)
		return
	}
	if err := f.Set(ctx, value); err != nil {
		f.fail(ctx, err)
	}
}

// callFetch turns a panicking fetch function into an ordinary failure.
func (f *FetchableValue[T]) callFetch(ctx context.Context) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return f.handleFetch(ctx)
}

func (f *FetchableValue[T]) fail(ctx context.Context, err error) {
	f.logger.Error().Err(err).Msg("Fetch failed; keeping previous value.")
	if f.reporter != nil {
		f.reporter.Report(ctx, err)
	}
	if f.notifier != nil {
		f.notifier.Notify(ctx, fmt.Sprintf("Failed to refresh %s: %v", f.Key(), err))
	}
}

func (f *FetchableValue[T]) setFetching(v bool) {
	f.fetching.Store(v)
	f.fetchingWatchers.notify(v)
}

// IsFetching reports whether a fetch is in flight.
func (f *FetchableValue[T]) IsFetching() bool {
	return f.fetching.Load()
}

// SubscribeFetching calls fn with the current in-flight state and on every
// transition. The returned function unsubscribes.
func (f *FetchableValue[T]) SubscribeFetching(fn func(fetching bool)) (unsubscribe func()) {
	unsubscribe = f.fetchingWatchers.add(fn)
	fn(f.IsFetching())
	return unsubscribe
}
