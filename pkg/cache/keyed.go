package cache

import (
	"context"
	"fmt"
	"maps"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// FetchByIDFunc loads one entity from its remote source.
type FetchByIDFunc[T any] func(ctx context.Context, id string) (T, error)

// KeyedEntityCache keeps the last known value of each entity by id, persisted
// as one JSON object. Entries are never expired; a refetch only adds or
// replaces the entry for its own id.
type KeyedEntityCache[T any] struct {
	entries   *PersistentValue[map[string]T]
	fetchByID FetchByIDFunc[T]
	logger    zerolog.Logger
	group     singleflight.Group
}

// NewKeyedEntityCache opens the persisted id->entity map stored under key.
func NewKeyedEntityCache[T any](
	ctx context.Context,
	r *Registry,
	key string,
	fetchByID FetchByIDFunc[T],
	opts ...Option,
) (*KeyedEntityCache[T], error) {
	if fetchByID == nil {
		return nil, fmt.Errorf("fetch function for key %q cannot be nil", key)
	}
	entries, err := Open(ctx, r, key, map[string]T{}, Codec[map[string]T](JSONCodec[map[string]T]{}), opts...)
	if err != nil {
		return nil, err
	}
	return &KeyedEntityCache[T]{
		entries:   entries,
		fetchByID: fetchByID,
		logger:    r.logger.With().Str("component", "KeyedEntityCache").Str("key", key).Logger(),
	}, nil
}

// Refetch loads id from the remote source and merges it into the cache.
// Unlike FetchableValue, the remote error is returned to the caller and the
// previous entry for id is left untouched. Concurrent refetches of the same id
// share one remote call.
func (c *KeyedEntityCache[T]) Refetch(ctx context.Context, id string) error {
	ch := c.group.DoChan(id, func() (any, error) {
		return nil, c.refetchOnce(ctx, id)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *KeyedEntityCache[T]) refetchOnce(ctx context.Context, id string) error {
	value, err := c.callFetch(ctx, id)
	if err != nil {
		c.logger.Debug().Err(err).Str("id", id).Msg("Refetch failed.")
		return fmt.Errorf("refetch %s: %w", id, err)
	}
	return c.entries.Update(ctx, func(current map[string]T) map[string]T {
		next := maps.Clone(current)
		if next == nil {
			next = make(map[string]T, 1)
		}
		next[id] = value
		return next
	})
}

// callFetch turns a panicking fetch function into an ordinary failure.
func (c *KeyedEntityCache[T]) callFetch(ctx context.Context, id string) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return c.fetchByID(ctx, id)
}

// Get returns the cached entity for id.
func (c *KeyedEntityCache[T]) Get(id string) (T, bool) {
	value, ok := c.entries.Get()[id]
	return value, ok
}

// All returns a copy of every cached entity.
func (c *KeyedEntityCache[T]) All() map[string]T {
	all := maps.Clone(c.entries.Get())
	if all == nil {
		all = map[string]T{}
	}
	return all
}

// Replace overwrites the whole mapping. It is the only way to drop ids.
func (c *KeyedEntityCache[T]) Replace(ctx context.Context, entries map[string]T) error {
	next := maps.Clone(entries)
	if next == nil {
		next = map[string]T{}
	}
	return c.entries.Set(ctx, next)
}

// Subscribe calls fn with a copy of the mapping now and after every change.
func (c *KeyedEntityCache[T]) Subscribe(fn func(map[string]T)) (unsubscribe func()) {
	return c.entries.Subscribe(func(m map[string]T) {
		fn(maps.Clone(m))
	})
}
