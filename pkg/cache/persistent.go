package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/illmade-knight/go-querycache/pkg/medium"
	"github.com/rs/zerolog"
)

// PersistentValue is a single value kept in memory and mirrored to a medium
// under a fixed key. It is a best-effort cache, not a source of truth.
//
// Writes are serialized per instance and every write notifies all observers,
// in subscription order, before returning. Observers run while the write is in
// progress and must not write to the same value.
type PersistentValue[T any] struct {
	key          string
	defaultValue T
	codec        Codec[T]
	medium       medium.Medium
	strict       bool
	logger       zerolog.Logger

	writeMu   sync.Mutex
	mu        sync.RWMutex
	value     T
	observers observers[T]
}

func newPersistentValue[T any](
	ctx context.Context,
	m medium.Medium,
	key string,
	defaultValue T,
	codec Codec[T],
	s settings,
	logger zerolog.Logger,
) *PersistentValue[T] {
	pv := &PersistentValue[T]{
		key:          key,
		defaultValue: defaultValue,
		codec:        codec,
		medium:       m,
		strict:       s.strict,
		logger:       logger.With().Str("component", "PersistentValue").Str("key", key).Logger(),
	}
	pv.value = pv.load(ctx)
	return pv
}

// load reads the persisted form, falling back to the default on any failure.
func (p *PersistentValue[T]) load(ctx context.Context) T {
	raw, ok, err := p.medium.Get(ctx, p.key)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to read persisted value, using default.")
		return p.defaultValue
	}
	if !ok {
		return p.defaultValue
	}

	value, err := p.decode(raw)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Discarding undecodable persisted value, using default.")
		return p.defaultValue
	}
	p.logger.Debug().Msg("Restored persisted value.")
	return value
}

// decode runs the codec inside a failure boundary: errors and panics alike
// come back as an error.
func (p *PersistentValue[T]) decode(raw string) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deserialize panicked: %v", r)
		}
	}()
	return p.codec.Unmarshal(raw)
}

// Key returns the key the value is persisted under.
func (p *PersistentValue[T]) Key() string {
	return p.key
}

// Get returns the current in-memory value.
func (p *PersistentValue[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set replaces the value, persists it and notifies observers.
// Persistence failures are only returned in strict mode.
func (p *PersistentValue[T]) Set(ctx context.Context, v T) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.setLocked(ctx, v)
}

// Update applies fn to the current value and stores the result as one atomic
// write with respect to other writers of this value.
func (p *PersistentValue[T]) Update(ctx context.Context, fn func(current T) T) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.setLocked(ctx, fn(p.Get()))
}

// Unset removes the persisted entry and resets the in-memory value to the default.
func (p *PersistentValue[T]) Unset(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	p.value = p.defaultValue
	p.mu.Unlock()

	var err error
	if rmErr := p.medium.Remove(ctx, p.key); rmErr != nil {
		err = p.writeFailure(fmt.Errorf("remove %s: %w", p.key, rmErr))
	}
	p.observers.notify(p.defaultValue)
	return err
}

// Subscribe registers fn and immediately calls it with the current value.
// fn is then called after every write. The returned function unsubscribes.
func (p *PersistentValue[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	unsubscribe = p.observers.add(fn)
	fn(p.Get())
	return unsubscribe
}

func (p *PersistentValue[T]) setLocked(ctx context.Context, v T) error {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()

	err := p.persist(ctx, v)
	p.observers.notify(v)
	return err
}

func (p *PersistentValue[T]) persist(ctx context.Context, v T) error {
	raw, err := p.codec.Marshal(v)
	if err != nil {
		return p.writeFailure(fmt.Errorf("serialize %s: %w", p.key, err))
	}
	if err := p.medium.Set(ctx, p.key, raw); err != nil {
		return p.writeFailure(fmt.Errorf("persist %s: %w", p.key, err))
	}
	p.logger.Debug().Msg("Persisted value.")
	return nil
}

// writeFailure applies the persistence error policy. The in-memory value stays
// correct for this process either way.
func (p *PersistentValue[T]) writeFailure(err error) error {
	if p.strict {
		p.logger.Error().Err(err).Msg("Persisting value failed.")
		return err
	}
	p.logger.Warn().Err(err).Msg("Persisting value failed; keeping in-memory value only.")
	return nil
}
