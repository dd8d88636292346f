// Package cache provides persisted, observable values and the fetch-backed
// caches built on them: FetchableValue for a single remote value and
// KeyedEntityCache for entities looked up by id.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/illmade-knight/go-querycache/pkg/medium"
	"github.com/rs/zerolog"
)

// ErrKeyTypeMismatch is returned when a key is opened with a different value
// type than the one it was first registered with.
var ErrKeyTypeMismatch = errors.New("persisted key already registered with a different type")

// RegistryConfig holds configuration shared by every value opened through a Registry.
type RegistryConfig struct {
	// Namespace prefixes every key written to the medium.
	Namespace string
	// StrictPersistence makes every value surface medium write failures.
	StrictPersistence bool
}

// Registry owns the persistence medium and hands out at most one
// PersistentValue per key. Keys are global within a registry, so two
// components asking for the same key share state instead of clobbering it.
type Registry struct {
	medium medium.Medium
	logger zerolog.Logger
	base   settings

	mu     sync.Mutex
	values map[string]any
}

// NewRegistry creates a registry over m. cfg may be nil.
func NewRegistry(cfg *RegistryConfig, m medium.Medium, logger zerolog.Logger) *Registry {
	if cfg == nil {
		cfg = &RegistryConfig{}
	}
	return &Registry{
		medium: medium.WithNamespace(m, cfg.Namespace),
		logger: logger.With().Str("component", "Registry").Logger(),
		base:   settings{strict: cfg.StrictPersistence},
		values: make(map[string]any),
	}
}

// Open returns the PersistentValue registered under key, creating it on first
// use. Creation reads the persisted form once; a missing, unreadable or
// undecodable entry yields defaultValue. Later calls for the same key return
// the existing instance and ignore defaultValue, codec and opts.
func Open[T any](
	ctx context.Context,
	r *Registry,
	key string,
	defaultValue T,
	codec Codec[T],
	opts ...Option,
) (*PersistentValue[T], error) {
	if key == "" {
		return nil, errors.New("persisted key cannot be empty")
	}
	if codec == nil {
		return nil, fmt.Errorf("codec for key %q cannot be nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.values[key]; ok {
		pv, ok := existing.(*PersistentValue[T])
		if !ok {
			return nil, fmt.Errorf("key %q holds %T: %w", key, existing, ErrKeyTypeMismatch)
		}
		return pv, nil
	}

	pv := newPersistentValue(ctx, r.medium, key, defaultValue, codec, applyOptions(r.base, opts), r.logger)
	r.values[key] = pv
	return pv, nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close releases the underlying medium. Values opened from the registry must
// not be written afterwards.
func (r *Registry) Close() error {
	r.logger.Info().Int("keys", len(r.Keys())).Msg("Closing registry medium.")
	return r.medium.Close()
}
