package medium

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

// BadgerConfig holds configuration for the embedded Badger medium.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory runs Badger without touching disk.
	InMemory bool
}

// Badger is a Medium backed by an embedded BadgerDB, the local durable store
// used by desktop deployments.
type Badger struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadger opens (or creates) the Badger database described by cfg.
func NewBadger(cfg *BadgerConfig, logger zerolog.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	// Badger's own logging is disabled; errors are still returned from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", cfg.Path, err)
	}

	logger.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Badger medium opened.")

	return &Badger{
		db:     db,
		logger: logger.With().Str("component", "BadgerMedium").Logger(),
	}, nil
}

// Get reads the value stored under key. badger.ErrKeyNotFound is a normal miss.
func (b *Badger) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger get for %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key in a single transaction.
func (b *Badger) Set(_ context.Context, key string, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("badger set for %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (b *Badger) Remove(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete for %s: %w", key, err)
	}
	return nil
}

// Close gracefully closes the database.
func (b *Badger) Close() error {
	b.logger.Info().Msg("Closing Badger medium...")
	return b.db.Close()
}
