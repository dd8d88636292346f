package medium

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig holds configuration for the Firestore medium.
type FirestoreConfig struct {
	ProjectID      string
	CollectionName string
}

// firestoreEntry is the document shape stored for each key.
type firestoreEntry struct {
	Value string `firestore:"value"`
}

// Firestore is a Medium that keeps one document per key in a collection.
// It is suitable for small deployments where a dedicated Redis instance may be overkill.
type Firestore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestore creates a new Firestore medium. The client's lifecycle is
// managed by the caller.
func NewFirestore(cfg *FirestoreConfig, client *firestore.Client, logger zerolog.Logger) (*Firestore, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	if cfg.CollectionName == "" {
		return nil, errors.New("firestore collection name is required")
	}

	logger.Info().Str("project_id", cfg.ProjectID).Str("collection", cfg.CollectionName).Msg("Firestore medium initialized.")

	return &Firestore{
		client:     client,
		collection: cfg.CollectionName,
		logger:     logger.With().Str("component", "FirestoreMedium").Logger(),
	}, nil
}

// docID escapes key so that characters such as '/' are legal in a document ID.
func docID(key string) string {
	return url.PathEscape(key)
}

// Get reads the document stored for key.
func (f *Firestore) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := f.client.Collection(f.collection).Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		f.logger.Error().Err(err).Str("key", key).Msg("Failed to get document from Firestore.")
		return "", false, fmt.Errorf("firestore get for %s: %w", key, err)
	}

	var entry firestoreEntry
	if err := snap.DataTo(&entry); err != nil {
		return "", false, fmt.Errorf("firestore DataTo for %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set creates or overwrites the document for key.
func (f *Firestore) Set(ctx context.Context, key string, value string) error {
	_, err := f.client.Collection(f.collection).Doc(docID(key)).Set(ctx, firestoreEntry{Value: value})
	if err != nil {
		f.logger.Error().Err(err).Str("key", key).Msg("Failed to write document to Firestore.")
		return fmt.Errorf("firestore set for %s: %w", key, err)
	}
	return nil
}

// Remove deletes the document for key. A missing document is not an error.
func (f *Firestore) Remove(ctx context.Context, key string) error {
	_, err := f.client.Collection(f.collection).Doc(docID(key)).Delete(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("firestore delete failed for key %s: %w", key, err)
	}
	return nil
}

// Close is a no-op as the Firestore client's lifecycle is managed externally.
func (f *Firestore) Close() error {
	return nil
}
