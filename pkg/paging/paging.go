// Package paging exposes remote collections (trades of an order, balance
// changes of a vault) one page at a time.
package paging

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrNegativePage is returned by List for a page index below zero.
	ErrNegativePage = errors.New("page index cannot be negative")
	// ErrExportUnsupported is returned by ExportAll when no exporter is configured.
	ErrExportUnsupported = errors.New("collection does not support export")
)

// FetchPageFunc returns one page of the remote collection. page is one-indexed.
type FetchPageFunc[T any] func(ctx context.Context, page, pageSize int) ([]T, error)

// Exporter writes the whole remote collection to a destination.
type Exporter interface {
	ExportAll(ctx context.Context, destination string) error
}

// PagedCollectionCache adapts a one-indexed remote collection to zero-indexed
// callers. Each instance is bound to one remote collection.
type PagedCollectionCache[T any] struct {
	pageSize  int
	fetchPage FetchPageFunc[T]
	exporter  Exporter
	logger    zerolog.Logger
}

// New returns a PagedCollectionCache. exporter may be nil.
func New[T any](pageSize int, fetchPage FetchPageFunc[T], exporter Exporter, logger zerolog.Logger) (*PagedCollectionCache[T], error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	if fetchPage == nil {
		return nil, errors.New("fetch page function cannot be nil")
	}
	return &PagedCollectionCache[T]{
		pageSize:  pageSize,
		fetchPage: fetchPage,
		exporter:  exporter,
		logger:    logger.With().Str("component", "PagedCollectionCache").Logger(),
	}, nil
}

// PageSize is the fixed number of items requested per page.
func (c *PagedCollectionCache[T]) PageSize() int { return c.pageSize }

// List returns zero-indexed page as delivered by the remote source, which
// receives page+1.
func (c *PagedCollectionCache[T]) List(ctx context.Context, page int) ([]T, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativePage, page)
	}
	items, err := c.fetchPage(ctx, page+1, c.pageSize)
	if err != nil {
		c.logger.Warn().Err(err).Int("page", page).Msg("Page fetch failed.")
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	return items, nil
}

// ExportAll writes the entire collection to destination.
func (c *PagedCollectionCache[T]) ExportAll(ctx context.Context, destination string) error {
	if c.exporter == nil {
		return ErrExportUnsupported
	}
	if err := c.exporter.ExportAll(ctx, destination); err != nil {
		c.logger.Error().Err(err).Str("destination", destination).Msg("Export failed.")
		return fmt.Errorf("export to %s: %w", destination, err)
	}
	return nil
}

// NewFromSource wires a BigQuerySource as both the page fetcher and the exporter.
func NewFromSource[T any](src *BigQuerySource[T], pageSize int, logger zerolog.Logger) (*PagedCollectionCache[T], error) {
	if src == nil {
		return nil, errors.New("source cannot be nil")
	}
	return New[T](pageSize, src.Page, src, logger)
}
