// Package medium provides the key/value persistence media that back persisted
// cache values. A medium stores one opaque string per key and never interprets it.
package medium

import (
	"context"
	"io"
)

// Medium is a durable key->string store.
//
// Get reports a missing key as ("", false, nil); only genuine backend failures
// are returned as errors.
type Medium interface {
	// Get reads the raw string stored under key.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Closer is included for implementations that manage connections or files.
	io.Closer
}

// namespaced prefixes every key of an underlying Medium.
type namespaced struct {
	inner  Medium
	prefix string
}

// WithNamespace returns a Medium that stores every key as "ns:key" in m.
// An empty namespace returns m unchanged.
func WithNamespace(m Medium, ns string) Medium {
	if ns == "" {
		return m
	}
	return &namespaced{inner: m, prefix: ns + ":"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}

// Close closes the underlying medium.
func (n *namespaced) Close() error {
	return n.inner.Close()
}
