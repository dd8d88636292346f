package medium

import (
	"context"
	"sync"
)

// InMemory is a thread-safe, in-memory Medium.
// It is primarily intended for local development and testing.
type InMemory struct {
	mu   sync.RWMutex
	data map[string]string

	// SetErr, when non-nil, is returned by every Set and Remove call. It lets
	// tests simulate a full or read-only store.
	SetErr error
}

// NewInMemory creates an empty in-memory medium.
func NewInMemory() *InMemory {
	return &InMemory{
		data: make(map[string]string),
	}
}

// Get retrieves the value stored under key.
func (m *InMemory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

// Set stores value under key.
func (m *InMemory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = value
	return nil
}

// Remove deletes key.
func (m *InMemory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in no particular order.
func (m *InMemory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// Close is a no-op for the in-memory implementation.
func (m *InMemory) Close() error {
	return nil
}
