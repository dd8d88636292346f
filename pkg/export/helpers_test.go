package export_test

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/illmade-knight/go-querycache/pkg/export"
)

// mockGCSWriter buffers an object in memory. Like storage.Writer, it only
// commits on Close when its context has not been cancelled.
type mockGCSWriter struct {
	ctx       context.Context
	buf       bytes.Buffer
	closed    bool
	committed bool
	closeErr  error
}

func (m *mockGCSWriter) Write(p []byte) (int, error) {
	if m.closed {
		return 0, errors.New("write on closed writer")
	}
	return m.buf.Write(p)
}

func (m *mockGCSWriter) Close() error {
	if m.closed {
		return errors.New("already closed")
	}
	m.closed = true
	if m.ctx != nil && m.ctx.Err() != nil {
		return m.ctx.Err()
	}
	if m.closeErr != nil {
		return m.closeErr
	}
	m.committed = true
	return nil
}

type mockGCSObject struct {
	writer      *mockGCSWriter
	contentType string
}

func (m *mockGCSObject) NewWriter(ctx context.Context, contentType string) export.GCSWriter {
	m.contentType = contentType
	if m.writer == nil {
		m.writer = &mockGCSWriter{}
	}
	m.writer.ctx = ctx
	return m.writer
}

type mockGCSBucket struct {
	mu      sync.Mutex
	objects map[string]*mockGCSObject
}

func (m *mockGCSBucket) Object(name string) export.GCSObjectHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string]*mockGCSObject)
	}
	if _, ok := m.objects[name]; !ok {
		m.objects[name] = &mockGCSObject{}
	}
	return m.objects[name]
}

// mockGCSClient records the buckets it was asked for.
type mockGCSClient struct {
	mu      sync.Mutex
	buckets map[string]*mockGCSBucket
}

func newMockGCSClient() *mockGCSClient {
	return &mockGCSClient{buckets: make(map[string]*mockGCSBucket)}
}

func (m *mockGCSClient) Bucket(name string) export.GCSBucketHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; !ok {
		m.buckets[name] = &mockGCSBucket{}
	}
	return m.buckets[name]
}

// sliceRows returns a next function over rows in the shape BigQuery iterators use.
func sliceRows[T any](rows []T) func(*T) error {
	i := 0
	return func(dst *T) error {
		if i >= len(rows) {
			return iteratorDone
		}
		*dst = rows[i]
		i++
		return nil
	}
}
