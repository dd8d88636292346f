package export

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// GCSClient is the slice of *storage.Client that export destinations need.
// Tests substitute an in-memory implementation.
type GCSClient interface {
	Bucket(name string) GCSBucketHandle
}

// GCSBucketHandle abstracts a *storage.BucketHandle.
type GCSBucketHandle interface {
	Object(name string) GCSObjectHandle
}

// GCSObjectHandle abstracts a *storage.ObjectHandle.
type GCSObjectHandle interface {
	// NewWriter opens a writer that creates or replaces the object on Close.
	NewWriter(ctx context.Context, contentType string) GCSWriter
}

// GCSWriter abstracts a *storage.Writer.
type GCSWriter interface {
	io.WriteCloser
}

type gcsClientAdapter struct {
	client *storage.Client
}

// NewGCSClientAdapter wraps client so it satisfies GCSClient. A nil client
// yields a nil GCSClient, which disables gs:// destinations.
func NewGCSClientAdapter(client *storage.Client) GCSClient {
	if client == nil {
		return nil
	}
	return &gcsClientAdapter{client: client}
}

func (a *gcsClientAdapter) Bucket(name string) GCSBucketHandle {
	return &gcsBucketAdapter{handle: a.client.Bucket(name)}
}

type gcsBucketAdapter struct {
	handle *storage.BucketHandle
}

func (a *gcsBucketAdapter) Object(name string) GCSObjectHandle {
	return &gcsObjectAdapter{handle: a.handle.Object(name)}
}

type gcsObjectAdapter struct {
	handle *storage.ObjectHandle
}

func (a *gcsObjectAdapter) NewWriter(ctx context.Context, contentType string) GCSWriter {
	w := a.handle.NewWriter(ctx)
	w.ContentType = contentType
	return w
}
