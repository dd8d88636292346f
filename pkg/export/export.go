// Package export writes bulk query results as JSON lines to a local file or a
// Cloud Storage object.
package export

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

const gcsScheme = "gs://"

var (
	// ErrInvalidDestination is returned for an empty or malformed destination.
	ErrInvalidDestination = errors.New("invalid export destination")
	// ErrGCSUnavailable is returned for a gs:// destination when no GCS client is configured.
	ErrGCSUnavailable = errors.New("no GCS client configured")
)

// Opener resolves export destinations into writable sinks.
type Opener struct {
	gcs    GCSClient
	logger zerolog.Logger
}

// NewOpener returns an Opener. gcs may be nil, in which case only local
// destinations can be opened.
func NewOpener(gcs GCSClient, logger zerolog.Logger) *Opener {
	return &Opener{
		gcs:    gcs,
		logger: logger.With().Str("component", "ExportOpener").Logger(),
	}
}

// Sink is an open export destination. Close must be called to flush the
// stream and, for Cloud Storage, to commit the object. Abort discards
// whatever was written instead.
type Sink struct {
	name       string
	underlying io.WriteCloser
	gz         *gzip.Writer
	out        io.Writer
	// discard removes the partial result after the writer is closed.
	discard func() error
	// release frees the writer's context once the sink is finished.
	release context.CancelFunc
	// cancel stops an upload before Close so nothing is committed.
	cancel   context.CancelFunc
	finished bool
}

// Name is the resolved destination, including any generated file name.
func (s *Sink) Name() string { return s.name }

func (s *Sink) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Close flushes compression and closes the underlying writer. The first
// error wins; the underlying writer is always closed. Close after Abort is a
// no-op.
func (s *Sink) Close() error {
	if s.finished {
		return nil
	}
	s.finished = true
	defer s.release()

	var gzErr error
	if s.gz != nil {
		gzErr = s.gz.Close()
	}
	closeErr := s.underlying.Close()
	if gzErr != nil {
		return fmt.Errorf("failed to flush compressed export %s: %w", s.name, gzErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close export %s: %w", s.name, closeErr)
	}
	return nil
}

// Abort closes the sink without committing it: a local file is removed and a
// Cloud Storage upload is cancelled. Abort after Close is a no-op.
func (s *Sink) Abort() error {
	if s.finished {
		return nil
	}
	s.finished = true
	defer s.release()

	s.cancel()
	// The close error of a cancelled upload is expected.
	_ = s.underlying.Close()
	if err := s.discard(); err != nil {
		return fmt.Errorf("failed to discard export %s: %w", s.name, err)
	}
	return nil
}

// Open prepares destination for writing.
//
// "gs://bucket/object" writes a Cloud Storage object; anything else is a local
// path whose parent directories are created. A destination ending in "/" gets
// a generated "<uuid>.jsonl" name. A ".gz" suffix compresses the stream.
func (o *Opener) Open(ctx context.Context, destination string) (*Sink, error) {
	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidDestination)
	}
	if strings.HasPrefix(destination, gcsScheme) {
		return o.openGCS(ctx, destination)
	}
	return o.openFile(destination)
}

func (o *Opener) openGCS(ctx context.Context, destination string) (*Sink, error) {
	if o.gcs == nil {
		return nil, ErrGCSUnavailable
	}
	bucket, object, _ := strings.Cut(strings.TrimPrefix(destination, gcsScheme), "/")
	if bucket == "" {
		return nil, fmt.Errorf("%w: missing bucket in %q", ErrInvalidDestination, destination)
	}
	if object == "" || strings.HasSuffix(object, "/") {
		object = path.Join(object, generatedName())
	}
	contentType := "application/x-ndjson"
	if isCompressed(object) {
		contentType = "application/gzip"
	}
	// The writer commits on Close unless its context was cancelled first.
	writerCtx, cancel := context.WithCancel(ctx)
	w := o.gcs.Bucket(bucket).Object(object).NewWriter(writerCtx, contentType)
	name := gcsScheme + bucket + "/" + object
	o.logger.Info().Str("destination", name).Msg("Opened GCS export.")
	s := newSink(name, w)
	s.cancel = cancel
	s.release = cancel
	return s, nil
}

func (o *Opener) openFile(destination string) (*Sink, error) {
	name := destination
	if strings.HasSuffix(destination, "/") || strings.HasSuffix(destination, string(filepath.Separator)) {
		name = filepath.Join(destination, generatedName())
	} else if info, err := os.Stat(destination); err == nil && info.IsDir() {
		name = filepath.Join(destination, generatedName())
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory for %s: %w", name, err)
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file %s: %w", name, err)
	}
	o.logger.Info().Str("destination", name).Msg("Opened file export.")
	s := newSink(name, f)
	s.discard = func() error {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return s, nil
}

func newSink(name string, w io.WriteCloser) *Sink {
	s := &Sink{
		name:       name,
		underlying: w,
		out:        w,
		discard:    func() error { return nil },
		release:    func() {},
		cancel:     func() {},
	}
	if isCompressed(name) {
		s.gz = gzip.NewWriter(w)
		s.out = s.gz
	}
	return s
}

func generatedName() string {
	return uuid.New().String() + ".jsonl"
}

func isCompressed(name string) bool {
	return strings.HasSuffix(name, ".gz")
}

// WriteRows encodes rows from next as JSON lines into w until next returns
// iterator.Done. It returns the number of rows written.
func WriteRows[T any](ctx context.Context, w io.Writer, next func(*T) error) (int, error) {
	enc := json.NewEncoder(w)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		var row T
		err := next(&row)
		if errors.Is(err, iterator.Done) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read row %d: %w", count, err)
		}
		if err := enc.Encode(&row); err != nil {
			return count, fmt.Errorf("json encoding failed for row %d: %w", count, err)
		}
		count++
	}
}
