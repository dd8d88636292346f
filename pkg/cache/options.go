package cache

import "context"

// ErrorReporter receives fetch failures for diagnostics. It is fire-and-forget.
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

// Notifier surfaces a short, user-facing message (a toast, a status line).
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(ctx context.Context, err error)

func (f ErrorReporterFunc) Report(ctx context.Context, err error) { f(ctx, err) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

type settings struct {
	strict   bool
	reporter ErrorReporter
	notifier Notifier
}

// Option configures a persisted value or one of the caches built on it.
type Option func(*settings)

// WithStrictPersistence makes writes return medium and marshal failures
// instead of logging and swallowing them.
func WithStrictPersistence() Option {
	return func(s *settings) { s.strict = true }
}

// WithErrorReporter sets the sink FetchableValue reports fetch failures to.
func WithErrorReporter(r ErrorReporter) Option {
	return func(s *settings) { s.reporter = r }
}

// WithNotifier sets the user-facing sink FetchableValue notifies on fetch failure.
func WithNotifier(n Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

func applyOptions(base settings, opts []Option) settings {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}
