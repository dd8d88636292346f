package syncstatus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/illmade-knight/go-querycache/pkg/cache"
	"github.com/rs/zerolog"
)

// SyncEnabledKey is the persisted key of the sync toggle.
const SyncEnabledKey = "sync.enabled"

// TrackerConfig configures a Tracker. Zero values select the defaults.
type TrackerConfig struct {
	Classifier Classifier
	Now        func() time.Time
}

// Tracker keeps the latest status entry and the persisted sync toggle, and
// notifies subscribers whenever the indicator may have changed.
type Tracker struct {
	enabled  *cache.PersistentValue[bool]
	classify Classifier
	now      func() time.Time
	logger   zerolog.Logger

	// changeMu orders every change together with its notification, so the
	// last indicator a subscriber receives is always the current one.
	changeMu sync.Mutex
	mu       sync.RWMutex
	latest   *Entry
	nextID   int
	watchers []watcher
}

type watcher struct {
	id int
	fn func(Indicator)
}

// NewTracker opens the sync toggle through r. The toggle defaults to enabled.
func NewTracker(ctx context.Context, r *cache.Registry, cfg TrackerConfig, logger zerolog.Logger) (*Tracker, error) {
	if r == nil {
		return nil, errors.New("registry cannot be nil")
	}
	enabled, err := cache.Open[bool](ctx, r, SyncEnabledKey, true, cache.JSONCodec[bool]{})
	if err != nil {
		return nil, err
	}
	t := &Tracker{
		enabled:  enabled,
		classify: cfg.Classifier,
		now:      cfg.Now,
		logger:   logger.With().Str("component", "SyncStatusTracker").Logger(),
	}
	if t.classify == nil {
		t.classify = DefaultClassifier
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

// RecordStatus records message with a level inferred by the classifier.
func (t *Tracker) RecordStatus(message string) {
	t.record(message, t.classify(message))
}

// RecordStatusLevel records message with an explicit level.
func (t *Tracker) RecordStatusLevel(message string, level Level) {
	t.record(message, level)
}

// RecordError records message as an error whatever its wording.
func (t *Tracker) RecordError(message string) {
	t.record(message, LevelError)
}

func (t *Tracker) record(message string, level Level) {
	t.changeMu.Lock()
	defer t.changeMu.Unlock()

	entry := &Entry{Message: message, RecordedAt: t.now(), Level: level}
	t.mu.Lock()
	t.latest = entry
	t.mu.Unlock()

	t.logger.Debug().Str("level", string(level)).Str("message", message).Msg("Recorded sync status.")
	t.notify()
}

// Latest returns the most recent entry, if any.
func (t *Tracker) Latest() (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.latest == nil {
		return Entry{}, false
	}
	return *t.latest, true
}

// SyncEnabled reports the persisted toggle.
func (t *Tracker) SyncEnabled() bool {
	return t.enabled.Get()
}

// SetSyncEnabled persists the toggle. The indicator switches to "Sync paused"
// while disabled; recorded entries are kept. Subscribers are notified even
// when a strict registry reports the write as failed, since the in-memory
// toggle has changed.
func (t *Tracker) SetSyncEnabled(ctx context.Context, enabled bool) error {
	t.changeMu.Lock()
	defer t.changeMu.Unlock()

	t.logger.Info().Bool("enabled", enabled).Msg("Sync toggled.")
	err := t.enabled.Set(ctx, enabled)
	t.notify()
	return err
}

// Indicator is the current indicator.
func (t *Tracker) Indicator() Indicator {
	enabled := t.enabled.Get()
	t.mu.RLock()
	latest := t.latest
	t.mu.RUnlock()
	return ComputeIndicator(enabled, latest)
}

// Subscribe calls fn with the current indicator now and after every change
// made through this tracker. fn must not call back into the tracker's
// mutating methods.
func (t *Tracker) Subscribe(fn func(Indicator)) (unsubscribe func()) {
	t.changeMu.Lock()
	defer t.changeMu.Unlock()

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.watchers = append(t.watchers, watcher{id: id, fn: fn})
	t.mu.Unlock()

	fn(t.Indicator())

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, w := range t.watchers {
				if w.id == id {
					t.watchers = append(t.watchers[:i:i], t.watchers[i+1:]...)
					return
				}
			}
		})
	}
}

// notify must be called with changeMu held.
func (t *Tracker) notify() {
	t.mu.RLock()
	watchers := make([]watcher, len(t.watchers))
	copy(watchers, t.watchers)
	t.mu.RUnlock()

	if len(watchers) == 0 {
		return
	}
	ind := t.Indicator()
	for _, w := range watchers {
		w.fn(ind)
	}
}
