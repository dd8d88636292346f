package syncstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyStatus is returned by Apply for a payload without a message.
	ErrEmptyStatus = errors.New("status payload has no message")
	// ErrFeedStopped is returned by Start after Stop or a previous Start.
	ErrFeedStopped = errors.New("sync status feed already started or stopped")
)

// FeedConfig configures the Pub/Sub subscription the sync process reports on.
type FeedConfig struct {
	SubscriptionID         string
	MaxOutstandingMessages int
	NumGoroutines          int
	StopTimeout            time.Duration
}

// NewFeedDefaults returns a FeedConfig for subID. Status messages are tiny
// and ordering matters to the indicator, so a single receive goroutine is used.
func NewFeedDefaults(subID string) *FeedConfig {
	return &FeedConfig{
		SubscriptionID:         subID,
		MaxOutstandingMessages: 10,
		NumGoroutines:          1,
		StopTimeout:            30 * time.Second,
	}
}

// statusPayload is the JSON form of a status message. Level is optional.
type statusPayload struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// Feed records the status messages arriving on a Pub/Sub subscription into a
// Tracker.
type Feed struct {
	subscription *pubsub.Subscription
	tracker      *Tracker
	stopTimeout  time.Duration
	logger       zerolog.Logger

	mu                 sync.Mutex
	started, stopped   bool
	stopOnce           sync.Once
	cancelSubscription context.CancelFunc
	doneChan           chan struct{}
}

// NewFeed verifies that the subscription exists and prepares a Feed.
func NewFeed(ctx context.Context, cfg *FeedConfig, client *pubsub.Client, tracker *Tracker, logger zerolog.Logger) (*Feed, error) {
	if cfg == nil {
		return nil, errors.New("feed config cannot be nil")
	}
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil")
	}
	if tracker == nil {
		return nil, errors.New("tracker cannot be nil")
	}
	sub := client.Subscription(cfg.SubscriptionID)

	existsCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	exists, err := sub.Exists(existsCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription %s: %w", cfg.SubscriptionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("subscription %s does not exist", cfg.SubscriptionID)
	}

	if cfg.MaxOutstandingMessages > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	}
	if cfg.NumGoroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = cfg.NumGoroutines
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}

	return &Feed{
		subscription: sub,
		tracker:      tracker,
		stopTimeout:  stopTimeout,
		logger:       logger.With().Str("component", "SyncStatusFeed").Str("subscription_id", cfg.SubscriptionID).Logger(),
		doneChan:     make(chan struct{}),
	}, nil
}

// Apply records a single payload. JSON payloads may carry an explicit level;
// anything that is not JSON is treated as the message text itself.
func (f *Feed) Apply(data []byte) error {
	var p statusPayload
	if err := json.Unmarshal(data, &p); err != nil {
		p = statusPayload{Message: string(data)}
	}
	p.Message = strings.TrimSpace(p.Message)
	if p.Message == "" {
		return ErrEmptyStatus
	}
	if p.Level == "" {
		f.tracker.RecordStatus(p.Message)
		return nil
	}
	level, ok := ParseLevel(p.Level)
	if !ok {
		f.logger.Warn().Str("level", p.Level).Msg("Unknown status level; inferring from message.")
		f.tracker.RecordStatus(p.Message)
		return nil
	}
	f.tracker.RecordStatusLevel(p.Message, level)
	return nil
}

// Start begins receiving in the background until ctx ends or Stop is called.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started || f.stopped {
		return ErrFeedStopped
	}
	f.started = true

	receiveCtx, cancel := context.WithCancel(ctx)
	f.cancelSubscription = cancel
	go func() {
		defer close(f.doneChan)
		f.logger.Info().Msg("Sync status feed started.")
		err := f.subscription.Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
			if err := f.Apply(msg.Data); err != nil {
				f.logger.Warn().Err(err).Str("msg_id", msg.ID).Msg("Skipping status message.")
			}
			// Unusable messages are acked too: redelivery would not fix them.
			msg.Ack()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			f.logger.Error().Err(err).Msg("Sync status feed stopped with error.")
			return
		}
		f.logger.Info().Msg("Sync status feed stopped.")
	}()
	return nil
}

// Stop cancels receiving and waits for the receive loop to exit. Stopping a
// feed that was never started closes Done immediately.
func (f *Feed) Stop() error {
	var err error
	f.stopOnce.Do(func() {
		f.mu.Lock()
		f.stopped = true
		started := f.started
		f.mu.Unlock()

		if !started {
			close(f.doneChan)
			return
		}
		f.cancelSubscription()
		select {
		case <-f.doneChan:
		case <-time.After(f.stopTimeout):
			err = errors.New("timeout waiting for sync status feed to stop")
			f.logger.Error().Err(err).Msg("Stop timed out.")
		}
	})
	return err
}

// Done is closed once the receive loop has exited.
func (f *Feed) Done() <-chan struct{} { return f.doneChan }
