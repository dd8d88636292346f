// Command syncstatusd serves the sync indicator of the query cache: it keeps
// the persisted sync toggle, records status messages from the background sync
// process and exposes both over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-querycache/pkg/cache"
	"github.com/illmade-knight/go-querycache/pkg/medium"
	"github.com/illmade-knight/go-querycache/pkg/microservice"
	"github.com/illmade-knight/go-querycache/pkg/syncstatus"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "syncstatusd").Logger()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration.")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("syncstatusd exited with error.")
	}
}

func clientOptions(cfg *Config) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

// openMedium returns the configured medium and a cleanup for any client it created.
func openMedium(ctx context.Context, cfg *Config, logger zerolog.Logger) (medium.Medium, func(), error) {
	switch cfg.Medium {
	case "badger":
		m, err := medium.NewBadger(&medium.BadgerConfig{Path: cfg.BadgerPath}, logger)
		return m, func() {}, err
	case "redis":
		m, err := medium.NewRedis(ctx, &medium.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		return m, func() {}, err
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.ProjectID, clientOptions(cfg)...)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore.NewClient: %w", err)
		}
		m, err := medium.NewFirestore(&medium.FirestoreConfig{
			ProjectID:      cfg.ProjectID,
			CollectionName: cfg.FirestoreCollection,
		}, client, logger)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return m, func() { _ = client.Close() }, nil
	default:
		return medium.NewInMemory(), func() {}, nil
	}
}

func run(ctx context.Context, cfg *Config, logger zerolog.Logger) error {
	m, cleanup, err := openMedium(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s medium: %w", cfg.Medium, err)
	}
	defer cleanup()

	registry := cache.NewRegistry(&cache.RegistryConfig{
		Namespace:         cfg.Namespace,
		StrictPersistence: cfg.Strict,
	}, m, logger)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close cache medium.")
		}
	}()

	trackerCfg := syncstatus.TrackerConfig{}
	if cfg.StrictClassifier {
		trackerCfg.Classifier = syncstatus.WordClassifier
	}
	tracker, err := syncstatus.NewTracker(ctx, registry, trackerCfg, logger)
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}

	if cfg.StatusSubscription != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID, clientOptions(cfg)...)
		if err != nil {
			return fmt.Errorf("pubsub.NewClient: %w", err)
		}
		defer psClient.Close()

		feed, err := syncstatus.NewFeed(ctx, syncstatus.NewFeedDefaults(cfg.StatusSubscription), psClient, tracker, logger)
		if err != nil {
			return err
		}
		if err := feed.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := feed.Stop(); err != nil {
				logger.Error().Err(err).Msg("Failed to stop status feed.")
			}
		}()
	}

	server := microservice.NewStatusServer(microservice.NewBaseServer(logger, cfg.HTTPPort), tracker)
	if err := server.Start(); err != nil {
		return err
	}
	logger.Info().Str("medium", cfg.Medium).Str("port", server.GetHTTPPort()).Msg("syncstatusd running.")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
