package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment.
type Config struct {
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort        string        `env:"HTTP_PORT" envDefault:":8080"`
	ProjectID       string        `env:"PROJECT_ID"`
	CredentialsFile string        `env:"CREDENTIALS_FILE"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Medium    string `env:"CACHE_MEDIUM" envDefault:"memory"`
	Namespace string `env:"CACHE_NAMESPACE" envDefault:"querycache"`
	Strict    bool   `env:"CACHE_STRICT_PERSISTENCE" envDefault:"false"`

	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/querycache"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	FirestoreCollection string `env:"FIRESTORE_COLLECTION" envDefault:"querycache"`

	// StatusSubscription enables the Pub/Sub status feed when set.
	StatusSubscription string `env:"STATUS_SUBSCRIPTION"`
	StrictClassifier   bool   `env:"STATUS_WORD_CLASSIFIER" envDefault:"false"`
}

var validMedia = map[string]bool{"memory": true, "badger": true, "redis": true, "firestore": true}

// LoadConfig parses and validates the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if !validMedia[cfg.Medium] {
		return nil, fmt.Errorf("unknown CACHE_MEDIUM %q", cfg.Medium)
	}
	if (cfg.Medium == "firestore" || cfg.StatusSubscription != "") && cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID is required for medium %q and the status feed", cfg.Medium)
	}
	return cfg, nil
}
