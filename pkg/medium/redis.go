package medium

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL is applied to every write. Zero keeps entries forever, which is what
	// persisted cache values expect.
	TTL time.Duration
}

// Redis is a Medium backed by a Redis server. Values are stored as plain strings.
type Redis struct {
	redisClient *redis.Client
	logger      zerolog.Logger
	ttl         time.Duration
}

// NewRedis creates and connects a new Redis medium.
// It pings the Redis server to ensure connectivity before returning.
func NewRedis(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	return &Redis{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisMedium").Logger(),
		ttl:         cfg.TTL,
	}, nil
}

// Get retrieves the raw value stored under key. redis.Nil is a normal miss.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		r.logger.Error().Err(err).Str("key", key).Msg("Unexpected Redis error during get.")
		return "", false, fmt.Errorf("redis get failed for key %s: %w", key, err)
	}
	r.logger.Debug().Str("key", key).Msg("Redis medium hit.")
	return value, true, nil
}

// Set stores value under key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, value string) error {
	if err := r.redisClient.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed for key %s: %w", key, err)
	}
	return nil
}

// Remove deletes key from Redis.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del failed for key %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client connection.
func (r *Redis) Close() error {
	if r.redisClient != nil {
		r.logger.Info().Msg("Closing Redis client connection...")
		return r.redisClient.Close()
	}
	return nil
}
