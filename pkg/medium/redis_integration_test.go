//go:build integration

package medium_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/illmade-knight/go-querycache/pkg/medium"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	r, err := medium.NewRedis(ctx, &medium.RedisConfig{Addr: addr}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	exerciseMedium(t, medium.WithNamespace(r, "it-"+time.Now().Format("150405.000")))

	t.Run("TTL causes key expiration", func(t *testing.T) {
		short, err := medium.NewRedis(ctx, &medium.RedisConfig{Addr: addr, TTL: 150 * time.Millisecond}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = short.Close() })

		require.NoError(t, short.Set(ctx, "ttl-key", "v"))

		// Verifying a time-based feature.
		time.Sleep(250 * time.Millisecond)

		_, ok, err := short.Get(ctx, "ttl-key")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
