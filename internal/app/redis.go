package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/networth/config"
)

// redisPingTimeout bounds the startup connectivity check.
const redisPingTimeout = 5 * time.Second

// InitRedis opens a Redis client for the snapshot cache.
//
// Parameters:
//   - cfg (config.Config): application configuration; cfg.Cache.URL is a redis:// URL.
//
// Behavior:
//   - Parses the URL with redis.ParseURL.
//   - Immediately pings the server to validate connectivity.
//   - Returns the live client if successful.
//
// Returns:
//   - *redis.Client: a pooled client (safe for concurrent use).
//   - error: if the URL is invalid or the ping fails.
func InitRedis(cfg config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Cache.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// redisOpener is an indirection used by InitializeApp; overridden in tests to avoid real connections.
var redisOpener = InitRedis
