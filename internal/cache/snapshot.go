// Package cache stores computed net worth snapshots in Redis so repeated
// requests within a TTL skip the Notion walk.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/guttosm/networth/internal/domain/models"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Prometheus metrics for cache operations.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "networth_cache_hits_total",
		Help: "Snapshot cache hits",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "networth_cache_misses_total",
		Help: "Snapshot cache misses",
	})
	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "networth_cache_errors_total",
		Help: "Snapshot cache errors by operation",
	}, []string{"operation"})
)

const keyPrefix = "networth:snapshot:"

// Key builds the cache key for one database and property selection.
func Key(databaseID, amountProp, categoryProp string) string {
	return keyPrefix + databaseID + ":" + amountProp + ":" + categoryProp
}

// RedisStore keeps snapshots as JSON strings with a Redis TTL.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a store on top of an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: client}
}

// Get returns the snapshot under key, or ErrCacheMiss.
func (s *RedisStore) Get(ctx context.Context, key string) (*models.NetWorth, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var nw models.NetWorth
	if err := json.Unmarshal(data, &nw); err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if nw.Groups == nil {
		nw.Groups = map[string]float64{}
	}
	cacheHits.Inc()
	return &nw, nil
}

// Set stores nw under key for ttl.
func (s *RedisStore) Set(ctx context.Context, key string, nw *models.NetWorth, ttl time.Duration) error {
	data, err := json.Marshal(nw)
	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity; used by the readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
