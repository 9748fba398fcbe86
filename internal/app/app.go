package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/guttosm/networth/config"
	"github.com/guttosm/networth/internal/api"
	"github.com/guttosm/networth/internal/cache"
	"github.com/guttosm/networth/internal/notion"
	"github.com/guttosm/networth/internal/service"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Builds the NetWorthService (Notion client, optional Redis cache).
//   - Creates the HTTP handler layer to handle requests.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., the Redis client).
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp(cfg config.Config) (*gin.Engine, func(), error) {
	svc, rdb, err := buildService(cfg)
	if err != nil {
		return nil, nil, err
	}

	handler := api.NewHandler(svc)

	router := api.NewRouter(handler, api.RouterOptions{
		RequestTimeout:     cfg.Server.RequestTimeout,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})

	// Readiness only depends on Redis; without a cache the service is ready once it is up.
	var health *api.HealthHandler
	if rdb != nil {
		health = api.NewHealthHandler(cache.NewRedisStore(rdb).Ping)
	} else {
		health = api.NewHealthHandler(nil)
	}
	health.Register(router)

	return router, closer(rdb), nil
}

// NewNetWorthService builds the service alone, for one-shot report runs.
// The returned cleanup must be called when done.
func NewNetWorthService(cfg config.Config) (service.NetWorthService, func(), error) {
	svc, rdb, err := buildService(cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, closer(rdb), nil
}

func buildService(cfg config.Config) (service.NetWorthService, *redis.Client, error) {
	client, err := notion.New(notion.Config{
		Token:   cfg.Notion.Token,
		BaseURL: cfg.Notion.BaseURL,
		Version: cfg.Notion.Version,
		Timeout: cfg.Notion.Timeout,
		Retry: notion.RetryConfig{
			MaxAttempts:       cfg.Notion.MaxAttempts,
			InitialBackoff:    cfg.Notion.InitialBackoff,
			MaxBackoff:        cfg.Notion.MaxBackoff,
			BackoffMultiplier: notion.DefaultRetryConfig().BackoffMultiplier,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize notion client: %w", err)
	}

	opts := service.Options{
		DatabaseID:   cfg.Notion.DatabaseID,
		AmountProp:   cfg.Notion.AmountProp,
		CategoryProp: cfg.Notion.CategoryProp,
		Coalesce:     cfg.Server.CoalesceRequests,
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled() {
		// indirection for unit testing
		rdb, err = redisOpener(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		opts.Cache = cache.NewRedisStore(rdb)
		opts.CacheTTL = cfg.Cache.TTL
	}

	return service.NewNetWorthService(client, opts), rdb, nil
}

func closer(rdb *redis.Client) func() {
	return func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}
}
