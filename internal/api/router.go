package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/networth/internal/middleware"
)

// RouterOptions tunes the per-request protections of the API group.
type RouterOptions struct {
	// RequestTimeout bounds each API request; zero leaves it unbounded.
	RequestTimeout time.Duration

	// RateLimitPerMinute is the per-IP budget for /api routes.
	RateLimitPerMinute int
}

// NewRouter creates a Gin engine with routes configured.
// It receives a Handler instance with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, Metrics, ErrorHandler).
//   - Mounts Prometheus metrics (/metrics) and Swagger docs (/swagger/*any).
//   - Configures API routes (/api) behind the rate limiter and optional timeout.
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.Metrics(),
		middleware.ErrorHandler,
	)

	// ─── Observability ────────────────────────────
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API ──────────────────────────────────────
	apiGroup := router.Group("/api", middleware.RateLimiter(opts.RateLimitPerMinute))
	if opts.RequestTimeout > 0 {
		apiGroup.Use(timeout(opts.RequestTimeout))
	}
	{
		apiGroup.GET("/networth", handler.GetNetWorth)
	}

	return router
}

// timeout attaches a deadline to the request context. The Notion client
// observes it between pages and during each call.
func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
