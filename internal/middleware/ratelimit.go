package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/networth/internal/domain/dto"
)

// client represents a rate-limited client with request count and window start.
type client struct {
	windowStart time.Time
	count       int
}

// rateLimiter is a fixed-window, per-IP counter kept in memory.
// Multi-instance deployments need a shared store instead.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	window  time.Duration
	limit   int
	now     func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &rateLimiter{
		clients: make(map[string]*client),
		window:  window,
		limit:   limit,
		now:     time.Now,
	}
}

// allow counts one request for ip and reports whether it is within the limit.
// Expired entries are swept lazily so the map does not grow without bound.
func (rl *rateLimiter) allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[ip]
	if !ok || now.Sub(cl.windowStart) > rl.window {
		if len(rl.clients) > 1024 {
			for k, v := range rl.clients {
				if now.Sub(v.windowStart) > rl.window {
					delete(rl.clients, k)
				}
			}
		}
		rl.clients[ip] = &client{windowStart: now, count: 1}
		return true
	}
	cl.count++
	return cl.count <= rl.limit
}

// RateLimiter limits the number of requests per client IP.
//
// Behavior:
//   - Allows up to limit requests per minute per client IP.
//   - Each call returns an independent limiter, so tests and routers do not share state.
//   - If the limit is exceeded, returns HTTP 429 Too Many Requests.
//
// Every /api/networth call walks the whole Notion database, so this also
// shields the upstream rate limit.
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	{"error": "rate limit exceeded"}
func RateLimiter(limit int) gin.HandlerFunc {
	return rateLimitHandler(newRateLimiter(limit, time.Minute))
}

func rateLimitHandler(rl *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse("rate limit exceeded", nil))
			return
		}
		c.Next()
	}
}
