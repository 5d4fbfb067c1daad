package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lx-boutique/storefront-api/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// pruneEvery is how many requests pass between sweeps of idle clients
const pruneEvery = 1000

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows each client IP a burst of limit requests, refilled evenly
// over window
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	window  time.Duration
	refill  time.Duration
	calls   int
	now     func() time.Time
	message string
}

// NewRateLimiter creates a limiter allowing limit requests per window per IP.
// message is returned to clients that exceed it.
func NewRateLimiter(limit int, window time.Duration, message string) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
		refill:  window / time.Duration(limit),
		now:     time.Now,
		message: message,
	}
}

// Allow reports whether key may make another request now
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%pruneEvery == 0 {
		l.prune(now)
	}

	entry, ok := l.clients[key]
	if !ok {
		entry = &client{limiter: rate.NewLimiter(rate.Every(l.refill), l.limit)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// prune drops clients idle for a full window; their buckets would be full again anyway
func (l *RateLimiter) prune(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.window {
			delete(l.clients, key)
		}
	}
}

// Middleware rejects requests over the limit with 429
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		logger.FromContext(c).Warn("Rate limit exceeded",
			zap.String("ip", c.ClientIP()),
			zap.String("path", c.FullPath()))

		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(l.refill.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RATE_LIMITED",
				"message": l.message,
			},
		})
		c.Abort()
	}
}
