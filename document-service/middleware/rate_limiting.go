package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"loresmith-backend/shared/config"
)

// RateLimit tracks request counts for a single client IP
type RateLimit struct {
	Count      int
	ResetAt    time.Time
	LastAccess time.Time
	Blocked    bool
	BlockUntil time.Time
}

// RateLimiter is a fixed-window, per-IP limiter with temporary blocking
type RateLimiter struct {
	store         map[string]*RateLimit
	mutex         sync.Mutex
	maxRequests   int
	timeWindow    time.Duration
	blockDuration time.Duration
}

// NewRateLimiter builds a limiter from the configured knobs and starts the
// background cleanup of stale entries.
func NewRateLimiter(cfg *config.Config) *RateLimiter {
	limiter := &RateLimiter{
		store:         make(map[string]*RateLimit),
		maxRequests:   cfg.RateLimitMaxRequests,
		timeWindow:    time.Duration(cfg.RateLimitTimeWindowSeconds) * time.Second,
		blockDuration: time.Duration(cfg.RateLimitBlockMinutes) * time.Minute,
	}

	go limiter.cleanup(5 * time.Minute)

	return limiter
}

// cleanup removes records not touched for 24 hours
func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		rl.mutex.Lock()
		now := time.Now()
		for key, limit := range rl.store {
			if now.Sub(limit.LastAccess) > 24*time.Hour {
				delete(rl.store, key)
			}
		}
		rl.mutex.Unlock()
	}
}

func (rl *RateLimiter) isAllowed(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	limit, exists := rl.store[key]

	if !exists {
		rl.store[key] = &RateLimit{
			Count:      1,
			ResetAt:    now.Add(rl.timeWindow),
			LastAccess: now,
		}
		return true
	}

	limit.LastAccess = now

	if limit.Blocked {
		if now.Before(limit.BlockUntil) {
			return false
		}
		limit.Blocked = false
		limit.Count = 0
		limit.ResetAt = now.Add(rl.timeWindow)
	}

	if now.After(limit.ResetAt) {
		limit.Count = 0
		limit.ResetAt = now.Add(rl.timeWindow)
	}

	limit.Count++
	if limit.Count > rl.maxRequests {
		limit.Blocked = true
		limit.BlockUntil = now.Add(rl.blockDuration)
		return false
	}

	return true
}

// Middleware rejects clients that exceed the request budget with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !rl.isAllowed(ctx.ClientIP()) {
			ctx.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"message":    "too many requests",
					"statusCode": http.StatusTooManyRequests,
				},
			})
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
