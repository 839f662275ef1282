package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"aftercollage_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc is a function that returns a unique key for rate limiting (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
	// Name prefixes Redis keys so limiters sharing a server do not collide
	Name string
	// Redis shares counters between instances; nil keeps them in memory
	Redis *redis.Client
}

// rateLimitEntry tracks request count and window expiration
type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// RateLimiter is a fixed-window per-endpoint rate limiter
type RateLimiter struct {
	config RateLimitConfig
	store  map[string]*rateLimitEntry
	mu     sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}
	if config.Name == "" {
		config.Name = "default"
	}

	rl := &RateLimiter{
		config: config,
		store:  make(map[string]*rateLimitEntry),
	}

	go rl.cleanup()

	return rl
}

// NewLoginRateLimiter limits login attempts to 5 per minute per IP
func NewLoginRateLimiter(rdb *redis.Client) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: 5,
		Window:   1 * time.Minute,
		Message:  "Too many login attempts. Please wait a minute before trying again.",
		Name:     "login",
		Redis:    rdb,
	})
}

// NewPublicFormRateLimiter limits landing page form submissions to 10 per minute per IP
func NewPublicFormRateLimiter(rdb *redis.Client) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: 10,
		Window:   1 * time.Minute,
		Message:  "Too many form submissions. Please wait before trying again.",
		Name:     "forms",
		Redis:    rdb,
	})
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl.allow(c.Request().Context(), rl.config.KeyFunc(c)) {
				return next(c)
			}

			c.Response().Header().Set("Retry-After", strconv.Itoa(int(rl.config.Window.Seconds())))
			// htmx form posts to /api/ read JSON errors too
			switch {
			case wantsJSON(c):
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"notification": services.Failure(rl.config.Message),
				})
			case c.Request().Header.Get("HX-Request") == "true":
				return c.HTML(http.StatusTooManyRequests, `<div class="toast toast-error" role="alert">`+rl.config.Message+`</div>`)
			}
			return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
		}
	}
}

// allow counts one request for key. A Redis failure falls back to the in-memory window.
func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	if rl.config.Redis != nil {
		if count, err := rl.redisHit(ctx, key); err == nil {
			return count <= int64(rl.config.Requests)
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, exists := rl.store[key]
	if !exists || now.After(entry.expiresAt) {
		rl.store[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(rl.config.Window)}
		return true
	}
	if entry.count >= rl.config.Requests {
		return false
	}
	entry.count++
	return true
}

func (rl *RateLimiter) redisHit(ctx context.Context, key string) (int64, error) {
	redisKey := "ratelimit:" + rl.config.Name + ":" + key
	pipe := rl.config.Redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// cleanup removes expired entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, entry := range rl.store {
			if now.After(entry.expiresAt) {
				delete(rl.store, key)
			}
		}
		rl.mu.Unlock()
	}
}

// wantsJSON reports whether the caller reads JSON rather than pages
func wantsJSON(c echo.Context) bool {
	req := c.Request()
	return strings.HasPrefix(req.URL.Path, "/api/") ||
		strings.HasPrefix(c.Path(), "/admin/api") ||
		strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
