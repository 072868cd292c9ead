package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-auth-backend/internal/core/cache"
	resp "go-gin-auth-backend/internal/transport/http/response"
)

// Window is the state of one key after a hit was counted.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Hit(ctx context.Context, key string) (Window, error)
}

type memEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed window counter.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// DefaultWindow replaces non-positive windows.
const DefaultWindow = 15 * time.Minute

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	m := &MemoryLimiter{
		entries: make(map[string]*memEntry),
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *MemoryLimiter) Hit(_ context.Context, key string) (Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memEntry{resetAt: now.Add(m.window)}
		m.entries[key] = e
	}
	e.count++
	return Window{Count: e.count, ResetAt: e.resetAt}, nil
}

func (m *MemoryLimiter) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLimiter) sweep() {
	t := time.NewTicker(m.window)
	defer t.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-t.C:
			m.mu.Lock()
			now := m.now()
			for k, e := range m.entries {
				if !now.Before(e.resetAt) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

// RedisLimiter shares windows between instances through redis.
type RedisLimiter struct {
	c      *cache.Cache
	prefix string
	window time.Duration
}

func NewRedisLimiter(c *cache.Cache, prefix string, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{c: c, prefix: prefix, window: window}
}

func (r *RedisLimiter) Hit(ctx context.Context, key string) (Window, error) {
	n, ttl, err := r.c.IncrWindow(ctx, r.prefix+key, r.window)
	if err != nil {
		return Window{}, fmt.Errorf("redis limiter: %w", err)
	}
	return Window{Count: n, ResetAt: time.Now().Add(ttl)}, nil
}

type LimitOptions struct {
	Name    string // metrics label and log field
	Max     int64
	Message string
	Logger  *zap.Logger
}

// FixedWindow allows Max requests per client IP per window. Limiter errors
// let the request through.
func FixedWindow(lim Limiter, o LimitOptions) gin.HandlerFunc {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Message == "" {
		o.Message = resp.MessageFor(http.StatusTooManyRequests)
	}
	limit := strconv.FormatInt(o.Max, 10)
	return func(c *gin.Context) {
		w, err := lim.Hit(c.Request.Context(), o.Name+":"+c.ClientIP())
		if err != nil {
			o.Logger.Warn("rate limiter unavailable, allowing request",
				zap.String("limiter", o.Name), zap.Error(err))
			c.Next()
			return
		}

		remaining := o.Max - w.Count
		if remaining < 0 {
			remaining = 0
		}
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(w.ResetAt.Unix(), 10))

		if w.Count > o.Max {
			retry := int64(time.Until(w.ResetAt).Seconds() + 0.999)
			if retry < 0 {
				retry = 0
			}
			h.Set("Retry-After", strconv.FormatInt(retry, 10))
			rateLimited.WithLabelValues(o.Name).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, resp.Fail(http.StatusTooManyRequests, o.Message))
			return
		}
		c.Next()
	}
}

// GlobalRateLimit is one token bucket shared by every client.
func GlobalRateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		rateLimited.WithLabelValues("global_bucket").Inc()
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp.Fail(http.StatusServiceUnavailable, ""))
	}
}
