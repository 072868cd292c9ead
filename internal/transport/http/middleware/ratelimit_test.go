package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"

	"go-gin-auth-backend/internal/core/cache"
)

func limitedEngine(lim Limiter, max int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", FixedWindow(lim, LimitOptions{
		Name:    "auth",
		Max:     max,
		Message: "Too many authentication attempts, please try again later.",
	}), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r http.Handler, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":40000"
	r.ServeHTTP(w, req)
	return w
}

func TestFixedWindow_SixthRequestRejected(t *testing.T) {
	lim := NewMemoryLimiter(15 * time.Minute)
	defer lim.Close()
	r := limitedEngine(lim, 5)

	for i := 1; i <= 5; i++ {
		w := hit(r, "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		require.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, strconv.Itoa(5-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := hit(r, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, w.Header().Get("Retry-After"))
	require.JSONEq(t,
		`{"success":false,"message":"Too many authentication attempts, please try again later."}`,
		w.Body.String())

	require.Equal(t, http.StatusOK, hit(r, "10.0.0.2").Code, "other clients keep their own window")
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	lim := NewMemoryLimiter(time.Minute)
	defer lim.Close()
	now := time.Unix(1_700_000_000, 0)
	lim.now = func() time.Time { return now }

	ctx := context.Background()
	w, err := lim.Hit(ctx, "k")
	require.NoError(t, err)
	require.EqualValues(t, 1, w.Count)
	require.Equal(t, now.Add(time.Minute), w.ResetAt)

	w, _ = lim.Hit(ctx, "k")
	require.EqualValues(t, 2, w.Count)

	now = now.Add(time.Minute)
	w, _ = lim.Hit(ctx, "k")
	require.EqualValues(t, 1, w.Count)
	require.NoError(t, lim.Close())
	require.NoError(t, lim.Close())
}

func TestMemoryLimiter_ZeroWindowUsesDefault(t *testing.T) {
	lim := NewMemoryLimiter(0)
	defer lim.Close()

	before := time.Now()
	w, err := lim.Hit(context.Background(), "k")
	require.NoError(t, err)
	require.EqualValues(t, 1, w.Count)
	require.False(t, w.ResetAt.Before(before.Add(DefaultWindow)))
}

type brokenLimiter struct{}

func (brokenLimiter) Hit(context.Context, string) (Window, error) {
	return Window{}, errors.New("connection refused")
}

func TestFixedWindow_FailsOpen(t *testing.T) {
	r := limitedEngine(brokenLimiter{}, 1)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	}
}

func TestRedisLimiter_ErrorSurfaces(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer rdb.Close()
	lim := NewRedisLimiter(&cache.Cache{RDB: rdb}, "rl:", time.Minute)

	_, err := lim.Hit(context.Background(), "10.0.0.1")
	require.Error(t, err)

	// and the middleware lets traffic through
	require.Equal(t, http.StatusOK, hit(limitedEngine(lim, 1), "10.0.0.1").Code)
}

func TestGlobalRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GlobalRateLimit(0, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		apitest.New().Handler(r).Get("/").Expect(t).Status(http.StatusOK).End()
	}
	apitest.New().Handler(r).
		Get("/").
		Expect(t).
		Status(http.StatusServiceUnavailable).
		Assert(jsonpath.Equal(`$.success`, false)).
		End()
}
