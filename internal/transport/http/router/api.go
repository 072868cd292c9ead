package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-auth-backend/internal/core/config"
	"go-gin-auth-backend/internal/core/server"
	"go-gin-auth-backend/internal/service"
	"go-gin-auth-backend/internal/transport/http/handler"
	httpez "go-gin-auth-backend/internal/transport/http/ez"
	mdw "go-gin-auth-backend/internal/transport/http/middleware"
	resp "go-gin-auth-backend/internal/transport/http/response"
)

const Version = "1.0.0"

type APIDeps struct {
	Logger  *zap.Logger
	Config  *config.Config
	Auth    *service.AuthService
	Limiter mdw.Limiter // fixed windows of Config.RateWindow()
}

func NewAPIEngine(d APIDeps) *gin.Engine {
	l, cfg := d.Logger, d.Config
	rl := cfg.RateLimit

	r := server.NewRouter(l, server.Options{
		CORSOrigins: cfg.App.HTTP.CORSOrigins,
		SkipPaths:   []string{"/health", "/metrics"},
	})
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(l, cfg.IsDevelopment()),
		mdw.SecureHeaders(),
		mdw.Metrics(),
		mdw.GlobalRateLimit(rate.Limit(rl.GlobalRPS), rl.GlobalBurst),
		mdw.ConcurrencyLimit(rl.MaxInFlight),
		mdw.FixedWindow(d.Limiter, mdw.LimitOptions{
			Name:    "global",
			Max:     int64(rl.Max),
			Message: "Too many requests from this IP, please try again later.",
			Logger:  l,
		}),
		mdw.MaxBodyBytes(cfg.App.HTTP.MaxBodyBytes),
		mdw.Timeout(time.Duration(rl.RequestTOSec)*time.Second),
	)

	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, index()) })
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, resp.OK("ok", gin.H{"status": "up", "time": time.Now().UTC()}))
	})
	r.GET("/metrics", mdw.MetricsHandler())

	opt := httpez.Options{Logger: l, ExposeErrors: cfg.IsDevelopment()}
	authLimit := mdw.FixedWindow(d.Limiter, mdw.LimitOptions{
		Name:    "auth",
		Max:     int64(rl.AuthMax),
		Message: "Too many authentication attempts, please try again later.",
		Logger:  l,
	})
	gate := mdw.AuthJWT(d.Auth, l)

	mods := new(Registry).Register(handler.NewAuthHandler(d.Auth, opt, authLimit, gate))
	mods.MountAllAPI(r.Group("/api"))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Fail(http.StatusNotFound, "Route not found"))
	})
	return r
}

type indexOut struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func index() indexOut {
	return indexOut{
		Message: "Authentication Backend API",
		Version: Version,
		Endpoints: map[string]string{
			"POST /api/auth/register": "Register a new user",
			"POST /api/auth/login":    "Login user",
			"POST /api/auth/logout":   "Logout user",
			"GET /api/auth/me":        "Get current user info",
			"POST /api/auth/refresh":  "Refresh JWT token",
		},
	}
}
