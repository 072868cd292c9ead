package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-backend/internal/core/config"
	"go-gin-auth-backend/internal/core/server"
	"go-gin-auth-backend/internal/service"
	"go-gin-auth-backend/internal/transport/http/handler"
	httpez "go-gin-auth-backend/internal/transport/http/ez"
	mdw "go-gin-auth-backend/internal/transport/http/middleware"
	resp "go-gin-auth-backend/internal/transport/http/response"
)

type AdminDeps struct {
	Logger *zap.Logger
	Config *config.Config
	Users  *service.UserService
}

// NewAdminEngine serves /admin/v1 behind the static admin key. It is meant
// for a private listener.
func NewAdminEngine(d AdminDeps) *gin.Engine {
	l, cfg := d.Logger, d.Config

	r := server.NewRouter(l, server.Options{SkipPaths: []string{"/health"}})
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(l, cfg.IsDevelopment()),
		mdw.SecureHeaders(),
		mdw.ConcurrencyLimit(cfg.RateLimit.MaxInFlight),
		mdw.Timeout(time.Duration(cfg.RateLimit.RequestTOSec)*time.Second),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OK("ok", nil)) })

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AdminKey(cfg.App.Admin.Key))

	mods := new(Registry).Register(handler.NewAdminHandler(d.Users, httpez.Options{
		Logger:       l,
		ExposeErrors: cfg.IsDevelopment(),
	}))
	mods.MountAllAdmin(admin)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Fail(http.StatusNotFound, "Route not found"))
	})
	return r
}
