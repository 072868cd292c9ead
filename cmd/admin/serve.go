package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"go-gin-auth-backend/internal/core/config"
	"go-gin-auth-backend/internal/core/server"
	"go-gin-auth-backend/internal/service"
	"go-gin-auth-backend/internal/transport/http/router"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the admin HTTP API (GET/DELETE /admin/v1/users) on the admin listener",
		Action: func(c *cli.Context) error {
			env, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer env.Close()
			cfg, log := env.Config, env.Log
			if cfg.App.Admin.Key == "" {
				return errors.New("app.admin.key (ADMIN_KEY) must be set to serve the admin API")
			}
			if cfg.App.Env != config.EnvDevelopment {
				gin.SetMode(gin.ReleaseMode)
			}

			store, err := env.OpenStore(c.Context)
			if err != nil {
				return err
			}
			r := router.NewAdminEngine(router.AdminDeps{
				Logger: log,
				Config: cfg,
				Users:  service.NewUserService(store),
			})

			addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
			srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

			host4human := cfg.App.Admin.Host
			if host4human == "" || host4human == "0.0.0.0" {
				host4human = "127.0.0.1"
			}
			baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
			log.Info("admin api starting",
				zap.String("addr", addr),
				zap.String("health", baseURL+"/health"),
				zap.String("admin_v1", baseURL+"/admin/v1"),
			)
			if err := env.Serve(c.Context, srv); err != nil {
				return err
			}
			log.Info("admin api stopped gracefully")
			return nil
		},
	}
}
