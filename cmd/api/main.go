package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-gin-auth-backend/internal/app"
	"go-gin-auth-backend/internal/core/config"
	"go-gin-auth-backend/internal/core/server"
	"go-gin-auth-backend/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	env, err := app.Bootstrap(os.Getenv("CONFIG_PATH"), true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}
	if env.Config.App.Env != config.EnvDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := run(context.Background(), env); err != nil {
		env.Log.Error("auth api stopped with error", zap.Error(err))
		env.Close()
		os.Exit(1)
	}
	env.Close()
}

// run serves until a shutdown signal. Startup failures are returned so the
// caller can flush the logger before exiting.
func run(ctx context.Context, env *app.Env) error {
	cfg, log := env.Config, env.Log

	store, err := env.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	authSvc, err := env.AuthService(store)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	r := router.NewAPIEngine(router.APIDeps{
		Logger:  log,
		Config:  cfg,
		Auth:    authSvc,
		Limiter: env.NewLimiter(ctx),
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("auth api starting",
		zap.String("env", cfg.App.Env),
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("auth", baseURL+"/api/auth"),
		zap.String("store", cfg.Store.Driver),
		zap.String("rate_limit", cfg.RateLimit.Backend),
	)

	if err := env.Serve(ctx, srv); err != nil {
		return err
	}
	log.Info("auth api stopped gracefully")
	return nil
}
