// Package app holds the wiring shared by the api and admin binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-auth-backend/internal/core/auth"
	"go-gin-auth-backend/internal/core/cache"
	"go-gin-auth-backend/internal/core/config"
	"go-gin-auth-backend/internal/core/database"
	"go-gin-auth-backend/internal/core/logger"
	"go-gin-auth-backend/internal/core/server"
	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/repo"
	"go-gin-auth-backend/internal/service"
	mdw "go-gin-auth-backend/internal/transport/http/middleware"
)

// Env is a validated config plus the logger built from it. Resources opened
// through Env are released by Close in reverse order.
type Env struct {
	Config  *config.Config
	Log     *zap.Logger
	closers []func()
}

// Bootstrap loads and validates the config and builds the logger. With
// tokens unset the JWT settings are not checked.
func Bootstrap(configPath string, tokens bool) (*Env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	validate := cfg.ValidateStore
	if tokens {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, err
	}
	log, flush := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.IsDevelopment(),
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.File.Enable,
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	e := &Env{Config: cfg, Log: log}
	e.onClose(flush)
	e.onClose(logger.RedirectStdLog(log, zapcore.InfoLevel))
	return e, nil
}

func (e *Env) onClose(fn func()) { e.closers = append(e.closers, fn) }

func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// OpenStore returns the user store selected by store.driver.
func (e *Env) OpenStore(ctx context.Context) (domain.UserRepository, error) {
	cfg := e.Config
	switch cfg.Store.Driver {
	case "memory":
		e.Log.Warn("using in-memory user store, data is lost on exit")
		return repo.NewMemoryStore(), nil
	case "file":
		s, err := repo.NewFileStore(repo.FileStoreOptions{
			Path:          cfg.Store.Path,
			FailOnCorrupt: cfg.Store.FailOnCorrupt,
			Logger:        e.Log,
		})
		if err != nil {
			return nil, err
		}
		e.Log.Info("user store ready", zap.String("driver", "file"), zap.String("path", s.Path()))
		return s, nil
	default:
		db, err := database.NewGorm(database.Opts{
			Driver:             cfg.Store.Driver,
			DSN:                cfg.DB.DSN,
			Username:           cfg.DB.Username,
			Password:           cfg.DB.Password,
			MaxOpenConns:       cfg.DB.MaxOpenConns,
			MaxIdleConns:       cfg.DB.MaxIdleConns,
			ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
			LogLevel:           cfg.DB.LogLevel,
		}, e.Log)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			e.onClose(func() { _ = sqlDB.Close() })
		}
		s := repo.NewGormStore(db)
		if cfg.DB.AutoMigrate {
			if err := s.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("automigrate: %w", err)
			}
			e.Log.Info("automigrate done")
		}
		e.Log.Info("user store ready", zap.String("driver", cfg.Store.Driver))
		return s, nil
	}
}

// NewLimiter returns the fixed window counter for rateLimit.backend. An
// unreachable redis is only logged since the limiter fails open.
func (e *Env) NewLimiter(ctx context.Context) mdw.Limiter {
	cfg := e.Config
	if cfg.RateLimit.Backend == "redis" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		e.onClose(func() { _ = c.Close() })
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.Ping(pctx); err != nil {
			e.Log.Warn("redis unreachable, rate limits fail open until it recovers",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		return mdw.NewRedisLimiter(c, cfg.App.Name+":rl:", cfg.RateWindow())
	}
	lim := mdw.NewMemoryLimiter(cfg.RateWindow())
	e.onClose(func() { _ = lim.Close() })
	return lim
}

func (e *Env) AuthService(users domain.UserRepository) (*service.AuthService, error) {
	cfg := e.Config
	leeway := time.Duration(cfg.JWT.LeewaySec) * time.Second
	tokens, err := auth.NewTokenService(
		&auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: cfg.AccessTTL(), Leeway: leeway},
		&auth.JWTer{Secret: []byte(cfg.JWT.RefreshSecret), Issuer: cfg.JWT.Issuer, TTL: cfg.RefreshTTL(), Leeway: leeway},
	)
	if err != nil {
		return nil, err
	}
	return service.NewAuthService(users, tokens,
		service.WithBcryptCost(cfg.JWT.BcryptCost),
		service.WithLogger(e.Log),
	)
}

// Serve runs srv until SIGINT/SIGTERM or ctx ends, then drains it.
func (e *Env) Serve(ctx context.Context, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- server.StartHTTP(srv, e.Log) }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}
	server.Shutdown(srv, 10*time.Second, e.Log)
	return nil
}
