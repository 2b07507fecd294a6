package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/cms-admin-backend/internal/config"
	"github.com/sandeepkv93/cms-admin-backend/internal/health"
	"github.com/sandeepkv93/cms-admin-backend/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		DB:                           db,
		Redis:                        redisClient,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
	}
}

// Run serves HTTP until ctx is done or the listener fails, then shuts every
// dependency down.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", ln.Addr().String(), "config_store", a.Config.ConfigStore)
		serveErr <- a.Server.Serve(ln)
	}()

	var err error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown requested")
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}
	return errors.Join(err, a.Shutdown())
}

// Shutdown drains HTTP first, then flushes telemetry, then closes redis and
// the database. Each phase gets its own slice of ShutdownTimeout.
func (a *App) Shutdown() error {
	total, cancel := context.WithTimeout(context.Background(), orDefault(a.ShutdownTimeout, 20*time.Second))
	defer cancel()

	var errs []error
	httpCtx, httpCancel := context.WithTimeout(total, orDefault(a.ShutdownHTTPDrainTimeout, 10*time.Second))
	if err := a.Server.Shutdown(httpCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	httpCancel()

	if a.Observability != nil {
		obsCtx, obsCancel := context.WithTimeout(total, orDefault(a.ShutdownObservabilityTimeout, 8*time.Second))
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
		}
		obsCancel()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	for _, err := range errs {
		a.Logger.Error("shutdown step failed", "error", err)
	}
	return errors.Join(errs...)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
