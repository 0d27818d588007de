package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"courtbook-api/core/cache"
	"courtbook-api/core/config"
	"courtbook-api/core/constants"
	"courtbook-api/core/controller"
	"courtbook-api/core/database"
	"courtbook-api/core/llm"
	"courtbook-api/core/logger"
	"courtbook-api/core/middleware"
	"courtbook-api/modules/assistant"
	"courtbook-api/modules/booking"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the external handles the HTTP layer is built on.
type Dependencies struct {
	DB    database.IDatabase
	Cache cache.Cache
	Model llm.Client
}

// NewEcho builds the router with every route registered.
func NewEcho(cfg *config.Config, deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	mw := middleware.NewMiddleware()
	e.Use(mw.Recover(), mw.RequestID(), mw.AccessLog())

	base := controller.NewBaseController()
	e.GET("/healthz", func(c echo.Context) error {
		return base.SuccessResponse(c, map[string]string{"status": "ok"}, "healthy")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	repo := booking.Init(deps.DB, deps.Cache, cfg.Redis.CourtTTL)
	v1 := e.Group("/api/v1")
	assistant.Init(v1, repo, deps.Model, cfg.Assistant)

	return e
}

// Run connects the backing services, serves HTTP and shuts down gracefully
// on SIGINT/SIGTERM.
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := Dependencies{DB: db}

	if rdb := connectRedis(ctx, cfg.Redis); rdb != nil {
		defer rdb.Close()
		deps.Cache = cache.NewRedisCache(rdb)
	}

	model, err := llm.NewOpenAIClient(cfg.OpenAI)
	switch {
	case stderrors.Is(err, llm.ErrNotConfigured):
		logger.Warn("Server:Run:ModelDisabled", "reason", err)
	case err != nil:
		return fmt.Errorf("init model client: %w", err)
	default:
		deps.Model = model
		logger.Info("Server:Run:ModelReady", "model", model.ModelName())
	}

	e := NewEcho(cfg, deps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server:Run:Listening", "address", cfg.Server.Address())
		if err := e.Start(cfg.Server.Address()); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Server:Run:ShuttingDown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// connectRedis returns nil when no address is configured or the server does
// not answer; the court catalogue is then read straight from Postgres.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	rdb := cache.NewRedisClient(cfg)
	if rdb == nil {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()
	if err := cache.Ping(pingCtx, rdb); err != nil {
		logger.Warn("Server:Run:RedisUnavailable", "address", cfg.Address, "error", err)
		_ = rdb.Close()
		return nil
	}
	logger.Info("Server:Run:RedisReady", "address", cfg.Address)
	return rdb
}
