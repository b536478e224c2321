// Package app provides the application lifecycle for the prerender service.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/quillpress/prerender/internal/api"
	"github.com/quillpress/prerender/internal/cache"
	"github.com/quillpress/prerender/internal/config"
	"github.com/quillpress/prerender/internal/logger"
	"github.com/quillpress/prerender/internal/metrics"
	"github.com/quillpress/prerender/internal/resolver"
	"github.com/quillpress/prerender/internal/seo"
	"github.com/quillpress/prerender/internal/upstream"
)

const (
	// DefaultShutdownTimeout bounds graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second

	redisPingTimeout = 2 * time.Second
)

// App wires the prerender service together.
type App struct {
	config      *config.Config
	logger      logger.Logger
	redisClient redis.UniversalClient
	cache       *cache.Cache
	httpServer  *http.Server
	version     string
}

// Options contains configuration for creating a new App.
type Options struct {
	ConfigPath string
	Version    string
}

// New creates an App with all dependencies initialized.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "prerender"),
		logger.String("version", opts.Version),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.New(registry)

	store, redisClient, err := buildStore(cfg, appLogger)
	if err != nil {
		_ = appLogger.Sync()
		return nil, err
	}

	requestCache := cache.New(store, cache.Options{
		Enabled: cfg.Render.CachingEnabled,
		Logger:  appLogger,
		Metrics: pipelineMetrics,
	})

	backend := upstream.NewClient(&cfg.Upstream, appLogger)
	pageResolver := resolver.New(backend, requestCache, cfg.Render, appLogger, pipelineMetrics)
	emitter := seo.NewEmitter(&cfg.Site)

	router := api.NewRouter(pageResolver, emitter, requestCache, cfg, appLogger, registry)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		config:      cfg,
		logger:      appLogger,
		redisClient: redisClient,
		cache:       requestCache,
		httpServer:  httpServer,
		version:     opts.Version,
	}, nil
}

// buildStore picks the cache backing store: Redis when configured, the
// in-process store otherwise.
func buildStore(cfg *config.Config, log logger.Logger) (cache.Store, redis.UniversalClient, error) {
	if cfg.Redis.URL == "" {
		log.Info("Using in-process render cache")
		return cache.NewMemoryStore(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		return nil, nil, fmt.Errorf("connect to Redis: %w", pingErr)
	}

	log.Info("Using Redis render cache", logger.String("redis_url", cfg.Redis.URL))
	return cache.NewRedisStore(client), client, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.logger.Info("Starting prerender service",
			logger.String("address", a.config.Server.Address),
			logger.Bool("caching_enabled", a.config.Render.CachingEnabled),
			logger.Bool("debug", a.config.Debug),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	return a.waitForShutdown(ctx, serverErr)
}

// waitForShutdown blocks on a signal, context cancellation, or server error,
// then shuts the HTTP server down gracefully.
func (a *App) waitForShutdown(ctx context.Context, serverErr chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownErr error

	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully",
			logger.String("signal", sig.String()),
		)
	case <-ctx.Done():
		a.logger.Info("Shutting down, context cancelled")
	case err := <-serverErr:
		a.logger.Error("Server error", logger.Error(err))
		shutdownErr = err
	}

	a.shutdownHTTPServer()
	a.logger.Info("Service stopped")
	return shutdownErr
}

func (a *App) shutdownHTTPServer() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

// FlushCache clears the whole render cache.
func (a *App) FlushCache(ctx context.Context) error {
	return a.cache.Clear(ctx)
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Close cleans up resources.
func (a *App) Close() error {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	return a.logger.Sync()
}
