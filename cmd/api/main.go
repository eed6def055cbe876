package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shuff57/wiSHlist-sub000/internal/api"
	"github.com/shuff57/wiSHlist-sub000/internal/cache"
	"github.com/shuff57/wiSHlist-sub000/internal/config"
	"github.com/shuff57/wiSHlist-sub000/internal/extract"
	"github.com/shuff57/wiSHlist-sub000/internal/fetcher"
	"github.com/shuff57/wiSHlist-sub000/internal/ratelimit"
	"github.com/shuff57/wiSHlist-sub000/internal/resolver"
	"github.com/shuff57/wiSHlist-sub000/internal/robots"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to resolver configuration")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiterCfg := ratelimit.Config{
		Window:      cfg.RateLimit.Window.Duration,
		MaxRequests: cfg.RateLimit.MaxRequests,
	}
	var limiter ratelimit.Store
	if redisLimiter, err := ratelimit.NewRedisStoreFromEnv(limiterCfg); err != nil {
		logger.Error("redis rate limit store unavailable, using in-memory limiter", "error", err)
		limiter = ratelimit.NewMemoryStore(limiterCfg)
	} else if redisLimiter != nil {
		limiter = redisLimiter
	} else {
		limiter = ratelimit.NewMemoryStore(limiterCfg)
	}
	defer limiter.Close()

	var store cache.Store
	if cfg.DB.DSN != "" {
		sqlStore, err := cache.NewSQLStore(cfg.DB, cfg.Cache.TTL.Duration)
		if err != nil {
			log.Fatalf("failed to initialise cache store: %v", err)
		}
		store = sqlStore
	} else {
		logger.Warn("no database configured, cached metadata will not survive restarts")
		store = cache.NewMemoryStore(cfg.Cache.TTL.Duration)
	}
	defer store.Close()

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		ProxyURL:           cfg.Proxy.URL(),
		UserAgent:          cfg.Fetch.UserAgent,
		Timeout:            cfg.Fetch.Timeout.Duration,
		Retries:            cfg.Fetch.Retries,
		MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
		InsecureSkipVerify: cfg.Proxy.InsecureSkipVerify,
		PerHost: fetcher.HostRateSettings{
			Requests: cfg.Fetch.PerHost.Requests,
			Window:   cfg.Fetch.PerHost.Window.Duration,
		},
	})
	if err != nil {
		log.Fatalf("failed to initialise fetcher: %v", err)
	}

	var renderer fetcher.Renderer
	if cfg.Rendering.Enabled {
		renderer = fetcher.NewChromedpRenderer(fetcher.RenderOptions{
			Timeout:            cfg.Rendering.Timeout.Duration,
			CaptureDelay:       cfg.Rendering.CaptureDelay.Duration,
			UserAgent:          cfg.Fetch.UserAgent,
			ProxyURL:           cfg.Proxy.URL(),
			MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
			DisableHeadless:    cfg.Rendering.DisableHeadless,
			ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
		}, logger)
	}

	var gate *robots.Gate
	if cfg.Robots.Respect {
		gate = robots.NewGate(robots.Options{
			Respect:   true,
			UserAgent: cfg.Robots.UserAgent,
			CacheTTL:  cfg.Robots.CacheTTL.Duration,
			Overrides: cfg.Robots.Overrides,
		}, httpFetcher.Client())
	}

	svc := resolver.New(resolver.Options{
		Limiter:          limiter,
		Store:            store,
		Fetcher:          httpFetcher,
		Renderer:         renderer,
		Robots:           gate,
		Extractor:        extract.New(logger),
		Logger:           logger,
		SweepProbability: cfg.Cache.SweepProbability,
		SweepBatch:       cfg.Cache.SweepBatch,
	})

	server := api.NewServer(svc, store, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout := cfg.Server.ShutdownTimeout.Duration
		if shutdownTimeout <= 0 {
			shutdownTimeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
	}()

	logger.Info("resolver listening",
		"addr", cfg.Server.Addr,
		"rendering", cfg.Rendering.Enabled,
		"robots", cfg.Robots.Respect,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("resolver stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Structured {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
