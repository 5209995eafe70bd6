package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-forecast-client/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-forecast-client/internal/adapter/kafka"
	"github.com/couchcryptid/weather-forecast-client/internal/adapter/memcache"
	redisadapter "github.com/couchcryptid/weather-forecast-client/internal/adapter/redis"
	"github.com/couchcryptid/weather-forecast-client/internal/client"
	"github.com/couchcryptid/weather-forecast-client/internal/config"
	"github.com/couchcryptid/weather-forecast-client/internal/observability"
	"github.com/couchcryptid/weather-forecast-client/internal/pipeline"
	"github.com/couchcryptid/weather-forecast-client/internal/scheduler"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Page cache: Redis when configured, otherwise in-process.
	var cache client.Cache
	var readiness []httpadapter.ReadinessChecker
	if cfg.RedisAddr != "" {
		rc, err := redisadapter.New(ctx, redisadapter.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}, logger)
		if err != nil {
			logger.Error("failed to connect page cache", "error", err)
			os.Exit(1)
		}
		defer rc.Close() //nolint:errcheck // best-effort on shutdown
		cache = rc
		readiness = append(readiness, rc)
	} else {
		cache = memcache.New(cfg.CacheSize, cfg.CacheTTL)
		logger.Info("using in-process page cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	}

	conn, err := client.Dial(cfg.WeatherServiceAddr)
	if err != nil {
		logger.Error("failed to create grpc connection", "error", err)
		os.Exit(1)
	}
	defer conn.Close() //nolint:errcheck // best-effort on shutdown

	wc := client.New(conn, logger, metrics,
		client.WithCache(cache),
		client.WithPageSize(uint32(cfg.PageSize)), //nolint:gosec // bounded by config validation
		client.WithStreamBuffer(cfg.StreamBuffer),
		client.WithBreaker(uint32(cfg.BreakerMaxFailures), cfg.BreakerTimeout), //nolint:gosec // bounded by config validation
	)

	writer := kafkaadapter.NewWriter(cfg, logger)
	clock := clockwork.NewRealClock()

	exporter := pipeline.NewExporter(wc, writer, pipeline.ExportConfig{
		Locations:      cfg.Locations,
		Features:       cfg.Features,
		Window:         cfg.ExportWindow,
		Align:          cfg.ExportInterval,
		RequestTimeout: cfg.RequestTimeout,
	}, clock, logger, metrics)
	monitor := pipeline.NewMonitor(wc, cfg.Locations, cfg.Features, clock, logger, metrics)
	sched := scheduler.New(exporter, cfg.ExportInterval, logger)

	readiness = append(readiness, exporter)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady(readiness...), monitor, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start live monitor. The stream is not reopened once it ends.
	go func() {
		if err := monitor.Run(ctx); err != nil {
			logger.Error("live forecast monitor stopped", "error", err)
		}
	}()

	// Start periodic export.
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start export scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	wc.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
