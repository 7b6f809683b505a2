package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/prready/internal/adapter/driven/github"
	redisadapter "github.com/ericfisherdev/prready/internal/adapter/driven/redis"
	sqliteadapter "github.com/ericfisherdev/prready/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/prready/internal/adapter/driving/http"
	"github.com/ericfisherdev/prready/internal/application"
	"github.com/ericfisherdev/prready/internal/config"
	"github.com/ericfisherdev/prready/internal/domain/port/driven"
)

// redisResultTTL bounds how long a result survives in Redis without being
// refreshed or invalidated.
const redisResultTTL = 24 * time.Hour

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return serve(opts)
		},
	}
}

func serve(opts *rootOptions) error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"cache_ttl", cfg.CacheTTL,
		"rate_limit", cfg.RateLimit,
		"rate_window", cfg.RateWindow,
		"redis", cfg.UseRedis(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and apply migrations.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Select the durable result tier.
	var resultStore driven.ResultStore = sqliteadapter.NewReadinessRepo(db)
	if cfg.UseRedis() {
		rs, err := redisadapter.NewResultStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisResultTTL)
		if err != nil {
			return err
		}
		defer func() { _ = rs.Close() }()
		resultStore = rs
		slog.Info("redis result store connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	}

	// 5. Wire adapters and services.
	if cfg.GitHubToken == "" {
		slog.Warn("no github token configured, using unauthenticated rate limits and skipping conversation counts")
	}
	ghClient := githubadapter.NewClient(cfg.GitHubToken, githubadapter.WithMaxItems(cfg.MaxItemsPerSource))
	prStore := sqliteadapter.NewPRRepo(db)

	cache := application.NewResultCache(resultStore, cfg.CacheTTL)
	defer cache.Wait()

	readinessSvc := application.NewReadinessService(ghClient, prStore, cache)
	trackingSvc := application.NewTrackingService(ghClient, prStore, cache)

	limiter := application.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Close()

	metrics := httphandler.NewMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	// 6. HTTP server.
	apiHandler := httphandler.NewHandler(readinessSvc, trackingSvc, limiter, metrics, slog.Default())
	handler := http.TimeoutHandler(
		httphandler.NewServeMux(apiHandler, slog.Default()),
		cfg.FetchTimeout,
		`{"error":"request timed out"}`,
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// 7. Wait for shutdown signal or server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-srvErr:
		if err != nil {
			return err
		}
	}

	// 8. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
