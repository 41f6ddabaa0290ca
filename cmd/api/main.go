// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the MK Nursery web server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Select the backend: PostgreSQL + Redis, or in memory.
//  4. Run database migrations (idempotent).
//  5. Select the object storage driver.
//  6. Wire the identity provider, the session guard and the pages.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/taibuivan/mknursery/internal/api"
	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/backend/memory"
	"github.com/taibuivan/mknursery/internal/backend/objectstore"
	"github.com/taibuivan/mknursery/internal/backend/postgres"
	"github.com/taibuivan/mknursery/internal/form"
	"github.com/taibuivan/mknursery/internal/identity"
	"github.com/taibuivan/mknursery/internal/platform/config"
	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/logging"
	"github.com/taibuivan/mknursery/internal/platform/metrics"
	"github.com/taibuivan/mknursery/internal/platform/middleware"
	"github.com/taibuivan/mknursery/internal/platform/migration"
	pgstore "github.com/taibuivan/mknursery/internal/platform/postgres"
	redisstore "github.com/taibuivan/mknursery/internal/platform/redis"
	"github.com/taibuivan/mknursery/internal/platform/sec"
	"github.com/taibuivan/mknursery/internal/session"
	"github.com/taibuivan/mknursery/internal/web"
)

func main() {
	// ── 1. Configuration ──────────────────────────────────────────────────
	// Loaded before the logger so the file sink and debug level apply from
	// the first line. A config failure is reported on stderr.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("startup failure", slog.String("context", "load configuration"), slog.Any("error", err))
		os.Exit(1)
	}

	// ── 2. Logger ─────────────────────────────────────────────────────────
	log, logCloser := logging.New(logging.Options{
		App:        constants.AppName,
		Debug:      cfg.Debug,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompression,
	})
	defer closeQuietly(log, "log file", logCloser)
	slog.SetDefault(log)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug("maxprocs_adjusted", slog.String("detail", fmt.Sprintf(format, args...)))
	})); err != nil {
		log.Warn("maxprocs_failed", slog.Any("error", err))
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("backend", cfg.Backend),
		slog.String("storage", cfg.StorageDriver),
	)

	// Root context for background work. Cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Token signing ──────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.SessionSecret, constants.AuthIssuer)
	must(log, err, "initialize token service")
	mailer := identity.NewLogMailer(log)

	// ── 4. Backend ────────────────────────────────────────────────────────
	var (
		data     backend.Data
		provider *identity.Provider
		locker   form.Locker
		checks   []api.Check
	)

	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing postgres pool")
			pool.Close()
		}()

		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer closeQuietly(log, "redis client", rdb)

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		data = postgres.NewData(pool, cfg.BackendTimeout)
		provider = identity.NewProvider(identity.Options{
			Users:       identity.NewUserRepository(pool),
			Sessions:    identity.NewSessionRepository(rdb),
			ResetTokens: identity.NewResetTokenRepository(rdb),
			Bus:         identity.NewEventBus(rdb, log),
			Mailer:      mailer,
			Tokens:      tokens,
			SessionTTL:  cfg.SessionTTL,
			Logger:      log,
		})
		locker = form.NewRedisLocker(rdb)
		checks = []api.Check{
			{Name: "postgres", Run: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }},
			{Name: "redis", Run: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
		}

	case config.BackendMemory:
		log.Warn("memory_backend_enabled", slog.String("detail", "data is lost on restart"))
		data = memory.NewData()
		provider = identity.NewMemoryProvider(tokens, mailer, cfg.SessionTTL, log)
		locker = form.NewMemoryLocker()
		if cfg.SeedAdminEmail != "" {
			_, err := provider.CreateUser(startupCtx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
			must(log, err, "seed admin user")
		}
	}

	go func() {
		if err := provider.Run(rootCtx); err != nil {
			log.Error("session_relay_stopped", slog.Any("error", err))
		}
	}()

	// ── 5. Object Storage ─────────────────────────────────────────────────
	var (
		storage        backend.Storage
		storageHandler http.Handler
	)
	switch cfg.StorageDriver {
	case config.StorageS3:
		store, err := objectstore.NewS3(startupCtx, objectstore.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.StoragePublicURL,
			Timeout:   cfg.BackendTimeout,
		})
		must(log, err, "initialize s3 storage")
		storage = store
	case config.StorageLocal:
		store, err := objectstore.NewLocal(cfg.StorageLocalPath, cfg.StoragePublicURL)
		must(log, err, "initialize local storage")
		storage, storageHandler = store, store
	case config.StorageMemory:
		storage = memory.NewStorage(cfg.StoragePublicURL)
	}

	// ── 6. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// ── 7. Pages ──────────────────────────────────────────────────────────
	cookies := session.Cookies{Secure: cfg.CookieSecure}
	guard := session.NewGuard(session.GuardOptions{
		Source:       provider,
		Cookies:      cookies,
		CheckTimeout: cfg.SessionCheckTimeout,
		Refresher:    provider,
		SessionTTL:   cfg.SessionTTL,
		Recorder:     collector,
	})

	site, err := web.NewServer(web.Options{
		Auth:           provider,
		Data:           data,
		Storage:        storage,
		Guard:          guard,
		Cookies:        cookies,
		Locker:         locker,
		Recorder:       collector,
		PublicURL:      cfg.PublicURL,
		Bucket:         cfg.StorageBucket,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Timeout:        cfg.BackendTimeout,
		LoginLimiter:   middleware.RateLimit(rootCtx, constants.LoginRateLimitRPS, constants.LoginRateLimitBurst),
		Logger:         log,
	})
	must(log, err, "parse page templates")

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{Checks: checks}, log)
	server := api.NewServer(rootCtx, cfg, log, api.Handlers{
		Liveness:       liveness,
		Readiness:      readiness,
		Site:           site.Routes(),
		SessionStream:  guard.Stream,
		Metrics:        metrics.Handler(registry),
		RequestMetrics: collector.Middleware,
		Storage:        storageHandler,
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Open session streams end with the root context, so Shutdown can drain.
	rootCancel()

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

func closeQuietly(log *slog.Logger, name string, closer io.Closer) {
	if err := closer.Close(); err != nil {
		log.Error("close error", slog.String("resource", name), slog.Any("error", err))
	}
}
