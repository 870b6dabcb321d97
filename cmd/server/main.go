package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/fuhsing/sqlingest/internal/config"
	"github.com/fuhsing/sqlingest/internal/executor"
	"github.com/fuhsing/sqlingest/internal/importer"
	"github.com/fuhsing/sqlingest/internal/indexer"
	"github.com/fuhsing/sqlingest/internal/logging"
	"github.com/fuhsing/sqlingest/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"watch_dir", cfg.Importer.WatchDir,
		"batch_size", cfg.Importer.BatchSize,
		"max_concurrent", cfg.Importer.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Database is optional: without it imports run parse-only.
	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		if err := executor.EnsureHistorySchema(ctx, pool); err != nil {
			slog.Error("failed to ensure history schema", "error", err)
			os.Exit(1)
		}

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
	} else {
		slog.Warn("no database configured, imports run parse-only")
	}

	// Search indexing is optional too.
	var idx *indexer.Client
	if cfg.Search.URL != "" {
		idx = indexer.NewClient(cfg.Search.URL, cfg.Search.User, cfg.Search.Pass,
			cfg.Search.BulkSize, cfg.Search.Timeout)
		if err := idx.Ping(ctx); err != nil {
			slog.Warn("search cluster unreachable, indexing will retry per import", "error", err)
		} else {
			slog.Info("search cluster reachable", "url", cfg.Search.URL)
		}
	}

	var exec *executor.Executor
	var db executor.DBTX
	if pool != nil {
		exec = executor.New(pool)
		db = pool
	}

	service := importer.NewService(cfg.Importer, exec, idx, db)
	server := web.NewServer(service, db, cfg)

	// Cancellable context for the directory watcher
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.Watch(jobCtx)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
