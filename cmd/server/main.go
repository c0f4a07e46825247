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

	"github.com/JonMunkholm/solardash/internal/config"
	"github.com/JonMunkholm/solardash/internal/dashboard"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/history"
	"github.com/JonMunkholm/solardash/internal/logging"
	"github.com/JonMunkholm/solardash/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"dataset", cfg.Dataset.DefaultPath,
		"history_db", cfg.Database.Enabled(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	hist, closeHistory, err := openHistory(ctx, cfg)
	if err != nil {
		slog.Error("failed to open upload history", "error", err)
		os.Exit(1)
	}
	defer closeHistory()

	service := dashboard.NewService(cfg, hist)
	if err := service.LoadDefault(ctx); err != nil {
		if errors.Is(err, dataset.ErrSourceNotFound) {
			slog.Warn("default dataset not found, waiting for uploads", "path", cfg.Dataset.DefaultPath)
		} else {
			slog.Error("failed to load default dataset", "path", cfg.Dataset.DefaultPath, "error", err)
		}
	}

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartMaintenance(jobCtx, dashboard.MaintenanceConfig{
		Interval:  cfg.History.MaintenanceInterval,
		Retention: cfg.History.Retention,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to complete (with timeout)
		uploadStatus := service.UploadLimiterStatus()
		if uploadStatus.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", uploadStatus.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openHistory connects the Postgres upload history when DATABASE_URL is
// set. Without it history is kept in memory and the returned log is nil.
func openHistory(ctx context.Context, cfg *config.Config) (history.Log, func(), error) {
	if !cfg.Database.Enabled() {
		slog.Info("DATABASE_URL not set, keeping upload history in memory")
		return nil, func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	hist := history.NewPostgresLog(pool)
	if err := hist.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return hist, pool.Close, nil
}
