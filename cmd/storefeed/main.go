// CLAUDE:SUMMARY Entry point for the storefeed ETL service — config, startup run, scheduler, chi HTTP API.
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

	"github.com/hazyhaar/storefeed"
)

func main() {
	cfgPath := "storefeed.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	var lvl slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := storefeed.LoadConfigFile(cfgPath)
	if errors.Is(err, os.ErrNotExist) {
		// No config file: defaults plus env overrides below.
		cfg = &storefeed.Config{}
	} else if err != nil {
		slog.Error("config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	// Env overrides for containerized deployments.
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Listen = ":" + v
	}
	if v := os.Getenv("API_PRODUCTS"); v != "" {
		cfg.Sources.Products = v
	}
	if v := os.Getenv("API_USERS"); v != "" {
		cfg.Sources.Users = v
	}

	svc, err := storefeed.New(cfg, logger)
	if err != nil {
		slog.Error("storefeed service", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One pipeline run at startup, then on schedule and on demand.
	if report, err := svc.RunOnce(ctx); err == nil {
		slog.Info("startup run finished",
			"run_id", report.RunID,
			"ingest_ok", report.IngestOK,
			"most_expensive", report.Projections["most_expensive"],
			"ods_users", report.Projections["ods_users"])
	}

	if cfg.Scheduler.Interval > 0 {
		go svc.RunPeriodic(ctx, cfg.Scheduler.Interval.Std())
		slog.Info("scheduler started", "interval", cfg.Scheduler.Interval.Std())
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("storefeed listening", "addr", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server", "error", err)
		os.Exit(1)
	}
}
