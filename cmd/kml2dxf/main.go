package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/kml2dxf/internal/adapter/http"
	"github.com/couchcryptid/kml2dxf/internal/app"
	"github.com/couchcryptid/kml2dxf/internal/config"
	"github.com/couchcryptid/kml2dxf/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFrom(cfg), logger)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		return 1
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	a, err := app.New(cfg, os.Stdout, metrics, logger)
	if err != nil {
		logger.Error("failed to build converter", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("publisher close error", "error", err)
		}
	}()

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, a.Converter, metrics.Handler(), logger)
		srv.Start()
		defer srv.Shutdown(cfg.ShutdownTimeout)
	}

	report, err := a.Run(ctx)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		return 1
	}

	logger.Info("conversion complete",
		"run_id", report.RunID,
		"points", report.PointsTotal,
		"unresolved", report.UnresolvedPoints,
		"elapsed_seconds", report.ElapsedSeconds,
	)
	return 0
}
