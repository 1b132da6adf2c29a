package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/cryptoflow/analytics/internal/config"
	"github.com/cryptoflow/analytics/internal/database"
	"github.com/cryptoflow/analytics/internal/job"
	"github.com/cryptoflow/analytics/internal/model"
	"github.com/cryptoflow/analytics/internal/store"
	"github.com/cryptoflow/analytics/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/analytics.yaml", "path to config file")
	windowsFlag := flag.String("windows", "", "comma-separated window override in days (e.g. 30,90)")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting analytics",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	windows := cfg.Job.Windows
	if *windowsFlag != "" {
		windows, err = parseWindows(*windowsFlag)
		if err != nil {
			logger.Error("invalid -windows flag", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("configuration loaded",
		"windows", windows,
		"top_assets", cfg.Job.TopAssets,
		"timeout", cfg.Job.Timeout,
	)

	// One invocation is bounded by the configured timeout.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Job.Timeout)
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to warehouse",
		"host", cfg.Database.Warehouse.Host,
		"port", cfg.Database.Warehouse.Port,
		"database", cfg.Database.Warehouse.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database.Warehouse)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("warehouse connected")

	warehouse := store.New(pool, logger)
	runner := job.New(cfg.Job, warehouse, logger)

	result := runner.Run(ctx, windows)
	if result.Status != model.JobSuccess {
		logger.Error("analytics run failed",
			"job_id", result.JobID,
			"error", result.Error,
		)
		os.Exit(1)
	}

	logger.Info("analytics run succeeded",
		"job_id", result.JobID,
		"records", result.RecordsProcessed,
	)
}

// parseWindows parses the -windows override, e.g. "30,90".
func parseWindows(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	windows := make([]int, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}
