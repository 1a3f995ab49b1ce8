package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/artgen/internal/app"
	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/logger"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "artgen-sweep",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	dryRun := flag.Bool("dry-run", false, "List expired images without deleting anything")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Handle interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.SetComponent(ctx, "sweep")

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer func() {
		if err := application.Stop(context.Background()); err != nil {
			appLogger.WithError(err).Error("Cleanup failed")
		}
	}()

	if *dryRun {
		expired, err := application.Sweeper.Expired(ctx)
		if err != nil {
			appLogger.WithError(err).Error("Failed to list expired images")
			return
		}
		for _, row := range expired {
			appLogger.WithFields(logger.Fields{
				logger.FieldFilename: row.Filename,
				"timestamp":          row.Timestamp,
				"is_generated":       row.IsGenerated,
			}).Info("Would delete")
		}
		appLogger.WithField(logger.FieldCount, len(expired)).Info("Dry run completed")
		return
	}

	result := application.Sweeper.RunOnce(ctx)
	appLogger.WithFields(logger.Fields{
		"scanned":              result.Scanned,
		"files_deleted":        result.FilesDeleted,
		"files_missing":        result.FilesMissing,
		"rows_deleted":         result.RowsDeleted,
		"errors":               result.Errors,
		logger.FieldDurationMs: result.Duration.Milliseconds(),
	}).Info("Sweep completed")

	if result.Errors > 0 {
		os.Exit(1)
	}
}
