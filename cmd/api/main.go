package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/artgen/internal/app"
	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/logger"
)

func main() {
	// Initialize logger from LOG_* / APP_ENV
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}

	errCh := application.Start(ctx)

	// Wait for interrupt signal or listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case err := <-errCh:
		if err != nil {
			appLogger.WithError(err).Error("Server failed")
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Shutdown finished with errors")
		return
	}

	appLogger.Info("Server exited")
}
