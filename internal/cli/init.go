// Package cli provides common initialization shared by the commands under
// cmd/.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wealthtrack/internal/config"
	"wealthtrack/internal/log"
	"wealthtrack/internal/storage"
)

// SetupLogger builds the stdout logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Bad values fall back to the defaults
// and are reported once the logger exists; config validation rejects them
// later.
func SetupLogger() *log.Logger {
	cfg, err := log.ParseConfig(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)
	if err != nil {
		cfg = log.DefaultConfig()
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Ignoring logging settings", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is fine in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and checks it with validate.
// The process exits on failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitStorage opens the configured key-value backend.
func InitStorage(logger *log.Logger, cfg *config.Config) (storage.KV, error) {
	kv, err := storage.Open(cfg.DataBackend, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", log.FieldError, err, "backend", cfg.DataBackend, log.FieldFile, cfg.SQLiteDBPath)
		return nil, err
	}
	logger.Info("Storage ready", "backend", cfg.DataBackend)
	return kv, nil
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or when
// parent is done, and a channel closed once cleanup has run. cleanup
// receives a context bounded by timeout.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(done)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
