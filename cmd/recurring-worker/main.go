package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cashbook/internal/amqp"
	"cashbook/internal/config"
	"cashbook/internal/services"
	"cashbook/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize partitioned ledger store
	store, err := storage.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize recurring rules store
	rules, err := storage.OpenRules(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to initialize rules store", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}
	defer rules.Close()

	// Initialize AMQP client for publishing description usage messages.
	// Without a broker the worker runs in ledger-only mode.
	var tracker services.Tracker
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without usage tracking", "error", err)
		} else {
			defer amqpClient.Close()
			tracker = amqpClient
			logger.Info("AMQP client initialized - description usage will be published")
		}
	} else {
		logger.Info("AMQP disabled - description usage will not be published")
	}

	// Initialize recurrence processor
	processor := services.NewProcessor(rules, store, tracker)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring entry processor configured",
		"interval", cfg.ProcessInterval,
		"data_dir", cfg.DataDir)

	// Setup periodic processing ticker
	ticker := time.NewTicker(cfg.ProcessInterval)
	defer ticker.Stop()

	// Run initial processing on startup
	logger.Info("Running initial recurring entry processing...")
	if count, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Initial processing failed", "error", err)
	} else {
		logger.Info("Initial processing complete", "entries_inserted", count)
	}

	// Start periodic processing
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Processing due recurring entries...")
				count, err := processor.ProcessDue(ctx, now)
				if err != nil {
					logger.Error("Periodic processing failed", "error", err)
				} else {
					logger.Info("Periodic processing complete",
						"entries_inserted", count,
						"next_check", now.Add(cfg.ProcessInterval).Format("15:04:05"))
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()
	logger.Info("Recurring-worker shutdown complete")
}
