package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	runNow := flag.Bool("run-now", false, "process due recurring transactions immediately and exit")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	var publisher services.RecurringPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}

	processor := services.NewRecurringProcessor(repo, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *runNow {
		count, err := processor.ProcessDueTransactions(ctx, time.Now())
		if err != nil {
			logger.Error("Processing failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Processing complete", "transactions_created", count)
		return
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.RecurringSchedule, func() {
		runCtx, runCancel := context.WithTimeout(ctx, 5*time.Minute)
		defer runCancel()

		count, err := processor.ProcessDueTransactions(runCtx, time.Now())
		if err != nil {
			slog.ErrorContext(runCtx, "Scheduled processing failed", "error", err)
			return
		}
		slog.InfoContext(runCtx, "Scheduled processing complete", "transactions_created", count)
	})
	if err != nil {
		logger.Error("Invalid schedule", "schedule", cfg.RecurringSchedule, "error", err)
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("Recurring processor scheduled",
		"schedule", cfg.RecurringSchedule,
		"sqlite_db", cfg.SQLiteDBPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for running jobs")
	}

	logger.Info("Worker stopped gracefully")
}
