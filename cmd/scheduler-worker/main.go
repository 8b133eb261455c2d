package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"tesoreria/internal/amqp"
	"tesoreria/internal/config"
	"tesoreria/internal/notify"
	"tesoreria/internal/services"
	"tesoreria/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting scheduler-worker")

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

	// Generated transactions are published for board sync; without a broker
	// they stay queued until the sync worker sweeps them.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without broker", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - generated transactions sync via the periodic sweep")
	}

	var notifier services.Notifier
	if n := notify.New(cfg.EmailEndpointURL, cfg.EmailFrom); n.Enabled() {
		notifier = n
	}

	scheduler := services.NewScheduler(repo, publisher, notifier, cfg.EmailTo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tz := cfg.Timezone()
	logger.Info("Recurring expense scheduler configured",
		"interval", cfg.SchedulerInterval,
		"timezone", cfg.SchedulerTimezone,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.SchedulerInterval)
	defer ticker.Stop()

	// Run once on startup so missed windows are backfilled immediately.
	logger.Info("Running initial recurring expense generation...")
	if count, err := scheduler.Run(ctx, time.Now().In(tz)); err != nil {
		logger.Error("Initial generation failed", "error", err)
	} else {
		logger.Info("Initial generation complete", "transactions_created", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := scheduler.Run(ctx, now.In(tz))
				if err != nil {
					logger.Error("Periodic generation failed", "error", err)
				} else {
					logger.Info("Periodic generation complete",
						"transactions_created", count,
						"next_check", now.Add(cfg.SchedulerInterval).In(tz).Format("15:04:05"))
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down scheduler-worker...")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("Scheduler-worker shutdown complete")
}
