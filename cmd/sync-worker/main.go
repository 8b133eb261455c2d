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
	"tesoreria/internal/sheets"
	gsheet "tesoreria/internal/sheets/google"
	mem "tesoreria/internal/sheets/memory"
	"tesoreria/internal/storage"
	"tesoreria/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting sync-worker")

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

	// Pick the board backend. Without a spreadsheet the in-memory writer
	// keeps the queue draining so local setups still work end to end.
	var board sheets.BoardWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		board = client
		logger.Info("Google Sheets board initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		board = mem.New()
		logger.Info("Google Sheets disabled - using in-memory board")
	}

	syncWorker := worker.NewSyncWorker(repo, board, cfg.SyncBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, relying on periodic sweep only", "error", err)
		} else {
			defer amqpClient.Close()
			go func() {
				handler := func(msg *amqp.TransactionSyncMessage) error {
					return syncWorker.HandleSyncMessage(ctx, msg)
				}
				if err := amqpClient.ConsumeTransactionSync(ctx, handler); err != nil {
					if err != context.Canceled {
						logger.Error("Message consumption failed", "error", err)
					}
					cancel()
				}
			}()
			logger.Info("AMQP consumer started", "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - relying on periodic sweep only")
	}

	// The sweep catches transactions whose publish was lost.
	go func() {
		if err := syncWorker.RunSweeper(ctx, cfg.SyncInterval); err != nil && err != context.Canceled {
			logger.Error("Sweeper stopped", "error", err)
			cancel()
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

	logger.Info("Shutting down sync-worker...")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("Sync-worker shutdown complete")
}
