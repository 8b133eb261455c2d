package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"tesoreria/internal/amqp"
	"tesoreria/internal/attach"
	"tesoreria/internal/config"
	apphttp "tesoreria/internal/http"
	"tesoreria/internal/middleware/ratelimit"
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

	logger.Info("Starting tesoreria API server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required for the API server")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	blobs, err := attach.NewStore(cfg.AttachmentsDir)
	if err != nil {
		logger.Error("Failed to initialize attachment store", "error", err, "dir", cfg.AttachmentsDir)
		os.Exit(1)
	}

	// AMQP is optional: without it transactions stay queued in sync_status
	// until a worker with a broker connection sweeps them.
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
		logger.Info("AMQP disabled - board sync relies on the periodic sweep")
	}

	var notifier services.Notifier
	if n := notify.New(cfg.EmailEndpointURL, cfg.EmailFrom); n.Enabled() {
		notifier = n
		logger.Info("Email notifications enabled", "to", cfg.EmailTo)
	} else {
		logger.Info("Email notifications disabled - no EMAIL_ENDPOINT_URL provided")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		JWTSecret:    cfg.JWTSecret,
		Transactions: services.NewTransactionService(repo, blobs, publisher),
		Ledger:       services.NewLedgerService(repo, blobs, publisher, notifier, cfg.EmailTo),
		Catalog:      services.NewCatalogService(repo),
		Importer:     services.NewCatalogImporter(repo),
		Storage:      repo,
		Blobs:        blobs,
		RateLimit:    ratelimit.DefaultConfig(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting tesoreria server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
