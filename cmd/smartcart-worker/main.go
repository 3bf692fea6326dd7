package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"smartcart/internal/amqp"
	"smartcart/internal/config"
	applog "smartcart/internal/log"
	"smartcart/internal/sheets"
	gsheet "smartcart/internal/sheets/google"
	mem "smartcart/internal/sheets/memory"
	"smartcart/internal/storage"
	"smartcart/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
		Pretty:    cfg.LogPretty,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without a spreadsheet the worker still drains the export queue into an
	// in-process ledger, which keeps local development observable.
	var ledger sheets.LedgerAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = client
		logger.Info("Google Sheets ledger initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		ledger = mem.New()
		logger.Info("Google Sheets disabled - exporting to in-memory ledger")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		defer amqpClient.Close()
		logger.Info("Consuming completion events", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - relying on the periodic sweep only")
	}

	w := worker.NewExportWorker(repo, ledger, amqpClient, cfg.ExportBatchSize, cfg.ExportInterval)

	logger.Info("Starting smartcart-worker",
		"batch_size", cfg.ExportBatchSize, "interval", cfg.ExportInterval.String())

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
