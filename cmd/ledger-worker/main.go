package main

import (
	"context"
	"errors"
	"os"
	"time"

	"organize/internal/amqp"
	"organize/internal/cli"
	"organize/internal/config"
	gsheet "organize/internal/sheets/google"
	"organize/internal/storage"
	"organize/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting ledger-worker")

	cfg := config.Load()
	if err := errors.Join(cfg.Validate(), cfg.ValidateWorker()); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, cfg.UserID)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(repo, sheetsClient, cfg.UserID, cfg.ExportMonthsBack)
	poller := worker.NewPoller(exporter, worker.PollerConfig{PollInterval: cfg.ExportPollInterval})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := poller.Stop(stopCtx); err != nil {
			logger.Warn("Catch-up poller did not stop cleanly", "error", err)
		}
	})

	// Months changed while the worker was down are only caught by this pass.
	if err := exporter.StartupExport(ctx); err != nil {
		logger.Error("Startup export failed", "error", err)
	}

	// Catches changes whose notification never reached the broker.
	if err := poller.Start(ctx); err != nil {
		logger.Error("Failed to start catch-up poller", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := amqpClient.ConsumeLedgerChanged(ctx, exporter.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
