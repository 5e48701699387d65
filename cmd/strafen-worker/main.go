package main

import (
	"context"
	"os"
	"time"

	"strafen/internal/amqp"
	"strafen/internal/cli"
	"strafen/internal/ledger"
	"strafen/internal/log"
	"strafen/internal/services"
	gsheet "strafen/internal/sheets/google"
	"strafen/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)

	logger.Info("Starting strafen-worker")

	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the sync worker")
		os.Exit(1)
	}

	// Initialize SQLite repository to read pending ledger batches
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	credentialsFile := cfg.GoogleServiceAccountFile
	if credentialsFile == "" {
		credentialsFile = cfg.GoogleApplicationCredFile
	}
	creds, err := gsheet.ReadCredentials(cfg.GoogleServiceAccount, credentialsFile)
	if err != nil {
		logger.Error("Failed to read service account credentials", log.FieldError, err)
		os.Exit(1)
	}
	sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, creds)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		consumer = amqpClient
	} else {
		logger.Info("AMQP disabled - relying on periodic sync only")
	}

	processor := services.NewSyncProcessor(sqliteRepo, sheetsClient, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
		LedgerRange:  cfg.LedgerRange,
	})
	catalog := ledger.NewCatalogLoader(sheetsClient, cfg.CatalogRange)
	syncWorker := worker.NewSyncWorker(processor, catalog, sqliteRepo)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
	})

	logger.Info("Mirroring catalog from Google Sheets...")
	if err := syncWorker.MirrorCatalog(ctx); err != nil {
		// Don't exit - the previous mirror stays in place
		logger.Error("Failed to mirror catalog", log.FieldError, err)
	}

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if err := syncWorker.Run(ctx, consumer, processor, worker.RunConfig{
		SyncInterval:           cfg.SyncInterval,
		CatalogRefreshInterval: cfg.CatalogRefreshInterval,
	}); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
