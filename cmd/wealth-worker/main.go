package main

import (
	"context"
	"errors"
	"os"
	"time"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/cli"
	"wealthtrack/internal/config"
	"wealthtrack/internal/log"
	"wealthtrack/internal/sheets"
	gsheet "wealthtrack/internal/sheets/google"
	"wealthtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentWorker)
	logger.Info("Starting wealth-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	kv, err := cli.InitStorage(logger, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer kv.Close()

	var mirror sheets.TrendMirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Credentials{
			ClientJSON: cfg.GoogleOAuthClientJSON,
			ClientFile: cfg.GoogleOAuthClientFile,
			TokenJSON:  cfg.GoogleOAuthTokenJSON,
			TokenFile:  cfg.GoogleOAuthTokenFile,
		}, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	backups := worker.NewBackupWorker(worker.KVSource{KV: kv}, cfg.BackupDir, cfg.BackupDebounce, mirror, logger)

	root, stop := context.WithCancel(context.Background())
	defer stop()
	ctx, done := cli.GracefulShutdown(root, logger, 30*time.Second, nil)

	// catch up on changes made while the worker was down
	logger.Info("Performing startup backup", log.FieldOperation, log.OpStartup)
	if err := backups.Flush(ctx); err != nil {
		logger.Error("Startup backup failed", log.FieldError, err)
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := backups.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Backup worker stopped", log.FieldError, err)
		}
	}()

	go func() {
		if err := amqpClient.ConsumeRecordChanged(ctx, backups.HandleRecordChanged); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		stop()
	}()

	cli.WaitForShutdown(ctx, done)
	<-runDone
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
