package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"organify/internal/amqp"
	"organify/internal/cli"
	"organify/internal/config"
	applog "organify/internal/log"
	"organify/internal/services"
	"organify/internal/sheets"
	gsheet "organify/internal/sheets/google"
	mem "organify/internal/sheets/memory"
	"organify/internal/storage"
	"organify/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting organify-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize sheets mirror", "error", err)
		os.Exit(1)
	}

	processor := services.NewMirrorProcessor(repo, mirror, services.MirrorProcessorConfig{
		PollInterval: cfg.MirrorInterval,
		BatchSize:    cfg.MirrorBatchSize,
	})
	w := worker.NewMirrorWorker(processor)

	// Catch up on rows written while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return processor.Stop(context.Background())
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP consumption - no AMQP_URL provided, relying on polling")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// newMirror picks the Google Sheets mirror when a spreadsheet is configured
// and an in-memory one otherwise.
func newMirror(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.TransactionMirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - mirroring to memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	return client, nil
}
