package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cotizador/internal/cli"
	applog "cotizador/internal/log"
	"cotizador/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting cotizador-worker", "export_backend", cfg.ExportBackend)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	exporter, err := cli.NewExporter(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg)
	if amqpClient == nil {
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, exporter)

	var reconciler *worker.Reconciler
	if cfg.ExportResyncInterval > 0 {
		reconciler = worker.NewReconciler(exportWorker, worker.ReconcilerConfig{Interval: cfg.ExportResyncInterval})
	} else {
		logger.Info("Periodic export resync disabled")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if reconciler == nil {
			return
		}
		if err := reconciler.Stop(ctx); err != nil {
			logger.Warn("Reconciler stop", applog.FieldError, err)
		}
	})

	if reconciler != nil {
		if err := reconciler.Start(ctx); err != nil {
			logger.Error("Failed to start reconciler", applog.FieldError, err)
			os.Exit(1)
		}
	}

	if err := amqpClient.ConsumeQuoteEvents(ctx, exportWorker.HandleQuoteEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Quote event consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
