// Package cli holds the bootstrap shared by cmd/cotizador, cmd/cotizador-worker
// and cmd/cotizador-admin.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cotizador/internal/amqp"
	"cotizador/internal/config"
	applog "cotizador/internal/log"
	"cotizador/internal/services"
	"cotizador/internal/sheets"
	"cotizador/internal/sheets/google"
	"cotizador/internal/sheets/memory"
	"cotizador/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads the environment, builds the process logger and validates
// configuration. It exits the process on invalid configuration.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := applog.NewFromEnv(cfg.LogLevel, cfg.LogFormat, component)
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the repository, applying migrations, or exits the process.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath)
	return repo
}

// QuoteServiceConfig maps environment configuration onto the quote service.
func QuoteServiceConfig(cfg *config.Config) (services.QuoteServiceConfig, error) {
	loc, err := cfg.Location()
	if err != nil {
		return services.QuoteServiceConfig{}, err
	}
	sc := services.DefaultQuoteServiceConfig()
	sc.DefaultLaborRate = cfg.DefaultLaborRate
	sc.DefaultPaintingRate = cfg.DefaultPaintingRate
	sc.NumberRetries = cfg.NumberRetryAttempts
	sc.Location = loc
	return sc, nil
}

// InitAMQP connects to the broker when AMQP_URL is set. The returned client
// is nil when messaging is disabled or the broker is unreachable.
func InitAMQP(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, quote events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, continuing without quote events", applog.FieldError, err)
		return nil
	}
	logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// Publisher adapts a possibly nil client to the services interface so a
// disabled broker yields a nil interface rather than a typed nil.
func Publisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// NewExporter builds the export target selected by EXPORT_BACKEND.
func NewExporter(ctx context.Context, cfg *config.Config) (sheets.QuoteExporter, error) {
	switch cfg.ExportBackend {
	case "sheets":
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("google sheets exporter: %w", err)
		}
		return client, nil
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown export backend %q", cfg.ExportBackend)
	}
}

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM. cleanup runs
// with a context bounded by timeout before done is closed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown sequence has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
