package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cotizador/internal/cli"
	apphttp "cotizador/internal/http"
	applog "cotizador/internal/log"
	"cotizador/internal/middleware/ratelimit"
	"cotizador/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)
	logger.Info("Starting cotizador", "env", cfg.AppEnv, "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	quoteCfg, err := cli.QuoteServiceConfig(cfg)
	if err != nil {
		logger.Error("Invalid numbering timezone", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger.WithComponent(applog.ComponentAMQP), cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Materials: services.NewMaterialService(repo, time.Now),
		Quotes:    services.NewQuoteService(repo, cli.Publisher(amqpClient), quoteCfg),
		Dashboard: services.NewDashboardService(repo, time.Now, quoteCfg.Location),
		Store:     repo,
	}, apphttp.Options{
		Logger:      logger.WithComponent(applog.ComponentHTTP),
		Development: cfg.IsDevelopment(),
		CORSOrigin:  cfg.CORSOrigin,
		RateLimit: ratelimit.Config{
			Requests: cfg.RateLimitRequests,
			Window:   cfg.RateLimitWindow,
		},
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
