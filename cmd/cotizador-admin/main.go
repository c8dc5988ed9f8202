package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cotizador/internal/cli"
	applog "cotizador/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentAdmin)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewAdminCmd(&cli.Admin{Config: cfg, Logger: logger}).ExecuteContext(ctx); err != nil {
		logger.Error("Command failed", applog.FieldError, err)
		os.Exit(1)
	}
}
