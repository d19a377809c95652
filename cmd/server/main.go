// Package main implements the entry point for the crewboard API server:
// the HTTP surface, the background job dispatcher and the cache layer all
// run inside this one process.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/crewboard/crewboard-api/internal/config"
	"github.com/crewboard/crewboard-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg := logger.Setup(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logg)
	if err != nil {
		logg.Error("failed to initialize application", "error", err)
		stop()
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		logg.Error("server exited with error", "error", err)
		app.Close()
		log.Fatalf("server exited with error: %v", err)
	}

	app.Close()
	logg.Info("server shut down cleanly")
}
