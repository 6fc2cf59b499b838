package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/streamer-census/internal/di"
	"github.com/reshetovitsme/streamer-census/internal/shared/config"
	httpServer "github.com/reshetovitsme/streamer-census/internal/transport/http"
	"github.com/samber/do/v2"
)

func main() {
	// Setup dependency injection
	injector, err := di.Setup("census_server")
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	cfg := do.MustInvoke[*config.Config](injector)
	logger := do.MustInvoke[*slog.Logger](injector)
	slog.SetDefault(logger)
	server := do.MustInvoke[*httpServer.Server](injector)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Telegram.BotToken != "" {
		b, err := do.Invoke[*bot.Bot](injector)
		if err != nil {
			logger.Error("Failed to start telegram bot", "error", err)
		} else {
			go b.Start(ctx)
			logger.Info("Telegram bot started")
		}
	}

	// Start HTTP server
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("Application started", "port", cfg.HTTP.Port)
	logger.Info("Press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}
