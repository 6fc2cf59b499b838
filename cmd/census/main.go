package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/di"
	acquisitionDomain "github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
	acquisitionService "github.com/reshetovitsme/streamer-census/internal/modules/acquisition/service"
	classifyDomain "github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	"github.com/reshetovitsme/streamer-census/internal/shared/config"
	"github.com/reshetovitsme/streamer-census/internal/shared/metrics"
	"github.com/reshetovitsme/streamer-census/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
)

func main() {
	os.Exit(run())
}

func run() int {
	injector, err := di.Setup("census")
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		return 1
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}
	logger, err := do.Invoke[*slog.Logger](injector)
	if err != nil {
		slog.Error("Failed to initialize logging", "error", err)
		return 1
	}
	slog.SetDefault(logger)

	if err := cfg.RequireCredentials(); err != nil {
		logger.Error("No API keys configured, set youtube.api_keys or CENSUS_YOUTUBE__API_KEYS", "error", err)
		return 1
	}

	engine, err := do.Invoke[*acquisitionService.Engine](injector)
	if err != nil {
		logger.Error("Failed to build acquisition engine", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var summary *acquisitionDomain.Summary
	var runErr error
	if len(cfg.Acquisition.ManualIDs) > 0 {
		logger.Info("Processing manual channel list", "entries", len(cfg.Acquisition.ManualIDs))
		summary, runErr = engine.ProcessIDs(ctx, cfg.Acquisition.ManualIDs)
	} else {
		lex := do.MustInvoke[*classifyDomain.Lexicon](injector)
		explicit := lo.Map(cfg.Acquisition.Tasks, func(t config.TaskConfig, _ int) acquisitionDomain.Task {
			return acquisitionDomain.Task{Query: t.Query, Pages: t.Pages}
		})
		tasks, phase := acquisitionDomain.Plan(explicit, cfg.Acquisition.Phase, lex, cfg.Acquisition.Pages, time.Now().In(cfg.Location()))
		logger.Info("Starting search run", "phase", phase, "tasks", len(tasks))
		summary, runErr = engine.Run(ctx, tasks)
	}
	if runErr != nil {
		logger.Error("Run failed", "error", runErr)
	}

	report(injector, cfg, logger, summary)

	if runErr != nil || summary == nil || summary.StopReason == acquisitionDomain.StopReasonFailed {
		return 1
	}
	return 0
}

// report publishes the summary to the optional sinks. Failures here never
// change the exit code.
func report(injector do.Injector, cfg *config.Config, logger *slog.Logger, summary *acquisitionDomain.Summary) {
	if summary == nil {
		return
	}

	if m, err := do.Invoke[*metrics.Metrics](injector); err == nil {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("Failed to write metrics textfile", "error", err)
		}
	}

	notifier, err := do.Invoke[*telegram.Notifier](injector)
	if err != nil {
		logger.Error("Failed to create telegram notifier", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notifier.PublishSummary(ctx, summary); err != nil {
		logger.Error("Failed to publish run summary", "error", err)
	}
}
