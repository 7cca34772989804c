// budgetd-recurring periodically rolls recurring bills and incomes into the
// current month through the budgetd API.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"budgetd/internal/cli"
	"budgetd/internal/recurring"
)

func main() {
	logger := cli.Setup()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting budgetd-recurring",
		"api_url", cfg.APIBaseURL,
		"interval", cfg.RecurringInterval)

	processor := recurring.NewProcessor(cfg.APIBaseURL, logger)
	if err := processor.RunPeriodically(ctx, cfg.RecurringInterval); !errors.Is(err, context.Canceled) {
		logger.Error("Recurring processor stopped", "error", err)
		return
	}

	logger.Info("Recurring processor stopped gracefully")
}
