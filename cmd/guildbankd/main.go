// cmd/guildbankd/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "guildbank/internal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create and initialize the application
	application := app.NewApplication()
	if err := application.Initialize(ctx); err != nil {
		application.Logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Retention cleanup loop: prune entries past the horizon on a fixed
	// interval. Statistics are lifetime totals and survive pruning.
	go func() {
		horizon := time.Duration(application.Config.RetentionDays) * 24 * time.Hour
		ticker := time.NewTicker(application.Config.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := application.LedgerService.CleanupOlderThan(ctx, horizon)
				if err != nil {
					application.Logger.Error("Retention cleanup failed", "error", err)
					continue
				}
				application.Logger.Info("Retention cleanup ran", "removed", removed)
			}
		}
	}()

	application.Logger.Info("guildbankd running",
		"db", application.Config.DB.Path,
		"retention_days", application.Config.RetentionDays)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	application.Logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error("Application shutdown failed", "error", err)
		os.Exit(1)
	}

	application.Logger.Info("Application gracefully stopped.")
}
