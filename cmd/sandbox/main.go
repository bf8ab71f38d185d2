package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/tatianab/impact-sandbox/internal/config"
	"github.com/tatianab/impact-sandbox/internal/engine"
	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Printf("Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	scenarios, err := models.LoadCatalog(cfg.ScenarioDir)
	if err != nil {
		fmt.Printf("Error loading scenarios: %v\n", err)
		os.Exit(1)
	}

	var provider engine.Provider = engine.Disabled{}
	if !cfg.Offline {
		eng, err := engine.NewEngine(ctx, cfg.GeminiAPIKey, engine.Options{
			Model:   cfg.Model,
			Timeout: cfg.RequestTimeout,
			Logger:  logger,
		})
		if err != nil {
			fmt.Printf("Error creating engine: %v\n", err)
			os.Exit(1)
		}
		defer eng.Close()
		provider = eng
	}
	logger.Info("sandbox starting", "scenarios", len(scenarios), "model", cfg.Model, "offline", cfg.Offline)

	if err := tui.Run(ctx, scenarios, provider, logger); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
