package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/seatline/docs"
	"github.com/kirinyoku/seatline/internal/app"
	"github.com/kirinyoku/seatline/internal/config"
)

// @title Seatline API
// @version 1.0
// @description Venue scheduling and seat reservation.
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
