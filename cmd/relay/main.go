package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/htl-relay/internal/config"
	"github.com/Tyrowin/htl-relay/internal/logging"
	"github.com/Tyrowin/htl-relay/internal/relay"
	"github.com/Tyrowin/htl-relay/internal/version"
)

func main() {
	cfg, err := config.LoadRelay()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log)
	logger.Info("starting HTL relay",
		"version", version.String(),
		"port", cfg.Port,
		"allowed_origins", cfg.AllowedOrigins,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.NewServer(*cfg).ListenAndRun(ctx); err != nil {
		logger.Error("relay stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("relay stopped")
}
