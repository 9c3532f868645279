package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/htl-relay/internal/config"
	"github.com/Tyrowin/htl-relay/internal/logging"
	"github.com/Tyrowin/htl-relay/internal/static"
	"github.com/Tyrowin/htl-relay/internal/version"
)

func main() {
	cfg, err := config.LoadStatic()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log)
	logger.Info("starting static server",
		"version", version.String(),
		"port", cfg.Port,
		"dir", cfg.Dir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := static.ListenAndRun(ctx, *cfg); err != nil {
		logger.Error("static server stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("static server stopped")
}
