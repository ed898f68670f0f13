package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/shotrank/internal/logger"
)

func main() {
	appLogger := logger.NewForService("shotrank-batch")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		appLogger.WithError(err).Error("Batch command failed")
		logger.Sync()
		os.Exit(1)
	}
}
