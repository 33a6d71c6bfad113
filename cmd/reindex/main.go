package main

import (
	"context"
	"os/signal"
	"syscall"

	"visar-backend/app"
	"visar-backend/config"
	"visar-backend/logger"
	"visar-backend/service"

	"go.uber.org/zap"
)

// reindex runs one orphan sweep and exits
func main() {
	log := logger.Bootstrap()
	defer log.Sync()

	cfg := config.MustLoad(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer c.Close()

	result, err := c.Reindex.Sweep(ctx, func(r service.SweepResult) {
		log.Info("Progress", zap.Int("total", r.Total), zap.Int("indexed", r.Indexed), zap.Int("failed", r.Failed))
	})
	if err != nil {
		log.Fatal("Reindex failed", zap.Error(err))
	}

	log.Info("Reindex complete",
		zap.Int("total", result.Total),
		zap.Int("indexed", result.Indexed),
		zap.Int("failed", result.Failed))
}
