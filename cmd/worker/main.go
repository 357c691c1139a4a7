package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/akulagin/mlservice/internal/config"
	"github.com/akulagin/mlservice/internal/logger"
	"github.com/akulagin/mlservice/internal/metrics"
	"github.com/akulagin/mlservice/internal/predictor"
	"github.com/akulagin/mlservice/internal/queue"
	"github.com/akulagin/mlservice/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// models load once; the registry is immutable after this point
	registry, err := predictor.LoadRegistry(cfg.ModelDir)
	if err != nil {
		log.Error("load models", "err", err)
		os.Exit(1)
	}
	log.Info("models loaded", "names", registry.Names())

	broker := queue.NewRedisBroker(cfg.RedisAddr, cfg.RedisPassword)
	defer broker.Close()

	metrics.Init()
	runner := worker.NewRunner(broker, registry, log, cfg.WorkerConc)
	log.Info("worker starting", "concurrency", cfg.WorkerConc)
	runner.Run(ctx)
	log.Info("worker stopped")
}
