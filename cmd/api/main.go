package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akulagin/mlservice/internal/api"
	"github.com/akulagin/mlservice/internal/auth"
	"github.com/akulagin/mlservice/internal/config"
	"github.com/akulagin/mlservice/internal/db"
	"github.com/akulagin/mlservice/internal/logger"
	"github.com/akulagin/mlservice/internal/metrics"
	"github.com/akulagin/mlservice/internal/queue"
	"github.com/akulagin/mlservice/internal/repository/postgres"
	"github.com/akulagin/mlservice/internal/services"
	"github.com/akulagin/mlservice/internal/storage"
	"github.com/akulagin/mlservice/web"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Error("file store", "err", err)
		os.Exit(1)
	}

	broker := queue.NewRedisBroker(cfg.RedisAddr, cfg.RedisPassword)
	defer broker.Close()

	repos := postgres.NewRepositories(pool)
	tm := auth.NewTokenManager(cfg.JWTSecret)
	userSvc := services.NewUserService(repos.Users, tm)
	predSvc := services.NewPredictionService(repos.Predictions, files, broker, log)

	metrics.Init()
	r := api.NewRouter(cfg, userSvc, predSvc, files, web.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
