// cmd/historian is an asynchronous worker that pops session actions from a Redis queue
// and persists them to PostgreSQL in batches.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/gofish/internal/cache"
	"github.com/jason-s-yu/gofish/internal/config"
	"github.com/jason-s-yu/gofish/internal/database"
	"github.com/jason-s-yu/gofish/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatal(err)
	}
	defer rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.PostgresDSN(), logger)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()

	actions := database.NewActionLog(pool)
	if err := actions.EnsureSchema(ctx); err != nil {
		logger.Fatal(err)
	}

	svc := historian.NewService(rdb, actions, cfg.HistorianQueue, cfg.HistorianBatchSize, cfg.HistorianFlush, logger)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
