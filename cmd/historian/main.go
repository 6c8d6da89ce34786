// cmd/historian pops action records from the Redis queue and persists them to the configured SQL store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required for the historian")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := database.OpenActionStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer closeStore()

	rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	hs := historian.New(rdb, store, cfg.Historian, logger)
	if err := hs.Run(ctx); err != nil {
		logger.WithError(err).Error("final flush failed")
	}
	logger.Info("historian shutdown complete")
}
