// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/blackjack/internal/auth"
	"github.com/jason-s-yu/blackjack/internal/cache"
	"github.com/jason-s-yu/blackjack/internal/config"
	"github.com/jason-s-yu/blackjack/internal/database"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/jason-s-yu/blackjack/internal/handlers"
	"github.com/jason-s-yu/blackjack/internal/middleware"
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

	if err := auth.Setup(cfg.Auth); err != nil {
		logger.Fatalf("auth: %v", err)
	}
	if cfg.Auth.PublicKeyPath == "" {
		logger.Warn("no auth keys configured, using an ephemeral key pair")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := database.OpenRepository(ctx, cfg)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer closeRepo()

	opts := []game.Option{
		game.WithLogger(logger),
		game.WithLockWait(cfg.LockWait),
	}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		opts = append(opts,
			game.WithLocker(cache.NewRedisLocker(rdb, cfg.LockTTL, logger)),
			game.WithRecorder(cache.NewPublisher(rdb, cfg.Historian.Queue)),
		)
	} else {
		logger.Warn("REDIS_ADDR not set, using process-local locks and no action log")
	}
	engine := game.NewEngine(repo, opts...)

	routerCfg := handlers.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowAnyOrigin: !cfg.IsProduction(),
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.Limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, nil)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.NewRouter(logger, engine, routerCfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("shutdown")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":  srv.Addr,
		"store": cfg.StoreDriver,
		"env":   cfg.Env,
	}).Info("blackjack server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
