package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bus_tracker/internal/cache"
	"bus_tracker/internal/config"
	"bus_tracker/internal/logger"
	"bus_tracker/internal/store"
)

func main() {
	cfg := config.Load()
	cfg.Log.Stdout = true
	logger.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := loadFixture(demoFixture)
	if err != nil {
		logrus.WithError(err).Fatal("invalid fixture")
	}

	db, err := config.OpenDatabase(ctx, cfg.Database, nil, logger.NewGormLogger(cfg.Database.SlowQuery))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := store.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("migrate")
	}
	counts, err := seed(ctx, db, f, time.Now().UTC())
	if err != nil {
		logrus.WithError(err).Fatal("seed")
	}

	// Servers sharing a Redis cache would otherwise serve stale stops
	// until the TTL expires. A process-local cache is not reachable here.
	if cfg.Cache.RedisAddr == "" {
		return
	}
	client, err := cache.NewRedisClient(ctx, cfg.Cache)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, cached reference data expires on its own")
		return
	}
	defer client.Close()
	if err := invalidate(ctx, cache.NewRedisCache(client, cfg.Cache.TTL), counts.RouteIDs); err != nil {
		logrus.WithError(err).Warn("cache invalidation failed")
	}
}
