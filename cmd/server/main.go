package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bus_tracker/internal/cache"
	"bus_tracker/internal/config"
	"bus_tracker/internal/controllers"
	"bus_tracker/internal/logger"
	"bus_tracker/internal/metrics"
	"bus_tracker/internal/middleware"
	"bus_tracker/internal/realtime"
	"bus_tracker/internal/routes"
	"bus_tracker/internal/search"
	"bus_tracker/internal/store"
	"bus_tracker/internal/tracking"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	// Initialize structured logging to file
	accessLog := logger.Setup(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, accessLog); err != nil {
		logrus.WithError(err).Fatal("server exited with error")
	}
	logrus.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, accessLog io.Writer) error {
	nrApp := newRelicApp(cfg.NewRelic)
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	// Connect to the database
	db, err := config.OpenDatabase(ctx, cfg.Database, nrApp, logger.NewGormLogger(cfg.Database.SlowQuery))
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			return err
		}
	}

	refCache, closeCache := newCache(ctx, cfg.Cache)
	defer closeCache()

	st := store.New(db, refCache)
	metrics.RegisterDefault()

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	hub := realtime.NewHub(auth.ValidateToken, cfg.Realtime.SendBuffer)
	defaultPoint := tracking.Point{Lat: cfg.Realtime.DefaultLat, Lon: cfg.Realtime.DefaultLon}

	broadcaster := realtime.NewBroadcaster(st, hub, defaultPoint, cfg.Realtime.BroadcastInterval, cfg.Realtime.QueryTimeout, nrApp)
	dispatcher := realtime.NewDispatcher(st, hub, cfg.Realtime.DispatchInterval, cfg.Realtime.QueryTimeout, nrApp)

	// Setup Gin router
	router := routes.SetupRouter(routes.Deps{
		AccessLog:      accessLog,
		NewRelic:       nrApp,
		Auth:           auth,
		LoginLimiter:   middleware.NewIPRateLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst),
		Hub:            hub,
		Health:         st,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,

		Users:         controllers.NewAuthController(st, auth),
		Buses:         controllers.NewBusController(st, search.NewMatcher(st), defaultPoint),
		Notifications: controllers.NewNotificationController(st),
		Reports:       controllers.NewReportController(st, cfg.Server.UploadDir, cfg.Server.MaxUploadBytes),
		Chat:          controllers.NewChatController(st),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.WithField("addr", srv.Addr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		broadcaster.Run(gctx)
		return nil
	})
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("shutting down")
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRelicApp(cfg config.NewRelicConfig) *newrelic.Application {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		logrus.WithError(err).Warn("New Relic disabled")
		return nil
	}
	return app
}

// newCache prefers Redis and falls back to an in-process LRU when Redis is
// not configured or unreachable.
func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, func()) {
	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		client, err := cache.NewRedisClient(pingCtx, cfg)
		if err == nil {
			logrus.WithField("addr", cfg.RedisAddr).Info("Using Redis reference cache")
			return cache.NewRedisCache(client, cfg.TTL), func() { _ = client.Close() }
		}
		logrus.WithError(err).Warn("Redis unavailable, using in-process cache")
	}
	return cache.NewLocalCache(cfg.LocalSize, cfg.TTL), func() {}
}
