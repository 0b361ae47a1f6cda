package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nutristreak/internal/cache"
	"nutristreak/internal/calendar"
	"nutristreak/internal/config"
	"nutristreak/internal/db"
	"nutristreak/internal/handlers"
	"nutristreak/internal/logging"
	mw "nutristreak/internal/middleware"
	"nutristreak/internal/realtime"
	"nutristreak/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireServer(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.AppEnv)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	clock, err := calendar.LoadNormalizer(cfg.Timezone)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.RunMigrations(ctx, conn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	logger.Info("database ready", zap.String("driver", conn.DriverName()), zap.Int("schema_version", db.LatestVersion()))

	store := db.NewStore(conn)
	hub := realtime.NewHub(logger, cfg.AllowedOrigins)
	opts := []services.TrackerOption{services.WithNotifier(hub)}

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable; reports will not be cached", zap.Error(err))
		} else {
			defer client.Close()
			opts = append(opts, services.WithReportCache(cache.NewRedisReportCache(client, cfg.ReportCacheTTL)))
			logger.Info("report cache enabled", zap.Duration("ttl", cfg.ReportCacheTTL))
		}
	}

	tracker := services.NewTracker(store, clock, logger, opts...)
	router := handlers.NewRouter(handlers.RouterDeps{
		Store:          store,
		Tracker:        tracker,
		Hub:            hub,
		Logger:         logger,
		Auth:           mw.NewAuthMiddleware([]byte(cfg.JWTSecret)).RequireAuth,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("timezone", clock.Location().String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
