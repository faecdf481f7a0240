package main

import (
	"cmp"
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/internal/api"
	"github.com/glaseagle/3DAuth-FireStore/internal/api/middleware"
	"github.com/glaseagle/3DAuth-FireStore/internal/config"
	"github.com/glaseagle/3DAuth-FireStore/internal/hub"
	"github.com/glaseagle/3DAuth-FireStore/internal/notify"
	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	logger = logger.Level(cfg.LogLevel).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize user store: Postgres when configured, SQLite otherwise
	var users store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		users = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		users = sqliteStore
		logger.Info().Str("path", cmp.Or(cfg.SQLitePath, store.DefaultSQLitePath)).Msg("using SQLite")
	}
	defer users.Close()

	// Initialize Redis store
	redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisStore.Close()
	redisStore.SetCursorTTL(cfg.CursorTTL)
	logger.Info().Msg("connected to Redis")

	// Change bus shared by every instance
	var bus notify.Bus
	if cfg.NATSURL != "" {
		natsBus, err := notify.NewNATSBus(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("nats connection failed")
		}
		bus = natsBus
		logger.Info().Msg("connected to NATS")
	} else {
		bus = notify.NewRedisBus(redisStore.Client(), logger)
	}
	defer bus.Close()
	redisStore.SetNotifier(bus)
	go redisStore.SweepCursors(ctx, cfg.CursorSweep)

	// Snapshot feed
	feed := hub.New(redisStore, bus, logger)
	go func() {
		if err := feed.Run(ctx); err != nil {
			logger.Fatal().Err(err).Msg("snapshot feed failed")
		}
	}()

	// Create router
	router := api.NewRouter(logger, users, redisStore, feed, api.Options{
		RateLimits: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
		MaxBodySize: cfg.MaxBodySize,
	})

	// No WriteTimeout: it would cut long-lived websocket feeds.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting notespace server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	cancel()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
