package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/careadmin-cache/pkg/cache"
	"github.com/Sternrassler/careadmin-cache/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.ConfigFromEnv(os.Getenv))

	// Configuration from environment
	cfg, redisCfg, err := cache.LoadConfig(os.Getenv)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid cache configuration")
	}
	port := getEnv("PORT", "8080")

	// Setup Redis
	redisClient, err := cache.NewRedisClient(redisCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	store, err := cache.NewStore(redisClient, cfg, logging.NewLogger("cache"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create cache store")
	}

	// The service starts even when Redis is down; /ready reports it.
	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Redis not reachable at startup")
	} else {
		logger.Info().Str("addr", redisClient.Options().Addr).Msg("Connected to Redis")
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newServer(store, logging.NewLogger("admin")).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("version", cfg.DefaultVersion).
			Str("codec", cfg.Codec).
			Bool("atomic_tags", cfg.AtomicTags).
			Msg("Starting cache admin server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
