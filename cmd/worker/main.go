// Package main provides the entrypoint for the Privacy Eraser worker.
// The worker consumes scan and monitoring jobs from Pub/Sub and exposes
// a health endpoint for Cloud Run.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/api/middleware"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/database"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/provider/resilience"
	"github.com/privacyeraser/privacyeraser/internal/scan"
	"github.com/privacyeraser/privacyeraser/internal/user"
	"github.com/privacyeraser/privacyeraser/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "privacyeraser-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Privacy Eraser worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription == "" {
		subscription = "privacy-jobs-worker"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// Connect to Redis (scan progress)
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", redisAddr).Msg("failed to connect to redis")
	}

	// Repositories and shared services
	userRepo := user.NewPostgresRepository(pool)
	brokerRepo := broker.NewPostgresRepository(pool)
	exposureRepo := exposure.NewPostgresRepository(pool)
	alertService := alert.NewService(alert.NewPostgresRepository(pool))

	providerMetrics, err := middleware.NewProviderMetrics(serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	proberCfg := resilience.DefaultClientConfig("broker-scan")
	proberCfg.Metrics = providerMetrics
	prober := scan.NewSiteProber(resilience.NewClient(proberCfg), log)

	scanService := scan.NewService(scan.ServiceConfig{
		Brokers:   brokerRepo,
		Exposures: exposureRepo,
		Users:     userRepo,
		Alerts:    alertService,
		Prober:    prober,
		Progress:  scan.NewProgressStore(redisClient),
		Logger:    log,
	})

	monitor := worker.NewMonitorJob(worker.MonitorJobConfig{
		Config:    worker.DefaultMonitorConfig(),
		Exposures: exposureRepo,
		Brokers:   brokerRepo,
		Users:     userRepo,
		Alerts:    alertService,
		Prober:    prober,
		Logger:    log,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		Scans:            scanService,
		Monitor:          monitor,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer handler.Close()

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Receive blocks until the context is cancelled.
	go func() {
		if err := handler.Start(ctx); err != nil {
			log.Error().Err(err).Msg("pubsub receive stopped")
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
