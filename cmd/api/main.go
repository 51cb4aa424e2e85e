// Package main provides the entrypoint for the Privacy Eraser API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/api"
	"github.com/privacyeraser/privacyeraser/internal/api/middleware"
	"github.com/privacyeraser/privacyeraser/internal/auth"
	"github.com/privacyeraser/privacyeraser/internal/billing"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/database"
	"github.com/privacyeraser/privacyeraser/internal/email"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/provider/resilience"
	"github.com/privacyeraser/privacyeraser/internal/removal"
	"github.com/privacyeraser/privacyeraser/internal/scan"
	"github.com/privacyeraser/privacyeraser/internal/telemetry"
	"github.com/privacyeraser/privacyeraser/internal/user"
	"github.com/privacyeraser/privacyeraser/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "privacyeraser-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Privacy Eraser API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Outbound provider metrics, shared by the Stripe, Resend and
	// broker-scan clients.
	providerMetrics, err := middleware.NewProviderMetrics(serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

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
	log.Info().Str("addr", redisAddr).Msg("redis connected")

	// Repositories
	userRepo := user.NewPostgresRepository(pool)
	brokerRepo := broker.NewPostgresRepository(pool)
	exposureRepo := exposure.NewPostgresRepository(pool)
	alertRepo := alert.NewPostgresRepository(pool)
	requestRepo := removal.NewPostgresRepository(pool)

	// Seed the broker catalog on startup; inserts are idempotent.
	if err := broker.Seed(ctx, brokerRepo); err != nil {
		log.Fatal().Err(err).Msg("failed to seed broker catalog")
	}

	// Email (Resend). Without an API key the mailer is left nil and
	// auth/removal flows skip sending.
	var mailer *email.Service
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		from := os.Getenv("EMAIL_FROM")
		if from == "" {
			from = "Privacy Eraser <noreply@privacyeraser.io>"
		}
		mailer = email.NewService(email.ServiceConfig{
			Sender: email.NewClient(email.ClientConfig{
				APIKey:      apiKey,
				FromAddress: from,
				Metrics:     providerMetrics,
			}),
			FrontendURL: frontendURL,
			Logger:      log,
		})
		log.Info().Msg("email service initialized")
	} else {
		log.Warn().Msg("RESEND_API_KEY not set - transactional mail disabled")
	}

	// Auth
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
	})

	// Assign the interface fields only when a mailer exists so the
	// services' nil checks keep working.
	var authMailer auth.Mailer
	var removalMailer removal.Mailer
	if mailer != nil {
		authMailer = mailer
		removalMailer = mailer
	}

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: jwtService,
		Users:      userRepo,
		Mailer:     authMailer,
		Logger:     log,
	})
	log.Info().Msg("auth service initialized")

	// Domain services
	userService := user.NewService(userRepo)
	brokerService := broker.NewService(brokerRepo)
	exposureService := exposure.NewService(exposureRepo)
	alertService := alert.NewService(alertRepo)

	// Scan dispatch: Pub/Sub when configured, otherwise scans run
	// in-process inside this binary.
	var dispatcher scan.Dispatcher
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		topic := os.Getenv("PUBSUB_TOPIC")
		if topic == "" {
			topic = "privacy-jobs"
		}
		publisher, pubErr := worker.NewScanPublisher(ctx, worker.ScanPublisherConfig{
			ProjectID: projectID,
			TopicName: topic,
			Logger:    log,
		})
		if pubErr != nil {
			log.Fatal().Err(pubErr).Msg("failed to create scan publisher")
		}
		defer publisher.Close()
		dispatcher = publisher
		log.Info().Str("topic", topic).Msg("scan jobs dispatched via Pub/Sub")
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - scans run in-process")
	}

	proberCfg := resilience.DefaultClientConfig("broker-scan")
	proberCfg.Metrics = providerMetrics
	prober := scan.NewSiteProber(resilience.NewClient(proberCfg), log)

	scanService := scan.NewService(scan.ServiceConfig{
		Brokers:    brokerRepo,
		Exposures:  exposureRepo,
		Users:      userRepo,
		Alerts:     alertService,
		Prober:     prober,
		Progress:   scan.NewProgressStore(redisClient),
		Dispatcher: dispatcher,
		Logger:     log,
	})

	removalService := removal.NewService(removal.ServiceConfig{
		Requests:  requestRepo,
		Exposures: exposureRepo,
		Brokers:   brokerRepo,
		Users:     userRepo,
		Alerts:    alertService,
		Mailer:    removalMailer,
		Logger:    log,
	})

	// Billing (Stripe)
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY not set - billing endpoints will fail")
	}
	billingService := billing.NewService(billing.ServiceConfig{
		Stripe: billing.NewClient(billing.ClientConfig{
			SecretKey: stripeKey,
			Metrics:   providerMetrics,
			Logger:    log,
		}),
		Users: userRepo,
		Prices: billing.PriceTable{
			BasicMonthly:   os.Getenv("STRIPE_PRICE_BASIC_MONTHLY"),
			BasicYearly:    os.Getenv("STRIPE_PRICE_BASIC_YEARLY"),
			PremiumMonthly: os.Getenv("STRIPE_PRICE_PREMIUM_MONTHLY"),
			PremiumYearly:  os.Getenv("STRIPE_PRICE_PREMIUM_YEARLY"),
		},
		FrontendURL:   frontendURL,
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Logger:        log,
	})

	var allowedOrigins []string
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		allowedOrigins = strings.Split(raw, ",")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		AllowedOrigins:  allowedOrigins,
		Metrics:         metrics,
		Database:        pool,
		AuthService:     authService,
		UserService:     userService,
		BrokerService:   brokerService,
		ExposureService: exposureService,
		ScanService:     scanService,
		RemovalService:  removalService,
		AlertService:    alertService,
		BillingService:  billingService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
