// Package api provides the HTTP API for Privacy Eraser.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/api/handler"
	"github.com/privacyeraser/privacyeraser/internal/api/middleware"
	"github.com/privacyeraser/privacyeraser/internal/auth"
	"github.com/privacyeraser/privacyeraser/internal/billing"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/removal"
	"github.com/privacyeraser/privacyeraser/internal/scan"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version         string
	BuildTime       string
	Logger          zerolog.Logger
	ServiceName     string
	AllowedOrigins  []string
	Metrics         *middleware.Metrics
	Database        handler.Pinger
	AuthService     *auth.Service
	UserService     *user.Service
	BrokerService   *broker.Service
	ExposureService *exposure.Service
	ScanService     *scan.Service
	RemovalService  *removal.Service
	AlertService    *alert.Service
	BillingService  *billing.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "privacyeraser-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders) // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)      // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON) // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Database)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	meHandler := handler.NewMeHandler(cfg.UserService)
	brokerHandler := handler.NewBrokerHandler(cfg.BrokerService, cfg.ExposureService, cfg.ScanService)
	requestHandler := handler.NewRequestHandler(cfg.RemovalService)
	alertHandler := handler.NewAlertHandler(cfg.AlertService)
	billingHandler := handler.NewBillingHandler(cfg.BillingService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories:
	// 10 req/min per IP for auth, 30 req/min per user for scans,
	// 100 req/min per user elsewhere.
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)
	expensiveRateLimit := middleware.RateLimitByUser(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByUser(middleware.StandardRateLimit)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Post("/verify-email", authHandler.VerifyEmail)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Account and PII profile (authenticated)
		r.Route("/users/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/", meHandler.GetMe)
			r.Get("/profile", meHandler.GetProfile)
			r.Put("/profile", meHandler.UpsertProfile)
		})

		// Broker catalog, exposures and scans (authenticated)
		r.Route("/brokers", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", brokerHandler.ListBrokers)
			r.With(standardRateLimit).Get("/stats", brokerHandler.DashboardStats)
			r.With(standardRateLimit).Get("/exposures", brokerHandler.ListExposures)
			// Scans fan out HTTP probes; keep them strictly limited
			r.With(expensiveRateLimit).Post("/scan", brokerHandler.StartScan)
			r.With(standardRateLimit).Get("/scan/status", brokerHandler.ScanStatus)
		})

		// Removal request workflow (authenticated)
		r.Route("/requests", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/", requestHandler.ListRequests)
			r.Post("/", requestHandler.CreateRequest)
			r.Get("/stats", requestHandler.RequestStats)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/submit", requestHandler.SubmitRequest)
				r.Post("/complete", requestHandler.CompleteRequest)
			})
		})

		// Monitoring alerts (authenticated)
		r.Route("/monitoring/alerts", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/", alertHandler.ListAlerts)
			r.Get("/stats", alertHandler.AlertStats)
			r.Post("/read-all", alertHandler.MarkAllRead)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/read", alertHandler.MarkRead)
				r.Delete("/", alertHandler.Dismiss)
			})
		})

		// Billing (authenticated, except the provider webhook)
		r.Route("/billing", func(r chi.Router) {
			// Webhook authenticates via its signature header
			r.Post("/webhook", billingHandler.Webhook)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(standardRateLimit)
				r.Get("/subscription", billingHandler.GetSubscription)
				r.Post("/checkout", billingHandler.CreateCheckout)
				r.Post("/portal", billingHandler.CreatePortal)
				r.Post("/sync", billingHandler.SyncSubscription)
			})
		})
	})

	return r
}
