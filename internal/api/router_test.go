package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyeraser/privacyeraser/internal/alert"
	"github.com/privacyeraser/privacyeraser/internal/api"
	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/auth"
	"github.com/privacyeraser/privacyeraser/internal/billing"
	"github.com/privacyeraser/privacyeraser/internal/broker"
	"github.com/privacyeraser/privacyeraser/internal/exposure"
	"github.com/privacyeraser/privacyeraser/internal/removal"
	"github.com/privacyeraser/privacyeraser/internal/scan"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

// nullDispatcher swallows scan jobs so tests control scan execution.
type nullDispatcher struct{}

func (nullDispatcher) Dispatch(_ context.Context, _ scan.Job) error { return nil }

// stubStripe satisfies the billing provider surface without network access.
type stubStripe struct{}

func (stubStripe) CreateCustomer(_ context.Context, _, _ string) (*billing.Customer, error) {
	return &billing.Customer{ID: "cus_test"}, nil
}

func (stubStripe) CreateCheckoutSession(_ context.Context, _ billing.CheckoutParams) (*billing.CheckoutSession, error) {
	return &billing.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/c/pay/cs_test"}, nil
}

func (stubStripe) CreatePortalSession(_ context.Context, _, _ string) (*billing.PortalSession, error) {
	return &billing.PortalSession{ID: "bps_test", URL: "https://billing.stripe.com/p/session/bps_test"}, nil
}

func (stubStripe) GetSubscription(_ context.Context, _ string) (*billing.Subscription, error) {
	return nil, fmt.Errorf("stripe: unexpected status 404")
}

func (stubStripe) ActiveSubscription(_ context.Context, _ string) (*billing.Subscription, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zerolog.New(io.Discard)

	users := user.NewInMemoryRepository()
	brokers := broker.NewInMemoryRepository()
	exposures := exposure.NewInMemoryRepository()
	requests := removal.NewInMemoryRepository(exposures)
	alerts := alert.NewService(alert.NewInMemoryRepository())

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.privacyeraser.io",
		Audience:   "privacyeraser-api",
	})
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: jwtService,
		Users:      users,
		Logger:     logger,
	})

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	scanService := scan.NewService(scan.ServiceConfig{
		Brokers:    brokers,
		Exposures:  exposures,
		Users:      users,
		Alerts:     alerts,
		Progress:   scan.NewProgressStore(redisClient),
		Dispatcher: nullDispatcher{},
		Logger:     logger,
	})

	removalService := removal.NewService(removal.ServiceConfig{
		Requests:  requests,
		Exposures: exposures,
		Brokers:   brokers,
		Users:     users,
		Alerts:    alerts,
		Logger:    logger,
	})

	billingService := billing.NewService(billing.ServiceConfig{
		Stripe: stubStripe{},
		Users:  users,
		Prices: billing.PriceTable{
			BasicMonthly:   "price_basic_m",
			BasicYearly:    "price_basic_y",
			PremiumMonthly: "price_premium_m",
			PremiumYearly:  "price_premium_y",
		},
		FrontendURL: "https://app.example.com",
		Logger:      logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:         "test",
		BuildTime:       "2026-01-01T00:00:00Z",
		Logger:          logger,
		AuthService:     authService,
		UserService:     user.NewService(users),
		BrokerService:   broker.NewService(brokers),
		ExposureService: exposure.NewService(exposures),
		ScanService:     scanService,
		RemovalService:  removalService,
		AlertService:    alerts,
		BillingService:  billingService,
	})
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// register creates an account through the API and returns its token.
func register(t *testing.T, router http.Handler, email string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", models.RegisterRequest{
		Email:    email,
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/ops/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)

	token := register(t, router, "jane@example.com")
	assert.NotEmpty(t, token)

	// Duplicate registration conflicts.
	w := doJSON(t, router, http.MethodPost, "/v1/auth/register", "", models.RegisterRequest{
		Email:    "jane@example.com",
		Password: "correct horse battery",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	// Login with the right password.
	w = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", models.LoginRequest{
		Email:    "jane@example.com",
		Password: "correct horse battery",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// And the wrong one.
	w = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", models.LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/users/me"},
		{http.MethodGet, "/v1/brokers"},
		{http.MethodGet, "/v1/requests"},
		{http.MethodGet, "/v1/monitoring/alerts"},
		{http.MethodGet, "/v1/billing/subscription"},
	}

	for _, p := range paths {
		t.Run(p.path, func(t *testing.T) {
			w := doJSON(t, router, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_MeAndProfileFlow(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "jane@example.com")

	// No profile saved yet.
	w := doJSON(t, router, http.MethodGet, "/v1/users/me/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	first, last := "Jane", "Doe"
	w = doJSON(t, router, http.MethodPut, "/v1/users/me/profile", token, models.ProfileInput{
		FirstName: &first,
		LastName:  &last,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile models.ProfileView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "Jane", profile.FirstName)

	w = doJSON(t, router, http.MethodGet, "/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me models.MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "jane@example.com", me.Email)
	assert.Equal(t, models.PlanFree, me.Plan)
	require.NotNil(t, me.Profile)
	assert.Equal(t, "Doe", me.Profile.LastName)
}

func TestRouter_ScanRequiresProfile(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "jane@example.com")

	w := doJSON(t, router, http.MethodPost, "/v1/brokers/scan", token, nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestRouter_ScanAcceptedWithProfile(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "jane@example.com")

	first, last := "Jane", "Doe"
	w := doJSON(t, router, http.MethodPut, "/v1/users/me/profile", token, models.ProfileInput{
		FirstName: &first,
		LastName:  &last,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/brokers/scan", token, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted models.ScanAccepted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	assert.NotEmpty(t, accepted.ScanID)
	assert.Equal(t, models.ScanStatePending, accepted.Status)
	assert.Contains(t, w.Header().Get("Location"), accepted.ScanID)

	// Status resolves the latest scan without an explicit ID.
	w = doJSON(t, router, http.MethodGet, "/v1/brokers/scan/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.ScanStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, accepted.ScanID, status.ScanID)
}

func TestRouter_RequestValidation(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "jane@example.com")

	// Missing exposure ID.
	w := doJSON(t, router, http.MethodPost, "/v1/requests", token, models.RequestCreate{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown exposure.
	w = doJSON(t, router, http.MethodPost, "/v1/requests", token, models.RequestCreate{
		ExposureID: "00000000-0000-0000-0000-000000000000",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Workflow transitions on unknown requests are 404s.
	w = doJSON(t, router, http.MethodPost, "/v1/requests/unknown/submit", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AlertsEmpty(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "jane@example.com")

	w := doJSON(t, router, http.MethodGet, "/v1/monitoring/alerts/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.AlertStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Zero(t, stats.Total)

	w = doJSON(t, router, http.MethodPost, "/v1/monitoring/alerts/read-all", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var read models.AlertReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &read))
	assert.Equal(t, "read", read.Status)
	assert.Zero(t, read.Count)
}

func TestRouter_BillingFlow(t *testing.T) {
	router := newTestRouter(t)
	token := register(t, router, "jane@example.com")

	w := doJSON(t, router, http.MethodGet, "/v1/billing/subscription", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sub models.SubscriptionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, "active", sub.Status)

	// Unknown price key rejected.
	w = doJSON(t, router, http.MethodPost, "/v1/billing/checkout", token, models.CheckoutRequest{
		PriceID: "lifetime_deal",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/billing/checkout", token, models.CheckoutRequest{
		PriceID: "basic_monthly",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var checkout models.CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkout))
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test", checkout.CheckoutURL)
}

func TestRouter_BillingWebhookIsPublic(t *testing.T) {
	router := newTestRouter(t)

	// No auth header; the (dev-mode) webhook accepts a bare event.
	payload := `{"id": "evt_1", "type": "charge.refunded", "data": {"object": {}}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", bytes.NewReader([]byte(payload)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/ops/health", "", nil)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestRouter_AuthRateLimit(t *testing.T) {
	router := newTestRouter(t)

	body := models.LoginRequest{Email: "jane@example.com", Password: "wrong"}

	var last int
	for i := 0; i < 12; i++ {
		w := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", body)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRouter_MalformedTokenRejected(t *testing.T) {
	router := newTestRouter(t)
	_ = register(t, router, "jane@example.com")

	w := doJSON(t, router, http.MethodGet, "/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Body.String())
}
