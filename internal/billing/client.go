// Package billing integrates Stripe subscriptions: hosted checkout,
// the customer billing portal, and webhook-driven plan updates.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the Stripe API endpoint.
	DefaultBaseURL = "https://api.stripe.com"

	// ProviderName identifies the provider in logs and circuit breaker state.
	ProviderName = "stripe"

	maxResponseBytes = 1 << 20
)

// HTTPDoer abstracts the HTTP client for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Customer is a Stripe customer record.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SubscriptionItem carries the price attached to a subscription.
type SubscriptionItem struct {
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
}

// Subscription is the subset of a Stripe subscription the service reads.
type Subscription struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	Items             struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

// PriceID returns the price on the first subscription item, or "".
func (s *Subscription) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// PeriodEnd returns the current period end as a time, or nil when unset.
func (s *Subscription) PeriodEnd() *time.Time {
	if s.CurrentPeriodEnd == 0 {
		return nil
	}
	t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
	return &t
}

// CheckoutSession is a hosted checkout session.
type CheckoutSession struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

// PortalSession is a hosted billing portal session.
type PortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ClientConfig holds Stripe client configuration.
type ClientConfig struct {
	// SecretKey is the API secret key (sk_...).
	SecretKey string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	// HTTPClient overrides the resilient default, for tests.
	HTTPClient HTTPDoer

	// Timeout is the per-request timeout. Defaults to 10s.
	Timeout time.Duration

	// Metrics records outbound request outcomes (optional).
	Metrics resilience.RequestRecorder

	Logger zerolog.Logger
}

// Client is a minimal Stripe REST client covering the subscription
// lifecycle. Requests are form-encoded per the Stripe API convention.
type Client struct {
	secretKey string
	baseURL   string
	client    HTTPDoer
	logger    zerolog.Logger
}

// NewClient creates a Stripe client. Outbound calls go through a
// resilient HTTP client with retries and a circuit breaker unless a
// custom HTTPDoer is supplied.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = timeout
		rc.Metrics = cfg.Metrics
		doer = resilienceDoer{client: resilience.NewClient(rc)}
	}

	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    doer,
		logger:    cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// resilienceDoer adapts resilience.Client to HTTPDoer, keeping the
// request context attached.
type resilienceDoer struct {
	client *resilience.Client
}

func (d resilienceDoer) Do(req *http.Request) (*http.Response, error) {
	return d.client.DoWithContext(req.Context(), req)
}

// CreateCustomer registers a billing customer for a user. The user ID
// travels in metadata so webhook events can be traced back.
func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[user_id]", userID)

	var customer Customer
	if err := c.call(ctx, http.MethodPost, "/v1/customers", form, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CheckoutParams configures a hosted checkout session.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession opens a subscription checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", p.CustomerID)
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("metadata[user_id]", p.UserID)

	var session CheckoutSession
	if err := c.call(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreatePortalSession opens a billing portal session for subscription
// self-management.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var session PortalSession
	if err := c.call(ctx, http.MethodPost, "/v1/billing_portal/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSubscription retrieves a subscription by ID.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	path := "/v1/subscriptions/" + url.PathEscape(subscriptionID)
	if err := c.call(ctx, http.MethodGet, path, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ActiveSubscription returns the customer's active subscription, or nil
// when none exists.
func (c *Client) ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	query := url.Values{}
	query.Set("customer", customerID)
	query.Set("status", "active")
	query.Set("limit", "1")

	var list struct {
		Data []Subscription `json:"data"`
	}
	path := "/v1/subscriptions?" + query.Encode()
	if err := c.call(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

func (c *Client) call(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling stripe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe: %s (status %d)", apiErr.Error.Message, resp.StatusCode)
		}
		return fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
