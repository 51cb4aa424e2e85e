// Package email sends transactional mail through the Resend API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/privacyeraser/privacyeraser/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the Resend API.
	DefaultBaseURL = "https://api.resend.com"

	// ProviderName identifies this provider.
	ProviderName = "resend"
)

// ClientConfig holds configuration for the Resend client.
type ClientConfig struct {
	// APIKey authenticates against the Resend API.
	APIKey string

	// FromAddress is the sender for all outgoing mail.
	FromAddress string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Metrics records outbound request outcomes (optional).
	Metrics resilience.RequestRecorder
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Resend API client.
type Client struct {
	baseURL     string
	apiKey      string
	fromAddress string
	httpClient  HTTPDoer
}

// NewClient creates a new Resend client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Metrics:         cfg.Metrics,
		})
	}

	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      cfg.APIKey,
		fromAddress: cfg.FromAddress,
		httpClient:  httpClient,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send delivers one HTML email and returns the provider's message ID.
func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	payload, err := json.Marshal(sendRequest{
		From:    c.fromAddress,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", fmt.Errorf("encoding email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading email response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("resend API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("resend API returned status %d", resp.StatusCode)
	}

	var sent sendResponse
	if err := json.Unmarshal(body, &sent); err != nil {
		return "", fmt.Errorf("decoding email response: %w", err)
	}
	return sent.ID, nil
}
