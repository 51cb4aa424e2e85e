package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types the service acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentFailed       = "invoice.payment_failed"
)

// DefaultTolerance bounds how old a webhook timestamp may be.
const DefaultTolerance = 5 * time.Minute

var (
	// ErrInvalidPayload is returned for webhook bodies that do not parse.
	ErrInvalidPayload = errors.New("invalid webhook payload")

	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Event is a Stripe webhook event. Data.Object holds the raw event
// object and is decoded per event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// checkoutObject is the checkout.session.completed event object.
type checkoutObject struct {
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// invoiceObject is the invoice.payment_failed event object.
type invoiceObject struct {
	Customer string `json:"customer"`
}

// ParseEvent verifies the Stripe-Signature header against the payload
// and decodes the event. An empty secret skips verification, for local
// development against the Stripe CLI.
func ParseEvent(payload []byte, sigHeader, secret string) (*Event, error) {
	if secret != "" {
		if err := verifySignature(payload, sigHeader, secret, time.Now()); err != nil {
			return nil, err
		}
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}
	return &event, nil
}

// verifySignature checks the v1 scheme: HMAC-SHA256 of "{t}.{payload}"
// keyed with the endpoint secret, with a bounded timestamp skew.
func verifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	var timestamp int64
	var candidates []string

	for _, part := range strings.Split(sigHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, value)
		}
	}

	if timestamp == 0 || len(candidates) == 0 {
		return fmt.Errorf("%w: missing timestamp or signature", ErrInvalidSignature)
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > DefaultTolerance || age < -DefaultTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// SignPayload produces a Stripe-Signature header value for the payload,
// used by tests to exercise webhook verification.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
