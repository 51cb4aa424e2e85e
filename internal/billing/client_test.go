package billing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyeraser/privacyeraser/internal/billing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *billing.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return billing.NewClient(billing.ClientConfig{
		SecretKey:  "sk_test_123",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_CreateCheckoutSession(t *testing.T) {
	var gotAuth string
	var gotForm map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for key := range r.PostForm {
			gotForm[key] = r.PostForm.Get(key)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_1",
			"url": "https://checkout.stripe.com/c/pay/cs_test_1",
		})
	})

	session, err := client.CreateCheckoutSession(context.Background(), billing.CheckoutParams{
		CustomerID: "cus_123",
		PriceID:    "price_basic",
		UserID:     "user-1",
		SuccessURL: "https://app.example.com/dashboard/billing?success=true",
		CancelURL:  "https://app.example.com/dashboard/billing?canceled=true",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)
	assert.Equal(t, "cus_123", gotForm["customer"])
	assert.Equal(t, "subscription", gotForm["mode"])
	assert.Equal(t, "price_basic", gotForm["line_items[0][price]"])
	assert.Equal(t, "1", gotForm["line_items[0][quantity]"])
	assert.Equal(t, "user-1", gotForm["metadata[user_id]"])
}

func TestClient_ActiveSubscription(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions", r.URL.Path)
		assert.Equal(t, "cus_123", r.URL.Query().Get("customer"))
		assert.Equal(t, "active", r.URL.Query().Get("status"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{
				"id": "sub_1",
				"customer": "cus_123",
				"status": "active",
				"cancel_at_period_end": false,
				"current_period_end": 1767225600,
				"items": {"data": [{"price": {"id": "price_premium"}}]}
			}]
		}`))
	})

	sub, err := client.ActiveSubscription(context.Background(), "cus_123")
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "price_premium", sub.PriceID())
	require.NotNil(t, sub.PeriodEnd())
	assert.Equal(t, int64(1767225600), sub.PeriodEnd().Unix())
}

func TestClient_ActiveSubscription_None(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	sub, err := client.ActiveSubscription(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "No such price: 'price_missing'"}}`))
	})

	_, err := client.GetSubscription(context.Background(), "sub_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such price")
}
