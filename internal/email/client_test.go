package email_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyeraser/privacyeraser/internal/email"
)

func TestClient_Send(t *testing.T) {
	var captured struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "msg_123"})
	}))
	defer server.Close()

	client := email.NewClient(email.ClientConfig{
		APIKey:      "re_test_key",
		FromAddress: "noreply@privacyeraser.io",
		BaseURL:     server.URL,
	})

	id, err := client.Send(context.Background(), "jane@example.com", "Hello", "<p>Hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)

	assert.Equal(t, "Bearer re_test_key", authHeader)
	assert.Equal(t, "noreply@privacyeraser.io", captured.From)
	assert.Equal(t, []string{"jane@example.com"}, captured.To)
	assert.Equal(t, "Hello", captured.Subject)
	assert.Equal(t, "<p>Hi</p>", captured.HTML)
}

func TestClient_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"name":    "validation_error",
			"message": "Invalid `to` address",
		})
	}))
	defer server.Close()

	client := email.NewClient(email.ClientConfig{
		APIKey:  "re_test_key",
		BaseURL: server.URL,
	})

	_, err := client.Send(context.Background(), "bad", "Hello", "<p>Hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid `to` address")
}

func TestService_Templates(t *testing.T) {
	var sent []struct{ to, subject, html string }

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To      []string `json:"to"`
			Subject string   `json:"subject"`
			HTML    string   `json:"html"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sent = append(sent, struct{ to, subject, html string }{req.To[0], req.Subject, req.HTML})
		json.NewEncoder(w).Encode(map[string]string{"id": "msg_1"})
	}))
	defer server.Close()

	client := email.NewClient(email.ClientConfig{APIKey: "k", BaseURL: server.URL})
	svc := email.NewService(email.ServiceConfig{
		Sender:      client,
		FrontendURL: "https://app.privacyeraser.io",
		Logger:      zerolog.Nop(),
	})
	ctx := context.Background()

	require.NoError(t, svc.SendVerification(ctx, "jane@example.com", "tok-verify"))
	require.NoError(t, svc.SendPasswordReset(ctx, "jane@example.com", "tok-reset"))
	require.NoError(t, svc.SendRemovalConfirmed(ctx, "jane@example.com", "Spokeo"))

	require.Len(t, sent, 3)

	assert.Contains(t, sent[0].html, "https://app.privacyeraser.io/auth/verify?token=tok-verify")
	assert.Contains(t, sent[0].subject, "Verify your email")

	assert.Contains(t, sent[1].html, "https://app.privacyeraser.io/auth/reset-password?token=tok-reset")
	assert.Contains(t, sent[1].subject, "Reset your password")

	assert.Contains(t, sent[2].html, "Spokeo")
	assert.Contains(t, sent[2].subject, "Removal Complete: Spokeo")
}
