package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/api/response"
	"github.com/privacyeraser/privacyeraser/internal/billing"
)

// maxWebhookBytes bounds webhook payloads.
const maxWebhookBytes = 256 << 10

// BillingHandler handles subscription and billing endpoints.
type BillingHandler struct {
	billingService *billing.Service
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingService *billing.Service) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// GetSubscription handles GET /v1/billing/subscription.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	view, err := h.billingService.Subscription(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to load subscription")
		return
	}

	response.JSON(w, r, http.StatusOK, view)
}

// CreateCheckout handles POST /v1/billing/checkout - open a hosted
// checkout session for a plan upgrade.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	var input models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	resp, err := h.billingService.Checkout(r.Context(), userID, input.PriceID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrUnknownPrice):
			response.BadRequest(w, r, "invalid price ID", nil)
		case errors.Is(err, billing.ErrPriceNotConfigured):
			response.BadRequest(w, r, "price not configured", nil)
		default:
			response.InternalError(w, r, "failed to create checkout session")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// CreatePortal handles POST /v1/billing/portal - open the billing
// portal for subscription self-management.
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	resp, err := h.billingService.Portal(r.Context(), userID)
	if err != nil {
		if errors.Is(err, billing.ErrNoBillingAccount) {
			response.BadRequest(w, r, "no billing account found", nil)
			return
		}
		response.InternalError(w, r, "failed to create billing portal session")
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// SyncSubscription handles POST /v1/billing/sync - reconcile the plan
// against the provider when a webhook was missed.
func (h *BillingHandler) SyncSubscription(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	resp, err := h.billingService.Sync(r.Context(), userID)
	if err != nil {
		response.InternalError(w, r, "failed to sync subscription")
		return
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// Webhook handles POST /v1/billing/webhook - provider events. The
// route is unauthenticated; the signature header is the credential.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		response.BadRequest(w, r, "failed to read payload", nil)
		return
	}

	event, err := billing.ParseEvent(payload, r.Header.Get("Stripe-Signature"), h.billingService.WebhookSecret())
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvalidSignature):
			response.BadRequest(w, r, "invalid signature", nil)
		case errors.Is(err, billing.ErrInvalidPayload):
			response.BadRequest(w, r, "invalid payload", nil)
		default:
			response.BadRequest(w, r, "invalid webhook", nil)
		}
		return
	}

	if err := h.billingService.HandleEvent(r.Context(), event); err != nil {
		// Non-2xx makes the provider redeliver the event.
		response.InternalError(w, r, "failed to process event")
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]string{"status": "success"})
}
