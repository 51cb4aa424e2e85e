package models

// CheckoutRequest is the body for POST /v1/billing/checkout.
// PriceID is a logical plan key (basic_monthly, basic_yearly,
// premium_monthly, premium_yearly), not a raw provider price ID.
type CheckoutRequest struct {
	PriceID string `json:"priceId"`
}

// CheckoutResponse carries the provider-hosted checkout URL.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// PortalResponse carries the provider-hosted billing portal URL.
type PortalResponse struct {
	PortalURL string `json:"portalUrl"`
}

// SubscriptionView is returned by GET /v1/billing/subscription.
type SubscriptionView struct {
	Plan              Plan       `json:"plan"`
	Status            string     `json:"status"`
	CurrentPeriodEnd  *Timestamp `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
}

// SyncResponse is returned by POST /v1/billing/sync.
type SyncResponse struct {
	Status string `json:"status"`
	Plan   Plan   `json:"plan"`
}
