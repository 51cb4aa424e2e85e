package billing_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/billing"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

var testPrices = billing.PriceTable{
	BasicMonthly:   "price_basic_m",
	BasicYearly:    "price_basic_y",
	PremiumMonthly: "price_premium_m",
	PremiumYearly:  "price_premium_y",
}

// fakeStripe records calls and serves canned subscription state.
type fakeStripe struct {
	customersCreated int
	subscriptions    map[string]*billing.Subscription
	active           *billing.Subscription
	checkouts        []billing.CheckoutParams
	portalCustomers  []string
}

func (f *fakeStripe) CreateCustomer(_ context.Context, _, _ string) (*billing.Customer, error) {
	f.customersCreated++
	return &billing.Customer{ID: fmt.Sprintf("cus_%d", f.customersCreated)}, nil
}

func (f *fakeStripe) CreateCheckoutSession(_ context.Context, p billing.CheckoutParams) (*billing.CheckoutSession, error) {
	f.checkouts = append(f.checkouts, p)
	return &billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

func (f *fakeStripe) CreatePortalSession(_ context.Context, customerID, _ string) (*billing.PortalSession, error) {
	f.portalCustomers = append(f.portalCustomers, customerID)
	return &billing.PortalSession{ID: "bps_1", URL: "https://billing.stripe.com/p/session/bps_1"}, nil
}

func (f *fakeStripe) GetSubscription(_ context.Context, subscriptionID string) (*billing.Subscription, error) {
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("stripe: unexpected status 404")
	}
	return sub, nil
}

func (f *fakeStripe) ActiveSubscription(_ context.Context, _ string) (*billing.Subscription, error) {
	return f.active, nil
}

func subscriptionJSON(id, customer, priceID, status string, periodEnd int64) *billing.Subscription {
	raw := fmt.Sprintf(`{
		"id": %q,
		"customer": %q,
		"status": %q,
		"cancel_at_period_end": false,
		"current_period_end": %d,
		"items": {"data": [{"price": {"id": %q}}]}
	}`, id, customer, status, periodEnd, priceID)

	var sub billing.Subscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		panic(err)
	}
	return &sub
}

type billingFixture struct {
	svc    *billing.Service
	users  user.Repository
	stripe *fakeStripe
	userID string
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()

	users := user.NewInMemoryRepository()
	stripe := &fakeStripe{subscriptions: map[string]*billing.Subscription{}}

	u := &user.User{
		ID:       uuid.NewString(),
		Email:    "jane@example.com",
		Plan:     user.PlanFree,
		IsActive: true,
	}
	require.NoError(t, users.Create(context.Background(), u))

	svc := billing.NewService(billing.ServiceConfig{
		Stripe:      stripe,
		Users:       users,
		Prices:      testPrices,
		FrontendURL: "https://app.example.com",
		Logger:      zerolog.Nop(),
	})

	return &billingFixture{svc: svc, users: users, stripe: stripe, userID: u.ID}
}

func (f *billingFixture) user(t *testing.T) *user.User {
	t.Helper()
	u, err := f.users.FindByID(context.Background(), f.userID)
	require.NoError(t, err)
	return u
}

func TestPriceTable_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{name: "basic monthly", key: billing.PriceBasicMonthly, want: "price_basic_m"},
		{name: "premium yearly", key: billing.PricePremiumYearly, want: "price_premium_y"},
		{name: "unknown key", key: "enterprise_monthly", wantErr: billing.ErrUnknownPrice},
		{name: "raw provider id rejected", key: "price_basic_m", wantErr: billing.ErrUnknownPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testPrices.Resolve(tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceTable_Resolve_NotConfigured(t *testing.T) {
	partial := billing.PriceTable{BasicMonthly: "price_basic_m"}

	_, err := partial.Resolve(billing.PricePremiumMonthly)
	assert.ErrorIs(t, err, billing.ErrPriceNotConfigured)
}

func TestService_Checkout_CreatesCustomerOnce(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Checkout(ctx, f.userID, billing.PriceBasicMonthly)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_1", resp.CheckoutURL)

	u := f.user(t)
	require.NotNil(t, u.StripeCustomerID)
	assert.Equal(t, "cus_1", *u.StripeCustomerID)

	_, err = f.svc.Checkout(ctx, f.userID, billing.PricePremiumMonthly)
	require.NoError(t, err)
	assert.Equal(t, 1, f.stripe.customersCreated)

	require.Len(t, f.stripe.checkouts, 2)
	assert.Equal(t, "price_basic_m", f.stripe.checkouts[0].PriceID)
	assert.Equal(t, "price_premium_m", f.stripe.checkouts[1].PriceID)
	assert.Equal(t, "https://app.example.com/dashboard/billing?success=true", f.stripe.checkouts[0].SuccessURL)
}

func TestService_Checkout_UnknownPrice(t *testing.T) {
	f := newBillingFixture(t)

	_, err := f.svc.Checkout(context.Background(), f.userID, "lifetime_deal")
	assert.ErrorIs(t, err, billing.ErrUnknownPrice)
	assert.Zero(t, f.stripe.customersCreated)
}

func TestService_Portal(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	_, err := f.svc.Portal(ctx, f.userID)
	assert.ErrorIs(t, err, billing.ErrNoBillingAccount)

	_, err = f.svc.Checkout(ctx, f.userID, billing.PriceBasicMonthly)
	require.NoError(t, err)

	resp, err := f.svc.Portal(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/session/bps_1", resp.PortalURL)
	assert.Equal(t, []string{"cus_1"}, f.stripe.portalCustomers)
}

func TestService_Subscription_FreePlan(t *testing.T) {
	f := newBillingFixture(t)

	view, err := f.svc.Subscription(context.Background(), f.userID)
	require.NoError(t, err)

	assert.Equal(t, models.PlanFree, view.Plan)
	assert.Equal(t, "active", view.Status)
	assert.Nil(t, view.CurrentPeriodEnd)
	assert.False(t, view.CancelAtPeriodEnd)
}

func TestService_Subscription_PaidPlan(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	periodEnd := time.Now().AddDate(0, 1, 0).Unix()
	f.stripe.subscriptions["sub_1"] = subscriptionJSON("sub_1", "cus_1", "price_premium_m", "active", periodEnd)

	u := f.user(t)
	customerID, subID := "cus_1", "sub_1"
	endsAt := time.Unix(periodEnd, 0).UTC()
	u.Plan = user.PlanPremium
	u.StripeCustomerID = &customerID
	u.StripeSubscriptionID = &subID
	u.SubscriptionEndsAt = &endsAt
	require.NoError(t, f.users.Update(ctx, u))

	view, err := f.svc.Subscription(ctx, f.userID)
	require.NoError(t, err)

	assert.Equal(t, models.PlanPremium, view.Plan)
	assert.Equal(t, "active", view.Status)
	require.NotNil(t, view.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, view.CurrentPeriodEnd.Time().Unix())
}

func TestService_Sync(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Sync(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, billing.SyncStatusNoCustomer, resp.Status)

	_, err = f.svc.Checkout(ctx, f.userID, billing.PricePremiumMonthly)
	require.NoError(t, err)

	resp, err = f.svc.Sync(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, billing.SyncStatusNoSubscription, resp.Status)
	assert.Equal(t, models.PlanFree, resp.Plan)

	periodEnd := time.Now().AddDate(1, 0, 0).Unix()
	f.stripe.active = subscriptionJSON("sub_9", "cus_1", "price_premium_y", "active", periodEnd)

	resp, err = f.svc.Sync(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, billing.SyncStatusSynced, resp.Status)
	assert.Equal(t, models.PlanPremium, resp.Plan)

	u := f.user(t)
	assert.Equal(t, user.PlanPremium, u.Plan)
	require.NotNil(t, u.StripeSubscriptionID)
	assert.Equal(t, "sub_9", *u.StripeSubscriptionID)
	require.NotNil(t, u.SubscriptionEndsAt)
	assert.Equal(t, periodEnd, u.SubscriptionEndsAt.Unix())
}

func webhookEvent(t *testing.T, eventType string, object string) *billing.Event {
	t.Helper()

	payload := fmt.Sprintf(`{"id": "evt_1", "type": %q, "data": {"object": %s}}`, eventType, object)
	event, err := billing.ParseEvent([]byte(payload), "", "")
	require.NoError(t, err)
	return event
}

func TestService_HandleEvent_CheckoutCompleted(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	periodEnd := time.Now().AddDate(0, 1, 0).Unix()
	f.stripe.subscriptions["sub_1"] = subscriptionJSON("sub_1", "cus_1", "price_basic_m", "active", periodEnd)

	event := webhookEvent(t, billing.EventCheckoutCompleted, fmt.Sprintf(
		`{"customer": "cus_1", "subscription": "sub_1", "metadata": {"user_id": %q}}`, f.userID))
	require.NoError(t, f.svc.HandleEvent(ctx, event))

	u := f.user(t)
	assert.Equal(t, user.PlanBasic, u.Plan)
	require.NotNil(t, u.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *u.StripeSubscriptionID)
	require.NotNil(t, u.SubscriptionEndsAt)
}

func TestService_HandleEvent_UnknownUserIgnored(t *testing.T) {
	f := newBillingFixture(t)

	event := webhookEvent(t, billing.EventCheckoutCompleted,
		`{"customer": "cus_1", "subscription": "sub_1", "metadata": {"user_id": "missing"}}`)
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	assert.Equal(t, user.PlanFree, f.user(t).Plan)
}

func TestService_HandleEvent_SubscriptionUpdated(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	customerID := "cus_1"
	u := f.user(t)
	u.StripeCustomerID = &customerID
	require.NoError(t, f.users.Update(ctx, u))

	periodEnd := time.Now().AddDate(1, 0, 0).Unix()
	event := webhookEvent(t, billing.EventSubscriptionUpdated, fmt.Sprintf(`{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"current_period_end": %d,
		"items": {"data": [{"price": {"id": "price_premium_m"}}]}
	}`, periodEnd))
	require.NoError(t, f.svc.HandleEvent(ctx, event))

	assert.Equal(t, user.PlanPremium, f.user(t).Plan)
}

func TestService_HandleEvent_SubscriptionCanceled(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	customerID, subID := "cus_1", "sub_1"
	endsAt := time.Now().AddDate(0, 1, 0)
	u := f.user(t)
	u.Plan = user.PlanPremium
	u.StripeCustomerID = &customerID
	u.StripeSubscriptionID = &subID
	u.SubscriptionEndsAt = &endsAt
	require.NoError(t, f.users.Update(ctx, u))

	event := webhookEvent(t, billing.EventSubscriptionDeleted,
		`{"id": "sub_1", "customer": "cus_1", "status": "canceled", "items": {"data": []}}`)
	require.NoError(t, f.svc.HandleEvent(ctx, event))

	u = f.user(t)
	assert.Equal(t, user.PlanFree, u.Plan)
	assert.Nil(t, u.StripeSubscriptionID)
	assert.Nil(t, u.SubscriptionEndsAt)

	// Customer reference survives so the user can resubscribe.
	require.NotNil(t, u.StripeCustomerID)
}

func TestService_HandleEvent_UnhandledTypeIgnored(t *testing.T) {
	f := newBillingFixture(t)

	event := webhookEvent(t, "charge.refunded", `{"id": "ch_1"}`)
	assert.NoError(t, f.svc.HandleEvent(context.Background(), event))
}
