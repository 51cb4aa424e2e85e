package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/privacyeraser/privacyeraser/internal/api/models"
	"github.com/privacyeraser/privacyeraser/internal/user"
)

var (
	// ErrUnknownPrice is returned for a checkout price key outside the
	// price table.
	ErrUnknownPrice = errors.New("unknown price")

	// ErrPriceNotConfigured is returned when a known price key has no
	// provider price ID configured.
	ErrPriceNotConfigured = errors.New("price not configured")

	// ErrNoBillingAccount is returned from portal creation when the user
	// has never been through checkout.
	ErrNoBillingAccount = errors.New("no billing account")
)

// Logical price keys accepted by checkout.
const (
	PriceBasicMonthly   = "basic_monthly"
	PriceBasicYearly    = "basic_yearly"
	PricePremiumMonthly = "premium_monthly"
	PricePremiumYearly  = "premium_yearly"
)

// Sync result statuses.
const (
	SyncStatusNoCustomer     = "no_customer"
	SyncStatusNoSubscription = "no_subscription"
	SyncStatusSynced         = "synced"
)

// PriceTable maps logical price keys to provider price IDs, configured
// from the environment.
type PriceTable struct {
	BasicMonthly   string
	BasicYearly    string
	PremiumMonthly string
	PremiumYearly  string
}

// Resolve returns the provider price ID for a logical key.
func (p PriceTable) Resolve(key string) (string, error) {
	var priceID string
	switch key {
	case PriceBasicMonthly:
		priceID = p.BasicMonthly
	case PriceBasicYearly:
		priceID = p.BasicYearly
	case PricePremiumMonthly:
		priceID = p.PremiumMonthly
	case PricePremiumYearly:
		priceID = p.PremiumYearly
	default:
		return "", ErrUnknownPrice
	}
	if priceID == "" {
		return "", ErrPriceNotConfigured
	}
	return priceID, nil
}

// PlanForPrice maps a provider price ID back to a plan tier. Unknown
// prices resolve to basic, matching how checkout only ever sells paid
// tiers.
func (p PriceTable) PlanForPrice(priceID string) string {
	if priceID != "" && (priceID == p.PremiumMonthly || priceID == p.PremiumYearly) {
		return user.PlanPremium
	}
	return user.PlanBasic
}

// StripeAPI is the provider surface the service depends on.
type StripeAPI interface {
	CreateCustomer(ctx context.Context, email, userID string) (*Customer, error)
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*PortalSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
}

var _ StripeAPI = (*Client)(nil)

// ServiceConfig holds billing service dependencies.
type ServiceConfig struct {
	Stripe        StripeAPI
	Users         user.Repository
	Prices        PriceTable
	FrontendURL   string
	WebhookSecret string
	Logger        zerolog.Logger
}

// Service implements the subscription business logic over the provider
// client and the user store.
type Service struct {
	stripe        StripeAPI
	users         user.Repository
	prices        PriceTable
	frontendURL   string
	webhookSecret string
	logger        zerolog.Logger
}

// NewService creates a billing service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		stripe:        cfg.Stripe,
		users:         cfg.Users,
		prices:        cfg.Prices,
		frontendURL:   cfg.FrontendURL,
		webhookSecret: cfg.WebhookSecret,
		logger:        cfg.Logger.With().Str("component", "billing").Logger(),
	}
}

// WebhookSecret exposes the endpoint secret for the webhook handler.
func (s *Service) WebhookSecret() string {
	return s.webhookSecret
}

// Subscription reports the user's current subscription state. Provider
// lookups are best-effort: a provider outage degrades to the locally
// stored plan rather than failing the request.
func (s *Service) Subscription(ctx context.Context, userID string) (*models.SubscriptionView, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &models.SubscriptionView{
		Plan:   models.Plan(u.Plan),
		Status: "inactive",
	}
	if u.Plan == user.PlanFree {
		view.Status = "active"
	}
	if u.SubscriptionEndsAt != nil {
		end := models.Timestamp(*u.SubscriptionEndsAt)
		view.CurrentPeriodEnd = &end
	}

	if u.StripeSubscriptionID != nil {
		view.Status = "inactive"
		sub, err := s.stripe.GetSubscription(ctx, *u.StripeSubscriptionID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("subscription lookup failed")
		} else {
			view.Status = sub.Status
			view.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		}
	}

	return view, nil
}

// Checkout opens a hosted checkout session for the given logical price
// key, creating the billing customer on first use.
func (s *Service) Checkout(ctx context.Context, userID, priceKey string) (*models.CheckoutResponse, error) {
	priceID, err := s.prices.Resolve(priceKey)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, u)
	if err != nil {
		return nil, err
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     u.ID,
		SuccessURL: s.frontendURL + "/dashboard/billing?success=true",
		CancelURL:  s.frontendURL + "/dashboard/billing?canceled=true",
	})
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}

	return &models.CheckoutResponse{CheckoutURL: session.URL}, nil
}

// Portal opens the billing portal for subscription self-management.
func (s *Service) Portal(ctx context.Context, userID string) (*models.PortalResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.StripeCustomerID == nil {
		return nil, ErrNoBillingAccount
	}

	session, err := s.stripe.CreatePortalSession(ctx, *u.StripeCustomerID, s.frontendURL+"/dashboard/billing")
	if err != nil {
		return nil, fmt.Errorf("creating portal session: %w", err)
	}

	return &models.PortalResponse{PortalURL: session.URL}, nil
}

// Sync reconciles the user's plan against the provider, covering the
// case where a webhook delivery was missed.
func (s *Service) Sync(ctx context.Context, userID string) (*models.SyncResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.StripeCustomerID == nil {
		return &models.SyncResponse{Status: SyncStatusNoCustomer, Plan: models.PlanFree}, nil
	}

	sub, err := s.stripe.ActiveSubscription(ctx, *u.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	if sub == nil {
		return &models.SyncResponse{Status: SyncStatusNoSubscription, Plan: models.Plan(u.Plan)}, nil
	}

	if err := s.applySubscription(ctx, u, sub); err != nil {
		return nil, err
	}

	return &models.SyncResponse{Status: SyncStatusSynced, Plan: models.Plan(u.Plan)}, nil
}

// HandleEvent applies a verified webhook event. Events for unknown
// users or customers are acknowledged without effect so the provider
// does not retry them forever.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(ctx, event)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case EventPaymentFailed:
		return s.handlePaymentFailed(ctx, event)
	default:
		s.logger.Debug().Str("event_type", event.Type).Msg("ignoring webhook event")
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *Event) error {
	var session checkoutObject
	if err := decodeObject(event, &session); err != nil {
		return err
	}

	userID := session.Metadata["user_id"]
	if userID == "" || session.Subscription == "" {
		return nil
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil
		}
		return err
	}

	sub, err := s.stripe.GetSubscription(ctx, session.Subscription)
	if err != nil {
		return fmt.Errorf("retrieving subscription: %w", err)
	}

	return s.applySubscription(ctx, u, sub)
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event *Event) error {
	var sub Subscription
	if err := decodeObject(event, &sub); err != nil {
		return err
	}

	u, err := s.users.FindByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil
		}
		return err
	}

	if sub.Status == "canceled" {
		return s.clearSubscription(ctx, u)
	}
	return s.applySubscription(ctx, u, &sub)
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *Event) error {
	var sub Subscription
	if err := decodeObject(event, &sub); err != nil {
		return err
	}

	u, err := s.users.FindByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil
		}
		return err
	}
	return s.clearSubscription(ctx, u)
}

func (s *Service) handlePaymentFailed(ctx context.Context, event *Event) error {
	var invoice invoiceObject
	if err := decodeObject(event, &invoice); err != nil {
		return err
	}
	s.logger.Warn().
		Str("customer_id", invoice.Customer).
		Msg("invoice payment failed")
	return nil
}

// ensureCustomer returns the user's billing customer ID, creating the
// customer on first use.
func (s *Service) ensureCustomer(ctx context.Context, u *user.User) (string, error) {
	if u.StripeCustomerID != nil {
		return *u.StripeCustomerID, nil
	}

	customer, err := s.stripe.CreateCustomer(ctx, u.Email, u.ID)
	if err != nil {
		return "", fmt.Errorf("creating customer: %w", err)
	}

	u.StripeCustomerID = &customer.ID
	u.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// applySubscription stores the subscription reference, period end and
// plan derived from the subscribed price.
func (s *Service) applySubscription(ctx context.Context, u *user.User, sub *Subscription) error {
	u.Plan = s.prices.PlanForPrice(sub.PriceID())
	subID := sub.ID
	u.StripeSubscriptionID = &subID
	u.SubscriptionEndsAt = sub.PeriodEnd()
	u.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_id", u.ID).
		Str("plan", u.Plan).
		Str("subscription_id", sub.ID).
		Msg("subscription applied")
	return nil
}

// clearSubscription drops the user back to the free tier.
func (s *Service) clearSubscription(ctx context.Context, u *user.User) error {
	u.Plan = user.PlanFree
	u.StripeSubscriptionID = nil
	u.SubscriptionEndsAt = nil
	u.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", u.ID).Msg("subscription cleared")
	return nil
}

func decodeObject(event *Event, out any) error {
	if err := json.Unmarshal(event.Data.Object, out); err != nil {
		return fmt.Errorf("%w: decoding %s object: %v", ErrInvalidPayload, event.Type, err)
	}
	return nil
}
