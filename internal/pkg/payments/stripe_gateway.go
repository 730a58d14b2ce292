package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/cache"
)

const priceCacheTTL = 24 * time.Hour

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	api      *client.API
	currency string
	timeout  time.Duration
}

func NewStripeGateway(secretKey, currency string, timeout time.Duration) *StripeGateway {
	if currency == "" {
		currency = "eur"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StripeGateway{
		api:      client.New(secretKey, nil),
		currency: currency,
		timeout:  timeout,
	}
}

func (g *StripeGateway) Enabled() bool { return true }

func (g *StripeGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// EnsureRecurringPrice resolves a price by lookup key, consulting redis first
// and creating product and price on Stripe when none exists yet.
func (g *StripeGateway) EnsureRecurringPrice(ctx context.Context, spec PriceSpec) (string, error) {
	cacheKey := "stripe:price:" + spec.LookupKey
	if id, err := cache.Get(ctx, cacheKey); err == nil && id != "" {
		return id, nil
	} else if err != nil && !errors.Is(err, redis.Nil) {
		log.Warnf("[Payments] price cache read failed for %s: %v", spec.LookupKey, err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	listParams := &stripe.PriceListParams{
		LookupKeys: []*string{stripe.String(spec.LookupKey)},
		Active:     stripe.Bool(true),
	}
	listParams.Context = ctx
	iter := g.api.Prices.List(listParams)
	for iter.Next() {
		id := iter.Price().ID
		g.cachePrice(ctx, cacheKey, id)
		return id, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("list prices %s: %w", spec.LookupKey, err)
	}

	params := &stripe.PriceParams{
		Currency:   stripe.String(g.currency),
		UnitAmount: stripe.Int64(spec.UnitAmount),
		LookupKey:  stripe.String(spec.LookupKey),
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(spec.ProductName),
		},
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(spec.Interval),
		},
	}
	params.Context = ctx
	for k, v := range spec.Metadata {
		params.AddMetadata(k, v)
	}
	p, err := g.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("create price %s: %w", spec.LookupKey, err)
	}
	log.Infof("[Payments] Created Stripe price %s for %s", p.ID, spec.LookupKey)
	g.cachePrice(ctx, cacheKey, p.ID)
	return p.ID, nil
}

func (g *StripeGateway) cachePrice(ctx context.Context, key, id string) {
	if err := cache.Set(ctx, key, id, priceCacheTTL); err != nil {
		log.Debugf("[Payments] price cache write skipped for %s: %v", key, err)
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}
	if in.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(in.ClientReferenceID)
	}
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	} else if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	switch in.Mode {
	case ModeSubscription:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(in.PriceID),
			Quantity: stripe.Int64(1),
		}}
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata:    in.Metadata,
			Description: stripe.String(in.Description),
		}
	case ModePayment:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(in.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(in.ProductName),
					Description: stripe.String(in.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}}
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata:    in.Metadata,
			Description: stripe.String(in.Description),
		}
		if in.CustomerEmail != "" {
			params.PaymentIntentData.ReceiptEmail = stripe.String(in.CustomerEmail)
		}
	default:
		return nil, fmt.Errorf("unsupported checkout mode %q", in.Mode)
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, id string) (*RemoteSubscription, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	s, err := g.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return FromStripeSubscription(s), nil
}

func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, id string, cancelAtEnd bool) (*RemoteSubscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancelAtEnd)}
	return g.update(ctx, id, params)
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, id string) (*RemoteSubscription, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	s, err := g.api.Subscriptions.Cancel(id, params)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription %s: %w", id, err)
	}
	return FromStripeSubscription(s), nil
}

func (g *StripeGateway) PauseSubscription(ctx context.Context, id string) (*RemoteSubscription, error) {
	params := &stripe.SubscriptionParams{
		PauseCollection: &stripe.SubscriptionPauseCollectionParams{
			Behavior: stripe.String(string(stripe.SubscriptionPauseCollectionBehaviorVoid)),
		},
	}
	return g.update(ctx, id, params)
}

// ResumeSubscription clears pause_collection and any scheduled cancellation.
func (g *StripeGateway) ResumeSubscription(ctx context.Context, id string) (*RemoteSubscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(false)}
	params.AddExtra("pause_collection", "")
	return g.update(ctx, id, params)
}

func (g *StripeGateway) update(ctx context.Context, id string, params *stripe.SubscriptionParams) (*RemoteSubscription, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	params.Context = ctx
	s, err := g.api.Subscriptions.Update(id, params)
	if err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", id, err)
	}
	return FromStripeSubscription(s), nil
}

// FromStripeSubscription maps the SDK type onto RemoteSubscription.
func FromStripeSubscription(s *stripe.Subscription) *RemoteSubscription {
	if s == nil {
		return nil
	}
	r := &RemoteSubscription{
		ID:                s.ID,
		Status:            LocalStatus(string(s.Status), s.PauseCollection != nil),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		r.CustomerID = s.Customer.ID
	}
	if s.CurrentPeriodEnd > 0 {
		t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		r.CurrentPeriodEnd = &t
	}
	return r
}
