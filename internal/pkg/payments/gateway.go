// Package payments talks to Stripe: hosted checkout for intakes, remote
// subscription changes, and the webhook that confirms payments.
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/AgencyDesk/app/models"
)

var (
	ErrNotConfigured    = errors.New("payment gateway not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Checkout metadata keys. The webhook resolves intakes through them.
const (
	MetaIntakeType    = "intake_type"
	MetaIntakeID      = "intake_id"
	MetaPlanID        = "plan_id"
	MetaBillingPeriod = "billing_period"
	MetaUserID        = "user_id"
	MetaProductID     = "product_id"
	MetaWorkflows     = "limit_workflows"
	MetaRunsPerMonth  = "limit_runs_per_month"
	MetaCustomerEmail = "customer_email"
)

const (
	IntakeTypeQuote       = "quote"
	IntakeTypeAutomation  = "automation"
	IntakeTypeMaintenance = "maintenance"
)

// CheckoutParams describes a hosted checkout session. Subscription mode uses
// PriceID; payment mode uses the inline amount.
type CheckoutParams struct {
	Mode              string
	PriceID           string
	Amount            int64
	ProductName       string
	Description       string
	CustomerEmail     string
	CustomerID        string
	ClientReferenceID string
	Metadata          map[string]string
	SuccessURL        string
	CancelURL         string
	IdempotencyKey    string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// PriceSpec identifies a recurring price by its lookup key.
type PriceSpec struct {
	LookupKey   string
	ProductName string
	UnitAmount  int64
	Interval    string // "month" | "year"
	Metadata    map[string]string
}

// RemoteSubscription is the provider view of a subscription, already mapped
// to the local status vocabulary.
type RemoteSubscription struct {
	ID                string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
}

// Gateway is the provider surface the rest of the app depends on.
type Gateway interface {
	Enabled() bool
	EnsureRecurringPrice(ctx context.Context, spec PriceSpec) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, id string) (*RemoteSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*RemoteSubscription, error)
	CancelSubscription(ctx context.Context, id string) (*RemoteSubscription, error)
	PauseSubscription(ctx context.Context, id string) (*RemoteSubscription, error)
	ResumeSubscription(ctx context.Context, id string) (*RemoteSubscription, error)
}

// DisabledGateway is used when no Stripe key is configured.
type DisabledGateway struct{}

func (DisabledGateway) Enabled() bool { return false }

func (DisabledGateway) EnsureRecurringPrice(context.Context, PriceSpec) (string, error) {
	return "", ErrNotConfigured
}

func (DisabledGateway) CreateCheckoutSession(context.Context, CheckoutParams) (*CheckoutSession, error) {
	return nil, ErrNotConfigured
}

func (DisabledGateway) CreatePortalSession(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (DisabledGateway) GetSubscription(context.Context, string) (*RemoteSubscription, error) {
	return nil, ErrNotConfigured
}

func (DisabledGateway) SetCancelAtPeriodEnd(context.Context, string, bool) (*RemoteSubscription, error) {
	return nil, ErrNotConfigured
}

func (DisabledGateway) CancelSubscription(context.Context, string) (*RemoteSubscription, error) {
	return nil, ErrNotConfigured
}

func (DisabledGateway) PauseSubscription(context.Context, string) (*RemoteSubscription, error) {
	return nil, ErrNotConfigured
}

func (DisabledGateway) ResumeSubscription(context.Context, string) (*RemoteSubscription, error) {
	return nil, ErrNotConfigured
}

// LocalStatus maps a Stripe subscription status onto the local enum.
// A paused collection on an otherwise active subscription counts as paused.
func LocalStatus(remote string, collectionPaused bool) string {
	switch remote {
	case "active":
		if collectionPaused {
			return models.SubscriptionStatusPaused
		}
		return models.SubscriptionStatusActive
	case "trialing":
		return models.SubscriptionStatusTrialing
	case "paused":
		return models.SubscriptionStatusPaused
	case "canceled", "incomplete_expired":
		return models.SubscriptionStatusCancelled
	default:
		// past_due, unpaid, incomplete
		return models.SubscriptionStatusPastDue
	}
}

// Interval converts a billing period to the Stripe recurring interval.
func Interval(period string) string {
	if period == models.BillingPeriodYearly {
		return "year"
	}
	return "month"
}

// LookupKey is the price lookup key for a plan, e.g. "automation_growth_yearly".
func LookupKey(kind, planID, period string) string {
	return kind + "_" + planID + "_" + period
}
