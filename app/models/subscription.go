package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusPaused    = "paused"
	SubscriptionStatusPastDue   = "past_due"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusTrialing  = "trialing"
)

const (
	BillingPeriodMonthly = "monthly"
	BillingPeriodYearly  = "yearly"
)

// Sync states of a locally managed subscription relative to Stripe.
const (
	SyncStateInSync    = "in_sync"
	SyncStatePending   = "pending"
	SyncStateOutOfSync = "out_of_sync"
)

// SubscriptionLifecycle holds the status fields shared by maintenance and
// automation subscriptions, including the remote sync bookkeeping.
type SubscriptionLifecycle struct {
	Status               string         `gorm:"size:20;not null;default:'active';index" json:"status"`
	CancelAtPeriodEnd    bool           `gorm:"default:false" json:"cancel_at_period_end"`
	CancelledAt          *time.Time     `json:"cancelled_at,omitempty"`
	PausedAt             *time.Time     `json:"paused_at,omitempty"`
	CurrentPeriodEnd     *time.Time     `json:"current_period_end,omitempty"`
	StripeSubscriptionID string         `gorm:"size:100;index" json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     string         `gorm:"size:100" json:"stripe_customer_id,omitempty"`
	SyncState            string         `gorm:"size:20;not null;default:'in_sync';index" json:"sync_state"`
	SyncError            string         `gorm:"type:text" json:"sync_error,omitempty"`
	PendingCommand       datatypes.JSON `json:"pending_command,omitempty"`
	LastSyncedAt         *time.Time     `json:"last_synced_at,omitempty"`
}

// HasRemote reports whether the row mirrors a Stripe subscription.
func (l *SubscriptionLifecycle) HasRemote() bool {
	return l.StripeSubscriptionID != ""
}

func (l *SubscriptionLifecycle) MarkInSync(at time.Time) {
	l.SyncState = SyncStateInSync
	l.SyncError = ""
	l.PendingCommand = nil
	l.LastSyncedAt = &at
}

// MarkPending stores a remote change that Stripe has not confirmed yet.
func (l *SubscriptionLifecycle) MarkPending(pending []byte) {
	l.SyncState = SyncStatePending
	l.SyncError = ""
	l.PendingCommand = datatypes.JSON(pending)
}

func (l *SubscriptionLifecycle) MarkOutOfSync(reason string, pending []byte) {
	l.SyncState = SyncStateOutOfSync
	l.SyncError = reason
	l.PendingCommand = datatypes.JSON(pending)
}

func IsValidSubscriptionStatus(s string) bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaused, SubscriptionStatusPastDue,
		SubscriptionStatusCancelled, SubscriptionStatusTrialing:
		return true
	}
	return false
}

// ManagedSubscription is implemented by every subscription kind the admin
// actions and the reconciler operate on.
type ManagedSubscription interface {
	GetID() uint
	Lifecycle() *SubscriptionLifecycle
	AuditTargetType() string
}

// Subscription is a maintenance plan bound to a customer and optionally a product.
type Subscription struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	UserID        uint     `gorm:"not null;index" json:"user_id"`
	ProductID     *uint    `gorm:"index" json:"product_id,omitempty"`
	PlanType      string   `gorm:"size:50;not null" json:"plan_type"`
	PlanName      string   `gorm:"size:100" json:"plan_name"`
	BillingPeriod string   `gorm:"size:20;default:'monthly'" json:"billing_period"`
	MonthlyPrice  int      `gorm:"not null;default:0" json:"monthly_price"`
	HoursIncluded float64  `gorm:"not null;default:0" json:"hours_included"`
	HoursUsed     float64  `gorm:"not null;default:0" json:"hours_used"`
	User          *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Product       *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	SubscriptionLifecycle `gorm:"embedded"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Subscription) GetID() uint                       { return s.ID }
func (s *Subscription) Lifecycle() *SubscriptionLifecycle { return &s.SubscriptionLifecycle }
func (s *Subscription) AuditTargetType() string           { return "subscription" }

// HoursRemaining never goes below zero.
func (s *Subscription) HoursRemaining() float64 {
	if s.HoursUsed >= s.HoursIncluded {
		return 0
	}
	return s.HoursIncluded - s.HoursUsed
}

// UsageLog is an append-only record of support hours consumed.
type UsageLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID uint      `gorm:"not null;index" json:"subscription_id"`
	Description    string    `gorm:"size:500;not null" json:"description"`
	Hours          float64   `gorm:"not null" json:"hours"`
	LoggedByID     uint      `gorm:"index" json:"logged_by_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
