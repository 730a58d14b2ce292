package models

import (
	"time"

	"gorm.io/datatypes"
)

// AutomationLimits is stored as JSON on the automation subscription.
type AutomationLimits struct {
	Workflows    int `json:"workflows"`
	RunsPerMonth int `json:"runs_per_month"`
}

type AutomationSubscription struct {
	ID                 uint                                 `gorm:"primaryKey" json:"id"`
	UserID             *uint                                `gorm:"index" json:"user_id,omitempty"`
	AutomationIntakeID *uint                                `gorm:"index" json:"automation_intake_id,omitempty"`
	PlanID             string                               `gorm:"size:50;not null" json:"plan_id"`
	PlanName           string                               `gorm:"size:100" json:"plan_name"`
	BillingPeriod      string                               `gorm:"size:20;default:'monthly'" json:"billing_period"`
	MonthlyPrice       int                                  `gorm:"not null;default:0" json:"monthly_price"`
	CustomerEmail      string                               `gorm:"size:200;index" json:"customer_email"`
	Limits             datatypes.JSONType[AutomationLimits] `json:"limits"`

	SubscriptionLifecycle `gorm:"embedded"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *AutomationSubscription) GetID() uint                       { return s.ID }
func (s *AutomationSubscription) Lifecycle() *SubscriptionLifecycle { return &s.SubscriptionLifecycle }
func (s *AutomationSubscription) AuditTargetType() string           { return "automation_subscription" }
