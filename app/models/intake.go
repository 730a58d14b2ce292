package models

import (
	"time"

	"gorm.io/datatypes"
)

// Intake statuses shared by automation intakes and quote requests.
const (
	IntakeStatusSubmitted      = "submitted"
	IntakeStatusPendingPayment = "pending_payment"
	IntakeStatusPaid           = "paid"
	IntakeStatusExpired        = "expired"
	IntakeStatusCancelled      = "cancelled"
)

type AutomationIntake struct {
	ID                      uint                        `gorm:"primaryKey" json:"id"`
	CompanyName             string                      `gorm:"size:200;not null" json:"company_name"`
	ContactName             string                      `gorm:"size:150;not null" json:"contact_name"`
	Email                   string                      `gorm:"size:200;not null;index" json:"email"`
	Phone                   string                      `gorm:"size:50" json:"phone"`
	Website                 string                      `gorm:"size:255" json:"website"`
	PlanID                  string                      `gorm:"size:50;not null" json:"plan_id"`
	BillingPeriod           string                      `gorm:"size:20;not null;default:'monthly'" json:"billing_period"`
	Processes               string                      `gorm:"type:text" json:"processes"`
	Tools                   datatypes.JSONSlice[string] `json:"tools"`
	Goals                   string                      `gorm:"type:text" json:"goals"`
	Volume                  string                      `gorm:"size:100" json:"volume"`
	Status                  string                      `gorm:"size:30;not null;default:'submitted';index" json:"status"`
	StripeCheckoutSessionID string                      `gorm:"size:255;index" json:"stripe_checkout_session_id,omitempty"`
	CheckoutURL             string                      `gorm:"type:text" json:"checkout_url,omitempty"`
	UserID                  *uint                       `gorm:"index" json:"user_id,omitempty"`
	CreatedAt               time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuoteExtra is a selected add-on captured on the quote at submit time.
type QuoteExtra struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// QuoteRequest is an offerte submitted from the public quote builder. Money is in cents.
type QuoteRequest struct {
	ID                      uint                            `gorm:"primaryKey" json:"id"`
	Reference               string                          `gorm:"size:32;uniqueIndex" json:"reference"`
	Name                    string                          `gorm:"size:150;not null" json:"name"`
	Email                   string                          `gorm:"size:200;not null;index" json:"email"`
	Phone                   string                          `gorm:"size:50" json:"phone"`
	Company                 string                          `gorm:"size:200" json:"company"`
	PackageID               string                          `gorm:"size:50;not null" json:"package_id"`
	Extras                  datatypes.JSONSlice[QuoteExtra] `json:"extras"`
	Subtotal                int64                           `json:"subtotal"`
	VAT                     int64                           `json:"vat"`
	Total                   int64                           `json:"total"`
	Deposit                 int64                           `json:"deposit"`
	Notes                   string                          `gorm:"type:text" json:"notes"`
	Status                  string                          `gorm:"size:30;not null;default:'submitted';index" json:"status"`
	StripeCheckoutSessionID string                          `gorm:"size:255;index" json:"stripe_checkout_session_id,omitempty"`
	CheckoutURL             string                          `gorm:"type:text" json:"checkout_url,omitempty"`
	CreatedAt               time.Time                       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time                       `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	ContactStatusNew      = "new"
	ContactStatusAnswered = "answered"
)

type ContactRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Email     string    `gorm:"size:200;not null;index" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Company   string    `gorm:"size:200" json:"company"`
	Subject   string    `gorm:"size:200" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IPAddress string    `gorm:"size:45" json:"-"`
	Status    string    `gorm:"size:20;not null;default:'new'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
