package models

import (
	"errors"
	"time"
)

const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusOpen          = "open"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusVoid          = "void"
	InvoiceStatusUncollectible = "uncollectible"
)

const (
	InvoiceSourceQuote       = "quote"
	InvoiceSourceAutomation  = "automation"
	InvoiceSourceMaintenance = "maintenance"
	InvoiceSourceManual      = "manual"
)

// ErrInvoiceLocked is returned when the status or amounts of a paid invoice would change.
var ErrInvoiceLocked = errors.New("paid invoices are immutable")

// Invoice amounts are in cents.
type Invoice struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	UserID                  *uint      `gorm:"index" json:"user_id,omitempty"`
	Number                  string     `gorm:"size:40;uniqueIndex" json:"number"`
	Description             string     `gorm:"size:500" json:"description"`
	Amount                  int64      `gorm:"not null;default:0" json:"amount"`
	Tax                     int64      `gorm:"not null;default:0" json:"tax"`
	Total                   int64      `gorm:"not null;default:0" json:"total"`
	Currency                string     `gorm:"size:3;default:'eur'" json:"currency"`
	Status                  string     `gorm:"size:20;not null;default:'draft';index" json:"status"`
	StripeInvoiceID         string     `gorm:"size:100;index" json:"stripe_invoice_id,omitempty"`
	StripeCheckoutSessionID string     `gorm:"size:255;index" json:"stripe_checkout_session_id,omitempty"`
	PaymentURL              string     `gorm:"type:text" json:"payment_url,omitempty"`
	CustomerEmail           string     `gorm:"size:200" json:"customer_email"`
	Source                  string     `gorm:"size:20;index:idx_invoices_source,priority:1" json:"source"`
	SourceID                uint       `gorm:"index:idx_invoices_source,priority:2" json:"source_id"`
	PaidAt                  *time.Time `json:"paid_at,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CheckInvoiceUpdate rejects status and amount changes on an invoice that
// is already paid. stored must be the locked row.
func CheckInvoiceUpdate(stored, next *Invoice) error {
	if stored.Status != InvoiceStatusPaid {
		return nil
	}
	if next.Status != InvoiceStatusPaid || stored.Amount != next.Amount || stored.Tax != next.Tax || stored.Total != next.Total {
		return ErrInvoiceLocked
	}
	return nil
}

func (i *Invoice) MarkPaid(at time.Time) {
	i.Status = InvoiceStatusPaid
	i.PaidAt = &at
}

func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}
