package models

import "time"

const (
	TicketStatusOpen            = "open"
	TicketStatusInProgress      = "in_progress"
	TicketStatusWaitingCustomer = "waiting_customer"
	TicketStatusResolved        = "resolved"
	TicketStatusClosed          = "closed"
)

const (
	TicketPriorityLow    = "low"
	TicketPriorityMedium = "medium"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

const (
	SenderCustomer = "customer"
	SenderSupport  = "support"
	SenderAI       = "ai"
	SenderSystem   = "system"
)

type SupportTicket struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Reference    string          `gorm:"size:32;uniqueIndex" json:"reference"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	ProductID    *uint           `gorm:"index" json:"product_id,omitempty"`
	Subject      string          `gorm:"size:200;not null" json:"subject"`
	Status       string          `gorm:"size:30;not null;default:'open';index" json:"status"`
	Priority     string          `gorm:"size:20;not null;default:'medium'" json:"priority"`
	AssignedToID *uint           `gorm:"index" json:"assigned_to_id,omitempty"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
	Messages     []TicketMessage `gorm:"foreignKey:TicketID" json:"messages,omitempty"`
	User         *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TicketMessage rows are append-only and ordered by ID.
type TicketMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TicketID   uint      `gorm:"not null;index" json:"ticket_id"`
	SenderType string    `gorm:"size:20;not null" json:"sender_type"`
	SenderID   *uint     `json:"sender_id,omitempty"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func IsValidTicketStatus(s string) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingCustomer, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

func IsValidTicketPriority(p string) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// SetStatus updates the status and keeps ClosedAt consistent with it.
func (t *SupportTicket) SetStatus(status string, now time.Time) {
	t.Status = status
	if status == TicketStatusClosed || status == TicketStatusResolved {
		if t.ClosedAt == nil {
			t.ClosedAt = &now
		}
		return
	}
	t.ClosedAt = nil
}
