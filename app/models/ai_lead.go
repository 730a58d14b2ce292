package models

import "time"

const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

const (
	LeadSourceContactForm = "contact_form"
	LeadSourceQuoteForm   = "quote_form"
	LeadSourceAutomation  = "automation_intake"
	LeadSourceManual      = "manual"
)

type AILead struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:150" json:"name"`
	Email      string         `gorm:"size:200;index" json:"email"`
	Company    string         `gorm:"size:200" json:"company"`
	Source     string         `gorm:"size:50;index" json:"source"`
	Score      int            `gorm:"default:0" json:"score"`
	Status     string         `gorm:"size:20;default:'new';index" json:"status"`
	Notes      string         `gorm:"type:text" json:"notes"`
	Activities []LeadActivity `gorm:"foreignKey:LeadID" json:"activities,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AILead) TableName() string { return "ai_leads" }

type LeadActivity struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LeadID      uint      `gorm:"not null;index" json:"lead_id"`
	Type        string    `gorm:"size:50;not null" json:"type"`
	Description string    `gorm:"type:text" json:"description"`
	Agent       string    `gorm:"size:50" json:"agent"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func IsValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}
