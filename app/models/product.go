package models

import "time"

const (
	ProductStatusDevelopment = "development"
	ProductStatusActive      = "active"
	ProductStatusMaintenance = "maintenance"
	ProductStatusArchived    = "archived"
)

const (
	ProductTypeWebsite    = "website"
	ProductTypeWebshop    = "webshop"
	ProductTypeApp        = "app"
	ProductTypeAutomation = "automation"
)

// Product is a delivered website, webshop or app owned by one customer.
type Product struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	Name       string     `gorm:"size:200;not null" json:"name"`
	Type       string     `gorm:"size:30;default:'website'" json:"type"`
	Domain     string     `gorm:"size:255" json:"domain"`
	Status     string     `gorm:"size:30;default:'development';index" json:"status"`
	LaunchedAt *time.Time `json:"launched_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func IsValidProductStatus(s string) bool {
	switch s {
	case ProductStatusDevelopment, ProductStatusActive, ProductStatusMaintenance, ProductStatusArchived:
		return true
	}
	return false
}
