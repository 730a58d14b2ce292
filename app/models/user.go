package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_CUSTOMER    = "customer"
	ROLE_ADMIN       = "admin"
	ROLE_SUPER_ADMIN = "super_admin"

	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"size:150" json:"name" validate:"required,min=2,max=150"`
	Email            string         `gorm:"uniqueIndex;size:200" json:"email" validate:"required,email,max=200"`
	Password         string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role             string         `gorm:"size:30;default:'customer';index" json:"role" validate:"oneof=customer admin super_admin"`
	Status           string         `gorm:"size:30;default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Company          string         `gorm:"size:200" json:"company" validate:"max=200"`
	Phone            string         `gorm:"size:50" json:"phone" validate:"max=50"`
	VATNumber        string         `gorm:"size:50" json:"vat_number" validate:"max=50"`
	AddressLine      string         `gorm:"size:255" json:"address_line" validate:"max=255"`
	PostalCode       string         `gorm:"size:20" json:"postal_code" validate:"max=20"`
	City             string         `gorm:"size:100" json:"city" validate:"max=100"`
	Country          string         `gorm:"size:2;default:'NL'" json:"country" validate:"omitempty,len=2"`
	StripeCustomerID string         `gorm:"size:100;index" json:"stripe_customer_id,omitempty"`
	LastLoginAt      *time.Time     `json:"last_login_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	return validator.New().Struct(u)
}

// NewUser builds a validated user with a hashed password. Role defaults to customer.
func NewUser(name, email, password, role string) (*User, error) {
	if role == "" {
		role = ROLE_CUSTOMER
	}
	u := &User{
		Name:    strings.TrimSpace(name),
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Role:    role,
		Status:  STATUS_ACTIVE,
		Country: "NL",
	}
	// validate the plain password length before hashing
	u.Password = password
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

func (u *User) SetPassword(password string) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}

func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == ROLE_SUPER_ADMIN
}

// IsStaff reports whether the user has any admin role.
func (u *User) IsStaff() bool {
	return u.Role == ROLE_ADMIN || u.Role == ROLE_SUPER_ADMIN
}
