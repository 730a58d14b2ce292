package payments

import (
	"strings"
	"time"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the checkout and webhook services.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error

	GetQuote(id uint) (*models.QuoteRequest, error)
	SaveQuote(quote *models.QuoteRequest) error
	GetAutomationIntake(id uint) (*models.AutomationIntake, error)
	SaveAutomationIntake(intake *models.AutomationIntake) error

	FindInvoiceByCheckoutSession(sessionID string) (*models.Invoice, error)
	SaveInvoice(invoice *models.Invoice) error

	GetUser(id uint) (*models.User, error)
	FindUserByEmail(email string) (*models.User, error)
	SetUserStripeCustomer(userID uint, customerID string) error

	UpsertSubscription(sub *models.Subscription) error
	UpsertAutomationSubscription(sub *models.AutomationSubscription) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) GetQuote(id uint) (*models.QuoteRequest, error) {
	var q models.QuoteRequest
	if err := r.db.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *gormRepository) SaveQuote(quote *models.QuoteRequest) error {
	return r.db.Save(quote).Error
}

func (r *gormRepository) GetAutomationIntake(id uint) (*models.AutomationIntake, error) {
	var a models.AutomationIntake
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *gormRepository) SaveAutomationIntake(intake *models.AutomationIntake) error {
	return r.db.Save(intake).Error
}

func (r *gormRepository) FindInvoiceByCheckoutSession(sessionID string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.Where("stripe_checkout_session_id = ?", sessionID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// SaveInvoice inserts new invoices and updates existing ones, refusing to
// change the amounts of a paid invoice.
func (r *gormRepository) SaveInvoice(invoice *models.Invoice) error {
	if invoice.ID == 0 {
		if invoice.Number == "" {
			invoice.Number = models.NewReference("F")
		}
		return r.db.Create(invoice).Error
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var stored models.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&stored, invoice.ID).Error; err != nil {
			return err
		}
		if err := models.CheckInvoiceUpdate(&stored, invoice); err != nil {
			return err
		}
		return tx.Save(invoice).Error
	})
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) FindUserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserStripeCustomer only fills an empty customer id.
func (r *gormRepository) SetUserStripeCustomer(userID uint, customerID string) error {
	return r.db.Model(&models.User{}).
		Where("id = ? AND (stripe_customer_id = '' OR stripe_customer_id IS NULL)", userID).
		Update("stripe_customer_id", customerID).Error
}

// UpsertSubscription keys on the Stripe subscription id so a redelivered
// checkout completion does not create a second row.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	var existing models.Subscription
	err := r.db.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).First(&existing).Error
	switch {
	case err == nil:
		sub.ID = existing.ID
		sub.HoursUsed = existing.HoursUsed
		sub.CreatedAt = existing.CreatedAt
		return r.db.Omit("User", "Product").Save(sub).Error
	case err == gorm.ErrRecordNotFound:
		return r.db.Omit("User", "Product").Create(sub).Error
	default:
		return err
	}
}

func (r *gormRepository) UpsertAutomationSubscription(sub *models.AutomationSubscription) error {
	var existing models.AutomationSubscription
	err := r.db.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).First(&existing).Error
	switch {
	case err == nil:
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		return r.db.Save(sub).Error
	case err == gorm.ErrRecordNotFound:
		return r.db.Create(sub).Error
	default:
		return err
	}
}
