package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	TouchLastLogin(id uint, at time.Time) error
}

// ProductRepository defines the interface for delivered customer products
type ProductRepository interface {
	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	GetByUserID(userID uint) ([]models.Product, error)
}

// SubscriptionRepository is the read side of maintenance and automation
// subscriptions. Mutations go through the subscriptions service.
type SubscriptionRepository interface {
	List(offset, limit int, status string) ([]models.Subscription, error)
	Count(status string) (int64, error)
	GetByID(id uint) (*models.Subscription, error)
	GetByUserID(userID uint) ([]models.Subscription, error)
	ListUsage(subscriptionID uint) ([]models.UsageLog, error)
	ListAutomation(offset, limit int, status string) ([]models.AutomationSubscription, error)
	GetAutomationByID(id uint) (*models.AutomationSubscription, error)
	GetAutomationByUserID(userID uint) ([]models.AutomationSubscription, error)
}

// InvoiceRepository defines the interface for invoice operations
type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(id uint) (*models.Invoice, error)
	Update(invoice *models.Invoice) error
	List(offset, limit int, status string) ([]models.Invoice, error)
	ListByUser(userID uint) ([]models.Invoice, error)
}

// TicketRepository defines the interface for support tickets and their messages
type TicketRepository interface {
	Create(ticket *models.SupportTicket, first *models.TicketMessage) error
	GetByID(id uint) (*models.SupportTicket, error)
	GetByReference(ref string) (*models.SupportTicket, error)
	List(offset, limit int, status string) ([]models.SupportTicket, error)
	ListByUser(userID uint) ([]models.SupportTicket, error)
	Update(ticket *models.SupportTicket) error
	AddMessage(ticket *models.SupportTicket, msg *models.TicketMessage) error
}

// AuditFilter narrows audit log queries. Zero values mean "any".
type AuditFilter struct {
	TargetType string
	TargetID   uint
	ActorID    uint
	Limit      int
}

// AuditRepository is append-only.
type AuditRepository interface {
	Create(entry *models.AdminAuditLog) error
	List(filter AuditFilter) ([]models.AdminAuditLog, error)
}

// LeadRepository defines the interface for AI-agent leads
type LeadRepository interface {
	Create(lead *models.AILead) error
	GetByID(id uint) (*models.AILead, error)
	GetByEmail(email string) (*models.AILead, error)
	List(offset, limit int, status string) ([]models.AILead, error)
	Update(lead *models.AILead) error
	AddActivity(activity *models.LeadActivity) error
	CountByStatus() (map[string]int64, error)
}

// IntakeRepository covers contact requests, quote requests and automation intakes.
type IntakeRepository interface {
	CreateContact(req *models.ContactRequest) error
	ListContacts(offset, limit int) ([]models.ContactRequest, error)

	CreateQuote(quote *models.QuoteRequest) error
	GetQuoteByID(id uint) (*models.QuoteRequest, error)
	GetQuoteByReference(ref string) (*models.QuoteRequest, error)
	UpdateQuote(quote *models.QuoteRequest) error
	ListQuotes(offset, limit int) ([]models.QuoteRequest, error)

	CreateAutomation(intake *models.AutomationIntake) error
	GetAutomationByID(id uint) (*models.AutomationIntake, error)
	UpdateAutomation(intake *models.AutomationIntake) error
	ListAutomation(offset, limit int) ([]models.AutomationIntake, error)
}

// QueueRepository inspects and maintains the redis job queue keys.
type QueueRepository interface {
	// Sizes returns the member count of each list or sorted set key.
	Sizes(ctx context.Context, keys ...string) (map[string]int64, error)
	Counters(ctx context.Context, key string) (map[string]int64, error)
	// PurgeOrphans deletes records under prefix whose id is in none of the live keys.
	PurgeOrphans(ctx context.Context, prefix string, live ...string) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Product      ProductRepository
	Subscription SubscriptionRepository
	Invoice      InvoiceRepository
	Ticket       TicketRepository
	Audit        AuditRepository
	Lead         LeadRepository
	Intake       IntakeRepository
	Queue        QueueRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Product:      NewProductRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Invoice:      NewInvoiceRepository(db),
		Ticket:       NewTicketRepository(db),
		Audit:        NewAuditRepository(db),
		Lead:         NewLeadRepository(db),
		Intake:       NewIntakeRepository(db),
		Queue:        NewQueueRepository(),
	}
}

// paginate clamps offset/limit to sane values.
func paginate(db *gorm.DB, offset, limit int) *gorm.DB {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return db.Offset(offset).Limit(limit)
}
