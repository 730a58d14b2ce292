package repository

import (
	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
)

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// Create stores the ticket and its opening message together.
func (r *ticketRepository) Create(ticket *models.SupportTicket, first *models.TicketMessage) error {
	if ticket.Reference == "" {
		ticket.Reference = models.NewReference("T")
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Messages").Create(ticket).Error; err != nil {
			return err
		}
		if first == nil {
			return nil
		}
		first.TicketID = ticket.ID
		return tx.Create(first).Error
	})
}

func (r *ticketRepository) withMessages() *gorm.DB {
	return r.db.Preload("User").Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func (r *ticketRepository) GetByID(id uint) (*models.SupportTicket, error) {
	var t models.SupportTicket
	if err := r.withMessages().First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepository) GetByReference(ref string) (*models.SupportTicket, error) {
	var t models.SupportTicket
	if err := r.withMessages().Where("reference = ?", ref).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepository) List(offset, limit int, status string) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	q := r.db.Preload("User").Order("updated_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := paginate(q, offset, limit).Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) ListByUser(userID uint) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) Update(ticket *models.SupportTicket) error {
	return r.db.Omit("Messages", "User").Save(ticket).Error
}

// AddMessage appends a message and persists the ticket status in one transaction.
func (r *ticketRepository) AddMessage(ticket *models.SupportTicket, msg *models.TicketMessage) error {
	msg.TicketID = ticket.ID
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Omit("Messages", "User").Save(ticket).Error
	})
}
