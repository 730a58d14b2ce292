package repository

import (
	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	if invoice.Number == "" {
		invoice.Number = models.NewReference("F")
	}
	return r.db.Create(invoice).Error
}

func (r *invoiceRepository) GetByID(id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.db.First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// Update locks the stored row and refuses to change a paid invoice.
func (r *invoiceRepository) Update(invoice *models.Invoice) error {
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

func (r *invoiceRepository) List(offset, limit int, status string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := paginate(q, offset, limit).Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) ListByUser(userID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}
