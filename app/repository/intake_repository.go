package repository

import (
	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
)

type intakeRepository struct {
	db *gorm.DB
}

func NewIntakeRepository(db *gorm.DB) IntakeRepository {
	return &intakeRepository{db: db}
}

func (r *intakeRepository) CreateContact(req *models.ContactRequest) error {
	return r.db.Create(req).Error
}

func (r *intakeRepository) ListContacts(offset, limit int) ([]models.ContactRequest, error) {
	var out []models.ContactRequest
	err := paginate(r.db.Order("created_at DESC"), offset, limit).Find(&out).Error
	return out, err
}

func (r *intakeRepository) CreateQuote(quote *models.QuoteRequest) error {
	if quote.Reference == "" {
		quote.Reference = models.NewReference("O")
	}
	return r.db.Create(quote).Error
}

func (r *intakeRepository) GetQuoteByID(id uint) (*models.QuoteRequest, error) {
	var q models.QuoteRequest
	if err := r.db.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *intakeRepository) GetQuoteByReference(ref string) (*models.QuoteRequest, error) {
	var q models.QuoteRequest
	if err := r.db.Where("reference = ?", ref).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *intakeRepository) UpdateQuote(quote *models.QuoteRequest) error {
	return r.db.Save(quote).Error
}

func (r *intakeRepository) ListQuotes(offset, limit int) ([]models.QuoteRequest, error) {
	var out []models.QuoteRequest
	err := paginate(r.db.Order("created_at DESC"), offset, limit).Find(&out).Error
	return out, err
}

func (r *intakeRepository) CreateAutomation(intake *models.AutomationIntake) error {
	return r.db.Create(intake).Error
}

func (r *intakeRepository) GetAutomationByID(id uint) (*models.AutomationIntake, error) {
	var a models.AutomationIntake
	if err := r.db.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *intakeRepository) UpdateAutomation(intake *models.AutomationIntake) error {
	return r.db.Save(intake).Error
}

func (r *intakeRepository) ListAutomation(offset, limit int) ([]models.AutomationIntake, error) {
	var out []models.AutomationIntake
	err := paginate(r.db.Order("created_at DESC"), offset, limit).Find(&out).Error
	return out, err
}
