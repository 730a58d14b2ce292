package repository

import (
	"strings"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
)

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(lead *models.AILead) error {
	return r.db.Omit("Activities").Create(lead).Error
}

func (r *leadRepository) GetByID(id uint) (*models.AILead, error) {
	var lead models.AILead
	err := r.db.Preload("Activities", func(db *gorm.DB) *gorm.DB {
		return db.Order("id DESC")
	}).First(&lead, id).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) GetByEmail(email string) (*models.AILead, error) {
	var lead models.AILead
	if err := r.db.Where("email = ?", strings.ToLower(email)).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(offset, limit int, status string) ([]models.AILead, error) {
	var leads []models.AILead
	q := r.db.Order("score DESC, created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := paginate(q, offset, limit).Find(&leads).Error
	return leads, err
}

func (r *leadRepository) Update(lead *models.AILead) error {
	return r.db.Omit("Activities").Save(lead).Error
}

func (r *leadRepository) AddActivity(activity *models.LeadActivity) error {
	return r.db.Create(activity).Error
}

func (r *leadRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.Model(&models.AILead{}).Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
