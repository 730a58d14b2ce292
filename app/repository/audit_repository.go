package repository

import (
	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(entry *models.AdminAuditLog) error {
	return r.db.Create(entry).Error
}

func (r *auditRepository) List(filter AuditFilter) ([]models.AdminAuditLog, error) {
	var entries []models.AdminAuditLog
	q := r.db.Order("id DESC")
	if filter.TargetType != "" {
		q = q.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != 0 {
		q = q.Where("target_id = ?", filter.TargetID)
	}
	if filter.ActorID != 0 {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	err := paginate(q, 0, filter.Limit).Find(&entries).Error
	return entries, err
}
