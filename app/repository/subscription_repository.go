package repository

import (
	"github.com/ManuelReschke/AgencyDesk/app/models"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) List(offset, limit int, status string) ([]models.Subscription, error) {
	var subs []models.Subscription
	q := r.db.Preload("User").Preload("Product").Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := paginate(q, offset, limit).Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) Count(status string) (int64, error) {
	var count int64
	q := r.db.Model(&models.Subscription{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *subscriptionRepository) GetByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Preload("User").Preload("Product").First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByUserID(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Product").Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) ListUsage(subscriptionID uint) ([]models.UsageLog, error) {
	var logs []models.UsageLog
	err := r.db.Where("subscription_id = ?", subscriptionID).Order("id DESC").Find(&logs).Error
	return logs, err
}

func (r *subscriptionRepository) ListAutomation(offset, limit int, status string) ([]models.AutomationSubscription, error) {
	var subs []models.AutomationSubscription
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := paginate(q, offset, limit).Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) GetAutomationByID(id uint) (*models.AutomationSubscription, error) {
	var sub models.AutomationSubscription
	if err := r.db.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetAutomationByUserID(userID uint) ([]models.AutomationSubscription, error) {
	var subs []models.AutomationSubscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}
