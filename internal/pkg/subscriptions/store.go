package subscriptions

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/AgencyDesk/app/models"
)

// Kind selects the subscription table an action targets.
type Kind string

const (
	KindMaintenance Kind = "subscription"
	KindAutomation  Kind = "automation_subscription"
)

func (k Kind) Valid() bool {
	return k == KindMaintenance || k == KindAutomation
}

func (k Kind) newModel() models.ManagedSubscription {
	if k == KindAutomation {
		return &models.AutomationSubscription{}
	}
	return &models.Subscription{}
}

// KindOf returns the kind of a loaded subscription row.
func KindOf(sub models.ManagedSubscription) Kind {
	return Kind(sub.AuditTargetType())
}

// Store is the persistence the subscription service needs. WithTx runs fn
// against a transaction-bound Store. UpdateSync writes only the sync columns
// of a row and leaves everything else as committed.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Lock(kind Kind, id uint) (models.ManagedSubscription, error)
	Get(kind Kind, id uint) (models.ManagedSubscription, error)
	Save(sub models.ManagedSubscription) error
	UpdateSync(kind Kind, id uint, lc *models.SubscriptionLifecycle) error
	CreateUsageLog(entry *models.UsageLog) error
	CreateAuditLog(entry *models.AdminAuditLog) error
	FindByStripeID(stripeSubscriptionID string) (models.ManagedSubscription, error)
	ListOutOfSync(limit int) ([]models.ManagedSubscription, error)
	ListLinkedInSync(limit int) ([]models.ManagedSubscription, error)
	ListStalePending(before time.Time, limit int) ([]models.ManagedSubscription, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) Lock(kind Kind, id uint) (models.ManagedSubscription, error) {
	m := kind.newModel()
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(m, id).Error
	return m, notFound(err)
}

func (s *gormStore) Get(kind Kind, id uint) (models.ManagedSubscription, error) {
	m := kind.newModel()
	err := s.db.First(m, id).Error
	return m, notFound(err)
}

func (s *gormStore) Save(sub models.ManagedSubscription) error {
	return s.db.Omit(clause.Associations).Save(sub).Error
}

func (s *gormStore) UpdateSync(kind Kind, id uint, lc *models.SubscriptionLifecycle) error {
	return s.db.Model(kind.newModel()).Where("id = ?", id).Updates(map[string]interface{}{
		"sync_state":         lc.SyncState,
		"sync_error":         lc.SyncError,
		"pending_command":    lc.PendingCommand,
		"last_synced_at":     lc.LastSyncedAt,
		"current_period_end": lc.CurrentPeriodEnd,
	}).Error
}

func (s *gormStore) CreateUsageLog(entry *models.UsageLog) error {
	return s.db.Create(entry).Error
}

func (s *gormStore) CreateAuditLog(entry *models.AdminAuditLog) error {
	return s.db.Create(entry).Error
}

func (s *gormStore) FindByStripeID(stripeSubscriptionID string) (models.ManagedSubscription, error) {
	for _, kind := range []Kind{KindMaintenance, KindAutomation} {
		m := kind.newModel()
		err := s.db.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(m).Error
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

func (s *gormStore) ListOutOfSync(limit int) ([]models.ManagedSubscription, error) {
	return s.list(limit, "sync_state = ?", models.SyncStateOutOfSync)
}

func (s *gormStore) ListLinkedInSync(limit int) ([]models.ManagedSubscription, error) {
	return s.list(limit, "sync_state = ? AND stripe_subscription_id <> '' AND status <> ?",
		models.SyncStateInSync, models.SubscriptionStatusCancelled)
}

func (s *gormStore) ListStalePending(before time.Time, limit int) ([]models.ManagedSubscription, error) {
	return s.list(limit, "sync_state = ? AND updated_at < ?", models.SyncStatePending, before)
}

func (s *gormStore) list(limit int, query string, args ...interface{}) ([]models.ManagedSubscription, error) {
	var maint []models.Subscription
	if err := s.db.Where(query, args...).Order("id").Limit(limit).Find(&maint).Error; err != nil {
		return nil, err
	}
	var auto []models.AutomationSubscription
	if err := s.db.Where(query, args...).Order("id").Limit(limit).Find(&auto).Error; err != nil {
		return nil, err
	}
	out := make([]models.ManagedSubscription, 0, len(maint)+len(auto))
	for i := range maint {
		out = append(out, &maint[i])
	}
	for i := range auto {
		out = append(out, &auto[i])
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
