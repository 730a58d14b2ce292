package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
)

// memStore keeps copies of rows so callers cannot mutate stored state
// without Save. WithTx restores the previous state when fn fails.
type memStore struct {
	mu     sync.Mutex
	maint  map[uint]models.Subscription
	auto   map[uint]models.AutomationSubscription
	usage  []models.UsageLog
	audits []models.AdminAuditLog
}

func newMemStore() *memStore {
	return &memStore{maint: map[uint]models.Subscription{}, auto: map[uint]models.AutomationSubscription{}}
}

func (s *memStore) WithTx(_ context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	maint := make(map[uint]models.Subscription, len(s.maint))
	for k, v := range s.maint {
		maint[k] = v
	}
	auto := make(map[uint]models.AutomationSubscription, len(s.auto))
	for k, v := range s.auto {
		auto[k] = v
	}
	usage, audits := len(s.usage), len(s.audits)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.maint, s.auto = maint, auto
		s.usage, s.audits = s.usage[:usage], s.audits[:audits]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) Lock(kind Kind, id uint) (models.ManagedSubscription, error) {
	return s.Get(kind, id)
}

func (s *memStore) Get(kind Kind, id uint) (models.ManagedSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case KindMaintenance:
		if m, ok := s.maint[id]; ok {
			return &m, nil
		}
	case KindAutomation:
		if m, ok := s.auto[id]; ok {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) Save(sub models.ManagedSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m := sub.(type) {
	case *models.Subscription:
		m.UpdatedAt = time.Now()
		s.maint[m.ID] = *m
	case *models.AutomationSubscription:
		m.UpdatedAt = time.Now()
		s.auto[m.ID] = *m
	default:
		return fmt.Errorf("unexpected %T", sub)
	}
	return nil
}

// UpdateSync copies only the sync columns, like the gorm store.
func (s *memStore) UpdateSync(kind Kind, id uint, lc *models.SubscriptionLifecycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	write := func(dst *models.SubscriptionLifecycle) {
		dst.SyncState = lc.SyncState
		dst.SyncError = lc.SyncError
		dst.PendingCommand = lc.PendingCommand
		dst.LastSyncedAt = lc.LastSyncedAt
		dst.CurrentPeriodEnd = lc.CurrentPeriodEnd
	}
	switch kind {
	case KindMaintenance:
		m, ok := s.maint[id]
		if !ok {
			return ErrNotFound
		}
		write(&m.SubscriptionLifecycle)
		m.UpdatedAt = time.Now()
		s.maint[id] = m
	case KindAutomation:
		m, ok := s.auto[id]
		if !ok {
			return ErrNotFound
		}
		write(&m.SubscriptionLifecycle)
		m.UpdatedAt = time.Now()
		s.auto[id] = m
	}
	return nil
}

func (s *memStore) CreateUsageLog(entry *models.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, *entry)
	return nil
}

func (s *memStore) CreateAuditLog(entry *models.AdminAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, *entry)
	return nil
}

func (s *memStore) FindByStripeID(id string) (models.ManagedSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.maint {
		if m.StripeSubscriptionID == id {
			m := m
			return &m, nil
		}
	}
	for _, m := range s.auto {
		if m.StripeSubscriptionID == id {
			m := m
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) ListOutOfSync(int) ([]models.ManagedSubscription, error) {
	return s.filter(func(lc *models.SubscriptionLifecycle) bool {
		return lc.SyncState == models.SyncStateOutOfSync
	}), nil
}

func (s *memStore) ListLinkedInSync(int) ([]models.ManagedSubscription, error) {
	return s.filter(func(lc *models.SubscriptionLifecycle) bool {
		return lc.SyncState == models.SyncStateInSync && lc.HasRemote() && lc.Status != models.SubscriptionStatusCancelled
	}), nil
}

func (s *memStore) ListStalePending(before time.Time, _ int) ([]models.ManagedSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ManagedSubscription
	for _, m := range s.maint {
		m := m
		if m.SyncState == models.SyncStatePending && m.UpdatedAt.Before(before) {
			out = append(out, &m)
		}
	}
	for _, m := range s.auto {
		m := m
		if m.SyncState == models.SyncStatePending && m.UpdatedAt.Before(before) {
			out = append(out, &m)
		}
	}
	return out, nil
}

func (s *memStore) filter(keep func(*models.SubscriptionLifecycle) bool) []models.ManagedSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ManagedSubscription
	for _, m := range s.maint {
		m := m
		if keep(&m.SubscriptionLifecycle) {
			out = append(out, &m)
		}
	}
	for _, m := range s.auto {
		m := m
		if keep(&m.SubscriptionLifecycle) {
			out = append(out, &m)
		}
	}
	return out
}

func (s *memStore) maintenance(id uint) models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maint[id]
}

// fakeRemote answers like Stripe or fails every call.
type fakeRemote struct {
	enabled bool
	fail    bool
	calls   []string
	remote  map[string]payments.RemoteSubscription
}

func (f *fakeRemote) Enabled() bool { return f.enabled }

func (f *fakeRemote) result(call, id, status string, cancelAtEnd bool) (*payments.RemoteSubscription, error) {
	f.calls = append(f.calls, call+":"+id)
	if f.fail {
		return nil, errors.New("stripe unavailable")
	}
	return &payments.RemoteSubscription{ID: id, Status: status, CancelAtPeriodEnd: cancelAtEnd}, nil
}

func (f *fakeRemote) GetSubscription(_ context.Context, id string) (*payments.RemoteSubscription, error) {
	f.calls = append(f.calls, "get:"+id)
	if f.fail {
		return nil, errors.New("stripe unavailable")
	}
	r, ok := f.remote[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return &r, nil
}

func (f *fakeRemote) SetCancelAtPeriodEnd(_ context.Context, id string, cancel bool) (*payments.RemoteSubscription, error) {
	return f.result("cancel_at_period_end", id, models.SubscriptionStatusActive, cancel)
}

func (f *fakeRemote) CancelSubscription(_ context.Context, id string) (*payments.RemoteSubscription, error) {
	return f.result("cancel", id, models.SubscriptionStatusCancelled, false)
}

func (f *fakeRemote) PauseSubscription(_ context.Context, id string) (*payments.RemoteSubscription, error) {
	return f.result("pause", id, models.SubscriptionStatusPaused, false)
}

func (f *fakeRemote) ResumeSubscription(_ context.Context, id string) (*payments.RemoteSubscription, error) {
	return f.result("resume", id, models.SubscriptionStatusActive, false)
}

// interleavingRemote runs during while the pause call is in flight.
type interleavingRemote struct {
	*fakeRemote
	during func()
}

func (r *interleavingRemote) PauseSubscription(ctx context.Context, id string) (*payments.RemoteSubscription, error) {
	if r.during != nil {
		r.during()
	}
	return r.fakeRemote.PauseSubscription(ctx, id)
}

type recordingOutbox struct {
	queued []string
}

func (o *recordingOutbox) EnqueueSubscriptionSync(_ context.Context, kind Kind, id uint) error {
	o.queued = append(o.queued, fmt.Sprintf("%s/%d", kind, id))
	return nil
}
