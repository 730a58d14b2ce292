// Package subscriptions applies admin actions to maintenance and automation
// subscriptions and keeps them in step with Stripe.
package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
)

var (
	ErrNotFound          = errors.New("subscription not found")
	ErrInvalidCommand    = errors.New("invalid subscription command")
	ErrUnsupported       = errors.New("action not supported for this subscription")
	ErrInvalidTransition = errors.New("subscription is already cancelled")
)

const (
	syncErrNotConfigured = "payment gateway not configured"
	syncErrInterrupted   = "remote change was interrupted before it was confirmed"
)

// Remote is the part of the payment gateway used for subscription changes.
type Remote interface {
	Enabled() bool
	GetSubscription(ctx context.Context, id string) (*payments.RemoteSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, id string, cancel bool) (*payments.RemoteSubscription, error)
	CancelSubscription(ctx context.Context, id string) (*payments.RemoteSubscription, error)
	PauseSubscription(ctx context.Context, id string) (*payments.RemoteSubscription, error)
	ResumeSubscription(ctx context.Context, id string) (*payments.RemoteSubscription, error)
}

// Outbox schedules a retry of a failed remote change.
type Outbox interface {
	EnqueueSubscriptionSync(ctx context.Context, kind Kind, id uint) error
}

// Actor is who triggered an action. ID 0 is the system.
type Actor struct {
	ID    uint
	Email string
	IP    string
}

// SystemActor is used for webhook and reconciliation writes.
func SystemActor(source string) Actor {
	return Actor{Email: "system:" + source}
}

// Result is the outcome of Execute. The local change is always applied when
// err is nil; SyncState tells whether Stripe followed.
type Result struct {
	Subscription models.ManagedSubscription `json:"subscription"`
	SyncState    string                     `json:"syncState"`
	SyncError    string                     `json:"syncError,omitempty"`
}

type Service struct {
	store  Store
	remote Remote
	outbox Outbox
	now    func() time.Time
}

func NewService(store Store, remote Remote, outbox Outbox) *Service {
	if remote == nil {
		remote = payments.DisabledGateway{}
	}
	return &Service{store: store, remote: remote, outbox: outbox, now: time.Now}
}

// SetOutbox wires the outbox after construction; the job queue needs the
// service to exist first.
func (s *Service) SetOutbox(outbox Outbox) {
	s.outbox = outbox
}

// Get loads one subscription.
func (s *Service) Get(kind Kind, id uint) (models.ManagedSubscription, error) {
	return s.store.Get(kind, id)
}

// Execute applies cmd locally under a row lock, audits it, then pushes the
// change to Stripe. The command is stored with the local write, so a push
// that fails or never finishes can be replayed later.
func (s *Service) Execute(ctx context.Context, actor Actor, kind Kind, id uint, cmd Command) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, kind)
	}
	now := s.now()

	var sub models.ManagedSubscription
	err := s.store.WithTx(ctx, func(tx Store) error {
		locked, err := tx.Lock(kind, id)
		if err != nil {
			return err
		}
		before := models.Snapshot(locked)

		if err := apply(tx, actor, locked, cmd, now); err != nil {
			return err
		}
		lc := locked.Lifecycle()
		if touchesRemote(cmd) && lc.HasRemote() {
			lc.MarkPending(EncodeCommand(cmd))
		}
		if err := tx.Save(locked); err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		if err := tx.CreateAuditLog(&models.AdminAuditLog{
			ActorID:    actor.ID,
			ActorEmail: actor.Email,
			Action:     string(kind) + "." + cmd.Action(),
			TargetType: string(kind),
			TargetID:   id,
			Before:     before,
			After:      models.Snapshot(locked),
			IPAddress:  actor.IP,
		}); err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
		sub = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if touchesRemote(cmd) && sub.Lifecycle().HasRemote() {
		s.pushRemote(ctx, sub, cmd)
	}

	lc := sub.Lifecycle()
	return &Result{Subscription: sub, SyncState: lc.SyncState, SyncError: lc.SyncError}, nil
}

func apply(tx Store, actor Actor, sub models.ManagedSubscription, cmd Command, now time.Time) error {
	lc := sub.Lifecycle()
	switch c := cmd.(type) {
	case Cancel:
		if lc.Status == models.SubscriptionStatusCancelled {
			return ErrInvalidTransition
		}
		lc.CancelAtPeriodEnd = true
	case CancelImmediately:
		if lc.Status == models.SubscriptionStatusCancelled {
			return ErrInvalidTransition
		}
		lc.Status = models.SubscriptionStatusCancelled
		lc.CancelledAt = &now
	case Pause:
		if lc.Status == models.SubscriptionStatusCancelled {
			return ErrInvalidTransition
		}
		lc.Status = models.SubscriptionStatusPaused
		lc.PausedAt = &now
	case Resume:
		if lc.Status == models.SubscriptionStatusCancelled {
			return ErrInvalidTransition
		}
		lc.Status = models.SubscriptionStatusActive
		lc.CancelAtPeriodEnd = false
		lc.PausedAt = nil
	case AddUsage:
		m, ok := sub.(*models.Subscription)
		if !ok {
			return ErrUnsupported
		}
		m.HoursUsed += c.Hours
		if err := tx.CreateUsageLog(&models.UsageLog{
			SubscriptionID: m.ID,
			Description:    c.Description,
			Hours:          c.Hours,
			LoggedByID:     actor.ID,
		}); err != nil {
			return fmt.Errorf("write usage log: %w", err)
		}
	case ResetHours:
		m, ok := sub.(*models.Subscription)
		if !ok {
			return ErrUnsupported
		}
		m.HoursUsed = 0
	case Patch:
		return applyPatch(sub, c)
	default:
		return fmt.Errorf("%w: %T", ErrInvalidCommand, cmd)
	}
	return nil
}

func applyPatch(sub models.ManagedSubscription, p Patch) error {
	if err := p.validate(); err != nil {
		return err
	}
	lc := sub.Lifecycle()
	switch m := sub.(type) {
	case *models.Subscription:
		if p.PlanType != nil {
			m.PlanType = *p.PlanType
		}
		if p.PlanName != nil {
			m.PlanName = *p.PlanName
		}
		if p.MonthlyPrice != nil {
			m.MonthlyPrice = *p.MonthlyPrice
		}
		if p.HoursIncluded != nil {
			m.HoursIncluded = *p.HoursIncluded
		}
	case *models.AutomationSubscription:
		if p.HoursIncluded != nil {
			return ErrUnsupported
		}
		if p.PlanType != nil {
			m.PlanID = *p.PlanType
		}
		if p.PlanName != nil {
			m.PlanName = *p.PlanName
		}
		if p.MonthlyPrice != nil {
			m.MonthlyPrice = *p.MonthlyPrice
		}
	}
	if p.Status != nil {
		lc.Status = *p.Status
	}
	return nil
}

// pushRemote performs the Stripe call for cmd and records the sync outcome
// on sub, which is also what Execute reports back.
func (s *Service) pushRemote(ctx context.Context, sub models.ManagedSubscription, cmd Command) {
	lc := sub.Lifecycle()
	pending := EncodeCommand(cmd)
	remote, callErr := s.callRemote(ctx, lc.StripeSubscriptionID, cmd)
	if callErr != nil {
		log.Warnw("[Subscriptions] remote update failed, queued for retry",
			"kind", KindOf(sub), "id", sub.GetID(), "action", cmd.Action(), "error", callErr)
	}

	settled, applied, err := s.settle(ctx, KindOf(sub), sub.GetID(), pending, remote, callErr)
	if err != nil {
		// the row stays pending; the reconciler recovers it
		log.Errorf("[Subscriptions] storing sync state of %s %d failed: %v", KindOf(sub), sub.GetID(), err)
		return
	}
	copySync(lc, settled)
	if applied && callErr != nil && s.outbox != nil {
		if qErr := s.outbox.EnqueueSubscriptionSync(ctx, KindOf(sub), sub.GetID()); qErr != nil {
			log.Errorf("[Subscriptions] enqueueing sync of %s %d failed: %v", KindOf(sub), sub.GetID(), qErr)
		}
	}
}

// settle records the outcome of the remote call for the pending command.
// The row is locked again and only its sync columns are written, so local
// changes committed during the call survive. When another command has
// replaced the pending one, nothing is written and applied is false.
func (s *Service) settle(ctx context.Context, kind Kind, id uint, pending []byte, remote *payments.RemoteSubscription, callErr error) (*models.SubscriptionLifecycle, bool, error) {
	var (
		out     models.SubscriptionLifecycle
		applied bool
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		sub, err := tx.Lock(kind, id)
		if err != nil {
			return err
		}
		lc := sub.Lifecycle()
		if lc.SyncState == models.SyncStateInSync || !sameCommand(lc.PendingCommand, pending) {
			out = *lc
			return nil
		}
		if callErr != nil {
			lc.MarkOutOfSync(callErr.Error(), pending)
		} else {
			lc.MarkInSync(s.now())
			if remote != nil && remote.CurrentPeriodEnd != nil {
				lc.CurrentPeriodEnd = remote.CurrentPeriodEnd
			}
		}
		out = *lc
		applied = true
		return tx.UpdateSync(kind, id, lc)
	})
	if err != nil {
		return nil, false, err
	}
	return &out, applied, nil
}

// sameCommand compares two encoded commands by content; JSON columns do not
// keep the original formatting.
func sameCommand(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	var x, y map[string]interface{}
	if json.Unmarshal(a, &x) != nil || json.Unmarshal(b, &y) != nil {
		return false
	}
	return reflect.DeepEqual(x, y)
}

func copySync(dst, src *models.SubscriptionLifecycle) {
	dst.SyncState = src.SyncState
	dst.SyncError = src.SyncError
	dst.PendingCommand = src.PendingCommand
	dst.LastSyncedAt = src.LastSyncedAt
	dst.CurrentPeriodEnd = src.CurrentPeriodEnd
}

func (s *Service) callRemote(ctx context.Context, stripeID string, cmd Command) (*payments.RemoteSubscription, error) {
	if !s.remote.Enabled() {
		return nil, errors.New(syncErrNotConfigured)
	}
	switch cmd.(type) {
	case Cancel:
		return s.remote.SetCancelAtPeriodEnd(ctx, stripeID, true)
	case CancelImmediately:
		return s.remote.CancelSubscription(ctx, stripeID)
	case Pause:
		return s.remote.PauseSubscription(ctx, stripeID)
	case Resume:
		return s.remote.ResumeSubscription(ctx, stripeID)
	}
	return nil, nil
}

// ReplayPending retries the stored command of an out_of_sync row. It
// returns nil when the row is already in sync.
func (s *Service) ReplayPending(ctx context.Context, kind Kind, id uint) error {
	sub, err := s.store.Get(kind, id)
	if err != nil {
		return err
	}
	lc := sub.Lifecycle()
	if lc.SyncState != models.SyncStateOutOfSync || len(lc.PendingCommand) == 0 {
		return nil
	}
	pending := []byte(lc.PendingCommand)
	cmd, err := ParseCommand(pending)
	if err != nil {
		return fmt.Errorf("decode pending command: %w", err)
	}

	remote, callErr := s.callRemote(ctx, lc.StripeSubscriptionID, cmd)
	if _, _, err := s.settle(ctx, kind, id, pending, remote, callErr); err != nil {
		return fmt.Errorf("store sync state of %s %d: %w", kind, id, err)
	}
	if callErr != nil {
		return fmt.Errorf("replay %s on %s %d: %w", cmd.Action(), kind, id, callErr)
	}
	log.Infof("[Subscriptions] replayed %s on %s %d", cmd.Action(), kind, id)
	return nil
}

// RecoverInterrupted marks rows that stayed pending since before the cutoff
// as out_of_sync, so their stored command is replayed. A pending row without
// a command goes back to in_sync and the drift check compares it with Stripe.
func (s *Service) RecoverInterrupted(ctx context.Context, before time.Time) (int, error) {
	stuck, err := s.store.ListStalePending(before, reconcileBatch)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, row := range stuck {
		kind, id := KindOf(row), row.GetID()
		err := s.store.WithTx(ctx, func(tx Store) error {
			sub, err := tx.Lock(kind, id)
			if err != nil {
				return err
			}
			lc := sub.Lifecycle()
			if lc.SyncState != models.SyncStatePending {
				return nil
			}
			if len(lc.PendingCommand) == 0 {
				lc.SyncState = models.SyncStateInSync
				lc.SyncError = ""
			} else {
				lc.MarkOutOfSync(syncErrInterrupted, lc.PendingCommand)
			}
			recovered++
			return tx.UpdateSync(kind, id, lc)
		})
		if err != nil {
			return recovered, fmt.Errorf("recover %s %d: %w", kind, id, err)
		}
	}
	return recovered, nil
}

// AdoptRemote copies the remote status onto the local row mirroring it. Rows
// with a pending local change keep it unless Stripe reports a cancellation.
func (s *Service) AdoptRemote(ctx context.Context, remote payments.RemoteSubscription, source string) (bool, error) {
	found, err := s.store.FindByStripeID(remote.ID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	kind := KindOf(found)
	now := s.now()

	err = s.store.WithTx(ctx, func(tx Store) error {
		sub, err := tx.Lock(kind, found.GetID())
		if err != nil {
			return err
		}
		lc := sub.Lifecycle()
		if lc.SyncState != models.SyncStateInSync && remote.Status != models.SubscriptionStatusCancelled {
			log.Infof("[Subscriptions] %s %d has a pending change, not adopting remote state", kind, sub.GetID())
			return nil
		}
		if !differs(lc, remote) {
			lc.MarkInSync(now)
			return tx.Save(sub)
		}

		before := models.Snapshot(sub)
		adopt(lc, remote, now)
		if err := tx.Save(sub); err != nil {
			return err
		}
		actor := SystemActor(source)
		return tx.CreateAuditLog(&models.AdminAuditLog{
			ActorEmail: actor.Email,
			Action:     string(kind) + ".reconciled",
			TargetType: string(kind),
			TargetID:   sub.GetID(),
			Before:     before,
			After:      models.Snapshot(sub),
		})
	})
	if err != nil {
		return true, err
	}
	return true, nil
}

func differs(lc *models.SubscriptionLifecycle, remote payments.RemoteSubscription) bool {
	return lc.Status != remote.Status || lc.CancelAtPeriodEnd != remote.CancelAtPeriodEnd
}

func adopt(lc *models.SubscriptionLifecycle, remote payments.RemoteSubscription, now time.Time) {
	lc.Status = remote.Status
	lc.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	if remote.CurrentPeriodEnd != nil {
		lc.CurrentPeriodEnd = remote.CurrentPeriodEnd
	}
	switch remote.Status {
	case models.SubscriptionStatusCancelled:
		if lc.CancelledAt == nil {
			lc.CancelledAt = &now
		}
	case models.SubscriptionStatusPaused:
		if lc.PausedAt == nil {
			lc.PausedAt = &now
		}
	default:
		lc.PausedAt = nil
	}
	if remote.CustomerID != "" && lc.StripeCustomerID == "" {
		lc.StripeCustomerID = remote.CustomerID
	}
	lc.MarkInSync(now)
}

// PendingAction returns the action stored in PendingCommand, or "".
func PendingAction(lc *models.SubscriptionLifecycle) string {
	if len(lc.PendingCommand) == 0 {
		return ""
	}
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(lc.PendingCommand, &head); err != nil {
		return ""
	}
	return head.Action
}
