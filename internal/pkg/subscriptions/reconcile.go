package subscriptions

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	reconcileBatch = 200
	// pendingGrace is how long a push may stay unconfirmed before the row
	// counts as interrupted. Well above the gateway timeout.
	pendingGrace = 5 * time.Minute
)

// Report summarises one reconciliation run.
type Report struct {
	Recovered int `json:"recovered"`
	Replayed  int `json:"replayed"`
	Adopted   int `json:"adopted"`
	Checked   int `json:"checked"`
	Failed    int `json:"failed"`
}

// Reconciler replays pending remote changes and adopts drift from Stripe.
type Reconciler struct {
	service *Service
}

func NewReconciler(service *Service) *Reconciler {
	return &Reconciler{service: service}
}

// Run recovers interrupted pushes, replays out_of_sync rows, then compares
// in_sync rows that mirror a Stripe subscription against their remote state.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	svc := r.service
	if !svc.remote.Enabled() {
		log.Debug("[Reconcile] payment gateway not configured, skipping")
		return report, nil
	}

	recovered, err := svc.RecoverInterrupted(ctx, svc.now().Add(-pendingGrace))
	report.Recovered = recovered
	if err != nil {
		return report, err
	}

	pending, err := svc.store.ListOutOfSync(reconcileBatch)
	if err != nil {
		return report, err
	}
	for _, sub := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err := svc.ReplayPending(ctx, KindOf(sub), sub.GetID()); err != nil {
			report.Failed++
			log.Warnf("[Reconcile] %v", err)
			continue
		}
		report.Replayed++
	}

	linked, err := svc.store.ListLinkedInSync(reconcileBatch)
	if err != nil {
		return report, err
	}
	for _, sub := range linked {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		lc := sub.Lifecycle()
		remote, err := svc.remote.GetSubscription(ctx, lc.StripeSubscriptionID)
		if err != nil {
			report.Failed++
			log.Warnf("[Reconcile] fetching %s failed: %v", lc.StripeSubscriptionID, err)
			continue
		}
		if !differs(lc, *remote) {
			continue
		}
		if _, err := svc.AdoptRemote(ctx, *remote, "reconcile"); err != nil {
			report.Failed++
			log.Warnf("[Reconcile] adopting %s failed: %v", lc.StripeSubscriptionID, err)
			continue
		}
		report.Adopted++
	}

	log.Infow("[Reconcile] run finished", "recovered", report.Recovered, "replayed", report.Replayed, "adopted", report.Adopted,
		"checked", report.Checked, "failed", report.Failed)
	return report, nil
}
