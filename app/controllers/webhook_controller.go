package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
)

// StripeWebhooks verifies and applies provider events. *payments.WebhookService implements it.
type StripeWebhooks interface {
	HandleStripe(ctx context.Context, payload []byte, signatureHeader string) (*payments.WebhookResult, error)
}

// ReconcileRunner runs one reconciliation pass. *subscriptions.Reconciler implements it.
type ReconcileRunner interface {
	Run(ctx context.Context) (*subscriptions.Report, error)
}

type WebhookController struct {
	webhooks  StripeWebhooks
	reconcile ReconcileRunner
}

func NewWebhookController(webhooks StripeWebhooks, reconcile ReconcileRunner) *WebhookController {
	return &WebhookController{webhooks: webhooks, reconcile: reconcile}
}

// HandleStripeWebhook answers 400 for unverifiable deliveries and 200 once the
// event is recorded, even when processing it failed.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the body buffer after the handler returns
	payload := append([]byte(nil), c.Body()...)

	result, err := wc.webhooks.HandleStripe(c.UserContext(), payload, c.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		log.Warnf("[Webhook] rejected delivery from %s: %v", c.IP(), err)
		return response.BadRequest(c, "Ongeldige handtekening")
	case errors.Is(err, payments.ErrInvalidPayload):
		return response.BadRequest(c, "Ongeldige payload")
	case err != nil:
		log.Errorf("[Webhook] failed to record event: %v", err)
		return response.Internal(c)
	}
	return response.OK(c, result)
}

// HandleCronReconcile runs reconciliation for an external scheduler.
func (wc *WebhookController) HandleCronReconcile(c *fiber.Ctx) error {
	report, err := wc.reconcile.Run(c.UserContext())
	if err != nil {
		log.Errorf("[Cron] reconcile failed: %v", err)
		return response.Internal(c)
	}
	return response.OK(c, report)
}
