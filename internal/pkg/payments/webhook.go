package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
)

// Stripe event types handled by the webhook.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutExpired        = "checkout.session.expired"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventSubscriptionUpdated    = "customer.subscription.updated"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
)

// SubscriptionSyncer adopts a remote subscription state onto the matching
// local row. It reports false when no local row mirrors the subscription.
type SubscriptionSyncer interface {
	AdoptRemote(ctx context.Context, remote RemoteSubscription, source string) (bool, error)
}

// WebhookResult describes what happened to one delivery.
type WebhookResult struct {
	EventID   string `json:"eventId"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate"`
	Verified  bool   `json:"verified"`
}

// WebhookService verifies, deduplicates and applies Stripe webhook events.
type WebhookService struct {
	repo   Repository
	secret string
	syncer SubscriptionSyncer
	mailer mail.Dispatcher
	mails  mail.Builder
	now    func() time.Time
}

func NewWebhookService(repo Repository, secret string, syncer SubscriptionSyncer, mailer mail.Dispatcher, mails mail.Builder) *WebhookService {
	return &WebhookService{
		repo:   repo,
		secret: strings.TrimSpace(secret),
		syncer: syncer,
		mailer: mailer,
		mails:  mails,
		now:    time.Now,
	}
}

// HandleStripe processes one delivery. ErrInvalidSignature and
// ErrInvalidPayload mean nothing was written. Any other error means the
// event could not be recorded and the provider should retry. Processing
// failures after recording are stored on the event and not returned.
func (s *WebhookService) HandleStripe(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, verified, err := s.parse(payload, signatureHeader)
	if err != nil {
		return nil, err
	}
	result := &WebhookResult{EventID: event.ID, Type: string(event.Type), Verified: verified}

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.WebhookProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  verified,
	})
	if err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}
	if !created {
		log.Infof("[Webhook] Duplicate delivery of %s (%s) ignored", event.ID, event.Type)
		result.Duplicate = true
		return result, nil
	}

	procErr := s.process(ctx, event)
	if procErr != nil {
		log.Errorw("[Webhook] processing failed", "event", event.ID, "type", event.Type, "error", procErr)
	}
	if err := s.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
		log.Errorf("[Webhook] marking %s processed failed: %v", event.ID, err)
	}
	return result, nil
}

func (s *WebhookService) parse(payload []byte, header string) (stripe.Event, bool, error) {
	if s.secret == "" {
		log.Warn("[Webhook] STRIPE_WEBHOOK_SECRET not set, accepting unverified payload")
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return event, false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if event.Type == "" {
			return event, false, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
		}
		return event, false, nil
	}

	event, err := webhook.ConstructEventWithOptions(payload, header, s.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrTooOld) {
			return event, false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return event, false, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return event, true, nil
}

// WebhookEventInput is the provider-neutral record of one delivery.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *WebhookService) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *WebhookService) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func (s *WebhookService) process(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return errors.New("event has no data")
	}
	raw := event.Data.Raw

	switch string(event.Type) {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(raw, &cs); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
			cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
			log.Infof("[Webhook] Checkout %s completed with payment_status=%s, waiting for async payment", cs.ID, cs.PaymentStatus)
			return nil
		}
		return s.fulfil(ctx, &cs)

	case EventCheckoutAsyncSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(raw, &cs); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.fulfil(ctx, &cs)

	case EventCheckoutExpired:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(raw, &cs); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.expire(&cs)

	case EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(raw, &pi); err != nil {
			return fmt.Errorf("decode payment intent: %w", err)
		}
		return s.paymentFailed(ctx, &pi)

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		remote := FromStripeSubscription(&sub)
		if string(event.Type) == EventSubscriptionDeleted {
			remote.Status = models.SubscriptionStatusCancelled
		}
		if s.syncer == nil {
			return nil
		}
		found, err := s.syncer.AdoptRemote(ctx, *remote, "webhook")
		if err != nil {
			return err
		}
		if !found {
			log.Debugf("[Webhook] No local subscription for %s", remote.ID)
		}
		return nil

	default:
		log.Debugf("[Webhook] Ignoring event type %s", event.Type)
		return nil
	}
}

// fulfilment collects what the confirmation mails and invoice need.
type fulfilment struct {
	source      string
	sourceID    uint
	userID      *uint
	name        string
	email       string
	description string
	reference   string
}

func (s *WebhookService) fulfil(ctx context.Context, cs *stripe.CheckoutSession) error {
	intakeType := cs.Metadata[MetaIntakeType]
	now := s.now()

	var (
		f   *fulfilment
		err error
	)
	switch intakeType {
	case IntakeTypeQuote:
		f, err = s.fulfilQuote(cs)
	case IntakeTypeAutomation:
		f, err = s.fulfilAutomation(cs, now)
	case IntakeTypeMaintenance:
		f, err = s.fulfilMaintenance(cs, now)
	default:
		return fmt.Errorf("checkout %s has unknown intake type %q", cs.ID, intakeType)
	}
	if err != nil {
		return err
	}
	if email := sessionEmail(cs); email != "" {
		f.email = email
	}

	amount, err := s.markInvoicePaid(cs, f, now)
	if err != nil {
		return err
	}

	s.dispatch(ctx, s.mails.PaymentConfirmed(f.email, f.name, f.description, amount))
	s.dispatch(ctx, s.mails.PaymentNotification(f.email, f.description, f.reference, amount))
	log.Infow("[Webhook] Checkout fulfilled", "session", cs.ID, "intake_type", intakeType, "reference", f.reference)
	return nil
}

func (s *WebhookService) fulfilQuote(cs *stripe.CheckoutSession) (*fulfilment, error) {
	id, err := metaUint(cs.Metadata, MetaIntakeID)
	if err != nil {
		return nil, err
	}
	q, err := s.repo.GetQuote(id)
	if err != nil {
		return nil, fmt.Errorf("load quote %d: %w", id, err)
	}
	q.Status = models.IntakeStatusPaid
	if q.StripeCheckoutSessionID == "" {
		q.StripeCheckoutSessionID = cs.ID
	}
	if err := s.repo.SaveQuote(q); err != nil {
		return nil, fmt.Errorf("save quote %d: %w", id, err)
	}
	return &fulfilment{
		source:      models.InvoiceSourceQuote,
		sourceID:    q.ID,
		name:        q.Name,
		email:       q.Email,
		description: "Aanbetaling offerte " + q.Reference,
		reference:   q.Reference,
	}, nil
}

func (s *WebhookService) fulfilAutomation(cs *stripe.CheckoutSession, now time.Time) (*fulfilment, error) {
	id, err := metaUint(cs.Metadata, MetaIntakeID)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.GetAutomationIntake(id)
	if err != nil {
		return nil, fmt.Errorf("load automation intake %d: %w", id, err)
	}

	email := sessionEmail(cs)
	if email == "" {
		email = a.Email
	}
	if a.UserID == nil {
		if u, err := s.repo.FindUserByEmail(email); err == nil {
			a.UserID = &u.ID
		}
	}
	a.Status = models.IntakeStatusPaid
	if err := s.repo.SaveAutomationIntake(a); err != nil {
		return nil, fmt.Errorf("save automation intake %d: %w", id, err)
	}

	planID := cs.Metadata[MetaPlanID]
	if planID == "" {
		planID = a.PlanID
	}
	plan, ok := catalog.GetAutomationPlanByID(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownPlan, planID)
	}
	limits := models.AutomationLimits{
		Workflows:    metaInt(cs.Metadata, MetaWorkflows, plan.Limits.Workflows),
		RunsPerMonth: metaInt(cs.Metadata, MetaRunsPerMonth, plan.Limits.RunsPerMonth),
	}
	period := cs.Metadata[MetaBillingPeriod]
	if period == "" {
		period = a.BillingPeriod
	}

	if subID := subscriptionID(cs); subID != "" {
		sub := &models.AutomationSubscription{
			UserID:             a.UserID,
			AutomationIntakeID: &a.ID,
			PlanID:             plan.ID,
			PlanName:           plan.Name,
			BillingPeriod:      period,
			MonthlyPrice:       int(plan.MonthlyPrice),
			CustomerEmail:      email,
			Limits:             datatypes.NewJSONType(limits),
		}
		sub.Status = models.SubscriptionStatusActive
		sub.StripeSubscriptionID = subID
		sub.StripeCustomerID = customerID(cs)
		sub.MarkInSync(now)
		if err := s.repo.UpsertAutomationSubscription(sub); err != nil {
			return nil, fmt.Errorf("store automation subscription: %w", err)
		}
	}

	return &fulfilment{
		source:      models.InvoiceSourceAutomation,
		sourceID:    a.ID,
		userID:      a.UserID,
		name:        a.ContactName,
		email:       email,
		description: plan.Name,
		reference:   fmt.Sprintf("A-%d", a.ID),
	}, nil
}

func (s *WebhookService) fulfilMaintenance(cs *stripe.CheckoutSession, now time.Time) (*fulfilment, error) {
	userID, err := metaUint(cs.Metadata, MetaUserID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	plan, ok := catalog.GetMaintenancePlanByID(cs.Metadata[MetaPlanID])
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownPlan, cs.Metadata[MetaPlanID])
	}
	period := cs.Metadata[MetaBillingPeriod]
	if period == "" {
		period = models.BillingPeriodMonthly
	}

	if subID := subscriptionID(cs); subID != "" {
		sub := &models.Subscription{
			UserID:        user.ID,
			PlanType:      plan.ID,
			PlanName:      plan.Name,
			BillingPeriod: period,
			MonthlyPrice:  int(plan.MonthlyPrice),
			HoursIncluded: plan.HoursIncluded,
		}
		if pid, err := metaUint(cs.Metadata, MetaProductID); err == nil {
			sub.ProductID = &pid
		}
		sub.Status = models.SubscriptionStatusActive
		sub.StripeSubscriptionID = subID
		sub.StripeCustomerID = customerID(cs)
		sub.MarkInSync(now)
		if err := s.repo.UpsertSubscription(sub); err != nil {
			return nil, fmt.Errorf("store subscription: %w", err)
		}
	}
	if cid := customerID(cs); cid != "" {
		if err := s.repo.SetUserStripeCustomer(user.ID, cid); err != nil {
			log.Warnf("[Webhook] storing Stripe customer for user %d failed: %v", user.ID, err)
		}
	}

	return &fulfilment{
		source:      models.InvoiceSourceMaintenance,
		sourceID:    user.ID,
		userID:      &user.ID,
		name:        user.Name,
		email:       user.Email,
		description: plan.Name,
		reference:   cs.ID,
	}, nil
}

// markInvoicePaid flips the invoice opened at checkout to paid, creating it
// from the session total when it is missing. It returns the paid total.
func (s *WebhookService) markInvoicePaid(cs *stripe.CheckoutSession, f *fulfilment, now time.Time) (int64, error) {
	inv, err := s.repo.FindInvoiceByCheckoutSession(cs.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("load invoice for %s: %w", cs.ID, err)
	}
	if inv == nil {
		net, vat := catalog.SplitGross(cs.AmountTotal)
		inv = &models.Invoice{
			Description:             f.description,
			Amount:                  net,
			Tax:                     vat,
			Total:                   cs.AmountTotal,
			Currency:                "eur",
			CustomerEmail:           f.email,
			Source:                  f.source,
			SourceID:                f.sourceID,
			StripeCheckoutSessionID: cs.ID,
		}
	}
	if inv.IsPaid() {
		return inv.Total, nil
	}
	if inv.UserID == nil {
		inv.UserID = f.userID
	}
	inv.MarkPaid(now)
	if err := s.repo.SaveInvoice(inv); err != nil {
		return 0, fmt.Errorf("save invoice for %s: %w", cs.ID, err)
	}
	return inv.Total, nil
}

func (s *WebhookService) expire(cs *stripe.CheckoutSession) error {
	log.Infof("[Webhook] Checkout session %s expired", cs.ID)

	id, err := metaUint(cs.Metadata, MetaIntakeID)
	switch cs.Metadata[MetaIntakeType] {
	case IntakeTypeQuote:
		if err != nil {
			return err
		}
		q, err := s.repo.GetQuote(id)
		if err != nil {
			return fmt.Errorf("load quote %d: %w", id, err)
		}
		if q.Status != models.IntakeStatusPaid {
			q.Status = models.IntakeStatusExpired
			if err := s.repo.SaveQuote(q); err != nil {
				return err
			}
		}
	case IntakeTypeAutomation:
		if err != nil {
			return err
		}
		a, err := s.repo.GetAutomationIntake(id)
		if err != nil {
			return fmt.Errorf("load automation intake %d: %w", id, err)
		}
		if a.Status != models.IntakeStatusPaid {
			a.Status = models.IntakeStatusExpired
			if err := s.repo.SaveAutomationIntake(a); err != nil {
				return err
			}
		}
	}

	inv, err := s.repo.FindInvoiceByCheckoutSession(cs.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if inv.Status == models.InvoiceStatusOpen {
		inv.Status = models.InvoiceStatusVoid
		return s.repo.SaveInvoice(inv)
	}
	return nil
}

func (s *WebhookService) paymentFailed(ctx context.Context, pi *stripe.PaymentIntent) error {
	email := strings.TrimSpace(pi.ReceiptEmail)
	if email == "" {
		email = strings.TrimSpace(pi.Metadata[MetaCustomerEmail])
	}
	reason := ""
	if pi.LastPaymentError != nil {
		reason = pi.LastPaymentError.Msg
	}
	log.Warnw("[Webhook] Payment failed", "payment_intent", pi.ID, "reason", reason)
	if email == "" {
		return nil
	}
	s.dispatch(ctx, s.mails.PaymentFailed(email, reason, pi.Amount))
	return nil
}

func (s *WebhookService) dispatch(ctx context.Context, msg mail.Message) {
	if s.mailer == nil || msg.To == "" {
		return
	}
	if err := s.mailer.Dispatch(ctx, msg); err != nil {
		log.Warnf("[Webhook] queueing %s mail to %s failed: %v", msg.Tag, msg.To, err)
	}
}

func sessionEmail(cs *stripe.CheckoutSession) string {
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		return strings.ToLower(cs.CustomerDetails.Email)
	}
	if cs.CustomerEmail != "" {
		return strings.ToLower(cs.CustomerEmail)
	}
	return strings.ToLower(cs.Metadata[MetaCustomerEmail])
}

func subscriptionID(cs *stripe.CheckoutSession) string {
	if cs.Subscription != nil {
		return cs.Subscription.ID
	}
	return ""
}

func customerID(cs *stripe.CheckoutSession) string {
	if cs.Customer != nil {
		return cs.Customer.ID
	}
	return ""
}

func metaUint(meta map[string]string, key string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(meta[key]), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("metadata %s missing or invalid: %q", key, meta[key])
	}
	return uint(v), nil
}

func metaInt(meta map[string]string, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(meta[key]))
	if err != nil {
		return def
	}
	return v
}
