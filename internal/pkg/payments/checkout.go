package payments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
)

// CheckoutResult is what the intake endpoints return. CheckoutURL is empty
// when payments are disabled or the provider call failed.
type CheckoutResult struct {
	ID          uint   `json:"id"`
	Reference   string `json:"reference,omitempty"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
}

// CheckoutService persists intakes and opens hosted checkout sessions for them.
// Provider failures after the intake row exists are logged, never rolled back.
type CheckoutService struct {
	repo    Repository
	gateway Gateway
	mailer  mail.Dispatcher
	mails   mail.Builder
	siteURL string
}

func NewCheckoutService(repo Repository, gateway Gateway, mailer mail.Dispatcher, mails mail.Builder, siteURL string) *CheckoutService {
	if gateway == nil {
		gateway = DisabledGateway{}
	}
	return &CheckoutService{repo: repo, gateway: gateway, mailer: mailer, mails: mails, siteURL: siteURL}
}

// StartQuote stores the quote and requests a payment-mode session for the deposit.
func (s *CheckoutService) StartQuote(ctx context.Context, q *models.QuoteRequest) (*CheckoutResult, error) {
	if q.Reference == "" {
		q.Reference = models.NewReference("O")
	}
	q.Status = models.IntakeStatusSubmitted
	if err := s.repo.SaveQuote(q); err != nil {
		return nil, fmt.Errorf("save quote: %w", err)
	}
	result := &CheckoutResult{ID: q.ID, Reference: q.Reference}

	if s.gateway.Enabled() && q.Deposit > 0 {
		session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
			Mode:              ModePayment,
			Amount:            q.Deposit,
			ProductName:       "Aanbetaling offerte " + q.Reference,
			Description:       fmt.Sprintf("50%% aanbetaling pakket %s", q.PackageID),
			CustomerEmail:     q.Email,
			ClientReferenceID: q.Reference,
			Metadata: map[string]string{
				MetaIntakeType:    IntakeTypeQuote,
				MetaIntakeID:      strconv.FormatUint(uint64(q.ID), 10),
				MetaCustomerEmail: q.Email,
			},
			SuccessURL:     s.siteURL + "/offerte/" + q.Reference + "?betaling=gelukt",
			CancelURL:      s.siteURL + "/offerte/" + q.Reference + "?betaling=geannuleerd",
			IdempotencyKey: "quote-" + q.Reference,
		})
		if err != nil {
			log.Errorf("[Checkout] quote %s: checkout session failed: %v", q.Reference, err)
		} else {
			q.StripeCheckoutSessionID = session.ID
			q.CheckoutURL = session.URL
			q.Status = models.IntakeStatusPendingPayment
			if err := s.repo.SaveQuote(q); err != nil {
				log.Errorf("[Checkout] quote %s: storing session failed: %v", q.Reference, err)
			}
			net, vat := catalog.SplitGross(q.Deposit)
			s.openInvoice(&models.Invoice{
				Description:             "Aanbetaling offerte " + q.Reference,
				Amount:                  net,
				Tax:                     vat,
				Total:                   q.Deposit,
				CustomerEmail:           q.Email,
				Source:                  models.InvoiceSourceQuote,
				SourceID:                q.ID,
				StripeCheckoutSessionID: session.ID,
				PaymentURL:              session.URL,
			})
			result.CheckoutURL = session.URL
		}
	}

	s.dispatch(ctx, s.mails.IntakeReceived(q.Email, q.Name, q.Reference, result.CheckoutURL))
	return result, nil
}

// StartAutomation stores the intake and requests a subscription-mode session.
func (s *CheckoutService) StartAutomation(ctx context.Context, a *models.AutomationIntake) (*CheckoutResult, error) {
	plan, ok := catalog.GetAutomationPlanByID(a.PlanID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownPlan, a.PlanID)
	}
	net, err := catalog.PriceFor(plan.MonthlyPrice, a.BillingPeriod)
	if err != nil {
		return nil, err
	}

	a.Status = models.IntakeStatusSubmitted
	if err := s.repo.SaveAutomationIntake(a); err != nil {
		return nil, fmt.Errorf("save automation intake: %w", err)
	}
	ref := fmt.Sprintf("A-%d", a.ID)
	result := &CheckoutResult{ID: a.ID, Reference: ref}

	if s.gateway.Enabled() {
		metadata := map[string]string{
			MetaIntakeType:    IntakeTypeAutomation,
			MetaIntakeID:      strconv.FormatUint(uint64(a.ID), 10),
			MetaPlanID:        plan.ID,
			MetaBillingPeriod: a.BillingPeriod,
			MetaWorkflows:     strconv.Itoa(plan.Limits.Workflows),
			MetaRunsPerMonth:  strconv.Itoa(plan.Limits.RunsPerMonth),
			MetaCustomerEmail: a.Email,
		}
		session, invoice, err := s.subscriptionCheckout(ctx, IntakeTypeAutomation, plan.ID, plan.Name, a.BillingPeriod, net, a.Email, "", metadata,
			s.siteURL+"/automatisering/bedankt?intake="+ref,
			s.siteURL+"/automatisering?betaling=geannuleerd",
			"automation-"+ref)
		if err != nil {
			log.Errorf("[Checkout] automation intake %d: %v", a.ID, err)
		} else {
			a.StripeCheckoutSessionID = session.ID
			a.CheckoutURL = session.URL
			a.Status = models.IntakeStatusPendingPayment
			if err := s.repo.SaveAutomationIntake(a); err != nil {
				log.Errorf("[Checkout] automation intake %d: storing session failed: %v", a.ID, err)
			}
			invoice.Source = models.InvoiceSourceAutomation
			invoice.SourceID = a.ID
			s.openInvoice(invoice)
			result.CheckoutURL = session.URL
		}
	}

	s.dispatch(ctx, s.mails.IntakeReceived(a.Email, a.ContactName, ref, result.CheckoutURL))
	return result, nil
}

// MaintenanceRequest is a logged-in customer ordering a maintenance plan.
type MaintenanceRequest struct {
	User          *models.User
	PlanID        string
	BillingPeriod string
	ProductID     *uint
}

// StartMaintenance requires a configured gateway; there is no intake row to
// fall back on.
func (s *CheckoutService) StartMaintenance(ctx context.Context, req MaintenanceRequest) (*CheckoutResult, error) {
	if !s.gateway.Enabled() {
		return nil, ErrNotConfigured
	}
	plan, ok := catalog.GetMaintenancePlanByID(req.PlanID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownPlan, req.PlanID)
	}
	net, err := catalog.PriceFor(plan.MonthlyPrice, req.BillingPeriod)
	if err != nil {
		return nil, err
	}

	userID := strconv.FormatUint(uint64(req.User.ID), 10)
	metadata := map[string]string{
		MetaIntakeType:    IntakeTypeMaintenance,
		MetaUserID:        userID,
		MetaPlanID:        plan.ID,
		MetaBillingPeriod: req.BillingPeriod,
		MetaCustomerEmail: req.User.Email,
	}
	if req.ProductID != nil {
		metadata[MetaProductID] = strconv.FormatUint(uint64(*req.ProductID), 10)
	}

	session, invoice, err := s.subscriptionCheckout(ctx, IntakeTypeMaintenance, plan.ID, plan.Name, req.BillingPeriod, net,
		req.User.Email, req.User.StripeCustomerID, metadata,
		s.siteURL+"/portal/products?checkout=gelukt",
		s.siteURL+"/portal/products?checkout=geannuleerd",
		"")
	if err != nil {
		return nil, err
	}
	invoice.UserID = &req.User.ID
	invoice.Source = models.InvoiceSourceMaintenance
	invoice.SourceID = req.User.ID
	s.openInvoice(invoice)

	return &CheckoutResult{ID: invoice.ID, Reference: invoice.Number, CheckoutURL: session.URL}, nil
}

// subscriptionCheckout resolves the recurring price and opens the session.
// The returned invoice is not yet stored.
func (s *CheckoutService) subscriptionCheckout(
	ctx context.Context,
	kind, planID, planName, period string,
	net int64,
	email, customerID string,
	metadata map[string]string,
	successURL, cancelURL, idempotencyKey string,
) (*CheckoutSession, *models.Invoice, error) {
	vat, gross := catalog.AddVAT(net)
	priceID, err := s.gateway.EnsureRecurringPrice(ctx, PriceSpec{
		LookupKey:   LookupKey(kind, planID, period),
		ProductName: planName,
		UnitAmount:  gross,
		Interval:    Interval(period),
		Metadata:    map[string]string{MetaPlanID: planID, MetaBillingPeriod: period},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("resolve price: %w", err)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		Mode:           ModeSubscription,
		PriceID:        priceID,
		Description:    planName,
		CustomerEmail:  email,
		CustomerID:     customerID,
		Metadata:       metadata,
		SuccessURL:     successURL,
		CancelURL:      cancelURL,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create checkout session: %w", err)
	}

	invoice := &models.Invoice{
		Description:             fmt.Sprintf("%s (%s)", planName, periodLabel(period)),
		Amount:                  net,
		Tax:                     vat,
		Total:                   gross,
		CustomerEmail:           email,
		StripeCheckoutSessionID: session.ID,
		PaymentURL:              session.URL,
	}
	return session, invoice, nil
}

func (s *CheckoutService) openInvoice(inv *models.Invoice) {
	inv.Status = models.InvoiceStatusOpen
	if inv.Currency == "" {
		inv.Currency = "eur"
	}
	if err := s.repo.SaveInvoice(inv); err != nil {
		log.Errorf("[Checkout] creating invoice for session %s failed: %v", inv.StripeCheckoutSessionID, err)
	}
}

func (s *CheckoutService) dispatch(ctx context.Context, msg mail.Message) {
	if s.mailer == nil || msg.To == "" {
		return
	}
	if err := s.mailer.Dispatch(ctx, msg); err != nil {
		log.Warnf("[Checkout] queueing %s mail to %s failed: %v", msg.Tag, msg.To, err)
	}
}

func periodLabel(period string) string {
	if period == models.BillingPeriodYearly {
		return "jaarlijks"
	}
	return "maandelijks"
}
