package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/intake"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/ratelimit"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

// Checkout starts hosted payment sessions. *payments.CheckoutService implements it.
type Checkout interface {
	StartQuote(ctx context.Context, q *models.QuoteRequest) (*payments.CheckoutResult, error)
	StartAutomation(ctx context.Context, a *models.AutomationIntake) (*payments.CheckoutResult, error)
	StartMaintenance(ctx context.Context, req payments.MaintenanceRequest) (*payments.CheckoutResult, error)
}

// IntakeController handles the public forms and the customer checkout.
type IntakeController struct {
	intakes  repository.IntakeRepository
	leads    repository.LeadRepository
	users    repository.UserRepository
	products repository.ProductRepository
	checkout Checkout
	mailer   mail.Dispatcher
	mails    mail.Builder
	captcha  *hcaptcha.Verifier
}

func NewIntakeController(repos *repository.Repositories, checkout Checkout, mailer mail.Dispatcher, mails mail.Builder, captcha *hcaptcha.Verifier) *IntakeController {
	return &IntakeController{
		intakes:  repos.Intake,
		leads:    repos.Lead,
		users:    repos.User,
		products: repos.Product,
		checkout: checkout,
		mailer:   mailer,
		mails:    mails,
		captcha:  captcha,
	}
}

const (
	msgCaptchaFailed = "Captcha-verificatie mislukt, probeer het opnieuw"
	msgNoPayments    = "Online betalen is op dit moment niet beschikbaar"
)

func (ic *IntakeController) verifyCaptcha(c *fiber.Ctx, token string) bool {
	if !ic.captcha.Enabled() {
		return true
	}
	ok, err := ic.captcha.Verify(c.UserContext(), token, ratelimit.ClientIP(c))
	if err != nil {
		log.Infof("[Intake] captcha rejected: %v", err)
	}
	return ok
}

// HandleContact stores a contact request and mirrors it into the lead list.
func (ic *IntakeController) HandleContact(c *fiber.Ctx) error {
	var req intake.ContactRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	if !ic.verifyCaptcha(c, req.CaptchaToken) {
		return response.BadRequest(c, msgCaptchaFailed)
	}

	contact := &models.ContactRequest{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Subject:   req.Subject,
		Message:   req.Message,
		IPAddress: ratelimit.ClientIP(c),
		Status:    models.ContactStatusNew,
	}
	if err := ic.intakes.CreateContact(contact); err != nil {
		log.Errorf("[Intake] failed to store contact request from %s: %v", req.Email, err)
		return response.Internal(c)
	}

	subject := req.Subject
	if subject == "" {
		subject = "Contactformulier"
	}
	ic.mirrorLead(req.Name, req.Email, req.Company, models.LeadSourceContactForm, 10, "Contactformulier: "+subject)

	ctx := c.UserContext()
	ic.dispatch(ctx, ic.mails.ContactNotification(req.Name, req.Email, subject, req.Message))
	ic.dispatch(ctx, ic.mails.ContactAck(req.Email, req.Name, req.Message))

	return response.OK(c, fiber.Map{"id": contact.ID})
}

// HandleOfferte prices the selected package and opens the deposit checkout.
func (ic *IntakeController) HandleOfferte(c *fiber.Ctx) error {
	var req intake.QuoteRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	if !ic.verifyCaptcha(c, req.CaptchaToken) {
		return response.BadRequest(c, msgCaptchaFailed)
	}

	priced, err := catalog.BuildQuote(req.PackageID, req.Extras)
	if err != nil {
		return response.BadRequest(c, "Onbekend pakket of onbekende extra optie")
	}

	quote := &models.QuoteRequest{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		PackageID: priced.Package.ID,
		Subtotal:  priced.Subtotal,
		VAT:       priced.VAT,
		Total:     priced.Total,
		Deposit:   priced.Deposit,
		Notes:     req.Notes,
	}
	extras := make([]models.QuoteExtra, 0, len(priced.Extras))
	for _, e := range priced.Extras {
		extras = append(extras, models.QuoteExtra{ID: e.ID, Name: e.Name, Price: e.Price})
	}
	quote.Extras = datatypes.JSONSlice[models.QuoteExtra](extras)

	result, err := ic.checkout.StartQuote(c.UserContext(), quote)
	if err != nil {
		log.Errorf("[Intake] failed to store quote for %s: %v", req.Email, err)
		return response.Internal(c)
	}

	ic.mirrorLead(req.Name, req.Email, req.Company, models.LeadSourceQuoteForm, 30, "Offerte "+result.Reference+": "+priced.Package.Name)
	return response.OK(c, result)
}

// HandleAutomationIntake stores the intake and opens the subscription checkout.
func (ic *IntakeController) HandleAutomationIntake(c *fiber.Ctx) error {
	var req intake.AutomationIntakeRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}

	in := &models.AutomationIntake{
		CompanyName:   req.CompanyName,
		ContactName:   req.ContactName,
		Email:         req.Email,
		Phone:         req.Phone,
		Website:       req.Website,
		PlanID:        req.PlanID,
		BillingPeriod: req.BillingPeriod,
		Processes:     req.Processes,
		Tools:         datatypes.JSONSlice[string](req.Tools),
		Goals:         req.Goals,
		Volume:        req.Volume,
	}
	if user := usercontext.GetUserContext(c); user.IsLoggedIn {
		in.UserID = &user.UserID
	}

	result, err := ic.checkout.StartAutomation(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownPlan) || errors.Is(err, catalog.ErrUnknownPeriod) {
			return response.BadRequest(c, "Onbekend abonnement")
		}
		log.Errorf("[Intake] failed to store automation intake for %s: %v", req.Email, err)
		return response.Internal(c)
	}

	ic.mirrorLead(req.ContactName, req.Email, req.CompanyName, models.LeadSourceAutomation, 40, "Automation intake, plan "+req.PlanID)
	return response.OK(c, result)
}

// HandleMaintenanceCheckout lets a logged-in customer order a maintenance plan.
func (ic *IntakeController) HandleMaintenanceCheckout(c *fiber.Ctx) error {
	var req intake.MaintenanceCheckoutRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}

	user, err := ic.users.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "load checkout user", err)
	}
	if req.ProductID != nil {
		product, err := ic.products.GetByID(*req.ProductID)
		if err != nil && !isNotFound(err) {
			return lookupError(c, "load checkout product", err)
		}
		if err != nil || product.UserID != user.ID {
			return response.NotFound(c, "Onbekend product")
		}
	}

	result, err := ic.checkout.StartMaintenance(c.UserContext(), payments.MaintenanceRequest{
		User:          user,
		PlanID:        req.PlanID,
		BillingPeriod: req.BillingPeriod,
		ProductID:     req.ProductID,
	})
	switch {
	case errors.Is(err, payments.ErrNotConfigured):
		return response.Error(c, fiber.StatusServiceUnavailable, msgNoPayments)
	case errors.Is(err, catalog.ErrUnknownPlan), errors.Is(err, catalog.ErrUnknownPeriod):
		return response.BadRequest(c, "Onbekend abonnement")
	case err != nil:
		log.Errorf("[Intake] maintenance checkout for user %d failed: %v", user.ID, err)
		return response.Error(c, fiber.StatusBadGateway, "Betaling starten is mislukt, probeer het later opnieuw")
	}
	return response.OK(c, result)
}

// mirrorLead records the submission on the lead dashboard. Best effort.
func (ic *IntakeController) mirrorLead(name, email, company, source string, score int, description string) {
	lead, err := ic.leads.GetByEmail(email)
	if err != nil {
		if !isNotFound(err) {
			log.Errorf("[Intake] lead lookup for %s failed: %v", email, err)
			return
		}
		lead = &models.AILead{
			Name:    name,
			Email:   email,
			Company: company,
			Source:  source,
			Score:   score,
			Status:  models.LeadStatusNew,
		}
		if err := ic.leads.Create(lead); err != nil {
			log.Errorf("[Intake] failed to create lead for %s: %v", email, err)
			return
		}
	} else if score > lead.Score {
		lead.Score = score
		if err := ic.leads.Update(lead); err != nil {
			log.Warnf("[Intake] failed to bump lead %d score: %v", lead.ID, err)
		}
	}

	if err := ic.leads.AddActivity(&models.LeadActivity{
		LeadID:      lead.ID,
		Type:        "form_submitted",
		Description: description,
		Agent:       "intake",
	}); err != nil {
		log.Errorf("[Intake] failed to log activity for lead %d: %v", lead.ID, err)
	}
}

func (ic *IntakeController) dispatch(ctx context.Context, msg mail.Message) {
	if ic.mailer == nil {
		return
	}
	if err := ic.mailer.Dispatch(ctx, msg); err != nil {
		log.Errorf("[Intake] failed to dispatch %s to %s: %v", msg.Tag, msg.To, err)
	}
}
