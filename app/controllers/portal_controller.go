package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/flash"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

// BillingPortal opens the provider's self-service page. payments.Gateway implements it.
type BillingPortal interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// PortalController serves the customer self-service pages and their JSON API.
// Every lookup is scoped to the logged-in user.
type PortalController struct {
	repos   *repository.Repositories
	billing BillingPortal
	siteURL string
}

func NewPortalController(repos *repository.Repositories, billing BillingPortal, siteURL string) *PortalController {
	return &PortalController{repos: repos, billing: billing, siteURL: siteURL}
}

type newTicketRequest struct {
	Subject   string `json:"subject" form:"subject" validate:"required,min=3,max=200"`
	Body      string `json:"body" form:"body" validate:"required,min=10,max=10000"`
	Priority  string `json:"priority" form:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ProductID *uint  `json:"product_id" form:"product_id"`
}

type profileRequest struct {
	Name        *string `json:"name"`
	Company     *string `json:"company"`
	Phone       *string `json:"phone"`
	VATNumber   *string `json:"vat_number"`
	AddressLine *string `json:"address_line"`
	PostalCode  *string `json:"postal_code"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
}

func (pc *PortalController) view(c *fiber.Ctx, name, title string, data fiber.Map) error {
	return renderPage(c, name, title, data)
}

// HandleDashboard renders the portal start page.
func (pc *PortalController) HandleDashboard(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	subs, err := pc.repos.Subscription.GetByUserID(userID)
	if err != nil {
		return err
	}
	automation, err := pc.repos.Subscription.GetAutomationByUserID(userID)
	if err != nil {
		return err
	}
	tickets, err := pc.repos.Ticket.ListByUser(userID)
	if err != nil {
		return err
	}
	return pc.view(c, "portal/index", "Mijn omgeving", fiber.Map{
		"Subscriptions": subs,
		"Automation":    automation,
		"Tickets":       tickets,
		"Plans":         catalog.MaintenancePlans(),
	})
}

func (pc *PortalController) HandleTicketsPage(c *fiber.Ctx) error {
	tickets, err := pc.repos.Ticket.ListByUser(usercontext.GetUserID(c))
	if err != nil {
		return err
	}
	return pc.view(c, "portal/tickets", "Tickets", fiber.Map{"Tickets": tickets})
}

func (pc *PortalController) HandleTicketPage(c *fiber.Ctx) error {
	ticket, err := pc.ownTicket(c)
	if err != nil {
		if isNotFound(err) {
			return flash.Error(c, "/portal/tickets", "Ticket niet gevonden")
		}
		return err
	}
	return pc.view(c, "portal/ticket", "Ticket "+ticket.Reference, fiber.Map{"Ticket": ticket})
}

func (pc *PortalController) HandleInvoicesPage(c *fiber.Ctx) error {
	invoices, err := pc.repos.Invoice.ListByUser(usercontext.GetUserID(c))
	if err != nil {
		return err
	}
	return pc.view(c, "portal/invoices", "Facturen", fiber.Map{"Invoices": invoices})
}

func (pc *PortalController) HandleProductsPage(c *fiber.Ctx) error {
	products, err := pc.repos.Product.GetByUserID(usercontext.GetUserID(c))
	if err != nil {
		return err
	}
	return pc.view(c, "portal/products", "Producten", fiber.Map{"Products": products})
}

// ownTicket loads :ref and hides tickets of other users as not found.
func (pc *PortalController) ownTicket(c *fiber.Ctx) (*models.SupportTicket, error) {
	ticket, err := pc.repos.Ticket.GetByReference(strings.ToUpper(c.Params("ref")))
	if err != nil {
		return nil, err
	}
	if ticket.UserID != usercontext.GetUserID(c) {
		return nil, gorm.ErrRecordNotFound
	}
	return ticket, nil
}

func (pc *PortalController) HandleListTickets(c *fiber.Ctx) error {
	tickets, err := pc.repos.Ticket.ListByUser(usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "list own tickets", err)
	}
	return response.OK(c, fiber.Map{"items": tickets})
}

func (pc *PortalController) HandleCreateTicket(c *fiber.Ctx) error {
	var req newTicketRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	userID := usercontext.GetUserID(c)
	if req.ProductID != nil {
		product, err := pc.repos.Product.GetByID(*req.ProductID)
		if err != nil || product.UserID != userID {
			return response.BadRequest(c, "Onbekend product")
		}
	}
	if req.Priority == "" {
		req.Priority = models.TicketPriorityMedium
	}

	ticket := &models.SupportTicket{
		Reference: models.NewReference("T"),
		UserID:    userID,
		ProductID: req.ProductID,
		Subject:   strings.TrimSpace(req.Subject),
		Status:    models.TicketStatusOpen,
		Priority:  req.Priority,
	}
	first := &models.TicketMessage{
		SenderType: models.SenderCustomer,
		SenderID:   &userID,
		Body:       strings.TrimSpace(req.Body),
	}
	if err := pc.repos.Ticket.Create(ticket, first); err != nil {
		log.Errorf("[Portal] create ticket for user %d failed: %v", userID, err)
		return response.Internal(c)
	}
	return response.Created(c, ticket)
}

// HandleTicketMessage appends a customer message. A ticket waiting on the
// customer goes back to open.
func (pc *PortalController) HandleTicketMessage(c *fiber.Ctx) error {
	var req ticketReplyRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	ticket, err := pc.ownTicket(c)
	if err != nil {
		return lookupError(c, "load own ticket", err)
	}
	if ticket.Status == models.TicketStatusClosed {
		return response.Error(c, fiber.StatusConflict, "Dit ticket is gesloten")
	}

	userID := usercontext.GetUserID(c)
	msg := &models.TicketMessage{
		SenderType: models.SenderCustomer,
		SenderID:   &userID,
		Body:       strings.TrimSpace(req.Body),
	}
	if ticket.Status == models.TicketStatusWaitingCustomer || ticket.Status == models.TicketStatusResolved {
		ticket.SetStatus(models.TicketStatusOpen, time.Now())
	}
	if err := pc.repos.Ticket.AddMessage(ticket, msg); err != nil {
		log.Errorf("[Portal] message on %s failed: %v", ticket.Reference, err)
		return response.Internal(c)
	}
	return response.Created(c, msg)
}

func (pc *PortalController) HandleListInvoices(c *fiber.Ctx) error {
	invoices, err := pc.repos.Invoice.ListByUser(usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "list own invoices", err)
	}
	return response.OK(c, fiber.Map{"items": invoices})
}

func (pc *PortalController) HandleListProducts(c *fiber.Ctx) error {
	products, err := pc.repos.Product.GetByUserID(usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "list own products", err)
	}
	return response.OK(c, fiber.Map{"items": products})
}

func (pc *PortalController) HandleUpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, msgInvalidBody)
	}
	user, err := pc.repos.User.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "load profile", err)
	}
	applyUserFields(user, updateUserRequest{
		Name:        req.Name,
		Company:     req.Company,
		Phone:       req.Phone,
		VATNumber:   req.VATNumber,
		AddressLine: req.AddressLine,
		PostalCode:  req.PostalCode,
		City:        req.City,
		Country:     req.Country,
	})
	if err := user.Validate(); err != nil {
		return response.BadRequest(c, msgInvalidBody)
	}
	if err := pc.repos.User.Update(user); err != nil {
		log.Errorf("[Portal] profile update for user %d failed: %v", user.ID, err)
		return response.Internal(c)
	}
	return response.OK(c, user)
}

// HandleStripePortal returns the billing portal URL (POST) or redirects to
// it (GET).
func (pc *PortalController) HandleStripePortal(c *fiber.Ctx) error {
	user, err := pc.repos.User.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return lookupError(c, "load portal user", err)
	}
	if user.StripeCustomerID == "" {
		return response.BadRequest(c, "Er is nog geen betaalaccount gekoppeld")
	}
	url, err := pc.billing.CreatePortalSession(c.UserContext(), user.StripeCustomerID, pc.siteURL+"/portal")
	switch {
	case errors.Is(err, payments.ErrNotConfigured):
		return response.Error(c, fiber.StatusServiceUnavailable, msgNoPayments)
	case err != nil:
		log.Errorf("[Portal] billing portal for user %d failed: %v", user.ID, err)
		return response.Error(c, fiber.StatusBadGateway, "Betaalomgeving openen is mislukt")
	}
	if c.Method() == fiber.MethodGet {
		return c.Redirect(url, fiber.StatusSeeOther)
	}
	return response.OK(c, fiber.Map{"url": url})
}
