package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

type AdminTicketController struct {
	tickets repository.TicketRepository
	audit   repository.AuditRepository
	mailer  mail.Dispatcher
	mails   mail.Builder
}

func NewAdminTicketController(tickets repository.TicketRepository, audit repository.AuditRepository, mailer mail.Dispatcher, mails mail.Builder) *AdminTicketController {
	return &AdminTicketController{tickets: tickets, audit: audit, mailer: mailer, mails: mails}
}

type ticketUpdateRequest struct {
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	AssignedToID *uint   `json:"assigned_to_id"`
}

type ticketReplyRequest struct {
	Body string `json:"body" form:"body" validate:"required,min=2,max=10000"`
}

func (tc *AdminTicketController) HandleList(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	tickets, err := tc.tickets.List(offset, limit, c.Query("status"))
	if err != nil {
		return lookupError(c, "list tickets", err)
	}
	return response.OK(c, fiber.Map{"items": tickets})
}

func (tc *AdminTicketController) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	ticket, err := tc.tickets.GetByID(id)
	if err != nil {
		return lookupError(c, "load ticket", err)
	}
	return response.OK(c, ticket)
}

func (tc *AdminTicketController) HandleUpdate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	var req ticketUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, msgInvalidBody)
	}
	if req.Status == nil && req.Priority == nil && req.AssignedToID == nil {
		return response.BadRequest(c, "Geen wijzigingen opgegeven")
	}
	if req.Status != nil && !models.IsValidTicketStatus(*req.Status) {
		return response.BadRequest(c, "Ongeldige status")
	}
	if req.Priority != nil && !models.IsValidTicketPriority(*req.Priority) {
		return response.BadRequest(c, "Ongeldige prioriteit")
	}

	ticket, err := tc.tickets.GetByID(id)
	if err != nil {
		return lookupError(c, "load ticket", err)
	}
	before := ticketSnapshot(ticket)
	if req.Status != nil {
		ticket.SetStatus(*req.Status, time.Now())
	}
	if req.Priority != nil {
		ticket.Priority = *req.Priority
	}
	if req.AssignedToID != nil {
		if *req.AssignedToID == 0 {
			ticket.AssignedToID = nil
		} else {
			ticket.AssignedToID = req.AssignedToID
		}
	}
	if err := tc.tickets.Update(ticket); err != nil {
		log.Errorf("[AdminTickets] update %s failed: %v", ticket.Reference, err)
		return response.Internal(c)
	}
	writeAudit(c, tc.audit, "ticket.update", "ticket", ticket.ID, before, ticketSnapshot(ticket))
	return response.OK(c, ticket)
}

// HandleReply posts a support message, waits on the customer and mails them.
func (tc *AdminTicketController) HandleReply(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	var req ticketReplyRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	ticket, err := tc.tickets.GetByID(id)
	if err != nil {
		return lookupError(c, "load ticket", err)
	}

	actorID := usercontext.GetUserID(c)
	msg := &models.TicketMessage{
		SenderType: models.SenderSupport,
		SenderID:   &actorID,
		Body:       strings.TrimSpace(req.Body),
	}
	if ticket.Status != models.TicketStatusClosed {
		ticket.SetStatus(models.TicketStatusWaitingCustomer, time.Now())
	}
	if err := tc.tickets.AddMessage(ticket, msg); err != nil {
		log.Errorf("[AdminTickets] reply on %s failed: %v", ticket.Reference, err)
		return response.Internal(c)
	}
	writeAudit(c, tc.audit, "ticket.reply", "ticket", ticket.ID, nil, fiber.Map{"message_id": msg.ID, "status": ticket.Status})

	if ticket.User != nil && tc.mailer != nil {
		reply := tc.mails.TicketReply(ticket.User.Email, ticket.User.Name, ticket.Reference, msg.Body)
		if err := tc.mailer.Dispatch(context.WithoutCancel(c.UserContext()), reply); err != nil {
			log.Errorf("[AdminTickets] reply mail for %s failed: %v", ticket.Reference, err)
		}
	}
	return response.Created(c, msg)
}

func ticketSnapshot(t *models.SupportTicket) fiber.Map {
	return fiber.Map{"status": t.Status, "priority": t.Priority, "assigned_to_id": t.AssignedToID}
}
