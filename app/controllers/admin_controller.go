package controllers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/documents"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/jobqueue"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
)

const msgQueueDown = "Job queue niet beschikbaar"

// AdminController serves the back-office read models: dashboard, audit log,
// invoices, intakes with their generated documents and the job queue.
type AdminController struct {
	repos   *repository.Repositories
	archive documents.ArchiveQueue
	company string
}

// NewAdminController creates a new admin controller with repository dependencies
func NewAdminController(repos *repository.Repositories, archive documents.ArchiveQueue, company string) *AdminController {
	return &AdminController{repos: repos, archive: archive, company: company}
}

func (ac *AdminController) dashboardCounts() (fiber.Map, error) {
	totalUsers, err := ac.repos.User.Count()
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	activeSubs, err := ac.repos.Subscription.Count(models.SubscriptionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	openTickets, err := ac.repos.Ticket.List(0, 100, models.TicketStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("list open tickets: %w", err)
	}
	leads, err := ac.repos.Lead.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	return fiber.Map{
		"users":               totalUsers,
		"activeSubscriptions": activeSubs,
		"openTickets":         len(openTickets),
		"leads":               leads,
	}, nil
}

// HandleDashboard returns the headline counters of the admin start page.
func (ac *AdminController) HandleDashboard(c *fiber.Ctx) error {
	counts, err := ac.dashboardCounts()
	if err != nil {
		return lookupError(c, "dashboard", err)
	}
	return response.OK(c, counts)
}

// HandleDashboardPage renders the back-office shell; the sections load from the JSON API.
func (ac *AdminController) HandleDashboardPage(c *fiber.Ctx) error {
	counts, err := ac.dashboardCounts()
	if err != nil {
		return err
	}
	return renderPage(c, "admin/index", "Beheer", fiber.Map{"Counts": counts})
}

func (ac *AdminController) HandleAuditLog(c *fiber.Ctx) error {
	filter := repository.AuditFilter{
		TargetType: c.Query("target_type"),
		Limit:      c.QueryInt("limit", 50),
	}
	if v := c.Query("target_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return response.BadRequest(c, msgInvalidID)
		}
		filter.TargetID = uint(id)
	}
	if v := c.QueryInt("actor_id", 0); v > 0 {
		filter.ActorID = uint(v)
	}
	entries, err := ac.repos.Audit.List(filter)
	if err != nil {
		return lookupError(c, "list audit log", err)
	}
	return response.OK(c, fiber.Map{"items": entries})
}

func (ac *AdminController) HandleInvoices(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	invoices, err := ac.repos.Invoice.List(offset, limit, c.Query("status"))
	if err != nil {
		return lookupError(c, "list invoices", err)
	}
	return response.OK(c, fiber.Map{"items": invoices})
}

// HandleVoidInvoice voids an unpaid invoice. Paid invoices are immutable.
func (ac *AdminController) HandleVoidInvoice(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	inv, err := ac.repos.Invoice.GetByID(id)
	if err != nil {
		return lookupError(c, "load invoice", err)
	}
	if inv.IsPaid() {
		return response.Error(c, fiber.StatusConflict, "Een betaalde factuur kan niet vervallen")
	}
	if inv.Status == models.InvoiceStatusVoid {
		return response.OK(c, inv)
	}
	before := *inv
	inv.Status = models.InvoiceStatusVoid
	if err := ac.repos.Invoice.Update(inv); err != nil {
		if errors.Is(err, models.ErrInvoiceLocked) {
			return response.Error(c, fiber.StatusConflict, "Een betaalde factuur kan niet vervallen")
		}
		log.Errorf("[AdminInvoices] void %s failed: %v", inv.Number, err)
		return response.Internal(c)
	}
	writeAudit(c, ac.repos.Audit, "invoice.void", "invoice", inv.ID, before, inv)
	return response.OK(c, inv)
}

func (ac *AdminController) HandleIntakes(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	contacts, err := ac.repos.Intake.ListContacts(offset, limit)
	if err != nil {
		return lookupError(c, "list contacts", err)
	}
	quotes, err := ac.repos.Intake.ListQuotes(offset, limit)
	if err != nil {
		return lookupError(c, "list quotes", err)
	}
	automation, err := ac.repos.Intake.ListAutomation(offset, limit)
	if err != nil {
		return lookupError(c, "list automation intakes", err)
	}
	return response.OK(c, fiber.Map{"contacts": contacts, "quotes": quotes, "automation": automation})
}

// HandleIntakePrompt renders the project prompt of an automation intake, or
// of a quote with ?type=quote, and archives it.
func (ac *AdminController) HandleIntakePrompt(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}

	var (
		prompt documents.Prompt
		name   string
	)
	switch c.Query("type", "automation") {
	case "automation":
		in, err := ac.repos.Intake.GetAutomationByID(id)
		if err != nil {
			return lookupError(c, "load automation intake", err)
		}
		prompt, name = documents.AutomationPrompt(in), fmt.Sprintf("A-%d.md", in.ID)
	case "quote":
		q, err := ac.repos.Intake.GetQuoteByID(id)
		if err != nil {
			return lookupError(c, "load quote", err)
		}
		prompt, name = documents.QuotePrompt(q), q.Reference+".md"
	default:
		return response.BadRequest(c, "Onbekend type")
	}

	body, err := prompt.Render()
	if err != nil {
		log.Errorf("[AdminIntakes] prompt %s: %v", name, err)
		return response.Internal(c)
	}
	return ac.sendMarkdown(c, "prompts", name, body)
}

func (ac *AdminController) HandleQuoteDocument(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	q, err := ac.repos.Intake.GetQuoteByID(id)
	if err != nil {
		return lookupError(c, "load quote", err)
	}
	body, err := documents.NewQuoteDocument(q, ac.company).Markdown()
	if err != nil {
		log.Errorf("[AdminIntakes] quote document %s: %v", q.Reference, err)
		return response.Internal(c)
	}
	return ac.sendMarkdown(c, "quotes", q.Reference+".md", body)
}

func (ac *AdminController) sendMarkdown(c *fiber.Ctx, kind, name, body string) error {
	key, err := documents.Archive(c.UserContext(), ac.archive, kind, name, body)
	if err != nil {
		log.Warnf("[AdminIntakes] archiving %s failed: %v", name, err)
	}
	if key != "" {
		c.Set("X-Archive-Key", key)
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+name+`"`)
	return c.SendString(body)
}

// HandleJobStats reports the redis queue lengths and lifetime counters.
func (ac *AdminController) HandleJobStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sizes, err := ac.repos.Queue.Sizes(ctx, jobqueue.PendingKey, jobqueue.ActiveKey, jobqueue.DelayedKey)
	if err != nil {
		log.Warnf("[AdminJobs] queue lengths: %v", err)
		return response.Error(c, fiber.StatusServiceUnavailable, msgQueueDown)
	}
	counters, err := ac.repos.Queue.Counters(ctx, jobqueue.StatsKey)
	if err != nil {
		log.Warnf("[AdminJobs] queue counters: %v", err)
		return response.Error(c, fiber.StatusServiceUnavailable, msgQueueDown)
	}
	return response.OK(c, fiber.Map{
		"queued":     sizes[jobqueue.PendingKey],
		"processing": sizes[jobqueue.ActiveKey],
		"retrying":   sizes[jobqueue.DelayedKey],
		"counters":   counters,
	})
}

// HandleJobPurge drops permanently failed job records that nothing references anymore.
func (ac *AdminController) HandleJobPurge(c *fiber.Ctx) error {
	n, err := ac.repos.Queue.PurgeOrphans(c.UserContext(), jobqueue.RecordPrefix,
		jobqueue.PendingKey, jobqueue.ActiveKey, jobqueue.DelayedKey)
	if err != nil {
		log.Warnf("[AdminJobs] purge: %v", err)
		return response.Error(c, fiber.StatusServiceUnavailable, msgQueueDown)
	}
	writeAudit(c, ac.repos.Audit, "jobs.purge", "job_queue", 0, nil, fiber.Map{"deleted": n})
	return response.OK(c, fiber.Map{"deleted": n})
}
