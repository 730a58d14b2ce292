package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
)

// Agent is a dashboard card. The agents themselves are not running
// processes; their numbers come from the lead table.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Handles     string `json:"handles"`
}

var agents = []Agent{
	{ID: "intake", Name: "Intake agent", Description: "Zet formulierinzendingen om in leads", Status: "active", Handles: models.LeadStatusNew},
	{ID: "qualifier", Name: "Kwalificatie agent", Description: "Beoordeelt en scoort nieuwe leads", Status: "active", Handles: models.LeadStatusContacted},
	{ID: "closer", Name: "Follow-up agent", Description: "Plant opvolging van gekwalificeerde leads", Status: "paused", Handles: models.LeadStatusQualified},
}

type AIAgentsController struct {
	leads repository.LeadRepository
}

func NewAIAgentsController(leads repository.LeadRepository) *AIAgentsController {
	return &AIAgentsController{leads: leads}
}

type leadRequest struct {
	Name    string `json:"name" form:"name" validate:"required,min=2,max=150"`
	Email   string `json:"email" form:"email" validate:"required,email,max=200"`
	Company string `json:"company" form:"company" validate:"max=200"`
	Score   int    `json:"score" form:"score" validate:"min=0,max=100"`
	Notes   string `json:"notes" form:"notes" validate:"max=5000"`
}

func (r *leadRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Company = strings.TrimSpace(r.Company)
	r.Notes = strings.TrimSpace(r.Notes)
}

type activityRequest struct {
	Type        string `json:"type" form:"type" validate:"required,max=50"`
	Description string `json:"description" form:"description" validate:"required,max=5000"`
	Agent       string `json:"agent" form:"agent" validate:"max=50"`
	Status      string `json:"status" form:"status" validate:"omitempty,oneof=new contacted qualified converted lost"`
}

func (ac *AIAgentsController) HandleOverview(c *fiber.Ctx) error {
	counts, err := ac.leads.CountByStatus()
	if err != nil {
		return lookupError(c, "count leads", err)
	}
	return response.OK(c, fiber.Map{"agents": agents, "leads": counts})
}

func (ac *AIAgentsController) HandleListLeads(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !models.IsValidLeadStatus(status) {
		return response.BadRequest(c, "Ongeldige status")
	}
	offset, limit := pagination(c)
	leads, err := ac.leads.List(offset, limit, status)
	if err != nil {
		return lookupError(c, "list leads", err)
	}
	return response.OK(c, fiber.Map{"items": leads})
}

func (ac *AIAgentsController) HandleCreateLead(c *fiber.Ctx) error {
	var req leadRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	lead := &models.AILead{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Source:  models.LeadSourceManual,
		Score:   req.Score,
		Status:  models.LeadStatusNew,
		Notes:   req.Notes,
	}
	if err := ac.leads.Create(lead); err != nil {
		log.Errorf("[AIAgents] create lead %s failed: %v", lead.Email, err)
		return response.Internal(c)
	}
	return response.Created(c, lead)
}

func (ac *AIAgentsController) HandleGetLead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	lead, err := ac.leads.GetByID(id)
	if err != nil {
		return lookupError(c, "load lead", err)
	}
	return response.OK(c, lead)
}

// HandleAddActivity logs an activity and optionally moves the lead along.
func (ac *AIAgentsController) HandleAddActivity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	var req activityRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	lead, err := ac.leads.GetByID(id)
	if err != nil {
		return lookupError(c, "load lead", err)
	}

	activity := &models.LeadActivity{
		LeadID:      lead.ID,
		Type:        strings.TrimSpace(req.Type),
		Description: strings.TrimSpace(req.Description),
		Agent:       strings.TrimSpace(req.Agent),
	}
	if err := ac.leads.AddActivity(activity); err != nil {
		log.Errorf("[AIAgents] activity on lead %d failed: %v", lead.ID, err)
		return response.Internal(c)
	}
	if req.Status != "" && req.Status != lead.Status {
		lead.Status = req.Status
		lead.Activities = nil
		if err := ac.leads.Update(lead); err != nil {
			log.Errorf("[AIAgents] status update on lead %d failed: %v", lead.ID, err)
			return response.Internal(c)
		}
	}
	return response.Created(c, activity)
}
