package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/documents"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
)

// PageController serves the public marketing pages.
type PageController struct {
	intakes     repository.IntakeRepository
	company     string
	captchaSite string
}

func NewPageController(intakes repository.IntakeRepository, company, captchaSite string) *PageController {
	return &PageController{intakes: intakes, company: company, captchaSite: captchaSite}
}

type catalogPayload struct {
	Packages         []catalog.Package         `json:"packages"`
	MaintenancePlans []catalog.MaintenancePlan `json:"maintenancePlans"`
	AutomationPlans  []catalog.AutomationPlan  `json:"automationPlans"`
	Extras           []catalog.Extra           `json:"extras"`
	VATRate          int64                     `json:"vatRate"`
}

func currentCatalog() catalogPayload {
	return catalogPayload{
		Packages:         catalog.Packages(),
		MaintenancePlans: catalog.MaintenancePlans(),
		AutomationPlans:  catalog.AutomationPlans(),
		Extras:           catalog.Extras(),
		VATRate:          catalog.VATPercent,
	}
}

func (pc *PageController) HandleHome(c *fiber.Ctx) error {
	cat := currentCatalog()
	return renderPage(c, "index", pc.company, fiber.Map{
		"Catalog": cat,
	})
}

func (pc *PageController) HandleContactPage(c *fiber.Ctx) error {
	return renderPage(c, "contact", "Contact", fiber.Map{"CaptchaSiteKey": pc.captchaSite})
}

func (pc *PageController) HandleOffertePage(c *fiber.Ctx) error {
	return renderPage(c, "offerte", "Offerte aanvragen", fiber.Map{
		"Packages":       catalog.Packages(),
		"Extras":         catalog.Extras(),
		"CaptchaSiteKey": pc.captchaSite,
	})
}

func (pc *PageController) HandleAutomationPage(c *fiber.Ctx) error {
	return renderPage(c, "automation", "Automatisering", fiber.Map{
		"Plans":          catalog.AutomationPlans(),
		"CaptchaSiteKey": pc.captchaSite,
	})
}

// HandleQuotePage shows a quote by its reference. References are random
// enough to act as the access token for the page.
func (pc *PageController) HandleQuotePage(c *fiber.Ctx) error {
	quote, err := pc.intakes.GetQuoteByReference(strings.ToUpper(c.Params("ref")))
	if err != nil {
		if isNotFound(err) {
			return fiber.ErrNotFound
		}
		return err
	}
	doc := documents.NewQuoteDocument(quote, pc.company)
	return renderPage(c, "quote", "Offerte "+doc.Reference, fiber.Map{"Quote": doc})
}

// HandleCatalog returns the price lists as JSON.
func (pc *PageController) HandleCatalog(c *fiber.Ctx) error {
	return response.OK(c, currentCatalog())
}
