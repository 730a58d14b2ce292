package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/middleware"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/permissions"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/ratelimit"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
)

// ApiRouter serves the JSON API under /api.
type ApiRouter struct {
	h    *handlers
	deps Dependencies
}

func NewApiRouter(h *handlers, deps Dependencies) *ApiRouter {
	return &ApiRouter{h: h, deps: deps}
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	h := r.h
	store := r.deps.LimiterStorage
	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins:     r.deps.Config.App.SiteURL,
		AllowHeaders:     "Origin, Content-Type, Accept, X-CSRF-Token",
		AllowCredentials: true,
	}))

	api.Get("/catalog", h.page.HandleCatalog)

	// Public intake
	api.Post("/contact", ratelimit.New(ratelimit.Contact, store), h.intake.HandleContact)
	api.Post("/offerte", ratelimit.New(ratelimit.Offerte, store), h.intake.HandleOfferte)
	api.Post("/automation/intake", ratelimit.New(ratelimit.Automation, store), h.intake.HandleAutomationIntake)
	api.Post("/maintenance/checkout", middleware.RequirePermission(permissions.PortalView), h.intake.HandleMaintenanceCheckout)

	// Provider and scheduler callbacks
	api.Post("/payments/webhook", h.webhook.HandleStripeWebhook)
	api.Post("/cron/reconcile", middleware.RequireCronSecret(r.deps.Config.App.CronSecret), h.webhook.HandleCronReconcile)

	r.registerPortal(api)
	r.registerAdmin(api)
}

func (r ApiRouter) registerPortal(api fiber.Router) {
	h := r.h
	portal := api.Group("/portal", middleware.RequirePermission(permissions.PortalView))
	portal.Get("/tickets", h.portal.HandleListTickets)
	portal.Post("/tickets", middleware.RequirePermission(permissions.TicketsOwn), h.portal.HandleCreateTicket)
	portal.Post("/tickets/:ref/messages", middleware.RequirePermission(permissions.TicketsOwn), h.portal.HandleTicketMessage)
	portal.Get("/invoices", h.portal.HandleListInvoices)
	portal.Get("/products", h.portal.HandleListProducts)
	portal.Patch("/profile", h.portal.HandleUpdateProfile)

	stripePortal := api.Group("/stripe", middleware.RequirePermission(permissions.PortalView))
	stripePortal.Get("/portal", h.portal.HandleStripePortal)
	stripePortal.Post("/portal", h.portal.HandleStripePortal)
}

func (r ApiRouter) registerAdmin(api fiber.Router) {
	h := r.h
	require := middleware.RequirePermission

	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Get("/dashboard", h.admin.HandleDashboard)
	admin.Get("/jobs", h.admin.HandleJobStats)
	admin.Delete("/jobs", require(permissions.AdminsManage), h.admin.HandleJobPurge)

	admin.Get("/users", require(permissions.UsersView), h.users.HandleList)
	admin.Post("/users", require(permissions.UsersManage), h.users.HandleCreate)
	admin.Get("/users/:id", require(permissions.UsersView), h.users.HandleGet)
	admin.Patch("/users/:id", require(permissions.UsersManage), h.users.HandleUpdate)
	admin.Delete("/users/:id", require(permissions.UsersManage), h.users.HandleDelete)

	admin.Get("/subscriptions", require(permissions.SubscriptionsView), h.subscriptions.HandleList)
	admin.Get("/subscriptions/:id", require(permissions.SubscriptionsView), h.subscriptions.HandleGet)
	admin.Patch("/subscriptions/:id", require(permissions.SubscriptionsManage), h.subscriptions.HandlePatch(subscriptions.KindMaintenance))
	admin.Delete("/subscriptions/:id", require(permissions.SubscriptionsManage), h.subscriptions.HandleDelete(subscriptions.KindMaintenance))
	admin.Get("/automation-subscriptions", require(permissions.SubscriptionsView), h.subscriptions.HandleListAutomation)
	admin.Get("/automation-subscriptions/:id", require(permissions.SubscriptionsView), h.subscriptions.HandleGetAutomation)
	admin.Patch("/automation-subscriptions/:id", require(permissions.SubscriptionsManage), h.subscriptions.HandlePatch(subscriptions.KindAutomation))
	admin.Delete("/automation-subscriptions/:id", require(permissions.SubscriptionsManage), h.subscriptions.HandleDelete(subscriptions.KindAutomation))

	admin.Get("/tickets", require(permissions.TicketsManage), h.tickets.HandleList)
	admin.Get("/tickets/:id", require(permissions.TicketsManage), h.tickets.HandleGet)
	admin.Patch("/tickets/:id", require(permissions.TicketsManage), h.tickets.HandleUpdate)
	admin.Post("/tickets/:id/messages", require(permissions.TicketsManage), h.tickets.HandleReply)

	admin.Get("/audit-log", require(permissions.AuditView), h.admin.HandleAuditLog)
	admin.Get("/invoices", require(permissions.InvoicesManage), h.admin.HandleInvoices)
	admin.Post("/invoices/:id/void", require(permissions.InvoicesManage), h.admin.HandleVoidInvoice)

	admin.Get("/intakes", require(permissions.IntakesView), h.admin.HandleIntakes)
	admin.Get("/intakes/:id/prompt", require(permissions.IntakesView), h.admin.HandleIntakePrompt)
	admin.Get("/quotes/:id/document", require(permissions.IntakesView), h.admin.HandleQuoteDocument)

	agents := api.Group("/ai-agents", middleware.RequireAdmin, require(permissions.LeadsManage))
	agents.Get("/", h.agents.HandleOverview)
	agents.Get("/leads", h.agents.HandleListLeads)
	agents.Post("/leads", h.agents.HandleCreateLead)
	agents.Get("/leads/:id", h.agents.HandleGetLead)
	agents.Post("/leads/:id/activities", h.agents.HandleAddActivity)
}
