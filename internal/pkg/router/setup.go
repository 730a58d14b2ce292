package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AgencyDesk/app/controllers"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/documents"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the services the route tables hand to the controllers.
type Dependencies struct {
	Config         *config.Config
	Repos          *repository.Repositories
	Checkout       controllers.Checkout
	Webhooks       controllers.StripeWebhooks
	Reconciler     controllers.ReconcileRunner
	Commands       controllers.SubscriptionCommands
	Billing        controllers.BillingPortal
	Mailer         mail.Dispatcher
	Mails          mail.Builder
	Captcha        *hcaptcha.Verifier
	Archive        documents.ArchiveQueue
	LimiterStorage fiber.Storage
}

type handlers struct {
	page          *controllers.PageController
	auth          *controllers.AuthController
	intake        *controllers.IntakeController
	webhook       *controllers.WebhookController
	portal        *controllers.PortalController
	admin         *controllers.AdminController
	users         *controllers.AdminUserController
	subscriptions *controllers.AdminSubscriptionController
	tickets       *controllers.AdminTicketController
	agents        *controllers.AIAgentsController
}

func newHandlers(d Dependencies) *handlers {
	cfg := d.Config
	return &handlers{
		page:          controllers.NewPageController(d.Repos.Intake, cfg.App.CompanyName, cfg.HCaptcha.SiteKey),
		auth:          controllers.NewAuthController(d.Repos.User, d.Captcha, cfg.HCaptcha.SiteKey),
		intake:        controllers.NewIntakeController(d.Repos, d.Checkout, d.Mailer, d.Mails, d.Captcha),
		webhook:       controllers.NewWebhookController(d.Webhooks, d.Reconciler),
		portal:        controllers.NewPortalController(d.Repos, d.Billing, cfg.App.SiteURL),
		admin:         controllers.NewAdminController(d.Repos, d.Archive, cfg.App.CompanyName),
		users:         controllers.NewAdminUserController(d.Repos.User, d.Repos.Audit),
		subscriptions: controllers.NewAdminSubscriptionController(d.Repos.Subscription, d.Commands),
		tickets:       controllers.NewAdminTicketController(d.Repos.Ticket, d.Repos.Audit, d.Mailer, d.Mails),
		agents:        controllers.NewAIAgentsController(d.Repos.Lead),
	}
}

// InstallRouter registers the user context and CSRF middlewares, then the
// page and API route tables.
func InstallRouter(app *fiber.App, deps Dependencies) {
	app.Use(middleware.UserContextMiddleware(deps.Repos.User))
	app.Use(middleware.CSRF(!deps.Config.IsDev()))

	h := newHandlers(deps)
	setup(app, NewHttpRouter(h), NewApiRouter(h, deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
