package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/middleware"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/permissions"
)

func (r HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/", r.h.page.HandleHome)
	app.Get("/contact", r.h.page.HandleContactPage)
	app.Get("/offerte", r.h.page.HandleOffertePage)
	app.Get("/offerte/:ref", r.h.page.HandleQuotePage)
	app.Get("/automatisering", r.h.page.HandleAutomationPage)

	// Auth
	app.Get("/login", r.h.auth.HandleLoginPage)
	app.Post("/login", r.h.auth.HandleLogin)
	app.Get("/register", r.h.auth.HandleRegisterPage)
	app.Post("/register", r.h.auth.HandleRegister)
	app.Post("/logout", middleware.RequireAuth, r.h.auth.HandleLogout)
}

func (r HttpRouter) registerPortalRoutes(app *fiber.App) {
	portal := app.Group("/portal", middleware.RequirePermission(permissions.PortalView))
	portal.Get("/", r.h.portal.HandleDashboard)
	portal.Get("/tickets", r.h.portal.HandleTicketsPage)
	portal.Get("/tickets/:ref", r.h.portal.HandleTicketPage)
	portal.Get("/invoices", r.h.portal.HandleInvoicesPage)
	portal.Get("/products", r.h.portal.HandleProductsPage)
}
