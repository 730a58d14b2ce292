package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/middleware"
)

func (r HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", r.h.admin.HandleDashboardPage)
}
