package router

import (
	"github.com/gofiber/fiber/v2"
)

// HttpRouter serves the server-rendered pages.
type HttpRouter struct {
	h *handlers
}

func (r HttpRouter) InstallRouter(app *fiber.App) {
	r.registerPublicRoutes(app)
	r.registerPortalRoutes(app)
	r.registerAdminRoutes(app)
}

func NewHttpRouter(h *handlers) *HttpRouter {
	return &HttpRouter{h: h}
}
