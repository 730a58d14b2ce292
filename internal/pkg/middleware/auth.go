package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/permissions"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

// RequireAuth ensures a logged-in session. API routes get JSON 401, pages a
// redirect to /login.
func RequireAuth(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Next()
	}
	if isAPI(c) {
		return response.Unauthorized(c)
	}
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// RequirePermission gates a route on a single capability.
func RequirePermission(p permissions.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			if isAPI(c) {
				return response.Unauthorized(c)
			}
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		if !uc.Can(p) {
			if isAPI(c) {
				return response.Forbidden(c, "")
			}
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// RequireAdmin lets through any role carrying admin access.
func RequireAdmin(c *fiber.Ctx) error {
	return RequirePermission(permissions.AdminAccess)(c)
}
