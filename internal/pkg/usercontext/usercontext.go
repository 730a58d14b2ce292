package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/permissions"
)

// UserContext represents the authenticated user of a request
type UserContext struct {
	UserID      uint            `json:"user_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	IsLoggedIn  bool            `json:"is_logged_in"`
	Permissions permissions.Set `json:"-"`
}

// GetUserContext returns the context set by the middleware or an anonymous one.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
}

func (u UserContext) Can(p permissions.Permission) bool {
	return u.IsLoggedIn && permissions.HasPermission(u.Permissions, p)
}

func (u UserContext) IsAdmin() bool {
	return u.Can(permissions.AdminAccess)
}

func (u UserContext) IsSuperAdmin() bool {
	return u.IsLoggedIn && u.Role == permissions.RoleSuperAdmin
}

func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
