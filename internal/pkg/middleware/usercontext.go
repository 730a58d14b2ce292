package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/permissions"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/session"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

// UserLoader resolves the session user. repository.UserRepository satisfies it.
type UserLoader interface {
	GetByID(id uint) (*models.User, error)
}

// UserContextMiddleware sets up the user context for every request. The user
// row is reloaded so role changes and disabled accounts apply immediately.
func UserContextMiddleware(users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.Set(c, usercontext.UserContext{})

		store := session.GetSessionStore()
		if store == nil {
			return c.Next()
		}
		sess, err := store.Get(c)
		if err != nil {
			log.Warnf("[UserContext] session lookup failed: %v", err)
			return c.Next()
		}

		userID, ok := sess.Get(session.KeyUserID).(uint)
		if !ok || userID == 0 {
			return c.Next()
		}

		user, err := users.GetByID(userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			// keep the session; the next request retries the lookup
			log.Errorf("[UserContext] loading user %d failed: %v", userID, err)
			return c.Next()
		}
		if err != nil || !user.IsActive() {
			// deleted or disabled: drop the session, continue anonymous
			if destroyErr := sess.Destroy(); destroyErr != nil {
				log.Warnf("[UserContext] failed to destroy session of user %d: %v", userID, destroyErr)
			}
			return c.Next()
		}

		usercontext.Set(c, FromUser(user))
		return c.Next()
	}
}

// FromUser builds the request context of an authenticated user.
func FromUser(user *models.User) usercontext.UserContext {
	return usercontext.UserContext{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		IsLoggedIn:  true,
		Permissions: permissions.ForRole(user.Role),
	}
}
