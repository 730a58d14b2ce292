package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/flash"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/intake"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/ratelimit"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

const (
	msgInvalidBody = "Ongeldige invoer"
	msgInvalidID   = "Ongeldig id"
)

var errInvalidID = errors.New("invalid id")

// normalizer is implemented by the intake payloads.
type normalizer interface {
	Normalize()
}

// bindAndValidate parses a JSON or form body into v and runs the validation
// rules. The returned message is safe to show to the visitor.
func bindAndValidate(c *fiber.Ctx, v interface{}) (string, bool) {
	if err := c.BodyParser(v); err != nil {
		return msgInvalidBody, false
	}
	if n, ok := v.(normalizer); ok {
		n.Normalize()
	}
	if err := intake.Validate(v); err != nil {
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			return verr.Message, false
		}
		return msgInvalidBody, false
	}
	return "", true
}

func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// pagination reads ?page and ?per_page (max 100).
func pagination(c *fiber.Ctx) (offset, limit int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("per_page", 25)
	if limit < 1 || limit > 100 {
		limit = 25
	}
	return (page - 1) * limit, limit
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, subscriptions.ErrNotFound)
}

// lookupError answers 404 for missing rows and 500 for everything else.
func lookupError(c *fiber.Ctx, what string, err error) error {
	if isNotFound(err) {
		return response.NotFound(c, "")
	}
	log.Errorf("[Controller] %s: %v", what, err)
	return response.Internal(c)
}

func actorFrom(c *fiber.Ctx) subscriptions.Actor {
	uc := usercontext.GetUserContext(c)
	return subscriptions.Actor{ID: uc.UserID, Email: uc.Email, IP: ratelimit.ClientIP(c)}
}

// writeAudit appends an audit row. Failures are logged; the mutation already happened.
func writeAudit(c *fiber.Ctx, repo repository.AuditRepository, action, targetType string, targetID uint, before, after interface{}) {
	actor := actorFrom(c)
	entry := &models.AdminAuditLog{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Before:     models.Snapshot(before),
		After:      models.Snapshot(after),
		IPAddress:  actor.IP,
	}
	if err := repo.Create(entry); err != nil {
		log.Errorf("[Audit] failed to write %s for %s %d: %v", action, targetType, targetID, err)
	}
}

// renderPage renders a view inside the main layout with the values every page needs.
func renderPage(c *fiber.Ctx, name, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	uc := usercontext.GetUserContext(c)
	data["Title"] = title
	data["User"] = uc
	data["LoggedIn"] = uc.IsLoggedIn
	data["IsAdmin"] = uc.IsAdmin()
	data["CSRF"] = c.Locals(usercontext.KeyCSRFToken)
	data["Flash"] = flash.Get(c)
	return c.Render(name, data, "layouts/main")
}
