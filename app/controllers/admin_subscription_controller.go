package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
)

// SubscriptionCommands applies admin actions. *subscriptions.Service implements it.
type SubscriptionCommands interface {
	Execute(ctx context.Context, actor subscriptions.Actor, kind subscriptions.Kind, id uint, cmd subscriptions.Command) (*subscriptions.Result, error)
}

// AdminSubscriptionController serves maintenance and automation subscriptions.
// Reads go through the repository, every mutation through the command service.
type AdminSubscriptionController struct {
	subs     repository.SubscriptionRepository
	commands SubscriptionCommands
}

func NewAdminSubscriptionController(subs repository.SubscriptionRepository, commands SubscriptionCommands) *AdminSubscriptionController {
	return &AdminSubscriptionController{subs: subs, commands: commands}
}

func (sc *AdminSubscriptionController) HandleList(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	status := c.Query("status")
	items, err := sc.subs.List(offset, limit, status)
	if err != nil {
		return lookupError(c, "list subscriptions", err)
	}
	total, err := sc.subs.Count(status)
	if err != nil {
		return lookupError(c, "count subscriptions", err)
	}
	return response.OK(c, fiber.Map{"items": items, "total": total})
}

func (sc *AdminSubscriptionController) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	sub, err := sc.subs.GetByID(id)
	if err != nil {
		return lookupError(c, "load subscription", err)
	}
	usage, err := sc.subs.ListUsage(id)
	if err != nil {
		return lookupError(c, "load usage", err)
	}
	return response.OK(c, fiber.Map{
		"subscription":   sub,
		"usage":          usage,
		"hoursRemaining": sub.HoursRemaining(),
		"pendingAction":  subscriptions.PendingAction(sub.Lifecycle()),
	})
}

func (sc *AdminSubscriptionController) HandleListAutomation(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	items, err := sc.subs.ListAutomation(offset, limit, c.Query("status"))
	if err != nil {
		return lookupError(c, "list automation subscriptions", err)
	}
	return response.OK(c, fiber.Map{"items": items})
}

func (sc *AdminSubscriptionController) HandleGetAutomation(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	sub, err := sc.subs.GetAutomationByID(id)
	if err != nil {
		return lookupError(c, "load automation subscription", err)
	}
	return response.OK(c, fiber.Map{
		"subscription":  sub,
		"pendingAction": subscriptions.PendingAction(sub.Lifecycle()),
	})
}

// HandlePatch returns the PATCH handler for kind. The body is a tagged
// command: {"action": "pause"}, {"action": "add_usage", "description": ..., "hours": 1.5}, ...
func (sc *AdminSubscriptionController) HandlePatch(kind subscriptions.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return response.BadRequest(c, msgInvalidID)
		}
		cmd, err := subscriptions.ParseCommand(c.Body())
		if err != nil {
			return response.BadRequest(c, commandMessage(err))
		}
		return sc.execute(c, kind, id, cmd)
	}
}

// HandleDelete cancels immediately.
func (sc *AdminSubscriptionController) HandleDelete(kind subscriptions.Kind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return response.BadRequest(c, msgInvalidID)
		}
		return sc.execute(c, kind, id, subscriptions.CancelImmediately{})
	}
}

func (sc *AdminSubscriptionController) execute(c *fiber.Ctx, kind subscriptions.Kind, id uint, cmd subscriptions.Command) error {
	result, err := sc.commands.Execute(c.UserContext(), actorFrom(c), kind, id, cmd)
	switch {
	case errors.Is(err, subscriptions.ErrNotFound):
		return response.NotFound(c, "Abonnement niet gevonden")
	case errors.Is(err, subscriptions.ErrInvalidCommand), errors.Is(err, subscriptions.ErrUnsupported):
		return response.BadRequest(c, commandMessage(err))
	case errors.Is(err, subscriptions.ErrInvalidTransition):
		return response.Error(c, fiber.StatusConflict, "Abonnement is al opgezegd")
	case err != nil:
		log.Errorf("[AdminSubscriptions] %s on %s %d failed: %v", cmd.Action(), kind, id, err)
		return response.Internal(c)
	}
	return response.OK(c, result)
}

func commandMessage(err error) string {
	switch {
	case errors.Is(err, subscriptions.ErrUnsupported):
		return "Deze actie is niet mogelijk voor dit abonnement"
	case errors.Is(err, subscriptions.ErrInvalidCommand):
		return "Ongeldige actie: " + err.Error()
	}
	return msgInvalidBody
}
