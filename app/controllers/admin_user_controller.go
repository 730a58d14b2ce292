package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/permissions"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

const (
	UserActionMakeAdmin      = "make_admin"
	UserActionMakeSuperAdmin = "make_super_admin"
	UserActionRevokeAdmin    = "revoke_admin"
	UserActionDisable        = "disable"
	UserActionEnable         = "enable"
)

const (
	msgSuperAdminOnly = "Alleen een super admin mag dit doen"
	msgSelfDisable    = "Je kunt je eigen account niet blokkeren"
)

// AdminUserController manages accounts. Super admin rows and role changes
// are reserved for super admins; every mutation is audited.
type AdminUserController struct {
	users repository.UserRepository
	audit repository.AuditRepository
}

func NewAdminUserController(users repository.UserRepository, audit repository.AuditRepository) *AdminUserController {
	return &AdminUserController{users: users, audit: audit}
}

type createUserRequest struct {
	Name     string `json:"name" form:"name" validate:"required,min=2,max=150"`
	Email    string `json:"email" form:"email" validate:"required,email,max=200"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" form:"role" validate:"omitempty,oneof=customer admin super_admin"`
	Company  string `json:"company" form:"company" validate:"max=200"`
	Phone    string `json:"phone" form:"phone" validate:"max=50"`
}

// updateUserRequest is a whitelist; absent fields stay untouched.
type updateUserRequest struct {
	Action      string  `json:"action"`
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Company     *string `json:"company"`
	Phone       *string `json:"phone"`
	VATNumber   *string `json:"vat_number"`
	AddressLine *string `json:"address_line"`
	PostalCode  *string `json:"postal_code"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
	Status      *string `json:"status"`
}

func (uc *AdminUserController) HandleList(c *fiber.Ctx) error {
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		users, err := uc.users.Search(q)
		if err != nil {
			return lookupError(c, "search users", err)
		}
		return response.OK(c, fiber.Map{"items": users, "total": len(users)})
	}
	offset, limit := pagination(c)
	users, err := uc.users.List(offset, limit)
	if err != nil {
		return lookupError(c, "list users", err)
	}
	total, err := uc.users.Count()
	if err != nil {
		return lookupError(c, "count users", err)
	}
	return response.OK(c, fiber.Map{"items": users, "total": total})
}

func (uc *AdminUserController) HandleGet(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	user, err := uc.users.GetByID(id)
	if err != nil {
		return lookupError(c, "load user", err)
	}
	return response.OK(c, user)
}

func (uc *AdminUserController) HandleCreate(c *fiber.Ctx) error {
	var req createUserRequest
	if msg, ok := bindAndValidate(c, &req); !ok {
		return response.BadRequest(c, msg)
	}
	if req.Role == "" {
		req.Role = models.ROLE_CUSTOMER
	}
	actor := usercontext.GetUserContext(c)
	if !permissions.CanAssignRole(actor.Permissions, models.ROLE_CUSTOMER, req.Role) {
		return response.Forbidden(c, msgSuperAdminOnly)
	}

	if _, err := uc.users.GetByEmail(req.Email); err == nil {
		return response.Error(c, fiber.StatusConflict, "Dit e-mailadres is al in gebruik")
	} else if !isNotFound(err) {
		return lookupError(c, "check email", err)
	}

	user, err := models.NewUser(req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return response.BadRequest(c, msgInvalidBody)
	}
	user.Company = strings.TrimSpace(req.Company)
	user.Phone = strings.TrimSpace(req.Phone)
	if err := uc.users.Create(user); err != nil {
		log.Errorf("[AdminUsers] create %s failed: %v", user.Email, err)
		return response.Internal(c)
	}
	writeAudit(c, uc.audit, "user.create", "user", user.ID, nil, user)
	return response.Created(c, user)
}

func (uc *AdminUserController) HandleUpdate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, msgInvalidBody)
	}

	target, err := uc.users.GetByID(id)
	if err != nil {
		return lookupError(c, "load user", err)
	}
	actor := usercontext.GetUserContext(c)
	if !permissions.CanManageUser(actor.Permissions, target.Role) {
		return response.Forbidden(c, msgSuperAdminOnly)
	}

	before := *target
	action := "user.update"
	if req.Action != "" {
		if msg, status := uc.applyAction(actor, target, req.Action); status != 0 {
			return response.Error(c, status, msg)
		}
		action = "user." + req.Action
	}
	if req.Status != nil && target.ID == actor.UserID && *req.Status != models.STATUS_ACTIVE {
		return response.BadRequest(c, msgSelfDisable)
	}
	if msg := applyUserFields(target, req); msg != "" {
		return response.BadRequest(c, msg)
	}
	if req.Email != nil && target.Email != before.Email {
		if other, err := uc.users.GetByEmail(target.Email); err == nil && other.ID != target.ID {
			return response.Error(c, fiber.StatusConflict, "Dit e-mailadres is al in gebruik")
		}
	}
	if err := target.Validate(); err != nil {
		return response.BadRequest(c, msgInvalidBody)
	}

	if err := uc.users.Update(target); err != nil {
		log.Errorf("[AdminUsers] update %d failed: %v", target.ID, err)
		return response.Internal(c)
	}
	writeAudit(c, uc.audit, action, "user", target.ID, before, target)
	return response.OK(c, target)
}

// applyAction returns a message and status when the action is refused.
func (uc *AdminUserController) applyAction(actor usercontext.UserContext, target *models.User, action string) (string, int) {
	switch action {
	case UserActionMakeAdmin, UserActionMakeSuperAdmin, UserActionRevokeAdmin:
		role := models.ROLE_ADMIN
		if action == UserActionMakeSuperAdmin {
			role = models.ROLE_SUPER_ADMIN
		} else if action == UserActionRevokeAdmin {
			role = models.ROLE_CUSTOMER
		}
		if !permissions.CanAssignRole(actor.Permissions, target.Role, role) {
			return msgSuperAdminOnly, fiber.StatusForbidden
		}
		if target.ID == actor.UserID && role != target.Role {
			return "Je kunt je eigen rol niet wijzigen", fiber.StatusBadRequest
		}
		target.Role = role
	case UserActionDisable:
		if target.ID == actor.UserID {
			return msgSelfDisable, fiber.StatusBadRequest
		}
		target.Status = models.STATUS_DISABLED
	case UserActionEnable:
		target.Status = models.STATUS_ACTIVE
	default:
		return "Onbekende actie", fiber.StatusBadRequest
	}
	return "", 0
}

func applyUserFields(u *models.User, req updateUserRequest) string {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&u.Name, req.Name)
	set(&u.Company, req.Company)
	set(&u.Phone, req.Phone)
	set(&u.VATNumber, req.VATNumber)
	set(&u.AddressLine, req.AddressLine)
	set(&u.PostalCode, req.PostalCode)
	set(&u.City, req.City)
	if req.Country != nil {
		u.Country = strings.ToUpper(strings.TrimSpace(*req.Country))
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Status != nil {
		switch *req.Status {
		case models.STATUS_ACTIVE, models.STATUS_INACTIVE, models.STATUS_DISABLED:
			u.Status = *req.Status
		default:
			return "Ongeldige status"
		}
	}
	return ""
}

func (uc *AdminUserController) HandleDelete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, msgInvalidID)
	}
	actor := usercontext.GetUserContext(c)
	if id == actor.UserID {
		return response.BadRequest(c, "Je kunt je eigen account niet verwijderen")
	}
	target, err := uc.users.GetByID(id)
	if err != nil {
		return lookupError(c, "load user", err)
	}
	if !permissions.CanManageUser(actor.Permissions, target.Role) {
		return response.Forbidden(c, msgSuperAdminOnly)
	}
	if err := uc.users.Delete(id); err != nil {
		log.Errorf("[AdminUsers] delete %d failed: %v", id, err)
		return response.Internal(c)
	}
	writeAudit(c, uc.audit, "user.delete", "user", id, target, nil)
	return response.OK(c, fiber.Map{"id": id})
}
