package controllers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AgencyDesk/app/models"
)

// Stored hashes only need to satisfy the model's length rule here.
const hashedPassword = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZrPzW3A4uJ6Nq/8SZpD1W."

type userFixture struct {
	app   *fiber.App
	users *fakeUsers
	audit *fakeAudit
}

// Accounts: 1 super admin, 2 admin, 3 customer, 4 second super admin.
func newUserFixture(actorID uint, actorRole string) *userFixture {
	f := &userFixture{
		users: newFakeUsers(
			models.User{ID: 1, Name: "Sara Super", Email: "sara@agency.nl", Role: models.ROLE_SUPER_ADMIN, Status: models.STATUS_ACTIVE, Country: "NL", Password: hashedPassword},
			models.User{ID: 2, Name: "Adam Admin", Email: "adam@agency.nl", Role: models.ROLE_ADMIN, Status: models.STATUS_ACTIVE, Country: "NL", Password: hashedPassword},
			models.User{ID: 3, Name: "Klaas Klant", Email: "klaas@klant.nl", Role: models.ROLE_CUSTOMER, Status: models.STATUS_ACTIVE, Country: "NL", Password: hashedPassword},
			models.User{ID: 4, Name: "Sem Super", Email: "sem@agency.nl", Role: models.ROLE_SUPER_ADMIN, Status: models.STATUS_ACTIVE, Country: "NL", Password: hashedPassword},
		),
		audit: &fakeAudit{},
	}
	uc := NewAdminUserController(f.users, f.audit)
	f.app = fiber.New()
	asUser(f.app, actorID, actorRole)
	f.app.Post("/api/admin/users", uc.HandleCreate)
	f.app.Patch("/api/admin/users/:id", uc.HandleUpdate)
	f.app.Delete("/api/admin/users/:id", uc.HandleDelete)
	return f
}

func TestAdminCannotGrantAdminRole(t *testing.T) {
	f := newUserFixture(2, models.ROLE_ADMIN)

	resp, env := doJSON(t, f.app, http.MethodPatch, "/api/admin/users/3", `{"action":"make_admin"}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, msgSuperAdminOnly, env.Error)

	u, _ := f.users.get(3)
	assert.Equal(t, models.ROLE_CUSTOMER, u.Role)
	assert.Empty(t, f.audit.actions())
}

func TestAdminCannotTouchSuperAdmin(t *testing.T) {
	f := newUserFixture(2, models.ROLE_ADMIN)

	resp, _ := doJSON(t, f.app, http.MethodDelete, "/api/admin/users/1", "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	_, exists := f.users.get(1)
	assert.True(t, exists)

	resp, _ = doJSON(t, f.app, http.MethodPatch, "/api/admin/users/1", `{"name":"Overgenomen"}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	u, _ := f.users.get(1)
	assert.Equal(t, "Sara Super", u.Name)

	resp, _ = doJSON(t, f.app, http.MethodPost, "/api/admin/users", `{"name":"Nieuw","email":"nieuw@agency.nl","password":"geheim123","role":"super_admin"}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Empty(t, f.audit.actions())
}

func TestAdminCanEditCustomer(t *testing.T) {
	f := newUserFixture(2, models.ROLE_ADMIN)

	resp, env := doJSON(t, f.app, http.MethodPatch, "/api/admin/users/3", `{"company":"Klant BV","action":"disable"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)

	u, _ := f.users.get(3)
	assert.Equal(t, "Klant BV", u.Company)
	assert.Equal(t, models.STATUS_DISABLED, u.Status)
	assert.Equal(t, []string{"user.disable"}, f.audit.actions())
}

func TestSuperAdminGrantsAndRevokes(t *testing.T) {
	f := newUserFixture(1, models.ROLE_SUPER_ADMIN)

	resp, _ := doJSON(t, f.app, http.MethodPatch, "/api/admin/users/3", `{"action":"make_admin"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	u, _ := f.users.get(3)
	assert.Equal(t, models.ROLE_ADMIN, u.Role)

	resp, _ = doJSON(t, f.app, http.MethodPatch, "/api/admin/users/4", `{"action":"revoke_admin"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	u, _ = f.users.get(4)
	assert.Equal(t, models.ROLE_CUSTOMER, u.Role)

	resp, _ = doJSON(t, f.app, http.MethodDelete, "/api/admin/users/2", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	_, exists := f.users.get(2)
	assert.False(t, exists)

	assert.Equal(t, []string{"user.make_admin", "user.revoke_admin", "user.delete"}, f.audit.actions())
}

func TestUsersCannotRemoveThemselves(t *testing.T) {
	f := newUserFixture(1, models.ROLE_SUPER_ADMIN)

	resp, _ := doJSON(t, f.app, http.MethodDelete, "/api/admin/users/1", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, f.app, http.MethodPatch, "/api/admin/users/1", `{"action":"revoke_admin"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, f.app, http.MethodPatch, "/api/admin/users/1", `{"action":"disable"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	for _, status := range []string{models.STATUS_DISABLED, models.STATUS_INACTIVE} {
		resp, env := doJSON(t, f.app, http.MethodPatch, "/api/admin/users/1", `{"status":"`+status+`"}`)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, status)
		assert.Equal(t, msgSelfDisable, env.Error)
	}

	resp, env := doJSON(t, f.app, http.MethodPatch, "/api/admin/users/1", `{"status":"active","company":"Agency"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)

	u, _ := f.users.get(1)
	assert.Equal(t, models.ROLE_SUPER_ADMIN, u.Role)
	assert.Equal(t, models.STATUS_ACTIVE, u.Status)
	assert.Equal(t, []string{"user.update"}, f.audit.actions())
}

func TestAdminDisablesOtherUserByStatus(t *testing.T) {
	f := newUserFixture(2, models.ROLE_ADMIN)

	resp, env := doJSON(t, f.app, http.MethodPatch, "/api/admin/users/3", `{"status":"disabled"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)
	u, _ := f.users.get(3)
	assert.Equal(t, models.STATUS_DISABLED, u.Status)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	f := newUserFixture(2, models.ROLE_ADMIN)

	resp, _ := doJSON(t, f.app, http.MethodPost, "/api/admin/users", `{"name":"Klaas","email":"klaas@klant.nl","password":"geheim123"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, env := doJSON(t, f.app, http.MethodPost, "/api/admin/users", `{"name":"Nina Nieuw","email":"nina@klant.nl","password":"geheim123"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Error)
	assert.Equal(t, []string{"user.create"}, f.audit.actions())
}
