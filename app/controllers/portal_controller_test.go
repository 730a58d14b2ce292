package controllers

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
)

type portalFixture struct {
	app     *fiber.App
	tickets *fakeTickets
	billing *stubBillingPortal
}

func newPortalFixture(userID uint) *portalFixture {
	f := &portalFixture{
		tickets: newFakeTickets(
			models.SupportTicket{ID: 1, Reference: "T-OWN", UserID: 10, Subject: "Contactformulier stuk", Status: models.TicketStatusWaitingCustomer, Priority: models.TicketPriorityMedium},
			models.SupportTicket{ID: 2, Reference: "T-OTHER", UserID: 11, Subject: "Andere klant", Status: models.TicketStatusOpen, Priority: models.TicketPriorityLow},
			models.SupportTicket{ID: 3, Reference: "T-CLOSED", UserID: 10, Subject: "Oud ticket", Status: models.TicketStatusClosed, Priority: models.TicketPriorityLow},
		),
		billing: &stubBillingPortal{url: "https://billing.stripe.test/session"},
	}
	repos := &repository.Repositories{
		User: newFakeUsers(
			models.User{ID: 10, Name: "Klaas Klant", Email: "klaas@klant.nl", Role: models.ROLE_CUSTOMER, Status: models.STATUS_ACTIVE, Country: "NL", Password: hashedPassword, StripeCustomerID: "cus_10"},
			models.User{ID: 11, Name: "Nina Nieuw", Email: "nina@klant.nl", Role: models.ROLE_CUSTOMER, Status: models.STATUS_ACTIVE, Country: "NL", Password: hashedPassword},
		),
		Ticket:  f.tickets,
		Product: &fakeProducts{products: []models.Product{{ID: 5, UserID: 11, Name: "Webshop Nina"}}},
	}
	pc := NewPortalController(repos, f.billing, "http://localhost:8080")
	f.app = fiber.New()
	asUser(f.app, userID, models.ROLE_CUSTOMER)
	f.app.Post("/api/portal/tickets", pc.HandleCreateTicket)
	f.app.Post("/api/portal/tickets/:ref/messages", pc.HandleTicketMessage)
	f.app.Patch("/api/portal/profile", pc.HandleUpdateProfile)
	f.app.Post("/api/stripe/portal", pc.HandleStripePortal)
	return f
}

func TestPortalCreateTicket(t *testing.T) {
	f := newPortalFixture(10)

	resp, env := doJSON(t, f.app, http.MethodPost, "/api/portal/tickets", `{"subject":"Nieuwe pagina","body":"Kunnen jullie een vacaturepagina toevoegen?"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Error)
	assert.Len(t, f.tickets.messages, 1)
	assert.Equal(t, models.SenderCustomer, f.tickets.messages[0].SenderType)

	resp, _ = doJSON(t, f.app, http.MethodPost, "/api/portal/tickets", `{"subject":"Hallo","body":"Dit gaat over andermans webshop.","product_id":5}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPortalMessageReopensWaitingTicket(t *testing.T) {
	f := newPortalFixture(10)

	resp, env := doJSON(t, f.app, http.MethodPost, "/api/portal/tickets/t-own/messages", `{"body":"Hier is de gevraagde info."}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Error)
	assert.Equal(t, models.TicketStatusOpen, f.tickets.get(1).Status)
}

func TestPortalHidesOtherCustomersTickets(t *testing.T) {
	f := newPortalFixture(10)

	resp, _ := doJSON(t, f.app, http.MethodPost, "/api/portal/tickets/T-OTHER/messages", `{"body":"Mag ik meelezen?"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Empty(t, f.tickets.messages)

	resp, _ = doJSON(t, f.app, http.MethodPost, "/api/portal/tickets/T-CLOSED/messages", `{"body":"Nog een vraag"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestPortalProfileKeepsRole(t *testing.T) {
	f := newPortalFixture(10)

	resp, env := doJSON(t, f.app, http.MethodPatch, "/api/portal/profile", `{"company":"Klant BV","role":"super_admin"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)
	assert.Contains(t, string(env.Data), `"company":"Klant BV"`)
	assert.Contains(t, string(env.Data), `"role":"customer"`)
}

func TestStripePortal(t *testing.T) {
	f := newPortalFixture(10)
	resp, env := doJSON(t, f.app, http.MethodPost, "/api/stripe/portal", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "billing.stripe.test")
	assert.Equal(t, "cus_10", f.billing.customerID)

	f = newPortalFixture(11)
	resp, _ = doJSON(t, f.app, http.MethodPost, "/api/stripe/portal", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	f = newPortalFixture(10)
	f.billing.err = payments.ErrNotConfigured
	resp, _ = doJSON(t, f.app, http.MethodPost, "/api/stripe/portal", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
