package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/ratelimit"
)

const validContactBody = `{"name":"Jan de Vries","email":"jan@example.nl","message":"Wij willen graag een nieuwe website laten maken."}`

type intakeFixture struct {
	app      *fiber.App
	intakes  *fakeIntakes
	leads    *fakeLeads
	mailer   *fakeMailer
	checkout *stubCheckout
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	f := &intakeFixture{
		intakes: &fakeIntakes{},
		leads:   &fakeLeads{},
		mailer:  &fakeMailer{},
	}
	f.checkout = &stubCheckout{intakes: f.intakes, url: "https://checkout.stripe.test/c/pay"}
	repos := &repository.Repositories{
		User:   newFakeUsers(),
		Intake: f.intakes,
		Lead:   f.leads,
	}
	mails := mail.Builder{Company: "Testbureau", OperatorEmail: "ops@example.nl", SiteURL: "http://localhost:8080"}
	ic := NewIntakeController(repos, f.checkout, f.mailer, mails, nil)

	f.app = fiber.New()
	f.app.Post("/api/contact", ratelimit.New(ratelimit.Contact, nil), ic.HandleContact)
	f.app.Post("/api/offerte", ratelimit.New(ratelimit.Offerte, nil), ic.HandleOfferte)
	f.app.Post("/api/automation/intake", ic.HandleAutomationIntake)
	return f
}

func TestContactValidRequest(t *testing.T) {
	f := newIntakeFixture(t)

	resp, env := doJSON(t, f.app, http.MethodPost, "/api/contact", validContactBody)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	require.Len(t, f.intakes.contacts, 1)
	assert.Equal(t, models.ContactStatusNew, f.intakes.contacts[0].Status)
	assert.Equal(t, 2, f.mailer.count(), "operator notification and acknowledgement")

	require.Len(t, f.leads.leads, 1)
	assert.Equal(t, models.LeadSourceContactForm, f.leads.leads[0].Source)
	require.Len(t, f.leads.activities, 1)
	assert.Equal(t, "form_submitted", f.leads.activities[0].Type)
}

func TestContactValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", `{"email":"jan@example.nl","message":"Wij willen graag een nieuwe website laten maken."}`, "Naam is verplicht"},
		{"short message", `{"name":"Jan","email":"jan@example.nl","message":"te kort"}`, "Bericht moet minimaal 20 tekens bevatten"},
		{"invalid email", `{"name":"Jan","email":"geen-email","message":"Wij willen graag een nieuwe website laten maken."}`, "Vul een geldig e-mailadres in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIntakeFixture(t)
			resp, env := doJSON(t, f.app, http.MethodPost, "/api/contact", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.False(t, env.Success)
			assert.Equal(t, tt.want, env.Error)
			assert.Empty(t, f.intakes.contacts)
			assert.Zero(t, f.mailer.count())
		})
	}
}

func TestContactRateLimit(t *testing.T) {
	f := newIntakeFixture(t)

	for i := 1; i <= 5; i++ {
		resp, _ := doJSON(t, f.app, http.MethodPost, "/api/contact", validContactBody)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}

	resp, env := doJSON(t, f.app, http.MethodPost, "/api/contact", validContactBody)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.False(t, env.Success)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, "5", resp.Header.Get(ratelimit.HeaderLimit))
	assert.Equal(t, "0", resp.Header.Get(ratelimit.HeaderRemaining))
	assert.Len(t, f.intakes.contacts, 5)
}

func TestOfferteValidRequest(t *testing.T) {
	f := newIntakeFixture(t)

	body := `{"name":"Piet Jansen","email":"piet@example.nl","package_id":"business","extras":["seo"]}`
	resp, env := doJSON(t, f.app, http.MethodPost, "/api/offerte", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	var result payments.CheckoutResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "Q-TEST", result.Reference)
	assert.Equal(t, f.checkout.url, result.CheckoutURL)

	want, err := catalog.BuildQuote("business", []string{"seo"})
	require.NoError(t, err)
	require.Len(t, f.intakes.quotes, 1)
	stored := f.intakes.quotes[0]
	assert.Equal(t, want.Subtotal, stored.Subtotal)
	assert.Equal(t, want.Total, stored.Total)
	assert.Equal(t, want.Deposit, stored.Deposit)
	require.Len(t, stored.Extras, 1)
	assert.Equal(t, "seo", stored.Extras[0].ID)
}

func TestOfferteRejectsUnknownPackage(t *testing.T) {
	f := newIntakeFixture(t)

	resp, env := doJSON(t, f.app, http.MethodPost, "/api/offerte", `{"name":"Piet","email":"piet@example.nl","package_id":"gold"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Pakket heeft een ongeldige waarde", env.Error)
	assert.Empty(t, f.intakes.quotes)
}

func TestOfferteRateLimit(t *testing.T) {
	f := newIntakeFixture(t)
	body := `{"name":"Piet Jansen","email":"piet@example.nl","package_id":"starter"}`

	for i := 1; i <= 3; i++ {
		resp, _ := doJSON(t, f.app, http.MethodPost, "/api/offerte", body)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, fmt.Sprintf("request %d", i))
	}
	resp, _ := doJSON(t, f.app, http.MethodPost, "/api/offerte", body)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestAutomationIntakeUnknownPlan(t *testing.T) {
	f := newIntakeFixture(t)
	f.checkout.err = fmt.Errorf("price lookup: %w", catalog.ErrUnknownPlan)

	body := `{"company_name":"Bakkerij Bol","contact_name":"Anna Bol","email":"anna@bol.nl","plan_id":"growth","billing_period":"monthly","processes":"Facturen automatisch inboeken"}`
	resp, env := doJSON(t, f.app, http.MethodPost, "/api/automation/intake", body)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Onbekend abonnement", env.Error)
}

func TestAutomationIntakeStoreFailure(t *testing.T) {
	f := newIntakeFixture(t)
	f.checkout.err = errors.New("db down")

	body := `{"company_name":"Bakkerij Bol","contact_name":"Anna Bol","email":"anna@bol.nl","plan_id":"growth","billing_period":"yearly","processes":"Facturen automatisch inboeken"}`
	resp, env := doJSON(t, f.app, http.MethodPost, "/api/automation/intake", body)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Empty(t, f.leads.leads)
}

func TestMaintenanceCheckoutRequiresOwnProduct(t *testing.T) {
	products := &fakeProducts{}
	require.NoError(t, products.Create(&models.Product{UserID: 7, Name: "Eigen site"}))
	require.NoError(t, products.Create(&models.Product{UserID: 8, Name: "Andermans site"}))
	checkout := &stubCheckout{intakes: &fakeIntakes{}, url: "https://checkout.stripe.test/c/pay"}
	repos := &repository.Repositories{
		User:    newFakeUsers(models.User{ID: 7, Email: "klant@example.nl", Role: models.ROLE_CUSTOMER}),
		Intake:  checkout.intakes,
		Lead:    &fakeLeads{},
		Product: products,
	}
	ic := NewIntakeController(repos, checkout, &fakeMailer{}, mail.Builder{}, nil)

	app := fiber.New()
	asUser(app, 7, models.ROLE_CUSTOMER)
	app.Post("/api/maintenance/checkout", ic.HandleMaintenanceCheckout)

	for _, id := range []string{"2", "99"} {
		resp, env := doJSON(t, app, http.MethodPost, "/api/maintenance/checkout",
			`{"plan_id":"pro","billing_period":"monthly","product_id":`+id+`}`)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, "product %s", id)
		assert.False(t, env.Success)
	}
	assert.Empty(t, checkout.maintenance)

	resp, env := doJSON(t, app, http.MethodPost, "/api/maintenance/checkout",
		`{"plan_id":"pro","billing_period":"monthly","product_id":1}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Error)
	require.Len(t, checkout.maintenance, 1)
	require.NotNil(t, checkout.maintenance[0].ProductID)
	assert.Equal(t, uint(1), *checkout.maintenance[0].ProductID)
}
