package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/app/repository"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/payments"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/permissions"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

// asUser installs a logged-in user context for every request of app.
func asUser(app *fiber.App, id uint, role string) {
	app.Use(func(c *fiber.Ctx) error {
		usercontext.Set(c, usercontext.UserContext{
			UserID:      id,
			Name:        "Tester",
			Email:       "tester@example.nl",
			Role:        role,
			IsLoggedIn:  true,
			Permissions: permissions.ForRole(role),
		})
		return c.Next()
	})
}

type fakeUsers struct {
	mu     sync.Mutex
	rows   map[uint]models.User
	nextID uint
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{rows: map[uint]models.User{}}
	for _, u := range users {
		f.rows[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) GetByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (f *fakeUsers) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Update(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) Delete(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeUsers) List(offset, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.rows))
	for _, u := range f.rows {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *fakeUsers) Search(query string) ([]models.User, error) { return f.List(0, 0) }

func (f *fakeUsers) TouchLastLogin(id uint, at time.Time) error { return nil }

func (f *fakeUsers) get(id uint) (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	return u, ok
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AdminAuditLog
}

func (f *fakeAudit) Create(entry *models.AdminAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) List(filter repository.AuditFilter) ([]models.AdminAuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AdminAuditLog(nil), f.entries...), nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeLeads struct {
	mu         sync.Mutex
	leads      []models.AILead
	activities []models.LeadActivity
}

func (f *fakeLeads) Create(lead *models.AILead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead.ID = uint(len(f.leads) + 1)
	f.leads = append(f.leads, *lead)
	return nil
}

func (f *fakeLeads) GetByID(id uint) (*models.AILead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			l := l
			return &l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeads) GetByEmail(email string) (*models.AILead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.Email == email {
			l := l
			return &l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeads) List(offset, limit int, status string) ([]models.AILead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AILead(nil), f.leads...), nil
}

func (f *fakeLeads) Update(lead *models.AILead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leads {
		if f.leads[i].ID == lead.ID {
			f.leads[i] = *lead
		}
	}
	return nil
}

func (f *fakeLeads) AddActivity(activity *models.LeadActivity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, *activity)
	return nil
}

func (f *fakeLeads) CountByStatus() (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int64{}
	for _, l := range f.leads {
		out[l.Status]++
	}
	return out, nil
}

type fakeIntakes struct {
	mu       sync.Mutex
	contacts []models.ContactRequest
	quotes   []models.QuoteRequest
}

func (f *fakeIntakes) CreateContact(req *models.ContactRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = uint(len(f.contacts) + 1)
	f.contacts = append(f.contacts, *req)
	return nil
}

func (f *fakeIntakes) ListContacts(offset, limit int) ([]models.ContactRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ContactRequest(nil), f.contacts...), nil
}

func (f *fakeIntakes) CreateQuote(quote *models.QuoteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote.ID = uint(len(f.quotes) + 1)
	f.quotes = append(f.quotes, *quote)
	return nil
}

func (f *fakeIntakes) GetQuoteByID(id uint) (*models.QuoteRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.quotes {
		if q.ID == id {
			q := q
			return &q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIntakes) GetQuoteByReference(ref string) (*models.QuoteRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.quotes {
		if q.Reference == ref {
			q := q
			return &q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIntakes) UpdateQuote(quote *models.QuoteRequest) error { return nil }

func (f *fakeIntakes) ListQuotes(offset, limit int) ([]models.QuoteRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.QuoteRequest(nil), f.quotes...), nil
}

func (f *fakeIntakes) CreateAutomation(intake *models.AutomationIntake) error { return nil }

func (f *fakeIntakes) GetAutomationByID(id uint) (*models.AutomationIntake, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIntakes) UpdateAutomation(intake *models.AutomationIntake) error { return nil }

func (f *fakeIntakes) ListAutomation(offset, limit int) ([]models.AutomationIntake, error) {
	return nil, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMailer) Dispatch(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// stubCheckout stores the quote like the real service and never reaches Stripe.
type stubCheckout struct {
	intakes     *fakeIntakes
	url         string
	err         error
	maintenance []payments.MaintenanceRequest
}

func (s *stubCheckout) StartQuote(ctx context.Context, q *models.QuoteRequest) (*payments.CheckoutResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	q.Reference = "Q-TEST"
	q.Status = models.IntakeStatusSubmitted
	if err := s.intakes.CreateQuote(q); err != nil {
		return nil, err
	}
	return &payments.CheckoutResult{ID: q.ID, Reference: q.Reference, CheckoutURL: s.url}, nil
}

func (s *stubCheckout) StartAutomation(ctx context.Context, a *models.AutomationIntake) (*payments.CheckoutResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CheckoutResult{ID: 1, CheckoutURL: s.url}, nil
}

func (s *stubCheckout) StartMaintenance(ctx context.Context, req payments.MaintenanceRequest) (*payments.CheckoutResult, error) {
	s.maintenance = append(s.maintenance, req)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CheckoutResult{ID: 1, CheckoutURL: s.url}, nil
}

type stubWebhooks struct {
	result *payments.WebhookResult
	err    error
	calls  int
}

func (s *stubWebhooks) HandleStripe(ctx context.Context, payload []byte, signatureHeader string) (*payments.WebhookResult, error) {
	s.calls++
	return s.result, s.err
}

type stubReconciler struct {
	report *subscriptions.Report
	err    error
}

func (s *stubReconciler) Run(ctx context.Context) (*subscriptions.Report, error) {
	return s.report, s.err
}

type stubCommands struct {
	result *subscriptions.Result
	err    error
	got    subscriptions.Command
	actor  subscriptions.Actor
}

func (s *stubCommands) Execute(ctx context.Context, actor subscriptions.Actor, kind subscriptions.Kind, id uint, cmd subscriptions.Command) (*subscriptions.Result, error) {
	s.got = cmd
	s.actor = actor
	return s.result, s.err
}

type fakeTickets struct {
	mu       sync.Mutex
	tickets  map[uint]models.SupportTicket
	messages []models.TicketMessage
}

func newFakeTickets(tickets ...models.SupportTicket) *fakeTickets {
	f := &fakeTickets{tickets: map[uint]models.SupportTicket{}}
	for _, t := range tickets {
		f.tickets[t.ID] = t
	}
	return f
}

func (f *fakeTickets) Create(ticket *models.SupportTicket, first *models.TicketMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket.ID = uint(len(f.tickets) + 1)
	f.tickets[ticket.ID] = *ticket
	first.TicketID = ticket.ID
	f.messages = append(f.messages, *first)
	return nil
}

func (f *fakeTickets) GetByID(id uint) (*models.SupportTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (f *fakeTickets) GetByReference(ref string) (*models.SupportTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.Reference == ref {
			t := t
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTickets) List(offset, limit int, status string) ([]models.SupportTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SupportTicket, 0, len(f.tickets))
	for _, t := range f.tickets {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTickets) ListByUser(userID uint) ([]models.SupportTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SupportTicket
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTickets) Update(ticket *models.SupportTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTickets) AddMessage(ticket *models.SupportTicket, msg *models.TicketMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.TicketID = ticket.ID
	f.messages = append(f.messages, *msg)
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTickets) get(id uint) models.SupportTicket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets[id]
}

type fakeProducts struct {
	products []models.Product
}

func (f *fakeProducts) Create(product *models.Product) error {
	product.ID = uint(len(f.products) + 1)
	f.products = append(f.products, *product)
	return nil
}

func (f *fakeProducts) GetByID(id uint) (*models.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeProducts) GetByUserID(userID uint) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubBillingPortal struct {
	url        string
	err        error
	customerID string
}

func (s *stubBillingPortal) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	s.customerID = customerID
	return s.url, s.err
}

// fakeInvoices checks updates against the stored row like the gorm
// repository does under its row lock. beforeUpdate runs first.
type fakeInvoices struct {
	mu           sync.Mutex
	invoices     map[uint]models.Invoice
	beforeUpdate func()
}

func newFakeInvoices(invoices ...models.Invoice) *fakeInvoices {
	f := &fakeInvoices{invoices: map[uint]models.Invoice{}}
	for _, inv := range invoices {
		f.invoices[inv.ID] = inv
	}
	return f
}

func (f *fakeInvoices) Create(invoice *models.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	invoice.ID = uint(len(f.invoices) + 1)
	f.invoices[invoice.ID] = *invoice
	return nil
}

func (f *fakeInvoices) GetByID(id uint) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (f *fakeInvoices) Update(invoice *models.Invoice) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.invoices[invoice.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if err := models.CheckInvoiceUpdate(&stored, invoice); err != nil {
		return err
	}
	f.invoices[invoice.ID] = *invoice
	return nil
}

func (f *fakeInvoices) List(offset, limit int, status string) ([]models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invoice
	for _, inv := range f.invoices {
		if status == "" || inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvoices) ListByUser(userID uint) ([]models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.UserID != nil && *inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeInvoices) get(id uint) models.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invoices[id]
}
