package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu            sync.Mutex
	events        map[string]*models.WebhookEvent
	quotes        map[uint]*models.QuoteRequest
	automations   map[uint]*models.AutomationIntake
	invoices      []*models.Invoice
	users         map[uint]*models.User
	subs          map[string]*models.Subscription
	automationSub map[string]*models.AutomationSubscription
	writes        int
	nextID        uint
}

func newMemRepo() *memRepo {
	return &memRepo{
		events:        map[string]*models.WebhookEvent{},
		quotes:        map[uint]*models.QuoteRequest{},
		automations:   map[uint]*models.AutomationIntake{},
		users:         map[uint]*models.User{},
		subs:          map[string]*models.Subscription{},
		automationSub: map[string]*models.AutomationSubscription{},
	}
}

func (r *memRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.writes++
	event.ID = r.id()
	r.events[key] = event
	return true, event, nil
}

func (r *memRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memRepo) GetQuote(id uint) (*models.QuoteRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *memRepo) SaveQuote(q *models.QuoteRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if q.ID == 0 {
		q.ID = r.id()
	}
	cp := *q
	r.quotes[q.ID] = &cp
	return nil
}

func (r *memRepo) GetAutomationIntake(id uint) (*models.AutomationIntake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.automations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) SaveAutomationIntake(a *models.AutomationIntake) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if a.ID == 0 {
		a.ID = r.id()
	}
	cp := *a
	r.automations[a.ID] = &cp
	return nil
}

func (r *memRepo) FindInvoiceByCheckoutSession(sessionID string) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.StripeCheckoutSessionID == sessionID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) SaveInvoice(inv *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if inv.ID == 0 {
		inv.ID = r.id()
		if inv.Number == "" {
			inv.Number = fmt.Sprintf("F-%d", inv.ID)
		}
		cp := *inv
		r.invoices = append(r.invoices, &cp)
		return nil
	}
	for i, stored := range r.invoices {
		if stored.ID == inv.ID {
			if err := models.CheckInvoiceUpdate(stored, inv); err != nil {
				return err
			}
			cp := *inv
			r.invoices[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memRepo) GetUser(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) FindUserByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) SetUserStripeCustomer(userID uint, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok && u.StripeCustomerID == "" {
		u.StripeCustomerID = customerID
	}
	return nil
}

func (r *memRepo) UpsertSubscription(sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if existing, ok := r.subs[sub.StripeSubscriptionID]; ok {
		sub.ID = existing.ID
	} else {
		sub.ID = r.id()
	}
	cp := *sub
	r.subs[sub.StripeSubscriptionID] = &cp
	return nil
}

func (r *memRepo) UpsertAutomationSubscription(sub *models.AutomationSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if existing, ok := r.automationSub[sub.StripeSubscriptionID]; ok {
		sub.ID = existing.ID
	} else {
		sub.ID = r.id()
	}
	cp := *sub
	r.automationSub[sub.StripeSubscriptionID] = &cp
	return nil
}

func (r *memRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// recordingMailer captures dispatched messages.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMailer) Dispatch(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) tagged(tag string) []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mail.Message
	for _, msg := range m.sent {
		if msg.Tag == tag {
			out = append(out, msg)
		}
	}
	return out
}

// stubGateway records checkout requests and returns canned sessions.
type stubGateway struct {
	DisabledGateway
	sessions []CheckoutParams
	prices   []PriceSpec
	failWith error
}

func (g *stubGateway) Enabled() bool { return true }

func (g *stubGateway) EnsureRecurringPrice(_ context.Context, spec PriceSpec) (string, error) {
	g.prices = append(g.prices, spec)
	return "price_" + spec.LookupKey, nil
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if g.failWith != nil {
		return nil, g.failWith
	}
	g.sessions = append(g.sessions, p)
	n := len(g.sessions)
	return &CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", n),
		URL: fmt.Sprintf("https://checkout.stripe.test/%d", n),
	}, nil
}

// stubSyncer records adopted remote subscriptions.
type stubSyncer struct {
	adopted []RemoteSubscription
}

func (s *stubSyncer) AdoptRemote(_ context.Context, remote RemoteSubscription, _ string) (bool, error) {
	s.adopted = append(s.adopted, remote)
	return true, nil
}

var testMails = mail.Builder{Company: "Testbureau", OperatorEmail: "ops@bureau.test", SiteURL: "https://bureau.test"}
