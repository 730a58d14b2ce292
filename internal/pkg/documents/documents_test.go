package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/jobqueue"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/money"
)

func sampleQuote(t *testing.T) *models.QuoteRequest {
	t.Helper()
	q, err := catalog.BuildQuote("business", []string{"seo"})
	require.NoError(t, err)
	return &models.QuoteRequest{
		Reference:   "O-ABC123",
		Name:        "Jan Jansen",
		Email:       "jan@example.nl",
		Company:     "Jansen BV",
		PackageID:   "business",
		Extras:      []models.QuoteExtra{{ID: "seo", Name: "SEO optimalisatie", Price: 49500}},
		Subtotal:    q.Subtotal,
		VAT:         q.VAT,
		Total:       q.Total,
		Deposit:     q.Deposit,
		Status:      models.IntakeStatusPendingPayment,
		CheckoutURL: "https://checkout.stripe.test/1",
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestQuoteDocument(t *testing.T) {
	q := sampleQuote(t)
	doc := NewQuoteDocument(q, "Testbureau")

	assert.Equal(t, "Business website", doc.PackageName)
	assert.Equal(t, "01-03-2026", doc.IssuedAt)
	assert.Equal(t, "31-03-2026", doc.ValidUntil)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, money.Format(299500), doc.Lines[0].Amount)
	assert.Equal(t, "https://checkout.stripe.test/1", doc.PayURL)

	md, err := doc.Markdown()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "# Offerte O-ABC123"))
	assert.Contains(t, md, "| SEO optimalisatie | "+money.Format(49500)+" |")
	assert.Contains(t, md, "**"+money.Format(q.Total)+"**")
	assert.Contains(t, md, "BTW 21%")
	assert.Contains(t, md, "aanbetaling van 50%")
}

func TestQuoteDocumentHidesPayLinkOncePaid(t *testing.T) {
	q := sampleQuote(t)
	q.Status = models.IntakeStatusPaid
	assert.Empty(t, NewQuoteDocument(q, "Testbureau").PayURL)
}

func TestAutomationPrompt(t *testing.T) {
	in := &models.AutomationIntake{
		CompanyName:   "Bakkerij De Korst",
		ContactName:   "Piet",
		Email:         "piet@korst.nl",
		PlanID:        "growth",
		BillingPeriod: "monthly",
		Processes:     "Orders uit de webshop handmatig overtypen in de boekhouding",
		Tools:         []string{"Shopify", "Moneybird"},
		Volume:        "200 orders per week",
	}
	md, err := AutomationPrompt(in).Render()
	require.NoError(t, err)

	assert.Contains(t, md, "# Automation project: Bakkerij De Korst")
	assert.Contains(t, md, "- Contact: Piet <piet@korst.nl>")
	assert.Contains(t, md, "- Shopify\n- Moneybird")
	assert.Contains(t, md, "max 15 workflows, 10000 runs per month")
	assert.Contains(t, md, "- [ ] Process map of the current manual steps")
	assert.NotContains(t, md, "Website:")
	assert.NotContains(t, md, "## Goals")
}

func TestQuotePrompt(t *testing.T) {
	md, err := QuotePrompt(sampleQuote(t)).Render()
	require.NoError(t, err)
	assert.Contains(t, md, "# Website project O-ABC123: Jansen BV")
	assert.Contains(t, md, "- [ ] CMS")
	assert.Contains(t, md, "- [ ] SEO optimalisatie")
}

type fakeArchiveQueue struct {
	available bool
	keys      []string
	err       error
}

func (f *fakeArchiveQueue) Available() bool { return f.available }

func (f *fakeArchiveQueue) EnqueueArchive(_ context.Context, key, _ string, _ []byte) (*jobqueue.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.keys = append(f.keys, key)
	return &jobqueue.Job{}, nil
}

func TestArchive(t *testing.T) {
	q := &fakeArchiveQueue{available: true}
	key, err := Archive(context.Background(), q, "prompts", "A-7.md", "# x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "prompts/"))
	assert.True(t, strings.HasSuffix(key, "/A-7.md"))
	assert.Equal(t, []string{key}, q.keys)

	key, err = Archive(context.Background(), &fakeArchiveQueue{}, "prompts", "A-7.md", "# x")
	require.NoError(t, err)
	assert.Empty(t, key)

	_, err = Archive(context.Background(), &fakeArchiveQueue{available: true, err: errors.New("down")}, "prompts", "A-7.md", "# x")
	assert.Error(t, err)
}
