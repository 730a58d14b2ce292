package documents

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/money"
)

type QuoteLine struct {
	Description string
	Amount      string
}

// QuoteDocument is the fixed quote layout with every amount preformatted.
// The offerte page and the Markdown export render the same value.
type QuoteDocument struct {
	Company      string
	Reference    string
	IssuedAt     string
	ValidUntil   string
	CustomerName string
	CustomerCo   string
	Email        string
	PackageName  string
	DeliveryTime string
	Features     []string
	Lines        []QuoteLine
	Subtotal     string
	VATLabel     string
	VAT          string
	Total        string
	Deposit      string
	DepositNote  string
	Status       string
	PayURL       string
	Footer       string
}

const quoteValidity = 30 * 24 * time.Hour

func NewQuoteDocument(q *models.QuoteRequest, company string) QuoteDocument {
	issued := q.CreatedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	doc := QuoteDocument{
		Company:      company,
		Reference:    q.Reference,
		IssuedAt:     issued.Format("02-01-2006"),
		ValidUntil:   issued.Add(quoteValidity).Format("02-01-2006"),
		CustomerName: q.Name,
		CustomerCo:   q.Company,
		Email:        q.Email,
		PackageName:  q.PackageID,
		Subtotal:     money.Format(q.Subtotal),
		VATLabel:     fmt.Sprintf("BTW %d%%", catalog.VATPercent),
		VAT:          money.Format(q.VAT),
		Total:        money.Format(q.Total),
		Deposit:      money.Format(q.Deposit),
		DepositNote: fmt.Sprintf("Bij akkoord betaalt u een aanbetaling van %d%% (%s). Het restant volgt bij oplevering.",
			catalog.DepositPercent, money.Format(q.Deposit)),
		Status: q.Status,
		Footer: company + " - Deze offerte is " + fmt.Sprint(int(quoteValidity.Hours()/24)) + " dagen geldig.",
	}
	if q.Status == models.IntakeStatusPendingPayment {
		doc.PayURL = q.CheckoutURL
	}

	base := q.Subtotal
	if pkg, ok := catalog.GetPackageByID(q.PackageID); ok {
		doc.PackageName = pkg.Name
		doc.DeliveryTime = pkg.DeliveryTime
		doc.Features = append([]string(nil), pkg.Features...)
		base = pkg.BasePrice
	}
	doc.Lines = append(doc.Lines, QuoteLine{Description: doc.PackageName, Amount: money.Format(base)})
	for _, e := range q.Extras {
		doc.Lines = append(doc.Lines, QuoteLine{Description: e.Name, Amount: money.Format(e.Price)})
	}
	return doc
}

var quoteTmpl = template.Must(template.New("quote").Parse(`# Offerte {{ .Reference }}

**{{ .Company }}**

| | |
|---|---|
| Datum | {{ .IssuedAt }} |
| Geldig tot | {{ .ValidUntil }} |
| Klant | {{ .CustomerName }}{{ if .CustomerCo }}, {{ .CustomerCo }}{{ end }} |
| E-mail | {{ .Email }} |

## {{ .PackageName }}
{{- if .DeliveryTime }}

Levertijd: {{ .DeliveryTime }}
{{- end }}
{{ range .Features }}
- {{ . }}
{{- end }}

| Omschrijving | Bedrag |
|---|---:|
{{- range .Lines }}
| {{ .Description }} | {{ .Amount }} |
{{- end }}
| Subtotaal | {{ .Subtotal }} |
| {{ .VATLabel }} | {{ .VAT }} |
| **Totaal** | **{{ .Total }}** |

{{ .DepositNote }}

---
{{ .Footer }}
`))

// Markdown renders the document for download and archiving.
func (d QuoteDocument) Markdown() (string, error) {
	var buf bytes.Buffer
	if err := quoteTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render quote: %w", err)
	}
	return buf.String(), nil
}
