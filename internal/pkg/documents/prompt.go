// Package documents renders the generated artifacts: the Markdown project
// prompt handed to the developer's editor and the quote document.
package documents

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ManuelReschke/AgencyDesk/app/models"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/catalog"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/money"
)

// Prompt is the input of the project prompt template.
type Prompt struct {
	Title        string
	Client       string
	Contact      string
	Email        string
	Website      string
	Summary      string
	Goals        string
	Tools        []string
	Constraints  []string
	Deliverables []string
}

var funcs = template.FuncMap{
	"money": money.Format,
	"bullet": func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
	},
}

var promptTmpl = template.Must(template.New("prompt").Funcs(funcs).Parse(`# {{ .Title }}

## Client
- Company: {{ .Client }}
- Contact: {{ .Contact }} <{{ .Email }}>
{{- if .Website }}
- Website: {{ .Website }}
{{- end }}

## Project summary
{{ .Summary }}
{{ if .Goals }}
## Goals
{{ .Goals }}
{{ end }}
{{- if .Tools }}
## Existing tools
{{- range .Tools }}
- {{ . }}
{{- end }}
{{ end }}
## Constraints
{{- range .Constraints }}
- {{ bullet . }}
{{- end }}

## Deliverables
{{- range .Deliverables }}
- [ ] {{ . }}
{{- end }}
`))

// Render executes the prompt template.
func (p Prompt) Render() (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// AutomationPrompt builds the prompt for an automation intake.
func AutomationPrompt(in *models.AutomationIntake) Prompt {
	p := Prompt{
		Title:   "Automation project: " + in.CompanyName,
		Client:  in.CompanyName,
		Contact: in.ContactName,
		Email:   in.Email,
		Website: in.Website,
		Summary: in.Processes,
		Goals:   in.Goals,
		Tools:   []string(in.Tools),
	}
	if plan, ok := catalog.GetAutomationPlanByID(in.PlanID); ok {
		p.Constraints = append(p.Constraints,
			fmt.Sprintf("Plan %s (%s): max %d workflows, %d runs per month",
				plan.Name, in.BillingPeriod, plan.Limits.Workflows, plan.Limits.RunsPerMonth))
	}
	if in.Volume != "" {
		p.Constraints = append(p.Constraints, "Expected volume: "+in.Volume)
	}
	p.Constraints = append(p.Constraints, "Every workflow logs its runs and failures")
	p.Deliverables = []string{
		"Process map of the current manual steps",
		"Workflow implementation per process",
		"Error notifications to the client contact",
		"Handover document with credentials overview",
	}
	return p
}

// QuotePrompt builds the prompt for a website quote.
func QuotePrompt(q *models.QuoteRequest) Prompt {
	client := q.Company
	if client == "" {
		client = q.Name
	}
	p := Prompt{
		Title:   "Website project " + q.Reference + ": " + client,
		Client:  client,
		Contact: q.Name,
		Email:   q.Email,
		Summary: q.Notes,
	}
	if pkg, ok := catalog.GetPackageByID(q.PackageID); ok {
		if p.Summary == "" {
			p.Summary = pkg.Name + " for " + client
		}
		p.Constraints = append(p.Constraints, "Package: "+pkg.Name+", delivery "+pkg.DeliveryTime)
		p.Deliverables = append(p.Deliverables, pkg.Features...)
	}
	p.Constraints = append(p.Constraints, "Budget: "+money.Format(q.Total)+" incl. VAT")
	for _, e := range q.Extras {
		p.Deliverables = append(p.Deliverables, e.Name)
	}
	p.Deliverables = append(p.Deliverables, "Launch checklist and handover")
	return p
}
