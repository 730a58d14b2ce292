package mail

import (
	"bytes"
	"html/template"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/money"
)

const (
	TagContactAck          = "contact-ack"
	TagContactNotification = "contact-notification"
	TagIntakeReceived      = "intake-received"
	TagPaymentConfirmed    = "payment-confirmed"
	TagPaymentNotification = "payment-notification"
	TagPaymentFailed       = "payment-failed"
	TagTicketReply         = "ticket-reply"
)

var layout = template.Must(template.New("layout").Funcs(template.FuncMap{
	"money": money.Format,
}).Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
{{block "content" .}}{{end}}
<p>Met vriendelijke groet,<br>{{.Company}}</p>
</body></html>`))

func mustTemplate(body string) *template.Template {
	return template.Must(template.Must(layout.Clone()).Parse(`{{define "content"}}` + body + `{{end}}`))
}

var (
	contactAckTmpl = mustTemplate(`<p>Beste {{.Name}},</p>
<p>Bedankt voor je bericht. We nemen binnen één werkdag contact met je op.</p>
<blockquote>{{.Body}}</blockquote>`)

	contactNotificationTmpl = mustTemplate(`<p>Nieuw contactverzoek van <strong>{{.Name}}</strong> ({{.Email}}){{if .Extra}} - {{.Extra}}{{end}}.</p>
<blockquote>{{.Body}}</blockquote>`)

	intakeReceivedTmpl = mustTemplate(`<p>Beste {{.Name}},</p>
<p>We hebben je aanvraag ({{.Reference}}) ontvangen.{{if .URL}} Je kunt de betaling afronden via <a href="{{.URL}}">deze link</a>.{{end}}</p>`)

	paymentConfirmedTmpl = mustTemplate(`<p>Beste {{.Name}},</p>
<p>Bedankt! We hebben je betaling van {{money .Amount}} voor {{.Body}} ontvangen.</p>`)

	paymentNotificationTmpl = mustTemplate(`<p>Betaling ontvangen van {{.Email}}: {{money .Amount}} voor {{.Body}} ({{.Reference}}).</p>`)

	paymentFailedTmpl = mustTemplate(`<p>Beste klant,</p>
<p>Je betaling{{if .Amount}} van {{money .Amount}}{{end}} is helaas niet gelukt.{{if .Body}} Reden: {{.Body}}.{{end}}</p>
<p>Probeer het opnieuw of neem contact met ons op.</p>`)

	ticketReplyTmpl = mustTemplate(`<p>Beste {{.Name}},</p>
<p>Er is een nieuw antwoord op je ticket {{.Reference}}:</p>
<blockquote>{{.Body}}</blockquote>
<p><a href="{{.URL}}">Bekijk het ticket in je portaal</a></p>`)
)

// data is the shared template model.
type data struct {
	Company   string
	Name      string
	Email     string
	Body      string
	Extra     string
	Reference string
	URL       string
	Amount    int64
}

func render(t *template.Template, d data) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		// templates are static; an error here is a programming bug
		panic(err)
	}
	return buf.String()
}

// Builder renders the transactional messages with company-wide defaults.
type Builder struct {
	Company       string
	OperatorEmail string
	SiteURL       string
}

func (b Builder) ContactAck(to, name, body string) Message {
	return Message{
		To:      to,
		Subject: "We hebben je bericht ontvangen",
		HTML:    render(contactAckTmpl, data{Company: b.Company, Name: name, Body: body}),
		Tag:     TagContactAck,
		ReplyTo: b.OperatorEmail,
	}
}

func (b Builder) ContactNotification(name, email, subject, body string) Message {
	return Message{
		To:      b.OperatorEmail,
		Subject: "Nieuw contactverzoek: " + name,
		HTML:    render(contactNotificationTmpl, data{Company: b.Company, Name: name, Email: email, Extra: subject, Body: body}),
		Tag:     TagContactNotification,
		ReplyTo: email,
	}
}

func (b Builder) IntakeReceived(to, name, reference, checkoutURL string) Message {
	return Message{
		To:      to,
		Subject: "Je aanvraag " + reference + " is ontvangen",
		HTML:    render(intakeReceivedTmpl, data{Company: b.Company, Name: name, Reference: reference, URL: checkoutURL}),
		Tag:     TagIntakeReceived,
		ReplyTo: b.OperatorEmail,
	}
}

func (b Builder) PaymentConfirmed(to, name, description string, amount int64) Message {
	return Message{
		To:      to,
		Subject: "Betaling ontvangen",
		HTML:    render(paymentConfirmedTmpl, data{Company: b.Company, Name: name, Body: description, Amount: amount}),
		Tag:     TagPaymentConfirmed,
		ReplyTo: b.OperatorEmail,
	}
}

func (b Builder) PaymentNotification(customerEmail, description, reference string, amount int64) Message {
	return Message{
		To:      b.OperatorEmail,
		Subject: "Betaling ontvangen: " + description,
		HTML:    render(paymentNotificationTmpl, data{Company: b.Company, Email: customerEmail, Body: description, Reference: reference, Amount: amount}),
		Tag:     TagPaymentNotification,
	}
}

func (b Builder) PaymentFailed(to, reason string, amount int64) Message {
	return Message{
		To:      to,
		Subject: "Je betaling is niet gelukt",
		HTML:    render(paymentFailedTmpl, data{Company: b.Company, Body: reason, Amount: amount}),
		Tag:     TagPaymentFailed,
		ReplyTo: b.OperatorEmail,
	}
}

func (b Builder) TicketReply(to, name, reference, body string) Message {
	return Message{
		To:      to,
		Subject: "Nieuw antwoord op ticket " + reference,
		HTML:    render(ticketReplyTmpl, data{Company: b.Company, Name: name, Reference: reference, Body: body, URL: b.SiteURL + "/portal/tickets/" + reference}),
		Tag:     TagTicketReply,
		ReplyTo: b.OperatorEmail,
	}
}
