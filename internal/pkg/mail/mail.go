// Package mail sends transactional email through Postmark, plain SMTP, or
// the log when neither is configured.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

var (
	ErrInvalidMessage = errors.New("invalid mail message")
	ErrSendFailed     = errors.New("mail delivery failed")
)

// Message is a single outbound email. It is also the payload of the
// send_email job, so every field must survive a JSON round trip.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
	Tag     string `json:"tag,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`
}

func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q", ErrInvalidMessage, m.To)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidMessage)
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("%w: body is empty", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher hands a message off for delivery. The job queue implements it
// asynchronously; Direct wraps a Sender for inline delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Direct delivers inline.
type Direct struct {
	Sender Sender
}

func (d Direct) Dispatch(ctx context.Context, msg Message) error {
	return d.Sender.Send(ctx, msg)
}

// NewSender picks Postmark when a server token is set, SMTP when a host is
// set, and otherwise the log sender.
func NewSender(cfg config.MailConfig) Sender {
	switch {
	case cfg.PostmarkServerToken != "":
		return NewPostmarkSender(cfg)
	case cfg.SMTPHost != "":
		return NewSMTPSender(cfg)
	default:
		log.Warn("[Mail] No POSTMARK_SERVER_TOKEN or SMTP_HOST configured, mails are only logged")
		return LogSender{}
	}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	log.Infow("[Mail] not sent (no transport)", "to", msg.To, "subject", msg.Subject, "tag", msg.Tag)
	return nil
}
