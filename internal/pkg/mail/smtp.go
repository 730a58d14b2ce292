package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

// SMTPSender sends HTML mail via a plain SMTP relay.
type SMTPSender struct {
	addr     string
	host     string
	username string
	password string
	from     string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		host:     cfg.SMTPHost,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SenderEmail,
	}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.username != "" && s.password != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := smtp.SendMail(s.addr, auth, s.from, []string{msg.To}, s.render(msg)); err != nil {
		log.Errorf("[Mail] SMTP send to %s failed: %v", msg.To, err)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	log.Infof("[Mail] Sent %q to %s via %s", msg.Subject, msg.To, s.addr)
	return nil
}

func (s *SMTPSender) render(msg Message) []byte {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", s.from, msg.To, msg.Subject)
	if msg.ReplyTo != "" {
		headers += fmt.Sprintf("Reply-To: %s\r\n", msg.ReplyTo)
	}
	body := msg.HTML
	if body == "" {
		body = msg.Text
	}
	return []byte(headers +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
		body)
}
