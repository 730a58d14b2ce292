package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

type recordingSender struct {
	sent []Message
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

var builder = Builder{Company: "Studio Test", OperatorEmail: "ops@studio.test", SiteURL: "https://studio.test"}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, Message{To: "a@b.nl", Subject: "x", Text: "y"}.Validate())

	err := Message{To: "nope", Subject: "x", Text: "y"}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidMessage))

	assert.Error(t, Message{To: "a@b.nl", Text: "y"}.Validate())
	assert.Error(t, Message{To: "a@b.nl", Subject: "x"}.Validate())
}

func TestBuilderEscapesUserInput(t *testing.T) {
	msg := builder.ContactAck("jan@example.nl", "<script>", "hallo <b>daar</b>")
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.HTML, "Studio Test")
	assert.Equal(t, TagContactAck, msg.Tag)
	assert.NoError(t, msg.Validate())
}

func TestContactNotificationGoesToOperator(t *testing.T) {
	msg := builder.ContactNotification("Jan", "jan@example.nl", "Offerte", "Bericht")
	assert.Equal(t, "ops@studio.test", msg.To)
	assert.Equal(t, "jan@example.nl", msg.ReplyTo)
}

func TestTicketReplyLinksToPortal(t *testing.T) {
	msg := builder.TicketReply("klant@example.nl", "Klant", "T-ABC", "Opgelost")
	assert.Contains(t, msg.HTML, "https://studio.test/portal/tickets/T-ABC")
}

func TestPaymentConfirmedFormatsAmount(t *testing.T) {
	msg := builder.PaymentConfirmed("klant@example.nl", "Klant", "Business website", 150000)
	assert.Contains(t, msg.HTML, "500")
	assert.Contains(t, msg.HTML, "Business website")
}

func TestDirectDispatch(t *testing.T) {
	rec := &recordingSender{}
	d := Direct{Sender: rec}
	require.NoError(t, d.Dispatch(context.Background(), builder.PaymentFailed("klant@example.nl", "kaart geweigerd", 0)))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, TagPaymentFailed, rec.sent[0].Tag)
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	s := NewSender(config.MailConfig{})
	_, ok := s.(LogSender)
	assert.True(t, ok)

	s = NewSender(config.MailConfig{SMTPHost: "smtp.local", SMTPPort: "25", SenderEmail: "a@b.nl"})
	_, ok = s.(*SMTPSender)
	assert.True(t, ok)
}
