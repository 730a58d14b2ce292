package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/config"
)

type PostmarkSender struct {
	client *postmark.Client
	from   string
	stream string
}

func NewPostmarkSender(cfg config.MailConfig) *PostmarkSender {
	return &PostmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.SenderEmail,
		stream: cfg.PostmarkStream,
	}
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:          s.from,
		To:            msg.To,
		ReplyTo:       msg.ReplyTo,
		Subject:       msg.Subject,
		Tag:           msg.Tag,
		HTMLBody:      msg.HTML,
		TextBody:      msg.Text,
		MessageStream: s.stream,
		TrackOpens:    true,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
