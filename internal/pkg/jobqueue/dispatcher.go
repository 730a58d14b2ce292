package jobqueue

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
)

// MailDispatcher queues mails on the job queue and sends them inline when
// Redis is not available.
type MailDispatcher struct {
	queue    *Queue
	fallback mail.Sender
}

func NewMailDispatcher(queue *Queue, fallback mail.Sender) *MailDispatcher {
	return &MailDispatcher{queue: queue, fallback: fallback}
}

var _ mail.Dispatcher = (*MailDispatcher)(nil)

func (d *MailDispatcher) Dispatch(ctx context.Context, msg mail.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if d.queue.Available() {
		_, err := d.queue.EnqueueSendEmail(ctx, msg)
		if err == nil {
			return nil
		}
		log.Warnf("[Mail] queueing %s failed, sending inline: %v", msg.Tag, err)
	}
	if d.fallback == nil {
		return errors.New("no mail sender configured")
	}
	return d.fallback.Send(ctx, msg)
}
