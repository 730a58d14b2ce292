package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/archive"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
)

// SubscriptionReplayer retries the stored remote change of one subscription.
type SubscriptionReplayer interface {
	ReplayPending(ctx context.Context, kind subscriptions.Kind, id uint) error
}

// ReconcileRunner runs one full reconciliation pass.
type ReconcileRunner interface {
	Run(ctx context.Context) (*subscriptions.Report, error)
}

// Processors are the services jobs run against. A nil field makes jobs of
// that type fail, so they are retried once the service is wired.
type Processors struct {
	Mail      mail.Sender
	Sync      SubscriptionReplayer
	Reconcile ReconcileRunner
	Archive   archive.Archiver
}

var errNoProcessor = errors.New("no processor configured")

func (q *Queue) execute(ctx context.Context, job *Job) error {
	p := q.currentProcessors()
	switch job.Type {
	case JobTypeSendEmail:
		return p.sendEmail(ctx, job)
	case JobTypeSubscriptionSync:
		return p.syncSubscription(ctx, job)
	case JobTypeReconcileSubscriptions:
		if p.Reconcile == nil {
			return fmt.Errorf("%s: %w", job.Type, errNoProcessor)
		}
		report, err := p.Reconcile.Run(ctx)
		if err == nil {
			log.Infof("[Reconcile] recovered=%d replayed=%d adopted=%d checked=%d failed=%d",
				report.Recovered, report.Replayed, report.Adopted, report.Checked, report.Failed)
		}
		return err
	case JobTypeArchiveDocument:
		return p.archiveDocument(ctx, job)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

func (p Processors) sendEmail(ctx context.Context, job *Job) error {
	payload, err := Decode[SendEmailPayload](job)
	if err != nil {
		return err
	}
	if p.Mail == nil {
		return fmt.Errorf("%s: %w", job.Type, errNoProcessor)
	}
	if err := p.Mail.Send(ctx, payload.Message); err != nil {
		return err
	}
	log.Infof("[Mail] Sent %s to %s", payload.Message.Tag, payload.Message.To)
	return nil
}

func (p Processors) syncSubscription(ctx context.Context, job *Job) error {
	payload, err := Decode[SubscriptionSyncPayload](job)
	if err != nil {
		return err
	}
	if p.Sync == nil {
		return fmt.Errorf("%s: %w", job.Type, errNoProcessor)
	}
	kind := subscriptions.Kind(payload.Kind)
	if !kind.Valid() {
		// nothing to retry
		log.Errorf("[SubscriptionSync] dropping job %s with unknown kind %q", job.ID, payload.Kind)
		return nil
	}
	err = p.Sync.ReplayPending(ctx, kind, payload.SubscriptionID)
	if errors.Is(err, subscriptions.ErrNotFound) {
		log.Warnf("[SubscriptionSync] %s %d no longer exists", kind, payload.SubscriptionID)
		return nil
	}
	return err
}

func (p Processors) archiveDocument(ctx context.Context, job *Job) error {
	payload, err := Decode[ArchiveDocumentPayload](job)
	if err != nil {
		return err
	}
	if p.Archive == nil || !p.Archive.Enabled() {
		log.Debugf("[Archive] disabled, skipping %s", payload.Key)
		return nil
	}
	_, err = p.Archive.Put(ctx, payload.Key, payload.ContentType, []byte(payload.Body))
	return err
}

// EnqueueSendEmail queues one message for delivery.
func (q *Queue) EnqueueSendEmail(ctx context.Context, msg mail.Message) (*Job, error) {
	return q.Enqueue(ctx, JobTypeSendEmail, SendEmailPayload{Message: msg})
}

// EnqueueSubscriptionSync implements subscriptions.Outbox.
func (q *Queue) EnqueueSubscriptionSync(ctx context.Context, kind subscriptions.Kind, id uint) error {
	_, err := q.Enqueue(ctx, JobTypeSubscriptionSync, SubscriptionSyncPayload{
		Kind:           string(kind),
		SubscriptionID: id,
	})
	return err
}

func (q *Queue) EnqueueReconcile(ctx context.Context) (*Job, error) {
	return q.Enqueue(ctx, JobTypeReconcileSubscriptions, struct{}{})
}

// EnqueueArchive queues a document upload.
func (q *Queue) EnqueueArchive(ctx context.Context, key, contentType string, body []byte) (*Job, error) {
	return q.Enqueue(ctx, JobTypeArchiveDocument, ArchiveDocumentPayload{
		Key:         key,
		ContentType: contentType,
		Body:        string(body),
	})
}
