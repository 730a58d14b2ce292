package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
)

func mustJob(t *testing.T, typ JobType, payload interface{}) *Job {
	t.Helper()
	job, err := newJob("j-"+string(typ), typ, payload, DefaultMaxAttempts)
	require.NoError(t, err)
	return job
}

type captureArchive struct {
	enabled bool
	keys    []string
}

func (a *captureArchive) Enabled() bool { return a.enabled }

func (a *captureArchive) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	a.keys = append(a.keys, key)
	return "s3://bucket/" + key, nil
}

type countingReconciler struct{ runs int }

func (r *countingReconciler) Run(context.Context) (*subscriptions.Report, error) {
	r.runs++
	return &subscriptions.Report{Checked: 2}, nil
}

func TestExecuteSendEmail(t *testing.T) {
	q := NewQueueWithClient(nil, 1)
	sender := &captureSender{}
	q.SetProcessors(Processors{Mail: sender})

	job := mustJob(t, JobTypeSendEmail, SendEmailPayload{Message: testMessage()})
	require.NoError(t, q.execute(context.Background(), job))
	assert.Equal(t, 1, sender.count())

	q.SetProcessors(Processors{})
	assert.ErrorIs(t, q.execute(context.Background(), job), errNoProcessor)
}

func TestExecuteSubscriptionSync(t *testing.T) {
	q := NewQueueWithClient(nil, 1)
	replayer := &captureReplayer{}
	q.SetProcessors(Processors{Sync: replayer})

	job := mustJob(t, JobTypeSubscriptionSync, SubscriptionSyncPayload{Kind: "automation_subscription", SubscriptionID: 3})
	require.NoError(t, q.execute(context.Background(), job))
	assert.Equal(t, []string{"automation_subscription"}, replayer.calls)

	replayer.err = subscriptions.ErrNotFound
	assert.NoError(t, q.execute(context.Background(), job), "deleted rows are not retried")

	replayer.err = errors.New("stripe down")
	assert.Error(t, q.execute(context.Background(), job))

	bad := mustJob(t, JobTypeSubscriptionSync, SubscriptionSyncPayload{Kind: "invoice", SubscriptionID: 1})
	assert.NoError(t, q.execute(context.Background(), bad))
}

func TestExecuteArchiveAndReconcile(t *testing.T) {
	q := NewQueueWithClient(nil, 1)
	arch := &captureArchive{}
	rec := &countingReconciler{}
	q.SetProcessors(Processors{Archive: arch, Reconcile: rec})

	doc := mustJob(t, JobTypeArchiveDocument, ArchiveDocumentPayload{Key: "prompts/a.md", Body: "# A"})
	require.NoError(t, q.execute(context.Background(), doc))
	assert.Empty(t, arch.keys, "disabled archive skips uploads")

	arch.enabled = true
	require.NoError(t, q.execute(context.Background(), doc))
	assert.Equal(t, []string{"prompts/a.md"}, arch.keys)

	require.NoError(t, q.execute(context.Background(), mustJob(t, JobTypeReconcileSubscriptions, struct{}{})))
	assert.Equal(t, 1, rec.runs)

	assert.Error(t, q.execute(context.Background(), mustJob(t, JobType("resize_image"), struct{}{})))
}

func TestMailDispatcher_FallsBackWithoutRedis(t *testing.T) {
	sender := &captureSender{}
	d := NewMailDispatcher(NewQueueWithClient(nil, 1), sender)

	require.NoError(t, d.Dispatch(context.Background(), testMessage()))
	assert.Equal(t, 1, sender.count())

	err := d.Dispatch(context.Background(), mail.Message{Subject: "no recipient"})
	assert.ErrorIs(t, err, mail.ErrInvalidMessage)
}
