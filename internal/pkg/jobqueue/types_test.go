package jobqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	job, err := newJob("j1", JobTypeSendEmail, SendEmailPayload{Message: testMessage()}, 2)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)

	job.begin(now)
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, 1, job.Attempts)

	again := job.fail(errors.New("smtp timeout"), now, time.Minute)
	assert.True(t, again)
	assert.Equal(t, JobStatusRetrying, job.Status)
	assert.Equal(t, "smtp timeout", job.LastError)
	require.NotNil(t, job.RetryAt)
	assert.Equal(t, now.Add(time.Minute), *job.RetryAt)

	job.begin(now.Add(time.Minute))
	assert.Nil(t, job.RetryAt)
	assert.False(t, job.fail(errors.New("still down"), now, time.Minute), "attempts exhausted")
	assert.Equal(t, JobStatusFailed, job.Status)

	job.complete(now)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.LastError)
}

func TestJobStale(t *testing.T) {
	now := time.Now()
	started := now.Add(-11 * time.Minute)

	assert.True(t, (&Job{Status: JobStatusProcessing, StartedAt: &started}).stale(now, staleAfter))
	assert.False(t, (&Job{Status: JobStatusProcessing, StartedAt: &now}).stale(now, staleAfter))
	assert.False(t, (&Job{Status: JobStatusRetrying, StartedAt: &started}).stale(now, staleAfter))
	assert.True(t, (&Job{Status: JobStatusProcessing, UpdatedAt: started}).stale(now, staleAfter), "falls back to UpdatedAt")
}

func TestDecodePayload(t *testing.T) {
	job, err := newJob("j2", JobTypeSubscriptionSync, SubscriptionSyncPayload{Kind: "subscription", SubscriptionID: 42}, 1)
	require.NoError(t, err)

	p, err := Decode[SubscriptionSyncPayload](job)
	require.NoError(t, err)
	assert.Equal(t, "subscription", p.Kind)
	assert.Equal(t, uint(42), p.SubscriptionID)

	empty, err := Decode[ArchiveDocumentPayload](&Job{Type: JobTypeArchiveDocument})
	require.NoError(t, err)
	assert.Empty(t, empty.Key)

	_, err = Decode[SendEmailPayload](&Job{Type: JobTypeSendEmail, Payload: []byte(`"not an object"`)})
	assert.Error(t, err)
}
