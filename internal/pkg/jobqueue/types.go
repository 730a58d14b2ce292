package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
)

type JobType string

const (
	JobTypeSendEmail              JobType = "send_email"
	JobTypeSubscriptionSync       JobType = "subscription_sync"
	JobTypeReconcileSubscriptions JobType = "reconcile_subscriptions"
	JobTypeArchiveDocument        JobType = "archive_document"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is the record stored under RecordPrefix+ID while the job is alive.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	RetryAt     *time.Time      `json:"retry_at,omitempty"`
}

func newJob(id string, t JobType, payload interface{}, maxAttempts int) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	now := time.Now()
	return &Job{
		ID:          id,
		Type:        t,
		Status:      JobStatusPending,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Decode unmarshals the payload into T.
func Decode[T any](j *Job) (*T, error) {
	var out T
	if len(j.Payload) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(j.Payload, &out); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", j.Type, err)
	}
	return &out, nil
}

func (j *Job) begin(now time.Time) {
	j.Status = JobStatusProcessing
	j.Attempts++
	j.StartedAt = &now
	j.RetryAt = nil
	j.UpdatedAt = now
}

func (j *Job) complete(now time.Time) {
	j.Status = JobStatusCompleted
	j.LastError = ""
	j.UpdatedAt = now
}

// fail records err and, while attempts remain, schedules the next try
// after backoff. It reports whether the job will run again.
func (j *Job) fail(err error, now time.Time, backoff time.Duration) bool {
	j.LastError = err.Error()
	j.UpdatedAt = now
	if j.Attempts >= j.MaxAttempts {
		j.Status = JobStatusFailed
		return false
	}
	at := now.Add(backoff)
	j.Status = JobStatusRetrying
	j.RetryAt = &at
	return true
}

// stale reports whether a processing job has run longer than maxAge.
func (j *Job) stale(now time.Time, maxAge time.Duration) bool {
	if j.Status != JobStatusProcessing {
		return false
	}
	started := j.UpdatedAt
	if j.StartedAt != nil {
		started = *j.StartedAt
	}
	return now.Sub(started) > maxAge
}

type SendEmailPayload struct {
	Message mail.Message `json:"message"`
}

// SubscriptionSyncPayload points at a row whose pending remote change
// should be replayed.
type SubscriptionSyncPayload struct {
	Kind           string `json:"kind"`
	SubscriptionID uint   `json:"subscription_id"`
}

type ArchiveDocumentPayload struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}
