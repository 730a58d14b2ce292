package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueDefaults(t *testing.T) {
	assert.Equal(t, 5, NewQueueWithClient(nil, 5).workers)
	assert.Equal(t, defaultWorkers, NewQueueWithClient(nil, 0).workers)
	assert.Equal(t, defaultWorkers, NewQueueWithClient(nil, -1).workers)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	q := NewQueueWithClient(nil, 1)
	q.retryBase = time.Minute

	assert.Equal(t, time.Minute, q.backoff(1))
	assert.Equal(t, 2*time.Minute, q.backoff(2))
	assert.Equal(t, 4*time.Minute, q.backoff(3))
	assert.Equal(t, maxRetryBackoff, q.backoff(20))
}

func TestQueueWithoutRedis(t *testing.T) {
	q := NewQueueWithClient(nil, 1)
	assert.False(t, q.Available())

	_, err := q.EnqueueSendEmail(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrNoRedis)

	q.Start()
	assert.False(t, q.Running())
	q.Stop()
}

func TestQueue_DeliversEmailThroughRedis(t *testing.T) {
	q := NewQueueWithClient(testRedis(t), 1)
	sender := &captureSender{}
	q.SetProcessors(Processors{Mail: sender})
	q.Start()
	defer q.Stop()

	d := NewMailDispatcher(q, nil)
	require.NoError(t, d.Dispatch(context.Background(), testMessage()))

	assert.True(t, waitFor(func() bool { return sender.count() == 1 }, 5*time.Second))
	assert.True(t, waitFor(func() bool {
		counters, err := q.Counters(context.Background())
		return err == nil && counters[JobStatusCompleted] == 1
	}, 2*time.Second))
}

func TestQueue_FailedJobIsRetriedFromDelayedSet(t *testing.T) {
	client := testRedis(t)
	q := NewQueueWithClient(client, 1)
	q.retryBase = 100 * time.Millisecond
	q.tick = 50 * time.Millisecond
	sender := &captureSender{err: errors.New("postmark 500")}
	q.SetProcessors(Processors{Mail: sender})

	job, err := q.EnqueueSendEmail(context.Background(), testMessage())
	require.NoError(t, err)

	q.Start()
	defer q.Stop()

	assert.True(t, waitFor(func() bool {
		stored, err := q.GetJob(context.Background(), job.ID)
		return err == nil && stored.Status == JobStatusRetrying
	}, 5*time.Second))

	sender.setErr(nil)
	assert.True(t, waitFor(func() bool { return sender.count() == 1 }, 5*time.Second))
	assert.True(t, waitFor(func() bool {
		n, err := client.Exists(context.Background(), RecordPrefix+job.ID).Result()
		return err == nil && n == 0
	}, 2*time.Second), "completed records are removed")
}

func TestQueue_PromoteDueOnlyMovesDueRetries(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := NewQueueWithClient(client, 1)
	q.now = func() time.Time { return now }

	require.NoError(t, client.ZAdd(ctx, DelayedKey,
		redisZ(now.Add(-time.Second), "due"),
		redisZ(now.Add(time.Hour), "later"),
	).Err())

	n, err := q.promoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := client.LRange(ctx, PendingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"due"}, pending)
	left, err := client.ZRange(ctx, DelayedKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"later"}, left)
}

func TestQueue_RecoverStaleRequeuesLostJobs(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()
	now := time.Now()
	q := NewQueueWithClient(client, 1)

	lost, err := newJob("lost", JobTypeReconcileSubscriptions, struct{}{}, 3)
	require.NoError(t, err)
	lost.begin(now.Add(-time.Hour))
	fresh, err := newJob("fresh", JobTypeReconcileSubscriptions, struct{}{}, 3)
	require.NoError(t, err)
	fresh.begin(now)
	q.save(ctx, lost)
	q.save(ctx, fresh)
	require.NoError(t, client.LPush(ctx, ActiveKey, "lost", "fresh", "expired").Err())

	require.NoError(t, q.recoverStale(ctx))

	active, err := client.LRange(ctx, ActiveKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, active)
	pending, err := client.LRange(ctx, PendingKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"lost"}, pending)

	stored, err := q.GetJob(ctx, "lost")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}
