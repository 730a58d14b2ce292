package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/cache"
)

// Redis layout. Pending and active are lists of job ids, delayed is a
// sorted set scored by the unix time a retry becomes due.
const (
	RecordPrefix = "agency:job:"
	PendingKey   = "agency:jobs:pending"
	ActiveKey    = "agency:jobs:active"
	DelayedKey   = "agency:jobs:delayed"
	StatsKey     = "agency:jobs:stats"
)

const (
	DefaultMaxAttempts = 4
	RecordTTL          = 24 * time.Hour

	defaultWorkers  = 3
	claimTimeout    = time.Second
	housekeepEvery  = 5 * time.Second
	staleAfter      = 10 * time.Minute
	maxRetryBackoff = 30 * time.Minute
)

// ErrNoRedis is returned by Enqueue when no Redis client is configured.
var ErrNoRedis = errors.New("job queue has no redis client")

// Queue runs jobs from Redis on a fixed number of workers.
type Queue struct {
	client  *redis.Client
	workers int

	mu         sync.Mutex
	processors Processors
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	retryBase time.Duration
	tick      time.Duration
	now       func() time.Time
}

// NewQueue creates a queue on the shared cache client.
func NewQueue(workers int) *Queue {
	return NewQueueWithClient(cache.GetClient(), workers)
}

// NewQueueWithClient creates a queue on an explicit client. Tests use an isolated DB.
func NewQueueWithClient(client *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Queue{
		client:    client,
		workers:   workers,
		retryBase: 30 * time.Second,
		tick:      housekeepEvery,
		now:       time.Now,
	}
}

// SetProcessors wires the services jobs are executed against.
func (q *Queue) SetProcessors(p Processors) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processors = p
}

func (q *Queue) currentProcessors() Processors {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processors
}

// Available reports whether jobs can be enqueued.
func (q *Queue) Available() bool {
	return q != nil && q.client != nil
}

func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancel != nil
}

// Start launches the workers and the housekeeping loop. Without Redis it
// logs and returns.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancel != nil {
		return
	}
	if q.client == nil {
		log.Warn("[JobQueue] No redis client, workers not started")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	log.Infof("[JobQueue] Starting %d workers", q.workers)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	q.wg.Add(1)
	go q.housekeep(ctx)
}

// Stop cancels the loops and waits for jobs in flight.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.cancel = nil
	q.mu.Unlock()

	if cancel == nil {
		return
	}
	log.Info("[JobQueue] Stopping workers...")
	cancel()
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) work(ctx context.Context, n int) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		job, err := q.claim(ctx)
		switch {
		case errors.Is(err, redis.Nil), errors.Is(err, context.Canceled):
			continue
		case err != nil:
			log.Errorf("[JobQueue] Worker %d: claim failed: %v", n, err)
			sleep(ctx, time.Second)
			continue
		}
		// a job that was claimed finishes even during shutdown
		q.run(context.WithoutCancel(ctx), job)
	}
}

// claim moves the next pending id to the active list and loads its record.
func (q *Queue) claim(ctx context.Context) (*Job, error) {
	id, err := q.client.BLMove(ctx, PendingKey, ActiveKey, "RIGHT", "LEFT", claimTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.client.LRem(ctx, ActiveKey, 1, id)
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) run(ctx context.Context, job *Job) {
	job.begin(q.now())
	q.save(ctx, job)
	log.Debugf("[JobQueue] Running %s %s (attempt %d/%d)", job.Type, job.ID, job.Attempts, job.MaxAttempts)

	err := q.execute(ctx, job)
	now := q.now()

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, ActiveKey, 1, job.ID)
	switch {
	case err == nil:
		job.complete(now)
		pipe.Del(ctx, RecordPrefix+job.ID)
		pipe.HIncrBy(ctx, StatsKey, string(JobStatusCompleted), 1)
	case job.fail(err, now, q.backoff(job.Attempts)):
		log.Warnf("[JobQueue] %s %s failed, retry at %s: %v", job.Type, job.ID, job.RetryAt.Format(time.RFC3339), err)
		q.stage(ctx, pipe, job)
		pipe.ZAdd(ctx, DelayedKey, redis.Z{Score: float64(job.RetryAt.Unix()), Member: job.ID})
		pipe.HIncrBy(ctx, StatsKey, string(JobStatusRetrying), 1)
	default:
		log.Errorf("[JobQueue] %s %s failed permanently after %d attempts: %v", job.Type, job.ID, job.Attempts, err)
		q.stage(ctx, pipe, job)
		pipe.HIncrBy(ctx, StatsKey, string(JobStatusFailed), 1)
	}
	if _, perr := pipe.Exec(ctx); perr != nil {
		log.Errorf("[JobQueue] Persisting outcome of %s failed: %v", job.ID, perr)
	}
}

// backoff doubles per attempt and is capped.
func (q *Queue) backoff(attempt int) time.Duration {
	d := q.retryBase
	for i := 1; i < attempt && d < maxRetryBackoff; i++ {
		d *= 2
	}
	if d > maxRetryBackoff {
		d = maxRetryBackoff
	}
	return d
}

// Enqueue stores the record and pushes its id onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, t JobType, payload interface{}) (*Job, error) {
	if !q.Available() {
		return nil, ErrNoRedis
	}
	job, err := newJob(uuid.NewString(), t, payload, DefaultMaxAttempts)
	if err != nil {
		return nil, err
	}

	pipe := q.client.TxPipeline()
	q.stage(ctx, pipe, job)
	pipe.LPush(ctx, PendingKey, job.ID)
	pipe.HIncrBy(ctx, StatsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", t, err)
	}
	log.Debugf("[JobQueue] Enqueued %s %s", t, job.ID)
	return job, nil
}

func (q *Queue) stage(ctx context.Context, pipe redis.Pipeliner, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Encoding job %s failed: %v", job.ID, err)
		return
	}
	pipe.Set(ctx, RecordPrefix+job.ID, data, RecordTTL)
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Encoding job %s failed: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, RecordPrefix+job.ID, data, RecordTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Saving job %s failed: %v", job.ID, err)
	}
}

// GetJob loads a job record by id.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, RecordPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Counters returns the lifetime counters per outcome.
func (q *Queue) Counters(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, StatsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[JobStatus]int64, len(raw))
	for k, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[JobStatus(k)] = n
		}
	}
	return out, nil
}

func (q *Queue) housekeep(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := q.promoteDue(ctx); err != nil {
				log.Errorf("[JobQueue] Promoting delayed jobs failed: %v", err)
			} else if n > 0 {
				log.Debugf("[JobQueue] Promoted %d delayed jobs", n)
			}
			if err := q.recoverStale(ctx); err != nil {
				log.Errorf("[JobQueue] Stale sweep failed: %v", err)
			}
		}
	}
}

// promoteDue moves retries whose time has come back onto the pending list.
func (q *Queue) promoteDue(ctx context.Context) (int, error) {
	max := strconv.FormatInt(q.now().Unix(), 10)
	ids, err := q.client.ZRangeByScore(ctx, DelayedKey, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	moved := 0
	for _, id := range ids {
		// ZRem decides which worker process wins the id
		removed, err := q.client.ZRem(ctx, DelayedKey, id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, PendingKey, id).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// recoverStale requeues active jobs whose worker died mid-run and drops
// ids whose record has expired.
func (q *Queue) recoverStale(ctx context.Context) error {
	ids, err := q.client.LRange(ctx, ActiveKey, 0, -1).Result()
	if err != nil {
		return err
	}
	now := q.now()
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Warnf("[JobQueue] Dropping unreadable active job %s: %v", id, err)
			}
			q.client.LRem(ctx, ActiveKey, 1, id)
			continue
		}
		if !job.stale(now, staleAfter) {
			continue
		}
		log.Warnf("[JobQueue] Requeueing stale %s %s", job.Type, job.ID)
		job.Status = JobStatusPending
		job.LastError = "worker lost"
		job.UpdatedAt = now
		pipe := q.client.TxPipeline()
		q.stage(ctx, pipe, job)
		pipe.LRem(ctx, ActiveKey, 1, id)
		pipe.RPush(ctx, PendingKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
