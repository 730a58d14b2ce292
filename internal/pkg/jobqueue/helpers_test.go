package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/env"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/mail"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/subscriptions"
)

// Redis DB reserved for these tests; it is flushed before and after use.
const testRedisDB = 14

// testRedis connects to CACHE_HOST:CACHE_PORT (default localhost:6379) or
// skips the test when nothing answers.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     env.GetEnv("CACHE_HOST", "localhost") + ":" + env.GetEnv("CACHE_PORT", "6379"),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       testRedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not reachable: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("flush redis db %d: %v", testRedisDB, err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

type captureSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type captureReplayer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *captureReplayer) ReplayPending(_ context.Context, kind subscriptions.Kind, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, string(kind))
	return r.err
}

func waitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func testMessage() mail.Message {
	return mail.Message{To: "klant@test.nl", Subject: "Bevestiging", HTML: "<p>ok</p>", Tag: mail.TagContactAck}
}

func redisZ(at time.Time, id string) redis.Z {
	return redis.Z{Score: float64(at.Unix()), Member: id}
}
