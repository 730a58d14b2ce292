package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/cache"
)

var errNoRedis = errors.New("redis client not initialized")

const scanBatch = 500

// queueRepository reads the job queue keys straight from redis.
type queueRepository struct {
	client func() *redis.Client
}

func NewQueueRepository() QueueRepository {
	return &queueRepository{client: cache.GetClient}
}

func (r *queueRepository) redis() (*redis.Client, error) {
	c := r.client()
	if c == nil {
		return nil, errNoRedis
	}
	return c, nil
}

func (r *queueRepository) Sizes(ctx context.Context, keys ...string) (map[string]int64, error) {
	rdb, err := r.redis()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(keys))
	for _, key := range keys {
		n, err := r.size(ctx, rdb, key)
		if err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, nil
}

func (r *queueRepository) size(ctx context.Context, rdb *redis.Client, key string) (int64, error) {
	typ, err := rdb.Type(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	switch typ {
	case "list":
		return rdb.LLen(ctx, key).Result()
	case "zset":
		return rdb.ZCard(ctx, key).Result()
	default:
		return 0, nil
	}
}

// members lists the ids held by a list or sorted set key.
func (r *queueRepository) members(ctx context.Context, rdb *redis.Client, key string) ([]string, error) {
	typ, err := rdb.Type(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	switch typ {
	case "list":
		return rdb.LRange(ctx, key, 0, -1).Result()
	case "zset":
		return rdb.ZRange(ctx, key, 0, -1).Result()
	default:
		return nil, nil
	}
}

// Counters reads a hash of int64 counters; non-numeric fields are skipped.
func (r *queueRepository) Counters(ctx context.Context, key string) (map[string]int64, error) {
	rdb, err := r.redis()
	if err != nil {
		return nil, err
	}
	raw, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

func (r *queueRepository) PurgeOrphans(ctx context.Context, prefix string, live ...string) (int64, error) {
	rdb, err := r.redis()
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{})
	for _, key := range live {
		ids, err := r.members(ctx, rdb, key)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			keep[prefix+id] = struct{}{}
		}
	}

	var (
		cursor  uint64
		batch   []string
		deleted int64
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := rdb.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		for _, key := range keys {
			if _, ok := keep[key]; ok || !strings.HasPrefix(key, prefix) {
				continue
			}
			batch = append(batch, key)
		}
		if len(batch) >= scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, flush()
}
