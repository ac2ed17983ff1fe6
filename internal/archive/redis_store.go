package archive

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the run record in a Redis hash keyed per merchant so the
// daily guard and counters survive process restarts.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, merchantID string) *RedisStore {
	return &RedisStore{rdb: rdb, key: "archive:run:" + merchantID}
}

func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Record{}, fmt.Errorf("archive store: load %s: %w", s.key, err)
	}

	var rec Record
	if v := vals["last_run"]; v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Record{}, fmt.Errorf("archive store: parse last_run %q: %w", v, err)
		}
		rec.LastRun = t
	}
	if v := vals["archived"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Record{}, fmt.Errorf("archive store: parse archived %q: %w", v, err)
		}
		rec.Archived = n
	}
	rec.Enabled = vals["enabled"] == "1"
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	fields := map[string]interface{}{
		"archived": strconv.Itoa(rec.Archived),
		"enabled":  boolField(rec.Enabled),
	}
	if !rec.LastRun.IsZero() {
		fields["last_run"] = rec.LastRun.UTC().Format(time.RFC3339)
	}
	if err := s.rdb.HSet(ctx, s.key, fields).Err(); err != nil {
		return fmt.Errorf("archive store: save %s: %w", s.key, err)
	}
	return nil
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
