package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/repowatch/repowatch/internal/types"
)

const (
	scanKeyPrefix  = "repowatch:scan:"  // record JSON: repowatch:scan:{id}
	scanIndexKey   = "repowatch:scans"  // sorted set of IDs scored by timestamp (ms)
	totalsKey      = "repowatch:totals" // hash of running counters
	sevFieldPrefix = "sev:"
)

// RedisStore keeps each record as a JSON string, a sorted-set index for
// listing and a hash of running totals.
type RedisStore struct {
	client *redis.Client
}

// OpenRedisStore parses a redis:// URL (default redis://localhost:6379/0) and
// pings the server.
func OpenRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(client), nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) scanKey(id string) string { return scanKeyPrefix + id }

func (s *RedisStore) Save(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	// Replacing an existing ID must not double count.
	if old, err := s.Get(ctx, rec.ID); err == nil {
		if err := s.Delete(ctx, old.ID); err != nil {
			return Record{}, err
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.scanKey(rec.ID), data, 0)
	pipe.ZAdd(ctx, scanIndexKey, redis.Z{Score: float64(rec.Timestamp.UnixMilli()), Member: rec.ID})
	pipe.HIncrBy(ctx, totalsKey, "scans", 1)
	pipe.HIncrBy(ctx, totalsKey, "findings", int64(len(rec.Findings)))
	for sev, n := range rec.SeverityCounts {
		pipe.HIncrBy(ctx, totalsKey, sevFieldPrefix+string(sev), int64(n))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return Record{}, fmt.Errorf("failed to save record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Record, error) {
	data, err := s.client.Get(ctx, s.scanKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	ids, err := s.client.ZRevRange(ctx, scanIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	out := make([]Record, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.scanKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Index entry without a value; the record was deleted concurrently.
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, rec)
	}
	// Scores have millisecond resolution.
	sortNewestFirst(out)
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.scanKey(id))
	pipe.ZRem(ctx, scanIndexKey, id)
	pipe.HIncrBy(ctx, totalsKey, "scans", -1)
	pipe.HIncrBy(ctx, totalsKey, "findings", -int64(len(rec.Findings)))
	for sev, n := range rec.SeverityCounts {
		pipe.HIncrBy(ctx, totalsKey, sevFieldPrefix+string(sev), -int64(n))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *RedisStore) Totals(ctx context.Context) (Totals, error) {
	fields, err := s.client.HGetAll(ctx, totalsKey).Result()
	if err != nil {
		return Totals{}, fmt.Errorf("failed to read totals: %w", err)
	}
	t := emptyTotals()
	for k, v := range fields {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch {
		case k == "scans":
			t.Scans = n
		case k == "findings":
			t.Findings = n
		case strings.HasPrefix(k, sevFieldPrefix):
			if n != 0 {
				t.BySeverity[types.Severity(strings.TrimPrefix(k, sevFieldPrefix))] = n
			}
		}
	}
	return t, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
