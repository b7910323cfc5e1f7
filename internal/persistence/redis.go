package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"storefront.chapter42.de/mailer/internal/attemptlog"
)

const DefaultRedisKey string = "mailer:attempt_log"

const maxAppendRetries = 50

// RedisStore keeps the attempt log document under a single key, for
// deployments where several instances should share one audit trail.
// Append watches the key, so concurrent writers retry instead of
// overwriting each other.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// DialRedis connects and pings, so a wrong address is reported at startup.
func DialRedis(ctx context.Context, addr string, db int, key string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}
	return NewRedisStore(rdb, key), nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) Load(ctx context.Context) ([]attemptlog.Entry, error) {
	return s.load(ctx, s.client)
}

func (s *RedisStore) load(ctx context.Context, c getter) ([]attemptlog.Entry, error) {
	raw, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", s.key, err)
	}

	var entries []attemptlog.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: bad attempt log json in %s: %w", attemptlog.ErrCorruptLog, s.key, err)
	}
	return entries, nil
}

// Append adds e inside a WATCH/MULTI transaction. A corrupt document is
// replaced and reported as ErrCorruptLog after the write went through.
func (s *RedisStore) Append(ctx context.Context, e attemptlog.Entry, capacity int) error {
	var corrupt error
	update := func(tx *redis.Tx) error {
		corrupt = nil
		entries, err := s.load(ctx, tx)
		if errors.Is(err, attemptlog.ErrCorruptLog) {
			corrupt = err
			entries = nil
		} else if err != nil {
			return err
		}

		raw, err := json.Marshal(attemptlog.AppendCapped(entries, e, capacity))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, raw, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendRetries; i++ {
		err := s.client.Watch(ctx, update, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis append %s: %w", s.key, err)
		}
		return corrupt
	}
	return fmt.Errorf("redis append %s: gave up after %d retries: %w", s.key, maxAppendRetries, redis.TxFailedErr)
}

func (s *RedisStore) Save(ctx context.Context, entries []attemptlog.Entry) error {
	if entries == nil {
		entries = []attemptlog.Entry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
