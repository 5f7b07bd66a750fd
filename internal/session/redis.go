package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"resumekit/internal/config"
	"resumekit/internal/resume"
)

const (
	defaultKeyPrefix = "resumekit:session:"
	maxTxAttempts    = 5
)

// RedisStore keeps sessions in redis as JSON with a key TTL
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument redis with OpenTelemetry: %w", err)
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return newRedisStore(client, cfg.KeyPrefix, ttl), nil
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func encode(s *Session) ([]byte, error) {
	return json.Marshal(s)
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	s.Resume.ApplyDefaults()
	if s.Gaps == nil {
		s.Gaps = []resume.Gap{}
	}
	return &s, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load reads a live session through getter, treating stale entries as absent
func (r *RedisStore) load(ctx context.Context, getter stringGetter, id string) (*Session, error) {
	data, err := getter.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	s, err := decode(data)
	if err != nil {
		return nil, err
	}
	if expired(s, r.now(), r.ttl) {
		if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	return r.load(ctx, r.client, id)
}

func (r *RedisStore) Save(ctx context.Context, id string, s *Session) error {
	stored := s.Clone()
	stored.UpdatedAt = r.now()
	data, err := encode(stored)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(id), data, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// watch runs fn in an optimistic transaction on the session key, retrying on conflicts
func (r *RedisStore) watch(ctx context.Context, id string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, fn, r.key(id))
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("session %s: too many concurrent updates", id)
}

func (r *RedisStore) BeginParse(ctx context.Context, id, text string) error {
	return r.watch(ctx, id, func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if current != nil && current.InProgress {
			return ErrParseInProgress
		}

		data, err := encode(newParsing(text, r.now()))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key(id), data, r.ttl)
			return nil
		})
		return err
	})
}

func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	var updated *Session
	err := r.watch(ctx, id, func(tx *redis.Tx) error {
		s, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = r.now()
		data, err := encode(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key(id), data, r.ttl)
			return nil
		})
		updated = s
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
