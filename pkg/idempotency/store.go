package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the part of *redis.Client the store uses
type Client interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store remembers processed keys for a bounded time.
// Consumers ask Seen before doing work and Mark only once the work succeeded,
// so a failed attempt never hides a redelivery.
type Store struct {
	rdb    Client
	ttl    time.Duration
	prefix string
}

func NewStore(rdb Client, prefix string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, prefix: prefix}
}

// Key namespaces id under the store prefix
func (s *Store) Key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

func (s *Store) Seen(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.Key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Mark(ctx context.Context, id string) error {
	if err := s.rdb.Set(ctx, s.Key(id), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("mark idempotency key: %w", err)
	}
	return nil
}

// Claim takes a short exclusive lease on id. It reports false when another
// holder already owns it.
func (s *Store) Claim(ctx context.Context, id string, lease time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.Key(id)+":lock", "1", lease).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *Store) Release(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.Key(id)+":lock").Err()
}

// CachedResponse is a stored HTTP reply, replayed for a repeated Idempotency-Key
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

func (s *Store) SaveResponse(ctx context.Context, id string, resp CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode cached response: %w", err)
	}
	if err := s.rdb.Set(ctx, s.Key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cached response: %w", err)
	}
	return nil
}

// LoadResponse returns the cached reply for id, or false when there is none
func (s *Store) LoadResponse(ctx context.Context, id string) (*CachedResponse, bool, error) {
	data, err := s.rdb.Get(ctx, s.Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load cached response: %w", err)
	}

	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &resp, true, nil
}
