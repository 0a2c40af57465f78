// Package statestore holds one-time OAuth state nonces so a signed state value
// cannot be replayed across callbacks. The signed state alone already proves the
// value originated here; the store additionally enforces single use.
package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records a nonce with a TTL and consumes it exactly once.
type Store interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Consume removes the nonce and reports whether it was present.
	Consume(ctx context.Context, nonce string) (bool, error)
}

// RedisStore implements Store using Redis so the check holds across
// multiple server instances.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-backed store. The client should be a
// configured Redis client that's ready to use. keyPrefix defaults to
// "oauth_state:" if empty.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "oauth_state:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	return r.client.Set(ctx, r.keyPrefix+nonce, 1, ttl).Err()
}

func (r *RedisStore) Consume(ctx context.Context, nonce string) (bool, error) {
	n, err := r.client.Del(ctx, r.keyPrefix+nonce).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// MemoryStore is a single-process Store for tests and development.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]time.Time{}}
}

func (s *MemoryStore) Put(_ context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// abandoned connects never get consumed, so sweep them out here
	now := time.Now()
	for key, deadline := range s.entries {
		if now.After(deadline) {
			delete(s.entries, key)
		}
	}

	s.entries[nonce] = now.Add(ttl)
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.entries[nonce]
	if !ok {
		return false, nil
	}

	delete(s.entries, nonce)
	if time.Now().After(deadline) {
		return false, nil
	}

	return true, nil
}
