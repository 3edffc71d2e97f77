package caching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"civreg/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "trl:"

// RevocationStore is a time-bounded set of revoked token keys. Entries disappear
// once their TTL elapses.
type RevocationStore interface {
	Add(ctx context.Context, key string, ttl time.Duration) error
	Contains(ctx context.Context, key string) (bool, error)
	Close() error
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	return nil
}

type redisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore shares the revocation set across API instances.
// The client lifecycle stays with the caller.
func NewRedisRevocationStore(client *redis.Client) RevocationStore {
	return &redisRevocationStore{client: client}
}

func (s *redisRevocationStore) Add(ctx context.Context, key string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return s.client.Set(ctx, revokedTokenKeyPrefix+key, "1", ttl).Err()
}

func (s *redisRevocationStore) Contains(ctx context.Context, key string) (bool, error) {
	defer observe(time.Now())

	_, err := s.client.Get(ctx, revokedTokenKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisRevocationStore) Close() error {
	return nil
}

// MemoryRevocationStore keeps the set in process memory. Expired entries are
// invisible to Contains and are reclaimed by Sweep.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Add(_ context.Context, key string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now().Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) Contains(_ context.Context, key string) (bool, error) {
	defer observe(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	expiry, ok := s.entries[key]
	return ok && s.now().Before(expiry), nil
}

// Sweep drops expired entries and reports how many were removed.
func (s *MemoryRevocationStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryRevocationStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]time.Time)
	return nil
}

func observe(start time.Time) {
	metrics.RevocationCheckDuration.Observe(time.Since(start).Seconds())
}
