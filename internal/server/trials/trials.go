// Package trials tracks which client addresses have spent the free
// restoration trial. Claims expire after a TTL.
package trials

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store answers whether the trial is still free for an address and records
// claims. Claim reports true only for the call that took the trial.
type Store interface {
	Available(ctx context.Context, ip string) (bool, error)
	Claim(ctx context.Context, ip string) (bool, error)
}

const keyPrefix = "trial:"

func key(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return keyPrefix + ip
}

// redisClient is the part of *redis.Client the store relies on.
type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps claims as SETNX keys that expire after ttl.
type RedisStore struct {
	rdb redisClient
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb redisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Available(ctx context.Context, ip string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key(ip)).Result()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *RedisStore) Claim(ctx context.Context, ip string) (bool, error) {
	return s.rdb.SetNX(ctx, key(ip), s.now().UTC().Format(time.RFC3339), s.ttl).Result()
}

// MemoryStore is the single-instance fallback used when no Redis address is
// configured. Claims do not survive a restart.
type MemoryStore struct {
	mu     sync.Mutex
	claims map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{claims: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Available(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.claimedLocked(key(ip)), nil
}

func (s *MemoryStore) Claim(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(ip)
	if s.claimedLocked(k) {
		return false, nil
	}
	s.claims[k] = s.now().Add(s.ttl)
	return true, nil
}

func (s *MemoryStore) claimedLocked(k string) bool {
	exp, ok := s.claims[k]
	if !ok {
		return false
	}
	if !s.now().Before(exp) {
		delete(s.claims, k)
		return false
	}
	return true
}
