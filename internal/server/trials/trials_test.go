package trials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	keys   map[string]time.Duration
	err    error
	setNXs []string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{keys: map[string]time.Duration{}} }

func (f *fakeRedis) SetNX(_ context.Context, key string, _ any, exp time.Duration) *redis.BoolCmd {
	f.setNXs = append(f.setNXs, key)
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore_ClaimOnce(t *testing.T) {
	rdb := newFakeRedis()
	s := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	ok, err := s.Available(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	claimed, err := s.Claim(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, time.Hour, rdb.keys["trial:10.0.0.1"])

	claimed, err = s.Claim(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, claimed)

	ok, err = s.Available(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Available(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_EmptyAddressSharesUnknownKey(t *testing.T) {
	rdb := newFakeRedis()
	s := NewRedisStore(rdb, time.Hour)

	_, err := s.Claim(context.Background(), " ")
	require.NoError(t, err)
	assert.Equal(t, []string{"trial:unknown"}, rdb.setNXs)
}

func TestRedisStore_Errors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("redis down")
	s := NewRedisStore(rdb, time.Hour)

	_, err := s.Available(context.Background(), "10.0.0.1")
	assert.EqualError(t, err, "redis down")

	_, err = s.Claim(context.Background(), "10.0.0.1")
	assert.EqualError(t, err, "redis down")
}

func TestMemoryStore_ClaimExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	claimed, err := s.Claim(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, _ = s.Claim(ctx, "10.0.0.1")
	assert.False(t, claimed)

	ok, _ := s.Available(ctx, "10.0.0.1")
	assert.False(t, ok)

	now = now.Add(time.Hour)
	ok, _ = s.Available(ctx, "10.0.0.1")
	assert.True(t, ok)

	claimed, _ = s.Claim(ctx, "10.0.0.1")
	assert.True(t, claimed)
}
