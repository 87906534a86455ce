package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestMemory(t *testing.T) *Memory {
	m, err := NewMemory(DefaultMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	r, err := NewRedisCache(context.Background(), RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func exerciseProvider(t *testing.T, p Provider) {
	ctx := context.Background()

	var miss sample
	assert.True(t, IsCacheMiss(p.Get(ctx, "absent", &miss)))

	require.NoError(t, p.Set(ctx, "k", sample{Name: "a", Count: 2}, time.Minute))
	var got sample
	require.NoError(t, p.Get(ctx, "k", &got))
	assert.Equal(t, sample{Name: "a", Count: 2}, got)

	exists, err := p.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, p.Set(ctx, "raw", []byte("bytes"), time.Minute))
	var raw []byte
	require.NoError(t, p.Get(ctx, "raw", &raw))
	assert.Equal(t, "bytes", string(raw))

	require.NoError(t, p.Delete(ctx, "k"))
	exists, err = p.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryProvider(t *testing.T) {
	m := newTestMemory(t)
	assert.Equal(t, "memory", m.Name())
	exerciseProvider(t, m)
}

func TestRedisProvider(t *testing.T) {
	r, _ := newTestRedis(t)
	assert.Equal(t, "redis", r.Name())
	assert.NoError(t, r.Health(context.Background()))
	exerciseProvider(t, r)
}

func TestRedisExpiration(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "short", "v", time.Second))
	mr.FastForward(2 * time.Second)

	var v string
	assert.ErrorIs(t, r.Get(ctx, "short", &v), ErrCacheMiss)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(context.Background(), RedisConfig{Address: addr, DialTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestAddJitter(t *testing.T) {
	assert.Equal(t, time.Duration(0), addJitter(0))
	for i := 0; i < 50; i++ {
		d := addJitter(time.Minute)
		assert.GreaterOrEqual(t, d, time.Minute)
		assert.Less(t, d, time.Minute+6*time.Second)
	}
}

func TestKeyBuilder(t *testing.T) {
	kb := NewKeyBuilder("movie")
	assert.Equal(t, "movie:12", kb.BuildID(uint(12)))
	assert.Equal(t, "movie:a:b", kb.Build("a", "b"))
	assert.Equal(t, "movie", kb.Build())
}
