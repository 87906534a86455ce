package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anoixa/image-theatre/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovieCacheGetOrLoad(t *testing.T) {
	c := NewMovieCache(newTestMemory(t), time.Minute)
	ctx := context.Background()

	var loads int32
	load := func(ctx context.Context) (*models.Movie, error) {
		atomic.AddInt32(&loads, 1)
		return &models.Movie{ID: 1, MovieTitle: "Heat"}, nil
	}

	m, err := c.GetOrLoad(ctx, 1, load)
	require.NoError(t, err)
	assert.Equal(t, "Heat", m.MovieTitle)

	m, err = c.GetOrLoad(ctx, 1, load)
	require.NoError(t, err)
	assert.Equal(t, "Heat", m.MovieTitle)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	c.Invalidate(ctx, 1)
	_, err = c.GetOrLoad(ctx, 1, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestMovieCacheDoesNotCacheMissingOrErrors(t *testing.T) {
	c := NewMovieCache(newTestMemory(t), time.Minute)
	ctx := context.Background()

	var loads int32
	missing := func(ctx context.Context) (*models.Movie, error) {
		atomic.AddInt32(&loads, 1)
		return nil, nil
	}
	for i := 0; i < 2; i++ {
		m, err := c.GetOrLoad(ctx, 9, missing)
		require.NoError(t, err)
		assert.Nil(t, m)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))

	boom := errors.New("db down")
	_, err := c.GetOrLoad(ctx, 9, func(ctx context.Context) (*models.Movie, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

// 并发未命中只回源一次
func TestMovieCacheCollapsesConcurrentMisses(t *testing.T) {
	c := NewMovieCache(newTestMemory(t), time.Minute)
	ctx := context.Background()

	var loads int32
	release := make(chan struct{})
	load := func(ctx context.Context) (*models.Movie, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return &models.Movie{ID: 3}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := c.GetOrLoad(ctx, 3, load)
			assert.NoError(t, err)
			assert.Equal(t, uint(3), m.ID)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestMovieCacheWithoutProvider(t *testing.T) {
	c := NewMovieCache(nil, 0)
	var loads int
	for i := 0; i < 2; i++ {
		_, err := c.GetOrLoad(context.Background(), 1, func(ctx context.Context) (*models.Movie, error) {
			loads++
			return &models.Movie{ID: 1}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, loads)
	c.Invalidate(context.Background(), 1)
	assert.Equal(t, "none", c.Name())
}

// 回源期间发生失效时，回源结果不写入缓存
func TestMovieCacheSkipsFillInvalidatedDuringLoad(t *testing.T) {
	c := NewMovieCache(newTestMemory(t), time.Minute)
	ctx := context.Background()

	var loads int32
	loaded := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context) (*models.Movie, error) {
		atomic.AddInt32(&loads, 1)
		close(loaded)
		<-release
		return &models.Movie{ID: 5, MovieTitle: "old"}, nil
	}

	done := make(chan *models.Movie, 1)
	go func() {
		m, err := c.GetOrLoad(ctx, 5, slow)
		assert.NoError(t, err)
		done <- m
	}()
	<-loaded
	c.Invalidate(ctx, 5)
	close(release)
	assert.Equal(t, "old", (<-done).MovieTitle)

	exists, err := c.provider.Exists(ctx, c.Key(5))
	require.NoError(t, err)
	assert.False(t, exists)

	m, err := c.GetOrLoad(ctx, 5, func(ctx context.Context) (*models.Movie, error) {
		atomic.AddInt32(&loads, 1)
		return &models.Movie{ID: 5, MovieTitle: "new"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", m.MovieTitle)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

// 首个调用方取消请求不影响合并等待的其他调用方
func TestMovieCacheLoadOutlivesFirstCaller(t *testing.T) {
	c := NewMovieCache(newTestMemory(t), time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	load := func(ctx context.Context) (*models.Movie, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &models.Movie{ID: 6, MovieTitle: "Ran"}, nil
	}

	first, cancel := context.WithCancel(context.Background())
	results := make(chan error, 2)
	go func() {
		_, err := c.GetOrLoad(first, 6, load)
		results <- err
	}()
	<-started
	go func() {
		m, err := c.GetOrLoad(context.Background(), 6, load)
		if err == nil && m.MovieTitle != "Ran" {
			err = errors.New("unexpected movie")
		}
		results <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(release)

	assert.NoError(t, <-results)
	assert.NoError(t, <-results)
}
