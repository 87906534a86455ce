package cache

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/utils"
	"golang.org/x/sync/singleflight"
)

const (
	// MovieCachePrefix 影片详情缓存前缀
	MovieCachePrefix = "movie"

	// DefaultMovieCacheExpiration 影片缓存过期时间
	DefaultMovieCacheExpiration = 10 * time.Minute
)

// addJitter 添加随机抖动（0~10%），防止缓存雪崩
func addJitter(duration time.Duration) time.Duration {
	if duration <= 0 {
		return duration
	}
	if spread := int64(duration) / 10; spread > 0 {
		return duration + time.Duration(rand.Int63n(spread))
	}
	return duration
}

// MovieLoader 缓存未命中时的回源函数，返回 nil 表示影片不存在
type MovieLoader func(ctx context.Context) (*models.Movie, error)

// MovieCache 影片详情缓存，同一影片的并发未命中只回源一次
// 每个键带一个代数，Invalidate 时递增；回源期间代数变化的结果不回填
type MovieCache struct {
	provider Provider
	keys     *KeyBuilder
	ttl      time.Duration
	group    singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// NewMovieCache 创建影片缓存，provider 为 nil 时直接回源
func NewMovieCache(provider Provider, ttl time.Duration) *MovieCache {
	if ttl <= 0 {
		ttl = DefaultMovieCacheExpiration
	}
	return &MovieCache{
		provider:    provider,
		keys:        NewKeyBuilder(MovieCachePrefix),
		ttl:         ttl,
		generations: make(map[string]uint64),
	}
}

// Key 返回影片缓存键
func (c *MovieCache) Key(id uint) string {
	return c.keys.BuildID(id)
}

// GetOrLoad 读取影片详情，未命中时回源并回填
func (c *MovieCache) GetOrLoad(ctx context.Context, id uint, load MovieLoader) (*models.Movie, error) {
	if c == nil || c.provider == nil {
		return load(ctx)
	}

	key := c.Key(id)
	var cached models.Movie
	err := c.provider.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !IsCacheMiss(err) {
		log.Printf("[Cache] Failed to read %s: %v", key, err)
	}

	// 回源结果由所有合并的调用方共享，不随首个请求取消
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		loadCtx := utils.DetachedContext(ctx)
		gen := c.generation(key)
		movie, err := load(loadCtx)
		if err != nil || movie == nil {
			return movie, err
		}
		c.fill(loadCtx, key, gen, movie)
		return movie, nil
	})
	if err != nil {
		return nil, err
	}
	movie, _ := v.(*models.Movie)
	return movie, nil
}

// fill 回填缓存；写入前后代数任一变化都说明期间发生过失效，此时放弃回填
func (c *MovieCache) fill(ctx context.Context, key string, gen uint64, movie *models.Movie) {
	if c.generation(key) != gen {
		return
	}
	if err := c.provider.Set(ctx, key, movie, addJitter(c.ttl)); err != nil {
		log.Printf("[Cache] Failed to fill %s: %v", key, err)
		return
	}
	if c.generation(key) != gen {
		if err := c.provider.Delete(ctx, key); err != nil {
			log.Printf("[Cache] Failed to drop stale fill %s: %v", key, err)
		}
	}
}

func (c *MovieCache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key]
}

func (c *MovieCache) bump(key string) {
	c.mu.Lock()
	c.generations[key]++
	c.mu.Unlock()
}

// Invalidate 删除影片缓存
func (c *MovieCache) Invalidate(ctx context.Context, ids ...uint) {
	if c == nil || c.provider == nil {
		return
	}
	for _, id := range ids {
		key := c.Key(id)
		c.bump(key)
		c.group.Forget(key)
		if err := c.provider.Delete(ctx, key); err != nil {
			log.Printf("[Cache] Failed to invalidate %s: %v", key, err)
		}
	}
}

// Name 返回底层缓存名称
func (c *MovieCache) Name() string {
	if c == nil || c.provider == nil {
		return "none"
	}
	return c.provider.Name()
}
