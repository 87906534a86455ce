package cache

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-theatre/config"
)

// NewProvider 按配置创建缓存提供者
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	cacheType := cfg.CacheType
	if cacheType == "" {
		cacheType = "memory"
	}

	var (
		provider Provider
		err      error
	)
	switch cacheType {
	case "memory":
		provider, err = NewMemory(DefaultMemoryConfig())
	case "redis":
		provider, err = NewRedisCache(ctx, RedisConfig{
			Address:  cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
		})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s cache: %w", cacheType, err)
	}

	log.Printf("[Cache] Cache provider '%s' initialized", provider.Name())
	return provider, nil
}
