package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/image-theatre/cache"
	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var startTime = time.Now()

const healthCheckTimeout = 3 * time.Second

// healthChecker 可选的健康检查能力，Redis 缓存实现了它
type healthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db      *gorm.DB
	storage storage.Provider
	cache   cache.Provider
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(db *gorm.DB, storageProvider storage.Provider, cacheProvider cache.Provider) *HealthHandler {
	return &HealthHandler{db: db, storage: storageProvider, cache: cacheProvider}
}

// Handle GET /health
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{
		"database": checkDatabaseHealth(ctx, h.db),
		"cache":    checkCacheHealth(ctx, h.cache),
		"storage":  checkStorageHealth(ctx, h.storage),
	}

	status := "ok"
	httpStatus := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"version": config.Version,
		"checks":  checks,
	})
}

func checkDatabaseHealth(ctx context.Context, db *gorm.DB) string {
	if db == nil {
		return "not initialized"
	}
	sqlDB, err := db.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if checker, ok := provider.(healthChecker); ok {
		if err := checker.Health(ctx); err != nil {
			return "unavailable: " + err.Error()
		}
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
