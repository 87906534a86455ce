package core

import (
	"net/http"
	"time"

	"github.com/anoixa/image-theatre/api/middleware"
	"github.com/anoixa/image-theatre/cache"
	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/internal/auth"
	"github.com/anoixa/image-theatre/internal/catalog"
	"github.com/anoixa/image-theatre/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// multipart 表单字段的额外余量
const multipartOverhead = 1 << 20

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	DB            *gorm.DB
	Catalog       *catalog.Service
	LoginService  *auth.LoginService
	Tokens        middleware.TokenParser
	Storage       storage.Provider
	CacheProvider cache.Provider
	Config        *config.Config
}

// NewRouter 创建 gin 引擎并注册全部中间件与路由
func NewRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsDevelopment() {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	_ = router.SetTrustedProxies(nil)

	// 限制 multipart 内存占用
	router.MaxMultipartMemory = cfg.UploadMaxBytes() + multipartOverhead

	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 100
	}
	router.Use(middleware.NewConcurrencyLimiter(maxConcurrency).Middleware())

	// 请求ID追踪
	router.Use(middleware.RequestID())

	// 基础监控指标
	router.Use(middleware.Metrics())

	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
	}

	RegisterRoutes(router, &RouterDependencies{
		DB:              deps.DB,
		Catalog:         deps.Catalog,
		LoginService:    deps.LoginService,
		Tokens:          deps.Tokens,
		Storage:         deps.Storage,
		CacheProvider:   deps.CacheProvider,
		AuthRateLimiter: authRateLimiter,
		APIRateLimiter:  apiRateLimiter,
		Config:          cfg,
	})

	return router, cleanup
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	origins := cfg.CORSAllowOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		return corsCfg
	}
	corsCfg.AllowOrigins = origins
	corsCfg.AllowCredentials = true
	return corsCfg
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
