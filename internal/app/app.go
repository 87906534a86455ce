package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-theatre/cache"
	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/database/repo/accounts"
	"github.com/anoixa/image-theatre/database/repo/attachments"
	"github.com/anoixa/image-theatre/database/repo/authors"
	"github.com/anoixa/image-theatre/database/repo/movies"
	"github.com/anoixa/image-theatre/internal/auth"
	"github.com/anoixa/image-theatre/internal/catalog"
	"github.com/anoixa/image-theatre/internal/files"
	"github.com/anoixa/image-theatre/storage"
	"github.com/anoixa/image-theatre/utils"
	"gorm.io/gorm"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config        *config.Config
	db            *gorm.DB
	storage       storage.Provider
	cacheProvider cache.Provider

	fileStore    *files.Store
	movieCache   *cache.MovieCache
	catalog      *catalog.Service
	jwtService   *auth.JWTService
	loginService *auth.LoginService

	AccountsRepo    *accounts.Repository
	MoviesRepo      *movies.Repository
	AuthorsRepo     *authors.Repository
	AttachmentsRepo *attachments.Repository
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 依次初始化数据库与服务
func (c *Container) Init(ctx context.Context) error {
	if err := c.InitDatabase(); err != nil {
		return err
	}
	if err := c.InitServices(ctx); err != nil {
		return err
	}
	return nil
}

// InitDatabase 建立数据库连接并创建仓库
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing DI container...")

	db, err := database.NewDB(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db

	c.initRepositories()

	utils.LogIfDev("Database initialized")
	return nil
}

// AutoMigrate 同步表结构
func (c *Container) AutoMigrate() error {
	if c.db == nil {
		return errors.New("database is not initialized")
	}
	return database.AutoMigrate(c.db)
}

// InitStorage 初始化存储与文件存储，clean 命令只需要这一部分
func (c *Container) InitStorage(ctx context.Context) error {
	if c.fileStore != nil {
		return nil
	}
	provider, err := storage.NewProvider(ctx, c.config)
	if err != nil {
		return err
	}
	c.storage = provider
	c.fileStore = files.NewStore(provider)
	return nil
}

// InitServices 初始化存储、缓存、目录服务与认证服务
func (c *Container) InitServices(ctx context.Context) error {
	if c.db == nil {
		return errors.New("database is not initialized")
	}

	if err := c.InitStorage(ctx); err != nil {
		return err
	}

	cacheProvider, err := cache.NewProvider(ctx, c.config)
	if err != nil {
		return err
	}
	c.cacheProvider = cacheProvider
	c.movieCache = cache.NewMovieCache(cacheProvider, c.config.CacheMovieTTL)

	c.catalog = catalog.NewService(
		c.MoviesRepo,
		c.AuthorsRepo,
		c.AttachmentsRepo,
		c.fileStore,
		c.movieCache,
		catalog.Options{
			MaxUploadBytes:    c.config.UploadMaxBytes(),
			AllowedExtensions: c.config.AllowedExtensions(),
		},
	)

	jwtService, err := auth.NewJWTService(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	c.jwtService = jwtService
	c.loginService = auth.NewLoginService(c.AccountsRepo, jwtService)

	utils.LogIfDev("DI container initialized successfully")
	return nil
}

// initRepositories 初始化所有仓库
func (c *Container) initRepositories() {
	c.AccountsRepo = accounts.NewRepository(c.db)
	c.MoviesRepo = movies.NewRepository(c.db)
	c.AuthorsRepo = authors.NewRepository(c.db)
	c.AttachmentsRepo = attachments.NewRepository(c.db)
	utils.LogIfDev("Repositories initialized")
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Storage 获取存储提供者
func (c *Container) Storage() storage.Provider {
	return c.storage
}

// CacheProvider 获取缓存提供者
func (c *Container) CacheProvider() cache.Provider {
	return c.cacheProvider
}

// FileStore 获取文件存储
func (c *Container) FileStore() *files.Store {
	return c.fileStore
}

// MovieCache 获取影片缓存
func (c *Container) MovieCache() *cache.MovieCache {
	return c.movieCache
}

// Catalog 获取目录服务
func (c *Container) Catalog() *catalog.Service {
	return c.catalog
}

// JWTService 获取 JWT 服务
func (c *Container) JWTService() *auth.JWTService {
	return c.jwtService
}

// LoginService 获取登录服务
func (c *Container) LoginService() *auth.LoginService {
	return c.loginService
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// Close 关闭所有服务
func (c *Container) Close() error {
	utils.LogIfDev("Closing DI container...")

	var errs []error
	if c.cacheProvider != nil {
		if err := c.cacheProvider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if c.db != nil {
		if err := database.Close(c.db); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	utils.LogIfDev("DI container closed")
	return errors.Join(errs...)
}
