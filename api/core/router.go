package core

import (
	"github.com/anoixa/image-theatre/api"
	"github.com/anoixa/image-theatre/api/common"
	"github.com/anoixa/image-theatre/api/handler/authors"
	"github.com/anoixa/image-theatre/api/handler/movies"
	"github.com/anoixa/image-theatre/api/middleware"
	"github.com/anoixa/image-theatre/cache"
	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/internal/auth"
	"github.com/anoixa/image-theatre/internal/catalog"
	"github.com/anoixa/image-theatre/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	DB              *gorm.DB
	Catalog         *catalog.Service
	LoginService    *auth.LoginService
	Tokens          middleware.TokenParser
	Storage         storage.Provider
	CacheProvider   cache.Provider
	AuthRateLimiter *middleware.IPRateLimiter
	APIRateLimiter  *middleware.IPRateLimiter
	Config          *config.Config
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	// 基础路由
	registerBasicRoutes(router, deps)

	// API 路由
	registerAPIRoutes(router, deps)
}

// registerBasicRoutes 注册基础路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	healthHandler := NewHealthHandler(deps.DB, deps.Storage, deps.CacheProvider)
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// registerAPIRoutes 注册 API 路由
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies) {
	movieHandler := movies.NewHandler(deps.Catalog)
	authorHandler := authors.NewHandler(deps.Catalog)
	loginHandler := api.NewLoginHandler(deps.LoginService)

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		authGroup := apiGroup.Group("/auth")
		if deps.AuthRateLimiter != nil {
			authGroup.Use(deps.AuthRateLimiter.Middleware())
		}
		{
			authGroup.POST("/login", loginHandler.LoginHandlerFunc)       // POST /api/auth/login
			authGroup.POST("/register", loginHandler.RegisterHandlerFunc) // POST /api/auth/register
		}

		protected := apiGroup.Group("")
		if deps.APIRateLimiter != nil {
			protected.Use(deps.APIRateLimiter.Middleware())
		}
		protected.Use(middleware.CombinedAuth(deps.Tokens))

		readers := middleware.RequireRole(models.RoleAdmin, models.RoleUser)
		writers := middleware.RequireRole(models.RoleAdmin)

		moviesGroup := protected.Group("/movies")
		{
			moviesGroup.GET("", readers, movieHandler.ListMovies)                      // GET /api/movies
			moviesGroup.GET("/:id", readers, movieHandler.GetMovie)                    // GET /api/movies/{id}
			moviesGroup.GET("/:id/attachments", readers, movieHandler.ListAttachments) // GET /api/movies/{id}/attachments
			moviesGroup.GET("/:id/image", readers, movieHandler.GetMovieImage)         // GET /api/movies/{id}/image
			moviesGroup.POST("", writers, movieHandler.CreateMovie)                    // POST /api/movies
			moviesGroup.PUT("/:id", writers, movieHandler.UpdateMovie)                 // PUT /api/movies/{id}
			moviesGroup.DELETE("/:id", writers, movieHandler.DeleteMovie)              // DELETE /api/movies/{id}
		}

		authorsGroup := protected.Group("/authors")
		{
			authorsGroup.GET("", readers, authorHandler.ListAuthors)         // GET /api/authors
			authorsGroup.GET("/:id", readers, authorHandler.GetAuthor)       // GET /api/authors/{id}
			authorsGroup.POST("", writers, authorHandler.CreateAuthor)       // POST /api/authors
			authorsGroup.PUT("/:id", writers, authorHandler.UpdateAuthor)    // PUT /api/authors/{id}
			authorsGroup.DELETE("/:id", writers, authorHandler.DeleteAuthor) // DELETE /api/authors/{id}
		}
	}
}
