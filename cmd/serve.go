package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/image-theatre/api/core"
	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/internal/app"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()
	ctx := context.Background()

	container := app.NewContainer(cfg)

	if err := container.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	InitDatabase(ctx, container)

	if err := container.InitServices(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// 创建服务器依赖
	deps := &core.ServerDependencies{
		DB:            container.DB(),
		Catalog:       container.Catalog(),
		LoginService:  container.LoginService(),
		Tokens:        container.JWTService(),
		Storage:       container.Storage(),
		CacheProvider: container.CacheProvider(),
		Config:        cfg,
	}

	// 启动gin
	server, cleanup := core.StartServer(deps)
	go func() {
		log.Printf("Server started on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if cleanup != nil {
		cleanup()
		log.Println("Cleanup tasks finished.")
	}

	// 关闭 DI 容器
	if err := container.Close(); err != nil {
		log.Printf("Error closing container: %v", err)
	}

	log.Println("Server exited successfully")
}

// InitDatabase 同步表结构并创建默认管理员
func InitDatabase(ctx context.Context, container *app.Container) {
	log.Printf("Initializing database, database type: %s", container.DB().Dialector.Name())

	// 自动DDL
	if err := container.AutoMigrate(); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	// 创建默认管理员用户
	password, err := container.AccountsRepo.CreateDefaultAdminUser(ctx)
	if err != nil {
		log.Fatalf("Failed to create default admin user: %v", err)
	}
	if password != "" {
		log.Printf("Default admin user created. Username: admin, Password: %s", password)
		log.Println("Please change the password with `image-theatre admin reset-password`.")
	}

	log.Println("Database initialized successfully")
}
