package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"blogserver/docs"
	"blogserver/internal/auth"
	"blogserver/internal/cache"
	"blogserver/internal/config"
	"blogserver/internal/db"
	"blogserver/internal/handler"
	"blogserver/internal/logging"
	"blogserver/internal/model"
	"blogserver/internal/repository"
	"blogserver/internal/router"
	"blogserver/internal/service"
	"blogserver/internal/upload"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupQueue    = 128
)

// @title Blog API
// @version 1.0
// @description Blog backend with accounts, avatars, posts and bearer-token authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.ZapLogger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		return err
	}
	if err := migrate(ctx, gormDB, cfg.ResetDB, logger); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.CacheTTL)
	defer func() { _ = cacheClient.Close() }()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn(ctx, "redis unavailable, serving without cache", "addr", cfg.RedisAddr, "error", err)
	}

	store, err := upload.NewStore(upload.Config{
		Dir:               cfg.UploadDir,
		MaxThumbnailBytes: cfg.MaxThumbnailBytes,
		MaxAvatarBytes:    cfg.MaxAvatarBytes,
	}, logger)
	if err != nil {
		return err
	}
	cleaner := upload.NewCleaner(store, logger, cleanupQueue)
	defer cleaner.Close()

	userRepo := repository.NewUserRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)

	authService := service.NewAuthService(userRepo, jwtService, cacheClient, logger)
	userService := service.NewUserService(userRepo, store, cleaner, cacheClient, logger)
	postService := service.NewPostService(postRepo, store, cleaner, cacheClient, logger)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	router.Register(e, cfg, logger, jwtService, router.Handlers{
		Auth:  handler.NewAuthHandler(authService),
		Users: handler.NewUserHandler(userService),
		Posts: handler.NewPostHandler(postService),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening", "port", cfg.ServerPort, "swagger", "/swagger/index.html")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, gormDB *gorm.DB, reset bool, logger logging.Logger) error {
	if reset {
		logger.Warn(ctx, "RESET_DB=true, dropping tables")
		if err := gormDB.Migrator().DropTable(&model.Post{}, &model.User{}); err != nil {
			logger.Warn(ctx, "drop tables", "error", err)
		}
	}
	return gormDB.AutoMigrate(&model.User{}, &model.Post{})
}
