package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	_ "wikishelf/docs" // swagger docs

	"wikishelf/internal/auth"
	"wikishelf/internal/cache"
	"wikishelf/internal/config"
	"wikishelf/internal/db"
	"wikishelf/internal/handler"
	"wikishelf/internal/logging"
	"wikishelf/internal/repository"
	"wikishelf/internal/router"
	"wikishelf/internal/service"
	"wikishelf/internal/wikipedia"
)

const shutdownTimeout = 10 * time.Second

// @title Wikishelf API
// @version 1.0
// @description Save Wikipedia articles into a personal, versioned library.
// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wikishelf: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}()

	if cfg.ResetDB {
		logger.Warn("RESET_DB set, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			return err
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, profile cache disabled until it recovers", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	articleRepo := repository.NewArticleRepository(gormDB)
	historyRepo := repository.NewArticleHistoryRepository(gormDB)

	// Initialize auth components
	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.TokenTTL)
	hasher := auth.NewPasswordHasher(auth.DefaultBcryptCost, cfg.HashConcurrency)
	wiki := wikipedia.NewClient(cfg.WikipediaEndpoint, cfg.ArticleLinkBase, cfg.WikipediaTimeout)

	// Initialize services
	authService := service.NewAuthService(userRepo, codec, hasher, cacheClient, logger)
	userService := service.NewUserService(userRepo, hasher, cacheClient)
	articleService := service.NewArticleService(articleRepo, historyRepo, wiki, logger)

	guard := auth.NewGuard(codec, userService, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(
		e,
		cfg,
		logger,
		guard,
		handler.NewUserHandler(authService, userService, logger),
		handler.NewArticleHandler(articleService, logger),
	)

	logger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg)))

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server listening", zap.String("addr", addr), zap.String("db_driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
