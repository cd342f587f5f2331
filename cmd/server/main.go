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

	"github.com/simplesagar/dub/internal/config"
	"github.com/simplesagar/dub/internal/geo"
	httpHandler "github.com/simplesagar/dub/internal/handler/http"
	"github.com/simplesagar/dub/internal/metatags"
	"github.com/simplesagar/dub/internal/ratelimit"
	"github.com/simplesagar/dub/internal/repository/postgres"
	redisRepo "github.com/simplesagar/dub/internal/repository/redis"
	"github.com/simplesagar/dub/internal/service"
	"github.com/simplesagar/dub/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.App.LogLevel)
	appLogger.Info("Starting dub link API",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"default_domain", cfg.Links.DefaultDomain,
	)

	// Database
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := postgres.InitDB(
		ctx,
		cfg.Database.DatabaseDSN(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		cancel()
		appLogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		cancel()
		appLogger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	cancel()
	appLogger.Info("Database ready")

	// Redis backs the redirect cache and the rate limiter. Without it
	// every lookup goes to Postgres and rate limiting is off.
	var cache service.Cache = redisRepo.NoopCache{}
	var limiter httpHandler.RateLimiter
	if cfg.Redis.Enabled {
		client, err := redisRepo.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		cache = redisRepo.NewCache(client, cfg.Redis.CacheTTL)
		if cfg.App.RateLimitEnabled {
			limiter = ratelimit.NewLimiter(client, cfg.App.RateLimitMax, cfg.App.RateLimitWindow)
		}
		appLogger.Info("Redis ready", "addr", cfg.Redis.RedisAddr(), "rate_limit", limiter != nil)
	} else {
		appLogger.Warn("Redis disabled, link cache and rate limiting are off")
	}

	geoResolver, err := geo.NewResolver(cfg.Links.GeoIPDBPath, appLogger)
	if err != nil {
		appLogger.Error("Failed to load GeoIP database", "error", err)
		os.Exit(1)
	}
	defer geoResolver.Close()

	// Repositories
	linkRepo := postgres.NewLinkRepository(db)
	tagRepo := postgres.NewTagRepository(db)
	workspaceRepo := postgres.NewWorkspaceRepository(db)
	clickRepo := postgres.NewClickRepository(db)

	// Services
	linkService := service.NewLinkService(
		linkRepo,
		tagRepo,
		workspaceRepo,
		clickRepo,
		cache,
		nil,
		metatags.NewFetcher(cfg.Links.MetatagsTimeout),
		appLogger,
		service.LinkConfig{
			DefaultDomain: cfg.Links.DefaultDomain,
			KeyLength:     cfg.Links.KeyLength,
		},
	)
	tagService := service.NewTagService(tagRepo, workspaceRepo, appLogger)
	workspaceService := service.NewWorkspaceService(workspaceRepo, appLogger)

	// HTTP
	handler := httpHandler.NewHandler(linkService, tagService, workspaceService, geoResolver, appLogger, httpHandler.Config{
		QREndpoint:    cfg.Links.QREndpoint,
		DefaultDomain: cfg.Links.DefaultDomain,
		ClickTimeout:  cfg.Links.ClickTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpHandler.NewRouter(handler, appLogger, limiter, cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
		return
	}

	appLogger.Info("Server exited")
}
