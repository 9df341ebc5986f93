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

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/d60-Lab/venda-certa/config"
	"github.com/d60-Lab/venda-certa/internal/api/handler"
	"github.com/d60-Lab/venda-certa/internal/api/middleware"
	"github.com/d60-Lab/venda-certa/internal/api/router"
	"github.com/d60-Lab/venda-certa/internal/cache"
	"github.com/d60-Lab/venda-certa/internal/repository"
	"github.com/d60-Lab/venda-certa/internal/service"
	"github.com/d60-Lab/venda-certa/pkg/database"
	"github.com/d60-Lab/venda-certa/pkg/logger"
	"github.com/d60-Lab/venda-certa/pkg/tracing"
)

// @title Venda Certa API
// @version 1.0
// @description Ciclo de vida de pedidos: criação com baixa de estoque, status, cancelamento e estatísticas.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)
	decimal.MarshalJSONWithoutQuotes = true

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	serviceName := ""
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(context.Background(), cfg.Tracing)
		if err != nil {
			logger.Warn("tracing init failed", zap.Error(err))
		} else {
			serviceName = cfg.Tracing.ServiceName
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("init database", zap.Error(err))
		os.Exit(1)
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Error("migrate", zap.Error(err))
		os.Exit(1)
	}
	store := repository.NewStore(db)

	var (
		statsCache service.StatsCache     = cache.Noop{}
		publisher  service.EventPublisher = service.LogEventPublisher{}
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, stats cache degrades to database reads", zap.Error(err))
		}
		cancel()
		statsCache = cache.NewStatsCache(rdb, cfg.Redis.StatsTTL)
		publisher = service.NewRedisEventPublisher(rdb, service.OrderEventsChannel)
	}

	relay := service.NewOutboxRelay(store, publisher, cfg.Order.RelayBatch, cfg.Order.RelayInterval)
	stopRelay := relay.Start(cfg.Order.RelayWorkers)

	orders := service.NewOrderService(store, service.OrderServiceOptions{
		DefaultPageSize: cfg.Order.DefaultPageSize,
		MaxPageSize:     cfg.Order.MaxPageSize,
		Cache:           statsCache,
		Events:          relay,
	})
	auth := service.NewAuthService(store.Users, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)

	if err := handler.RegisterValidators(); err != nil {
		logger.Error("register validators", zap.Error(err))
		os.Exit(1)
	}
	h := handler.NewHandler(orders, auth, service.NewCatalogService(store))
	engine := router.Setup(h, router.Options{
		ServiceName: serviceName,
		Auth:        auth,
		RateLimiter: middleware.NewIPRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateBurst),
		Swagger:     cfg.Server.Mode != gin.ReleaseMode,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopRelay(ctx); err != nil {
		logger.Warn("outbox relay stop", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server exited")
}
