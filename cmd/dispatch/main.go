package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swiftride/dispatch/internal/auth"
	"github.com/swiftride/dispatch/internal/dispatch"
	"github.com/swiftride/dispatch/pkg/broker"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/config"
	"github.com/swiftride/dispatch/pkg/database"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/middleware"
	"github.com/swiftride/dispatch/pkg/models"
	"github.com/swiftride/dispatch/pkg/redis"
	"go.uber.org/zap"
)

const (
	serviceName = "dispatch-service"
	version     = "1.0.0"
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting dispatch service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.Server.Environment),
	)

	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to database")

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to redis")

	bus, err := broker.Connect(cfg.Broker, serviceName)
	if err != nil {
		logger.Fatal("Failed to connect to broker", zap.Error(err))
	}
	defer bus.Close()
	logger.Info("Connected to broker", zap.String("url", cfg.Broker.URL))

	store := dispatch.NewRepository(db)
	matcher := dispatch.NewMatcher(store, dispatch.Config{
		DefaultPollTimeout: cfg.Dispatch.DefaultPollTimeout(),
		MaxPollTimeout:     cfg.Dispatch.MaxPollTimeout(),
		BufferCapacity:     cfg.Dispatch.BufferCapacity,
		SeenCapacity:       dispatch.DefaultConfig().SeenCapacity,
	})

	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	if err := dispatch.StartConsumers(consumerCtx, bus, matcher); err != nil {
		logger.Fatal("Failed to start broker consumers", zap.Error(err))
	}
	logger.Info("Broker consumers started")

	handler := dispatch.NewHandler(matcher)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(serviceName))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/readyz", common.ReadinessProbe(serviceName, version, map[string]func() error{
		"database": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.Ping(ctx)
		},
		"redis": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		},
		"broker": func() error {
			if !bus.Connected() {
				return fmt.Errorf("broker connection lost")
			}
			return nil
		},
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	blacklist := auth.NewBlacklist(redisClient)
	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret, blacklist))
	protected.Use(middleware.RequireRole(models.RoleCaptain))
	handler.RegisterRoutes(protected)

	// Long polls hold connections open up to MaxPollTimeout, so the write
	// timeout must exceed it.
	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	if minTimeout := cfg.Dispatch.MaxPollTimeout() + 5*time.Second; writeTimeout < minTimeout {
		writeTimeout = minTimeout
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: writeTimeout,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop consuming first so no new rides arrive, then release every parked
	// long poll, then drain the HTTP server.
	stopConsumers()
	matcher.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
