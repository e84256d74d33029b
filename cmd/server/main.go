// Package main runs the Gatherly check-in HTTP server with the live door
// dashboard websocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatherly/backend/config"
	"github.com/gatherly/backend/internal/auth"
	"github.com/gatherly/backend/internal/checkin"
	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/live"
	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/internal/registrations"
	"github.com/gatherly/backend/pkg/database"
	"github.com/gatherly/backend/pkg/queue"
	"github.com/gatherly/backend/pkg/redis"
	"github.com/gatherly/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	bridge := live.NewRedisBridge(rdb, logger)
	hub := live.NewHub(logger, bridge, bridge)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, eventRepo, logger)

	// Check-in engine
	codec, err := checkin.NewCodec(cfg.CheckIn.ConnectBaseURL)
	if err != nil {
		logger.Fatal("connect base url", zap.Error(err))
	}
	jobQueue := queue.NewQueue(rdb.Client, logger)
	checkinSvc := checkin.NewService(eventRepo, registrationRepo, codec,
		checkin.WithNotifier(notify.NewQueueNotifier(jobQueue)),
		checkin.WithBroadcaster(live.NewCheckInFeed(hub)),
		checkin.WithStoreTimeout(time.Duration(cfg.CheckIn.StoreTimeoutSec)*time.Second),
		checkin.WithLogger(logger),
	)
	checkinHandler := checkin.NewHandler(checkinSvc, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health and metrics
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public: self-serve event registration
	router.POST("/events/:id/register", registrationHandler.Register)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", middleware.RequireRole("admin"), eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id", middleware.RequireRole("admin"), eventHandler.Update)
		api.DELETE("/events/:id", middleware.RequireRole("admin"), eventHandler.Delete)
		api.POST("/events/:id/speakers", middleware.RequireRole("admin"), eventHandler.AddSpeaker)
		api.DELETE("/events/:id/speakers/:userId", middleware.RequireRole("admin"), eventHandler.RemoveSpeaker)

		// Registrations (door staff and admins)
		api.GET("/events/:id/registrations", middleware.RequireRole("admin", "staff"), registrationHandler.List)
		api.DELETE("/events/:id/registrations/:userId", middleware.RequireRole("admin", "staff"), registrationHandler.Cancel)
		api.PATCH("/events/:id/registrations/:userId/badge-role", middleware.RequireRole("admin"), registrationHandler.SetBadgeRole)

		// Check-in
		api.POST("/scan", middleware.RequireRole("admin", "staff"), checkinHandler.Scan)
		api.POST("/events/:id/checkin", middleware.RequireRole("admin", "staff"), checkinHandler.ManualCheckIn)
		api.GET("/events/:id/registrations/search", middleware.RequireRole("admin", "staff"), checkinHandler.SearchByEmail)
		api.GET("/events/:id/stats", middleware.RequireRole("admin", "staff"), checkinHandler.Stats)
		api.GET("/events/:id/door-list", middleware.RequireRole("admin", "staff"), checkinHandler.DoorList)
		api.GET("/events/:id/registrations/:userId/code", middleware.RequireRole("admin", "staff"), checkinHandler.CheckInCode)

		// Live door dashboard (token accepted via query for browser websockets)
		api.GET("/ws/events/:id", middleware.RequireRole("admin", "staff"), hub.ServeWS)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
