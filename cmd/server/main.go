package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tablefare/internal/config"
	"tablefare/internal/handlers"
	"tablefare/internal/middleware"
	"tablefare/internal/repositories/mongodb"
	"tablefare/internal/services"
	"tablefare/internal/signals"
	"tablefare/internal/utils"
	"tablefare/pkg/cache"
	"tablefare/pkg/database"
	"tablefare/pkg/logger"
	"tablefare/pkg/ml"
	"tablefare/pkg/websocket"
	"tablefare/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// MongoDB
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Database)
	if err := migrator.Up(); err != nil {
		appLogger.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	clock := utils.NewSystemClock()

	// Repositories
	restaurantRepo := mongodb.NewRestaurantRepository(db.Database)
	reservationRepo := mongodb.NewReservationRepository(db.Database)
	tableRepo := mongodb.NewTableRepository(db.Database)
	ruleRepo := mongodb.NewPricingRuleRepository(db.Database)

	// Demand forecaster (optional: stays neutral without a trained model)
	forecaster := ml.NewDemandForecaster(cfg.ML.DemandModel.Enabled)
	if err := forecaster.LoadModel(cfg.ML.DemandModel.ModelPath); err != nil {
		appLogger.WithError(err).Warn("Demand model unavailable, pricing with neutral multiplier")
	}

	// Websocket price stream
	wsHandler := websocket.NewHandler()

	// Services
	cacheService := services.NewCacheService(redisCache, cfg.App.Name, cfg.Pricing.PriceCacheTTL, appLogger)
	metricsService := services.NewMetricsService(reservationRepo, tableRepo, cacheService, cfg.Pricing, appLogger)
	competitorService := services.NewCompetitorService(restaurantRepo, cacheService, cfg.Pricing, appLogger, clock)
	ruleService := services.NewRuleService(ruleRepo, cacheService, cfg.Pricing, appLogger)
	pricingService := services.NewPricingService(
		restaurantRepo,
		metricsService,
		competitorService,
		ruleService,
		forecaster,
		signals.NeutralWeather{},
		signals.NeutralEvents{},
		cacheService,
		wsHandler.GetHub(),
		cfg.Pricing,
		appLogger,
		clock,
	)
	trainingService := services.NewTrainingService(reservationRepo, tableRepo, forecaster, cfg.ML.DemandModel.ModelPath, appLogger, clock)
	scheduler := services.NewSchedulerService(restaurantRepo, pricingService, cfg.Pricing, appLogger, clock)

	// Handlers
	pricingHandler := handlers.NewPricingHandler(pricingService, metricsService, trainingService, clock)
	ruleHandler := handlers.NewRuleHandler(ruleService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupPricingRoutes(v1, pricingHandler)
		routes.SetupRuleRoutes(v1, ruleHandler, pricingHandler, cfg.Security.JWTSecret)
	}

	router.GET("/ws/prices", wsHandler.HandleWebSocket)

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if err := cacheService.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
			"model":   forecaster.ModelVersion(),
		})
	})

	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	scheduler.Start(schedulerCtx)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting %s on %s", cfg.App.Name, server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	cancelScheduler()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
}
