package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"story-studio/pkg/database"
	"story-studio/pkg/migration"
	sharedLogger "story-studio/shared/logger"
	sharedMiddleware "story-studio/shared/middleware"
	"story-studio/shared/models"
	"story-studio/story-service/internal/config"
	"story-studio/story-service/internal/handler"
	"story-studio/story-service/internal/repository"
	"story-studio/story-service/internal/service"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.LogLevel), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- External Connections ---
	zap.L().Info("Connecting to PostgreSQL", zap.String("dsn", cfg.GetMaskedDSN()))
	pgPool, err := database.Connect(ctx, database.Config{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		MaxIdleTime: cfg.DBIdleTimeout,
		MaxRetries:  cfg.DBMaxRetries,
	}, logger.Named("Postgres"))
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsFS:    repository.MigrationsFS,
		MigrationsPath:  repository.MigrationsPath,
		MigrationsTable: repository.MigrationsTable,
	}, pgPool, logger)
	if err := migrator.Up(); err != nil {
		zap.L().Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient, err := setupRedis(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// --- Dependency Injection ---
	aiClient, err := service.NewAIClient(cfg, logger)
	if err != nil {
		zap.L().Fatal("Failed to create AI client", zap.Error(err))
	}
	speechClient, err := service.NewSpeechClient(cfg, logger)
	if err != nil {
		zap.L().Fatal("Failed to create speech client", zap.Error(err))
	}
	narrationCache := service.NewRedisNarrationCache(redisClient, cfg.NarrationTTL, logger)
	storyRepo := repository.NewPgStoryRepository(pgPool, logger)

	temperature, maxTokens := cfg.AITemperature, cfg.AIMaxTokens
	storySvc := service.NewStoryService(aiClient, speechClient, narrationCache, storyRepo,
		service.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens}, logger)
	storyHandler := handler.NewStoryHandler(storySvc, logger)

	// --- Rate Limiter ---
	rateLimitStore := rateli.RedisStore(&rateli.RedisOptions{
		RedisClient: redisClient,
		Rate:        cfg.RateLimitWindow,
		Limit:       cfg.RateLimit,
	})
	rateLimitMiddleware := rateli.RateLimiter(rateLimitStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", sharedMiddleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	storyHandler.RegisterRoutes(router, rateLimitMiddleware)

	// Prometheus middleware применяется после регистрации роутов
	p.Use(router)

	// Генерация идет до 90с, WriteTimeout должен быть больше таймаута AI
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupRedis подключается к Redis, повторяя попытки, пока контейнер поднимается.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	const maxRetries = 20
	retryDelay := 3 * time.Second
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		client := redis.NewClient(redisOpts)

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			zap.L().Info("Connected to Redis", zap.String("address", redisOpts.Addr), zap.Int("attempt", attempt))
			return client, nil
		}

		client.Close()
		lastErr = err
		zap.L().Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis connection cancelled: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}
