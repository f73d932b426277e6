// @title           Onboarding Forms API
// @version         1.0
// @description     Dynamic onboarding form builder, wizard and submission review API
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	_ "onboarding-forms-api/docs" // Swagger docs import

	"onboarding-forms-api/internal/cache"
	"onboarding-forms-api/internal/client"
	"onboarding-forms-api/internal/config"
	"onboarding-forms-api/internal/database"
	"onboarding-forms-api/internal/job"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/router"
	"onboarding-forms-api/internal/service"
	"onboarding-forms-api/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Onboarding Forms API",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("base_path", cfg.Server.BasePath),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Initialize metrics
	m := metrics.New()

	// Initialize database; keep retrying in the background when it is not up yet
	dbConfig := database.Config{
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		logger.Warn("Failed to connect to database on startup, will retry in background", zap.Error(err))
		connected := make(chan *gorm.DB, 1)
		database.NewAsync(ctx, dbConfig, 5*time.Second, logger, func(db *gorm.DB) { connected <- db })
		select {
		case db = <-connected:
		case <-quit:
			logger.Info("Shutdown requested before database became available")
			return
		}
	}
	logger.Info("Database connected successfully")

	if err := database.AutoMigrate(db, logger); err != nil {
		logger.Warn("Failed to run database migrations", zap.Error(err))
	} else {
		logger.Info("Database migrations completed")
	}
	if err := database.RegisterMetricsCallbacks(db, m); err != nil {
		logger.Warn("Failed to register database metrics callbacks", zap.Error(err))
	}
	stopDBStats := database.StartDBStatsCollector(db, m, 15*time.Second)
	defer stopDBStats()

	collector := metrics.NewBusinessMetricsCollector(db, m, logger, time.Minute)
	collector.Start()
	defer collector.Stop()

	// Websocket hub; with Redis every replica relays pub/sub into its own hub
	hub := ws.NewHub(logger, m)
	go hub.Run(ctx)

	var (
		redisClient  *redis.Client
		broker       ws.Broker
		draftStore   cache.DraftStore
		counterCache cache.CounterCache
	)
	redisClient, err = database.NewRedis(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis unavailable, using in-process drafts and notifications", zap.Error(err))
		broker = ws.NewLocalBroker(hub)
		draftStore = cache.NewMemoryDraftStore()
		counterCache = cache.NewMemoryCounterCache()
	} else {
		defer redisClient.Close()
		redisBroker := ws.NewRedisBroker(redisClient, logger)
		go redisBroker.Relay(ctx, hub)
		broker = redisBroker
		draftStore = cache.NewRedisDraftStore(redisClient)
		counterCache = cache.NewRedisCounterCache(redisClient)
	}

	// Initialize S3 client
	var files service.S3Client
	s3Client, err := client.NewS3Client(ctx, cfg.S3, m)
	if err != nil {
		logger.Warn("S3 configuration incomplete, attachment features disabled", zap.Error(err))
	} else {
		if endpoint := os.Getenv("S3_PUBLIC_ENDPOINT"); endpoint != "" {
			s3Client.WithPublicEndpoint(endpoint)
		}
		logger.Info("S3 client initialized",
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("region", cfg.S3.Region),
		)
		files = s3Client
	}

	// Scheduled cleanup
	scheduler := job.NewScheduler(logger, m, 5*time.Minute)
	if files != nil {
		if err := scheduler.Register(cfg.Cleanup.AttachmentSchedule,
			job.NewAttachmentCleanupJob(repository.NewAttachmentRepository(db), files, logger)); err != nil {
			logger.Warn("Attachment cleanup disabled", zap.Error(err))
		}
	}
	if err := scheduler.Register(cfg.Cleanup.NotificationSchedule,
		job.NewNotificationCleanupJob(repository.NewNotificationRepository(db), cfg.Cleanup.NotificationMaxAge, logger)); err != nil {
		logger.Warn("Notification cleanup disabled", zap.Error(err))
	}
	scheduler.Start()

	// Setup router with all dependencies
	r := router.Setup(router.Config{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		Metrics:        m,
		JWTSecret:      cfg.JWT.Secret,
		BasePath:       cfg.Server.BasePath,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		S3Client:       files,
		Hub:            hub,
		Broker:         broker,
		DraftStore:     draftStore,
		CounterCache:   counterCache,
		UploadExpiry:   cfg.S3.UploadExpiry,
		DraftTTL:       cfg.Wizard.DraftTTL,
		UnreadCacheTTL: cfg.Notification.UnreadCacheTTL,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Onboarding Forms API started successfully",
			zap.String("address", srv.Addr),
			zap.String("swagger", fmt.Sprintf("http://localhost:%s%s/swagger/index.html", cfg.Server.Port, cfg.Server.BasePath)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	hub.Stop()
	stop()

	if err := database.Close(db); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
