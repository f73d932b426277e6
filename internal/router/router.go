package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/builder"
	"onboarding-forms-api/internal/cache"
	"onboarding-forms-api/internal/handler"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/middleware"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
	"onboarding-forms-api/internal/ws"
)

// Config holds the dependencies of the HTTP router
type Config struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	JWTSecret      string
	BasePath       string
	AllowedOrigins []string

	S3Client     service.S3Client
	Hub          *ws.Hub
	Broker       ws.Broker
	DraftStore   cache.DraftStore
	CounterCache cache.CounterCache

	UploadExpiry   time.Duration
	DraftTTL       time.Duration
	UnreadCacheTTL time.Duration
}

// Setup wires repositories, services and handlers and registers every route.
// Optional dependencies left nil fall back to in-process implementations,
// except S3Client: without it attachment uploads answer 503.
func Setup(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Hub == nil {
		cfg.Hub = ws.NewHub(cfg.Logger, cfg.Metrics)
	}
	if cfg.Broker == nil {
		cfg.Broker = ws.NewLocalBroker(cfg.Hub)
	}
	if cfg.DraftStore == nil {
		cfg.DraftStore = cache.NewMemoryDraftStore()
	}
	if cfg.CounterCache == nil {
		cfg.CounterCache = cache.NewMemoryCounterCache()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Repositories
	formRepo := repository.NewFormRepository(cfg.DB)
	versionRepo := repository.NewFormVersionRepository(cfg.DB)
	submissionRepo := repository.NewSubmissionRepository(cfg.DB)
	attachmentRepo := repository.NewAttachmentRepository(cfg.DB)
	notificationRepo := repository.NewNotificationRepository(cfg.DB)

	// Services
	notificationService := service.NewNotificationService(
		notificationRepo, cfg.Broker, cfg.CounterCache, cfg.UnreadCacheTTL, cfg.Metrics, cfg.Logger)
	formService := service.NewFormService(formRepo, versionRepo, notificationService, cfg.Metrics, cfg.Logger)
	builderService := service.NewBuilderService(formRepo, builder.New(), cfg.Metrics, cfg.Logger)
	submissionService := service.NewSubmissionService(
		submissionRepo, formRepo, versionRepo, attachmentRepo, notificationService, cfg.Metrics, cfg.Logger)
	wizardService := service.NewWizardService(
		formRepo, versionRepo, cfg.DraftStore, submissionService, cfg.DraftTTL, cfg.Metrics, cfg.Logger)
	attachmentService := service.NewAttachmentService(
		attachmentRepo, formRepo, submissionRepo, cfg.S3Client, cfg.UploadExpiry, cfg.Logger)

	// Handlers
	formHandler := handler.NewFormHandler(formService, builderService)
	wizardHandler := handler.NewWizardHandler(wizardService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService)
	healthHandler := handler.NewHealthHandler(cfg.DB, cfg.Redis, cfg.Hub.Connections)
	wsHandler := handler.NewWSHandler(cfg.Hub, cfg.AllowedOrigins, cfg.Logger)

	metricsHandler := gin.WrapH(promhttp.Handler())

	// Public endpoints, reachable at the root and under the base path
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler)

	basePath := strings.TrimSuffix(cfg.BasePath, "/")
	base := r.Group(basePath)
	if basePath != "" {
		base.GET("/health", healthHandler.Health)
		base.GET("/ready", healthHandler.Ready)
		base.GET("/metrics", metricsHandler)
	}
	base.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := middleware.Auth(cfg.JWTSecret)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	base.GET("/ws/notifications", auth, wsHandler.HandleNotifications)

	api := base.Group("")
	api.Use(auth)
	{
		forms := api.Group("/forms")
		{
			forms.GET("", formHandler.ListForms)
			forms.GET("/meta", formHandler.GetMeta)
			forms.GET("/:formId", formHandler.GetForm)
			forms.GET("/:formId/versions", formHandler.ListVersions)
			forms.GET("/:formId/versions/:version", formHandler.GetVersion)
			forms.GET("/:formId/schema/can-remove-section", formHandler.CanRemoveSection)

			forms.POST("", adminOnly, formHandler.CreateForm)
			forms.PATCH("/:formId", adminOnly, formHandler.UpdateForm)
			forms.DELETE("/:formId", adminOnly, formHandler.DeleteForm)
			forms.POST("/:formId/schema/commands", adminOnly, formHandler.ApplyCommands)
		}

		wizard := api.Group("/wizard")
		{
			wizard.GET("/forms", wizardHandler.AvailableForms)
			wizard.POST("/:formId", wizardHandler.StartSession)
			wizard.GET("/:formId", wizardHandler.GetSession)
			wizard.DELETE("/:formId", wizardHandler.Discard)
			wizard.PUT("/:formId/values", wizardHandler.SetValues)
			wizard.PUT("/:formId/files", wizardHandler.SetFiles)
			wizard.POST("/:formId/next", wizardHandler.Next)
			wizard.POST("/:formId/previous", wizardHandler.Previous)
			wizard.POST("/:formId/submit", wizardHandler.Submit)
		}

		submissions := api.Group("/submissions")
		{
			submissions.POST("", submissionHandler.CreateSubmission)
			submissions.GET("", submissionHandler.ListSubmissions)
			submissions.GET("/:submissionId", submissionHandler.GetSubmission)
			submissions.GET("/:submissionId/review", submissionHandler.GetReview)
			submissions.GET("/:submissionId/attachments", attachmentHandler.ListBySubmission)
			submissions.PATCH("/:submissionId/status", adminOnly, submissionHandler.UpdateStatus)
		}

		attachments := api.Group("/attachments")
		{
			attachments.POST("/presigned-url", attachmentHandler.CreatePresignedUpload)
			attachments.GET("/:attachmentId", attachmentHandler.GetAttachment)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.GetUnreadCount)
			notifications.PATCH("/read-all", notificationHandler.MarkAllAsRead)
			notifications.PATCH("/:notificationId/read", notificationHandler.MarkAsRead)
			notifications.DELETE("/:notificationId", notificationHandler.DeleteNotification)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.SendError(c, http.StatusNotFound, response.ErrCodeNotFound, "Route not found")
	})

	return r
}
