package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/artgen/internal/api/handler"
	"github.com/timmy/artgen/internal/api/middleware"
	"github.com/timmy/artgen/internal/auth"
	"github.com/timmy/artgen/internal/config"
	"github.com/timmy/artgen/internal/logger"
	"github.com/timmy/artgen/internal/service"
)

// Dependencies are the services the router wires into handlers.
type Dependencies struct {
	GenerateService *service.GenerateService
	UploadService   *service.UploadService
	ImageService    *service.ImageService
	Sweeper         *service.Sweeper

	// Gate is nil when login is not configured
	Gate         *auth.Gate
	SessionTTL   time.Duration
	CookieSecure bool

	CORS   config.CORSConfig
	Logger *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *Dependencies, mode string) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(deps.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	generateHandler := handler.NewGenerateHandler(deps.GenerateService)
	imageHandler := handler.NewImageHandler(deps.ImageService)
	uploadHandler := handler.NewUploadHandler(deps.UploadService)
	adminHandler := handler.NewAdminHandler(deps.Sweeper)

	// Health check and metrics
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Generation and image files
	r.POST("/generate-art/:model", generateHandler.Generate)
	r.GET("/images/:filename", imageHandler.ServeGenerated)
	r.GET("/uploaded_images/:filename", imageHandler.ServeUploaded)
	r.POST("/upload", uploadHandler.Upload)

	// Read API
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/uploaded_images", imageHandler.ListUploaded)
		apiGroup.GET("/metadata", imageHandler.GetMetadata)
	}

	admin := r.Group("/admin")

	// Login
	if deps.Gate != nil {
		authHandler := handler.NewAuthHandler(deps.Gate, deps.SessionTTL, deps.CookieSecure)
		requireSession := middleware.RequireSession(deps.Gate)

		r.GET("/login", authHandler.Login)
		r.GET("/login/callback", authHandler.Callback)
		r.GET("/protected", requireSession, authHandler.Protected)

		admin.Use(requireSession)
	}

	admin.POST("/sweep", adminHandler.TriggerSweep)
	admin.GET("/sweep/status", adminHandler.GetSweepStatus)

	return r
}
