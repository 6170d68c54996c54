package routes

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/config"
	"github.com/phambaophuc/image-seo-metadata/internal/http/handlers"
	"github.com/phambaophuc/image-seo-metadata/internal/http/middleware"
)

type Router struct {
	imageHandler *handlers.ImageHandler
	config       *config.Config
	logger       *zap.Logger
}

func NewRouter(
	imageHandler *handlers.ImageHandler,
	config *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		imageHandler: imageHandler,
		config:       config,
		logger:       logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS(r.config.Server.CORSOrigins))
	router.Use(middleware.SecurityHeaders())

	processed := path.Join(r.config.Storage.PublicPrefix, "/*filepath")
	router.GET(processed, r.imageHandler.ServeProcessed())
	router.HEAD(processed, r.imageHandler.ServeProcessed())

	api := router.Group("/api")
	{
		api.POST("/process-images", middleware.ValidateContentType(), r.imageHandler.ProcessImages)
		api.GET("/events", r.imageHandler.StreamEvents)

		images := api.Group("/images")
		{
			images.GET("/download/:requestId", r.imageHandler.DownloadBatch)
			images.PATCH("/update", r.imageHandler.UpdateImage)
			images.GET("/batches/:requestId", r.imageHandler.GetBatch)
		}

		// API version 1
		v1 := api.Group("/v1")
		{
			v1.GET("/health", r.imageHandler.HealthCheck)
			v1.GET("/stats", r.imageHandler.GetStats)
		}
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"message": "Image metadata service is running",
		})
	})

	return router
}
