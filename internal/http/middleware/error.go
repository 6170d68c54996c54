package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

// ErrorHandler recovers panics and logs errors handlers attached with ctx.Error.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	recovery := gin.CustomRecovery(func(ctx *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("method", ctx.Request.Method),
		)

		ctx.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error:   "Internal server error",
		})
	})

	return func(ctx *gin.Context) {
		recovery(ctx)

		for _, e := range ctx.Errors {
			logger.Warn("Request error",
				zap.String("path", ctx.Request.URL.Path),
				zap.Error(e.Err),
			)
		}
	}
}
