package routes

import (
	"github.com/asmaravianti/ecg-compression/internal/handlers"
	"github.com/asmaravianti/ecg-compression/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterPortalRoutes wires the authenticated submission-lifecycle
// endpoints.
func RegisterPortalRoutes(r gin.IRouter) {
	protected := r.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/upload", handlers.UploadFiles)
		protected.POST("/submit-to-codabench", middleware.SubmitRateLimit(), handlers.SubmitToCodabench)
		protected.GET("/submission-status/:id", handlers.SubmissionStatus)
		protected.GET("/submissions", handlers.ListSubmissions)
		protected.GET("/leaderboard", handlers.Leaderboard)
		protected.GET("/test-codabench", handlers.TestCodabench)
	}
}
