package routes

import (
	"localvoice-be/controllers"
	"localvoice-be/middlewares"

	"github.com/gin-gonic/gin"
)

// ReportRoutes sets up the public report routes
func ReportRoutes(r *gin.Engine, dailyLimit int) {
	report := r.Group("/api/reports")
	{
		report.POST("", middlewares.OptionalAuthMiddleware(), middlewares.ReportRateLimiter(dailyLimit), controllers.CreateReport)
		report.GET("", middlewares.OptionalAuthMiddleware(), controllers.ListReports)
		report.GET("/nearby", middlewares.OptionalAuthMiddleware(), controllers.NearbyReports)
		report.GET("/stats", controllers.GetReportStatistics)
		report.GET("/:id", middlewares.OptionalAuthMiddleware(), controllers.GetReport)
		report.POST("/:id/vote", middlewares.AuthMiddleware(), controllers.VoteReport)
	}
}

// AdminReportRoutes sets up the administrative report routes
func AdminReportRoutes(r *gin.Engine) {
	admin := r.Group("/api/admin/reports", middlewares.AuthMiddleware())
	{
		admin.PATCH("/:id/status", controllers.UpdateReportStatus)
		admin.POST("/:id/respond", controllers.RespondToReport)
		admin.DELETE("/:id", controllers.DeleteReport)
	}
}
