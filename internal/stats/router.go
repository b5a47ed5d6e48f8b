package stats

import (
	"github.com/gin-gonic/gin"

	"fitspot/pkg/ratelimit"
)

// SetupStatsRoutes configures all statistics routes
func SetupStatsRoutes(rg *gin.RouterGroup, controller *Controller, limiter *ratelimit.Limiter) {
	// Public view tracking, rate limited per client
	track := rg.Group("/track")
	track.Use(ratelimit.Middleware(limiter))
	{
		track.POST("/views", controller.TrackView) // POST /api/v1/track/views
	}

	// Metric reads
	statsGroup := rg.Group("/stats")
	{
		statsGroup.GET("/hosts/:id", controller.GetHostMetrics)                           // GET /api/v1/stats/hosts/:id
		statsGroup.GET("/hosts/:id/snapshots/daily", controller.GetHostDailySnapshot)     // GET /api/v1/stats/hosts/:id/snapshots/daily
		statsGroup.GET("/hosts/:id/snapshots/monthly", controller.GetHostMonthlySnapshot) // GET /api/v1/stats/hosts/:id/snapshots/monthly
		statsGroup.GET("/activities/:id", controller.GetActivityMetrics)                  // GET /api/v1/stats/activities/:id

		// Admin recompute and snapshot triggers
		admin := statsGroup.Group("/admin")
		{
			admin.POST("/recompute", controller.RecomputeAllHosts)              // POST /api/v1/stats/admin/recompute
			admin.POST("/hosts/:id/recompute", controller.RecomputeHost)        // POST /api/v1/stats/admin/hosts/:id/recompute
			admin.POST("/activities/recompute", controller.RecomputeActivities) // POST /api/v1/stats/admin/activities/recompute
			admin.POST("/snapshots/daily", controller.BuildDailySnapshot)       // POST /api/v1/stats/admin/snapshots/daily
			admin.POST("/snapshots/monthly", controller.BuildMonthlySnapshot)   // POST /api/v1/stats/admin/snapshots/monthly
		}
	}
}
