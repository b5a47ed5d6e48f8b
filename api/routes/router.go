package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fitspot/internal/shared/config"
	"fitspot/internal/shared/database"
	"fitspot/internal/stats"
	"fitspot/pkg/ratelimit"
)

// Router holds all route dependencies
type Router struct {
	config       *config.Config
	db           *database.DB
	statsService stats.Service
	limiter      *ratelimit.Limiter
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, statsService stats.Service, limiter *ratelimit.Limiter) *Router {
	return &Router{
		config:       cfg,
		db:           db,
		statsService: statsService,
		limiter:      limiter,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		controller := stats.NewController(r.statsService)
		stats.SetupStatsRoutes(api, controller, r.limiter)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "fitspot-stats",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "fitspot-stats",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}
