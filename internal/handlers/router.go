package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/applytrail/internal/config"
	"go.uber.org/zap"
)

// NewRouter wires the /api/v1 routes.
func NewRouter(cfg config.ServerConfig, users UserLookup, jobs *JobHandler, sync *SyncHandler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", UserHeader}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api/v1")
	{
		api.GET("/health", HealthCheck)

		authed := api.Group("/jobs", RequireUser(users))
		authed.GET("", jobs.ListJobs)
		authed.POST("", jobs.CreateJob)
		authed.POST("/sync", sync.SyncJobs)
		authed.PUT("/:id", jobs.UpdateJob)
		authed.DELETE("/:id", jobs.DeleteJob)
	}
	return r
}
