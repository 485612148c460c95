package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/RishiKendai/vigil/internal/config"
	"github.com/RishiKendai/vigil/internal/models"
)

func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	// closed request schemas
	binding.EnableDecoderDisallowUnknownFields = true

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogger())
	router.Use(ErrorHandlerMiddleware())

	handler := NewHandler(deps, cfg.StoreTimeout)
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer, deps.Security))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/prompts/validate", handler.ValidatePrompt)
		api.POST("/prompts/analyze", handler.AnalyzePrompt)
		api.GET("/validation/metrics/:challengeId", handler.ValidationMetrics)

		api.POST("/metrics/track", handler.TrackMetrics)
		api.GET("/metrics/:attemptId/session", handler.SessionMetrics)
		api.GET("/metrics/:attemptId/trends", handler.Trends)
		api.POST("/metrics/averages/refresh", handler.RefreshAverages)
		api.POST("/metrics/stream/start", handler.StartStream)
		api.POST("/metrics/stream/stop", handler.StopStream)

		api.POST("/copy-paste", handler.TrackCopyPaste)
		api.GET("/copy-paste/:attemptId/stats", handler.CopyPasteStats)

		api.POST("/assistant/ask", handler.Ask)
		api.GET("/ws", handler.ServeWS)
	}

	admin := api.Group("")
	admin.Use(RequireRole(models.RoleAdmin))
	{
		admin.DELETE("/validation/cache", handler.ClearValidationCache)
		admin.GET("/security/events", handler.SecurityEvents)
	}

	return router
}
