package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the session API on rg.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.HandleOpenSession)
		sessions.GET("", h.HandleListSessions)
		sessions.GET("/:id", h.HandleSnapshot)
		sessions.DELETE("/:id", h.HandleCloseSession)
		sessions.POST("/:id/analyze", h.HandleAnalyze)
		sessions.POST("/:id/refresh", h.HandleRefresh)
		sessions.PUT("/:id/tone", h.HandleTone)
		sessions.PUT("/:id/simplified", h.HandleSimplified)
		sessions.PUT("/:id/grouping", h.HandleGrouping)
		sessions.POST("/:id/themes/refresh", h.HandleRefreshThemes)
		sessions.POST("/:id/themes/generate", h.HandleGenerateThemes)
		sessions.POST("/:id/themes/:name/toggle", h.HandleToggleTheme)
		sessions.POST("/:id/publish", h.HandlePublish)
		sessions.GET("/:id/events", h.HandleEvents)
	}
	rg.GET("/synthesis", h.HandleSynthesis)
}

// NewRouter builds the engine with health, metrics and the /v1 API.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", h.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(router.Group("/v1"), h)
	return router
}
