// Package routes wires the HTTP surface onto a gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docsage/docsage/services/chat"
	"github.com/docsage/docsage/services/ingest"
	"github.com/docsage/docsage/services/orchestrator/handlers"
	"github.com/docsage/docsage/services/summarize"
)

// SetupRoutes registers every endpoint. Metrics exposure is optional since
// some deployments scrape a sidecar instead.
func SetupRoutes(router *gin.Engine, manager *chat.Manager, processor *ingest.Processor,
	summarizer *summarize.Summarizer, enableMetrics bool) {

	router.GET("/health", handlers.HealthCheck)
	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(manager))
			sessions.GET("", handlers.ListSessions(manager))
			sessions.GET("/:sessionId/history", handlers.GetSessionHistory(manager))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(manager))
			sessions.POST("/:sessionId/documents", handlers.ProcessDocuments(manager, processor, summarizer))
			sessions.POST("/:sessionId/chat", handlers.HandleChat(manager))
		}
	}
}
