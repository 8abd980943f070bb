package api

import "github.com/gin-gonic/gin"

// SetupRouter wires the HTTP surface consumed by any chat UI.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/chat", h.Chat)

		api.POST("/documents", h.IngestDocument)
		api.GET("/documents", h.ListDocuments)
		api.GET("/search", h.Search)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("/:id/history", h.SessionHistory)
			sessions.GET("/:id/stats", h.SessionStats)
			sessions.POST("/:id/clear", h.ClearSession)
		}

		// periodic maintenance is triggered by an external caller
		api.POST("/maintenance/expire-sessions", h.ExpireSessions)
	}

	return r
}
