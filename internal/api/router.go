package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nanosprinkle/tipbot/internal/websocket"
)

// SetupRouter initializes the Gin router and sets up the routes
func SetupRouter(handler *Handler, wsManager *websocket.WebSocketManager, scraperAPIKey string) *gin.Engine {
	r := gin.Default()
	r.Use(RequestIDMiddleware())
	r.Use(ErrorMiddleware())

	// Ingestion routes, posted by the scraper
	ingest := r.Group("/", AuthMiddleware(scraperAPIKey))
	ingest.POST("/mention", handler.IngestMention)
	ingest.POST("/message", handler.IngestMessage)

	r.GET("/healthz", handler.Healthz)

	// WebSocket route for the live dashboard
	r.GET("/ws", func(c *gin.Context) {
		wsManager.HandleWebSocket(c.Writer, c.Request)
	})

	return r
}
