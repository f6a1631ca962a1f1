package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nanosprinkle/tipbot/internal/errors"
	"github.com/nanosprinkle/tipbot/pkg/logger"
)

// RequestIDMiddleware tags every request with a uuid for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// AuthMiddleware guards the ingestion endpoints with the scraper's API key.
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" || c.GetHeader("X-API-Key") != apiKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			switch e := err.(type) {
			case *errors.DatabaseError:
				logger.Error("Database error: %v", e)
				c.JSON(500, gin.H{"error": "Internal server error"})
			case *errors.WalletError:
				logger.Error("Wallet error: %v", e)
				c.JSON(500, gin.H{"error": "Wallet service unavailable"})
			case *errors.APIError:
				logger.Error("API error: %v", e)
				c.JSON(e.StatusCode, gin.H{"error": e.Message})
			default:
				logger.Error("Unexpected error: %v", e)
				c.JSON(500, gin.H{"error": "Internal server error"})
			}
			c.Abort()
		}
	}
}
