package handler

import (
	"net/http"
	"time"

	"github.com/aspect-build/attestd/internal/attestation"
	"github.com/gin-gonic/gin"
)

// HandleHealth handles GET /health.
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "attestation",
			"timestamp": attestation.FormatTimestamp(time.Now()),
		})
	}
}
