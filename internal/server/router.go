package server

import (
	"net/http"

	"github.com/aspect-build/attestd/internal/server/handler"
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the Gin router with all routes.
func NewRouter(attester handler.Attester, cfg *Config) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(gin.Recovery(), RequestID(), AccessLog())

	attest := handler.HandleAttestation(attester)
	cors := CORS(cfg.CORSOrigins)

	r.GET("/attestation", cors, attest)
	// Alias for OpenAI-compatible gateways that prefix every route with /v1.
	r.GET("/v1/attestation", cors, attest)
	r.GET("/health", handler.HandleHealth())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}
