package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aspect-build/attestd/internal/attestation"
	"github.com/aspect-build/attestd/internal/logx"
	"github.com/gin-gonic/gin"
)

// Attester produces one evidence document per call.
type Attester interface {
	Attest(ctx context.Context) attestation.Response
}

// HandleAttestation handles GET /attestation and GET /v1/attestation.
//
// The response is always 200: collector failures are carried inline in the
// document rather than turned into a server error.
func HandleAttestation(attester Attester) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := attester.Attest(c.Request.Context())

		body, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			logx.Errorf("encode attestation response: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}
