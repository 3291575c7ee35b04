package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ragieai/workos-mcp-gateway/internal/auth"
)

// handleProtectedResourceMetadata serves this gateway's RFC 9728
// protected-resource metadata, pointing clients at the authorization
// server that issues acceptable tokens.
func (s *Server) handleProtectedResourceMetadata(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"resource":                 s.cfg.BaseURL + "/",
		"authorization_servers":    []string{s.cfg.AuthServerURL},
		"bearer_methods_supported": []string{"header"},
	})
}

// handleAuthorizationServerMetadata re-serves the identity provider's
// own metadata document verbatim, so clients discover token endpoints
// without talking to the provider directly.
func (s *Server) handleAuthorizationServerMetadata(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	start := time.Now()
	body, contentType, err := auth.FetchMetadataDocument(ctx, s.metadataClient, s.cfg.AuthServerURL)
	RecordExternalOp("auth_server_metadata", time.Since(start), err == nil)
	if err != nil {
		s.logger.Error("authorization server metadata fetch failed",
			zap.String("request_id", c.GetString("requestID")),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch authorization server metadata"})
		return
	}
	c.Data(http.StatusOK, contentType, body)
}
