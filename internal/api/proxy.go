package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ragieai/workos-mcp-gateway/internal/auth"
)

// handleMCP runs the per-request gate sequence: mapping-presence check,
// authentication, path rewrite, credential substitution, forward.
func (s *Server) handleMCP(c *gin.Context) {
	orgID := c.Param("orgId")

	// The mapping gate runs before any auth work. Unknown tenants are
	// turned away without learning anything about the authentication
	// requirement, and without a single collaborator call.
	if !s.resolver.HasMapping(orgID) {
		RecordDecision("unmapped", orgID)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	principal, err := s.pipeline.Authorize(c.Request.Context(), c.GetHeader("Authorization"), orgID)
	if err != nil {
		s.denyUnauthorized(c, orgID, err)
		return
	}

	partition, err := s.resolver.Partition(orgID)
	if err == nil {
		var apiKey string
		apiKey, err = s.resolver.APIKey(orgID)
		if err == nil {
			s.forward(c, orgID, partition, apiKey, principal)
			return
		}
	}

	// Unreachable when the table passed load-time validation; guards
	// hand-built resolvers whose gate and lookup disagree.
	s.logger.Error("resolver lookup failed after mapping gate",
		zap.String("request_id", c.GetString("requestID")),
		zap.String("organization_id", orgID),
		zap.Error(err))
	RecordDecision("unmapped", orgID)
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
}

// forward rewrites the upstream path, substitutes the upstream
// credential, and hands the exchange to the transport.
func (s *Server) forward(c *gin.Context, orgID, partition, apiKey string, principal *auth.Principal) {
	// remainder keeps its leading slash; "/{orgId}/mcp/tool" → "/tool".
	remainder := c.Param("path")
	upstreamPath := "/mcp/" + partition + remainder

	s.logger.Debug("forwarding request",
		zap.String("request_id", c.GetString("requestID")),
		zap.String("organization_id", orgID),
		zap.String("subject", principal.SubjectID),
		zap.String("partition", partition),
		zap.String("upstream_path", upstreamPath))
	RecordDecision("forwarded", orgID)

	s.proxy.Forward(c.Writer, c.Request, upstreamPath, func(req *http.Request) {
		// The upstream never sees the end user's bearer token, only the
		// service credential for the resolved partition.
		req.Header.Set("Authorization", "Bearer "+apiKey)
	})
}

// denyUnauthorized renders the uniform 401 for all three authorization
// failure kinds. The kinds differ only in log detail and metrics, never
// in the client-visible response.
func (s *Server) denyUnauthorized(c *gin.Context, orgID string, err error) {
	outcome := "invalid_token"
	switch {
	case errors.Is(err, auth.ErrNoToken):
		outcome = "no_token"
	case errors.Is(err, auth.ErrMembershipDenied):
		outcome = "membership_denied"
	}
	s.logger.Warn("request unauthorized",
		zap.String("request_id", c.GetString("requestID")),
		zap.String("organization_id", orgID),
		zap.String("reason", outcome),
		zap.Error(err))
	RecordDecision(outcome, orgID)

	c.Header("WWW-Authenticate", s.challengeHeader())
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization needed"})
}

func (s *Server) challengeHeader() string {
	return fmt.Sprintf(`Bearer error="unauthorized", error_description="Authorization needed", resource_metadata="%s/.well-known/oauth-protected-resource"`, s.cfg.BaseURL)
}
