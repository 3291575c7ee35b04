// Package api is the gateway's HTTP surface: the per-request dispatch
// gate in front of the upstream MCP API, the OAuth discovery documents,
// and the operational endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/ragieai/workos-mcp-gateway/internal/auth"
	"github.com/ragieai/workos-mcp-gateway/internal/config"
	"github.com/ragieai/workos-mcp-gateway/internal/mapping"
	"github.com/ragieai/workos-mcp-gateway/internal/upstream"
)

// Server wires the resolver, the auth pipeline, and the upstream proxy
// into the HTTP routes they serve.
type Server struct {
	cfg      *config.Config
	resolver *mapping.Resolver
	pipeline *auth.Pipeline
	proxy    *upstream.Proxy
	logger   *zap.Logger
	router   *gin.Engine

	// metadataClient fetches the authorization server's discovery
	// document when re-serving it.
	metadataClient *http.Client
}

// Options toggles optional server behavior.
type Options struct {
	Tracing bool
}

// NewServer builds the router and registers all routes. The resolver
// must already be loaded; nothing here re-reads the mapping file.
func NewServer(cfg *config.Config, resolver *mapping.Resolver, pipeline *auth.Pipeline, proxy *upstream.Proxy, logger *zap.Logger, opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Tracing {
		router.Use(otelgin.Middleware("workos-mcp-gateway"))
	}
	router.Use(MetricsMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogger(logger))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Mcp-Session-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	router.Use(cors.New(corsCfg))

	s := &Server{
		cfg:            cfg,
		resolver:       resolver,
		pipeline:       pipeline,
		proxy:          proxy,
		logger:         logger,
		router:         router,
		metadataClient: &http.Client{Timeout: 10 * time.Second},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	// The mapping table is loaded before the listener binds, so readiness
	// reduces to process liveness.
	s.router.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/.well-known/oauth-protected-resource", s.handleProtectedResourceMetadata)
	s.router.GET("/.well-known/oauth-authorization-server", s.handleAuthorizationServerMetadata)

	s.router.Any("/:orgId/mcp/*path", s.handleMCP)
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
