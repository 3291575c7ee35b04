package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ResolverPolicy controls how organization ids absent from the mapping
// table are treated.
type ResolverPolicy string

const (
	// ResolverPermissive treats every organization id as mapped, falling
	// back to defaults when no entry exists.
	ResolverPermissive ResolverPolicy = "permissive"
	// ResolverStrict rejects organization ids that have no mapping entry.
	ResolverStrict ResolverPolicy = "strict"
)

// APIKeyPolicy controls whether mapping entries may omit their upstream
// credential.
type APIKeyPolicy string

const (
	// APIKeyAllowFallback lets entries without a credential fall back to
	// the configured default upstream key.
	APIKeyAllowFallback APIKeyPolicy = "fallback"
	// APIKeyRequireExplicit makes a missing credential a load-time error.
	APIKeyRequireExplicit APIKeyPolicy = "explicit"
)

// Config holds the complete gateway configuration, loaded once at startup.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string
	// BaseURL is the public URL of this gateway, without trailing slash.
	// Used to build the WWW-Authenticate resource_metadata parameter and
	// the protected-resource metadata document.
	BaseURL string
	// AuthServerURL is the authorization server (WorkOS AuthKit) base URL.
	// Token issuer claims must match it exactly.
	AuthServerURL string
	// WorkOSAPIKey authenticates membership queries against WorkOS.
	WorkOSAPIKey string
	// UpstreamURL is the base URL of the upstream MCP API.
	UpstreamURL string
	// DefaultAPIKey is the upstream credential used when a mapping entry
	// carries none (only under APIKeyAllowFallback).
	DefaultAPIKey string
	// MappingFile is the path of the organization mapping JSON file.
	MappingFile string

	ResolverPolicy ResolverPolicy
	APIKeyPolicy   APIKeyPolicy

	// CORSOrigins restricts browser origins; empty means allow all.
	CORSOrigins []string

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, after loading an
// optional .env file. Missing required values are configuration errors:
// the caller must treat them as fatal before serving traffic.
func Load() (*Config, error) {
	// Env vars set in the system take precedence over the .env file.
	_ = godotenv.Load(".env")

	cfg := &Config{
		ListenAddr:      getEnv("MCPGW_LISTEN_ADDR", ":8080"),
		BaseURL:         strings.TrimRight(getEnv("MCPGW_BASE_URL", "http://localhost:8080"), "/"),
		AuthServerURL:   strings.TrimRight(os.Getenv("MCPGW_AUTH_SERVER_URL"), "/"),
		WorkOSAPIKey:    os.Getenv("WORKOS_API_KEY"),
		UpstreamURL:     strings.TrimRight(os.Getenv("MCPGW_UPSTREAM_URL"), "/"),
		DefaultAPIKey:   os.Getenv("MCPGW_DEFAULT_API_KEY"),
		MappingFile:     getEnv("MCPGW_ORG_MAPPING_FILE", "org-mapping.json"),
		ShutdownTimeout: 10 * time.Second,
	}

	if envBool("MCPGW_STRICT_ORG_MAPPING") {
		cfg.ResolverPolicy = ResolverStrict
	} else {
		cfg.ResolverPolicy = ResolverPermissive
	}
	if envBool("MCPGW_REQUIRE_ORG_API_KEY") {
		cfg.APIKeyPolicy = APIKeyRequireExplicit
	} else {
		cfg.APIKeyPolicy = APIKeyAllowFallback
	}

	if origins := os.Getenv("MCPGW_CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if s := strings.TrimSpace(o); s != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, s)
			}
		}
	}

	if cfg.AuthServerURL == "" {
		return nil, fmt.Errorf("MCPGW_AUTH_SERVER_URL is not set")
	}
	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("MCPGW_UPSTREAM_URL is not set")
	}
	if cfg.WorkOSAPIKey == "" {
		return nil, fmt.Errorf("WORKOS_API_KEY is not set")
	}
	if cfg.APIKeyPolicy == APIKeyAllowFallback && cfg.DefaultAPIKey == "" {
		return nil, fmt.Errorf("MCPGW_DEFAULT_API_KEY is required unless MCPGW_REQUIRE_ORG_API_KEY is enabled")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "1") || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}
