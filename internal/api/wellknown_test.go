package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/ragieai/workos-mcp-gateway/internal/auth"
	"github.com/ragieai/workos-mcp-gateway/internal/config"
	"github.com/ragieai/workos-mcp-gateway/internal/mapping"
	"github.com/ragieai/workos-mcp-gateway/internal/upstream"
)

func newDiscoveryGateway(t *testing.T, authServerURL string) *Server {
	t.Helper()
	up := newUpstreamRecorder(t)
	cfg := &config.Config{
		BaseURL:        "https://gateway.example.com",
		AuthServerURL:  authServerURL,
		UpstreamURL:    up.srv.URL,
		DefaultAPIKey:  "default-key",
		ResolverPolicy: config.ResolverPermissive,
		APIKeyPolicy:   config.APIKeyAllowFallback,
	}
	resolver := mapping.New(mapping.Table{}, cfg.ResolverPolicy, cfg.APIKeyPolicy, cfg.DefaultAPIKey)
	pipeline := auth.NewPipeline(&countingVerifier{subject: "user_123"}, &countingMemberships{active: true}, zap.NewNop())
	proxy, err := upstream.New(up.srv.URL, zap.NewNop())
	if err != nil {
		t.Fatalf("upstream.New: %v", err)
	}
	return NewServer(cfg, resolver, pipeline, proxy, zap.NewNop(), Options{})
}

func TestProtectedResourceMetadata(t *testing.T) {
	s := newDiscoveryGateway(t, "https://auth.example.com")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-protected-resource", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Resource               string   `json:"resource"`
		AuthorizationServers   []string `json:"authorization_servers"`
		BearerMethodsSupported []string `json:"bearer_methods_supported"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Resource != "https://gateway.example.com/" {
		t.Fatalf("resource = %q", doc.Resource)
	}
	if len(doc.AuthorizationServers) != 1 || doc.AuthorizationServers[0] != "https://auth.example.com" {
		t.Fatalf("authorization_servers = %v", doc.AuthorizationServers)
	}
	if len(doc.BearerMethodsSupported) != 1 || doc.BearerMethodsSupported[0] != "header" {
		t.Fatalf("bearer_methods_supported = %v", doc.BearerMethodsSupported)
	}
}

func TestAuthorizationServerMetadata_ReservedVerbatim(t *testing.T) {
	const doc = `{"issuer": "https://auth.example.com", "jwks_uri": "https://auth.example.com/jwks", "authorization_endpoint": "https://auth.example.com/authorize"}`
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != auth.MetadataPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}))
	defer idp.Close()

	s := newDiscoveryGateway(t, idp.URL)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != doc {
		t.Fatalf("body = %q, want the provider document verbatim", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestAuthorizationServerMetadata_ProviderDown(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	idp.Close()

	s := newDiscoveryGateway(t, idp.URL)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if rec.Body.String() != `{"error":"Failed to fetch authorization server metadata"}` {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
