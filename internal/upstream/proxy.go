// Package upstream is the transport collaborator that carries rewritten
// requests to the upstream MCP API. Connection pooling, TLS, and body
// streaming are delegated to net/http/httputil.
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"
)

type directiveKey struct{}

// directive carries the per-request rewrite decision from Forward into
// the shared proxy's director.
type directive struct {
	path   string
	mutate func(*http.Request)
}

// Proxy forwards requests to a fixed upstream base URL. Callers supply
// the rewritten path and a pre-send header-mutation hook per request;
// everything else about the exchange, including upstream error statuses,
// passes through unmodified.
type Proxy struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

// New builds a proxy for the given upstream base URL.
func New(baseURL string, logger *zap.Logger) (*Proxy, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url %q: %w", baseURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", baseURL)
	}

	p := &Proxy{target: target, logger: logger}
	p.proxy = &httputil.ReverseProxy{
		Director: p.direct,
		// MCP responses stream; flush as bytes arrive.
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream request failed",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error": "Upstream unavailable"}`))
		},
	}
	return p, nil
}

// Forward sends the request upstream at the given path, after applying
// the mutation hook to the outgoing request. The response is streamed
// back to w unmodified.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, path string, mutate func(*http.Request)) {
	ctx := context.WithValue(r.Context(), directiveKey{}, directive{path: path, mutate: mutate})
	p.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func (p *Proxy) direct(req *http.Request) {
	d, _ := req.Context().Value(directiveKey{}).(directive)

	req.URL.Scheme = p.target.Scheme
	req.URL.Host = p.target.Host
	req.URL.Path = d.path
	req.URL.RawPath = ""
	req.Host = p.target.Host

	if d.mutate != nil {
		d.mutate(req)
	}
}
