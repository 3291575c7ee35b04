package upstream

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestForward_RewritesPathAndMutatesRequest(t *testing.T) {
	var gotPath, gotAuth, gotMethod, gotBody string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Mcp-Session-Id", "session-9")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer up.Close()

	p, err := New(up.URL, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "http://gateway.local/org_1/mcp/tool", strings.NewReader(`{"q": 1}`))
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()

	p.Forward(rec, req, "/mcp/p1/tool", func(out *http.Request) {
		out.Header.Set("Authorization", "Bearer service-key")
	})

	if gotPath != "/mcp/p1/tool" {
		t.Fatalf("upstream path = %q, want /mcp/p1/tool", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Fatalf("upstream Authorization = %q, want the substituted credential", gotAuth)
	}
	if gotMethod != http.MethodPost || gotBody != `{"q": 1}` {
		t.Fatalf("method/body not forwarded: %s %q", gotMethod, gotBody)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want upstream status passed through", rec.Code)
	}
	if rec.Body.String() != `{"ok": true}` {
		t.Fatalf("body = %q, want upstream body passed through", rec.Body.String())
	}
	if rec.Header().Get("Mcp-Session-Id") != "session-9" {
		t.Fatal("upstream response headers should pass through")
	}
}

func TestForward_UpstreamErrorStatusPassesThrough(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer up.Close()

	p, err := New(up.URL, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "http://gateway.local/x", nil), "/mcp/p1/x", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 passed through", rec.Code)
	}
}

func TestForward_UnreachableUpstreamIsBadGateway(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	up.Close()

	p, err := New(up.URL, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec := httptest.NewRecorder()
	p.Forward(rec, httptest.NewRequest(http.MethodGet, "http://gateway.local/x", nil), "/mcp/p1/x", nil)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if rec.Body.String() != `{"error": "Upstream unavailable"}` {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	for _, bad := range []string{"", "not-a-url", "/just/a/path", "localhost:8080"} {
		if _, err := New(bad, zap.NewNop()); err == nil {
			t.Fatalf("New(%q) should fail", bad)
		}
	}
}
