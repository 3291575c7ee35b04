package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MetadataPath is the well-known path of the authorization server's
// metadata document (RFC 8414).
const MetadataPath = "/.well-known/oauth-authorization-server"

// Metadata is the subset of the authorization server's published
// metadata the gateway consumes.
type Metadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// FetchMetadataDocument retrieves the authorization server's metadata
// document and returns the raw body with its content type, so callers
// can re-serve it verbatim.
func FetchMetadataDocument(ctx context.Context, client *http.Client, authServerURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authServerURL+MetadataPath, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build metadata request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch authorization server metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch authorization server metadata: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read authorization server metadata: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	return body, contentType, nil
}

// fetchMetadata parses the metadata document and requires a jwks_uri,
// which is where the signing-key set lives.
func fetchMetadata(ctx context.Context, client *http.Client, authServerURL string) (*Metadata, error) {
	body, _, err := FetchMetadataDocument(ctx, client, authServerURL)
	if err != nil {
		return nil, err
	}
	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("parse authorization server metadata: %w", err)
	}
	if md.JWKSURI == "" {
		return nil, fmt.Errorf("authorization server metadata has no jwks_uri")
	}
	return &md, nil
}
