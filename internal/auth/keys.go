package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

// Claims carries the token claims the rest of the request path needs.
type Claims struct {
	Subject string
}

// TokenVerifier validates a raw bearer token and extracts its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// RemoteVerifier validates tokens against the authorization server's
// published signing-key set. The key-set location is discovered lazily
// from the server's metadata on first verification and kept for the
// life of the verifier; the key set itself is managed by
// oidc.RemoteKeySet, which caches keys by key id and tolerates
// concurrent refreshes.
type RemoteVerifier struct {
	issuer string
	client *http.Client
	logger *zap.Logger

	mu  sync.Mutex
	ver *oidc.IDTokenVerifier
}

// NewRemoteVerifier builds a verifier for tokens issued by issuer. The
// verifier owns its key cache; construct one per gateway and tear it
// down with it.
func NewRemoteVerifier(issuer string, client *http.Client, logger *zap.Logger) *RemoteVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteVerifier{issuer: issuer, client: client, logger: logger}
}

// Verify checks the token's signature, expiry, and exact issuer match,
// then extracts the subject claim. All failures, including key-set
// resolution failures, surface as ErrInvalidToken: the caller maps them
// to one uniform 401.
func (v *RemoteVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	verifier, err := v.tokenVerifier(ctx)
	if err != nil {
		v.logger.Warn("signing key set unavailable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	token, err := verifier.Verify(oidc.ClientContext(ctx, v.client), rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if token.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject claim", ErrInvalidToken)
	}
	return &Claims{Subject: token.Subject}, nil
}

// tokenVerifier resolves the key-set location once and reuses the
// resulting verifier. A failed discovery is not cached; the next
// verification retries it.
func (v *RemoteVerifier) tokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.ver != nil {
		return v.ver, nil
	}

	md, err := fetchMetadata(ctx, v.client, v.issuer)
	if err != nil {
		return nil, err
	}

	// The key set fetches lazily on first use and re-fetches on unknown
	// key ids, so a rotated key is picked up without coordination.
	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), v.client), md.JWKSURI)
	v.ver = oidc.NewVerifier(v.issuer, keySet, &oidc.Config{SkipClientIDCheck: true})
	v.logger.Info("resolved signing key set", zap.String("jwks_uri", md.JWKSURI))
	return v.ver, nil
}
