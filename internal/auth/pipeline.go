// Package auth implements the per-request authorization pipeline: bearer
// token validation against the authorization server's signing keys,
// followed by organization membership validation.
package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrNoToken means the Authorization header was absent or not in
	// "Bearer <token>" form.
	ErrNoToken = errors.New("missing bearer token")
	// ErrInvalidToken covers signature mismatch, expiry, issuer mismatch,
	// and a missing subject claim.
	ErrInvalidToken = errors.New("invalid bearer token")
	// ErrMembershipDenied means the token's subject has no active
	// membership in the requested organization.
	ErrMembershipDenied = errors.New("no active membership in organization")
)

// Principal identifies an authenticated caller for the remainder of one
// request. It is stack-local and never persisted or cached.
type Principal struct {
	SubjectID      string
	OrganizationID string
}

// Pipeline runs the two-phase authorization sequence. Phase B (membership)
// only runs when phase A (token) succeeds, because it needs the subject
// phase A extracts. Independent requests run their pipelines in parallel;
// the only shared state is the verifier's key cache.
type Pipeline struct {
	verifier    TokenVerifier
	memberships MembershipChecker
	logger      *zap.Logger
}

// NewPipeline wires the two phases together.
func NewPipeline(verifier TokenVerifier, memberships MembershipChecker, logger *zap.Logger) *Pipeline {
	return &Pipeline{verifier: verifier, memberships: memberships, logger: logger}
}

// Authorize validates the Authorization header value for a request
// targeting orgID. On success it returns the authenticated principal;
// on failure it returns one of ErrNoToken, ErrInvalidToken, or
// ErrMembershipDenied. Callers render all three as the same 401.
func (p *Pipeline) Authorize(ctx context.Context, authorization, orgID string) (*Principal, error) {
	rawToken, ok := bearerToken(authorization)
	if !ok {
		return nil, ErrNoToken
	}

	claims, err := p.verifier.Verify(ctx, rawToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, err
		}
		return nil, errors.Join(ErrInvalidToken, err)
	}

	active, err := p.memberships.HasActiveMembership(ctx, claims.Subject, orgID)
	if err != nil {
		// A failed query and an empty result are indistinguishable to the
		// client; only the log detail differs.
		p.logger.Warn("membership query failed",
			zap.String("organization_id", orgID),
			zap.String("subject", claims.Subject),
			zap.Error(err))
		return nil, ErrMembershipDenied
	}
	if !active {
		p.logger.Info("membership denied",
			zap.String("organization_id", orgID),
			zap.String("subject", claims.Subject))
		return nil, ErrMembershipDenied
	}

	return &Principal{SubjectID: claims.Subject, OrganizationID: orgID}, nil
}

// bearerToken extracts the token from an Authorization header in
// "Bearer <token>" form. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
