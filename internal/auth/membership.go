package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/workos/workos-go/v4/pkg/usermanagement"
	"go.uber.org/zap"
)

// MembershipChecker answers whether a subject is an active member of an
// organization. Implementations must treat an empty result as "not a
// member", not as an error.
type MembershipChecker interface {
	HasActiveMembership(ctx context.Context, userID, orgID string) (bool, error)
}

var errMembershipUnavailable = errors.New("membership service unavailable")

// WorkOSMemberships queries WorkOS User Management for active
// organization memberships. A circuit breaker fails queries fast while
// WorkOS is misbehaving; the caller turns any query error into the same
// client-visible denial as an empty result.
type WorkOSMemberships struct {
	client  *usermanagement.Client
	breaker *Breaker
	logger  *zap.Logger
}

// NewWorkOSMemberships builds a checker authenticated with the given
// WorkOS API key.
func NewWorkOSMemberships(apiKey string, logger *zap.Logger) *WorkOSMemberships {
	return &WorkOSMemberships{
		client: &usermanagement.Client{
			APIKey:     apiKey,
			HTTPClient: &http.Client{Timeout: 10 * time.Second},
		},
		breaker: NewBreaker(3, 30*time.Second),
		logger:  logger,
	}
}

// HasActiveMembership lists the subject's active memberships in orgID
// and reports whether any exist.
func (m *WorkOSMemberships) HasActiveMembership(ctx context.Context, userID, orgID string) (bool, error) {
	if !m.breaker.Allow() {
		return false, errMembershipUnavailable
	}

	resp, err := m.client.ListOrganizationMemberships(ctx, usermanagement.ListOrganizationMembershipsOpts{
		UserID:         userID,
		OrganizationID: orgID,
		Statuses:       []usermanagement.OrganizationMembershipStatus{usermanagement.Active},
	})
	if err != nil {
		m.breaker.ReportFailure()
		return false, fmt.Errorf("list organization memberships: %w", err)
	}
	m.breaker.ReportSuccess()

	m.logger.Debug("membership query",
		zap.String("user_id", userID),
		zap.String("organization_id", orgID),
		zap.Int("active_memberships", len(resp.Data)))
	return len(resp.Data) > 0, nil
}
