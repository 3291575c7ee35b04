package mapping

import (
	"strings"

	"github.com/ragieai/workos-mcp-gateway/internal/config"
)

// Resolver answers the three per-request questions the dispatcher asks:
// is this organization mapped, which partition does it route to, and
// which upstream credential does it use. One implementation covers both
// resolver policies; behavior is dispatched on the policy flags chosen
// at startup.
type Resolver struct {
	table         Table
	policy        config.ResolverPolicy
	keyPolicy     config.APIKeyPolicy
	defaultAPIKey string
}

// New builds a Resolver over an already-validated table. Use Load to
// construct one from a mapping file.
func New(table Table, policy config.ResolverPolicy, keyPolicy config.APIKeyPolicy, defaultAPIKey string) *Resolver {
	if table == nil {
		table = Table{}
	}
	return &Resolver{
		table:         table,
		policy:        policy,
		keyPolicy:     keyPolicy,
		defaultAPIKey: defaultAPIKey,
	}
}

// HasMapping reports whether the organization may be routed at all.
// Permissive accepts every id; strict accepts only ids in the table.
func (r *Resolver) HasMapping(orgID string) bool {
	if r.policy == config.ResolverPermissive {
		return true
	}
	_, ok := r.table[orgID]
	return ok
}

// Partition returns the upstream partition for the organization. Under
// the permissive policy an unmapped id falls back to the lowercased id
// itself; under strict it is an error.
func (r *Resolver) Partition(orgID string) (string, error) {
	if entry, ok := r.table[orgID]; ok {
		return entry.Partition, nil
	}
	if r.policy == config.ResolverStrict {
		return "", ErrOrganizationNotFound
	}
	return strings.ToLower(orgID), nil
}

// APIKey returns the upstream credential for the organization. An entry
// without a credential uses the default key under APIKeyAllowFallback
// and fails under APIKeyRequireExplicit (the latter is also rejected at
// load time, so per-request it guards only hand-built tables).
func (r *Resolver) APIKey(orgID string) (string, error) {
	entry, ok := r.table[orgID]
	if !ok {
		if r.policy == config.ResolverStrict {
			return "", ErrOrganizationNotFound
		}
		return r.defaultAPIKey, nil
	}
	if entry.APIKey == "" {
		if r.keyPolicy == config.APIKeyRequireExplicit {
			return "", ErrMissingAPIKey
		}
		return r.defaultAPIKey, nil
	}
	return entry.APIKey, nil
}
