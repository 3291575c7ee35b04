// Package mapping translates gateway-facing organization identifiers
// into upstream partition names and credentials. The table is loaded
// once at startup and is immutable afterwards; there is no write path.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ragieai/workos-mcp-gateway/internal/config"
)

var (
	// ErrOrganizationNotFound is returned under the strict resolver policy
	// for organization ids with no mapping entry.
	ErrOrganizationNotFound = errors.New("organization not found in mapping table")

	// ErrMissingAPIKey is returned when an entry carries no credential and
	// the api-key policy forbids falling back to the default.
	ErrMissingAPIKey = errors.New("mapping entry has no api key")
)

// ValidationError reports a shape violation in the mapping file,
// qualified by the field path of the offending value.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("org mapping: %s: %s", e.Path, e.Reason)
}

// Entry is one organization's upstream routing target. APIKey is
// optional unless the api-key policy requires it.
type Entry struct {
	Partition string `json:"partition"`
	APIKey    string `json:"apiKey,omitempty"`
}

// Table maps organization ids (case-sensitive, as supplied by callers)
// to entries. Duplicate keys in the source JSON are not representable;
// encoding/json keeps the last occurrence.
type Table map[string]Entry

// Load reads and validates the mapping file at path. Any failure here is
// a configuration error: callers must abort startup rather than serve
// traffic with a partial table.
func Load(path string, policy config.ResolverPolicy, keyPolicy config.APIKeyPolicy, defaultAPIKey string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read org mapping %s: %w", path, err)
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse org mapping %s: %w", path, err)
	}

	if err := validate(table, keyPolicy); err != nil {
		return nil, err
	}

	return New(table, policy, keyPolicy, defaultAPIKey), nil
}

// validate checks every entry's shape. Organization ids are checked in
// sorted order so the first reported violation is deterministic.
func validate(table Table, keyPolicy config.APIKeyPolicy) error {
	orgIDs := make([]string, 0, len(table))
	for orgID := range table {
		orgIDs = append(orgIDs, orgID)
	}
	sort.Strings(orgIDs)

	for _, orgID := range orgIDs {
		entry := table[orgID]
		if entry.Partition == "" {
			return &ValidationError{Path: orgID + ".partition", Reason: "must be a non-empty string"}
		}
		if keyPolicy == config.APIKeyRequireExplicit && entry.APIKey == "" {
			return &ValidationError{Path: orgID + ".apiKey", Reason: ErrMissingAPIKey.Error()}
		}
	}
	return nil
}
