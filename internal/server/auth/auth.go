// Package auth verifies bearer tokens against the identity provider and
// normalizes the group claims they carry. The rest of the server only ever
// sees a Principal.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/runavault/runavault/internal/common"
)

// Principal is a verified caller identity.
type Principal struct {
	ID     string
	Groups []string
}

// Verifier turns an opaque bearer token into a Principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("%w: no bearer token provided", common.ErrUnauthorized)
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

// IsAdmin reports whether the principal belongs to the Admin group.
func (p *Principal) IsAdmin() bool {
	for _, g := range p.Groups {
		if g == "Admin" {
			return true
		}
	}
	return false
}

// NormalizeGroups flattens the group claim into a list of group names. The
// identity provider emits the claim in several shapes depending on the token
// trigger: a JSON array, a bracketed string ("[G1 G2]") or a space-delimited
// string ("G1 G2"). All forms normalize to the same list.
func NormalizeGroups(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case []string:
		return cleanGroups(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return cleanGroups(parts)
	case string:
		if strings.HasPrefix(v, "[") {
			var parsed []string
			if err := json.Unmarshal([]byte(v), &parsed); err == nil {
				return cleanGroups(parsed)
			}
		}
		return cleanGroups(strings.Fields(v))
	default:
		return nil
	}
}

func cleanGroups(groups []string) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.Trim(strings.TrimSpace(g), "[]")
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
