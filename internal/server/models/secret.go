// Package models defines the server-side data model for vault secrets: the
// user-facing LogicalSecret and the physical DistributionRecord rows it fans
// out into.
package models

// Sentinel is stored where a recipient slot, tag set or index attribute is
// structurally required but semantically empty. DynamoDB GSI keys cannot be
// null, so absence is encoded as this literal.
const Sentinel = "NONE"

// DefaultSubdirectory is the stored value for secrets created without an
// explicit subdirectory.
const DefaultSubdirectory = "default"

// Role is a per-recipient permission on a shared secret. Only "editor"
// grants mutation rights on secrets the caller does not own.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
)

// Distribution is the set of users/groups a secret is shared with, plus the
// role granted to each principal.
type Distribution struct {
	Users  []string        `json:"users"`
	Groups []string        `json:"groups"`
	Roles  map[string]Role `json:"roles"`
}

// LogicalSecret is the user-facing unit: one credential, uniquely identified
// by (OwnerID, Site, Subdirectory, PasswordID), regardless of how many
// physical rows represent it.
type LogicalSecret struct {
	OwnerID      string       `json:"user_id"`
	Site         string       `json:"site"`
	PasswordID   string       `json:"password_id"`
	Subdirectory string       `json:"subdirectory"`
	Username     string       `json:"username"`
	Password     string       `json:"password"`
	Encrypted    bool         `json:"encrypted"`
	SharedWith   Distribution `json:"shared_with"`
	Notes        string       `json:"notes"`
	Tags         []string     `json:"tags"`
	Favorite     bool         `json:"favorite"`
	Version      int64        `json:"version"`
	LastModified string       `json:"last_modified"`
	OwnedByMe    bool         `json:"owned_by_me"`
}

// DistributionRecord is one physical row of the passwords table. The sort
// key is composite: {site}[#{subdirectory}]#{passwordId}#{group:<g>|user:<u>}.
// Exactly one of SharedWithGroups/SharedWithUsers carries a real principal;
// the other holds the sentinel.
type DistributionRecord struct {
	UserID           string            `dynamodbav:"user_id"`
	SortKey          string            `dynamodbav:"site"`
	Username         string            `dynamodbav:"username"`
	Password         string            `dynamodbav:"password"`
	Encrypted        bool              `dynamodbav:"encrypted"`
	SharedWithGroups string            `dynamodbav:"shared_with_groups"`
	SharedWithUsers  string            `dynamodbav:"shared_with_users"`
	SharedWithRoles  map[string]string `dynamodbav:"shared_with_roles"`
	Subdirectory     string            `dynamodbav:"subdirectory"`
	Notes            string            `dynamodbav:"notes"`
	Tags             []string          `dynamodbav:"tags,stringset"`
	Favorite         bool              `dynamodbav:"favorite"`
	Version          int64             `dynamodbav:"version"`
	LastModified     string            `dynamodbav:"last_modified"`
	PasswordID       string            `dynamodbav:"password_id"`
}

// NormalizeSubdirectory maps the empty string to the stored default so that
// "" and "default" always compare equal.
func NormalizeSubdirectory(s string) string {
	if s == "" {
		return DefaultSubdirectory
	}
	return s
}

// RolesToStrings converts a typed role map to the stored string form.
func RolesToStrings(roles map[string]Role) map[string]string {
	if len(roles) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(roles))
	for k, v := range roles {
		out[k] = string(v)
	}
	return out
}

// RolesFromStrings converts a stored role map back to the typed form.
func RolesFromStrings(roles map[string]string) map[string]Role {
	out := make(map[string]Role, len(roles))
	for k, v := range roles {
		out[k] = Role(v)
	}
	return out
}
