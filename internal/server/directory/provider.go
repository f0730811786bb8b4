// Package directory exposes user and group administration as a thin
// pass-through over the identity provider. The vault itself never stores
// principals; Cognito is the system of record.
package directory

import "context"

// User is a directory entry as the SPA consumes it.
type User struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Group is an identity-provider group.
type Group struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Provider is the identity-provider admin surface. The Cognito
// implementation lives in this package; tests substitute fakes.
type Provider interface {
	CreateUser(ctx context.Context, email, givenName, familyName string) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUserAttributes(ctx context.Context, username string, attrs map[string]string) error

	CreateGroup(ctx context.Context, name, description string) error
	DeleteGroup(ctx context.Context, name string) error
	ListGroups(ctx context.Context) ([]Group, error)

	ListUserGroups(ctx context.Context, username string) ([]Group, error)
	AddUserToGroups(ctx context.Context, username string, groups []string) error
	RemoveUserFromGroups(ctx context.Context, username string, groups []string) error
}
