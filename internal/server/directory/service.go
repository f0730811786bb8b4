package directory

import (
	"context"
	"fmt"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/logging"
	"github.com/runavault/runavault/internal/server/auth"
)

// Service wraps the identity provider with the vault's authorization rules.
// Listing is open to any authenticated caller so the sharing UI can resolve
// recipients; every mutation requires Admin group membership.
type Service struct {
	provider Provider
	logger   logging.Logger
}

func NewService(provider Provider, logger logging.Logger) *Service {
	return &Service{
		provider: provider,
		logger:   logger.With("module", "directory"),
	}
}

// CreateUserRequest carries the attributes of a new directory user. Email
// doubles as the username.
type CreateUserRequest struct {
	Email      string
	GivenName  string
	FamilyName string
}

func (s *Service) CreateUser(ctx context.Context, caller *auth.Principal, req CreateUserRequest) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	if req.Email == "" {
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	if err := s.provider.CreateUser(ctx, req.Email, req.GivenName, req.FamilyName); err != nil {
		return err
	}
	s.logger.Info(ctx, "user created", "email", req.Email)
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, caller *auth.Principal, username string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	if username == "" {
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if err := s.provider.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "username", username)
	return nil
}

func (s *Service) UpdateUserAttributes(ctx context.Context, caller *auth.Principal, username string, attrs map[string]string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	if username == "" {
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if len(attrs) == 0 {
		return fmt.Errorf("%w: no attributes to update", common.ErrValidation)
	}
	return s.provider.UpdateUserAttributes(ctx, username, attrs)
}

func (s *Service) ListUsers(ctx context.Context, caller *auth.Principal) ([]User, error) {
	return s.provider.ListUsers(ctx)
}

func (s *Service) CreateGroup(ctx context.Context, caller *auth.Principal, name, description string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	if name == "" {
		return fmt.Errorf("%w: group name is required", common.ErrValidation)
	}
	if err := s.provider.CreateGroup(ctx, name, description); err != nil {
		return err
	}
	s.logger.Info(ctx, "group created", "group", name)
	return nil
}

func (s *Service) DeleteGroup(ctx context.Context, caller *auth.Principal, name string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	if name == "" {
		return fmt.Errorf("%w: group name is required", common.ErrValidation)
	}
	if err := s.provider.DeleteGroup(ctx, name); err != nil {
		return err
	}
	s.logger.Info(ctx, "group deleted", "group", name)
	return nil
}

func (s *Service) ListGroups(ctx context.Context, caller *auth.Principal) ([]Group, error) {
	return s.provider.ListGroups(ctx)
}

// ListUserGroups returns the groups a user belongs to. Callers may inspect
// their own membership; reading another user's requires Admin.
func (s *Service) ListUserGroups(ctx context.Context, caller *auth.Principal, username string) ([]Group, error) {
	if username == "" {
		username = caller.ID
	}
	if username != caller.ID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	return s.provider.ListUserGroups(ctx, username)
}

func (s *Service) AddUserToGroups(ctx context.Context, caller *auth.Principal, username string, groups []string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	if username == "" || len(groups) == 0 {
		return fmt.Errorf("%w: username and at least one group are required", common.ErrValidation)
	}
	return s.provider.AddUserToGroups(ctx, username, groups)
}

func (s *Service) RemoveUserFromGroups(ctx context.Context, caller *auth.Principal, username string, groups []string) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: admin access required", common.ErrForbidden)
	}
	if username == "" || len(groups) == 0 {
		return fmt.Errorf("%w: username and at least one group are required", common.ErrValidation)
	}
	return s.provider.RemoveUserFromGroups(ctx, username, groups)
}
