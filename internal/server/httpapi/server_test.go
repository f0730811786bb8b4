package httpapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/logging"
	"github.com/runavault/runavault/internal/server/auth"
	"github.com/runavault/runavault/internal/server/directory"
	"github.com/runavault/runavault/internal/server/models"
	"github.com/runavault/runavault/internal/server/secrets"
)

// fakeVerifier accepts a fixed set of tokens.
type fakeVerifier struct {
	principals map[string]*auth.Principal
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*auth.Principal, error) {
	if p, ok := f.principals[token]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: invalid token", common.ErrUnauthorized)
}

// fakeSecretService delegates to overridable funcs.
type fakeSecretService struct {
	createFn func(ctx context.Context, caller *auth.Principal, req secrets.CreateRequest) (*models.LogicalSecret, error)
	getFn    func(ctx context.Context, caller *auth.Principal, site, subdirectory string) (*secrets.GetResult, error)
	editFn   func(ctx context.Context, caller *auth.Principal, req secrets.EditRequest) (*secrets.EditResult, error)
	deleteFn func(ctx context.Context, caller *auth.Principal, site, ownerID, subdirectory string) (int, error)
	listFn   func(ctx context.Context, caller *auth.Principal) ([]models.LogicalSecret, error)
	shareFn  func(ctx context.Context, caller *auth.Principal, subdirectory string, dist models.Distribution) ([]models.LogicalSecret, error)
}

func (f *fakeSecretService) Create(ctx context.Context, caller *auth.Principal, req secrets.CreateRequest) (*models.LogicalSecret, error) {
	return f.createFn(ctx, caller, req)
}

func (f *fakeSecretService) Get(ctx context.Context, caller *auth.Principal, site, subdirectory string) (*secrets.GetResult, error) {
	return f.getFn(ctx, caller, site, subdirectory)
}

func (f *fakeSecretService) Edit(ctx context.Context, caller *auth.Principal, req secrets.EditRequest) (*secrets.EditResult, error) {
	return f.editFn(ctx, caller, req)
}

func (f *fakeSecretService) Delete(ctx context.Context, caller *auth.Principal, site, ownerID, subdirectory string) (int, error) {
	return f.deleteFn(ctx, caller, site, ownerID, subdirectory)
}

func (f *fakeSecretService) List(ctx context.Context, caller *auth.Principal) ([]models.LogicalSecret, error) {
	return f.listFn(ctx, caller)
}

func (f *fakeSecretService) ShareDirectory(ctx context.Context, caller *auth.Principal, subdirectory string, dist models.Distribution) ([]models.LogicalSecret, error) {
	return f.shareFn(ctx, caller, subdirectory, dist)
}

// fakeDirectoryService serves canned listings and records mutations.
type fakeDirectoryService struct {
	users  []directory.User
	groups []directory.Group

	createdUsers  []directory.CreateUserRequest
	deletedUsers  []string
	createdGroups []string
	err           error
}

func (f *fakeDirectoryService) CreateUser(ctx context.Context, caller *auth.Principal, req directory.CreateUserRequest) error {
	if f.err != nil {
		return f.err
	}
	f.createdUsers = append(f.createdUsers, req)
	return nil
}

func (f *fakeDirectoryService) DeleteUser(ctx context.Context, caller *auth.Principal, username string) error {
	if f.err != nil {
		return f.err
	}
	f.deletedUsers = append(f.deletedUsers, username)
	return nil
}

func (f *fakeDirectoryService) UpdateUserAttributes(ctx context.Context, caller *auth.Principal, username string, attrs map[string]string) error {
	return f.err
}

func (f *fakeDirectoryService) ListUsers(ctx context.Context, caller *auth.Principal) ([]directory.User, error) {
	return f.users, f.err
}

func (f *fakeDirectoryService) CreateGroup(ctx context.Context, caller *auth.Principal, name, description string) error {
	if f.err != nil {
		return f.err
	}
	f.createdGroups = append(f.createdGroups, name)
	return nil
}

func (f *fakeDirectoryService) DeleteGroup(ctx context.Context, caller *auth.Principal, name string) error {
	return f.err
}

func (f *fakeDirectoryService) ListGroups(ctx context.Context, caller *auth.Principal) ([]directory.Group, error) {
	return f.groups, f.err
}

func (f *fakeDirectoryService) ListUserGroups(ctx context.Context, caller *auth.Principal, username string) ([]directory.Group, error) {
	return f.groups, f.err
}

func (f *fakeDirectoryService) AddUserToGroups(ctx context.Context, caller *auth.Principal, username string, groups []string) error {
	return f.err
}

func (f *fakeDirectoryService) RemoveUserFromGroups(ctx context.Context, caller *auth.Principal, username string, groups []string) error {
	return f.err
}

func newTestServer(sec SecretService, dir DirectoryService) *Server {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	verifier := &fakeVerifier{principals: map[string]*auth.Principal{
		"user-token":  {ID: "user-1", Groups: []string{"G1"}},
		"admin-token": {ID: "admin-1", Groups: []string{"Admin"}},
	}}
	return NewServer(":0", logger, verifier, sec, dir, 5*time.Second)
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}
