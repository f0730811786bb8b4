// Package httpapi exposes the vault over a JSON HTTP API. Handlers translate
// between the wire shapes the SPA expects and the service layer, and map
// error kinds to HTTP status codes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/runavault/runavault/internal/logging"
	"github.com/runavault/runavault/internal/server/auth"
	"github.com/runavault/runavault/internal/server/directory"
	"github.com/runavault/runavault/internal/server/models"
	"github.com/runavault/runavault/internal/server/secrets"
)

// SecretService is the secret-operation surface the API serves.
type SecretService interface {
	Create(ctx context.Context, caller *auth.Principal, req secrets.CreateRequest) (*models.LogicalSecret, error)
	Get(ctx context.Context, caller *auth.Principal, site, subdirectory string) (*secrets.GetResult, error)
	Edit(ctx context.Context, caller *auth.Principal, req secrets.EditRequest) (*secrets.EditResult, error)
	Delete(ctx context.Context, caller *auth.Principal, site, ownerID, subdirectory string) (int, error)
	List(ctx context.Context, caller *auth.Principal) ([]models.LogicalSecret, error)
	ShareDirectory(ctx context.Context, caller *auth.Principal, subdirectory string, dist models.Distribution) ([]models.LogicalSecret, error)
}

// DirectoryService is the user/group administration surface.
type DirectoryService interface {
	CreateUser(ctx context.Context, caller *auth.Principal, req directory.CreateUserRequest) error
	DeleteUser(ctx context.Context, caller *auth.Principal, username string) error
	UpdateUserAttributes(ctx context.Context, caller *auth.Principal, username string, attrs map[string]string) error
	ListUsers(ctx context.Context, caller *auth.Principal) ([]directory.User, error)
	CreateGroup(ctx context.Context, caller *auth.Principal, name, description string) error
	DeleteGroup(ctx context.Context, caller *auth.Principal, name string) error
	ListGroups(ctx context.Context, caller *auth.Principal) ([]directory.Group, error)
	ListUserGroups(ctx context.Context, caller *auth.Principal, username string) ([]directory.Group, error)
	AddUserToGroups(ctx context.Context, caller *auth.Principal, username string, groups []string) error
	RemoveUserFromGroups(ctx context.Context, caller *auth.Principal, username string, groups []string) error
}

type Server struct {
	address     string
	logger      logging.Logger
	verifier    auth.Verifier
	secrets     SecretService
	directory   DirectoryService
	readTimeout time.Duration
}

func NewServer(address string, logger logging.Logger, verifier auth.Verifier, sec SecretService, dir DirectoryService, readTimeout time.Duration) *Server {
	return &Server{
		address:     address,
		logger:      logger.With("module", "http_server"),
		verifier:    verifier,
		secrets:     sec,
		directory:   dir,
		readTimeout: readTimeout,
	}
}

func (s *Server) routes() http.Handler {
	router := httprouter.New()

	router.POST("/secrets/create", s.authenticated(s.handleCreateSecret))
	router.POST("/secrets/get", s.authenticated(s.handleGetSecret))
	router.POST("/secrets/edit", s.authenticated(s.handleEditSecret))
	router.POST("/secrets/delete", s.authenticated(s.handleDeleteSecret))
	router.POST("/secrets/share", s.authenticated(s.handleShareDirectory))
	router.GET("/secrets/list", s.authenticated(s.handleListSecrets))

	router.GET("/users", s.authenticated(s.handleListUsers))
	router.POST("/users/create", s.authenticated(s.handleCreateUser))
	router.POST("/users/delete", s.authenticated(s.handleDeleteUser))
	router.POST("/users/edit", s.authenticated(s.handleEditUser))
	router.POST("/users/groups", s.authenticated(s.handleListUserGroups))
	router.POST("/users/groups/add", s.authenticated(s.handleAddUserToGroups))
	router.POST("/users/groups/remove", s.authenticated(s.handleRemoveUserFromGroups))
	router.GET("/groups", s.authenticated(s.handleListGroups))
	router.POST("/groups/create", s.authenticated(s.handleCreateGroup))
	router.POST("/groups/delete", s.authenticated(s.handleDeleteGroup))

	return router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.routes(),
		ReadHeaderTimeout: s.readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
