package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/runavault/runavault/internal/server/models"
	"github.com/runavault/runavault/internal/server/secrets"
)

// sharedWithJSON is the wire form of a distribution list.
type sharedWithJSON struct {
	Users  []string               `json:"users"`
	Groups []string               `json:"groups"`
	Roles  map[string]models.Role `json:"roles"`
}

func (s sharedWithJSON) toDistribution() models.Distribution {
	return models.Distribution{Users: s.Users, Groups: s.Groups, Roles: s.Roles}
}

// secretJSON is the wire form of a logical secret, field names as the SPA
// consumes them.
type secretJSON struct {
	UserID       string         `json:"user_id,omitempty"`
	Site         string         `json:"site"`
	Username     string         `json:"username"`
	Password     string         `json:"password"`
	Encrypted    bool           `json:"encrypted"`
	SharedWith   sharedWithJSON `json:"sharedWith"`
	Subdirectory string         `json:"subdirectory"`
	Notes        string         `json:"notes"`
	Tags         []string       `json:"tags"`
	Favorite     bool           `json:"favorite"`
	Version      int64          `json:"version"`
	LastModified string         `json:"last_modified"`
	PasswordID   string         `json:"password_id"`
	OwnedByMe    bool           `json:"owned_by_me"`
}

func toSecretJSON(secret models.LogicalSecret) secretJSON {
	return secretJSON{
		UserID:    secret.OwnerID,
		Site:      secret.Site,
		Username:  secret.Username,
		Password:  secret.Password,
		Encrypted: secret.Encrypted,
		SharedWith: sharedWithJSON{
			Users:  orEmpty(secret.SharedWith.Users),
			Groups: orEmpty(secret.SharedWith.Groups),
			Roles:  orEmptyRoles(secret.SharedWith.Roles),
		},
		Subdirectory: secret.Subdirectory,
		Notes:        secret.Notes,
		Tags:         orEmpty(secret.Tags),
		Favorite:     secret.Favorite,
		Version:      secret.Version,
		LastModified: secret.LastModified,
		PasswordID:   secret.PasswordID,
		OwnedByMe:    secret.OwnedByMe,
	}
}

func toSecretListJSON(list []models.LogicalSecret) []secretJSON {
	out := make([]secretJSON, 0, len(list))
	for _, secret := range list {
		out = append(out, toSecretJSON(secret))
	}
	return out
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyRoles(v map[string]models.Role) map[string]models.Role {
	if v == nil {
		return map[string]models.Role{}
	}
	return v
}

type createSecretRequest struct {
	Site         string          `json:"site"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	Encrypted    *bool           `json:"encrypted"`
	SharedWith   *sharedWithJSON `json:"sharedWith"`
	Subdirectory string          `json:"subdirectory"`
	Notes        string          `json:"notes"`
	Tags         []string        `json:"tags"`
	Favorite     bool            `json:"favorite"`
}

func (s *Server) handleCreateSecret(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createSecretRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	serviceReq := secrets.CreateRequest{
		Site:         req.Site,
		Username:     req.Username,
		Password:     req.Password,
		Encrypted:    req.Encrypted,
		Subdirectory: req.Subdirectory,
		Notes:        req.Notes,
		Tags:         req.Tags,
		Favorite:     req.Favorite,
	}
	if req.SharedWith != nil {
		serviceReq.SharedWith = req.SharedWith.toDistribution()
	}

	secret, err := s.secrets.Create(r.Context(), caller, serviceReq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSecretJSON(*secret))
}

type getSecretRequest struct {
	Site         string `json:"site"`
	Subdirectory string `json:"subdirectory"`
}

func (s *Server) handleGetSecret(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req getSecretRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.secrets.Get(r.Context(), caller, req.Site, req.Subdirectory)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type editSecretRequest struct {
	Site         string          `json:"site"`
	OwnerID      string          `json:"user_id"`
	Subdirectory *string         `json:"subdirectory"`
	Favorite     *bool           `json:"favorite"`
	Username     *string         `json:"username"`
	Password     *string         `json:"password"`
	Encrypted    *bool           `json:"encrypted"`
	SharedWith   *sharedWithJSON `json:"sharedWith"`
	Notes        *string         `json:"notes"`
	Tags         []string        `json:"tags"`
}

type editSecretResponse struct {
	Message string     `json:"message"`
	Secret  secretJSON `json:"secret"`
}

func (s *Server) handleEditSecret(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req editSecretRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	serviceReq := secrets.EditRequest{
		Site:         req.Site,
		OwnerID:      req.OwnerID,
		Subdirectory: req.Subdirectory,
		Favorite:     req.Favorite,
		Username:     req.Username,
		Password:     req.Password,
		Encrypted:    req.Encrypted,
		Notes:        req.Notes,
		Tags:         req.Tags,
	}
	if req.SharedWith != nil {
		serviceReq.SharedWith = &secrets.DistributionPatch{
			Users:  req.SharedWith.Users,
			Groups: req.SharedWith.Groups,
			Roles:  req.SharedWith.Roles,
		}
	}

	res, err := s.secrets.Edit(r.Context(), caller, serviceReq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	message := "Password updated successfully"
	if res.MovedSubdirectory {
		message = "Password updated successfully and moved to new subdirectory"
	}
	s.writeJSON(w, http.StatusOK, editSecretResponse{
		Message: message,
		Secret:  toSecretJSON(res.Secret),
	})
}

type deleteSecretRequest struct {
	Site         string `json:"site"`
	OwnerID      string `json:"user_id"`
	Subdirectory string `json:"subdirectory"`
}

type deleteSecretResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (s *Server) handleDeleteSecret(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req deleteSecretRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	count, err := s.secrets.Delete(r.Context(), caller, req.Site, req.OwnerID, req.Subdirectory)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deleteSecretResponse{
		Message: "Password deleted successfully",
		Count:   count,
	})
}

type shareDirectoryRequest struct {
	Subdirectory string          `json:"subdirectory"`
	SharedWith   *sharedWithJSON `json:"sharedWith"`
}

type shareDirectoryResponse struct {
	Message string       `json:"message"`
	Secrets []secretJSON `json:"secrets"`
}

func (s *Server) handleShareDirectory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req shareDirectoryRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var dist models.Distribution
	if req.SharedWith != nil {
		dist = req.SharedWith.toDistribution()
	}

	updated, err := s.secrets.ShareDirectory(r.Context(), caller, req.Subdirectory, dist)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, shareDirectoryResponse{
		Message: "Directory shared successfully",
		Secrets: toSecretListJSON(updated),
	})
}

type listSecretsResponse struct {
	Secrets []secretJSON `json:"secrets"`
}

func (s *Server) handleListSecrets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.secrets.List(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listSecretsResponse{Secrets: toSecretListJSON(list)})
}
