package httpapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/runavault/runavault/internal/server/directory"
)

// optionJSON is the select-option shape the SPA renders directly.
type optionJSON struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

func userOption(u directory.User) optionJSON {
	label := u.Email
	if strings.Contains(u.Email, "@") && (u.GivenName != "" || u.FamilyName != "") {
		name := strings.TrimSpace(u.GivenName + " " + u.FamilyName)
		label = name + " (" + u.Email + ")"
	}
	return optionJSON{
		Value:      u.Username,
		Label:      label,
		Email:      u.Email,
		GivenName:  u.GivenName,
		FamilyName: u.FamilyName,
	}
}

func groupOptions(groups []directory.Group) []optionJSON {
	out := make([]optionJSON, 0, len(groups))
	for _, g := range groups {
		out = append(out, optionJSON{Value: g.Name, Label: g.Name})
	}
	return out
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	users, err := s.directory.ListUsers(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	options := make([]optionJSON, 0, len(users))
	for _, u := range users {
		options = append(options, userOption(u))
	}
	sort.Slice(options, func(i, j int) bool {
		return strings.ToLower(options[i].Label) < strings.ToLower(options[j].Label)
	})
	s.writeJSON(w, http.StatusOK, map[string][]optionJSON{"users": options})
}

type createUserRequest struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createUserRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.directory.CreateUser(r.Context(), caller, directory.CreateUserRequest{
		Email:      req.Email,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
	}); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: req.Email + " user created successfully"})
}

type userRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req userRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.directory.DeleteUser(r.Context(), caller, req.Username); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully"})
}

type editUserRequest struct {
	Username    string `json:"username"`
	NewUsername string `json:"newUsername"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
}

func (s *Server) handleEditUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req editUserRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	attrs := map[string]string{}
	if req.NewUsername != "" {
		attrs["email"] = req.NewUsername
	}
	if req.GivenName != "" {
		attrs["given_name"] = req.GivenName
	}
	if req.FamilyName != "" {
		attrs["family_name"] = req.FamilyName
	}

	if err := s.directory.UpdateUserAttributes(r.Context(), caller, req.Username, attrs); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "User updated successfully"})
}

func (s *Server) handleListUserGroups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req userRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	groups, err := s.directory.ListUserGroups(r.Context(), caller, req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]optionJSON{"groups": groupOptions(groups)})
}

type userGroupsRequest struct {
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}

func (s *Server) handleAddUserToGroups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req userGroupsRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.directory.AddUserToGroups(r.Context(), caller, req.Username, req.Groups); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "User added to groups successfully"})
}

func (s *Server) handleRemoveUserFromGroups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req userGroupsRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.directory.RemoveUserFromGroups(r.Context(), caller, req.Username, req.Groups); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "User removed from groups successfully"})
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	groups, err := s.directory.ListGroups(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]optionJSON{"groups": groupOptions(groups)})
}

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req groupRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.directory.CreateGroup(r.Context(), caller, req.Name, req.Description); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Group created successfully"})
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := principalFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req groupRequest
	if err := parseBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.directory.DeleteGroup(r.Context(), caller, req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "Group deleted successfully"})
}
