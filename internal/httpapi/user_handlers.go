package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"rrsa.org/internal/roles"
	"rrsa.org/internal/store"
)

type createUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	GlobalRole  string `json:"globalRole"`
	League      string `json:"league"`
	LeagueRole  string `json:"leagueRole"`
	Department  string `json:"dept"`
}

type updateUserRequest struct {
	DisplayName *string                           `json:"displayName"`
	GlobalRole  *string                           `json:"globalRole"`
	Active      *bool                             `json:"active"`
	LeagueRoles map[string]store.LeagueAssignment `json:"leagueRoles"`
}

type userResponse struct {
	ID          string                            `json:"id"`
	Username    string                            `json:"username"`
	DisplayName string                            `json:"displayName"`
	GlobalRole  string                            `json:"globalRole"`
	LeagueRoles map[string]store.LeagueAssignment `json:"leagueRoles"`
	Active      bool                              `json:"active"`
}

// toUserResponse strips the password from the wire shape.
func toUserResponse(u store.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		GlobalRole:  string(u.GlobalRole),
		LeagueRoles: u.LeagueRoles,
		Active:      u.Active,
	}
}

// canManage reports whether the caller may administer the target: the full
// management grant covers everyone, the league-scoped grant covers targets
// assigned to a league the caller manages.
func canManage(caller store.User, target store.User) bool {
	if caller.Can(roles.CapManageUsersFull, "") {
		return true
	}
	for league := range target.LeagueRoles {
		if caller.Can(roles.CapManageUsers, league) {
			return true
		}
	}
	return false
}

func canViewRoster(caller store.User) bool {
	if caller.Can(roles.CapViewAllRecords, "") || caller.Can(roles.CapManageUsersFull, "") {
		return true
	}
	for league := range caller.LeagueRoles {
		if caller.Can(roles.CapManageUsers, league) || caller.Can(roles.CapViewAllRecords, league) {
			return true
		}
	}
	return false
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !canViewRoster(p.User) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		handleStoreError(w, err)
		return
	}
	league := r.URL.Query().Get("league")
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		if league != "" {
			if _, ok := u.LeagueRoles[league]; !ok {
				continue
			}
		}
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// League-scoped managers may only create baseline officials inside their
	// own league; anything broader needs the full grant.
	fullGrant := p.User.Can(roles.CapManageUsersFull, "")
	if !fullGrant {
		if req.League == "" || !p.User.Can(roles.CapManageUsers, req.League) {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		if req.GlobalRole != "" && req.GlobalRole != string(roles.GlobalOfficial) {
			writeError(w, http.StatusForbidden, "only the commissioner can grant global roles")
			return
		}
	}

	u, err := a.store.CreateUser(r.Context(), store.CreateUserParams{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		GlobalRole:  roles.GlobalRole(req.GlobalRole),
		League:      req.League,
		LeagueRole:  roles.LeagueRole(req.LeagueRole),
		Department:  req.Department,
	})
	if err != nil {
		handleStoreError(w, err)
		return
	}
	if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "user_create", fmt.Sprintf("Created user %s.", u.Username)); err != nil {
		handleStoreError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/users/"+u.Username)
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	username := parts[0]
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			a.getUser(w, r, username)
		case http.MethodPut:
			a.updateUser(w, r, username)
		case http.MethodDelete:
			a.deleteUser(w, r, username)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "password":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, http.MethodPut)
			return
		}
		a.setPassword(w, r, username)
	case len(parts) == 2 && parts[1] == "unlock":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		a.unlockUser(w, r, username)
	default:
		writeError(w, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, username string) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	u, err := a.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	if u.Username != p.User.Username && !canViewRoster(p.User) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, username string) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	target, err := a.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	if !canManage(p.User, target) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GlobalRole != nil && !p.User.Can(roles.CapManageUsersFull, "") {
		writeError(w, http.StatusForbidden, "only the commissioner can change global roles")
		return
	}

	if req.DisplayName != nil {
		target.DisplayName = *req.DisplayName
	}
	if req.GlobalRole != nil {
		if !roles.ValidGlobalRole(roles.GlobalRole(*req.GlobalRole)) {
			writeError(w, http.StatusBadRequest, "unknown global role")
			return
		}
		target.GlobalRole = roles.GlobalRole(*req.GlobalRole)
	}
	if req.Active != nil {
		target.Active = *req.Active
	}
	if req.LeagueRoles != nil {
		for _, asg := range req.LeagueRoles {
			if !roles.ValidLeagueRole(asg.Role) {
				writeError(w, http.StatusBadRequest, "unknown league role")
				return
			}
		}
		target.LeagueRoles = req.LeagueRoles
	}

	if err := a.store.UpdateUser(r.Context(), target); err != nil {
		handleStoreError(w, err)
		return
	}
	if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "user_update", fmt.Sprintf("Updated user %s.", target.Username)); err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(target))
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, username string) {
	p, ok := a.requireCapability(w, r, roles.CapManageUsersFull, "")
	if !ok {
		return
	}
	if store.NormalizeUsername(username) == p.User.Username {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	removed, err := a.store.DeleteUser(r.Context(), username)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "user_delete", fmt.Sprintf("Deleted user %s and cascaded their records.", removed.Username)); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (a *API) setPassword(w http.ResponseWriter, r *http.Request, username string) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	self := store.NormalizeUsername(username) == p.User.Username
	if !self && !p.User.Can(roles.CapManageUsersFull, "") {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings, err := a.store.GetSettings(r.Context())
	if err != nil {
		handleStoreError(w, err)
		return
	}
	if err := settings.AuthPolicy.ValidatePassword(req.Password); err != nil {
		handleStoreError(w, err)
		return
	}
	if err := a.store.SetUserPassword(r.Context(), username, req.Password); err != nil {
		handleStoreError(w, err)
		return
	}
	if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "password_change", fmt.Sprintf("Changed password for %s.", store.NormalizeUsername(username))); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// unlockUser clears the target's failure record, lifting any active lock
// ahead of its expiry.
func (a *API) unlockUser(w http.ResponseWriter, r *http.Request, username string) {
	p, ok := a.requireCapability(w, r, roles.CapManageUsersFull, "")
	if !ok {
		return
	}
	if err := a.store.ClearLoginFailures(r.Context(), username); err != nil {
		handleStoreError(w, err)
		return
	}
	if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "unlock", fmt.Sprintf("Cleared login failures for %s.", store.NormalizeUsername(username))); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
