package httpapi

import (
	"errors"
	"net/http"
	"time"

	"rrsa.org/internal/roles"
	"rrsa.org/internal/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string    `json:"token"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	GlobalRole  string    `json:"globalRole"`
	IssuedAt    time.Time `json:"issuedAt"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, token, err := a.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var locked *session.LockedError
		switch {
		case errors.As(err, &locked):
			w.Header().Set("Retry-After", locked.Until.UTC().Format(time.RFC3339))
			writeError(w, http.StatusLocked, err.Error())
		case errors.Is(err, session.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, session.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "login failed")
		}
		return
	}

	user, err := a.store.GetUserByUsername(r.Context(), sess.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:       token,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		GlobalRole:  string(user.GlobalRole),
		IssuedAt:    sess.CreatedAt,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := a.sessions.Logout(r.Context(), p.Session.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	Username     string              `json:"username"`
	DisplayName  string              `json:"displayName"`
	GlobalRole   string              `json:"globalRole"`
	Title        string              `json:"title"`
	Executive    bool                `json:"executive"`
	LeagueRoles  map[string]string   `json:"leagueRoles"`
	LeagueTitles map[string]string   `json:"leagueTitles"`
	Capabilities map[string][]string `json:"capabilities"`
	Session      struct {
		ID           string    `json:"id"`
		CreatedAt    time.Time `json:"createdAt"`
		LastActiveAt time.Time `json:"lastActiveAt"`
	} `json:"session"`
}

// handleMe describes the caller: identity, per-league roles and the resolved
// capability set per scope (the empty key is the global scope).
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	resp := meResponse{
		Username:     p.User.Username,
		DisplayName:  p.User.DisplayName,
		GlobalRole:   string(p.User.GlobalRole),
		Title:        roles.LabelGlobal(p.User.GlobalRole),
		Executive:    p.User.IsExecutive(),
		LeagueRoles:  make(map[string]string, len(p.User.LeagueRoles)),
		LeagueTitles: make(map[string]string, len(p.User.LeagueRoles)),
		Capabilities: map[string][]string{"": capNames(p.User.Capabilities(""))},
	}
	for league, asg := range p.User.LeagueRoles {
		resp.LeagueRoles[league] = string(asg.Role)
		resp.LeagueTitles[league] = roles.LabelLeague(asg.Role)
		resp.Capabilities[league] = capNames(p.User.Capabilities(league))
	}
	resp.Session.ID = p.Session.ID
	resp.Session.CreatedAt = p.Session.CreatedAt
	resp.Session.LastActiveAt = p.Session.LastActiveAt
	writeJSON(w, http.StatusOK, resp)
}

func capNames(set roles.Set) []string {
	out := make([]string, 0, len(set))
	for _, c := range roles.AllCapabilities {
		if set.Has(c) {
			out = append(out, string(c))
		}
	}
	return out
}
