package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"rrsa.org/internal/invite"
	"rrsa.org/internal/roles"
	"rrsa.org/internal/store"
)

type createInviteRequest struct {
	League     string     `json:"league"`
	LeagueRole string     `json:"leagueRole"`
	Department string     `json:"dept"`
	MaxUses    int        `json:"maxUses"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	Note       string     `json:"note"`
}

type redeemInviteRequest struct {
	Code        string `json:"code"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// canInvite mirrors user management: the full grant invites into any league,
// the scoped grant only into the caller's managed league.
func canInvite(caller store.User, league string) bool {
	if caller.Can(roles.CapManageUsersFull, "") {
		return true
	}
	return league != "" && caller.Can(roles.CapManageUsers, league)
}

func (a *API) handleInvitesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listInvites(w, r)
	case http.MethodPost:
		a.createInvite(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listInvites(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !canViewRoster(p.User) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	items, err := a.invites.List(r.Context())
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) createInvite(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !canInvite(p.User, req.League) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	inv, err := a.invites.Create(r.Context(), invite.CreateParams{
		League:     req.League,
		LeagueRole: roles.LeagueRole(req.LeagueRole),
		Department: req.Department,
		CreatedBy:  p.User.Username,
		MaxUses:    req.MaxUses,
		ExpiresAt:  req.ExpiresAt,
		Note:       req.Note,
	})
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// handleInviteRedeem is public: the invite code itself is the credential.
func (a *API) handleInviteRedeem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req redeemInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := a.invites.Redeem(r.Context(), invite.RedeemParams{
		Code:        req.Code,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, invite.ErrInactive), errors.Is(err, invite.ErrExpired):
			writeError(w, http.StatusGone, err.Error())
		default:
			handleStoreError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (a *API) handleInviteResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/invites/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "revoke" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !canInvite(p.User, "") && !a.canRevokeInvite(r, p.User, parts[0]) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	if err := a.invites.Revoke(r.Context(), parts[0], p.User.Username); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// canRevokeInvite lets a league-scoped manager revoke invites into their own
// league.
func (a *API) canRevokeInvite(r *http.Request, caller store.User, code string) bool {
	items, err := a.invites.List(r.Context())
	if err != nil {
		return false
	}
	for _, inv := range items {
		if strings.EqualFold(inv.Code, strings.TrimSpace(code)) {
			return canInvite(caller, inv.League)
		}
	}
	return false
}
