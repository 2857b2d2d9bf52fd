package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"rrsa.org/internal/roles"
	"rrsa.org/internal/session"
	"rrsa.org/internal/store"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/invites/redeem",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

type principalKey struct{}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	Session session.Session
	User    store.User
}

// ContextWithPrincipal attaches the caller to the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// withAuth resolves the bearer token on every non-public request, touches
// the session, and stores the principal in the context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		sess, user, err := a.sessions.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrInvalidToken), errors.Is(err, session.ErrNoSession):
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
			default:
				writeError(w, http.StatusInternalServerError, "authentication error")
			}
			return
		}
		a.sessions.Touch(sess.ID)

		ctx := ContextWithPrincipal(r.Context(), Principal{Session: sess, User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCapability enforces a capability in the given league scope. An
// empty league checks the global set only. A false return means the
// response was already written.
func (a *API) requireCapability(w http.ResponseWriter, r *http.Request, cap roles.Capability, league string) (Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return Principal{}, false
	}
	if !p.User.Can(cap, league) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return Principal{}, false
	}
	return p, true
}

// requireAnyLeagueCapability grants access when the caller holds the
// capability globally or in at least one of their leagues. Used for list
// endpoints whose league filter is optional.
func (a *API) requireAnyLeagueCapability(w http.ResponseWriter, r *http.Request, cap roles.Capability) (Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return Principal{}, false
	}
	if p.User.Can(cap, "") {
		return p, true
	}
	for league := range p.User.LeagueRoles {
		if p.User.Can(cap, league) {
			return p, true
		}
	}
	writeError(w, http.StatusForbidden, "insufficient permissions")
	return Principal{}, false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
