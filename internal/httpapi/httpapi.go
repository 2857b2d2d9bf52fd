// Package httpapi is the HTTP surface over the store, session manager and
// invite service. Routing uses the standard mux with manual sub-path
// dispatch; every response body is JSON.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rrsa.org/internal/invite"
	"rrsa.org/internal/obs"
	"rrsa.org/internal/session"
	"rrsa.org/internal/store"
)

// ReadyProbe reports backend readiness. A nil DB means the file or memory
// backend, which is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	store      *store.Store
	sessions   *session.Manager
	invites    *invite.Service
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

// New wires the route table.
func New(st *store.Store, sm *session.Manager, inv *invite.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		store:      st,
		sessions:   sm,
		invites:    inv,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/v1/invites", a.handleInvitesCollection)
	a.mux.HandleFunc("/v1/invites/redeem", a.handleInviteRedeem)
	a.mux.HandleFunc("/v1/invites/", a.handleInviteResource)

	a.mux.HandleFunc("/v1/attendance", a.handleAttendanceCollection)
	a.mux.HandleFunc("/v1/attendance/stats", a.handleAttendanceStats)
	a.mux.HandleFunc("/v1/attendance/", a.handleAttendanceResource)

	a.mux.HandleFunc("/v1/performance", a.handlePerformanceCollection)
	a.mux.HandleFunc("/v1/performance/flagged", a.handlePerformanceFlagged)
	a.mux.HandleFunc("/v1/performance/average", a.handlePerformanceAverage)

	a.mux.HandleFunc("/v1/audit", a.handleAudit)
	a.mux.HandleFunc("/v1/settings", a.handleSettings)
	a.mux.HandleFunc("/v1/leagues", a.handleLeagues)

	a.mux.HandleFunc("/v1/admin/export", a.handleExport)
	a.mux.HandleFunc("/v1/admin/import", a.handleImport)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 8<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = SecurityHeaders(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "rrsa-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "rrsa-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parseLimit(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit out of range")
	}
	return val, nil
}

// handleStoreError maps the store's sentinel errors to HTTP statuses.
func handleStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrSchema):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
