package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"rrsa.org/internal/roles"
	"rrsa.org/internal/store"
)

func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := a.requireCapability(w, r, roles.CapViewAudit, ""); !ok {
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.store.ListAudit(r.Context(), limit)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		settings, err := a.store.GetSettings(r.Context())
		if err != nil {
			handleStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		p, ok := a.requireCapability(w, r, roles.CapConfigureSystem, "")
		if !ok {
			return
		}
		var next store.Settings
		if err := decodeJSON(w, r, &next); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.store.UpdateSettings(r.Context(), next); err != nil {
			handleStoreError(w, err)
			return
		}
		if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "settings_update", "Updated system settings."); err != nil {
			handleStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, next)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleLeagues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := PrincipalFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	leagues, err := a.store.ListLeagues(r.Context())
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": leagues})
}

// handleExport streams the whole document as a JSON download.
func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, ok := a.requireCapability(w, r, roles.CapExportDocument, "")
	if !ok {
		return
	}
	blob, err := a.store.ExportJSON(r.Context())
	if err != nil {
		handleStoreError(w, err)
		return
	}
	if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "export", "Exported full document."); err != nil {
		handleStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rrsa-document.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// handleImport replaces the whole document. Commissioner only; the snapshot
// must already be at the current schema version.
func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	p, ok := a.requireCapability(w, r, roles.CapImportDocument, "")
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}
	if err := a.store.Import(r.Context(), raw); err != nil {
		handleStoreError(w, err)
		return
	}
	if _, err := a.store.AppendAudit(r.Context(), p.User.Username, "import", fmt.Sprintf("Imported full document (%d bytes).", len(raw))); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
