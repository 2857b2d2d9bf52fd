package httpapi

import (
	"net/http"
	"strings"

	"rrsa.org/internal/roles"
	"rrsa.org/internal/store"
)

type createEventRequest struct {
	EventType string `json:"eventType"`
	League    string `json:"league"`
	EventName string `json:"eventName"`
	EventDate string `json:"eventDate"`
}

type markAttendanceRequest struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	Note     string `json:"note"`
}

type createReviewRequest struct {
	League   string       `json:"league"`
	Username string       `json:"username"`
	EventRef string       `json:"eventRef"`
	Scores   store.Scores `json:"scores"`
	Comments string       `json:"comments"`
}

// canViewRecords covers attendance and performance reads: executives and
// media see everything, league staff see their leagues, and officials can
// always read their own history.
func canViewRecords(caller store.User, league, subject string) bool {
	if subject != "" && store.NormalizeUsername(subject) == caller.Username {
		return true
	}
	if caller.Can(roles.CapViewAllRecords, "") {
		return true
	}
	if league != "" {
		return caller.Can(roles.CapViewAllRecords, league)
	}
	for l := range caller.LeagueRoles {
		if caller.Can(roles.CapViewAllRecords, l) {
			return true
		}
	}
	return false
}

func (a *API) handleAttendanceCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAttendance(w, r)
	case http.MethodPost:
		a.createAttendanceEvent(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listAttendance(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	league := r.URL.Query().Get("league")
	username := r.URL.Query().Get("username")
	if !canViewRecords(p.User, league, username) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	if username != "" {
		rows, err := a.store.AttendanceHistory(r.Context(), username, league)
		if err != nil {
			handleStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": rows})
		return
	}
	events, err := a.store.ListAttendance(r.Context(), league)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (a *API) createAttendanceEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.User.Can(roles.CapCreateAttendanceEvents, req.League) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	ev, err := a.store.CreateAttendanceEvent(r.Context(), store.CreateAttendanceEventParams{
		EventType: req.EventType,
		League:    req.League,
		EventName: req.EventName,
		EventDate: req.EventDate,
		CreatedBy: p.User.Username,
	})
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (a *API) handleAttendanceResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/attendance/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "marks" {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	a.markAttendance(w, r, parts[0])
}

func (a *API) markAttendance(w http.ResponseWriter, r *http.Request, eventID string) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req markAttendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The grading capability is checked in the event's league.
	events, err := a.store.ListAttendance(r.Context(), "")
	if err != nil {
		handleStoreError(w, err)
		return
	}
	league := ""
	for _, ev := range events {
		if ev.ID == eventID {
			league = ev.League
			break
		}
	}
	if league == "" {
		writeError(w, http.StatusNotFound, "attendance event not found")
		return
	}
	if !p.User.Can(roles.CapGradeAttendance, league) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	err = a.store.MarkAttendance(r.Context(), store.MarkAttendanceParams{
		EventID:         eventID,
		SubjectUsername: req.Username,
		Status:          req.Status,
		Note:            req.Note,
		Actor:           p.User.Username,
	})
	if err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAttendanceStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	username := r.URL.Query().Get("username")
	league := r.URL.Query().Get("league")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if !canViewRecords(p.User, league, username) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	stats, err := a.store.AttendanceStatsFor(r.Context(), username, league)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handlePerformanceCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listPerformance(w, r)
	case http.MethodPost:
		a.createReview(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listPerformance(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	league := r.URL.Query().Get("league")
	subject := r.URL.Query().Get("username")
	if !canViewRecords(p.User, league, subject) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	reviews, err := a.store.ListPerformance(r.Context(), league, subject)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": reviews})
}

func (a *API) createReview(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req createReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.User.Can(roles.CapCreatePerformanceReviews, req.League) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	review, err := a.store.AddPerformanceReview(r.Context(), store.CreateReviewParams{
		League:          req.League,
		SubjectUsername: req.Username,
		EventRef:        req.EventRef,
		CreatedBy:       p.User.Username,
		Scores:          req.Scores,
		Comments:        req.Comments,
	})
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (a *API) handlePerformanceAverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if !canViewRecords(p.User, "", username) {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	avg, err := a.store.AverageForUser(r.Context(), username)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avg)
}

func (a *API) handlePerformanceFlagged(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := a.requireAnyLeagueCapability(w, r, roles.CapViewAllRecords); !ok {
		return
	}
	flagged, err := a.store.FlaggedOfficials(r.Context())
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": flagged})
}
