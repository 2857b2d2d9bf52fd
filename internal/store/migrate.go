package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rrsa.org/internal/ids"
	"rrsa.org/internal/roles"
)

// InitResult describes what LoadOrInit did.
type InitResult struct {
	Seeded       bool
	MigratedFrom int
	Version      int
}

// LoadOrInit brings the persisted document to the current schema version and
// must run once at process start, before anything else touches the store.
//
// Missing or malformed content seeds a fresh document. A document at an older
// version is migrated forward and a single migration audit entry appended. An
// already-current document is left untouched, so running LoadOrInit twice is
// a no-op beyond the version check.
func (s *Store) LoadOrInit(ctx context.Context) (InitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.backend.Load(ctx)
	if errors.Is(err, ErrNoDocument) {
		return s.seedAndSave(ctx)
	}
	if err != nil {
		return InitResult{}, err
	}

	var probe struct {
		Meta struct {
			Version int `json:"version"`
		} `json:"_meta"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		// Malformed content degrades to a fresh start, never a fatal error.
		return s.seedAndSave(ctx)
	}
	if probe.Meta.Version == SchemaVersion {
		return InitResult{Version: SchemaVersion}, nil
	}

	doc, from, ok := migrateDocument(raw, s.Now())
	if !ok {
		return s.seedAndSave(ctx)
	}
	if err := s.save(ctx, doc); err != nil {
		return InitResult{}, err
	}
	return InitResult{MigratedFrom: from, Version: SchemaVersion}, nil
}

func (s *Store) seedAndSave(ctx context.Context) (InitResult, error) {
	doc := SeedDocument(s.Now())
	if err := s.save(ctx, doc); err != nil {
		return InitResult{}, err
	}
	return InitResult{Seeded: true, Version: SchemaVersion}, nil
}

// legacy shapes accepted by the migration. v1.0 stored a single free-form
// "role" plus flat league/dept fields; "active" may be missing entirely.
type legacyUser struct {
	ID          string                      `json:"id"`
	Username    string                      `json:"username"`
	Password    string                      `json:"password"`
	DisplayName string                      `json:"displayName"`
	GlobalRole  string                      `json:"globalRole"`
	Role        string                      `json:"role"`
	League      string                      `json:"league"`
	Dept        string                      `json:"dept"`
	LeagueRoles map[string]LeagueAssignment `json:"leagueRoles"`
	Active      *bool                       `json:"active"`
}

type legacyDocument struct {
	Meta struct {
		Version   int       `json:"version"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"_meta"`
	Settings    *Settings           `json:"settings"`
	Users       []legacyUser        `json:"users"`
	Attendance  []AttendanceEvent   `json:"attendance"`
	Performance []PerformanceReview `json:"performance"`
	Invites     []Invite            `json:"invites"`
	Audit       []AuditEntry        `json:"audit"`
	Auth        *AuthState          `json:"auth"`
}

// migrateDocument upgrades any prior version to the current schema. A
// document without users is unrecoverable and reported as not-ok so the
// caller reseeds instead.
func migrateDocument(raw []byte, now time.Time) (*Document, int, bool) {
	var old legacyDocument
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil, 0, false
	}
	if len(old.Users) == 0 {
		return nil, 0, false
	}
	from := old.Meta.Version
	if from == 0 {
		from = 1
	}

	doc := &Document{
		Meta: Meta{
			Version:   SchemaVersion,
			CreatedAt: old.Meta.CreatedAt,
			UpdatedAt: now,
		},
		Attendance:  old.Attendance,
		Performance: old.Performance,
		Invites:     old.Invites,
		Audit:       old.Audit,
	}
	if doc.Meta.CreatedAt.IsZero() {
		doc.Meta.CreatedAt = now
	}
	if doc.Attendance == nil {
		doc.Attendance = []AttendanceEvent{}
	}
	if doc.Performance == nil {
		doc.Performance = []PerformanceReview{}
	}
	if doc.Invites == nil {
		doc.Invites = []Invite{}
	}
	if doc.Audit == nil {
		doc.Audit = []AuditEntry{}
	}
	if old.Auth != nil && old.Auth.Fails != nil {
		doc.Auth = *old.Auth
	} else {
		doc.Auth = AuthState{Fails: map[string]LockoutRecord{}}
	}

	if old.Settings != nil {
		doc.Settings = *old.Settings
	}
	if len(doc.Settings.Leagues) == 0 {
		doc.Settings.Leagues = defaultLeagues()
	}
	if doc.Settings.DefaultLeague == "" {
		doc.Settings.DefaultLeague = "RRFL"
	}
	if doc.Settings.AuthPolicy == (AuthPolicy{}) {
		doc.Settings.AuthPolicy = DefaultAuthPolicy()
	}
	if doc.Settings.PerformanceThreshold == 0 {
		doc.Settings.PerformanceThreshold = 6.5
	}
	if doc.Settings.Theme == "" {
		doc.Settings.Theme = "dark"
	}

	doc.Users = make([]User, 0, len(old.Users))
	for _, lu := range old.Users {
		doc.Users = append(doc.Users, normalizeLegacyUser(lu, doc.Settings.DefaultLeague))
	}

	doc.PrependAudit(AuditEntry{
		ID:      ids.New(ids.PrefixAudit),
		At:      now,
		Actor:   "system",
		Action:  "migrate",
		Details: fmt.Sprintf("Migrated v%d to v%d schema.", from, SchemaVersion),
	})
	return doc, from, true
}

func normalizeLegacyUser(lu legacyUser, defaultLeague string) User {
	u := User{
		ID:          lu.ID,
		Username:    NormalizeUsername(lu.Username),
		Password:    lu.Password,
		DisplayName: lu.DisplayName,
		LeagueRoles: lu.LeagueRoles,
		Active:      lu.Active == nil || *lu.Active,
	}
	if u.ID == "" {
		u.ID = ids.New(ids.PrefixUser)
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}

	// Promote the legacy single-role field into globalRole when it names a
	// global tier; otherwise the user stays a baseline official globally.
	candidate := lu.GlobalRole
	if candidate == "" {
		candidate = lu.Role
	}
	if roles.ValidGlobalRole(roles.GlobalRole(candidate)) {
		u.GlobalRole = roles.GlobalRole(candidate)
	} else if roles.ValidGlobalRole(roles.GlobalRole(lu.GlobalRole)) {
		u.GlobalRole = roles.GlobalRole(lu.GlobalRole)
	} else {
		u.GlobalRole = roles.GlobalOfficial
	}

	if len(u.LeagueRoles) == 0 {
		league := lu.League
		if league == "" {
			league = defaultLeague
		}
		role := roles.LeagueRole(lu.Role)
		if !roles.ValidLeagueRole(role) {
			role = roles.LeagueOfficial
		}
		dept := lu.Dept
		if dept == "" {
			dept = "Officials"
		}
		u.LeagueRoles = map[string]LeagueAssignment{
			league: {Role: role, Department: dept},
		}
	}
	return u
}

func defaultLeagues() []string {
	return []string{"RRSA", "RRFL", "RRBL", "RRHL"}
}

// SeedDocument builds the deterministic starter document: the executive
// tier, media roles, one managed league with a graded official, and the
// default policy set.
func SeedDocument(now time.Time) *Document {
	leagues := defaultLeagues()

	users := []User{
		{ID: ids.New(ids.PrefixUser), Username: "mrv", Password: "rrsa", DisplayName: "M.R.VR", GlobalRole: roles.GlobalCommissioner, LeagueRoles: map[string]LeagueAssignment{}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "vp_pox", Password: "rrsa", DisplayName: "VP Pox", GlobalRole: roles.GlobalEVP, LeagueRoles: map[string]LeagueAssignment{}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "shark", Password: "rrsa", DisplayName: "CAO Shark", GlobalRole: roles.GlobalCAO, LeagueRoles: map[string]LeagueAssignment{}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "will", Password: "rrsa", DisplayName: "DAO Will", GlobalRole: roles.GlobalDAO, LeagueRoles: map[string]LeagueAssignment{}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "head_media", Password: "rrsa", DisplayName: "Head of RRSA Media", GlobalRole: roles.GlobalHeadMedia, LeagueRoles: map[string]LeagueAssignment{}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "media_team", Password: "rrsa", DisplayName: "RRSA Media Team", GlobalRole: roles.GlobalMediaTeam, LeagueRoles: map[string]LeagueAssignment{}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "rrfl_mgr", Password: "rrsa", DisplayName: "RRFL League Manager", GlobalRole: roles.GlobalOfficial, LeagueRoles: map[string]LeagueAssignment{"RRFL": {Role: roles.LeagueManager, Department: "League"}}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "head_refs", Password: "rrsa", DisplayName: "Head of Referees", GlobalRole: roles.GlobalOfficial, LeagueRoles: map[string]LeagueAssignment{"RRFL": {Role: roles.LeagueHeadOfReferees, Department: "League"}}, Active: true},
		{ID: ids.New(ids.PrefixUser), Username: "ref_ava", Password: "rrsa", DisplayName: "Ref Ava", GlobalRole: roles.GlobalOfficial, LeagueRoles: map[string]LeagueAssignment{"RRFL": {Role: roles.LeagueOfficial, Department: "Officials"}}, Active: true},
	}

	var ava *User
	for i := range users {
		if users[i].Username == "ref_ava" {
			ava = &users[i]
		}
	}

	return &Document{
		Meta: Meta{Version: SchemaVersion, CreatedAt: now, UpdatedAt: now},
		Settings: Settings{
			PerformanceThreshold: 6.5,
			Theme:                "dark",
			Leagues:              leagues,
			DefaultLeague:        "RRFL",
			AuthPolicy:           DefaultAuthPolicy(),
		},
		Users: users,
		Attendance: []AttendanceEvent{
			{
				ID:        ids.New(ids.PrefixAttendance),
				EventType: "Game",
				League:    "RRFL",
				EventName: "RRFL Week 1 - Match A",
				EventDate: "2026-01-25",
				CreatedAt: now,
				CreatedBy: "mrv",
				Marks: []AttendanceMark{
					{UserID: ava.ID, Username: ava.Username, Status: StatusPresent, Timestamp: now},
				},
			},
		},
		Performance: []PerformanceReview{
			{
				ID:              ids.New(ids.PrefixPerformance),
				League:          "RRFL",
				SubjectUsername: "ref_ava",
				EventRef:        "RRFL Week 1 - Match A",
				CreatedAt:       now,
				CreatedBy:       "head_refs",
				Scores:          Scores{RuleKnowledge: 8, Communication: 7, Fairness: 8, Consistency: 7, Professionalism: 8},
				Comments:        "Solid calls. Improve whistle cadence and comms.",
			},
		},
		Invites: []Invite{},
		Audit: []AuditEntry{
			{ID: ids.New(ids.PrefixAudit), At: now, Actor: "system", Action: "seed", Details: "Initial seed applied (v1.2)."},
		},
		Auth: AuthState{Fails: map[string]LockoutRecord{}},
	}
}
