// Package store owns the persisted record-keeper document: users, invites,
// attendance events, performance reviews, the audit log and login-failure
// state. Every mutation is a full read-modify-write cycle over the single
// document; see Store.Update.
package store

import (
	"strings"
	"time"

	"rrsa.org/internal/roles"
)

// SchemaVersion is the current persisted document schema (v1.2).
const SchemaVersion = 12

// Meta carries document bookkeeping.
type Meta struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthPolicy holds password and lockout thresholds.
type AuthPolicy struct {
	MinPasswordLen       int  `json:"minLen"`
	RequireLetter        bool `json:"requireLetter"`
	RequireNumber        bool `json:"requireNumber"`
	MaxFailedAttempts    int  `json:"maxFailedAttempts"`
	LockMinutes          int  `json:"lockMinutes"`
	IdleTimeoutMinutes   int  `json:"idleTimeoutMinutes"`
	AbsoluteTimeoutHours int  `json:"absoluteTimeoutHours"`
}

// DefaultAuthPolicy returns the policy applied when a document carries none.
func DefaultAuthPolicy() AuthPolicy {
	return AuthPolicy{
		MinPasswordLen:       8,
		RequireLetter:        true,
		RequireNumber:        true,
		MaxFailedAttempts:    5,
		LockMinutes:          10,
		IdleTimeoutMinutes:   30,
		AbsoluteTimeoutHours: 12,
	}
}

// Settings is the per-deployment configuration section.
type Settings struct {
	PerformanceThreshold float64    `json:"performanceThreshold"`
	Theme                string     `json:"theme"`
	Leagues              []string   `json:"leagues"`
	DefaultLeague        string     `json:"defaultLeague"`
	AuthPolicy           AuthPolicy `json:"authPolicy"`
}

// LeagueAssignment is a user's role within one league.
type LeagueAssignment struct {
	Role       roles.LeagueRole `json:"role"`
	Department string           `json:"dept"`
}

// User is an association member. Username is unique case-insensitively and
// immutable after creation; Password is an opaque string compared exactly.
type User struct {
	ID          string                      `json:"id"`
	Username    string                      `json:"username"`
	Password    string                      `json:"password"`
	DisplayName string                      `json:"displayName"`
	GlobalRole  roles.GlobalRole            `json:"globalRole"`
	LeagueRoles map[string]LeagueAssignment `json:"leagueRoles"`
	Active      bool                        `json:"active"`
}

// LeagueRoleIn returns the user's role in the given league, falling back to
// the baseline official role when the user has no assignment there.
func (u *User) LeagueRoleIn(league string) roles.LeagueRole {
	if a, ok := u.LeagueRoles[league]; ok && a.Role != "" {
		return a.Role
	}
	return roles.DefaultLeagueRole
}

// Capabilities resolves the user's capability set, optionally scoped to a
// league. Passing an empty league yields the global set only.
func (u *User) Capabilities(league string) roles.Set {
	if league == "" {
		return roles.Resolve(u.GlobalRole, "", false)
	}
	return roles.Resolve(u.GlobalRole, u.LeagueRoleIn(league), true)
}

// Can reports whether the user holds the capability in the given scope.
func (u *User) Can(cap roles.Capability, league string) bool {
	return u.Capabilities(league).Has(cap)
}

// IsExecutive reports whether the user's global role bypasses league scoping
// for visibility.
func (u *User) IsExecutive() bool {
	return roles.IsExecutive(u.GlobalRole)
}

// AttendanceStatus is one of the fixed attendance grades.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusLate    AttendanceStatus = "Late"
	StatusExcused AttendanceStatus = "Excused"
	StatusNoShow  AttendanceStatus = "No-Show"
)

// NormalizeStatus coerces free-form input to a valid status, defaulting to
// Present.
func NormalizeStatus(s string) AttendanceStatus {
	switch AttendanceStatus(strings.TrimSpace(s)) {
	case StatusPresent, StatusLate, StatusExcused, StatusNoShow:
		return AttendanceStatus(strings.TrimSpace(s))
	default:
		return StatusPresent
	}
}

// AttendanceMark records one official's grade for one event.
type AttendanceMark struct {
	UserID    string           `json:"userId"`
	Username  string           `json:"username"`
	Status    AttendanceStatus `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Note      string           `json:"note"`
}

// AttendanceEvent is a game/practice/meeting officials are graded against.
type AttendanceEvent struct {
	ID        string           `json:"id"`
	EventType string           `json:"eventType"`
	League    string           `json:"league"`
	EventName string           `json:"eventName"`
	EventDate string           `json:"eventDate"`
	CreatedAt time.Time        `json:"createdAt"`
	CreatedBy string           `json:"createdBy"`
	Marks     []AttendanceMark `json:"marks"`
}

// Scores are the five graded performance categories, each 1-10.
type Scores struct {
	RuleKnowledge   int `json:"ruleKnowledge"`
	Communication   int `json:"communication"`
	Fairness        int `json:"fairness"`
	Consistency     int `json:"consistency"`
	Professionalism int `json:"professionalism"`
}

// PerformanceReview grades one official for one event or period.
type PerformanceReview struct {
	ID              string    `json:"id"`
	League          string    `json:"league"`
	SubjectUsername string    `json:"subjectUsername"`
	EventRef        string    `json:"eventRef"`
	CreatedAt       time.Time `json:"createdAt"`
	CreatedBy       string    `json:"createdBy"`
	Scores          Scores    `json:"scores"`
	Comments        string    `json:"comments"`
}

// Invite is a scoped, capped, optionally-expiring onboarding token.
type Invite struct {
	ID         string           `json:"id"`
	Code       string           `json:"code"`
	League     string           `json:"league"`
	LeagueRole roles.LeagueRole `json:"leagueRole"`
	Department string           `json:"dept"`
	CreatedAt  time.Time        `json:"createdAt"`
	CreatedBy  string           `json:"createdBy"`
	ExpiresAt  *time.Time       `json:"expiresAt"`
	MaxUses    int              `json:"maxUses"`
	Uses       int              `json:"uses"`
	Active     bool             `json:"active"`
	Note       string           `json:"note"`
}

// Expired reports whether the invite's expiry, if any, has passed. Expiry is
// evaluated lazily at redemption time; there is no background sweep.
func (i *Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// AuditEntry is one append-only log record, newest first.
type AuditEntry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Actor   string    `json:"actor"`
	Action  string    `json:"action"`
	Details string    `json:"details"`
}

// LockoutRecord tracks consecutive failed logins for one lowercase username.
type LockoutRecord struct {
	Count       int       `json:"count"`
	LastAt      time.Time `json:"lastAt"`
	LockedUntil time.Time `json:"lockedUntil"`
}

// AuthState is the document section backing the lockout policy.
type AuthState struct {
	Fails map[string]LockoutRecord `json:"fails"`
}

// Document is the aggregate root: exactly one exists per deployment.
type Document struct {
	Meta        Meta                `json:"_meta"`
	Settings    Settings            `json:"settings"`
	Users       []User              `json:"users"`
	Attendance  []AttendanceEvent   `json:"attendance"`
	Performance []PerformanceReview `json:"performance"`
	Invites     []Invite            `json:"invites"`
	Audit       []AuditEntry        `json:"audit"`
	Auth        AuthState           `json:"auth"`
}

// NormalizeUsername lowercases and trims a username for case-insensitive
// comparison and storage.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// UserByUsername finds a user by case-insensitive username, or nil.
func (d *Document) UserByUsername(username string) *User {
	uname := NormalizeUsername(username)
	for i := range d.Users {
		if d.Users[i].Username == uname {
			return &d.Users[i]
		}
	}
	return nil
}

// UserByID finds a user by id, or nil.
func (d *Document) UserByID(id string) *User {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i]
		}
	}
	return nil
}

// InviteByCode finds an invite by case-insensitive code, or nil.
func (d *Document) InviteByCode(code string) *Invite {
	c := strings.ToUpper(strings.TrimSpace(code))
	for i := range d.Invites {
		if strings.ToUpper(d.Invites[i].Code) == c {
			return &d.Invites[i]
		}
	}
	return nil
}

// AttendanceByID finds an attendance event by id, or nil.
func (d *Document) AttendanceByID(id string) *AttendanceEvent {
	for i := range d.Attendance {
		if d.Attendance[i].ID == id {
			return &d.Attendance[i]
		}
	}
	return nil
}

// PrependAudit inserts an entry at the head of the audit log (newest first).
func (d *Document) PrependAudit(entry AuditEntry) {
	d.Audit = append([]AuditEntry{entry}, d.Audit...)
}
