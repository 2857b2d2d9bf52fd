// Package roles maps association roles to capability sets.
//
// A user carries one global role plus zero or more per-league roles; the
// effective capability set for an action is the union of the global set and
// the set of the league role in scope. The tables below are closed: adding a
// role means extending the switch, which the exhaustiveness tests enforce.
package roles

// GlobalRole grants capabilities independent of league scope.
type GlobalRole string

const (
	GlobalCommissioner GlobalRole = "EXEC_COMMISSIONER"
	GlobalEVP          GlobalRole = "EXEC_EVP"
	GlobalCAO          GlobalRole = "EXEC_CAO"
	GlobalDAO          GlobalRole = "EXEC_DAO"
	GlobalHeadMedia    GlobalRole = "HEAD_RRSA_MEDIA"
	GlobalMediaTeam    GlobalRole = "MEDIA_TEAM"
	GlobalOfficial     GlobalRole = "OFFICIAL"
)

// LeagueRole grants capabilities only within one league.
type LeagueRole string

const (
	LeagueManager          LeagueRole = "LEAGUE_MANAGER"
	LeagueAssistantManager LeagueRole = "ASSIST_LEAGUE_MANAGER"
	LeagueHeadOfReferees   LeagueRole = "HEAD_OF_REFEREES"
	LeagueMediaManager     LeagueRole = "LEAGUE_MEDIA_MANAGER"
	LeagueOfficial         LeagueRole = "OFFICIAL"
)

// DefaultLeagueRole is assumed when a user has no explicit role in the league
// in scope.
const DefaultLeagueRole = LeagueOfficial

// Capability is an atomic permission flag.
type Capability string

const (
	CapViewExecDashboard     Capability = "VIEW_EXEC_DASH"
	CapViewManagerDashboard  Capability = "VIEW_MANAGER_DASH"
	CapViewOfficialDashboard Capability = "VIEW_OFFICIAL_DASH"

	CapManageUsers     Capability = "MANAGE_USERS"
	CapManageUsersFull Capability = "MANAGE_USERS_FULL"

	CapCreateAttendanceEvents Capability = "CREATE_ATTENDANCE_EVENTS"
	CapGradeAttendance        Capability = "GRADE_ATTENDANCE"

	CapCreatePerformanceReviews Capability = "CREATE_PERFORMANCE_REVIEWS"
	CapViewAllRecords           Capability = "VIEW_ALL_RECORDS"

	CapViewAudit       Capability = "VIEW_AUDIT"
	CapExportCSV       Capability = "EXPORT_CSV"
	CapConfigureSystem Capability = "CONFIGURE_SYSTEM"

	CapExportDocument Capability = "EXPORT_DB_JSON"
	CapImportDocument Capability = "IMPORT_DB_JSON"
)

// AllGlobalRoles lists every defined global role.
var AllGlobalRoles = []GlobalRole{
	GlobalCommissioner, GlobalEVP, GlobalCAO, GlobalDAO,
	GlobalHeadMedia, GlobalMediaTeam, GlobalOfficial,
}

// AllLeagueRoles lists every defined league role.
var AllLeagueRoles = []LeagueRole{
	LeagueManager, LeagueAssistantManager, LeagueHeadOfReferees,
	LeagueMediaManager, LeagueOfficial,
}

// AllCapabilities lists every defined capability.
var AllCapabilities = []Capability{
	CapViewExecDashboard, CapViewManagerDashboard, CapViewOfficialDashboard,
	CapManageUsers, CapManageUsersFull,
	CapCreateAttendanceEvents, CapGradeAttendance,
	CapCreatePerformanceReviews, CapViewAllRecords,
	CapViewAudit, CapExportCSV, CapConfigureSystem,
	CapExportDocument, CapImportDocument,
}

// Set is a capability set with O(1) membership.
type Set map[Capability]struct{}

// Has reports whether the set contains cap.
func (s Set) Has(cap Capability) bool {
	_, ok := s[cap]
	return ok
}

func newSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func fullSet(except ...Capability) Set {
	s := newSet(AllCapabilities...)
	for _, c := range except {
		delete(s, c)
	}
	return s
}

// GlobalCapabilities returns the capability set granted by a global role.
// Full user management and document import remain reserved to the
// commissioner; the other executive tiers get everything else.
func GlobalCapabilities(role GlobalRole) Set {
	switch role {
	case GlobalCommissioner:
		return fullSet()
	case GlobalEVP, GlobalCAO, GlobalDAO:
		return fullSet(CapManageUsersFull, CapImportDocument)
	case GlobalHeadMedia:
		return newSet(CapViewManagerDashboard, CapViewAllRecords, CapExportCSV)
	case GlobalMediaTeam:
		return newSet(CapViewManagerDashboard, CapViewAllRecords)
	case GlobalOfficial:
		return newSet(CapViewOfficialDashboard)
	default:
		return Set{}
	}
}

// LeagueCapabilities returns the capability set granted by a league role
// inside its league.
func LeagueCapabilities(role LeagueRole) Set {
	switch role {
	case LeagueManager, LeagueAssistantManager:
		return newSet(
			CapViewManagerDashboard, CapManageUsers,
			CapCreateAttendanceEvents, CapGradeAttendance,
			CapCreatePerformanceReviews, CapViewAllRecords, CapExportCSV,
		)
	case LeagueHeadOfReferees:
		return newSet(
			CapViewManagerDashboard,
			CapCreateAttendanceEvents, CapGradeAttendance,
			CapCreatePerformanceReviews, CapViewAllRecords, CapExportCSV,
		)
	case LeagueMediaManager:
		return newSet(CapViewManagerDashboard, CapViewAllRecords)
	case LeagueOfficial:
		return newSet(CapViewOfficialDashboard)
	default:
		return Set{}
	}
}

// Resolve returns the union of the global role's capabilities and, when
// scoped is true, the league role's capabilities. Global capabilities are
// never lost by adding a league scope.
func Resolve(global GlobalRole, league LeagueRole, scoped bool) Set {
	out := GlobalCapabilities(global)
	if !scoped {
		return out
	}
	if league == "" {
		league = DefaultLeagueRole
	}
	for c := range LeagueCapabilities(league) {
		out[c] = struct{}{}
	}
	return out
}

// IsExecutive reports whether the global role belongs to the four top-level
// executive tiers. Executives see every league's rosters and records
// regardless of per-league membership.
func IsExecutive(role GlobalRole) bool {
	switch role {
	case GlobalCommissioner, GlobalEVP, GlobalCAO, GlobalDAO:
		return true
	default:
		return false
	}
}

// ValidGlobalRole reports whether the value names a defined global role.
func ValidGlobalRole(role GlobalRole) bool {
	switch role {
	case GlobalCommissioner, GlobalEVP, GlobalCAO, GlobalDAO,
		GlobalHeadMedia, GlobalMediaTeam, GlobalOfficial:
		return true
	default:
		return false
	}
}

// ValidLeagueRole reports whether the value names a defined league role.
func ValidLeagueRole(role LeagueRole) bool {
	switch role {
	case LeagueManager, LeagueAssistantManager, LeagueHeadOfReferees,
		LeagueMediaManager, LeagueOfficial:
		return true
	default:
		return false
	}
}
