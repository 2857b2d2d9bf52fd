package roles

// LabelGlobal returns the human-readable title for a global role.
func LabelGlobal(role GlobalRole) string {
	switch role {
	case GlobalCommissioner:
		return "Commissioner of the RRSA"
	case GlobalEVP:
		return "Executive Vice President"
	case GlobalCAO:
		return "Chief Administrative Officer"
	case GlobalDAO:
		return "Director of Association Operations"
	case GlobalHeadMedia:
		return "Head of RRSA Media"
	case GlobalMediaTeam:
		return "Sports Association Media Team"
	case GlobalOfficial:
		return "Official (baseline)"
	default:
		return string(role)
	}
}

// LabelLeague returns the human-readable title for a league role.
func LabelLeague(role LeagueRole) string {
	switch role {
	case LeagueManager:
		return "League Manager"
	case LeagueAssistantManager:
		return "Assistant League Manager"
	case LeagueHeadOfReferees:
		return "Head of Referees"
	case LeagueMediaManager:
		return "League Media Manager"
	case LeagueOfficial:
		return "Official (Ref/Umpire/Judge/Staff)"
	default:
		return string(role)
	}
}
