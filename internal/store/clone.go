package store

// Deep copies. Every query returns a defensive copy so callers can never
// reach the live document through a returned value.

// CloneUser returns a deep copy of the user.
func CloneUser(u User) User {
	out := u
	if u.LeagueRoles != nil {
		out.LeagueRoles = make(map[string]LeagueAssignment, len(u.LeagueRoles))
		for k, v := range u.LeagueRoles {
			out.LeagueRoles[k] = v
		}
	}
	return out
}

// CloneAttendanceEvent returns a deep copy of the event and its marks.
func CloneAttendanceEvent(ev AttendanceEvent) AttendanceEvent {
	out := ev
	if ev.Marks != nil {
		out.Marks = make([]AttendanceMark, len(ev.Marks))
		copy(out.Marks, ev.Marks)
	}
	return out
}

// CloneInvite returns a deep copy of the invite.
func CloneInvite(inv Invite) Invite {
	out := inv
	if inv.ExpiresAt != nil {
		t := *inv.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}

func cloneSettings(s Settings) Settings {
	out := s
	if s.Leagues != nil {
		out.Leagues = make([]string, len(s.Leagues))
		copy(out.Leagues, s.Leagues)
	}
	return out
}

// Clone returns a deep copy of the whole document.
func (d *Document) Clone() *Document {
	out := &Document{
		Meta:     d.Meta,
		Settings: cloneSettings(d.Settings),
	}
	if d.Users != nil {
		out.Users = make([]User, len(d.Users))
		for i, u := range d.Users {
			out.Users[i] = CloneUser(u)
		}
	}
	if d.Attendance != nil {
		out.Attendance = make([]AttendanceEvent, len(d.Attendance))
		for i, ev := range d.Attendance {
			out.Attendance[i] = CloneAttendanceEvent(ev)
		}
	}
	if d.Performance != nil {
		out.Performance = make([]PerformanceReview, len(d.Performance))
		copy(out.Performance, d.Performance)
	}
	if d.Invites != nil {
		out.Invites = make([]Invite, len(d.Invites))
		for i, inv := range d.Invites {
			out.Invites[i] = CloneInvite(inv)
		}
	}
	if d.Audit != nil {
		out.Audit = make([]AuditEntry, len(d.Audit))
		copy(out.Audit, d.Audit)
	}
	if d.Auth.Fails != nil {
		out.Auth.Fails = make(map[string]LockoutRecord, len(d.Auth.Fails))
		for k, v := range d.Auth.Fails {
			out.Auth.Fails[k] = v
		}
	}
	return out
}
