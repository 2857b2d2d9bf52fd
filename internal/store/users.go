package store

import (
	"context"
	"fmt"
	"regexp"

	"rrsa.org/internal/ids"
	"rrsa.org/internal/roles"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidateUsername enforces the username shape: at least 3 characters, only
// lowercase letters, digits and underscore. Uppercase input is rejected, not
// folded.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username can only contain a-z, 0-9, underscore", ErrValidation)
	}
	return nil
}

// CreateUserParams describes a new user with an initial league assignment.
type CreateUserParams struct {
	Username    string
	Password    string
	DisplayName string
	GlobalRole  roles.GlobalRole
	League      string
	LeagueRole  roles.LeagueRole
	Department  string
}

// CreateUser inserts a new user. The username must be unique
// case-insensitively across the document.
func (s *Store) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	var created User
	err := s.Update(ctx, func(doc *Document) error {
		if err := ValidateUsername(p.Username); err != nil {
			return err
		}
		if len(p.Password) < 3 {
			return fmt.Errorf("%w: password too short", ErrValidation)
		}
		uname := NormalizeUsername(p.Username)
		if doc.UserByUsername(uname) != nil {
			return fmt.Errorf("%w: username %q", ErrConflict, uname)
		}

		league := p.League
		if league == "" {
			league = doc.Settings.DefaultLeague
		}
		leagueRole := p.LeagueRole
		if leagueRole == "" {
			leagueRole = roles.LeagueOfficial
		}
		globalRole := p.GlobalRole
		if globalRole == "" {
			globalRole = roles.GlobalOfficial
		}
		if !roles.ValidGlobalRole(globalRole) {
			return fmt.Errorf("%w: unknown global role %q", ErrValidation, globalRole)
		}
		if !roles.ValidLeagueRole(leagueRole) {
			return fmt.Errorf("%w: unknown league role %q", ErrValidation, leagueRole)
		}
		dept := p.Department
		if dept == "" {
			dept = "Officials"
		}
		displayName := p.DisplayName
		if displayName == "" {
			displayName = uname
		}

		created = User{
			ID:          ids.New(ids.PrefixUser),
			Username:    uname,
			Password:    p.Password,
			DisplayName: displayName,
			GlobalRole:  globalRole,
			LeagueRoles: map[string]LeagueAssignment{league: {Role: leagueRole, Department: dept}},
			Active:      true,
		}
		doc.Users = append(doc.Users, CloneUser(created))
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// GetUserByUsername returns a copy of the user, or ErrNotFound.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var out User
	err := s.View(ctx, func(doc *Document) error {
		u := doc.UserByUsername(username)
		if u == nil {
			return fmt.Errorf("%w: user %q", ErrNotFound, NormalizeUsername(username))
		}
		out = CloneUser(*u)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// ListUsers returns copies of every user record.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	err := s.View(ctx, func(doc *Document) error {
		out = make([]User, 0, len(doc.Users))
		for _, u := range doc.Users {
			out = append(out, CloneUser(u))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser replaces the stored record with the same id wholesale. Callers
// merge fields before calling; this layer does not. The username stays
// immutable.
func (s *Store) UpdateUser(ctx context.Context, u User) error {
	return s.Update(ctx, func(doc *Document) error {
		for i := range doc.Users {
			if doc.Users[i].ID == u.ID {
				u.Username = doc.Users[i].Username
				doc.Users[i] = CloneUser(u)
				return nil
			}
		}
		return fmt.Errorf("%w: user id %q", ErrNotFound, u.ID)
	})
}

// SetUserPassword replaces the stored password for username.
func (s *Store) SetUserPassword(ctx context.Context, username, password string) error {
	return s.Update(ctx, func(doc *Document) error {
		u := doc.UserByUsername(username)
		if u == nil {
			return fmt.Errorf("%w: user %q", ErrNotFound, NormalizeUsername(username))
		}
		u.Password = password
		return nil
	})
}

// DeleteUser removes the user and, in the same write, every attendance mark
// and performance review referencing them: cascading delete keeps the
// document free of orphaned references.
func (s *Store) DeleteUser(ctx context.Context, username string) (User, error) {
	var removed User
	uname := NormalizeUsername(username)
	err := s.Update(ctx, func(doc *Document) error {
		idx := -1
		for i := range doc.Users {
			if doc.Users[i].Username == uname {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("%w: user %q", ErrNotFound, uname)
		}
		removed = CloneUser(doc.Users[idx])
		doc.Users = append(doc.Users[:idx], doc.Users[idx+1:]...)

		for i := range doc.Attendance {
			marks := doc.Attendance[i].Marks[:0]
			for _, m := range doc.Attendance[i].Marks {
				if NormalizeUsername(m.Username) != uname {
					marks = append(marks, m)
				}
			}
			doc.Attendance[i].Marks = marks
		}

		reviews := doc.Performance[:0]
		for _, r := range doc.Performance {
			if NormalizeUsername(r.SubjectUsername) != uname {
				reviews = append(reviews, r)
			}
		}
		doc.Performance = reviews
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return removed, nil
}
