// Package invite manages scoped, capped, optionally-expiring onboarding
// tokens. An active invite creates one new user per successful redemption,
// up to its use limit; exhaustion, revocation and expiry all terminate it.
// Expiry is evaluated lazily at redemption time, never by a background
// sweep, so an expired invite can still list as active until someone tries
// to redeem it.
package invite

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"rrsa.org/internal/ids"
	"rrsa.org/internal/roles"
	"rrsa.org/internal/store"
)

var (
	// ErrInactive indicates the invite was revoked or exhausted.
	ErrInactive = errors.New("invite: inactive or revoked")
	// ErrExpired indicates the invite's expiry has passed.
	ErrExpired = errors.New("invite: expired")
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service issues, redeems and revokes invites on top of the store.
type Service struct {
	store *store.Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service over the given store.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newCode returns a human-typable invite code like RRSA-K7MWQ2PX. The
// alphabet omits 0/O/1/I to keep it unambiguous over voice or handwriting.
func newCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("invite: entropy unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return "RRSA-" + string(buf)
}

// CreateParams describes a new invite.
type CreateParams struct {
	League     string
	LeagueRole roles.LeagueRole
	Department string
	CreatedBy  string
	MaxUses    int
	ExpiresAt  *time.Time
	Note       string
}

// Create issues a new invite scoped to one league role.
func (s *Service) Create(ctx context.Context, p CreateParams) (store.Invite, error) {
	var created store.Invite
	err := s.store.Update(ctx, func(doc *store.Document) error {
		league := p.League
		if league == "" {
			league = doc.Settings.DefaultLeague
		}
		leagueRole := p.LeagueRole
		if leagueRole == "" {
			leagueRole = roles.LeagueOfficial
		}
		if !roles.ValidLeagueRole(leagueRole) {
			return fmt.Errorf("%w: unknown league role %q", store.ErrValidation, leagueRole)
		}
		dept := p.Department
		if dept == "" {
			dept = "Officials"
		}
		maxUses := p.MaxUses
		if maxUses < 1 {
			maxUses = 1
		}

		code := newCode()
		for doc.InviteByCode(code) != nil {
			code = newCode()
		}

		created = store.Invite{
			ID:         ids.New(ids.PrefixInvite),
			Code:       code,
			League:     league,
			LeagueRole: leagueRole,
			Department: dept,
			CreatedAt:  s.now().UTC(),
			CreatedBy:  p.CreatedBy,
			ExpiresAt:  p.ExpiresAt,
			MaxUses:    maxUses,
			Uses:       0,
			Active:     true,
			Note:       p.Note,
		}
		doc.Invites = append([]store.Invite{store.CloneInvite(created)}, doc.Invites...)

		doc.PrependAudit(store.AuditEntry{
			ID:      ids.New(ids.PrefixAudit),
			At:      s.now().UTC(),
			Actor:   p.CreatedBy,
			Action:  "invite_create",
			Details: fmt.Sprintf("Created invite %s for %s/%s (max uses %d).", code, league, leagueRole, maxUses),
		})
		return nil
	})
	if err != nil {
		return store.Invite{}, err
	}
	return created, nil
}

// List returns copies of every invite, newest first.
func (s *Service) List(ctx context.Context) ([]store.Invite, error) {
	var out []store.Invite
	err := s.store.View(ctx, func(doc *store.Document) error {
		out = make([]store.Invite, 0, len(doc.Invites))
		for _, inv := range doc.Invites {
			out = append(out, store.CloneInvite(inv))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Revoke deactivates an invite unconditionally and irreversibly, regardless
// of remaining uses.
func (s *Service) Revoke(ctx context.Context, code, actor string) error {
	return s.store.Update(ctx, func(doc *store.Document) error {
		inv := doc.InviteByCode(code)
		if inv == nil {
			return fmt.Errorf("%w: invite %q", store.ErrNotFound, code)
		}
		inv.Active = false
		doc.PrependAudit(store.AuditEntry{
			ID:      ids.New(ids.PrefixAudit),
			At:      s.now().UTC(),
			Actor:   actor,
			Action:  "invite_revoke",
			Details: fmt.Sprintf("Revoked invite %s.", inv.Code),
		})
		return nil
	})
}

// RedeemParams creates a user from an invite code.
type RedeemParams struct {
	Code        string
	Username    string
	Password    string
	DisplayName string
}

// Redeem consumes one use of the invite and creates the new user scoped to
// the invite's league, role and department, all in one write. The use count
// reaching MaxUses deactivates the invite in the same write.
func (s *Service) Redeem(ctx context.Context, p RedeemParams) (store.User, error) {
	var created store.User
	err := s.store.Update(ctx, func(doc *store.Document) error {
		inv := doc.InviteByCode(p.Code)
		if inv == nil {
			return fmt.Errorf("%w: invite %q", store.ErrNotFound, p.Code)
		}
		if !inv.Active {
			return ErrInactive
		}
		if inv.Expired(s.now().UTC()) {
			return ErrExpired
		}
		if inv.Uses >= inv.MaxUses {
			return ErrInactive
		}

		if err := store.ValidateUsername(p.Username); err != nil {
			return err
		}
		if len(p.Password) < 3 {
			return fmt.Errorf("%w: password too short", store.ErrValidation)
		}
		uname := store.NormalizeUsername(p.Username)
		if doc.UserByUsername(uname) != nil {
			return fmt.Errorf("%w: username %q", store.ErrConflict, uname)
		}

		displayName := p.DisplayName
		if displayName == "" {
			displayName = uname
		}
		created = store.User{
			ID:          ids.New(ids.PrefixUser),
			Username:    uname,
			Password:    p.Password,
			DisplayName: displayName,
			GlobalRole:  roles.GlobalOfficial,
			LeagueRoles: map[string]store.LeagueAssignment{
				inv.League: {Role: inv.LeagueRole, Department: inv.Department},
			},
			Active: true,
		}
		doc.Users = append(doc.Users, store.CloneUser(created))

		inv.Uses++
		if inv.Uses >= inv.MaxUses {
			inv.Active = false
		}

		doc.PrependAudit(store.AuditEntry{
			ID:      ids.New(ids.PrefixAudit),
			At:      s.now().UTC(),
			Actor:   uname,
			Action:  "invite_redeem",
			Details: fmt.Sprintf("Redeemed invite %s (%d/%d uses).", inv.Code, inv.Uses, inv.MaxUses),
		})
		return nil
	})
	if err != nil {
		return store.User{}, err
	}
	return created, nil
}
