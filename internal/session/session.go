// Package session issues, validates and expires logged-in sessions, layered
// on the store's lockout and user state. Sessions are bearer tokens: the
// design deliberately preserves the original client-side-trust model and is
// not a hardened authentication system.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rrsa.org/internal/store"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so a caller cannot probe for account existence.
	ErrInvalidCredentials = errors.New("session: invalid username or password")
	// ErrAccountDisabled indicates the account exists but cannot log in.
	ErrAccountDisabled = errors.New("session: account disabled")
	// ErrNoSession indicates the token names no live session.
	ErrNoSession = errors.New("session: no active session")
)

// LockedError reports a lockout along with the time it lifts.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("session: account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// Session is a logged-in principal. Validity is always derived from the
// timestamps, never stored as a flag.
type Session struct {
	ID           string
	Username     string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Manager owns the in-flight session set. The store never sees sessions,
// only the lockout and user state their validity depends on.
type Manager struct {
	store *store.Store
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures Manager behavior.
type Option func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager over the given store.
func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    st,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login authenticates a username/password pair. The checks short-circuit in
// a fixed order: active lock, unknown user (a failure is still recorded so
// probing costs attempts), disabled account (no failure recorded), password
// mismatch (failure recorded, possibly imposing a lock), then success.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, string, error) {
	uname := store.NormalizeUsername(username)

	lock, err := m.store.Lockout(ctx, uname)
	if err != nil {
		return Session{}, "", err
	}
	if lock.Locked {
		return Session{}, "", &LockedError{Until: lock.Until}
	}

	user, err := m.store.GetUserByUsername(ctx, uname)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := m.store.RecordLoginFailure(ctx, uname); err != nil {
			return Session{}, "", err
		}
		return Session{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, "", err
	}
	if !user.Active {
		return Session{}, "", ErrAccountDisabled
	}

	// Opaque string comparison, exactly as stored.
	if user.Password != password {
		st, err := m.store.RecordLoginFailure(ctx, uname)
		if err != nil {
			return Session{}, "", err
		}
		if st.Locked {
			return Session{}, "", &LockedError{Until: st.Until}
		}
		return Session{}, "", ErrInvalidCredentials
	}

	if err := m.store.ClearLoginFailures(ctx, uname); err != nil {
		return Session{}, "", err
	}

	now := m.now().UTC()
	sess := &Session{
		ID:           uuid.NewString(),
		Username:     uname,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	policy, err := m.policy(ctx)
	if err != nil {
		return Session{}, "", err
	}
	token, err := GenerateToken(uname, sess.ID, time.Duration(policy.AbsoluteTimeoutHours)*time.Hour)
	if err != nil {
		return Session{}, "", err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	if _, err := m.store.AppendAudit(ctx, uname, "login", "User logged in."); err != nil {
		return Session{}, "", err
	}
	return *sess, token, nil
}

// Expired reports whether the session has exceeded the absolute or the idle
// window. Pure function of the policy and wall-clock time.
func Expired(sess Session, policy store.AuthPolicy, now time.Time) bool {
	if sess.CreatedAt.IsZero() {
		return false
	}
	abs := time.Duration(policy.AbsoluteTimeoutHours) * time.Hour
	idle := time.Duration(policy.IdleTimeoutMinutes) * time.Minute
	lastActive := sess.LastActiveAt
	if lastActive.IsZero() {
		lastActive = sess.CreatedAt
	}
	return now.Sub(sess.CreatedAt) > abs || now.Sub(lastActive) > idle
}

// IsValid reports whether the session is still usable: inside both timeout
// windows and referencing a user that still exists and is active.
func (m *Manager) IsValid(ctx context.Context, sess Session) bool {
	policy, err := m.policy(ctx)
	if err != nil {
		return false
	}
	if Expired(sess, policy, m.now().UTC()) {
		return false
	}
	user, err := m.store.GetUserByUsername(ctx, sess.Username)
	if err != nil {
		return false
	}
	return user.Active
}

// Touch marks activity on a session. Callers invoke it on every observed
// user-activity signal, not on a timer, so an idle session expires even
// while the absolute window is still open.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[sessionID]; ok {
		sess.LastActiveAt = m.now().UTC()
	}
}

// Authenticate resolves a bearer token to its live session and user. Expired
// or orphaned sessions are discarded on sight.
func (m *Manager) Authenticate(ctx context.Context, token string) (Session, store.User, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return Session{}, store.User{}, ErrInvalidToken
	}

	m.mu.Lock()
	sess, ok := m.sessions[claims.SessionID]
	var snapshot Session
	if ok {
		snapshot = *sess
	}
	m.mu.Unlock()
	if !ok || snapshot.Username != claims.Subject {
		return Session{}, store.User{}, ErrNoSession
	}

	if !m.IsValid(ctx, snapshot) {
		m.drop(claims.SessionID)
		return Session{}, store.User{}, ErrNoSession
	}
	user, err := m.store.GetUserByUsername(ctx, snapshot.Username)
	if err != nil {
		return Session{}, store.User{}, ErrNoSession
	}
	return snapshot, user, nil
}

// Logout records the logout and discards the session. Unknown sessions are
// a no-op.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	var uname string
	if ok {
		uname = sess.Username
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.drop(sessionID)
	_, err := m.store.AppendAudit(ctx, uname, "logout", "User logged out.")
	return err
}

func (m *Manager) drop(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

func (m *Manager) policy(ctx context.Context) (store.AuthPolicy, error) {
	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		return store.AuthPolicy{}, err
	}
	p := settings.AuthPolicy
	if p == (store.AuthPolicy{}) {
		p = store.DefaultAuthPolicy()
	}
	return p, nil
}
