package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"rrsa.org/internal/store"
)

func newTestManager(t *testing.T, now *time.Time) (*Manager, *store.Store) {
	t.Helper()
	setSecret(t)
	st := store.New(store.NewMemoryBackend(), store.WithClock(func() time.Time { return *now }))
	if _, err := st.LoadOrInit(context.Background()); err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	m := NewManager(st, WithClock(func() time.Time { return *now }))
	return m, st
}

func TestLoginSuccess(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, st := newTestManager(t, &now)
	ctx := context.Background()

	sess, token, err := m.Login(ctx, "MRV", "rrsa")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Username != "mrv" {
		t.Fatalf("Username = %q, want normalized mrv", sess.Username)
	}
	if token == "" {
		t.Fatal("expected bearer token")
	}

	got, user, err := m.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != sess.ID || user.Username != "mrv" {
		t.Fatalf("unexpected session %+v user %+v", got, user)
	}

	audit, err := st.ListAudit(ctx, 1)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(audit) != 1 || audit[0].Action != "login" {
		t.Fatalf("newest audit = %+v, want login", audit)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, st := newTestManager(t, &now)
	ctx := context.Background()

	_, _, err := m.Login(ctx, "mrv", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	lock, err := st.Lockout(ctx, "mrv")
	if err != nil {
		t.Fatalf("Lockout: %v", err)
	}
	if lock.Count != 1 {
		t.Fatalf("failure not recorded: %+v", lock)
	}

	// A later success clears the counter.
	if _, _, err := m.Login(ctx, "mrv", "rrsa"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	lock, err = st.Lockout(ctx, "mrv")
	if err != nil {
		t.Fatalf("Lockout: %v", err)
	}
	if lock.Count != 0 {
		t.Fatalf("counter not cleared: %+v", lock)
	}
}

func TestLoginUnknownUserRecordsFailure(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, st := newTestManager(t, &now)
	ctx := context.Background()

	_, _, err := m.Login(ctx, "ghost", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	lock, err := st.Lockout(ctx, "ghost")
	if err != nil {
		t.Fatalf("Lockout: %v", err)
	}
	if lock.Count != 1 {
		t.Fatalf("probing an unknown name must cost an attempt: %+v", lock)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, st := newTestManager(t, &now)
	ctx := context.Background()

	u, err := st.GetUserByUsername(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	u.Active = false
	if err := st.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	_, _, err = m.Login(ctx, "ref_ava", "rrsa")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("err = %v, want ErrAccountDisabled", err)
	}
	lock, err := st.Lockout(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("Lockout: %v", err)
	}
	if lock.Count != 0 {
		t.Fatalf("disabled account must not record a failure: %+v", lock)
	}
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, &now)
	ctx := context.Background()

	var err error
	for i := 0; i < 5; i++ {
		_, _, err = m.Login(ctx, "mrv", "wrong")
	}
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("fifth failure err = %v, want LockedError", err)
	}
	if want := now.Add(10 * time.Minute); !locked.Until.Equal(want) {
		t.Fatalf("Until = %v, want %v", locked.Until, want)
	}

	// Even the correct password is refused while locked.
	_, _, err = m.Login(ctx, "mrv", "rrsa")
	if !errors.As(err, &locked) {
		t.Fatalf("login while locked err = %v, want LockedError", err)
	}

	// The lock lapses with time and a clean login succeeds.
	now = now.Add(11 * time.Minute)
	if _, _, err := m.Login(ctx, "mrv", "rrsa"); err != nil {
		t.Fatalf("login after lapse: %v", err)
	}
}

func TestSessionIdleExpiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, &now)
	ctx := context.Background()

	sess, token, err := m.Login(ctx, "mrv", "rrsa")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	now = now.Add(29 * time.Minute)
	if !m.IsValid(ctx, sess) {
		t.Fatal("29 idle minutes should still be valid")
	}
	m.Touch(sess.ID)

	now = now.Add(29 * time.Minute)
	if _, _, err := m.Authenticate(ctx, token); err != nil {
		t.Fatalf("touched session rejected: %v", err)
	}

	now = now.Add(31 * time.Minute)
	if _, _, err := m.Authenticate(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("idle session err = %v, want ErrNoSession", err)
	}
}

func TestSessionAbsoluteExpiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, &now)
	ctx := context.Background()

	sess, _, err := m.Login(ctx, "mrv", "rrsa")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Keep touching, the absolute window still closes.
	for i := 0; i < 13*60/25; i++ {
		now = now.Add(25 * time.Minute)
		m.Touch(sess.ID)
	}
	m.mu.Lock()
	snapshot := *m.sessions[sess.ID]
	m.mu.Unlock()

	if now.Sub(snapshot.CreatedAt) <= 12*time.Hour {
		t.Fatalf("fixture did not pass the absolute window: %v", now.Sub(snapshot.CreatedAt))
	}
	if now.Sub(snapshot.LastActiveAt) > time.Hour {
		t.Fatalf("fixture let the session go idle: %v", now.Sub(snapshot.LastActiveAt))
	}
	if m.IsValid(ctx, snapshot) {
		t.Fatal("session past the absolute window must be invalid however recently it was active")
	}
}

func TestExpiredPureFunction(t *testing.T) {
	policy := store.DefaultAuthPolicy()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	sess := Session{CreatedAt: base, LastActiveAt: base.Add(10 * time.Minute)}

	if Expired(sess, policy, base.Add(30*time.Minute)) {
		t.Fatal("inside both windows")
	}
	if !Expired(sess, policy, base.Add(41*time.Minute)) {
		t.Fatal("past the idle window")
	}
	sess.LastActiveAt = base.Add(12*time.Hour + 30*time.Minute)
	if !Expired(sess, policy, base.Add(12*time.Hour+45*time.Minute)) {
		t.Fatal("past the absolute window")
	}
	if Expired(Session{}, policy, base) {
		t.Fatal("zero session never expires")
	}
}

func TestSessionInvalidAfterUserDisabledOrDeleted(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, st := newTestManager(t, &now)
	ctx := context.Background()

	sess, token, err := m.Login(ctx, "ref_ava", "rrsa")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	u, err := st.GetUserByUsername(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	u.Active = false
	if err := st.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if m.IsValid(ctx, sess) {
		t.Fatal("session for a disabled user must be invalid")
	}
	if _, _, err := m.Authenticate(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestLogout(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	m, st := newTestManager(t, &now)
	ctx := context.Background()

	sess, token, err := m.Login(ctx, "mrv", "rrsa")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := m.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, err := m.Authenticate(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession after logout", err)
	}

	audit, err := st.ListAudit(ctx, 1)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if audit[0].Action != "logout" {
		t.Fatalf("newest audit = %+v, want logout", audit[0])
	}

	// Unknown sessions are a silent no-op.
	if err := m.Logout(ctx, "sess-unknown"); err != nil {
		t.Fatalf("Logout unknown: %v", err)
	}
}
