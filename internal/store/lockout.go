package store

import (
	"context"
	"time"

	"rrsa.org/internal/obs"
)

// LockoutStatus is a point-in-time view of one username's failure state.
type LockoutStatus struct {
	Locked bool
	Until  time.Time
	Count  int
}

// Lockout reports the failure state for a username. It is a pure query: a
// lapsed lock stays in storage until the next failure or explicit clear.
func (s *Store) Lockout(ctx context.Context, username string) (LockoutStatus, error) {
	uname := NormalizeUsername(username)
	var st LockoutStatus
	err := s.View(ctx, func(doc *Document) error {
		rec, ok := doc.Auth.Fails[uname]
		if !ok {
			return nil
		}
		st = LockoutStatus{
			Locked: !rec.LockedUntil.IsZero() && rec.LockedUntil.After(s.Now()),
			Until:  rec.LockedUntil,
			Count:  rec.Count,
		}
		return nil
	})
	if err != nil {
		return LockoutStatus{}, err
	}
	return st, nil
}

// RecordLoginFailure increments the consecutive-failure count for a
// username. Reaching the policy's maxFailedAttempts imposes a lock of
// lockMinutes and resets the count to zero.
func (s *Store) RecordLoginFailure(ctx context.Context, username string) (LockoutStatus, error) {
	uname := NormalizeUsername(username)
	var st LockoutStatus
	err := s.Update(ctx, func(doc *Document) error {
		if doc.Auth.Fails == nil {
			doc.Auth.Fails = map[string]LockoutRecord{}
		}
		rec := doc.Auth.Fails[uname]
		rec.Count++
		rec.LastAt = s.Now()

		policy := doc.Settings.AuthPolicy
		max := policy.MaxFailedAttempts
		if max <= 0 {
			max = DefaultAuthPolicy().MaxFailedAttempts
		}
		lockMinutes := policy.LockMinutes
		if lockMinutes <= 0 {
			lockMinutes = DefaultAuthPolicy().LockMinutes
		}

		if rec.Count >= max {
			rec.LockedUntil = s.Now().Add(time.Duration(lockMinutes) * time.Minute)
			rec.Count = 0
			obs.CountLockout()
		}
		doc.Auth.Fails[uname] = rec

		st = LockoutStatus{
			Locked: !rec.LockedUntil.IsZero() && rec.LockedUntil.After(s.Now()),
			Until:  rec.LockedUntil,
			Count:  rec.Count,
		}
		return nil
	})
	if err != nil {
		return LockoutStatus{}, err
	}
	obs.CountLoginFailure()
	return st, nil
}

// ClearLoginFailures removes the failure record entirely, returning the
// username to the clear state. Called on successful login and by the
// explicit admin unlock operation.
func (s *Store) ClearLoginFailures(ctx context.Context, username string) error {
	uname := NormalizeUsername(username)
	return s.Update(ctx, func(doc *Document) error {
		delete(doc.Auth.Fails, uname)
		return nil
	})
}
