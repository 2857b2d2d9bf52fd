package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// GetSettings returns a copy of the settings section.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.View(ctx, func(doc *Document) error {
		out = cloneSettings(doc.Settings)
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return out, nil
}

// UpdateSettings validates and replaces the settings section.
func (s *Store) UpdateSettings(ctx context.Context, next Settings) error {
	return s.Update(ctx, func(doc *Document) error {
		if next.PerformanceThreshold < 0 || next.PerformanceThreshold > 10 {
			return fmt.Errorf("%w: performance threshold must be between 0 and 10", ErrValidation)
		}
		if len(next.Leagues) == 0 {
			return fmt.Errorf("%w: at least one league is required", ErrValidation)
		}
		if !slices.Contains(next.Leagues, next.DefaultLeague) {
			return fmt.Errorf("%w: default league %q is not in the league list", ErrValidation, next.DefaultLeague)
		}
		p := next.AuthPolicy
		if p.MaxFailedAttempts < 1 || p.LockMinutes < 1 ||
			p.IdleTimeoutMinutes < 1 || p.AbsoluteTimeoutHours < 1 || p.MinPasswordLen < 1 {
			return fmt.Errorf("%w: auth policy values must be positive", ErrValidation)
		}
		doc.Settings = cloneSettings(next)
		return nil
	})
}

// ListLeagues returns the configured league keys.
func (s *Store) ListLeagues(ctx context.Context) ([]string, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Leagues, nil
}

// ValidatePassword checks a candidate password against the policy. Login
// itself never calls this: stored passwords are opaque strings compared
// exactly, whatever policy was in force when they were set.
func (p AuthPolicy) ValidatePassword(password string) error {
	minLen := p.MinPasswordLen
	if minLen <= 0 {
		minLen = DefaultAuthPolicy().MinPasswordLen
	}
	if len(password) < minLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minLen)
	}
	if p.RequireLetter && !strings.ContainsFunc(password, unicode.IsLetter) {
		return fmt.Errorf("%w: password must include a letter", ErrValidation)
	}
	if p.RequireNumber && !strings.ContainsFunc(password, unicode.IsDigit) {
		return fmt.Errorf("%w: password must include a number", ErrValidation)
	}
	return nil
}
