package store

import (
	"context"
	"errors"
	"testing"

	"rrsa.org/internal/roles"
)

func TestCreateUserDefaults(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, CreateUserParams{Username: "ref_bob", Password: "rrsa"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.GlobalRole != roles.GlobalOfficial {
		t.Fatalf("GlobalRole = %q, want OFFICIAL", u.GlobalRole)
	}
	asg, ok := u.LeagueRoles["RRFL"]
	if !ok {
		t.Fatalf("expected default league assignment, got %+v", u.LeagueRoles)
	}
	if asg.Role != roles.LeagueOfficial || asg.Department != "Officials" {
		t.Fatalf("unexpected assignment %+v", asg)
	}
	if u.DisplayName != "ref_bob" {
		t.Fatalf("DisplayName = %q, want username fallback", u.DisplayName)
	}
	if !u.Active {
		t.Fatal("new user should be active")
	}
}

func TestCreateUserRejectsUppercase(t *testing.T) {
	s := newSeededStore(t)

	_, err := s.CreateUser(context.Background(), CreateUserParams{Username: "Bob", Password: "rrsa"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		p    CreateUserParams
	}{
		{"short username", CreateUserParams{Username: "ab", Password: "rrsa"}},
		{"illegal chars", CreateUserParams{Username: "bad name", Password: "rrsa"}},
		{"short password", CreateUserParams{Username: "ref_ok", Password: "xy"}},
		{"bad global role", CreateUserParams{Username: "ref_ok", Password: "rrsa", GlobalRole: "KING"}},
		{"bad league role", CreateUserParams{Username: "ref_ok", Password: "rrsa", LeagueRole: "JESTER"}},
	}
	for _, tc := range cases {
		if _, err := s.CreateUser(ctx, tc.p); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestCreateUserConflictCaseInsensitive(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	// mrv exists in the seed; a same-spelling duplicate conflicts.
	_, err := s.CreateUser(ctx, CreateUserParams{Username: "mrv", Password: "rrsa"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestGetUserNormalizesLookup(t *testing.T) {
	s := newSeededStore(t)

	u, err := s.GetUserByUsername(context.Background(), "  MRV  ")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.Username != "mrv" {
		t.Fatalf("Username = %q, want mrv", u.Username)
	}
}

func TestUpdateUserKeepsUsername(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	u, err := s.GetUserByUsername(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	u.Username = "renamed"
	u.DisplayName = "Ava R."
	u.Active = false
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, err := s.GetUserByUsername(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("user lookup after update: %v", err)
	}
	if got.Username != "ref_ava" {
		t.Fatalf("username changed to %q, must stay immutable", got.Username)
	}
	if got.DisplayName != "Ava R." || got.Active {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestSetUserPassword(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	if err := s.SetUserPassword(ctx, "ref_ava", "newpass1"); err != nil {
		t.Fatalf("SetUserPassword: %v", err)
	}
	u, err := s.GetUserByUsername(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.Password != "newpass1" {
		t.Fatalf("Password = %q, want newpass1", u.Password)
	}

	if err := s.SetUserPassword(ctx, "nobody", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	// ref_ava carries a seeded attendance mark and a seeded review.
	removed, err := s.DeleteUser(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if removed.Username != "ref_ava" {
		t.Fatalf("removed %q, want ref_ava", removed.Username)
	}

	events, err := s.ListAttendance(ctx, "")
	if err != nil {
		t.Fatalf("ListAttendance: %v", err)
	}
	for _, ev := range events {
		for _, m := range ev.Marks {
			if m.Username == "ref_ava" {
				t.Fatalf("orphaned mark left on %q", ev.EventName)
			}
		}
	}

	reviews, err := s.ListPerformance(ctx, "", "ref_ava")
	if err != nil {
		t.Fatalf("ListPerformance: %v", err)
	}
	if len(reviews) != 0 {
		t.Fatalf("orphaned reviews left: %d", len(reviews))
	}

	if _, err := s.GetUserByUsername(ctx, "ref_ava"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestDeleteUserUnknown(t *testing.T) {
	s := newSeededStore(t)

	if _, err := s.DeleteUser(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
