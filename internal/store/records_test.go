package store

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAttendanceEventDefaultsAndOrder(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	ev, err := s.CreateAttendanceEvent(ctx, CreateAttendanceEventParams{CreatedBy: "rrfl_mgr"})
	if err != nil {
		t.Fatalf("CreateAttendanceEvent: %v", err)
	}
	if ev.EventType != "Game" || ev.League != "RRFL" || ev.EventName != "Untitled Event" {
		t.Fatalf("defaults not applied: %+v", ev)
	}

	events, err := s.ListAttendance(ctx, "")
	if err != nil {
		t.Fatalf("ListAttendance: %v", err)
	}
	if len(events) < 2 || events[0].ID != ev.ID {
		t.Fatalf("new event should be first, got %+v", events)
	}
}

func TestMarkAttendanceUpserts(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	ev, err := s.CreateAttendanceEvent(ctx, CreateAttendanceEventParams{EventName: "Scrimmage", CreatedBy: "rrfl_mgr"})
	if err != nil {
		t.Fatalf("CreateAttendanceEvent: %v", err)
	}

	mark := MarkAttendanceParams{EventID: ev.ID, SubjectUsername: "ref_ava", Status: "Late", Actor: "rrfl_mgr"}
	if err := s.MarkAttendance(ctx, mark); err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	mark.Status = "Present"
	mark.Note = "arrived after all"
	if err := s.MarkAttendance(ctx, mark); err != nil {
		t.Fatalf("re-mark: %v", err)
	}

	events, err := s.ListAttendance(ctx, "")
	if err != nil {
		t.Fatalf("ListAttendance: %v", err)
	}
	for _, got := range events {
		if got.ID != ev.ID {
			continue
		}
		if len(got.Marks) != 1 {
			t.Fatalf("re-marking must replace, got %d marks", len(got.Marks))
		}
		if got.Marks[0].Status != StatusPresent || got.Marks[0].Note != "arrived after all" {
			t.Fatalf("unexpected mark %+v", got.Marks[0])
		}
		return
	}
	t.Fatal("event not found")
}

func TestMarkAttendanceUnknownSubject(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	ev, err := s.CreateAttendanceEvent(ctx, CreateAttendanceEventParams{CreatedBy: "rrfl_mgr"})
	if err != nil {
		t.Fatalf("CreateAttendanceEvent: %v", err)
	}
	err = s.MarkAttendance(ctx, MarkAttendanceParams{EventID: ev.ID, SubjectUsername: "ghost", Actor: "rrfl_mgr"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	err = s.MarkAttendance(ctx, MarkAttendanceParams{EventID: "att_missing", SubjectUsername: "ref_ava", Actor: "rrfl_mgr"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for bad event", err)
	}
}

func TestAttendanceStats(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	// Seed grants ref_ava one Present mark. Add a No-Show and an Excused.
	for _, status := range []string{"No-Show", "Excused"} {
		ev, err := s.CreateAttendanceEvent(ctx, CreateAttendanceEventParams{EventName: status + " game", CreatedBy: "rrfl_mgr"})
		if err != nil {
			t.Fatalf("CreateAttendanceEvent: %v", err)
		}
		if err := s.MarkAttendance(ctx, MarkAttendanceParams{EventID: ev.ID, SubjectUsername: "ref_ava", Status: status, Actor: "rrfl_mgr"}); err != nil {
			t.Fatalf("MarkAttendance: %v", err)
		}
	}

	st, err := s.AttendanceStatsFor(ctx, "ref_ava", "")
	if err != nil {
		t.Fatalf("AttendanceStatsFor: %v", err)
	}
	if st.Total != 3 || st.Present != 1 || st.Excused != 1 || st.NoShow != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Attended != 2 {
		t.Fatalf("Attended = %d, want 2 (excused counts as attended)", st.Attended)
	}
	if st.Percent != 66.7 {
		t.Fatalf("Percent = %v, want 66.7", st.Percent)
	}
}

func TestAddPerformanceReviewValidatesScores(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	p := CreateReviewParams{
		SubjectUsername: "ref_ava",
		CreatedBy:       "head_refs",
		Scores:          Scores{RuleKnowledge: 11, Communication: 5, Fairness: 5, Consistency: 5, Professionalism: 5},
	}
	if _, err := s.AddPerformanceReview(ctx, p); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation for score 11", err)
	}
	p.Scores.RuleKnowledge = 0
	if _, err := s.AddPerformanceReview(ctx, p); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation for score 0", err)
	}
	p.Scores.RuleKnowledge = 10
	if _, err := s.AddPerformanceReview(ctx, p); err != nil {
		t.Fatalf("valid review rejected: %v", err)
	}
}

func TestAverageForUser(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	// Seeded review is (8,7,8,7,8). Add (4,4,4,4,4).
	_, err := s.AddPerformanceReview(ctx, CreateReviewParams{
		SubjectUsername: "ref_ava",
		CreatedBy:       "head_refs",
		Scores:          Scores{RuleKnowledge: 4, Communication: 4, Fairness: 4, Consistency: 4, Professionalism: 4},
	})
	if err != nil {
		t.Fatalf("AddPerformanceReview: %v", err)
	}

	avg, err := s.AverageForUser(ctx, "ref_ava")
	if err != nil {
		t.Fatalf("AverageForUser: %v", err)
	}
	if avg.Count != 2 {
		t.Fatalf("Count = %d, want 2", avg.Count)
	}
	if avg.PerCategory.RuleKnowledge != 6 || avg.PerCategory.Communication != 5.5 {
		t.Fatalf("per-category wrong: %+v", avg.PerCategory)
	}
	if avg.Average != 5.8 {
		t.Fatalf("Average = %v, want 5.8", avg.Average)
	}
}

func TestAverageForUserNoReviews(t *testing.T) {
	s := newSeededStore(t)

	avg, err := s.AverageForUser(context.Background(), "mrv")
	if err != nil {
		t.Fatalf("AverageForUser: %v", err)
	}
	if avg.Count != 0 || avg.Average != 0 {
		t.Fatalf("expected zero value, got %+v", avg)
	}
}

func TestFlaggedOfficials(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	low := Scores{RuleKnowledge: 3, Communication: 3, Fairness: 3, Consistency: 3, Professionalism: 3}
	if _, err := s.CreateUser(ctx, CreateUserParams{Username: "ref_low", Password: "rrsa"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.AddPerformanceReview(ctx, CreateReviewParams{SubjectUsername: "ref_low", CreatedBy: "head_refs", Scores: low}); err != nil {
		t.Fatalf("AddPerformanceReview: %v", err)
	}

	flagged, err := s.FlaggedOfficials(ctx)
	if err != nil {
		t.Fatalf("FlaggedOfficials: %v", err)
	}
	if len(flagged) != 1 || flagged[0].Username != "ref_low" {
		t.Fatalf("flagged = %+v, want only ref_low (seeded ava averages 7.6)", flagged)
	}

	// Deactivated officials drop out even below the threshold.
	u, err := s.GetUserByUsername(ctx, "ref_low")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	u.Active = false
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	flagged, err = s.FlaggedOfficials(ctx)
	if err != nil {
		t.Fatalf("FlaggedOfficials: %v", err)
	}
	if len(flagged) != 0 {
		t.Fatalf("inactive user still flagged: %+v", flagged)
	}
}

func TestListPerformanceFilters(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	mid := Scores{RuleKnowledge: 7, Communication: 7, Fairness: 7, Consistency: 7, Professionalism: 7}
	if _, err := s.AddPerformanceReview(ctx, CreateReviewParams{League: "RRBL", SubjectUsername: "head_refs", CreatedBy: "mrv", Scores: mid}); err != nil {
		t.Fatalf("AddPerformanceReview: %v", err)
	}

	got, err := s.ListPerformance(ctx, "RRBL", "")
	if err != nil {
		t.Fatalf("ListPerformance: %v", err)
	}
	if len(got) != 1 || got[0].League != "RRBL" {
		t.Fatalf("league filter wrong: %+v", got)
	}

	got, err = s.ListPerformance(ctx, "", "HEAD_REFS")
	if err != nil {
		t.Fatalf("ListPerformance by subject: %v", err)
	}
	if len(got) != 1 || got[0].SubjectUsername != "head_refs" {
		t.Fatalf("subject filter wrong: %+v", got)
	}
}
