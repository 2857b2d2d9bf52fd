package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"rrsa.org/internal/ids"
)

// CreateAttendanceEventParams describes a new event officials get graded
// against.
type CreateAttendanceEventParams struct {
	EventType string
	League    string
	EventName string
	EventDate string
	CreatedBy string
}

// CreateAttendanceEvent inserts an event at the head of the list (newest
// first) with no marks.
func (s *Store) CreateAttendanceEvent(ctx context.Context, p CreateAttendanceEventParams) (AttendanceEvent, error) {
	var created AttendanceEvent
	err := s.Update(ctx, func(doc *Document) error {
		eventType := p.EventType
		if eventType == "" {
			eventType = "Game"
		}
		league := p.League
		if league == "" {
			league = doc.Settings.DefaultLeague
		}
		name := p.EventName
		if name == "" {
			name = "Untitled Event"
		}
		created = AttendanceEvent{
			ID:        ids.New(ids.PrefixAttendance),
			EventType: eventType,
			League:    league,
			EventName: name,
			EventDate: p.EventDate,
			CreatedAt: s.Now(),
			CreatedBy: p.CreatedBy,
			Marks:     []AttendanceMark{},
		}
		doc.Attendance = append([]AttendanceEvent{CloneAttendanceEvent(created)}, doc.Attendance...)
		return nil
	})
	if err != nil {
		return AttendanceEvent{}, err
	}
	return created, nil
}

// MarkAttendanceParams grades one official for one event.
type MarkAttendanceParams struct {
	EventID         string
	SubjectUsername string
	Status          string
	Note            string
	Actor           string
}

// MarkAttendance upserts the subject's mark on the event and records the
// grading in the audit log, all in one write.
func (s *Store) MarkAttendance(ctx context.Context, p MarkAttendanceParams) error {
	return s.Update(ctx, func(doc *Document) error {
		ev := doc.AttendanceByID(p.EventID)
		if ev == nil {
			return fmt.Errorf("%w: attendance event %q", ErrNotFound, p.EventID)
		}
		subject := doc.UserByUsername(p.SubjectUsername)
		if subject == nil {
			return fmt.Errorf("%w: user %q", ErrNotFound, NormalizeUsername(p.SubjectUsername))
		}

		mark := AttendanceMark{
			UserID:    subject.ID,
			Username:  subject.Username,
			Status:    NormalizeStatus(p.Status),
			Timestamp: s.Now(),
			Note:      p.Note,
		}
		replaced := false
		for i := range ev.Marks {
			if ev.Marks[i].Username == subject.Username {
				ev.Marks[i] = mark
				replaced = true
				break
			}
		}
		if !replaced {
			ev.Marks = append(ev.Marks, mark)
		}

		doc.PrependAudit(AuditEntry{
			ID:      ids.New(ids.PrefixAudit),
			At:      s.Now(),
			Actor:   p.Actor,
			Action:  "attendance_mark",
			Details: fmt.Sprintf("Marked %s as %s for %q.", subject.Username, mark.Status, ev.EventName),
		})
		return nil
	})
}

// ListAttendance returns copies of all events, optionally filtered by league.
func (s *Store) ListAttendance(ctx context.Context, league string) ([]AttendanceEvent, error) {
	var out []AttendanceEvent
	err := s.View(ctx, func(doc *Document) error {
		out = make([]AttendanceEvent, 0, len(doc.Attendance))
		for _, ev := range doc.Attendance {
			if league != "" && ev.League != league {
				continue
			}
			out = append(out, CloneAttendanceEvent(ev))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AttendanceRow is one event's outcome for a single official.
type AttendanceRow struct {
	EventName string           `json:"eventName"`
	League    string           `json:"league"`
	EventType string           `json:"eventType"`
	EventDate string           `json:"eventDate"`
	Status    AttendanceStatus `json:"status"`
	Note      string           `json:"note"`
}

// AttendanceHistory returns the official's per-event outcomes, optionally
// restricted to one league.
func (s *Store) AttendanceHistory(ctx context.Context, username, league string) ([]AttendanceRow, error) {
	uname := NormalizeUsername(username)
	var rows []AttendanceRow
	err := s.View(ctx, func(doc *Document) error {
		for _, ev := range doc.Attendance {
			if league != "" && ev.League != league {
				continue
			}
			for _, m := range ev.Marks {
				if m.Username != uname {
					continue
				}
				rows = append(rows, AttendanceRow{
					EventName: ev.EventName,
					League:    ev.League,
					EventType: ev.EventType,
					EventDate: ev.EventDate,
					Status:    m.Status,
					Note:      m.Note,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AttendanceStats aggregates one official's marks. Present, Late and Excused
// count as attended; No-Show counts against.
type AttendanceStats struct {
	Present  int     `json:"present"`
	Late     int     `json:"late"`
	Excused  int     `json:"excused"`
	NoShow   int     `json:"noShow"`
	Total    int     `json:"total"`
	Attended int     `json:"attended"`
	Percent  float64 `json:"pct"`
}

// AttendanceStatsFor computes attendance statistics for one official,
// optionally scoped to a league.
func (s *Store) AttendanceStatsFor(ctx context.Context, username, league string) (AttendanceStats, error) {
	rows, err := s.AttendanceHistory(ctx, username, league)
	if err != nil {
		return AttendanceStats{}, err
	}
	var st AttendanceStats
	for _, r := range rows {
		st.Total++
		switch r.Status {
		case StatusPresent:
			st.Present++
		case StatusLate:
			st.Late++
		case StatusExcused:
			st.Excused++
		case StatusNoShow:
			st.NoShow++
		}
	}
	st.Attended = st.Present + st.Late + st.Excused
	if st.Total > 0 {
		st.Percent = math.Round(float64(st.Attended)/float64(st.Total)*1000) / 10
	}
	return st, nil
}

// CreateReviewParams grades one official across the five categories.
type CreateReviewParams struct {
	League          string
	SubjectUsername string
	EventRef        string
	CreatedBy       string
	Scores          Scores
	Comments        string
}

func validateScore(name string, v int) error {
	if v < 1 || v > 10 {
		return fmt.Errorf("%w: score %s must be between 1 and 10", ErrValidation, name)
	}
	return nil
}

// AddPerformanceReview inserts a review (newest first) and records it in the
// audit log. Scores outside 1-10 are rejected, not clamped.
func (s *Store) AddPerformanceReview(ctx context.Context, p CreateReviewParams) (PerformanceReview, error) {
	var created PerformanceReview
	err := s.Update(ctx, func(doc *Document) error {
		subject := doc.UserByUsername(p.SubjectUsername)
		if subject == nil {
			return fmt.Errorf("%w: user %q", ErrNotFound, NormalizeUsername(p.SubjectUsername))
		}
		sc := p.Scores
		for _, check := range []struct {
			name string
			v    int
		}{
			{"ruleKnowledge", sc.RuleKnowledge},
			{"communication", sc.Communication},
			{"fairness", sc.Fairness},
			{"consistency", sc.Consistency},
			{"professionalism", sc.Professionalism},
		} {
			if err := validateScore(check.name, check.v); err != nil {
				return err
			}
		}

		league := p.League
		if league == "" {
			league = doc.Settings.DefaultLeague
		}
		eventRef := p.EventRef
		if eventRef == "" {
			eventRef = "General"
		}
		created = PerformanceReview{
			ID:              ids.New(ids.PrefixPerformance),
			League:          league,
			SubjectUsername: subject.Username,
			EventRef:        eventRef,
			CreatedAt:       s.Now(),
			CreatedBy:       p.CreatedBy,
			Scores:          sc,
			Comments:        p.Comments,
		}
		doc.Performance = append([]PerformanceReview{created}, doc.Performance...)

		doc.PrependAudit(AuditEntry{
			ID:      ids.New(ids.PrefixAudit),
			At:      s.Now(),
			Actor:   p.CreatedBy,
			Action:  "performance_review",
			Details: fmt.Sprintf("Reviewed %s (%s).", subject.Username, eventRef),
		})
		return nil
	})
	if err != nil {
		return PerformanceReview{}, err
	}
	return created, nil
}

// ListPerformance returns copies of reviews, optionally filtered by league
// and/or subject.
func (s *Store) ListPerformance(ctx context.Context, league, subject string) ([]PerformanceReview, error) {
	uname := NormalizeUsername(subject)
	var out []PerformanceReview
	err := s.View(ctx, func(doc *Document) error {
		out = make([]PerformanceReview, 0, len(doc.Performance))
		for _, r := range doc.Performance {
			if league != "" && r.League != league {
				continue
			}
			if subject != "" && NormalizeUsername(r.SubjectUsername) != uname {
				continue
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryAverages holds the per-category means, rounded to one decimal.
type CategoryAverages struct {
	RuleKnowledge   float64 `json:"ruleKnowledge"`
	Communication   float64 `json:"communication"`
	Fairness        float64 `json:"fairness"`
	Consistency     float64 `json:"consistency"`
	Professionalism float64 `json:"professionalism"`
}

// PerformanceAverage is the per-category and overall mean for one official.
type PerformanceAverage struct {
	Average     float64          `json:"avg"`
	PerCategory CategoryAverages `json:"perCategory"`
	Count       int              `json:"count"`
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// AverageForUser computes score averages across all of the official's
// reviews. No reviews yields a zero average with Count 0.
func (s *Store) AverageForUser(ctx context.Context, username string) (PerformanceAverage, error) {
	reviews, err := s.ListPerformance(ctx, "", username)
	if err != nil {
		return PerformanceAverage{}, err
	}
	if len(reviews) == 0 {
		return PerformanceAverage{}, nil
	}
	var sums [5]float64
	for _, r := range reviews {
		sums[0] += float64(r.Scores.RuleKnowledge)
		sums[1] += float64(r.Scores.Communication)
		sums[2] += float64(r.Scores.Fairness)
		sums[3] += float64(r.Scores.Consistency)
		sums[4] += float64(r.Scores.Professionalism)
	}
	n := float64(len(reviews))
	var overall float64
	for i := range sums {
		sums[i] = round1(sums[i] / n)
		overall += sums[i]
	}
	return PerformanceAverage{
		Average: round1(overall / 5),
		PerCategory: CategoryAverages{
			RuleKnowledge:   sums[0],
			Communication:   sums[1],
			Fairness:        sums[2],
			Consistency:     sums[3],
			Professionalism: sums[4],
		},
		Count: len(reviews),
	}, nil
}

// FlaggedOfficial is an active official whose review average fell below the
// configured performance threshold.
type FlaggedOfficial struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	Average     float64 `json:"avg"`
	Count       int     `json:"count"`
}

// FlaggedOfficials lists active baseline officials scoring under the
// threshold, worst first.
func (s *Store) FlaggedOfficials(ctx context.Context) ([]FlaggedOfficial, error) {
	var threshold float64
	var users []User
	err := s.View(ctx, func(doc *Document) error {
		threshold = doc.Settings.PerformanceThreshold
		for _, u := range doc.Users {
			if u.Active {
				users = append(users, CloneUser(u))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var flagged []FlaggedOfficial
	for _, u := range users {
		avg, err := s.AverageForUser(ctx, u.Username)
		if err != nil {
			return nil, err
		}
		if avg.Count == 0 || avg.Average >= threshold {
			continue
		}
		flagged = append(flagged, FlaggedOfficial{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Average:     avg.Average,
			Count:       avg.Count,
		})
	}
	sort.Slice(flagged, func(i, j int) bool { return flagged[i].Average < flagged[j].Average })
	return flagged, nil
}
