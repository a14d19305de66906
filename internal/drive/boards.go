package drive

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"candrive/internal/leaderboard"
	"candrive/internal/metrics"
)

func toStudentTotals(rows []studentTotalRow) []leaderboard.StudentTotal {
	out := make([]leaderboard.StudentTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, leaderboard.StudentTotal{
			ID:              r.ID,
			Name:            JoinName(r.FirstName, r.LastName),
			Grade:           NormalizeGrade(r.Grade),
			HomeroomNumber:  r.HomeroomNumber,
			HomeroomTeacher: r.HomeroomTeacher,
			TotalCans:       r.TotalCans,
			CreatedAt:       r.CreatedAt,
		})
	}
	return out
}

func toTeacherTotals(rows []teacherTotalRow) []leaderboard.TeacherTotal {
	out := make([]leaderboard.TeacherTotal, 0, len(rows))
	for _, r := range rows {
		name := r.FullName
		if name == "" {
			name = JoinName(r.FirstName, r.LastName)
		}
		out = append(out, leaderboard.TeacherTotal{
			ID:             r.ID,
			Name:           name,
			LastName:       r.LastName,
			HomeroomNumber: r.HomeroomNumber,
			TotalCans:      r.TotalCans,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out
}

func (s *Service) totals(ctx context.Context, eventID string, w *window) ([]leaderboard.StudentTotal, []leaderboard.TeacherTotal, error) {
	students, err := s.repo.StudentTotals(ctx, eventID, w)
	if err != nil {
		return nil, nil, unavailable("student totals", err)
	}
	teachers, err := s.repo.TeacherTotals(ctx, eventID, w)
	if err != nil {
		return nil, nil, unavailable("teacher totals", err)
	}
	return toStudentTotals(students), toTeacherTotals(teachers), nil
}

func (s *Service) cached(ctx context.Context, key string) (leaderboard.Board, bool) {
	if s.cache == nil {
		return leaderboard.Board{}, false
	}
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return leaderboard.Board{}, false
	}
	var b leaderboard.Board
	if err := json.Unmarshal(raw, &b); err != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return leaderboard.Board{}, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return b, true
}

func (s *Service) store(ctx context.Context, key string, b leaderboard.Board) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	if raw, err := json.Marshal(b); err == nil {
		s.cache.Set(ctx, key, raw, s.opts.CacheTTL)
	}
}

// GetLeaderboard ranks cumulative totals for the event. Datastore failures
// are reported as ErrUnavailable.
func (s *Service) GetLeaderboard(ctx context.Context, eventID string) (leaderboard.Board, error) {
	key := cacheKey(eventID, "full")
	if b, ok := s.cached(ctx, key); ok {
		return b, nil
	}
	students, teachers, err := s.totals(ctx, eventID, nil)
	if err != nil {
		return leaderboard.Board{}, err
	}
	reached, err := s.repo.Milestones(ctx, eventID)
	if err != nil {
		return leaderboard.Board{}, unavailable("milestones", err)
	}
	b := leaderboard.Build(students, teachers, reached, s.opts.Leaderboard)
	s.store(ctx, key, b)
	return b, nil
}

// GetDailyDonors ranks donations inside the current collection day.
func (s *Service) GetDailyDonors(ctx context.Context, eventID string) (leaderboard.Board, error) {
	start, end, date := leaderboard.DayWindow(s.clock(), s.opts.Location, s.opts.DayResetHour)
	key := cacheKey(eventID, "daily:"+date)
	if b, ok := s.cached(ctx, key); ok {
		return b, nil
	}
	students, teachers, err := s.totals(ctx, eventID, &window{from: start, to: end})
	if err != nil {
		return leaderboard.Board{}, err
	}
	opts := s.opts.Leaderboard
	opts.Limit = s.opts.DailyLimit
	b := leaderboard.BuildDaily(students, teachers, date, opts)
	s.store(ctx, key, b)
	return b, nil
}

// ExportLeaderboardCSV writes donors with cans, students first then
// teachers, each ranked on its own.
func (s *Service) ExportLeaderboardCSV(ctx context.Context, eventID string, w io.Writer) error {
	students, teachers, err := s.totals(ctx, eventID, nil)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Grade", "Homeroom Number", "Homeroom Teacher", "Total Cans", "Rank"}); err != nil {
		return err
	}
	for _, e := range leaderboard.RankStudents(students, 0) {
		if e.TotalCans <= 0 {
			break
		}
		if err := cw.Write([]string{e.Name, e.Grade, e.HomeroomNumber, e.HomeroomTeacher, strconv.FormatInt(e.TotalCans, 10), strconv.Itoa(e.Rank)}); err != nil {
			return err
		}
	}
	for _, e := range leaderboard.RankTeachers(teachers, 0) {
		if e.TotalCans <= 0 {
			break
		}
		if err := cw.Write([]string{e.Name, "Teacher", e.HomeroomNumber, "", strconv.FormatInt(e.TotalCans, 10), strconv.Itoa(e.Rank)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
