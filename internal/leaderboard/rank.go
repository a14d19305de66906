// Package leaderboard turns per-donor can totals into ranked boards. It does
// no I/O; callers load totals ordered by insertion (created_at, id) and the
// ranking keeps that order for ties.
package leaderboard

import (
	"cmp"
	"slices"
	"time"
)

// StudentTotal is one student's cans over the window being ranked.
type StudentTotal struct {
	ID              string
	Name            string
	Grade           string
	HomeroomNumber  string
	HomeroomTeacher string
	TotalCans       int64
	CreatedAt       time.Time
}

// TeacherTotal is one teacher's cans over the window being ranked.
type TeacherTotal struct {
	ID             string
	Name           string
	LastName       string
	HomeroomNumber string
	TotalCans      int64
	CreatedAt      time.Time
}

// StudentEntry is a ranked student row.
type StudentEntry struct {
	Rank            int    `json:"rank"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	Grade           string `json:"grade"`
	HomeroomNumber  string `json:"homeroom_number"`
	HomeroomTeacher string `json:"homeroom_teacher"`
	TotalCans       int64  `json:"total_cans"`
}

// TeacherEntry is a ranked teacher row.
type TeacherEntry struct {
	Rank           int    `json:"rank"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	HomeroomNumber string `json:"homeroom_number"`
	TotalCans      int64  `json:"total_cans"`
}

// ClassEntry is a ranked homeroom row.
type ClassEntry struct {
	Rank            int    `json:"rank"`
	Name            string `json:"name"`
	HomeroomTeacher string `json:"homeroom_teacher"`
	HomeroomNumber  string `json:"homeroom_number"`
	StudentCount    int    `json:"student_count"`
	TotalCans       int64  `json:"total_cans"`
}

// GradeEntry is a ranked grade row.
type GradeEntry struct {
	Rank      int    `json:"rank"`
	Grade     string `json:"grade"`
	TotalCans int64  `json:"total_cans"`
}

// sortByCans orders items by total descending. The sort is stable, so equal
// totals keep the order they arrived in.
func sortByCans[T any](items []T, total func(T) int64) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(total(b), total(a))
	})
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// RankStudents ranks students by cans; ranks are 1-based positions.
func RankStudents(totals []StudentTotal, n int) []StudentEntry {
	sorted := slices.Clone(totals)
	sortByCans(sorted, func(s StudentTotal) int64 { return s.TotalCans })
	sorted = limit(sorted, n)
	out := make([]StudentEntry, 0, len(sorted))
	for i, s := range sorted {
		out = append(out, StudentEntry{
			Rank:            i + 1,
			ID:              s.ID,
			Name:            s.Name,
			Grade:           s.Grade,
			HomeroomNumber:  s.HomeroomNumber,
			HomeroomTeacher: s.HomeroomTeacher,
			TotalCans:       s.TotalCans,
		})
	}
	return out
}

// RankTeachers ranks teachers by cans.
func RankTeachers(totals []TeacherTotal, n int) []TeacherEntry {
	sorted := slices.Clone(totals)
	sortByCans(sorted, func(t TeacherTotal) int64 { return t.TotalCans })
	sorted = limit(sorted, n)
	out := make([]TeacherEntry, 0, len(sorted))
	for i, t := range sorted {
		out = append(out, TeacherEntry{
			Rank:           i + 1,
			ID:             t.ID,
			Name:           t.Name,
			HomeroomNumber: t.HomeroomNumber,
			TotalCans:      t.TotalCans,
		})
	}
	return out
}

// RankClasses ranks homerooms by their combined cans.
func RankClasses(classes []Class, n int) []ClassEntry {
	sorted := slices.Clone(classes)
	sortByCans(sorted, func(c Class) int64 { return c.TotalCans })
	sorted = limit(sorted, n)
	out := make([]ClassEntry, 0, len(sorted))
	for i, c := range sorted {
		out = append(out, ClassEntry{
			Rank:            i + 1,
			Name:            c.Name(),
			HomeroomTeacher: c.Teacher,
			HomeroomNumber:  c.Room,
			StudentCount:    c.StudentCount,
			TotalCans:       c.TotalCans,
		})
	}
	return out
}

// RankGrades groups students by normalized grade and ranks the groups.
// Students without a grade are left out.
func RankGrades(totals []StudentTotal, n int) []GradeEntry {
	var order []string
	sums := map[string]int64{}
	for _, s := range totals {
		g := s.Grade
		if g == "" {
			continue
		}
		if _, seen := sums[g]; !seen {
			order = append(order, g)
		}
		sums[g] += s.TotalCans
	}
	out := make([]GradeEntry, 0, len(order))
	for _, g := range order {
		out = append(out, GradeEntry{Grade: g, TotalCans: sums[g]})
	}
	sortByCans(out, func(g GradeEntry) int64 { return g.TotalCans })
	out = limit(out, n)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
