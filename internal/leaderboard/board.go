package leaderboard

import (
	"time"
)

// Options tunes list sizes and the buyout rule.
type Options struct {
	Limit          int
	CansPerStudent int
	AwardLimit     int
}

// Board is the full leaderboard payload.
type Board struct {
	TopStudents    []StudentEntry `json:"top_students"`
	TopTeachers    []TeacherEntry `json:"top_teachers"`
	TopClasses     []ClassEntry   `json:"top_classes"`
	TopGrades      []GradeEntry   `json:"top_grades"`
	TotalCans      int64          `json:"total_cans"`
	ClassBuyout    []BuyoutEntry  `json:"class_buyout"`
	AllClassBuyout []BuyoutEntry  `json:"all_class_buyout"`
	Date           string         `json:"date,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Build assembles the cumulative board. reached carries the recorded buyout
// crossing times by class key.
func Build(students []StudentTotal, teachers []TeacherTotal, reached map[string]time.Time, opts Options) Board {
	classes := BuildClasses(students, teachers)
	all := Buyouts(classes, opts.CansPerStudent)
	return Board{
		TopStudents:    RankStudents(students, opts.Limit),
		TopTeachers:    RankTeachers(teachers, opts.Limit),
		TopClasses:     RankClasses(classes, opts.Limit),
		TopGrades:      RankGrades(students, opts.Limit),
		TotalCans:      sum(students, teachers),
		ClassBuyout:    Awarded(all, reached, opts.AwardLimit),
		AllClassBuyout: all,
		GeneratedAt:    time.Now().UTC(),
	}
}

// BuildDaily ranks only donors with cans inside the day. Buyout lists are
// always empty since buyout is a cumulative rule.
func BuildDaily(students []StudentTotal, teachers []TeacherTotal, date string, opts Options) Board {
	students = nonZero(students, func(s StudentTotal) int64 { return s.TotalCans })
	teachers = nonZero(teachers, func(t TeacherTotal) int64 { return t.TotalCans })
	classes := nonZero(BuildClasses(students, teachers), func(c Class) int64 { return c.TotalCans })
	return Board{
		TopStudents:    RankStudents(students, opts.Limit),
		TopTeachers:    RankTeachers(teachers, opts.Limit),
		TopClasses:     RankClasses(classes, opts.Limit),
		TopGrades:      RankGrades(students, opts.Limit),
		TotalCans:      sum(students, teachers),
		ClassBuyout:    []BuyoutEntry{},
		AllClassBuyout: []BuyoutEntry{},
		Date:           date,
		GeneratedAt:    time.Now().UTC(),
	}
}

func sum(students []StudentTotal, teachers []TeacherTotal) int64 {
	var total int64
	for _, s := range students {
		total += s.TotalCans
	}
	for _, t := range teachers {
		total += t.TotalCans
	}
	return total
}

func nonZero[T any](items []T, total func(T) int64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if total(it) > 0 {
			out = append(out, it)
		}
	}
	return out
}
