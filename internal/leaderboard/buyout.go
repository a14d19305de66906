package leaderboard

import (
	"cmp"
	"slices"
	"time"
)

// BuyoutEntry reports a class's progress towards the buyout threshold.
type BuyoutEntry struct {
	ClassName          string     `json:"class_name"`
	HomeroomTeacher    string     `json:"homeroom_teacher"`
	HomeroomNumber     string     `json:"homeroom_number"`
	StudentCount       int        `json:"student_count"`
	RequiredCans       int64      `json:"required_cans"`
	ActualCans         int64      `json:"actual_cans"`
	IsEligible         bool       `json:"is_eligible"`
	Progress           float64    `json:"progress"`
	ProgressPercentage float64    `json:"progress_percentage"`
	ReachedAt          *time.Time `json:"reached_at,omitempty"`
	key                string
}

// Key identifies the class the entry belongs to.
func (b BuyoutEntry) Key() string {
	return b.key
}

// Buyouts evaluates every class that has a teacher, a room and at least one
// student. required = cansPerStudent x student count; a class is eligible
// once actual >= required. Progress is the raw percentage,
// ProgressPercentage the same value capped at 100. The result lists eligible
// classes first, then by cans descending.
func Buyouts(classes []Class, cansPerStudent int) []BuyoutEntry {
	if cansPerStudent <= 0 {
		cansPerStudent = 10
	}
	out := make([]BuyoutEntry, 0, len(classes))
	for _, c := range classes {
		if c.Teacher == "" || c.Room == "" || c.StudentCount == 0 {
			continue
		}
		required := int64(cansPerStudent) * int64(c.StudentCount)
		progress := float64(c.TotalCans) / float64(required) * 100
		out = append(out, BuyoutEntry{
			ClassName:          c.Name(),
			HomeroomTeacher:    c.Teacher,
			HomeroomNumber:     c.Room,
			StudentCount:       c.StudentCount,
			RequiredCans:       required,
			ActualCans:         c.TotalCans,
			IsEligible:         c.TotalCans >= required,
			Progress:           progress,
			ProgressPercentage: min(progress, 100),
			key:                c.Key(),
		})
	}
	slices.SortStableFunc(out, func(a, b BuyoutEntry) int {
		if a.IsEligible != b.IsEligible {
			if a.IsEligible {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.ActualCans, a.ActualCans)
	})
	return out
}

// Awarded picks the first n classes in the order they crossed the
// threshold. reached maps class keys to the recorded crossing time. A recorded
// class keeps its place even if it is no longer eligible; eligible classes
// with no record yet follow the recorded ones.
func Awarded(all []BuyoutEntry, reached map[string]time.Time, n int) []BuyoutEntry {
	recorded := []BuyoutEntry{}
	var pending []BuyoutEntry
	for _, b := range all {
		if at, ok := reached[b.key]; ok {
			at := at
			b.ReachedAt = &at
			recorded = append(recorded, b)
			continue
		}
		if b.IsEligible {
			pending = append(pending, b)
		}
	}
	slices.SortStableFunc(recorded, func(a, b BuyoutEntry) int {
		return a.ReachedAt.Compare(*b.ReachedAt)
	})
	return limit(append(recorded, pending...), n)
}
