package leaderboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opts = Options{Limit: 50, CansPerStudent: 10, AwardLimit: 20}

func student(id, name, grade, room, teacher string, cans int64) StudentTotal {
	return StudentTotal{ID: id, Name: name, Grade: grade, HomeroomNumber: room, HomeroomTeacher: teacher, TotalCans: cans}
}

func TestRankStudentsDescendingWithStableTies(t *testing.T) {
	totals := []StudentTotal{
		student("a", "Ann", "9", "101", "Smith", 5),
		student("b", "Ben", "9", "101", "Smith", 12),
		student("c", "Cal", "10", "102", "Jones", 5),
		student("d", "Dee", "11", "103", "Brown", 0),
	}
	got := RankStudents(totals, 0)
	require.Len(t, got, 4)

	ids := []string{got[0].ID, got[1].ID, got[2].ID, got[3].ID}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	for i, e := range got {
		assert.Equal(t, i+1, e.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].TotalCans, e.TotalCans)
		}
	}
}

func TestRankStudentsLimit(t *testing.T) {
	var totals []StudentTotal
	for i := 0; i < 60; i++ {
		totals = append(totals, student(fmt.Sprint(i), "s", "9", "", "", int64(i)))
	}
	got := RankStudents(totals, 50)
	assert.Len(t, got, 50)
	assert.Equal(t, int64(59), got[0].TotalCans)
}

func TestRankGradesSkipsBlank(t *testing.T) {
	totals := []StudentTotal{
		student("a", "Ann", "9", "", "", 3),
		student("b", "Ben", "10", "", "", 4),
		student("c", "Cal", "9", "", "", 2),
		student("d", "Dee", "", "", "", 100),
	}
	got := RankGrades(totals, 0)
	require.Len(t, got, 2)
	assert.Equal(t, GradeEntry{Rank: 1, Grade: "9", TotalCans: 5}, got[0])
	assert.Equal(t, GradeEntry{Rank: 2, Grade: "10", TotalCans: 4}, got[1])
}

func TestBuildClassesAddsTeacherToMatchingRoom(t *testing.T) {
	students := []StudentTotal{
		student("a", "Ann", "9", "101", "Smith", 3),
		student("b", "Ben", "9", "101", "Smith", 4),
		student("c", "Cal", "9", "101", "Jones", 1),
		student("d", "Dee", "9", "", "Smith", 50),
	}
	teachers := []TeacherTotal{
		{ID: "t1", Name: "Mary Jones", LastName: "Jones", HomeroomNumber: "101", TotalCans: 10},
		{ID: "t2", Name: "Pat Lee", LastName: "Lee", HomeroomNumber: "204", TotalCans: 6},
		{ID: "t3", Name: "No Room", TotalCans: 99},
	}
	classes := BuildClasses(students, teachers)
	require.Len(t, classes, 3)

	assert.Equal(t, Class{Teacher: "Smith", Room: "101", StudentCount: 2, TotalCans: 7}, classes[0])
	assert.Equal(t, Class{Teacher: "Jones", Room: "101", StudentCount: 1, TotalCans: 11}, classes[1])
	assert.Equal(t, Class{Teacher: "Pat Lee", Room: "204", StudentCount: 0, TotalCans: 6}, classes[2])
}

func TestBuyoutProgressNotEligible(t *testing.T) {
	var students []StudentTotal
	for i := 0; i < 20; i++ {
		cans := int64(7)
		if i < 10 {
			cans = 8
		}
		students = append(students, student(fmt.Sprint(i), "s", "10", "101", "Smith", cans))
	}
	all := Buyouts(BuildClasses(students, nil), 10)
	require.Len(t, all, 1)
	b := all[0]
	assert.Equal(t, int64(200), b.RequiredCans)
	assert.Equal(t, int64(150), b.ActualCans)
	assert.InDelta(t, 75.0, b.ProgressPercentage, 1e-9)
	assert.False(t, b.IsEligible)
}

func TestBuyoutEligibilityRule(t *testing.T) {
	cases := []struct {
		name     string
		count    int
		cans     int64
		eligible bool
		capped   float64
		raw      float64
	}{
		{"below", 3, 29, false, 29.0 / 30 * 100, 29.0 / 30 * 100},
		{"exact", 3, 30, true, 100, 100},
		{"over", 2, 50, true, 100, 250},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			all := Buyouts([]Class{{Teacher: "Smith", Room: "101", StudentCount: tc.count, TotalCans: tc.cans}}, 10)
			require.Len(t, all, 1)
			assert.Equal(t, tc.eligible, all[0].IsEligible)
			assert.Equal(t, tc.cans >= 10*int64(tc.count), all[0].IsEligible)
			assert.InDelta(t, tc.capped, all[0].ProgressPercentage, 1e-9)
			assert.InDelta(t, tc.raw, all[0].Progress, 1e-9)
		})
	}
}

func TestBuyoutExcludesIncompleteClasses(t *testing.T) {
	classes := []Class{
		{Teacher: "", Room: "101", StudentCount: 3, TotalCans: 100},
		{Teacher: "Smith", Room: "", StudentCount: 3, TotalCans: 100},
		{Teacher: "Lee", Room: "204", StudentCount: 0, TotalCans: 100},
		{Teacher: "Jones", Room: "105", StudentCount: 1, TotalCans: 1},
	}
	all := Buyouts(classes, 10)
	require.Len(t, all, 1)
	assert.Equal(t, "Jones 105", all[0].ClassName)
}

func TestBuyoutsEligibleFirst(t *testing.T) {
	classes := []Class{
		{Teacher: "A", Room: "1", StudentCount: 10, TotalCans: 90},
		{Teacher: "B", Room: "2", StudentCount: 1, TotalCans: 10},
		{Teacher: "C", Room: "3", StudentCount: 1, TotalCans: 40},
	}
	all := Buyouts(classes, 10)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C 3", "B 2", "A 1"}, []string{all[0].ClassName, all[1].ClassName, all[2].ClassName})
}

func TestAwardedOrdersByCrossingTime(t *testing.T) {
	classes := []Class{
		{Teacher: "A", Room: "1", StudentCount: 1, TotalCans: 100},
		{Teacher: "B", Room: "2", StudentCount: 1, TotalCans: 20},
		{Teacher: "C", Room: "3", StudentCount: 1, TotalCans: 50},
		{Teacher: "D", Room: "4", StudentCount: 1, TotalCans: 1},
	}
	all := Buyouts(classes, 10)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	reached := map[string]time.Time{
		ClassKey("B", "2"): base,
		ClassKey("A", "1"): base.Add(time.Hour),
	}

	got := Awarded(all, reached, 20)
	require.Len(t, got, 3)
	assert.Equal(t, "B 2", got[0].ClassName)
	assert.Equal(t, "A 1", got[1].ClassName)
	assert.Equal(t, "C 3", got[2].ClassName)
	assert.Nil(t, got[2].ReachedAt)

	assert.Len(t, Awarded(all, reached, 2), 2)
}

func TestAwardedKeepsRecordedClassAfterItFallsBehind(t *testing.T) {
	// B crossed first, then gained students and fell below its new threshold.
	classes := []Class{
		{Teacher: "A", Room: "1", StudentCount: 1, TotalCans: 30},
		{Teacher: "B", Room: "2", StudentCount: 5, TotalCans: 20},
	}
	all := Buyouts(classes, 10)
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	reached := map[string]time.Time{ClassKey("B", "2"): at}

	got := Awarded(all, reached, 20)
	require.Len(t, got, 2)
	assert.Equal(t, "B 2", got[0].ClassName)
	assert.False(t, got[0].IsEligible)
	require.NotNil(t, got[0].ReachedAt)
	assert.True(t, at.Equal(*got[0].ReachedAt))
	assert.Equal(t, "A 1", got[1].ClassName)

	only := Awarded(all, reached, 1)
	require.Len(t, only, 1)
	assert.Equal(t, "B 2", only[0].ClassName)
}

func TestBuildScenarioJaneDoe(t *testing.T) {
	students := []StudentTotal{student("jane", "Jane Doe", "10", "101", "Smith", 5+8)}
	board := Build(students, nil, nil, opts)

	require.Len(t, board.TopStudents, 1)
	assert.Equal(t, "Jane Doe", board.TopStudents[0].Name)
	assert.Equal(t, int64(13), board.TopStudents[0].TotalCans)
	assert.Equal(t, int64(13), board.TotalCans)
	require.Len(t, board.TopClasses, 1)
	assert.Equal(t, "Smith 101", board.TopClasses[0].Name)
	assert.Equal(t, "10", board.TopGrades[0].Grade)
	require.Len(t, board.ClassBuyout, 1)
	assert.True(t, board.ClassBuyout[0].IsEligible)
}

func TestBuildEmpty(t *testing.T) {
	board := Build(nil, nil, nil, opts)
	assert.Empty(t, board.TopStudents)
	assert.NotNil(t, board.TopStudents)
	assert.Empty(t, board.ClassBuyout)
	assert.Equal(t, int64(0), board.TotalCans)
}

func TestBuildDailyDropsZeroDonors(t *testing.T) {
	students := []StudentTotal{
		student("a", "Ann", "9", "101", "Smith", 0),
		student("b", "Ben", "9", "101", "Smith", 4),
	}
	teachers := []TeacherTotal{{ID: "t", Name: "Mr Smith", HomeroomNumber: "101"}}
	board := BuildDaily(students, teachers, "2026-10-14", opts)

	require.Len(t, board.TopStudents, 1)
	assert.Equal(t, "b", board.TopStudents[0].ID)
	assert.Empty(t, board.TopTeachers)
	assert.Empty(t, board.ClassBuyout)
	assert.Empty(t, board.AllClassBuyout)
	assert.Equal(t, "2026-10-14", board.Date)
	assert.Equal(t, int64(4), board.TotalCans)
}

func TestDayWindow(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cases := []struct {
		name  string
		now   time.Time
		date  string
		start time.Time
		hours float64
	}{
		{
			name:  "after reset",
			now:   time.Date(2026, 10, 14, 10, 0, 0, 0, ny),
			date:  "2026-10-14",
			start: time.Date(2026, 10, 14, 3, 0, 0, 0, ny),
			hours: 24,
		},
		{
			name:  "before reset counts as previous day",
			now:   time.Date(2026, 10, 14, 2, 59, 0, 0, ny),
			date:  "2026-10-13",
			start: time.Date(2026, 10, 13, 3, 0, 0, 0, ny),
			hours: 24,
		},
		{
			name:  "fall back day is 25 hours",
			now:   time.Date(2026, 10, 31, 12, 0, 0, 0, ny),
			date:  "2026-10-31",
			start: time.Date(2026, 10, 31, 3, 0, 0, 0, ny),
			hours: 25,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, date := DayWindow(tc.now, ny, 3)
			assert.Equal(t, tc.date, date)
			assert.True(t, tc.start.Equal(start), "start %s", start)
			assert.Equal(t, tc.hours, end.Sub(start).Hours())
			assert.Equal(t, time.UTC, start.Location())
		})
	}
}
