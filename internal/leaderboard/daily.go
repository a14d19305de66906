package leaderboard

import (
	"time"
)

// DayWindow returns the collection day containing now. A day starts at
// resetHour local time in loc and ends at the same hour on the next calendar
// day, so DST transitions give 23 or 25 hour days. date is the local start
// date as YYYY-MM-DD.
func DayWindow(now time.Time, loc *time.Location, resetHour int) (start, end time.Time, date string) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), resetHour, 0, 0, 0, loc)
	if local.Before(start) {
		start = time.Date(local.Year(), local.Month(), local.Day()-1, resetHour, 0, 0, 0, loc)
	}
	end = time.Date(start.Year(), start.Month(), start.Day()+1, resetHour, 0, 0, 0, loc)
	return start.UTC(), end.UTC(), start.Format(time.DateOnly)
}
