// Package habit tracks habit completion and streaks.
//
// Days are calendar dates in the device's local timezone, carried as
// "YYYY-MM-DD" strings. A streak is the run of consecutive completed days
// ending today; missing today means the streak is 0, there is no grace day.
package habit

import (
	"time"

	"studyhall/internal/storage"
)

const DayFormat = "2006-01-02"

// Day normalizes a timestamp to its local calendar day.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}

// CurrentStreak counts consecutive days with at least one entry, walking
// backward from today. The walk is iterative, so years-long histories are
// fine. Entry counts play no part here, a day is either marked or not.
func CurrentStreak(entries []storage.HabitEntry, today string) int {
	if len(entries) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.Day] = struct{}{}
	}

	cursor, err := time.Parse(DayFormat, today)
	if err != nil {
		return 0
	}

	streak := 0
	for {
		if _, ok := set[cursor.Format(DayFormat)]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// CompletedOn reports whether any entry falls on day.
func CompletedOn(entries []storage.HabitEntry, day string) bool {
	for _, e := range entries {
		if e.Day == day {
			return true
		}
	}
	return false
}

// CompletedCount sums entry counts over days on or after windowStart. Day
// strings compare lexicographically in date order. Picking the window is
// the caller's job, see WindowStart and PeriodStart.
func CompletedCount(entries []storage.HabitEntry, windowStart string) int {
	n := 0
	for _, e := range entries {
		if e.Day >= windowStart {
			n += e.Count
		}
	}
	return n
}

// WindowStart returns the day n-1 days before today, so [WindowStart, today]
// spans n days.
func WindowStart(today string, n int) string {
	t, err := time.Parse(DayFormat, today)
	if err != nil {
		return today
	}
	return t.AddDate(0, 0, -(n - 1)).Format(DayFormat)
}

// PeriodStart returns the first day of the frequency period containing
// today: today itself for daily habits, Monday of the week for weekly,
// the first of the month for monthly.
func PeriodStart(frequency storage.Frequency, today string) string {
	t, err := time.Parse(DayFormat, today)
	if err != nil {
		return today
	}
	switch frequency {
	case storage.FrequencyWeekly:
		back := (int(t.Weekday()) + 6) % 7 // days since Monday
		return t.AddDate(0, 0, -back).Format(DayFormat)
	case storage.FrequencyMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).Format(DayFormat)
	default:
		return today
	}
}

// Toggle is the decision for flipping a day's completion: exactly one of
// Create and Delete is set.
type Toggle struct {
	Create *storage.HabitEntry
	Delete int64 // entry id
}

// ToggleDay decides how to flip completion for a day. With an existing
// entry the toggle deletes it; otherwise it creates a new mark.
func ToggleDay(habitID int64, existing *storage.HabitEntry, day string, now time.Time) Toggle {
	if existing != nil {
		return Toggle{Delete: existing.ID}
	}
	return Toggle{
		Create: &storage.HabitEntry{
			HabitID:     habitID,
			Day:         day,
			Count:       1,
			CompletedAt: now,
		},
	}
}
