package habit

import (
	"testing"
	"time"

	"studyhall/internal/storage"
)

// marks builds one count-1 entry per day.
func marks(days ...string) []storage.HabitEntry {
	entries := make([]storage.HabitEntry, 0, len(days))
	for i, d := range days {
		entries = append(entries, storage.HabitEntry{ID: int64(i + 1), HabitID: 5, Day: d, Count: 1})
	}
	return entries
}

func TestCurrentStreak_Empty(t *testing.T) {
	if got := CurrentStreak(nil, "2026-03-10"); got != 0 {
		t.Errorf("streak = %d, want 0", got)
	}
}

func TestCurrentStreak_TodayOnly(t *testing.T) {
	if got := CurrentStreak(marks("2026-03-10"), "2026-03-10"); got != 1 {
		t.Errorf("streak = %d, want 1", got)
	}
}

func TestCurrentStreak_ConsecutiveRun(t *testing.T) {
	entries := marks("2026-03-08", "2026-03-09", "2026-03-10")
	if got := CurrentStreak(entries, "2026-03-10"); got != 3 {
		t.Errorf("streak = %d, want 3", got)
	}
}

func TestCurrentStreak_GapCutsRun(t *testing.T) {
	// 2026-03-07 completed, 03-08 missed, 03-09 and 03-10 completed.
	entries := marks("2026-03-07", "2026-03-09", "2026-03-10")
	if got := CurrentStreak(entries, "2026-03-10"); got != 2 {
		t.Errorf("streak = %d, want 2", got)
	}
}

// Missing today means streak 0 even with a long run up to yesterday.
// There is no grace day.
func TestCurrentStreak_NoGraceDay(t *testing.T) {
	entries := marks("2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08", "2026-03-09")
	if got := CurrentStreak(entries, "2026-03-10"); got != 0 {
		t.Errorf("streak = %d, want 0 when today is missing", got)
	}
}

func TestCurrentStreak_MonthBoundary(t *testing.T) {
	entries := marks("2026-02-27", "2026-02-28", "2026-03-01")
	if got := CurrentStreak(entries, "2026-03-01"); got != 3 {
		t.Errorf("streak across month boundary = %d, want 3", got)
	}
}

func TestCurrentStreak_YearBoundary(t *testing.T) {
	entries := marks("2025-12-30", "2025-12-31", "2026-01-01")
	if got := CurrentStreak(entries, "2026-01-01"); got != 3 {
		t.Errorf("streak across year boundary = %d, want 3", got)
	}
}

func TestCurrentStreak_LeapDay(t *testing.T) {
	entries := marks("2028-02-28", "2028-02-29", "2028-03-01")
	if got := CurrentStreak(entries, "2028-03-01"); got != 3 {
		t.Errorf("streak across leap day = %d, want 3", got)
	}
}

// A multi-year unbroken run must be counted without recursion depth limits.
func TestCurrentStreak_LongRun(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	days := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		days = append(days, today.AddDate(0, 0, -i).Format(DayFormat))
	}
	if got := CurrentStreak(marks(days...), "2026-03-10"); got != 1000 {
		t.Errorf("streak = %d, want 1000", got)
	}
}

func TestCurrentStreak_DuplicateDays(t *testing.T) {
	entries := marks("2026-03-10", "2026-03-10", "2026-03-09")
	if got := CurrentStreak(entries, "2026-03-10"); got != 2 {
		t.Errorf("streak with duplicate days = %d, want 2", got)
	}
}

// A day's count doesn't change the streak: three completions on one day
// still extend the run by one.
func TestCurrentStreak_CountIgnored(t *testing.T) {
	entries := []storage.HabitEntry{
		{ID: 1, Day: "2026-03-09", Count: 3},
		{ID: 2, Day: "2026-03-10", Count: 1},
	}
	if got := CurrentStreak(entries, "2026-03-10"); got != 2 {
		t.Errorf("streak = %d, want 2", got)
	}
}

func TestCurrentStreak_BadToday(t *testing.T) {
	if got := CurrentStreak(marks("2026-03-10"), "not-a-day"); got != 0 {
		t.Errorf("streak = %d, want 0 for unparseable today", got)
	}
}

func TestDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 00:30 local on the 10th is still the 9th in UTC. The day must follow
	// the timestamp's own location, so a late-night completion lands on the
	// user's calendar day.
	at := time.Date(2026, 3, 10, 0, 30, 0, 0, loc)
	if got := Day(at); got != "2026-03-10" {
		t.Errorf("Day = %q, want 2026-03-10", got)
	}
	if got := Day(at.UTC()); got != "2026-03-09" {
		t.Errorf("Day(UTC) = %q, want 2026-03-09", got)
	}
}

func TestCompletedOn(t *testing.T) {
	entries := marks("2026-03-09", "2026-03-10")
	if !CompletedOn(entries, "2026-03-10") {
		t.Errorf("expected completed on 2026-03-10")
	}
	if CompletedOn(entries, "2026-03-08") {
		t.Errorf("unexpected completion on 2026-03-08")
	}
}

// Counts sum across entries; entries before the window start are excluded.
func TestCompletedCount_SumsCounts(t *testing.T) {
	entries := []storage.HabitEntry{
		{ID: 1, Day: "2026-03-08", Count: 1},
		{ID: 2, Day: "2026-03-09", Count: 2},
		{ID: 3, Day: "2026-03-10", Count: 1},
	}
	if got := CompletedCount(entries, "2026-03-08"); got != 4 {
		t.Errorf("count = %d, want 4", got)
	}

	// 03-08 falls out of a window starting 03-09.
	if got := CompletedCount(entries, "2026-03-09"); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
	if got := CompletedCount(entries, "2026-04-01"); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	if got := CompletedCount(nil, "2026-03-01"); got != 0 {
		t.Errorf("count = %d, want 0 for no entries", got)
	}
}

// The window start itself is included.
func TestCompletedCount_InclusiveStart(t *testing.T) {
	entries := marks("2026-03-04", "2026-03-05")
	if got := CompletedCount(entries, "2026-03-04"); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestWindowStart(t *testing.T) {
	if got := WindowStart("2026-03-10", 7); got != "2026-03-04" {
		t.Errorf("WindowStart = %q, want 2026-03-04", got)
	}
	if got := WindowStart("2026-03-01", 7); got != "2026-02-23" {
		t.Errorf("WindowStart across month = %q, want 2026-02-23", got)
	}
}

func TestPeriodStart(t *testing.T) {
	// 2026-03-10 is a Tuesday, 2026-03-15 a Sunday.
	cases := []struct {
		freq  storage.Frequency
		today string
		want  string
	}{
		{storage.FrequencyDaily, "2026-03-10", "2026-03-10"},
		{storage.FrequencyWeekly, "2026-03-10", "2026-03-09"},
		{storage.FrequencyWeekly, "2026-03-09", "2026-03-09"}, // Monday starts its own week
		{storage.FrequencyWeekly, "2026-03-15", "2026-03-09"}, // Sunday closes the week
		{storage.FrequencyWeekly, "2026-03-01", "2026-02-23"},
		{storage.FrequencyMonthly, "2026-03-10", "2026-03-01"},
		{storage.FrequencyMonthly, "2026-03-01", "2026-03-01"},
		{"", "2026-03-10", "2026-03-10"}, // unset frequency behaves as daily
	}
	for _, tc := range cases {
		if got := PeriodStart(tc.freq, tc.today); got != tc.want {
			t.Errorf("PeriodStart(%q, %s) = %q, want %q", tc.freq, tc.today, got, tc.want)
		}
	}
}

func TestToggleDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

	toggle := ToggleDay(5, nil, "2026-03-10", now)
	if toggle.Create == nil || toggle.Delete != 0 {
		t.Fatalf("toggle without entry should create, got %+v", toggle)
	}
	if toggle.Create.HabitID != 5 || toggle.Create.Day != "2026-03-10" || toggle.Create.Count != 1 {
		t.Errorf("created entry = %+v", toggle.Create)
	}
	if !toggle.Create.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", toggle.Create.CompletedAt, now)
	}

	existing := toggle.Create
	existing.ID = 99
	toggle = ToggleDay(5, existing, "2026-03-10", now)
	if toggle.Create != nil || toggle.Delete != 99 {
		t.Fatalf("toggle with entry should delete it, got %+v", toggle)
	}
}
