package habit

import (
	"context"
	"errors"
	"testing"
	"time"

	"studyhall/internal/storage"
)

var trackerNow = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

type fakeStore struct {
	habits  map[int64]*storage.Habit
	entries map[int64][]storage.HabitEntry
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		habits:  make(map[int64]*storage.Habit),
		entries: make(map[int64][]storage.HabitEntry),
		nextID:  1,
	}
}

func (f *fakeStore) GetHabit(ctx context.Context, id int64) (*storage.Habit, error) {
	return f.habits[id], nil
}

func (f *fakeStore) ListHabits(ctx context.Context, userID int64) ([]storage.Habit, error) {
	var out []storage.Habit
	for _, h := range f.habits {
		if h.UserID == userID && h.ArchivedAt == nil {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateHabitEntry(ctx context.Context, entry storage.HabitEntry) (int64, error) {
	entry.ID = f.nextID
	f.nextID++
	f.entries[entry.HabitID] = append(f.entries[entry.HabitID], entry)
	return entry.ID, nil
}

func (f *fakeStore) DeleteHabitEntry(ctx context.Context, id int64) error {
	for habitID, entries := range f.entries {
		for i, e := range entries {
			if e.ID == id {
				f.entries[habitID] = append(entries[:i], entries[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (f *fakeStore) IncrementHabitEntry(ctx context.Context, id int64, at time.Time) error {
	for habitID, entries := range f.entries {
		for i, e := range entries {
			if e.ID == id {
				f.entries[habitID][i].Count++
				f.entries[habitID][i].CompletedAt = at
				return nil
			}
		}
	}
	return nil
}

func (f *fakeStore) GetHabitEntryByDay(ctx context.Context, habitID int64, day string) (*storage.HabitEntry, error) {
	for _, e := range f.entries[habitID] {
		if e.Day == day {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListHabitEntries(ctx context.Context, habitID int64) ([]storage.HabitEntry, error) {
	return f.entries[habitID], nil
}

func newTestTracker(store Store) *Tracker {
	tr := NewTracker(store)
	tr.now = func() time.Time { return trackerNow }
	return tr
}

func seedHabit(f *fakeStore, id int64) *storage.Habit {
	h := &storage.Habit{
		ID:          id,
		UserID:      1,
		Name:        "read 20 pages",
		Frequency:   storage.FrequencyDaily,
		TargetCount: 1,
	}
	f.habits[id] = h
	return h
}

func TestToggle_CreatesAndDeletes(t *testing.T) {
	store := newFakeStore()
	seedHabit(store, 5)
	tr := newTestTracker(store)
	ctx := context.Background()

	entry, completed, err := tr.Toggle(ctx, 5, "")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !completed {
		t.Errorf("first toggle should complete the day")
	}
	if entry.Day != "2026-03-10" {
		t.Errorf("entry day = %q, want server today", entry.Day)
	}
	if entry.ID == 0 {
		t.Errorf("entry did not get an id")
	}

	// Second toggle on the same day deletes the mark.
	_, completed, err = tr.Toggle(ctx, 5, "")
	if err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if completed {
		t.Errorf("second toggle should uncomplete the day")
	}
	if entries, _ := store.ListHabitEntries(ctx, 5); len(entries) != 0 {
		t.Errorf("entry not deleted, entries = %v", entries)
	}
}

func TestToggle_ClientDay(t *testing.T) {
	store := newFakeStore()
	seedHabit(store, 5)
	tr := newTestTracker(store)

	// The client resolves its own local day; the server honors it.
	entry, _, err := tr.Toggle(context.Background(), 5, "2026-03-09")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if entry.Day != "2026-03-09" {
		t.Errorf("entry day = %q, want client-reported day", entry.Day)
	}
}

func TestToggle_InvalidDay(t *testing.T) {
	store := newFakeStore()
	seedHabit(store, 5)
	tr := newTestTracker(store)

	if _, _, err := tr.Toggle(context.Background(), 5, "03/10/2026"); err == nil {
		t.Fatalf("expected error for malformed day")
	}
}

func TestToggle_MissingHabit(t *testing.T) {
	tr := newTestTracker(newFakeStore())
	_, _, err := tr.Toggle(context.Background(), 99, "")
	if !errors.Is(err, ErrHabitMissing) {
		t.Fatalf("err = %v, want ErrHabitMissing", err)
	}
}

func TestToggle_ArchivedHabit(t *testing.T) {
	store := newFakeStore()
	h := seedHabit(store, 5)
	archived := trackerNow.Add(-24 * time.Hour)
	h.ArchivedAt = &archived
	tr := newTestTracker(store)

	_, _, err := tr.Toggle(context.Background(), 5, "")
	if !errors.Is(err, ErrHabitArchived) {
		t.Fatalf("err = %v, want ErrHabitArchived", err)
	}
}

// Logging stacks completions on one day instead of toggling them off.
func TestLog_CreatesThenIncrements(t *testing.T) {
	store := newFakeStore()
	h := seedHabit(store, 5)
	h.TargetCount = 3
	tr := newTestTracker(store)
	ctx := context.Background()

	entry, err := tr.Log(ctx, 5, "")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if entry.Count != 1 {
		t.Errorf("first log count = %d, want 1", entry.Count)
	}

	entry, err = tr.Log(ctx, 5, "")
	if err != nil {
		t.Fatalf("second Log: %v", err)
	}
	if entry.Count != 2 {
		t.Errorf("second log count = %d, want 2", entry.Count)
	}

	// Still one entry for the day, with the summed count.
	entries, _ := store.ListHabitEntries(ctx, 5)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].Count != 2 {
		t.Errorf("stored count = %d, want 2", entries[0].Count)
	}

	s, err := tr.Summarize(ctx, 5, "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.PeriodCount != 2 {
		t.Errorf("PeriodCount = %d, want 2", s.PeriodCount)
	}
	if s.Streak != 1 {
		t.Errorf("Streak = %d, want 1", s.Streak)
	}
}

func TestLog_ArchivedHabit(t *testing.T) {
	store := newFakeStore()
	h := seedHabit(store, 5)
	archived := trackerNow.Add(-24 * time.Hour)
	h.ArchivedAt = &archived
	tr := newTestTracker(store)

	if _, err := tr.Log(context.Background(), 5, ""); !errors.Is(err, ErrHabitArchived) {
		t.Fatalf("err = %v, want ErrHabitArchived", err)
	}
}

func TestStreak(t *testing.T) {
	store := newFakeStore()
	seedHabit(store, 5)
	tr := newTestTracker(store)
	ctx := context.Background()

	for _, day := range []string{"2026-03-08", "2026-03-09", "2026-03-10"} {
		if _, _, err := tr.Toggle(ctx, 5, day); err != nil {
			t.Fatalf("Toggle(%s): %v", day, err)
		}
	}

	streak, err := tr.Streak(ctx, 5, "")
	if err != nil {
		t.Fatalf("Streak: %v", err)
	}
	if streak != 3 {
		t.Errorf("streak = %d, want 3", streak)
	}
}

func TestSummarize(t *testing.T) {
	store := newFakeStore()
	h := seedHabit(store, 5)
	h.Frequency = storage.FrequencyWeekly
	h.TargetCount = 5
	tr := newTestTracker(store)
	ctx := context.Background()

	// Completed 03-09 (Monday), 03-10 and once the week before. trackerNow
	// is Tuesday 03-10, so the weekly period began 03-09.
	for _, day := range []string{"2026-03-01", "2026-03-09", "2026-03-10"} {
		if _, _, err := tr.Toggle(ctx, 5, day); err != nil {
			t.Fatalf("Toggle(%s): %v", day, err)
		}
	}

	s, err := tr.Summarize(ctx, 5, "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Streak != 2 {
		t.Errorf("Streak = %d, want 2", s.Streak)
	}
	if !s.CompletedToday {
		t.Errorf("CompletedToday = false, want true")
	}
	if s.PeriodCount != 2 {
		t.Errorf("PeriodCount = %d, want 2 (period began Monday 03-09)", s.PeriodCount)
	}
	if s.WeekCount != 2 {
		t.Errorf("WeekCount = %d, want 2 (2026-03-01 is outside the window)", s.WeekCount)
	}
}

func TestOverview_SkipsArchived(t *testing.T) {
	store := newFakeStore()
	seedHabit(store, 1)
	archivedHabit := seedHabit(store, 2)
	archived := trackerNow.Add(-time.Hour)
	archivedHabit.ArchivedAt = &archived
	tr := newTestTracker(store)

	summaries, err := tr.Overview(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	if summaries[0].Habit.ID != 1 {
		t.Errorf("summary for habit %d, want 1", summaries[0].Habit.ID)
	}
}
