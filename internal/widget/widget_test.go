package widget

import (
	"context"
	"testing"
	"time"

	"studyhall/internal/habit"
	"studyhall/internal/storage"
)

// Tuesday evening, just before midnight.
var widgetNow = time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

type fakeStore struct {
	meeting *storage.Meeting
	course  *storage.Course
	tasks   []storage.Task
	focus   []storage.FocusSession
	session *storage.Session

	habits  []storage.Habit
	entries map[int64][]string

	builds int
}

func (f *fakeStore) NextMeeting(_ context.Context, _ int64, _ time.Time) (*storage.Meeting, error) {
	f.builds++
	return f.meeting, nil
}

func (f *fakeStore) GetCourse(_ context.Context, id int64) (*storage.Course, error) {
	if f.course != nil && f.course.ID == id {
		return f.course, nil
	}
	return nil, nil
}

func (f *fakeStore) ListTasks(_ context.Context, _ int64, _ bool) ([]storage.Task, error) {
	return f.tasks, nil
}

func (f *fakeStore) ListFocusSessions(_ context.Context, _ int64, from time.Time, to time.Time) ([]storage.FocusSession, error) {
	var out []storage.FocusSession
	for _, s := range f.focus {
		if !s.StartedAt.Before(from) && !s.StartedAt.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) NextSession(_ context.Context, _ int64, _ time.Time) (*storage.Session, error) {
	return f.session, nil
}

func (f *fakeStore) GetHabit(_ context.Context, id int64) (*storage.Habit, error) {
	for i := range f.habits {
		if f.habits[i].ID == id {
			return &f.habits[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListHabits(_ context.Context, _ int64) ([]storage.Habit, error) {
	return f.habits, nil
}

func (f *fakeStore) CreateHabitEntry(_ context.Context, _ storage.HabitEntry) (int64, error) {
	return 0, nil
}

func (f *fakeStore) DeleteHabitEntry(_ context.Context, _ int64) error { return nil }

func (f *fakeStore) IncrementHabitEntry(_ context.Context, _ int64, _ time.Time) error { return nil }

func (f *fakeStore) GetHabitEntryByDay(_ context.Context, _ int64, _ string) (*storage.HabitEntry, error) {
	return nil, nil
}

func (f *fakeStore) ListHabitEntries(_ context.Context, habitID int64) ([]storage.HabitEntry, error) {
	var out []storage.HabitEntry
	for i, day := range f.entries[habitID] {
		out = append(out, storage.HabitEntry{ID: int64(i + 1), HabitID: habitID, Day: day, Count: 1})
	}
	return out, nil
}

func newTestBuilder(store *fakeStore) *Builder {
	b := NewBuilder(store, habit.NewTracker(store))
	b.now = func() time.Time { return widgetNow }
	return b
}

func TestBuild(t *testing.T) {
	store := &fakeStore{
		meeting: &storage.Meeting{ID: 1, CourseID: 3, Weekday: 3, StartTime: "09:00", Location: "B212"},
		course:  &storage.Course{ID: 3, Code: "CS101", Title: "Intro to Computing"},
		tasks: []storage.Task{
			{ID: 1, Title: "Essay draft"},
			{ID: 2, Title: "Lab report"},
		},
		focus: []storage.FocusSession{
			{StartedAt: widgetNow.Add(-90 * time.Minute), Minutes: 25},
			{StartedAt: widgetNow.Add(-25 * time.Hour), Minutes: 50}, // yesterday
		},
		session: &storage.Session{
			ID: 9, CourseID: 3, Title: "Lecture 12",
			OpensAt:  widgetNow.Add(-10 * time.Minute),
			ClosesAt: timePtr(widgetNow.Add(20 * time.Minute)),
		},
		habits:  []storage.Habit{{ID: 5, Name: "Reading"}},
		entries: map[int64][]string{5: {"2026-03-09", "2026-03-10"}},
	}

	snap, err := newTestBuilder(store).Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if snap.NextClass == nil {
		t.Fatal("expected a next class")
	}
	// Wednesday morning, the day after the snapshot instant.
	wantStart := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if !snap.NextClass.StartsAt.Equal(wantStart) {
		t.Errorf("expected next class at %v, got %v", wantStart, snap.NextClass.StartsAt)
	}
	if snap.NextClass.CourseCode != "CS101" {
		t.Errorf("expected course code CS101, got %s", snap.NextClass.CourseCode)
	}
	if snap.NextClass.Location != "B212" {
		t.Errorf("expected location B212, got %s", snap.NextClass.Location)
	}

	if len(snap.Tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(snap.Tasks))
	}

	if len(snap.Habits) != 1 {
		t.Fatalf("expected 1 habit summary, got %d", len(snap.Habits))
	}
	if snap.Habits[0].Streak != 2 {
		t.Errorf("expected streak 2, got %d", snap.Habits[0].Streak)
	}
	if !snap.Habits[0].CompletedToday {
		t.Error("expected habit completed today")
	}

	if snap.FocusMinutes != 25 {
		t.Errorf("expected 25 focus minutes today, got %d", snap.FocusMinutes)
	}

	if snap.NextSession == nil {
		t.Fatal("expected a next session")
	}
	if !snap.NextSession.Open {
		t.Error("expected session to be open")
	}
}

func TestBuild_Empty(t *testing.T) {
	store := &fakeStore{entries: map[int64][]string{}}

	snap, err := newTestBuilder(store).Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if snap.NextClass != nil {
		t.Error("expected no next class")
	}
	if snap.NextSession != nil {
		t.Error("expected no next session")
	}
	if len(snap.Tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(snap.Tasks))
	}
	if snap.FocusMinutes != 0 {
		t.Errorf("expected 0 focus minutes, got %d", snap.FocusMinutes)
	}
}

func TestBuild_TruncatesTasks(t *testing.T) {
	store := &fakeStore{entries: map[int64][]string{}}
	for i := int64(1); i <= 8; i++ {
		store.tasks = append(store.tasks, storage.Task{ID: i, Title: "task"})
	}

	snap, err := newTestBuilder(store).Build(context.Background(), 1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(snap.Tasks) != maxUpcomingTasks {
		t.Errorf("expected %d tasks, got %d", maxUpcomingTasks, len(snap.Tasks))
	}
}

func TestService_CachesByTTL(t *testing.T) {
	store := &fakeStore{entries: map[int64][]string{}}
	builder := newTestBuilder(store)

	svc := NewService(builder, 15*time.Minute)
	defer svc.Close()

	clock := widgetNow
	svc.now = func() time.Time { return clock }

	if _, err := svc.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if store.builds != 1 {
		t.Errorf("expected 1 build while cached, got %d", store.builds)
	}

	clock = clock.Add(16 * time.Minute)
	if _, err := svc.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if store.builds != 2 {
		t.Errorf("expected rebuild after ttl, got %d builds", store.builds)
	}
}

func TestService_Invalidate(t *testing.T) {
	store := &fakeStore{entries: map[int64][]string{}}
	builder := newTestBuilder(store)

	svc := NewService(builder, 15*time.Minute)
	defer svc.Close()
	svc.now = func() time.Time { return widgetNow }

	if _, err := svc.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	svc.Invalidate(1)
	if _, err := svc.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if store.builds != 2 {
		t.Errorf("expected rebuild after invalidate, got %d builds", store.builds)
	}
}

func TestService_EvictStale(t *testing.T) {
	store := &fakeStore{entries: map[int64][]string{}}
	builder := newTestBuilder(store)

	svc := NewService(builder, 15*time.Minute)
	defer svc.Close()

	clock := widgetNow
	svc.now = func() time.Time { return clock }

	if _, err := svc.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	clock = clock.Add(time.Hour)
	svc.evictStale()

	svc.mu.RLock()
	size := len(svc.entries)
	svc.mu.RUnlock()
	if size != 0 {
		t.Errorf("expected cache emptied, got %d entries", size)
	}
}
