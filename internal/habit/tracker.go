package habit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"studyhall/internal/storage"
)

var (
	ErrHabitMissing  = errors.New("habit not found")
	ErrHabitArchived = errors.New("habit is archived")
)

// Store is the slice of the storage provider the tracker needs.
type Store interface {
	GetHabit(ctx context.Context, id int64) (*storage.Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]storage.Habit, error)
	CreateHabitEntry(ctx context.Context, entry storage.HabitEntry) (int64, error)
	DeleteHabitEntry(ctx context.Context, id int64) error
	IncrementHabitEntry(ctx context.Context, id int64, at time.Time) error
	GetHabitEntryByDay(ctx context.Context, habitID int64, day string) (*storage.HabitEntry, error)
	ListHabitEntries(ctx context.Context, habitID int64) ([]storage.HabitEntry, error)
}

// Summary is the per-habit state the list views and the widget render.
// PeriodCount is measured against the habit's TargetCount, so the UI can
// show "3/5 this week".
type Summary struct {
	Habit          storage.Habit `json:"habit"`
	Streak         int           `json:"streak"`
	CompletedToday bool          `json:"completedToday"`
	PeriodCount    int           `json:"periodCount"` // completions in the current frequency period
	WeekCount      int           `json:"weekCount"`   // completions in the trailing 7 days
}

func summarize(h storage.Habit, entries []storage.HabitEntry, today string) Summary {
	return Summary{
		Habit:          h,
		Streak:         CurrentStreak(entries, today),
		CompletedToday: CompletedOn(entries, today),
		PeriodCount:    CompletedCount(entries, PeriodStart(h.Frequency, today)),
		WeekCount:      CompletedCount(entries, WindowStart(today, 7)),
	}
}

type Tracker struct {
	store  Store
	logger *slog.Logger

	now func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		store:  store,
		logger: slog.With("component", "habit"),
		now:    time.Now,
	}
}

// today resolves the effective day: the client's reported local day when
// given, the server's otherwise.
func (t *Tracker) today(day string) (string, error) {
	if day == "" {
		return Day(t.now()), nil
	}
	if _, err := time.Parse(DayFormat, day); err != nil {
		return "", fmt.Errorf("invalid day %q: %w", day, err)
	}
	return day, nil
}

func (t *Tracker) habit(ctx context.Context, habitID int64) (*storage.Habit, error) {
	h, err := t.store.GetHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrHabitMissing
	}
	return h, nil
}

// Streak returns the current streak ending on day (or the server's today).
func (t *Tracker) Streak(ctx context.Context, habitID int64, day string) (int, error) {
	today, err := t.today(day)
	if err != nil {
		return 0, err
	}
	if _, err := t.habit(ctx, habitID); err != nil {
		return 0, err
	}

	entries, err := t.store.ListHabitEntries(ctx, habitID)
	if err != nil {
		return 0, err
	}
	return CurrentStreak(entries, today), nil
}

// Toggle flips completion for the given day. Returns the entry and whether
// the habit is now completed for that day.
func (t *Tracker) Toggle(ctx context.Context, habitID int64, day string) (*storage.HabitEntry, bool, error) {
	today, err := t.today(day)
	if err != nil {
		return nil, false, err
	}

	h, err := t.habit(ctx, habitID)
	if err != nil {
		return nil, false, err
	}
	if h.ArchivedAt != nil {
		return nil, false, ErrHabitArchived
	}

	existing, err := t.store.GetHabitEntryByDay(ctx, habitID, today)
	if err != nil {
		return nil, false, err
	}

	toggle := ToggleDay(habitID, existing, today, t.now())
	if toggle.Create != nil {
		id, err := t.store.CreateHabitEntry(ctx, *toggle.Create)
		if err != nil {
			return nil, false, err
		}
		entry := *toggle.Create
		entry.ID = id
		t.logger.Debug("Habit completed", "habit", habitID, "day", today)
		return &entry, true, nil
	}

	if err := t.store.DeleteHabitEntry(ctx, toggle.Delete); err != nil {
		return nil, false, err
	}
	t.logger.Debug("Habit uncompleted", "habit", habitID, "day", today)
	return existing, false, nil
}

// Log records one more completion for the day. Unlike Toggle it never
// removes anything: a day already marked has its count bumped instead,
// which is how habits with a target above one accumulate progress.
func (t *Tracker) Log(ctx context.Context, habitID int64, day string) (*storage.HabitEntry, error) {
	today, err := t.today(day)
	if err != nil {
		return nil, err
	}

	h, err := t.habit(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if h.ArchivedAt != nil {
		return nil, ErrHabitArchived
	}

	existing, err := t.store.GetHabitEntryByDay(ctx, habitID, today)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		entry := storage.HabitEntry{
			HabitID:     habitID,
			Day:         today,
			Count:       1,
			CompletedAt: t.now(),
		}
		id, err := t.store.CreateHabitEntry(ctx, entry)
		if err != nil {
			return nil, err
		}
		entry.ID = id
		t.logger.Debug("Habit completion logged", "habit", habitID, "day", today, "count", 1)
		return &entry, nil
	}

	if err := t.store.IncrementHabitEntry(ctx, existing.ID, t.now()); err != nil {
		return nil, err
	}
	entry := *existing
	entry.Count++
	t.logger.Debug("Habit completion logged", "habit", habitID, "day", today, "count", entry.Count)
	return &entry, nil
}

// Summarize builds the habit's current state for a given day.
func (t *Tracker) Summarize(ctx context.Context, habitID int64, day string) (*Summary, error) {
	today, err := t.today(day)
	if err != nil {
		return nil, err
	}

	h, err := t.habit(ctx, habitID)
	if err != nil {
		return nil, err
	}

	entries, err := t.store.ListHabitEntries(ctx, habitID)
	if err != nil {
		return nil, err
	}

	s := summarize(*h, entries, today)
	return &s, nil
}

// Overview summarizes all of a user's unarchived habits.
func (t *Tracker) Overview(ctx context.Context, userID int64, day string) ([]Summary, error) {
	today, err := t.today(day)
	if err != nil {
		return nil, err
	}

	habits, err := t.store.ListHabits(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(habits))
	for _, h := range habits {
		entries, err := t.store.ListHabitEntries(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(h, entries, today))
	}
	return summaries, nil
}
