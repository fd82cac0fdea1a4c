package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (p *SQLProvider) CreateHabit(ctx context.Context, habit Habit) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO habits (user_id, name, color, frequency, target_count, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, habit.UserID, habit.Name, habit.Color, habit.Frequency, habit.TargetCount, habit.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create habit: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) GetHabit(ctx context.Context, id int64) (*Habit, error) {
	var habit Habit
	query := p.db.Rebind(`SELECT * FROM habits WHERE id = ?`)
	err := p.db.GetContext(ctx, &habit, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit: %w", err)
	}
	return &habit, nil
}

func (p *SQLProvider) ListHabits(ctx context.Context, userID int64) ([]Habit, error) {
	var habits []Habit
	query := p.db.Rebind(`SELECT * FROM habits WHERE user_id = ? AND archived_at IS NULL ORDER BY id`)
	if err := p.db.SelectContext(ctx, &habits, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	return habits, nil
}

func (p *SQLProvider) UpdateHabit(ctx context.Context, habit Habit) error {
	query := p.db.Rebind(`UPDATE habits SET name = ?, color = ?, frequency = ?, target_count = ? WHERE id = ? AND archived_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, habit.Name, habit.Color, habit.Frequency, habit.TargetCount, habit.ID); err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	return nil
}

func (p *SQLProvider) ArchiveHabit(ctx context.Context, id int64, at time.Time) error {
	query := p.db.Rebind(`UPDATE habits SET archived_at = ? WHERE id = ? AND archived_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to archive habit: %w", err)
	}
	return nil
}

// CreateHabitEntry inserts a completion mark. One entry per habit per day;
// a second insert for the same day fails on the unique constraint.
func (p *SQLProvider) CreateHabitEntry(ctx context.Context, entry HabitEntry) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO habit_entries (habit_id, entry_date, count, completed_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, entry.HabitID, entry.Day, entry.Count, entry.CompletedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create habit entry: %w", err)
	}
	return id, nil
}

// IncrementHabitEntry adds one completion to an existing day entry and
// refreshes its completion timestamp.
func (p *SQLProvider) IncrementHabitEntry(ctx context.Context, id int64, at time.Time) error {
	query := p.db.Rebind(`UPDATE habit_entries SET count = count + 1, completed_at = ? WHERE id = ?`)
	if _, err := p.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to increment habit entry: %w", err)
	}
	return nil
}

func (p *SQLProvider) DeleteHabitEntry(ctx context.Context, id int64) error {
	query := p.db.Rebind(`DELETE FROM habit_entries WHERE id = ?`)
	if _, err := p.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete habit entry: %w", err)
	}
	return nil
}

func (p *SQLProvider) GetHabitEntryByDay(ctx context.Context, habitID int64, day string) (*HabitEntry, error) {
	var entry HabitEntry
	query := p.db.Rebind(`SELECT * FROM habit_entries WHERE habit_id = ? AND entry_date = ?`)
	err := p.db.GetContext(ctx, &entry, query, habitID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get habit entry: %w", err)
	}
	return &entry, nil
}

// ListHabitEntries returns a habit's full entry history ordered by day.
// Streak walks need the whole log, and even a years-long one is small.
func (p *SQLProvider) ListHabitEntries(ctx context.Context, habitID int64) ([]HabitEntry, error) {
	var entries []HabitEntry
	query := p.db.Rebind(`SELECT * FROM habit_entries WHERE habit_id = ? ORDER BY entry_date`)
	if err := p.db.SelectContext(ctx, &entries, query, habitID); err != nil {
		return nil, fmt.Errorf("failed to list habit entries: %w", err)
	}
	return entries, nil
}

// ListHabitEntriesBetween returns entries with from <= entry_date <= to.
// Days are "YYYY-MM-DD" so string comparison orders correctly.
func (p *SQLProvider) ListHabitEntriesBetween(ctx context.Context, habitID int64, from string, to string) ([]HabitEntry, error) {
	var entries []HabitEntry
	query := p.db.Rebind(`SELECT * FROM habit_entries WHERE habit_id = ? AND entry_date >= ? AND entry_date <= ? ORDER BY entry_date`)
	if err := p.db.SelectContext(ctx, &entries, query, habitID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list habit entries: %w", err)
	}
	return entries, nil
}
