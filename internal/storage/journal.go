package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertJournalEntry writes the entry for (user, day), replacing mood and
// body if one already exists. One entry per day.
func (p *SQLProvider) UpsertJournalEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	query := p.db.Rebind(`
		INSERT INTO journal_entries (user_id, entry_date, mood, body, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, entry_date) DO UPDATE SET mood = excluded.mood, body = excluded.body
		RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, entry.UserID, entry.Day, entry.Mood, entry.Body, entry.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert journal entry: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) GetJournalEntryByDay(ctx context.Context, userID int64, day string) (*JournalEntry, error) {
	var entry JournalEntry
	query := p.db.Rebind(`SELECT * FROM journal_entries WHERE user_id = ? AND entry_date = ?`)
	err := p.db.GetContext(ctx, &entry, query, userID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return &entry, nil
}

func (p *SQLProvider) ListJournalEntries(ctx context.Context, userID int64, from string, to string) ([]JournalEntry, error) {
	var entries []JournalEntry
	query := p.db.Rebind(`SELECT * FROM journal_entries WHERE user_id = ? AND entry_date >= ? AND entry_date <= ? ORDER BY entry_date`)
	if err := p.db.SelectContext(ctx, &entries, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}

func (p *SQLProvider) DeleteJournalEntry(ctx context.Context, userID int64, day string) error {
	query := p.db.Rebind(`DELETE FROM journal_entries WHERE user_id = ? AND entry_date = ?`)
	if _, err := p.db.ExecContext(ctx, query, userID, day); err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return nil
}

func (p *SQLProvider) CreateFocusSession(ctx context.Context, session FocusSession) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO focus_sessions (user_id, label, started_at, ended_at, minutes) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, session.UserID, session.Label, session.StartedAt, session.EndedAt, session.Minutes)
	if err != nil {
		return 0, fmt.Errorf("failed to create focus session: %w", err)
	}
	return id, nil
}

// GetOpenFocusSession returns the user's running focus session, if any.
func (p *SQLProvider) GetOpenFocusSession(ctx context.Context, userID int64) (*FocusSession, error) {
	var session FocusSession
	query := p.db.Rebind(`SELECT * FROM focus_sessions WHERE user_id = ? AND ended_at IS NULL ORDER BY started_at DESC LIMIT 1`)
	err := p.db.GetContext(ctx, &session, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open focus session: %w", err)
	}
	return &session, nil
}

func (p *SQLProvider) FinishFocusSession(ctx context.Context, id int64, endedAt time.Time, minutes int) error {
	query := p.db.Rebind(`UPDATE focus_sessions SET ended_at = ?, minutes = ? WHERE id = ? AND ended_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, endedAt, minutes, id); err != nil {
		return fmt.Errorf("failed to finish focus session: %w", err)
	}
	return nil
}

func (p *SQLProvider) ListFocusSessions(ctx context.Context, userID int64, from time.Time, to time.Time) ([]FocusSession, error) {
	var sessions []FocusSession
	query := p.db.Rebind(`SELECT * FROM focus_sessions WHERE user_id = ? AND started_at >= ? AND started_at < ? ORDER BY started_at`)
	if err := p.db.SelectContext(ctx, &sessions, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list focus sessions: %w", err)
	}
	return sessions, nil
}
