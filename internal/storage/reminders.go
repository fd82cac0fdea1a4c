package storage

import (
	"context"
	"fmt"
	"time"
)

// ScheduleReminder inserts or reschedules the reminder for (kind, ref id).
// Rescheduling clears a previous sent mark so the reminder fires again at
// the new time.
func (p *SQLProvider) ScheduleReminder(ctx context.Context, reminder Reminder) (int64, error) {
	var id int64
	query := p.db.Rebind(`
		INSERT INTO reminders (user_id, kind, ref_id, subject, body, due_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, ref_id) DO UPDATE
		SET subject = excluded.subject, body = excluded.body, due_at = excluded.due_at, sent_at = NULL
		RETURNING id`)
	err := p.db.GetContext(ctx, &id, query,
		reminder.UserID, reminder.Kind, reminder.RefID, reminder.Subject, reminder.Body, reminder.DueAt)
	if err != nil {
		return 0, fmt.Errorf("failed to schedule reminder: %w", err)
	}
	return id, nil
}

// CancelReminder drops the pending reminder for (kind, ref id). Already
// sent reminders stay as history.
func (p *SQLProvider) CancelReminder(ctx context.Context, kind ReminderKind, refID int64) error {
	query := p.db.Rebind(`DELETE FROM reminders WHERE kind = ? AND ref_id = ? AND sent_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, kind, refID); err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return nil
}

func (p *SQLProvider) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	var reminders []Reminder
	query := p.db.Rebind(`SELECT * FROM reminders WHERE sent_at IS NULL AND due_at <= ? ORDER BY due_at`)
	if err := p.db.SelectContext(ctx, &reminders, query, now); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

func (p *SQLProvider) MarkReminderSent(ctx context.Context, id int64, at time.Time) error {
	query := p.db.Rebind(`UPDATE reminders SET sent_at = ? WHERE id = ? AND sent_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
