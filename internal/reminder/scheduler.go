// Package reminder delivers due reminders on a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"studyhall/internal/metrics"
	"studyhall/internal/notify"
	"studyhall/internal/storage"
)

const (
	sweepTimeout = 30 * time.Second

	// Closed attendance sessions older than this get pruned daily.
	sessionRetention = 365 * 24 * time.Hour
)

// Store is the slice of the storage provider the scheduler needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (*storage.User, error)
	DueReminders(ctx context.Context, now time.Time) ([]storage.Reminder, error)
	MarkReminderSent(ctx context.Context, id int64, at time.Time) error
	PruneSessions(ctx context.Context, olderThan time.Time) (int64, error)
}

// Scheduler sweeps for due reminders and hands them to the notifier.
// Delivery failures stay unsent and get retried on the next sweep.
type Scheduler struct {
	store    Store
	notifier notify.Notifier
	cron     *cron.Cron
	logger   *slog.Logger

	now func() time.Time
}

func NewScheduler(store Store, notifier notify.Notifier, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		cron:     cron.New(),
		logger:   slog.With("component", "reminder"),
		now:      time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	if _, err := s.cron.AddFunc("@daily", s.prune); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Reminder scheduler started")
	s.cron.Start()
}

// Stop halts the cron and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Reminder scheduler stopped")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	due, err := s.store.DueReminders(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to fetch due reminders", "error", err)
		return
	}

	for _, r := range due {
		if err := s.deliver(ctx, r); err != nil {
			s.logger.Error("Failed to deliver reminder", "reminder", r.ID, "error", err)
		}
	}
}

func (s *Scheduler) deliver(ctx context.Context, r storage.Reminder) error {
	user, err := s.store.GetUser(ctx, r.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		// Orphaned reminder, mark it sent so it stops coming back.
		s.logger.Warn("Reminder for unknown user", "reminder", r.ID, "user", r.UserID)
		return s.store.MarkReminderSent(ctx, r.ID, s.now())
	}

	msg := &notify.Message{
		To:      []string{user.Email},
		Subject: r.Subject,
		HTML:    r.Body,
	}
	if err := s.notifier.Send(msg); err != nil {
		return err
	}

	metrics.RemindersSent.Inc()
	s.logger.Debug("Reminder delivered", "reminder", r.ID, "kind", r.Kind, "to", user.Email)
	return s.store.MarkReminderSent(ctx, r.ID, s.now())
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.store.PruneSessions(ctx, s.now().Add(-sessionRetention))
	if err != nil {
		s.logger.Error("Failed to prune old sessions", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("Pruned old attendance sessions", "count", n)
	}
}
