package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"studyhall/internal/notify"
	"studyhall/internal/storage"
)

var sweepNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	users     map[int64]*storage.User
	due       []storage.Reminder
	sent      []int64
	pruneFrom time.Time
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (*storage.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) DueReminders(_ context.Context, now time.Time) ([]storage.Reminder, error) {
	var due []storage.Reminder
	for _, r := range f.due {
		if r.SentAt == nil && !r.DueAt.After(now) {
			due = append(due, r)
		}
	}
	return due, nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id int64, at time.Time) error {
	f.sent = append(f.sent, id)
	for i := range f.due {
		if f.due[i].ID == id {
			f.due[i].SentAt = &at
		}
	}
	return nil
}

func (f *fakeStore) PruneSessions(_ context.Context, olderThan time.Time) (int64, error) {
	f.pruneFrom = olderThan
	return 3, nil
}

type fakeNotifier struct {
	sent []*notify.Message
	err  error
}

func (f *fakeNotifier) Send(msg *notify.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestScheduler(t *testing.T, store Store, notifier notify.Notifier) *Scheduler {
	t.Helper()
	s, err := NewScheduler(store, notifier, "* * * * *")
	if err != nil {
		t.Fatalf("NewScheduler failed: %v", err)
	}
	s.now = func() time.Time { return sweepNow }
	return s
}

func TestSweep_DeliversAndMarksSent(t *testing.T) {
	store := &fakeStore{
		users: map[int64]*storage.User{1: {ID: 1, Email: "ada@example.edu"}},
		due: []storage.Reminder{
			{ID: 10, UserID: 1, Kind: storage.ReminderTask, RefID: 5, Subject: "Essay due", DueAt: sweepNow.Add(-time.Minute)},
			{ID: 11, UserID: 1, Kind: storage.ReminderTask, RefID: 6, Subject: "Later", DueAt: sweepNow.Add(time.Hour)},
		},
	}
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, store, notifier)
	s.sweep()

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].To[0] != "ada@example.edu" {
		t.Errorf("expected delivery to ada@example.edu, got %v", notifier.sent[0].To)
	}
	if notifier.sent[0].Subject != "Essay due" {
		t.Errorf("unexpected subject %q", notifier.sent[0].Subject)
	}
	if len(store.sent) != 1 || store.sent[0] != 10 {
		t.Errorf("expected only reminder 10 marked sent, got %v", store.sent)
	}
}

func TestSweep_FailureLeavesUnsent(t *testing.T) {
	store := &fakeStore{
		users: map[int64]*storage.User{1: {ID: 1, Email: "ada@example.edu"}},
		due: []storage.Reminder{
			{ID: 10, UserID: 1, Kind: storage.ReminderTask, RefID: 5, DueAt: sweepNow.Add(-time.Minute)},
		},
	}
	notifier := &fakeNotifier{err: errors.New("smtp down")}

	s := newTestScheduler(t, store, notifier)
	s.sweep()

	if len(store.sent) != 0 {
		t.Errorf("expected no reminders marked sent on delivery failure, got %v", store.sent)
	}

	// Next sweep retries once delivery works again.
	notifier.err = nil
	s.sweep()
	if len(store.sent) != 1 {
		t.Errorf("expected retry to mark reminder sent, got %v", store.sent)
	}
}

func TestSweep_UnknownUserDropped(t *testing.T) {
	store := &fakeStore{
		users: map[int64]*storage.User{},
		due: []storage.Reminder{
			{ID: 10, UserID: 99, Kind: storage.ReminderHabit, RefID: 2, DueAt: sweepNow.Add(-time.Minute)},
		},
	}
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, store, notifier)
	s.sweep()

	if len(notifier.sent) != 0 {
		t.Errorf("expected no notification for unknown user, got %d", len(notifier.sent))
	}
	if len(store.sent) != 1 {
		t.Errorf("expected orphaned reminder marked sent, got %v", store.sent)
	}
}

func TestPrune(t *testing.T) {
	store := &fakeStore{users: map[int64]*storage.User{}}
	s := newTestScheduler(t, store, &fakeNotifier{})

	s.prune()

	want := sweepNow.Add(-sessionRetention)
	if !store.pruneFrom.Equal(want) {
		t.Errorf("expected prune cutoff %v, got %v", want, store.pruneFrom)
	}
}

func TestNewScheduler_BadSchedule(t *testing.T) {
	_, err := NewScheduler(&fakeStore{}, &fakeNotifier{}, "not a cron spec")
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
