// Package widget builds the read-only home screen snapshot for a student.
package widget

import (
	"context"
	"log/slog"
	"time"

	"studyhall/internal/habit"
	"studyhall/internal/storage"
)

// The widget shows only the nearest few tasks.
const maxUpcomingTasks = 5

// Store is the slice of the storage provider the builder needs.
type Store interface {
	NextMeeting(ctx context.Context, studentID int64, after time.Time) (*storage.Meeting, error)
	GetCourse(ctx context.Context, id int64) (*storage.Course, error)
	ListTasks(ctx context.Context, userID int64, includeDone bool) ([]storage.Task, error)
	ListFocusSessions(ctx context.Context, userID int64, from time.Time, to time.Time) ([]storage.FocusSession, error)
	NextSession(ctx context.Context, studentID int64, now time.Time) (*storage.Session, error)
}

type NextClass struct {
	CourseID    int64     `json:"courseId"`
	CourseCode  string    `json:"courseCode"`
	CourseTitle string    `json:"courseTitle"`
	StartsAt    time.Time `json:"startsAt"`
	Location    string    `json:"location,omitempty"`
}

type UpcomingTask struct {
	ID    int64      `json:"id"`
	Title string     `json:"title"`
	DueAt *time.Time `json:"dueAt,omitempty"`
}

type NextSession struct {
	ID       int64     `json:"id"`
	CourseID int64     `json:"courseId"`
	Title    string    `json:"title"`
	OpensAt  time.Time  `json:"opensAt"`
	ClosesAt *time.Time `json:"closesAt,omitempty"`
	Open     bool       `json:"open"`
}

// Snapshot is everything the home screen widget renders in one fetch.
type Snapshot struct {
	NextClass    *NextClass      `json:"nextClass,omitempty"`
	Tasks        []UpcomingTask  `json:"tasks"`
	Habits       []habit.Summary `json:"habits"`
	FocusMinutes int             `json:"focusMinutes"` // logged today
	NextSession  *NextSession    `json:"nextSession,omitempty"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

type Builder struct {
	store  Store
	habits *habit.Tracker
	logger *slog.Logger

	now func() time.Time
}

func NewBuilder(store Store, habits *habit.Tracker) *Builder {
	return &Builder{
		store:  store,
		habits: habits,
		logger: slog.With("component", "widget"),
		now:    time.Now,
	}
}

// Build assembles a fresh snapshot for the student.
func (b *Builder) Build(ctx context.Context, userID int64) (*Snapshot, error) {
	now := b.now()
	snap := &Snapshot{
		Tasks:       []UpcomingTask{},
		GeneratedAt: now,
	}

	meeting, err := b.store.NextMeeting(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if meeting != nil {
		at, err := storage.NextOccurrence(*meeting, now)
		if err != nil {
			b.logger.Warn("Skipping meeting with bad start time", "meeting", meeting.ID, "error", err)
		} else {
			next := &NextClass{
				CourseID: meeting.CourseID,
				StartsAt: at,
				Location: meeting.Location,
			}
			course, err := b.store.GetCourse(ctx, meeting.CourseID)
			if err != nil {
				return nil, err
			}
			if course != nil {
				next.CourseCode = course.Code
				next.CourseTitle = course.Title
			}
			snap.NextClass = next
		}
	}

	tasks, err := b.store.ListTasks(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if len(snap.Tasks) == maxUpcomingTasks {
			break
		}
		snap.Tasks = append(snap.Tasks, UpcomingTask{ID: task.ID, Title: task.Title, DueAt: task.DueAt})
	}

	snap.Habits, err = b.habits.Overview(ctx, userID, habit.Day(now))
	if err != nil {
		return nil, err
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	focus, err := b.store.ListFocusSessions(ctx, userID, startOfDay, now)
	if err != nil {
		return nil, err
	}
	for _, f := range focus {
		snap.FocusMinutes += f.Minutes
	}

	session, err := b.store.NextSession(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if session != nil {
		snap.NextSession = &NextSession{
			ID:       session.ID,
			CourseID: session.CourseID,
			Title:    session.Title,
			OpensAt:  session.OpensAt,
			ClosesAt: session.ClosesAt,
			Open:     !now.Before(session.OpensAt) && (session.ClosesAt == nil || now.Before(*session.ClosesAt)) && session.ClosedAt == nil,
		}
	}

	return snap, nil
}
