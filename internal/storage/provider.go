package storage

import (
	"context"
	"log/slog"
	"time"

	"studyhall/internal/config"
)

type Provider interface {
	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)

	// User methods
	CreateUser(ctx context.Context, user User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserPassword(ctx context.Context, id int64, hash string) error

	// Course methods
	CreateCourse(ctx context.Context, course Course) (int64, error)
	GetCourse(ctx context.Context, id int64) (*Course, error)
	ListCourses(ctx context.Context, ownerID int64) ([]Course, error)
	ListEnrolledCourses(ctx context.Context, studentID int64) ([]Course, error)
	UpdateCourse(ctx context.Context, course Course) error
	ArchiveCourse(ctx context.Context, id int64, at time.Time) error

	// Meeting methods
	CreateMeeting(ctx context.Context, meeting Meeting) (int64, error)
	ListMeetings(ctx context.Context, courseID int64) ([]Meeting, error)
	NextMeeting(ctx context.Context, studentID int64, after time.Time) (*Meeting, error)

	// Enrollment methods
	CreateEnrollment(ctx context.Context, enrollment Enrollment) error
	IsEnrolled(ctx context.Context, courseID int64, studentID int64) (bool, error)
	ListEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error)

	// Task methods
	CreateTask(ctx context.Context, task Task) (int64, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context, userID int64, includeDone bool) ([]Task, error)
	UpdateTask(ctx context.Context, task Task) error
	CompleteTask(ctx context.Context, id int64, at time.Time) error
	ReopenTask(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64) error

	// Grade methods
	CreateGrade(ctx context.Context, grade Grade) (int64, error)
	ListGrades(ctx context.Context, userID int64) ([]Grade, error)
	DeleteGrade(ctx context.Context, id int64, userID int64) error

	// Habit methods
	CreateHabit(ctx context.Context, habit Habit) (int64, error)
	GetHabit(ctx context.Context, id int64) (*Habit, error)
	ListHabits(ctx context.Context, userID int64) ([]Habit, error)
	UpdateHabit(ctx context.Context, habit Habit) error
	ArchiveHabit(ctx context.Context, id int64, at time.Time) error

	// Habit entry methods
	CreateHabitEntry(ctx context.Context, entry HabitEntry) (int64, error)
	DeleteHabitEntry(ctx context.Context, id int64) error
	IncrementHabitEntry(ctx context.Context, id int64, at time.Time) error
	GetHabitEntryByDay(ctx context.Context, habitID int64, day string) (*HabitEntry, error)
	ListHabitEntries(ctx context.Context, habitID int64) ([]HabitEntry, error)
	ListHabitEntriesBetween(ctx context.Context, habitID int64, from string, to string) ([]HabitEntry, error)

	// Journal methods
	UpsertJournalEntry(ctx context.Context, entry JournalEntry) (int64, error)
	GetJournalEntryByDay(ctx context.Context, userID int64, day string) (*JournalEntry, error)
	ListJournalEntries(ctx context.Context, userID int64, from string, to string) ([]JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, userID int64, day string) error

	// Focus session methods
	CreateFocusSession(ctx context.Context, session FocusSession) (int64, error)
	GetOpenFocusSession(ctx context.Context, userID int64) (*FocusSession, error)
	FinishFocusSession(ctx context.Context, id int64, endedAt time.Time, minutes int) error
	ListFocusSessions(ctx context.Context, userID int64, from time.Time, to time.Time) ([]FocusSession, error)

	// Attendance session methods
	CreateSession(ctx context.Context, session Session) (int64, error)
	GetSession(ctx context.Context, id int64) (*Session, error)
	ListSessions(ctx context.Context, courseID int64) ([]Session, error)
	NextSession(ctx context.Context, studentID int64, now time.Time) (*Session, error)
	CloseSession(ctx context.Context, id int64, at time.Time) error

	// Attendance record methods
	RecordAttendance(ctx context.Context, record AttendanceRecord) (*AttendanceRecord, bool, error)
	GetAttendanceRecord(ctx context.Context, sessionID int64, studentID int64) (*AttendanceRecord, error)
	ListAttendanceBySession(ctx context.Context, sessionID int64) ([]AttendanceRecord, error)
	ListAttendanceByStudent(ctx context.Context, studentID int64) ([]AttendanceRecord, error)

	// Nonce methods
	CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error
	ExistsNonce(ctx context.Context, nonce string) (bool, error)
	ConsumeNonce(ctx context.Context, nonce string) (bool, error)
	ExpireNonces(ctx context.Context, now time.Time) error

	// Reminder methods
	ScheduleReminder(ctx context.Context, reminder Reminder) (int64, error)
	CancelReminder(ctx context.Context, kind ReminderKind, refID int64) error
	DueReminders(ctx context.Context, now time.Time) ([]Reminder, error)
	MarkReminderSent(ctx context.Context, id int64, at time.Time) error

	// Maintenance methods
	PruneSessions(ctx context.Context, olderThan time.Time) (int64, error)
}

func NewProvider(config *config.Storage) Provider {
	switch {
	case config.PostgreSQL != nil:
		provider := NewPostgresProvider(config)
		if err := provider.runMigrations("postgres"); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return nil
		}
		return provider

	case config.SQLite != nil:
		provider := NewSQLiteProvider(config)
		if err := provider.runMigrations("sqlite3"); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return nil
		}
		return provider

	default:
		slog.Error("Unsupported storage configuration", "config", config)
	}

	return nil
}
