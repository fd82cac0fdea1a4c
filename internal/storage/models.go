package storage

import "time"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	Role         Role       `db:"role" json:"role"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	DeletedAt    *time.Time `db:"deleted_at,omitempty" json:"-"`
}

type Course struct {
	ID         int64      `db:"id" json:"id"`
	OwnerID    int64      `db:"owner_id" json:"ownerId"`
	Code       string     `db:"code" json:"code"`
	Title      string     `db:"title" json:"title"`
	Credits    float64    `db:"credits" json:"credits"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ArchivedAt *time.Time `db:"archived_at,omitempty" json:"archivedAt,omitempty"`
}

// Meeting is a weekly recurring class slot for a course.
type Meeting struct {
	ID        int64  `db:"id" json:"id"`
	CourseID  int64  `db:"course_id" json:"courseId"`
	Weekday   int    `db:"weekday" json:"weekday"`       // time.Weekday numbering, Sunday = 0
	StartTime string `db:"start_time" json:"startTime"` // "15:04"
	EndTime   string `db:"end_time" json:"endTime"`
	Location  string `db:"location" json:"location,omitempty"`
}

type Enrollment struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"courseId"`
	StudentID int64     `db:"student_id" json:"studentId"`
	StudentNo string    `db:"student_no" json:"studentNo,omitempty"` // institutional student number, from roster imports
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Task struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"userId"`
	CourseID  *int64     `db:"course_id,omitempty" json:"courseId,omitempty"`
	Title     string     `db:"title" json:"title"`
	Notes     string     `db:"notes" json:"notes,omitempty"`
	DueAt     *time.Time `db:"due_at,omitempty" json:"dueAt,omitempty"`
	DoneAt    *time.Time `db:"done_at,omitempty" json:"doneAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

type Grade struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	CourseID  int64     `db:"course_id" json:"courseId"`
	Points    float64   `db:"points" json:"points"` // grade points on the 4.0 scale
	Credits   float64   `db:"credits" json:"credits"`
	Term      string    `db:"term" json:"term,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Frequency string

const (
	FrequencyDaily   Frequency = "Daily"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyMonthly Frequency = "Monthly"
)

// Habit is a recurring goal. TargetCount is how many completions the
// habit asks for per frequency period, at least 1.
type Habit struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"userId"`
	Name        string     `db:"name" json:"name"`
	Color       string     `db:"color" json:"color,omitempty"`
	Frequency   Frequency  `db:"frequency" json:"frequency"`
	TargetCount int        `db:"target_count" json:"targetCount"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	ArchivedAt  *time.Time `db:"archived_at,omitempty" json:"archivedAt,omitempty"`
}

// HabitEntry marks a habit completed on a calendar day. Day is a local
// "YYYY-MM-DD" date, never a timestamp.
type HabitEntry struct {
	ID          int64     `db:"id" json:"id"`
	HabitID     int64     `db:"habit_id" json:"habitId"`
	Day         string    `db:"entry_date" json:"day"`
	Count       int       `db:"count" json:"count"`
	CompletedAt time.Time `db:"completed_at" json:"completedAt"`
}

type JournalEntry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Day       string    `db:"entry_date" json:"day"`
	Mood      int       `db:"mood" json:"mood"` // 1..5
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type FocusSession struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"userId"`
	Label     string     `db:"label" json:"label,omitempty"`
	StartedAt time.Time  `db:"started_at" json:"startedAt"`
	EndedAt   *time.Time `db:"ended_at,omitempty" json:"endedAt,omitempty"`
	Minutes   int        `db:"minutes" json:"minutes"`
}

type PasscodeMode string

const (
	PasscodeNone     PasscodeMode = "none"
	PasscodeStatic   PasscodeMode = "static"
	PasscodeRotating PasscodeMode = "rotating"
)

// Session is a single attendance window for a course meeting.
type Session struct {
	ID                int64        `db:"id" json:"id"`
	CourseID          int64        `db:"course_id" json:"courseId"`
	Title             string       `db:"title" json:"title"`
	OpensAt           time.Time    `db:"opens_at" json:"opensAt"`
	ClosesAt          *time.Time   `db:"closes_at,omitempty" json:"closesAt,omitempty"` // nil means the window never expires
	PasscodeMode      PasscodeMode `db:"passcode_mode" json:"passcodeMode"`
	PasscodeHash      *string      `db:"passcode_hash,omitempty" json:"-"` // bcrypt, static mode only
	TOTPSecret        *string      `db:"totp_secret,omitempty" json:"-"`   // rotating mode only
	AllowEarly        bool         `db:"allow_early" json:"allowEarly"`
	RequireEnrollment bool         `db:"require_enrollment" json:"requireEnrollment"`
	ClosedAt          *time.Time   `db:"closed_at,omitempty" json:"closedAt,omitempty"` // set on manual close
	CreatedAt         time.Time    `db:"created_at" json:"createdAt"`
}

type CheckinMethod string

const (
	MethodQR     CheckinMethod = "qr"
	MethodManual CheckinMethod = "manual"
)

type AttendanceRecord struct {
	ID          string        `db:"id" json:"id"` // uuid
	SessionID   int64         `db:"session_id" json:"sessionId"`
	StudentID   int64         `db:"student_id" json:"studentId"`
	CheckedInAt time.Time     `db:"checked_in_at" json:"checkedInAt"`
	Method      CheckinMethod `db:"method" json:"method"`
}

type ReminderKind string

const (
	ReminderTask    ReminderKind = "task"
	ReminderHabit   ReminderKind = "habit"
	ReminderSession ReminderKind = "session"
)

// Reminder is keyed by (kind, ref id) so rescheduling replaces the
// pending one instead of stacking up.
type Reminder struct {
	ID      int64        `db:"id" json:"id"`
	UserID  int64        `db:"user_id" json:"userId"`
	Kind    ReminderKind `db:"kind" json:"kind"`
	RefID   int64        `db:"ref_id" json:"refId"`
	Subject string       `db:"subject" json:"subject"`
	Body    string       `db:"body" json:"-"`
	DueAt   time.Time    `db:"due_at" json:"dueAt"`
	SentAt  *time.Time   `db:"sent_at,omitempty" json:"sentAt,omitempty"`
}
