package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (p *SQLProvider) CreateCourse(ctx context.Context, course Course) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO courses (owner_id, code, title, credits, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, course.OwnerID, course.Code, course.Title, course.Credits, course.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create course: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) GetCourse(ctx context.Context, id int64) (*Course, error) {
	var course Course
	query := p.db.Rebind(`SELECT * FROM courses WHERE id = ?`)
	err := p.db.GetContext(ctx, &course, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

// ListCourses returns unarchived courses. A zero ownerID lists all of them.
func (p *SQLProvider) ListCourses(ctx context.Context, ownerID int64) ([]Course, error) {
	var courses []Course
	var err error
	if ownerID == 0 {
		err = p.db.SelectContext(ctx, &courses, `SELECT * FROM courses WHERE archived_at IS NULL ORDER BY code`)
	} else {
		query := p.db.Rebind(`SELECT * FROM courses WHERE owner_id = ? AND archived_at IS NULL ORDER BY code`)
		err = p.db.SelectContext(ctx, &courses, query, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// ListEnrolledCourses returns the unarchived courses a student is enrolled in.
func (p *SQLProvider) ListEnrolledCourses(ctx context.Context, studentID int64) ([]Course, error) {
	var courses []Course
	query := p.db.Rebind(`
		SELECT c.* FROM courses c
		JOIN course_enrollments e ON e.course_id = c.id
		WHERE e.student_id = ? AND c.archived_at IS NULL
		ORDER BY c.code`)
	err := p.db.SelectContext(ctx, &courses, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolled courses: %w", err)
	}
	return courses, nil
}

func (p *SQLProvider) UpdateCourse(ctx context.Context, course Course) error {
	query := p.db.Rebind(`UPDATE courses SET code = ?, title = ?, credits = ? WHERE id = ? AND archived_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, course.Code, course.Title, course.Credits, course.ID); err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

func (p *SQLProvider) ArchiveCourse(ctx context.Context, id int64, at time.Time) error {
	query := p.db.Rebind(`UPDATE courses SET archived_at = ? WHERE id = ? AND archived_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to archive course: %w", err)
	}
	return nil
}

func (p *SQLProvider) CreateMeeting(ctx context.Context, meeting Meeting) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO course_meetings (course_id, weekday, start_time, end_time, location) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, meeting.CourseID, meeting.Weekday, meeting.StartTime, meeting.EndTime, meeting.Location)
	if err != nil {
		return 0, fmt.Errorf("failed to create meeting: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) ListMeetings(ctx context.Context, courseID int64) ([]Meeting, error) {
	var meetings []Meeting
	query := p.db.Rebind(`SELECT * FROM course_meetings WHERE course_id = ? ORDER BY weekday, start_time`)
	err := p.db.SelectContext(ctx, &meetings, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// NextMeeting returns the soonest upcoming meeting slot across the student's
// enrolled courses, scanning forward at most a week from `after`.
func (p *SQLProvider) NextMeeting(ctx context.Context, studentID int64, after time.Time) (*Meeting, error) {
	var meetings []Meeting
	query := p.db.Rebind(`
		SELECT m.* FROM course_meetings m
		JOIN course_enrollments e ON e.course_id = m.course_id
		JOIN courses c ON c.id = m.course_id
		WHERE e.student_id = ? AND c.archived_at IS NULL`)
	if err := p.db.SelectContext(ctx, &meetings, query, studentID); err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	if len(meetings) == 0 {
		return nil, nil
	}

	var best *Meeting
	var bestAt time.Time
	for i := range meetings {
		at, err := NextOccurrence(meetings[i], after)
		if err != nil {
			continue
		}
		if best == nil || at.Before(bestAt) {
			best = &meetings[i]
			bestAt = at
		}
	}
	return best, nil
}

// NextOccurrence resolves the next occurrence of a weekly slot at or after t,
// in t's location.
func NextOccurrence(m Meeting, t time.Time) (time.Time, error) {
	start, err := time.Parse("15:04", m.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time %q: %w", m.StartTime, err)
	}

	daysAhead := (m.Weekday - int(t.Weekday()) + 7) % 7
	day := t.AddDate(0, 0, daysAhead)
	at := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, t.Location())
	if at.Before(t) {
		at = at.AddDate(0, 0, 7)
	}
	return at, nil
}
