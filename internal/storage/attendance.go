package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (p *SQLProvider) CreateSession(ctx context.Context, session Session) (int64, error) {
	var id int64
	query := p.db.Rebind(`
		INSERT INTO attendance_sessions
			(course_id, title, opens_at, closes_at, passcode_mode, passcode_hash, totp_secret, allow_early, require_enrollment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := p.db.GetContext(ctx, &id, query,
		session.CourseID, session.Title, session.OpensAt, session.ClosesAt,
		session.PasscodeMode, session.PasscodeHash, session.TOTPSecret,
		session.AllowEarly, session.RequireEnrollment, session.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) GetSession(ctx context.Context, id int64) (*Session, error) {
	var session Session
	query := p.db.Rebind(`SELECT * FROM attendance_sessions WHERE id = ?`)
	err := p.db.GetContext(ctx, &session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (p *SQLProvider) ListSessions(ctx context.Context, courseID int64) ([]Session, error) {
	var sessions []Session
	query := p.db.Rebind(`SELECT * FROM attendance_sessions WHERE course_id = ? ORDER BY opens_at DESC`)
	if err := p.db.SelectContext(ctx, &sessions, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// NextSession returns the student's soonest attendance session that is still
// open or yet to open.
func (p *SQLProvider) NextSession(ctx context.Context, studentID int64, now time.Time) (*Session, error) {
	var session Session
	query := p.db.Rebind(`
		SELECT s.* FROM attendance_sessions s
		JOIN course_enrollments e ON e.course_id = s.course_id
		WHERE e.student_id = ? AND s.closed_at IS NULL AND (s.closes_at IS NULL OR s.closes_at > ?)
		ORDER BY s.opens_at
		LIMIT 1`)
	err := p.db.GetContext(ctx, &session, query, studentID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next session: %w", err)
	}
	return &session, nil
}

// CloseSession ends a session ahead of its scheduled close. Idempotent.
func (p *SQLProvider) CloseSession(ctx context.Context, id int64, at time.Time) error {
	query := p.db.Rebind(`UPDATE attendance_sessions SET closed_at = ? WHERE id = ? AND closed_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// RecordAttendance inserts a check-in record. If the student is already
// checked in for the session the existing record is returned with created
// false, so retries and double scans are safe.
func (p *SQLProvider) RecordAttendance(ctx context.Context, record AttendanceRecord) (*AttendanceRecord, bool, error) {
	query := p.db.Rebind(`
		INSERT INTO attendance_records (id, session_id, student_id, checked_in_at, method)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, student_id) DO NOTHING`)
	res, err := p.db.ExecContext(ctx, query, record.ID, record.SessionID, record.StudentID, record.CheckedInAt, record.Method)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record attendance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		existing, err := p.GetAttendanceRecord(ctx, record.SessionID, record.StudentID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("attendance conflict for session %d but no record found", record.SessionID)
		}
		return existing, false, nil
	}

	return &record, true, nil
}

func (p *SQLProvider) GetAttendanceRecord(ctx context.Context, sessionID int64, studentID int64) (*AttendanceRecord, error) {
	var record AttendanceRecord
	query := p.db.Rebind(`SELECT * FROM attendance_records WHERE session_id = ? AND student_id = ?`)
	err := p.db.GetContext(ctx, &record, query, sessionID, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return &record, nil
}

func (p *SQLProvider) ListAttendanceBySession(ctx context.Context, sessionID int64) ([]AttendanceRecord, error) {
	var records []AttendanceRecord
	query := p.db.Rebind(`SELECT * FROM attendance_records WHERE session_id = ? ORDER BY checked_in_at`)
	if err := p.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return records, nil
}

func (p *SQLProvider) ListAttendanceByStudent(ctx context.Context, studentID int64) ([]AttendanceRecord, error) {
	var records []AttendanceRecord
	query := p.db.Rebind(`SELECT * FROM attendance_records WHERE student_id = ? ORDER BY checked_in_at DESC`)
	if err := p.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return records, nil
}

// PruneSessions deletes sessions whose close time passed before the cutoff.
// Open-ended sessions only qualify once they were closed manually.
// Records go with them via the foreign key cascade.
func (p *SQLProvider) PruneSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	query := p.db.Rebind(`
		DELETE FROM attendance_sessions
		WHERE (closes_at IS NOT NULL AND closes_at < ?)
		   OR (closes_at IS NULL AND closed_at IS NOT NULL AND closed_at < ?)`)
	res, err := p.db.ExecContext(ctx, query, olderThan, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}
