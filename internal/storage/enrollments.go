package storage

import (
	"context"
	"fmt"
)

// CreateEnrollment inserts an enrollment. Re-importing the same roster row is
// a no-op.
func (p *SQLProvider) CreateEnrollment(ctx context.Context, enrollment Enrollment) error {
	query := p.db.Rebind(`
		INSERT INTO course_enrollments (course_id, student_id, student_no, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (course_id, student_id) DO NOTHING`)
	_, err := p.db.ExecContext(ctx, query, enrollment.CourseID, enrollment.StudentID, enrollment.StudentNo, enrollment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

func (p *SQLProvider) IsEnrolled(ctx context.Context, courseID int64, studentID int64) (bool, error) {
	var count int
	query := p.db.Rebind(`SELECT COUNT(*) FROM course_enrollments WHERE course_id = ? AND student_id = ?`)
	if err := p.db.GetContext(ctx, &count, query, courseID, studentID); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

func (p *SQLProvider) ListEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error) {
	var enrollments []Enrollment
	query := p.db.Rebind(`SELECT * FROM course_enrollments WHERE course_id = ? ORDER BY student_no, id`)
	if err := p.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}
