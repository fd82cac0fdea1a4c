package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (p *SQLProvider) CreateTask(ctx context.Context, task Task) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO tasks (user_id, course_id, title, notes, due_at, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, task.UserID, task.CourseID, task.Title, task.Notes, task.DueAt, task.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) GetTask(ctx context.Context, id int64) (*Task, error) {
	var task Task
	query := p.db.Rebind(`SELECT * FROM tasks WHERE id = ?`)
	err := p.db.GetContext(ctx, &task, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListTasks returns open tasks due-date first, undated last. Completed tasks
// are included only when includeDone is set.
func (p *SQLProvider) ListTasks(ctx context.Context, userID int64, includeDone bool) ([]Task, error) {
	var tasks []Task
	q := `SELECT * FROM tasks WHERE user_id = ?`
	if !includeDone {
		q += ` AND done_at IS NULL`
	}
	q += ` ORDER BY due_at IS NULL, due_at, id`
	err := p.db.SelectContext(ctx, &tasks, p.db.Rebind(q), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (p *SQLProvider) UpdateTask(ctx context.Context, task Task) error {
	query := p.db.Rebind(`UPDATE tasks SET course_id = ?, title = ?, notes = ?, due_at = ? WHERE id = ?`)
	if _, err := p.db.ExecContext(ctx, query, task.CourseID, task.Title, task.Notes, task.DueAt, task.ID); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (p *SQLProvider) CompleteTask(ctx context.Context, id int64, at time.Time) error {
	query := p.db.Rebind(`UPDATE tasks SET done_at = ? WHERE id = ? AND done_at IS NULL`)
	if _, err := p.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

func (p *SQLProvider) ReopenTask(ctx context.Context, id int64) error {
	query := p.db.Rebind(`UPDATE tasks SET done_at = NULL WHERE id = ?`)
	if _, err := p.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reopen task: %w", err)
	}
	return nil
}

func (p *SQLProvider) DeleteTask(ctx context.Context, id int64) error {
	query := p.db.Rebind(`DELETE FROM tasks WHERE id = ?`)
	if _, err := p.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (p *SQLProvider) CreateGrade(ctx context.Context, grade Grade) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO grades (user_id, course_id, points, credits, term, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, grade.UserID, grade.CourseID, grade.Points, grade.Credits, grade.Term, grade.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create grade: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) ListGrades(ctx context.Context, userID int64) ([]Grade, error) {
	var grades []Grade
	query := p.db.Rebind(`SELECT * FROM grades WHERE user_id = ? ORDER BY term, course_id`)
	if err := p.db.SelectContext(ctx, &grades, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	return grades, nil
}

func (p *SQLProvider) DeleteGrade(ctx context.Context, id int64, userID int64) error {
	query := p.db.Rebind(`DELETE FROM grades WHERE id = ? AND user_id = ?`)
	if _, err := p.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("failed to delete grade: %w", err)
	}
	return nil
}
