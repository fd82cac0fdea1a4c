package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (p *SQLProvider) CreateUser(ctx context.Context, user User) (int64, error) {
	var id int64
	query := p.db.Rebind(`INSERT INTO users (email, name, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := p.db.GetContext(ctx, &id, query, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

func (p *SQLProvider) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	query := p.db.Rebind(`SELECT * FROM users WHERE id = ? AND deleted_at IS NULL`)
	err := p.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (p *SQLProvider) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	query := p.db.Rebind(`SELECT * FROM users WHERE email = ? AND deleted_at IS NULL`)
	err := p.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (p *SQLProvider) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users, `SELECT * FROM users WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (p *SQLProvider) SetUserPassword(ctx context.Context, id int64, hash string) error {
	query := p.db.Rebind(`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`)
	result, err := p.db.ExecContext(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("failed to set user password: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("failed to set user password: no such user %d", id)
	}
	return nil
}
