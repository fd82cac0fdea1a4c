package storage

import (
	"context"
	"fmt"
	"time"
)

func (p *SQLProvider) CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error {
	query := p.db.Rebind(`INSERT INTO nonces (nonce, expires_at) VALUES (?, ?)`)
	if _, err := p.db.ExecContext(ctx, query, nonce, expiresAt); err != nil {
		return fmt.Errorf("failed to create nonce: %w", err)
	}
	return nil
}

func (p *SQLProvider) ExistsNonce(ctx context.Context, nonce string) (bool, error) {
	var count int
	query := p.db.Rebind(`SELECT COUNT(*) FROM nonces WHERE nonce = ? AND expires_at > ?`)
	if err := p.db.GetContext(ctx, &count, query, nonce, time.Now()); err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return count > 0, nil
}

// ConsumeNonce deletes the nonce, returning whether it existed unexpired.
func (p *SQLProvider) ConsumeNonce(ctx context.Context, nonce string) (bool, error) {
	query := p.db.Rebind(`DELETE FROM nonces WHERE nonce = ? AND expires_at > ?`)
	res, err := p.db.ExecContext(ctx, query, nonce, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (p *SQLProvider) ExpireNonces(ctx context.Context, now time.Time) error {
	query := p.db.Rebind(`DELETE FROM nonces WHERE expires_at <= ?`)
	if _, err := p.db.ExecContext(ctx, query, now); err != nil {
		return fmt.Errorf("failed to expire nonces: %w", err)
	}
	return nil
}
