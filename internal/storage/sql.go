package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"studyhall/internal/config"
)

type SQLProvider struct {
	db *sqlx.DB

	config *config.Storage

	logger *slog.Logger
}

func NewSQLProvider(config *config.Storage, driverName string, dataSource string) (provider *SQLProvider) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil
	}

	logger := slog.With("component", "storage")

	return &SQLProvider{
		db:     db,
		config: config,
		logger: logger,
	}
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *SQLProvider) GetSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := p.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// runMigrations brings the schema up to the latest embedded migration.
func (p *SQLProvider) runMigrations(driver string) error {
	ctx := context.Background()

	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TIMESTAMP NOT NULL)`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	version, err := p.GetSchemaVersion(ctx)
	if err != nil {
		return err
	}

	runner := NewMigrationRunner(driver)

	migrations, err := runner.LoadMigrations(version, -1)
	if err != nil {
		if errors.Is(err, ErrMigrateCurrentVersionSameAsTarget) {
			p.logger.Debug("Schema is up to date", "version", version)
			return nil
		}
		return err
	}

	for _, migration := range migrations {
		if err := p.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %04d_%s failed: %w", migration.Version, migration.Name, err)
		}
		p.logger.Info("Applied migration", "version", migration.Version, "name", migration.Name, "up", migration.Up)
	}

	return nil
}

func (p *SQLProvider) applyMigration(ctx context.Context, migration SchemaMigration) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return err
	}

	if migration.Up {
		_, err = tx.ExecContext(ctx, p.db.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`), migration.Version, time.Now().UTC())
	} else {
		_, err = tx.ExecContext(ctx, p.db.Rebind(`DELETE FROM schema_migrations WHERE version = ?`), migration.Version)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}
