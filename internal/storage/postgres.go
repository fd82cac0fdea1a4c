package storage

import (
	_ "github.com/jackc/pgx/v5/stdlib"

	"studyhall/internal/config"
)

type PostgresProvider struct {
	SQLProvider
}

func NewPostgresProvider(config *config.Storage) (provider *PostgresProvider) {
	return &PostgresProvider{
		SQLProvider: *NewSQLProvider(config, "pgx", config.PostgreSQL.DSN),
	}
}
