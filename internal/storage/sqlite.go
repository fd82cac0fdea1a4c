package storage

import (
	_ "github.com/mattn/go-sqlite3"

	"studyhall/internal/config"
)

type SQLiteProvider struct {
	SQLProvider
}

func NewSQLiteProvider(config *config.Storage) (provider *SQLiteProvider) {
	return &SQLiteProvider{
		SQLProvider: *NewSQLProvider(config, "sqlite3", config.SQLite.Path),
	}
}
