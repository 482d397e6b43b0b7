package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// NewSQLiteDB opens an embedded SQLite database. The pool is pinned to a
// single connection so writers serialize inside the driver instead of
// failing with SQLITE_BUSY.
func NewSQLiteDB(ctx context.Context, path string, log zerolog.Logger) (*sql.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	log.Info().
		Str("path", path).
		Msg("SQLite opened")

	return db, nil
}
