package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver registration.
)

// TimeLayout is the storage format for all timestamps. Values are always
// UTC; the format sorts lexicographically, which the due/expired queries
// rely on.
const TimeLayout = "2006-01-02T15:04:05Z"

type DB struct {
	*sql.DB
}

// NewConnection opens the SQLite database at path and applies the
// pragmas the engine depends on.
func NewConnection(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// The reconciler and HTTP handlers share this connection; a single
	// writer keeps SQLite's locking out of the picture.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// IsMissingSchema reports whether err indicates that a required table or
// column does not exist, i.e. migrations have not been applied. Callers
// surface this as a distinct condition instead of a generic failure.
func IsMissingSchema(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column")
}
