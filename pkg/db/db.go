package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Pragmas applied to every pooled connection. foreign_keys is per-connection
// in SQLite, so they go in the DSN instead of a one-off Exec.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(30000)",
	"cache_size(-64000)", // 64MB cache
	"temp_store(memory)",
	"mmap_size(268435456)", // 256MB mmap
	"foreign_keys(1)",
}

var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// DSN returns the driver data source name for a database file.
func DSN(path string) string {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	return "file:" + uriEscaper.Replace(filepath.ToSlash(path)) + "?" + strings.Join(params, "&")
}

// Open opens the database at path. It does not apply migrations.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA optimize"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying pragma optimize: %w", err)
	}
	return db, nil
}

// OpenAndMigrate opens the database and applies pending migrations.
func OpenAndMigrate(path string) (*sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := InitializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
