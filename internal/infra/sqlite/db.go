// Package sqlite opens the Safeboy SQLite store and applies its embedded schema migrations.
// modernc.org/sqlite is a pure-Go driver, so the binary builds without CGO.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database. Callers using it should pin the pool to
// one connection; every new connection would otherwise see an empty schema.
const MemoryPath = ":memory:"

// pragmas are applied on every new connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(ON)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"cache_size(-32000)",
	"temp_store(MEMORY)",
}

// NewDB opens (or creates) the database file at path and verifies the connection.
// The parent directory must already exist.
func NewDB(path string) (*sql.DB, error) {
	if path != MemoryPath {
		dir := filepath.Dir(path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("sqlite.NewDB: parent directory %q does not exist", dir)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.NewDB: open %q: %w", path, err)
	}

	// WAL serializes writers; a small pool is plenty for one tenant-facing API.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.NewDB: ping %q: %w", path, err)
	}
	return db, nil
}

func dsn(path string) string {
	out := path
	for i, p := range pragmas {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		out += sep + "_pragma=" + p
	}
	return out
}
