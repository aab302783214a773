// ABOUTME: SQLite-backed store constructor using modernc.org/sqlite
// ABOUTME: Creates the schema on open and enables WAL for concurrent access

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// maxPoolConns bounds the shared connection pool. Requests block when the
// pool is exhausted, which is the backpressure mechanism for the server.
const maxPoolConns = 5

// NewSQLiteStore opens (or creates) a SQLite store at the given path.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Connection options ride in the DSN so every pooled connection gets
	// them, not just the one that happens to run a setup statement:
	//   - _txlock=immediate: transactions take the write lock at BEGIN, so
	//     concurrent read-check-write transactions queue on busy_timeout
	//     instead of failing mid-flight with SQLITE_BUSY
	//   - busy_timeout: lock waiters block up to 5s rather than erroring
	//   - journal_mode=WAL: readers proceed while a writer holds the lock
	dsn := "file:" + path + "?_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(maxPoolConns)

	s := &SQLStore{
		db:      db,
		dialect: sqliteDialect,
		logger:  logger,
		now:     time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			email TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_admin INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			name TEXT,
			category TEXT,
			timestamp TEXT NOT NULL,
			metadata TEXT,
			timing TEXT,
			synthesis TEXT
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}
