package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds a SQLite connection used as an alternative snapshot backend.
type Store struct {
	db  *sql.DB
	seq *snapshotSequence
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	seq, err := newSnapshotSequence(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SnapshotRepo returns a SnapshotRepo backed by this store that retains
// the keep most recent snapshots (keep <= 0 keeps everything).
func (s *Store) SnapshotRepo(keep int) *SQLiteRepo {
	return &SQLiteRepo{db: s.db, seq: s.seq, keep: keep}
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
		id             TEXT PRIMARY KEY,
		sequence       INTEGER NOT NULL UNIQUE,
		timestamp      TEXT NOT NULL,
		format_version INTEGER NOT NULL,
		data           TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots(timestamp);
	`)
	return err
}

// DefaultDBPath resolves a database file path in priority order:
// 1. the env variable named by envVar
// 2. $XDG_DATA_HOME/quizbox/<name>
// 3. ~/.local/share/quizbox/<name>
func DefaultDBPath(envVar, name string) (string, error) {
	if p := os.Getenv(envVar); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "quizbox", name)
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
