package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for analysed files, their
// diagnostics, and run metadata.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for queries the Store has no method for.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  ruleset_hash    TEXT,
  line_count      INTEGER,
  last_analyzed   TIMESTAMP
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  rule_id         TEXT NOT NULL,
  severity        TEXT NOT NULL,
  message         TEXT NOT NULL,
  args            TEXT,
  start_offset    INTEGER,
  end_offset      INTEGER,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_diagnostics_file ON diagnostics(file_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_rule ON diagnostics(rule_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_severity ON diagnostics(severity);
`

// DeleteFileData transactionally removes the diagnostics of a file. The
// file record itself is kept.
func (s *Store) DeleteFileData(fileID int64) error {
	if _, err := s.db.Exec("DELETE FROM diagnostics WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete diagnostics: %w", err)
	}
	return nil
}

// DeleteFiles removes files and their diagnostics in one transaction.
func (s *Store) DeleteFiles(fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := placeholderList(len(fileIDs))
	args := int64sToArgs(fileIDs)
	for _, q := range []string{
		"DELETE FROM diagnostics WHERE file_id IN (" + placeholders + ")",
		"DELETE FROM files WHERE id IN (" + placeholders + ")",
	} {
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("delete files: %w", err)
		}
	}
	return tx.Commit()
}
