package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when a batch without a file record is committed.
var ErrEmptyBatch = errors.New("store: batch has no file")

// CommitBatch replaces everything stored for the batch's file with the
// batch contents within a single transaction: the old file record and its
// diagnostics are deleted, the new record is inserted, and buffered
// diagnostics are inserted with their fake file ID remapped to the real one.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	if batch.File == nil {
		return ErrEmptyBatch
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	f := *batch.File
	fakeID := f.ID
	if err := deleteFileByPathTx(tx, f.Path); err != nil {
		return fmt.Errorf("commit batch: %s: %w", f.Path, err)
	}

	realID, err := insertFileTx(tx, &f)
	if err != nil {
		return fmt.Errorf("commit batch: file %q: %w", f.Path, err)
	}

	for _, d := range batch.Diagnostics {
		if d.FileID == fakeID || d.FileID == 0 {
			d.FileID = realID
		}
		if _, err := insertDiagnostic(tx, &d); err != nil {
			return fmt.Errorf("commit batch: diagnostic %s in %q: %w", d.RuleID, f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	batch.File.ID = realID
	return nil
}

// --- Transaction-scoped helpers ---

func deleteFileByPathTx(tx *sql.Tx, path string) error {
	if _, err := tx.Exec("DELETE FROM diagnostics WHERE file_id IN (SELECT id FROM files WHERE path = ?)", path); err != nil {
		return fmt.Errorf("delete diagnostics: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

func insertFileTx(tx *sql.Tx, f *File) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO files (path, language, hash, ruleset_hash, line_count, last_analyzed) VALUES (?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.RulesetHash, f.LineCount, f.LastAnalyzed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
