package store

import (
	"database/sql"
	"fmt"
)

const fileCols = "id, path, language, COALESCE(hash, ''), COALESCE(ruleset_hash, ''), COALESCE(line_count, 0), last_analyzed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var analyzed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.RulesetHash, &f.LineCount, &analyzed); err != nil {
		return nil, err
	}
	f.LastAnalyzed = analyzed.Time
	return f, nil
}

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, ruleset_hash, line_count, last_analyzed) VALUES (?, ?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.RulesetHash, f.LineCount, f.LastAnalyzed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

// FileByPath returns the file at path, or nil when it was never analysed.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Files returns every analysed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY path", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}
