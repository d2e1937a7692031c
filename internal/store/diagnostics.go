package store

import (
	"database/sql"
	"fmt"
)

const diagnosticCols = "id, file_id, rule_id, severity, message, args, start_offset, end_offset, start_line, start_col, end_line, end_col"

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	id, err := insertDiagnostic(s.db, d)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	d.ID = id
	return id, nil
}

// execer is what *sql.DB and *sql.Tx have in common for inserts.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertDiagnostic(db execer, d *Diagnostic) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO diagnostics (file_id, rule_id, severity, message, args,
			start_offset, end_offset, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.RuleID, d.Severity, d.Message, marshalArgs(d.Args),
		d.StartOffset, d.EndOffset, d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ScanDiagnosticRow scans a row selected with the diagnostic columns in
// table order.
func ScanDiagnosticRow(scanner interface{ Scan(...any) error }) (*Diagnostic, error) {
	d := &Diagnostic{}
	var args sql.NullString
	err := scanner.Scan(&d.ID, &d.FileID, &d.RuleID, &d.Severity, &d.Message, &args,
		&d.StartOffset, &d.EndOffset, &d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol)
	if err != nil {
		return nil, err
	}
	d.Args = unmarshalArgs(args.String)
	return d, nil
}

func (s *Store) queryDiagnostics(query string, args ...any) ([]*Diagnostic, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d, err := ScanDiagnosticRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DiagnosticsByFile returns a file's diagnostics in source order.
func (s *Store) DiagnosticsByFile(fileID int64) ([]*Diagnostic, error) {
	out, err := s.queryDiagnostics(
		"SELECT "+diagnosticCols+" FROM diagnostics WHERE file_id = ? ORDER BY start_offset, rule_id", fileID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by file: %w", err)
	}
	return out, nil
}

// DiagnosticsByRule returns every diagnostic of one rule id.
func (s *Store) DiagnosticsByRule(ruleID string) ([]*Diagnostic, error) {
	out, err := s.queryDiagnostics(
		"SELECT "+diagnosticCols+" FROM diagnostics WHERE rule_id = ? ORDER BY file_id, start_offset", ruleID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by rule: %w", err)
	}
	return out, nil
}

// RuleCounts counts diagnostics per rule and severity, most frequent
// first.
func (s *Store) RuleCounts() ([]RuleCount, error) {
	rows, err := s.db.Query(
		`SELECT rule_id, severity, COUNT(*) FROM diagnostics
		 GROUP BY rule_id, severity
		 ORDER BY COUNT(*) DESC, rule_id, severity`)
	if err != nil {
		return nil, fmt.Errorf("rule counts: %w", err)
	}
	defer rows.Close()
	var out []RuleCount
	for rows.Next() {
		var rc RuleCount
		if err := rows.Scan(&rc.RuleID, &rc.Severity, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan rule count: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
