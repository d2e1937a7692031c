package sharplint

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/store"
)

// QueryBuilder provides read access to persisted analysis results.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder creates a QueryBuilder over an existing store, for callers
// that only read results.
func NewQueryBuilder(s *store.Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// --- Common Types ---

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByPosition SortField = "position"
	SortByFile     SortField = "file"
	SortByRule     SortField = "rule"
	SortBySeverity SortField = "severity"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// DiagnosticResult is a stored diagnostic with the path of its file.
type DiagnosticResult struct {
	store.Diagnostic
	FilePath string
}

// DiagnosticFilter specifies which diagnostics to include. All fields are
// optional.
type DiagnosticFilter struct {
	RuleIDs     []string       // match any of these rule ids
	MinSeverity *diag.Severity // at least this severity
	FileID      *int64         // restrict to a single file
	PathPrefix  *string        // restrict to files under this path
}

// --- Internal Helpers ---

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "src/Shop" -> "src/Shop/" to prevent matching "src/ShopTests/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// severityRank orders severity names the way diag.Severity does.
const severityRank = `CASE d.severity WHEN 'error' THEN 3 WHEN 'warning' THEN 2 WHEN 'info' THEN 1 ELSE 0 END`

// diagnosticSortColumns returns the SQL ORDER BY expression for diagnostic
// queries. Position order breaks every tie; unknown fields sort by position.
func diagnosticSortColumns(s Sort) string {
	dir := sortDirection(s.Order)
	pos := "f.path, d.start_offset, d.rule_id"
	switch s.Field {
	case SortByFile:
		return "f.path " + dir + ", d.start_offset, d.rule_id"
	case SortByRule:
		return "d.rule_id " + dir + ", " + pos
	case SortBySeverity:
		return severityRank + " " + dir + ", " + pos
	default:
		return "f.path " + dir + ", d.start_offset " + dir + ", d.rule_id"
	}
}

// sortDirection returns "ASC" or "DESC".
func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// diagnosticSelect selects the store's diagnostic columns followed by the
// file path.
const diagnosticSelect = `SELECT d.id, d.file_id, d.rule_id, d.severity, d.message, d.args,
	d.start_offset, d.end_offset, d.start_line, d.start_col, d.end_line, d.end_col, f.path
 FROM diagnostics d JOIN files f ON d.file_id = f.id `

type scanner interface {
	Scan(dest ...any) error
}

// withPath appends the trailing file path column to a diagnostic scan.
type withPath struct {
	row  scanner
	path *string
}

func (w withPath) Scan(dest ...any) error {
	return w.row.Scan(append(dest, w.path)...)
}

func scanDiagnosticResult(row scanner) (DiagnosticResult, error) {
	var dr DiagnosticResult
	d, err := store.ScanDiagnosticRow(withPath{row: row, path: &dr.FilePath})
	if err != nil {
		return dr, err
	}
	dr.Diagnostic = *d
	return dr, nil
}

func (q *QueryBuilder) queryDiagnosticResults(query string, args ...any) ([]DiagnosticResult, error) {
	rows, err := q.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []DiagnosticResult{}
	for rows.Next() {
		dr, err := scanDiagnosticResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		items = append(items, dr)
	}
	return items, rows.Err()
}

// --- Endpoints ---

// Diagnostics is the primary listing/filtering endpoint.
func (q *QueryBuilder) Diagnostics(filter DiagnosticFilter, sort Sort, page Pagination) (*PagedResult[DiagnosticResult], error) {
	page = page.normalize()

	var where []string
	var args []any

	if len(filter.RuleIDs) > 0 {
		placeholders := strings.Repeat("?,", len(filter.RuleIDs)-1) + "?"
		where = append(where, "d.rule_id IN ("+placeholders+")")
		for _, id := range filter.RuleIDs {
			args = append(args, id)
		}
	}
	if filter.MinSeverity != nil {
		var names []string
		for s := *filter.MinSeverity; s <= diag.SeverityError; s++ {
			names = append(names, s.String())
		}
		if len(names) == 0 {
			return &PagedResult[DiagnosticResult]{Items: []DiagnosticResult{}}, nil
		}
		where = append(where, "d.severity IN ("+strings.Repeat("?,", len(names)-1)+"?)")
		for _, n := range names {
			args = append(args, n)
		}
	}
	if filter.FileID != nil {
		where = append(where, "d.file_id = ?")
		args = append(args, *filter.FileID)
	}
	if filter.PathPrefix != nil {
		prefix := normalizePathPrefix(*filter.PathPrefix)
		if prefix != "" {
			where = append(where, "f.path LIKE ? ESCAPE '\\'")
			args = append(args, escapeLike(prefix)+"%")
		}
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	// Count query
	countSQL := `SELECT COUNT(*) FROM diagnostics d JOIN files f ON d.file_id = f.id ` + whereClause
	var totalCount int
	if err := q.store.DB().QueryRow(countSQL, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("diagnostics: count: %w", err)
	}

	dataSQL := fmt.Sprintf("%s%s ORDER BY %s LIMIT ? OFFSET ?",
		diagnosticSelect, whereClause, diagnosticSortColumns(sort))
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	items, err := q.queryDiagnosticResults(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	return &PagedResult[DiagnosticResult]{Items: items, TotalCount: totalCount}, nil
}

// DiagnosticsAt returns the diagnostics of file whose range contains the
// zero-based position (line, col), narrowest first.
func (q *QueryBuilder) DiagnosticsAt(file string, line, col int) ([]DiagnosticResult, error) {
	items, err := q.queryDiagnosticResults(
		diagnosticSelect+
			`WHERE f.path = ? AND d.start_line <= ? AND d.end_line >= ?
			   AND (d.start_line < ? OR (d.start_line = ? AND d.start_col <= ?))
			   AND (d.end_line > ? OR (d.end_line = ? AND d.end_col >= ?))
			 ORDER BY (d.end_offset - d.start_offset), d.start_offset, d.rule_id`,
		file, line, line,
		line, line, col,
		line, line, col,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics at: %w", err)
	}
	return items, nil
}

// File returns the stored file at path, or nil when it has not been
// analysed.
func (q *QueryBuilder) File(path string) (*store.File, error) {
	return q.store.FileByPath(path)
}

// Files lists analysed files, optionally restricted to a path prefix.
func (q *QueryBuilder) Files(pathPrefix string, sort Sort, page Pagination) (*PagedResult[store.File], error) {
	page = page.normalize()

	var where string
	var args []any
	if pathPrefix != "" {
		where = `WHERE path LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(normalizePathPrefix(pathPrefix))+"%")
	}

	var totalCount int
	if err := q.store.DB().QueryRow("SELECT COUNT(*) FROM files "+where, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("files: count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT id, path, language, COALESCE(hash, ''), COALESCE(ruleset_hash, ''), COALESCE(line_count, 0), last_analyzed
		 FROM files %s ORDER BY path %s LIMIT ? OFFSET ?`,
		where, sortDirection(sort.Order),
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := q.store.DB().Query(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("files: query: %w", err)
	}
	defer rows.Close()

	items := []store.File{}
	for rows.Next() {
		var f store.File
		var analyzed sql.NullTime
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.RulesetHash, &f.LineCount, &analyzed); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		f.LastAnalyzed = analyzed.Time
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}
	return &PagedResult[store.File]{Items: items, TotalCount: totalCount}, nil
}

// Summary is an overview of the persisted results.
type Summary struct {
	FileCount       int
	DiagnosticCount int
	BySeverity      map[string]int
	Rules           []RuleCount // most frequent first
}

// Summary returns counts over every analysed file.
func (q *QueryBuilder) Summary() (*Summary, error) {
	s := &Summary{BySeverity: make(map[string]int)}
	if err := q.store.DB().QueryRow(`SELECT COUNT(*) FROM files`).Scan(&s.FileCount); err != nil {
		return nil, fmt.Errorf("summary: files: %w", err)
	}
	counts, err := q.store.RuleCounts()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	s.Rules = counts
	if s.Rules == nil {
		s.Rules = []RuleCount{}
	}
	for _, rc := range counts {
		s.DiagnosticCount += rc.Count
		s.BySeverity[rc.Severity] += rc.Count
	}
	return s, nil
}

// MaxSeverity returns the highest severity among stored diagnostics, or
// false when there are none.
func (s *Summary) MaxSeverity() (diag.Severity, bool) {
	found := false
	var m diag.Severity
	for name := range s.BySeverity {
		sev, err := diag.ParseSeverity(name)
		if err != nil {
			continue
		}
		if !found || sev > m {
			m, found = sev, true
		}
	}
	return m, found
}
