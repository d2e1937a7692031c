package store

import "time"

// File is an analysed source file. Hash is the content hash and
// RulesetHash identifies the rules and configuration it was analysed with;
// a file whose two hashes are unchanged need not be analysed again.
type File struct {
	ID           int64
	Path         string
	Language     string
	Hash         string
	RulesetHash  string
	LineCount    int
	LastAnalyzed time.Time
}

// Diagnostic is a persisted diagnostic. Lines and columns are zero-based;
// offsets are bytes.
type Diagnostic struct {
	ID          int64
	FileID      int64
	RuleID      string
	Severity    string
	Message     string
	Args        []string
	StartOffset int
	EndOffset   int
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
}

// RuleCount is the number of diagnostics one rule reported at one severity.
type RuleCount struct {
	RuleID   string
	Severity string
	Count    int
}
