package main

import (
	"time"

	"github.com/jward/sharplint"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/store"
)

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIDiagnostic is a JSON-friendly diagnostic. Positions are 0-based.
type CLIDiagnostic struct {
	File      string   `json:"file"`
	RuleID    string   `json:"rule_id"`
	Severity  string   `json:"severity"`
	Message   string   `json:"message"`
	Args      []string `json:"args,omitempty"`
	StartLine int      `json:"start_line"`
	StartCol  int      `json:"start_col"`
	EndLine   int      `json:"end_line"`
	EndCol    int      `json:"end_col"`
}

// CLIAnalyzeReport is the result of an analyze run.
type CLIAnalyzeReport struct {
	Analyzed    int             `json:"analyzed"`
	Unchanged   int             `json:"unchanged"`
	Excluded    int             `json:"excluded"`
	Pruned      int             `json:"pruned"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
}

// CLIFixOutcome is what fix did to one file.
type CLIFixOutcome struct {
	Path    string `json:"path"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Written bool   `json:"written"`
}

// CLIRule is one row of the rules listing.
type CLIRule struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
	Severity string `json:"severity"`
	Scripted bool   `json:"scripted"`
	Fixable  bool   `json:"fixable"`
}

// CLIShape is one shape of a probed host.
type CLIShape struct {
	Name      string   `json:"name"`
	Parent    string   `json:"parent,omitempty"`
	Operation bool     `json:"operation"`
	Present   bool     `json:"present"`
	Kinds     []string `json:"kinds,omitempty"`
}

// CLIProfile is the probe result.
type CLIProfile struct {
	Language    string     `json:"language"`
	Fingerprint string     `json:"fingerprint"`
	Shapes      []CLIShape `json:"shapes"`
	Absent      []string   `json:"absent,omitempty"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	Language     string `json:"language"`
	LineCount    int    `json:"line_count"`
	LastAnalyzed string `json:"last_analyzed,omitempty"`
}

// CLIRuleCount is the number of diagnostics of one rule at one severity.
type CLIRuleCount struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// CLISummary is a JSON-friendly summary of the database.
type CLISummary struct {
	FileCount       int            `json:"file_count"`
	DiagnosticCount int            `json:"diagnostic_count"`
	BySeverity      map[string]int `json:"by_severity"`
	Rules           []CLIRuleCount `json:"rules"`
}

// diagnosticToCLI converts a stored diagnostic.
func diagnosticToCLI(d sharplint.DiagnosticResult) CLIDiagnostic {
	return CLIDiagnostic{
		File:      d.FilePath,
		RuleID:    d.RuleID,
		Severity:  d.Severity,
		Message:   d.Message,
		Args:      d.Args,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
	}
}

// reportedToCLI converts a diagnostic that was reported but not stored.
func reportedToCLI(d diag.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		File:      d.Path,
		RuleID:    d.RuleID,
		Severity:  d.Severity.String(),
		Message:   d.Message,
		Args:      d.Args,
		StartLine: int(d.Start.Row),
		StartCol:  int(d.Start.Column),
		EndLine:   int(d.End.Row),
		EndCol:    int(d.End.Column),
	}
}

// fileToCLI converts a stored file.
func fileToCLI(f store.File) CLIFile {
	out := CLIFile{
		ID:        f.ID,
		Path:      f.Path,
		Language:  f.Language,
		LineCount: f.LineCount,
	}
	if !f.LastAnalyzed.IsZero() {
		out.LastAnalyzed = f.LastAnalyzed.UTC().Format(time.RFC3339)
	}
	return out
}

// summaryToCLI converts a query summary.
func summaryToCLI(s *sharplint.Summary) CLISummary {
	out := CLISummary{
		FileCount:       s.FileCount,
		DiagnosticCount: s.DiagnosticCount,
		BySeverity:      s.BySeverity,
		Rules:           make([]CLIRuleCount, 0, len(s.Rules)),
	}
	for _, rc := range s.Rules {
		out.Rules = append(out.Rules, CLIRuleCount{RuleID: rc.RuleID, Severity: rc.Severity, Count: rc.Count})
	}
	return out
}
