package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	hiddenColor  = color.New(color.Faint)
	pathColor    = color.New(color.Bold)
)

// severityText colours a severity name.
func severityText(sev string) string {
	switch sev {
	case "error":
		return errorColor.Sprint(sev)
	case "warning":
		return warningColor.Sprint(sev)
	case "info":
		return infoColor.Sprint(sev)
	default:
		return hiddenColor.Sprint(sev)
	}
}

// formatDiagnosticsText writes one "file:line:col: severity RULE: message"
// line per diagnostic. base is added to lines and columns.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic, base int) {
	for _, d := range diags {
		loc := d.File
		if loc == "" {
			loc = "<compilation>"
		} else {
			loc = fmt.Sprintf("%s:%d:%d", displayPath(d.File), d.StartLine+base, d.StartCol+base)
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", pathColor.Sprint(loc), severityText(d.Severity), d.RuleID, d.Message)
	}
}

// displayPath shortens path relative to the working directory when it lies
// beneath it.
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, ok := strings.CutPrefix(path, cwd+string(os.PathSeparator)); ok {
		return rel
	}
	return path
}

// formatAnalyzeText writes the diagnostics of a run followed by a count.
func formatAnalyzeText(w io.Writer, rep CLIAnalyzeReport) {
	formatDiagnosticsText(w, rep.Diagnostics, 1)
	if len(rep.Diagnostics) == 0 {
		fmt.Fprintln(w, "No diagnostics")
		return
	}
	counts := make(map[string]int)
	for _, d := range rep.Diagnostics {
		counts[d.Severity]++
	}
	var parts []string
	for _, sev := range []string{"error", "warning", "info", "hidden"} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, severityText(sev)))
		}
	}
	fmt.Fprintf(w, "\n%d diagnostics (%s)\n", len(rep.Diagnostics), strings.Join(parts, ", "))
}

// formatFixText formats CLIFixOutcome results as aligned columns.
func formatFixText(w io.Writer, outcomes []CLIFixOutcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "Nothing to fix")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tAPPLIED\tSKIPPED\tWRITTEN")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%t\n", displayPath(o.Path), o.Applied, o.Skipped, o.Written)
	}
	tw.Flush()
}

// formatRulesText formats CLIRule results as aligned columns.
func formatRulesText(w io.Writer, rules []CLIRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tENABLED\tSOURCE\tFIX\tTITLE")
	for _, r := range rules {
		source := "builtin"
		if r.Scripted {
			source = "script"
		}
		fix := ""
		if r.Fixable {
			fix = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n", r.ID, r.Severity, r.Enabled, source, fix, r.Title)
	}
	tw.Flush()
}

// formatProfileText writes each shape with the host kinds implementing it.
func formatProfileText(w io.Writer, p CLIProfile) {
	fmt.Fprintf(w, "Language: %s\n", p.Language)
	fmt.Fprintf(w, "Fingerprint: %s\n", p.Fingerprint)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHAPE\tPARENT\tKINDS")
	for _, s := range p.Shapes {
		kinds := strings.Join(s.Kinds, ",")
		if !s.Present {
			kinds = hiddenColor.Sprint("absent")
		} else if kinds == "" {
			kinds = "(via specialisations)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Parent, kinds)
	}
	tw.Flush()

	if len(p.Absent) > 0 {
		fmt.Fprintf(w, "\nAbsent: %s\n", strings.Join(p.Absent, ", "))
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLINES\tANALYZED")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", f.ID, f.Path, f.LineCount, f.LastAnalyzed)
	}
	tw.Flush()
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, "=======")
	fmt.Fprintf(w, "Files: %d\n", s.FileCount)
	fmt.Fprintf(w, "Diagnostics: %d\n", s.DiagnosticCount)

	if len(s.BySeverity) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By Severity:")
		sevs := make([]string, 0, len(s.BySeverity))
		for sev := range s.BySeverity {
			sevs = append(sevs, sev)
		}
		sort.Strings(sevs)
		for _, sev := range sevs {
			fmt.Fprintf(w, "  %s: %d\n", severityText(sev), s.BySeverity[sev])
		}
	}

	if len(s.Rules) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By Rule:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, rc := range s.Rules {
			fmt.Fprintf(tw, "  %s\t%s\t%d\n", rc.RuleID, rc.Severity, rc.Count)
		}
		tw.Flush()
	}
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(stdout, result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIAnalyzeReport:
		formatAnalyzeText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v, 0)
	case []CLIFixOutcome:
		formatFixText(w, v)
	case []CLIRule:
		formatRulesText(w, v)
	case CLIProfile:
		formatProfileText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	// Pagination footer.
	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIDiagnostic:
		return len(r)
	case []CLIFixOutcome:
		return len(r)
	case []CLIRule:
		return len(r)
	case []CLIFile:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
