package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/sharplint"
	"github.com/jward/sharplint/internal/diag"
)

var flagMinSeverity string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyse C# files and record their diagnostics",
	Long: `Runs every enabled rule over the C# files under path (or the single file
named by path) and writes the diagnostics to the database. Files unchanged
since their last analysis under the same ruleset are skipped.

Text output positions are 1-based; JSON positions are 0-based like query.
The command exits with status 1 when an error-severity diagnostic exists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&flagMinSeverity, "min-severity", "info", "lowest severity to print: hidden|info|warning|error")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()

	t, err := resolveTarget(args)
	if err != nil {
		return outputError("analyze", err)
	}
	minSev, err := diag.ParseSeverity(flagMinSeverity)
	if err != nil {
		return outputError("analyze", err)
	}

	engine, dbPath, err := openEngine(t.dir())
	if err != nil {
		return outputError("analyze", err)
	}
	defer engine.Close()

	if engine.RulesetChanged() {
		fmt.Fprintln(os.Stderr, "Ruleset changed since the last run; every file is analysed again")
	}

	ctx := cmd.Context()
	var rep *sharplint.Report
	if t.isDir {
		rep, err = engine.AnalyzeDirectory(ctx, t.path)
	} else {
		rep, err = engine.AnalyzeFiles(ctx, []string{t.path})
	}
	if err != nil {
		return outputError("analyze", fmt.Errorf("analyzing: %w", err))
	}

	stored, err := storedDiagnostics(engine.Query(), t, nil)
	if err != nil {
		return outputError("analyze", err)
	}

	out := CLIAnalyzeReport{
		Analyzed:    rep.Analyzed,
		Unchanged:   rep.Unchanged,
		Excluded:    rep.Excluded,
		Pruned:      rep.Pruned,
		Diagnostics: []CLIDiagnostic{},
	}
	failed := false
	for _, d := range stored {
		sev, err := diag.ParseSeverity(d.Severity)
		if err != nil {
			continue
		}
		failed = failed || sev == diag.SeverityError
		if sev >= minSev {
			out.Diagnostics = append(out.Diagnostics, diagnosticToCLI(d))
		}
	}
	for _, d := range rep.Diagnostics {
		if d.Path != "" {
			continue
		}
		failed = failed || d.Severity == diag.SeverityError
		if d.Severity >= minSev {
			out.Diagnostics = append(out.Diagnostics, reportedToCLI(d))
		}
	}

	if err := outputResult(CLIResult{Command: "analyze", Results: out}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Analysed %s in %s (%d analysed, %d unchanged, %d excluded, %d pruned)\n",
		t.path, time.Since(start).Round(time.Millisecond),
		rep.Analyzed, rep.Unchanged, rep.Excluded, rep.Pruned)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	if failed {
		return errFindings
	}
	return nil
}

// storedDiagnostics pages through every stored diagnostic under t, or of the
// file t names, restricted to ruleIDs when given.
func storedDiagnostics(q *sharplint.QueryBuilder, t target, ruleIDs []string) ([]sharplint.DiagnosticResult, error) {
	filter := sharplint.DiagnosticFilter{RuleIDs: ruleIDs}
	if t.isDir {
		filter.PathPrefix = &t.path
	} else {
		f, err := q.File(t.path)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, nil
		}
		filter.FileID = &f.ID
	}

	var all []sharplint.DiagnosticResult
	page := sharplint.Pagination{Limit: 500}
	for {
		res, err := q.Diagnostics(filter, sharplint.Sort{}, page)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		page.Offset += len(res.Items)
		if len(res.Items) == 0 || page.Offset >= res.TotalCount {
			return all, nil
		}
	}
}

var (
	flagFixRules string
	flagDryRun   bool
)

var fixCmd = &cobra.Command{
	Use:   "fix [path]",
	Short: "Apply code fixes in place",
	Long: `Computes the code fixes for the diagnostics under path and applies them
file by file. Fixes whose edits overlap an earlier fix in the same file are
skipped. Changed files are analysed again so the database stays current.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringVar(&flagFixRules, "rules", "", "comma-separated rule ids to fix (default: every fixable rule)")
	fixCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "report what would change without writing files")
}

func runFix(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(args)
	if err != nil {
		return outputError("fix", err)
	}

	engine, _, err := openEngine(t.dir())
	if err != nil {
		return outputError("fix", err)
	}
	defer engine.Close()

	ids := splitList(flagFixRules)
	ctx := cmd.Context()
	var outcomes []sharplint.FixOutcome
	if t.isDir {
		outcomes, err = engine.FixDirectory(ctx, t.path, flagDryRun, ids...)
	} else {
		outcomes, err = engine.FixFiles(ctx, []string{t.path}, flagDryRun, ids...)
	}
	if err != nil {
		return outputError("fix", fmt.Errorf("fixing: %w", err))
	}

	results := []CLIFixOutcome{}
	for _, o := range outcomes {
		if o.Applied == 0 && o.Skipped == 0 {
			continue
		}
		results = append(results, CLIFixOutcome{
			Path:    o.Path,
			Applied: o.Applied,
			Skipped: o.Skipped,
			Written: o.Changed && !flagDryRun,
		})
	}
	return outputResult(CLIResult{Command: "fix", Results: results})
}
