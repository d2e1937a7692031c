package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/sharplint"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/store"
)

var (
	flagLimit  int
	flagOffset int
	flagSort   string
	flagOrder  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query recorded diagnostics",
	Long:  "Run queries against the results of earlier analyze runs. All line and column numbers are 0-based.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	queryCmd.PersistentFlags().StringVar(&flagSort, "sort", "", "sort field: position|file|rule|severity")
	queryCmd.PersistentFlags().StringVar(&flagOrder, "order", "asc", "sort order: asc|desc")

	queryCmd.AddCommand(diagnosticsCmd)
	queryCmd.AddCommand(diagnosticsAtCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(summaryCmd)
}

// --- Helpers ---

// openQuery opens the database from the --db flag path (or default) and
// returns a QueryBuilder over it. The caller closes the store.
func openQuery() (*sharplint.QueryBuilder, *store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("database not found: %s (run 'sharplint analyze' first)", dbPath)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return sharplint.NewQueryBuilder(s), s, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// buildPagination creates a Pagination from CLI flags.
func buildPagination() sharplint.Pagination {
	return sharplint.Pagination{
		Limit:  flagLimit,
		Offset: flagOffset,
	}
}

// buildSort creates a Sort from CLI flags.
func buildSort() sharplint.Sort {
	var field sharplint.SortField
	switch flagSort {
	case "file":
		field = sharplint.SortByFile
	case "rule":
		field = sharplint.SortByRule
	case "severity":
		field = sharplint.SortBySeverity
	default:
		field = sharplint.SortByPosition
	}

	var order sharplint.SortOrder
	switch flagOrder {
	case "desc":
		order = sharplint.Desc
	default:
		order = sharplint.Asc
	}

	return sharplint.Sort{Field: field, Order: order}
}

// --- diagnostics ---

var (
	flagQueryRules    string
	flagQuerySeverity string
	flagQueryPath     string
	flagQueryFile     string
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "List diagnostics with filters",
	Args:  cobra.NoArgs,
	RunE:  runDiagnostics,
}

func init() {
	diagnosticsCmd.Flags().StringVar(&flagQueryRules, "rule", "", "comma-separated rule ids")
	diagnosticsCmd.Flags().StringVar(&flagQuerySeverity, "min-severity", "", "lowest severity: hidden|info|warning|error")
	diagnosticsCmd.Flags().StringVar(&flagQueryPath, "path", "", "restrict to files under this directory")
	diagnosticsCmd.Flags().StringVar(&flagQueryFile, "file", "", "restrict to one file")
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	q, s, err := openQuery()
	if err != nil {
		return outputError("diagnostics", err)
	}
	defer s.Close()

	filter := sharplint.DiagnosticFilter{RuleIDs: splitList(flagQueryRules)}
	if flagQuerySeverity != "" {
		sev, err := diag.ParseSeverity(flagQuerySeverity)
		if err != nil {
			return outputError("diagnostics", err)
		}
		filter.MinSeverity = &sev
	}
	if flagQueryPath != "" {
		prefix, err := resolveFilePath(flagQueryPath)
		if err != nil {
			return outputError("diagnostics", err)
		}
		filter.PathPrefix = &prefix
	}
	if flagQueryFile != "" {
		path, err := resolveFilePath(flagQueryFile)
		if err != nil {
			return outputError("diagnostics", err)
		}
		f, err := q.File(path)
		if err != nil {
			return outputError("diagnostics", err)
		}
		if f == nil {
			return outputError("diagnostics", fmt.Errorf("file not analysed: %s", path))
		}
		filter.FileID = &f.ID
	}

	res, err := q.Diagnostics(filter, buildSort(), buildPagination())
	if err != nil {
		return outputError("diagnostics", err)
	}
	out := make([]CLIDiagnostic, 0, len(res.Items))
	for _, d := range res.Items {
		out = append(out, diagnosticToCLI(d))
	}
	return outputResult(CLIResult{Command: "diagnostics", Results: out, TotalCount: &res.TotalCount})
}

// --- at ---

var diagnosticsAtCmd = &cobra.Command{
	Use:   "at <file> <line> <col>",
	Short: "List the diagnostics covering a position, narrowest first",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return outputError("at", err)
		}
		line, err := parseIntArg(args[1], "line")
		if err != nil {
			return outputError("at", err)
		}
		col, err := parseIntArg(args[2], "col")
		if err != nil {
			return outputError("at", err)
		}

		q, s, err := openQuery()
		if err != nil {
			return outputError("at", err)
		}
		defer s.Close()

		items, err := q.DiagnosticsAt(file, line, col)
		if err != nil {
			return outputError("at", err)
		}
		out := make([]CLIDiagnostic, 0, len(items))
		for _, d := range items {
			out = append(out, diagnosticToCLI(d))
		}
		return outputResult(CLIResult{Command: "at", Results: out})
	},
}

// --- files ---

var filesCmd = &cobra.Command{
	Use:   "files [prefix]",
	Short: "List analysed files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var prefix string
		if len(args) > 0 {
			p, err := resolveFilePath(args[0])
			if err != nil {
				return outputError("files", err)
			}
			prefix = p
		}

		q, s, err := openQuery()
		if err != nil {
			return outputError("files", err)
		}
		defer s.Close()

		res, err := q.Files(prefix, buildSort(), buildPagination())
		if err != nil {
			return outputError("files", err)
		}
		out := make([]CLIFile, 0, len(res.Items))
		for _, f := range res.Items {
			out = append(out, fileToCLI(f))
		}
		return outputResult(CLIResult{Command: "files", Results: out, TotalCount: &res.TotalCount})
	},
}

// --- summary ---

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Counts of files and diagnostics by severity and rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, s, err := openQuery()
		if err != nil {
			return outputError("summary", err)
		}
		defer s.Close()

		sum, err := q.Summary()
		if err != nil {
			return outputError("summary", err)
		}
		return outputResult(CLIResult{Command: "summary", Results: summaryToCLI(sum)})
	},
}
