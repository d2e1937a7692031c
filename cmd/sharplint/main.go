package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jward/sharplint"
	"github.com/jward/sharplint/internal/config"
	"github.com/jward/sharplint/scripts"
)

var (
	flagDB         string
	flagFormat     string
	flagConfig     string
	flagScriptsDir string
	flagNoColor    bool
	flagVerbose    bool
)

// stdout is where results go; tests replace it.
var stdout io.Writer = os.Stdout

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// errFindings makes the process exit non-zero without printing anything
// further: the diagnostics have already been written.
var errFindings = errors.New("error-severity diagnostics reported")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled && !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "sharplint",
	Short:         "Style rules for C# sources",
	Long:          "Sharplint parses C# with tree-sitter, runs built-in and Risor-scripted style rules, and records diagnostics in a SQLite database for querying and fixing.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagNoColor {
			color.NoColor = true
		}
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .sharplint/results.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "ruleset file (default: "+config.DefaultFile+" at the repo root)")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "load rule scripts from disk path instead of embedded")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable coloured output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log engine activity to stderr")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(queryCmd)
}

// target is a resolved command argument: a directory to walk or a single
// file.
type target struct {
	path  string
	isDir bool
}

// resolveTarget returns the absolute path named by the first argument, or
// the working directory when there is none.
func resolveTarget(args []string) (target, error) {
	p := "."
	if len(args) > 0 {
		p = args[0]
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return target{}, fmt.Errorf("resolving path %q: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return target{}, fmt.Errorf("path not found: %s", abs)
	}
	return target{path: abs, isDir: info.IsDir()}, nil
}

// dir returns the directory the target lives in.
func (t target) dir() string {
	if t.isDir {
		return t.path
	}
	return filepath.Dir(t.path)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".sharplint", "results.db")
}

// loadConfig reads the --config file, or the default ruleset file at the
// repo root when the flag is unset.
func loadConfig(repoRoot string) (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.LoadDir(repoRoot)
}

// newLogger logs to stderr: warnings only, or everything with --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openEngine builds an engine for the repository containing dir, creating
// the database directory when needed.
func openEngine(dir string) (*sharplint.Engine, string, error) {
	repoRoot := findRepoRoot(dir)
	dbPath := resolveDBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, "", err
	}
	opts := []sharplint.Option{
		sharplint.WithConfig(cfg),
		sharplint.WithLogger(newLogger()),
	}

	// Script source: --scripts-dir overrides embedded FS.
	scriptsDir := flagScriptsDir
	if scriptsDir == "" {
		opts = append(opts, sharplint.WithScriptsFS(scripts.FS))
	}

	engine, err := sharplint.New(dbPath, scriptsDir, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("creating engine: %w", err)
	}
	return engine, dbPath, nil
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
