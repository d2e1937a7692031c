package sharplint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/config"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host/tsitter"
	"github.com/jward/sharplint/internal/lightup"
	"github.com/jward/sharplint/internal/rules"
	"github.com/jward/sharplint/internal/runtime"
	"github.com/jward/sharplint/internal/semantic"
	"github.com/jward/sharplint/internal/store"
)

// rulesetKey is the metadata key of the ruleset hash of the last run.
const rulesetKey = "ruleset_hash"

// Engine orchestrates sharplint: file discovery, change detection, analysis
// with built-in and scripted rules, persistence, fixing and query access.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS
	cfg        *config.Config
	logger     *slog.Logger
	onFault    func(*analyzer.RuleCallbackFault)
	caps       semantic.Capabilities

	// builtins nil means every built-in rule.
	builtins []analyzer.Rule

	// useParallel enables the parallel analysis pipeline.
	useParallel bool

	parser      *tsitter.Parser
	semantic    *semantic.Provider
	cache       *lightup.Cache
	registry    *lightup.Registry
	driver      *analyzer.Driver
	rules       []analyzer.Rule
	scripted    map[string]bool
	scripts     map[string]string
	rulesetHash string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the built-in rules. Scripted rules are still loaded.
func WithRules(rs ...analyzer.Rule) Option {
	return func(e *Engine) {
		e.builtins = append([]analyzer.Rule{}, rs...)
	}
}

// WithConfig sets the ruleset. The default enables every rule that is
// enabled by default.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithParallel controls parallel analysis. When true (default), analysis
// runs on a worker pool with a single writer committing batches to SQLite.
// Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsFS configures the Engine to load rule scripts from the given
// filesystem instead of from the scriptsDir path on disk. This enables
// embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithLogger sets the logger for the engine, the driver and the scripts.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithFaultHandler is called for every rule callback fault.
func WithFaultHandler(fn func(*analyzer.RuleCallbackFault)) Option {
	return func(e *Engine) {
		e.onFault = fn
	}
}

// WithSemanticCapabilities restricts the operation surface the semantic
// model advertises. Rules whose shapes need the missing parts stay inert.
func WithSemanticCapabilities(caps semantic.Capabilities) Option {
	return func(e *Engine) {
		e.caps = caps
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, use scriptsDir on disk
//
// Scripted rules are loaded when the scripts tree has a rule manifest. Both
// sources may be absent, in which case only the built-in rules run.
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sharplint: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("sharplint: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		scriptsDir:  scriptsDir,
		cfg:         config.Default(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		useParallel: true,
		cache:       lightup.NewCache(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.builtins == nil {
		e.builtins = rules.All()
	}

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(scriptsDir, rtOpts...)

	if err := e.init(); err != nil {
		s.Close()
		return nil, err
	}
	return e, nil
}

// init probes the host, loads the scripted rules and builds the driver.
func (e *Engine) init() error {
	lang := tsitter.CSharp()
	e.parser = tsitter.NewParser(lang)
	e.semantic = semantic.NewProvider(e.caps)

	reg, err := e.cache.Registry(lang, e.semantic.Capabilities())
	if err != nil {
		return fmt.Errorf("sharplint: probe %s: %w", lang.Name(), err)
	}
	e.registry = reg
	e.logger.Debug("host profile", "profile", reg.Profile())

	scripted, err := e.loadScriptRules()
	if err != nil {
		return err
	}
	e.rules = slices.Concat(e.builtins, scripted)

	e.driver, err = analyzer.NewDriver(reg, e.rules,
		analyzer.WithConfig(e.cfg),
		analyzer.WithLogger(e.logger),
		analyzer.WithSemantic(e.semantic),
		analyzer.WithFaultHandler(e.onFault),
	)
	if err != nil {
		return fmt.Errorf("sharplint: %w", err)
	}

	var ids []string
	for _, r := range e.driver.Rules() {
		for _, d := range r.Descriptors() {
			ids = append(ids, d.ID)
		}
	}
	e.rulesetHash = store.ComputeRulesetHash(e.cfg.Hash(), ids, e.scripts)
	return nil
}

func (e *Engine) loadScriptRules() ([]analyzer.Rule, error) {
	e.scripted = make(map[string]bool)
	e.scripts = make(map[string]string)
	if e.scriptsFS == nil && e.scriptsDir == "" {
		return nil, nil
	}
	if !e.runtime.HasManifest() {
		e.logger.Debug("no rule manifest, scripted rules disabled", "scripts", e.scriptsDir)
		return nil, nil
	}
	srs, err := e.runtime.LoadRules(runtime.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("sharplint: load scripted rules: %w", err)
	}
	out := make([]analyzer.Rule, 0, len(srs))
	for _, sr := range srs {
		for _, d := range sr.Descriptors() {
			e.scripted[d.ID] = true
		}
		e.scripts[sr.Path()] = sr.Source()
		out = append(out, sr)
	}
	return out, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Config returns the ruleset the engine runs with.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Registry returns the wrapper registry of the host grammar.
func (e *Engine) Registry() *lightup.Registry {
	return e.registry
}

// Profile returns the capability profile of the host grammar and semantic
// model.
func (e *Engine) Profile() *Profile {
	return e.registry.Profile()
}

// RuleInfo describes one diagnostic id as the engine runs it.
type RuleInfo struct {
	Descriptor
	Enabled  bool
	Severity Severity
	Scripted bool
	Fixable  bool
}

// Rules lists every diagnostic id the engine knows, the analyzer fault
// included, sorted by id.
func (e *Engine) Rules() []RuleInfo {
	fixable := make(map[string]bool)
	for _, p := range rules.Providers(e.rules) {
		for _, id := range p.FixableIDs() {
			fixable[id] = true
		}
	}
	descs := []diag.Descriptor{analyzer.FaultDescriptor}
	for _, r := range e.rules {
		descs = append(descs, r.Descriptors()...)
	}
	out := make([]RuleInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, RuleInfo{
			Descriptor: d,
			Enabled:    e.cfg.Enabled(d),
			Severity:   e.cfg.Severity(d),
			Scripted:   e.scripted[d.ID],
			Fixable:    fixable[d.ID],
		})
	}
	slices.SortFunc(out, func(a, b RuleInfo) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// RulesetChanged reports whether the rules or configuration differ from
// what the last run used. Returns true if the DB has no stored hash (first
// run). Files are re-analysed on their own when it is true; callers only
// use it to explain a full re-analysis.
func (e *Engine) RulesetChanged() bool {
	stored, err := e.store.GetMetadata(rulesetKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.rulesetHash
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// AnalyzeSource analyses one document without touching the store. The
// result holds the document's diagnostics followed by compilation-level
// ones.
func (e *Engine) AnalyzeSource(ctx context.Context, path string, src []byte) ([]Diagnostic, error) {
	comp, err := e.driver.Start(ctx)
	if err != nil {
		return nil, err
	}
	defer comp.End(ctx, discard)

	tree, err := e.parser.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	sink := diag.NewCollector()
	if err := comp.Analyze(ctx, tree, sink); err != nil {
		return nil, err
	}
	end := diag.NewCollector()
	if err := comp.End(ctx, end); err != nil {
		return nil, err
	}
	return append(sink.Document(path), end.All()...), nil
}

var discard = diag.SinkFunc(func(diag.Diagnostic) {})

// Report summarises one analysis run.
type Report struct {
	Analyzed  int
	Unchanged int
	Excluded  int
	Pruned    int

	// Diagnostics holds what this run produced: the diagnostics of the
	// analysed files, then compilation-level ones with an empty path.
	Diagnostics []Diagnostic
}

// Max returns the highest severity in the report.
func (r *Report) Max() (Severity, bool) {
	if len(r.Diagnostics) == 0 {
		return 0, false
	}
	m := r.Diagnostics[0].Severity
	for _, d := range r.Diagnostics[1:] {
		m = max(m, d.Severity)
	}
	return m, true
}

// workItem holds everything an analysis worker needs.
type workItem struct {
	path    string
	lang    string
	content []byte
	hash    string
}

// itemResult is a worker's output: the batch to commit and the diagnostics
// it holds.
type itemResult struct {
	batch *store.BatchedStore
	diags []diag.Diagnostic
}

type prepStatus int

const (
	prepAnalyze prepStatus = iota
	prepUnsupported
	prepExcluded
	prepUnchanged
)

// AnalyzeFiles analyses the given file paths. Unsupported extensions are
// ignored and files whose content and ruleset are unchanged since their
// last analysis are skipped. When WithParallel is enabled, files are
// analysed on a worker pool with batched SQLite writes; otherwise serially.
//
// Any read, parse or store failure aborts the run.
func (e *Engine) AnalyzeFiles(ctx context.Context, paths []string) (*Report, error) {
	return e.analyze(ctx, "", paths)
}

func (e *Engine) analyze(ctx context.Context, root string, paths []string) (*Report, error) {
	rep := &Report{}
	var items []workItem
	for _, path := range paths {
		item, status, err := e.prepareFile(root, path)
		if err != nil {
			return nil, fmt.Errorf("prepare %s: %w", path, err)
		}
		switch status {
		case prepExcluded:
			rep.Excluded++
		case prepUnchanged:
			rep.Unchanged++
		case prepAnalyze:
			items = append(items, item)
		}
	}

	comp, err := e.driver.Start(ctx)
	if err != nil {
		return nil, err
	}
	defer comp.End(ctx, discard)

	if e.useParallel && len(items) > 1 {
		err = e.analyzeParallel(ctx, comp, items, rep)
	} else {
		err = e.analyzeSerial(ctx, comp, items, rep)
	}
	if err != nil {
		return nil, err
	}

	end := diag.NewCollector()
	if err := comp.End(ctx, end); err != nil {
		return nil, err
	}
	rep.Diagnostics = append(rep.Diagnostics, end.All()...)

	if err := e.store.SetMetadata(rulesetKey, e.rulesetHash); err != nil {
		return nil, fmt.Errorf("store ruleset hash: %w", err)
	}
	e.logger.Info("analysis complete",
		"analyzed", rep.Analyzed, "unchanged", rep.Unchanged, "excluded", rep.Excluded, "diagnostics", len(rep.Diagnostics))
	return rep, nil
}

func (e *Engine) analyzeSerial(ctx context.Context, comp *analyzer.Compilation, items []workItem, rep *Report) error {
	for _, item := range items {
		res, err := e.analyzeItem(ctx, comp, item)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", item.path, err)
		}
		if err := e.store.CommitBatch(res.batch); err != nil {
			return fmt.Errorf("commit %s: %w", item.path, err)
		}
		rep.Analyzed++
		rep.Diagnostics = append(rep.Diagnostics, res.diags...)
	}
	return nil
}

// prepareFile reads path and decides whether it needs analysis. Exclusion
// patterns match the path relative to root, or the path itself when root is
// empty.
func (e *Engine) prepareFile(root, path string) (workItem, prepStatus, error) {
	lang, ok := tsitter.LanguageForFile(path)
	if !ok {
		return workItem{}, prepUnsupported, nil
	}
	if e.excluded(root, path) {
		return workItem{}, prepExcluded, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, 0, fmt.Errorf("read file: %w", err)
	}
	hash := store.ComputeContentHash(content)

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, 0, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && existing.RulesetHash == e.rulesetHash {
		return workItem{}, prepUnchanged, nil
	}
	return workItem{path: path, lang: lang, content: content, hash: hash}, prepAnalyze, nil
}

func (e *Engine) excluded(root, path string) bool {
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil {
			rel = r
		}
	}
	return e.cfg.Excluded(rel)
}

// analyzeItem parses and analyses one file into a batch. It only reads
// shared state, so workers may run it concurrently.
func (e *Engine) analyzeItem(ctx context.Context, comp *analyzer.Compilation, item workItem) (itemResult, error) {
	tree, err := e.parser.Parse(ctx, item.path, item.content)
	if err != nil {
		return itemResult{}, err
	}
	sink := diag.NewCollector()
	if err := comp.Analyze(ctx, tree, sink); err != nil {
		return itemResult{}, err
	}
	diags := sink.Document(item.path)

	batch := store.NewBatchedStore(e.store)
	fileID := batch.SetFile(&store.File{
		Path:         item.path,
		Language:     item.lang,
		Hash:         item.hash,
		RulesetHash:  e.rulesetHash,
		LineCount:    bytes.Count(item.content, []byte{'\n'}) + 1,
		LastAnalyzed: time.Now(),
	})
	for _, d := range diags {
		if _, err := batch.InsertDiagnostic(storedDiagnostic(fileID, d)); err != nil {
			return itemResult{}, err
		}
	}
	return itemResult{batch: batch, diags: diags}, nil
}

func storedDiagnostic(fileID int64, d diag.Diagnostic) *store.Diagnostic {
	return &store.Diagnostic{
		FileID:      fileID,
		RuleID:      d.RuleID,
		Severity:    d.Severity.String(),
		Message:     d.Message,
		Args:        d.Args,
		StartOffset: int(d.Span.Start),
		EndOffset:   int(d.Span.End),
		StartLine:   int(d.Start.Row),
		StartCol:    int(d.Start.Column),
		EndLine:     int(d.End.Row),
		EndCol:      int(d.End.Column),
	}
}

// skipDirs lists directory names the filesystem walk never descends into.
var skipDirs = map[string]bool{
	"bin":          true,
	"obj":          true,
	"node_modules": true,
	"packages":     true,
	"TestResults":  true,
}

// AnalyzeDirectory discovers and analyses every C# file under root.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to filepath.WalkDir (skipping hidden, bin, obj and similar
// directories) if git is unavailable. Files stored under root that were not
// discovered, or are now excluded, are pruned from the store.
func (e *Engine) AnalyzeDirectory(ctx context.Context, root string) (*Report, error) {
	paths, err := e.discover(root)
	if err != nil {
		return nil, err
	}
	rep, err := e.analyze(ctx, root, paths)
	if err != nil {
		return nil, err
	}
	pruned, err := e.prune(root, paths)
	if err != nil {
		return nil, err
	}
	rep.Pruned = pruned
	return rep, nil
}

// discover lists the supported files under root.
func (e *Engine) discover(root string) ([]string, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git unavailable, walking directory", "root", root, "err", err)
		return e.walkListFiles(root)
	}
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := tsitter.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := tsitter.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// prune deletes stored files under root that are missing from seen or now
// excluded.
func (e *Engine) prune(root string, seen []string) (int, error) {
	keep := make(map[string]bool, len(seen))
	for _, p := range seen {
		if !e.excluded(root, p) {
			keep[p] = true
		}
	}
	files, err := e.store.Files()
	if err != nil {
		return 0, fmt.Errorf("list files: %w", err)
	}
	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	var stale []int64
	for _, f := range files {
		if strings.HasPrefix(f.Path, prefix) && !keep[f.Path] {
			stale = append(stale, f.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := e.store.DeleteFiles(stale); err != nil {
		return 0, fmt.Errorf("prune files: %w", err)
	}
	return len(stale), nil
}
