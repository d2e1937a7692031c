package sharplint

import (
	"context"
	"fmt"
	"os"
	"runtime/trace"
	"slices"

	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/host/tsitter"
	"github.com/jward/sharplint/internal/rules"
)

// FixSource analyses src and applies, as one batch, the fixes for its
// diagnostics whose rule id is in ids, or for every fixable diagnostic when
// ids is empty. Overlapping fixes are skipped, not applied.
func (e *Engine) FixSource(ctx context.Context, path string, src []byte, ids ...string) (*FixResult, error) {
	defer trace.StartRegion(ctx, "FixSource").End()

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

	diags := sink.Document(path)
	if len(ids) > 0 {
		diags = slices.DeleteFunc(diags, func(d diag.Diagnostic) bool {
			return !slices.Contains(ids, d.RuleID)
		})
	}
	doc := fix.NewDocument(tree)
	fixes := fix.Compute(doc, diags, rules.Providers(e.driver.Rules()), e.registry, e.semantic.Model(tree))
	return fix.FixAll(ctx, e.parser, doc, fixes)
}

// FixOutcome is what fixing one file did.
type FixOutcome struct {
	Path    string
	Applied int
	Skipped int
	Changed bool
}

// FixFiles fixes each supported file in place. With dryRun nothing is
// written. Files that changed are analysed again so the store reflects the
// fixed text.
func (e *Engine) FixFiles(ctx context.Context, paths []string, dryRun bool, ids ...string) ([]FixOutcome, error) {
	return e.fix(ctx, "", paths, dryRun, ids)
}

// FixDirectory fixes every C# file under root that the ruleset does not
// exclude, discovering files as AnalyzeDirectory does.
func (e *Engine) FixDirectory(ctx context.Context, root string, dryRun bool, ids ...string) ([]FixOutcome, error) {
	paths, err := e.discover(root)
	if err != nil {
		return nil, err
	}
	return e.fix(ctx, root, paths, dryRun, ids)
}

func (e *Engine) fix(ctx context.Context, root string, paths []string, dryRun bool, ids []string) ([]FixOutcome, error) {
	var out []FixOutcome
	var changed []string
	for _, path := range paths {
		if _, ok := tsitter.LanguageForFile(path); !ok || e.excluded(root, path) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return out, fmt.Errorf("fix %s: %w", path, err)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return out, fmt.Errorf("fix %s: %w", path, err)
		}
		res, err := e.FixSource(ctx, path, src, ids...)
		if err != nil {
			return out, fmt.Errorf("fix %s: %w", path, err)
		}
		for _, s := range res.Skipped {
			e.logger.Info("fix skipped", "path", path, "title", s.Fix.Title, "reason", s.Reason.String(), "err", s.Err)
		}
		out = append(out, FixOutcome{
			Path:    path,
			Applied: len(res.Applied),
			Skipped: len(res.Skipped),
			Changed: res.Changed(),
		})
		if !res.Changed() || dryRun {
			continue
		}
		if err := os.WriteFile(path, res.Document.Source(), info.Mode().Perm()); err != nil {
			return out, fmt.Errorf("fix %s: write: %w", path, err)
		}
		changed = append(changed, path)
	}

	if len(changed) > 0 {
		if _, err := e.analyze(ctx, root, changed); err != nil {
			return out, fmt.Errorf("reanalyze fixed files: %w", err)
		}
	}
	return out, nil
}
