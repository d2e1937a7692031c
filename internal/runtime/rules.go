package runtime

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/host/tsitter"
)

// ManifestPath is where the rule manifest lives in a scripts tree.
const ManifestPath = "rules/manifest.yaml"

// ErrInvalidManifest classifies a manifest entry that cannot become a rule.
var ErrInvalidManifest = errors.New("runtime: invalid rule manifest")

// ScriptSpec is one manifest entry: the rule's descriptor and its script,
// relative to the manifest.
type ScriptSpec struct {
	diag.Descriptor `yaml:",inline"`
	Script          string `yaml:"script"`
}

// Manifest lists the scripted rules.
type Manifest struct {
	Rules []ScriptSpec `yaml:"rules"`
}

// HasManifest reports whether the scripts tree has a rule manifest.
func (r *Runtime) HasManifest() bool {
	_, err := r.readFile(ManifestPath)
	return err == nil
}

// LoadManifest reads and validates the manifest at p.
func (r *Runtime) LoadManifest(p string) (*Manifest, error) {
	data, err := r.readFile(p)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("runtime: parsing %s: %w", p, err)
	}
	for i, s := range m.Rules {
		switch {
		case s.ID == "":
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidManifest, i)
		case s.Script == "":
			return nil, fmt.Errorf("%w: %s has no script", ErrInvalidManifest, s.ID)
		case s.MessageFormat == "":
			m.Rules[i].MessageFormat = s.Title
		}
	}
	return &m, nil
}

// LoadRules loads every rule the manifest at p lists. Scripts are read
// once, here.
func (r *Runtime) LoadRules(p string) ([]*ScriptRule, error) {
	m, err := r.LoadManifest(p)
	if err != nil {
		return nil, err
	}
	dir := path.Dir(strings.TrimPrefix(p, "/"))
	out := make([]*ScriptRule, 0, len(m.Rules))
	for _, s := range m.Rules {
		scriptPath := path.Join(dir, s.Script)
		src, err := r.LoadScript(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("runtime: rule %s: %w", s.ID, err)
		}
		out = append(out, &ScriptRule{rt: r, desc: s.Descriptor, path: scriptPath, src: src})
	}
	return out, nil
}

// ScriptRule is an analyzer rule backed by a Risor script. The script runs
// once per document as a syntax tree action with these globals besides the
// host functions:
//
//	root       the tree-sitter root node
//	file_path  the document path
//	file_name  the base name without extension or generic arity suffix
//	options    the rule's configured options
//	report     report(node, args...) reports the rule's diagnostic
//
// A script error is raised as a rule fault.
type ScriptRule struct {
	rt   *Runtime
	desc diag.Descriptor
	path string
	src  string
}

var _ analyzer.Rule = (*ScriptRule)(nil)

// Path returns the script's path within the scripts tree.
func (s *ScriptRule) Path() string { return s.path }

// Source returns the script text.
func (s *ScriptRule) Source() string { return s.src }

func (s *ScriptRule) Descriptors() []diag.Descriptor { return []diag.Descriptor{s.desc} }

func (s *ScriptRule) Initialize(ctx *analyzer.Context) {
	options := ctx.Config().Options(s.desc.ID)
	ctx.RegisterSyntaxTreeAction(func(tc *analyzer.TreeContext) {
		if err := s.run(tc, options); err != nil {
			panic(err)
		}
	})
}

func (s *ScriptRule) run(tc *analyzer.TreeContext, options map[string]any) error {
	tree, ok := tc.Tree().(*tsitter.Tree)
	if !ok {
		s.rt.logger.Debug("scripted rule needs a tree-sitter tree", "rule", s.desc.ID, "path", tc.Path())
		return nil
	}
	lang, ok := tree.Language().(*tsitter.Language)
	if !ok {
		return nil
	}
	raw := tree.Unwrap()
	s.rt.sources.store(raw, tc.Source(), lang.Unwrap())
	defer s.rt.sources.release(raw)

	report := makeReportFn(func(span host.Span, args []any) {
		tc.ReportSpan(s.desc, span, args...)
	})
	return s.rt.eval(tc.Context(), s.src, s.path, map[string]any{
		"root":      mustProxy(raw.RootNode()),
		"file_path": tc.Path(),
		"file_name": FileStem(tc.Path()),
		"options":   options,
		"report":    report,
	})
}

// FileStem returns the base name of p without its extension and without a
// generic arity suffix, so Foo{T}.cs and Foo`1.cs both give Foo.
func FileStem(p string) string {
	if p == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if i := strings.IndexAny(base, "{`"); i > 0 {
		base = base[:i]
	}
	return base
}
