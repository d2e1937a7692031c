package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/config"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host/tsitter"
	"github.com/jward/sharplint/internal/lightup"
)

const csTestSource = `namespace Shop
{
    public class Cart
    {
        private int count;

        public void Add(int n)
        {
            count += n;
        }

        public int Total() => count;
    }

    public interface IPriced
    {
        decimal Price { get; }
    }
}
`

// parseCSharpSource parses C# source with tree-sitter directly and
// registers it in a Runtime's source store.
func parseCSharpSource(t *testing.T, src string) (*sitter.Tree, *Runtime) {
	t.Helper()

	rt := NewRuntime("")
	lang := tsitter.CSharp().Unwrap()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)

	rt.sources.store(tree, []byte(src), lang)
	return tree, rt
}

// namespaceBody returns the declaration list of the first namespace.
func namespaceBody(t *testing.T, root *sitter.Node) *sitter.Node {
	t.Helper()
	ns := root.NamedChild(0)
	require.NotNil(t, ns)
	require.Equal(t, "namespace_declaration", ns.Type())
	body := ns.ChildByFieldName("body")
	require.NotNil(t, body)
	return body
}

// --- source store ---

func TestSourceStore_NodeLookups(t *testing.T) {
	tree, rt := parseCSharpSource(t, csTestSource)
	defer tree.Close()

	body := namespaceBody(t, tree.RootNode())
	class := body.NamedChild(0)
	require.Equal(t, "class_declaration", class.Type())

	src, ok := rt.sources.sourceForNode(class)
	require.True(t, ok)
	assert.Equal(t, csTestSource, string(src))

	lang, ok := rt.sources.languageForNode(class)
	require.True(t, ok)
	assert.Equal(t, tsitter.CSharp().Unwrap(), lang)

	name := class.ChildByFieldName("name")
	require.NotNil(t, name)
	assert.Equal(t, "Cart", name.Content(src))
}

func TestSourceStore_Release(t *testing.T) {
	tree, rt := parseCSharpSource(t, csTestSource)
	defer tree.Close()

	rt.sources.release(tree)
	_, ok := rt.sources.sourceForNode(tree.RootNode())
	assert.False(t, ok)
	_, ok = rt.sources.languageForNode(tree.RootNode())
	assert.False(t, ok)
}

func TestParse_InvalidSourceStillReturnsTree(t *testing.T) {
	tree, _ := parseCSharpSource(t, "class { void ( }")
	defer tree.Close()

	root := tree.RootNode()
	require.NotNil(t, root)
	assert.True(t, root.HasError())
}

// runInline evaluates script with the host functions plus globals.
func runInline(rt *Runtime, script string, globals map[string]any) error {
	return rt.eval(context.Background(), script, "<inline>", globals)
}

// --- host functions ---

func TestEval_ParseAndNodeText(t *testing.T) {
	rt := NewRuntime("")

	script := `
tree := parse_src(source, "csharp")
root := tree.RootNode()
assert(root.Type() == "compilation_unit", 'expected compilation_unit, got {root.Type()}')

ns := root.NamedChild(0)
body := node_child(ns, "body")
names := []
count := int(body.NamedChildCount())
for i := 0; i < count; i++ {
    child := body.NamedChild(i)
    names.append(node_text(node_child(child, "name")))
}

assert(len(names) == 2, 'expected 2 types, got {len(names)}')
assert(names[0] == "Cart", 'expected Cart, got {names[0]}')
assert(names[1] == "IPriced", 'expected IPriced, got {names[1]}')
`
	err := runInline(rt, script, map[string]any{"source": csTestSource})
	require.NoError(t, err)
}

func TestEval_ParseUnsupportedLanguage(t *testing.T) {
	rt := NewRuntime("")

	err := runInline(rt, `parse_src("x", "cobol")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestEval_QueryHostFunction(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(source, "csharp").RootNode()

matches := query("(method_declaration name: (identifier) @name)", root)
assert(len(matches) == 2, 'expected 2 matches, got {len(matches)}')
assert(node_text(matches[0]["name"]) == "Add", "expected Add")
assert(node_text(matches[1]["name"]) == "Total", "expected Total")
`
	err := runInline(rt, script, map[string]any{"source": csTestSource})
	require.NoError(t, err)
}

func TestEval_QueryCaptureNamesAsKeys(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(source, "csharp").RootNode()

matches := query("(field_declaration (variable_declaration (variable_declarator) @decl)) @field", root)
assert(len(matches) == 1, 'expected 1 match, got {len(matches)}')
m := matches[0]
assert(m["field"].Type() == "field_declaration", "expected field capture")
assert(m["decl"].Type() == "variable_declarator", "expected decl capture")
`
	err := runInline(rt, script, map[string]any{"source": csTestSource})
	require.NoError(t, err)
}

func TestEval_QueryNoMatches(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("class A { }", "csharp").RootNode()
matches := query("(method_declaration name: (identifier) @name)", root)
assert(len(matches) == 0, 'expected 0 matches, got {len(matches)}')
`
	err := runInline(rt, script, nil)
	require.NoError(t, err)
}

func TestEval_QueryInvalidPattern(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("class A { }", "csharp").RootNode()
query("(not_a_real_node_type @x)", root)
`
	err := runInline(rt, script, nil)
	require.Error(t, err)
}

func TestEval_NodeChildMissingField(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("class A { }", "csharp").RootNode()
assert(node_child(root, "name") == nil, "compilation unit has no name")
`
	err := runInline(rt, script, nil)
	require.NoError(t, err)
}

func TestEval_NodeTraversal(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(source, "csharp").RootNode()
assert(root.ChildCount() > 0, "root should have children")

first := root.NamedChild(0)
parent := first.Parent()
assert(parent.Type() == "compilation_unit", "parent should be compilation_unit")

sp := first.StartPoint()
assert(int(sp.Row) == 0, 'expected row 0, got {int(sp.Row)}')
assert(int(sp.Column) == 0, 'expected col 0, got {int(sp.Column)}')
`
	err := runInline(rt, script, map[string]any{"source": csTestSource})
	require.NoError(t, err)
}

func TestEval_LogUsesLogger(t *testing.T) {
	var buf bytes.Buffer
	rt := NewRuntime("", WithRuntimeLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	err := runInline(rt, `log.Warn("careful")`, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "careful")
	assert.Contains(t, buf.String(), "script=<inline>")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestEval_NoImport_NoRegression(t *testing.T) {
	rt := NewRuntime("")

	script := `
x := 1 + 2
assert(x == 3, 'expected 3')
`
	require.NoError(t, runInline(rt, script, nil))
}

// --- script loading ---

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"rules/check.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("rules/check.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"rules/check.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/rules/check.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.NotNil(t, rt.logger)
}

// --- importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	// FSImporter resolves "lib_helpers" as the flat path lib_helpers.risor.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, runInline(rt, script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))
	rt := NewRuntime(dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, runInline(rt, script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// The importer must know the host global names or the module fails to
	// compile.
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import helper
helper.do_log("test message")
`
	require.NoError(t, runInline(rt, script, nil))
}

// --- manifest and scripted rules ---

const testManifest = `rules:
  - id: SA9100
    title: Type name reported
    message: "Type '%s' seen"
    category: Naming
    severity: warning
    enabled: true
    script: types.risor
  - id: SA9101
    title: Option echoed
    category: Naming
    severity: info
    enabled: true
    script: options.risor
`

const typesScript = `
matches := query("(class_declaration name: (identifier) @name)", root)
for i := 0; i < len(matches); i++ {
    name := matches[i]["name"]
    report(name, node_text(name))
}
`

const optionsScript = `
if options["loud"] == true && file_name == "Cart" {
    report(root)
}
`

func manifestFS(extra map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{
		"rules/manifest.yaml": &fstest.MapFile{Data: []byte(testManifest)},
		"rules/types.risor":   &fstest.MapFile{Data: []byte(typesScript)},
		"rules/options.risor": &fstest.MapFile{Data: []byte(optionsScript)},
	}
	for name, data := range extra {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	return fsys
}

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(manifestFS(nil)))
	m, err := rt.LoadManifest(ManifestPath)
	require.NoError(t, err)
	require.Len(t, m.Rules, 2)

	assert.Equal(t, "SA9100", m.Rules[0].ID)
	assert.Equal(t, "Type '%s' seen", m.Rules[0].MessageFormat)
	assert.Equal(t, diag.SeverityWarning, m.Rules[0].DefaultSeverity)
	assert.Equal(t, "types.risor", m.Rules[0].Script)

	// A missing message falls back to the title.
	assert.Equal(t, "Option echoed", m.Rules[1].MessageFormat)
	assert.Equal(t, diag.SeverityInfo, m.Rules[1].DefaultSeverity)
}

func TestLoadManifest_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
	}{
		{"missing id", "rules:\n  - title: x\n    script: a.risor\n"},
		{"missing script", "rules:\n  - id: SA9102\n    title: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
				"m.yaml": &fstest.MapFile{Data: []byte(tt.manifest)},
			}))
			_, err := rt.LoadManifest("m.yaml")
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestLoadManifest_BadSeverity(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{
		"m.yaml": &fstest.MapFile{Data: []byte("rules:\n  - id: SA9103\n    severity: loud\n    script: a.risor\n")},
	}))
	_, err := rt.LoadManifest("m.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(manifestFS(nil)))
	rs, err := rt.LoadRules(ManifestPath)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "rules/types.risor", rs[0].Path())
	assert.Equal(t, "SA9100", rs[0].Descriptors()[0].ID)
}

func TestLoadRules_FromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for name, f := range manifestFS(nil) {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, f.Data, 0644))
	}
	rt := NewRuntime(dir)
	require.True(t, rt.HasManifest())

	rs, err := rt.LoadRules(ManifestPath)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, typesScript, rs[0].Source())

	sink := analyzeWith(t, nil, "Widget.cs", "class Widget { }\n", rs[0])
	got := sink.Rule("Widget.cs", "SA9100")
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Widget"}, got[0].Args)
}

func TestLoadRules_MissingScript(t *testing.T) {
	t.Parallel()

	fsys := manifestFS(nil)
	delete(fsys, "rules/options.risor")
	rt := NewRuntime("", WithRuntimeFS(fsys))

	_, err := rt.LoadRules(ManifestPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SA9101")
}

// analyzeWith runs rules over src saved as path.
func analyzeWith(t *testing.T, cfg *config.Config, path, src string, rules ...*ScriptRule) *diag.Collector {
	t.Helper()
	ctx := context.Background()

	p, err := lightup.Probe(tsitter.CSharp(), nil)
	require.NoError(t, err)
	rs := make([]analyzer.Rule, len(rules))
	for i, r := range rules {
		rs[i] = r
	}
	d, err := analyzer.NewDriver(lightup.NewRegistry(p), rs, analyzer.WithConfig(cfg))
	require.NoError(t, err)

	tree, err := tsitter.NewParser(tsitter.CSharp()).Parse(ctx, path, []byte(src))
	require.NoError(t, err)
	comp, err := d.Start(ctx)
	require.NoError(t, err)
	sink := diag.NewCollector()
	require.NoError(t, comp.Analyze(ctx, tree, sink))
	require.NoError(t, comp.End(ctx, sink))
	return sink
}

func TestScriptRule_Reports(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(manifestFS(nil)))
	rs, err := rt.LoadRules(ManifestPath)
	require.NoError(t, err)

	sink := analyzeWith(t, nil, "Cart.cs", csTestSource, rs[0])
	got := sink.Rule("Cart.cs", "SA9100")
	require.Len(t, got, 1)
	assert.Equal(t, "Type 'Cart' seen", got[0].Message)
	assert.Equal(t, []string{"Cart"}, got[0].Args)
	assert.Equal(t, uint32(2), got[0].Start.Row)
	assert.Equal(t, diag.SeverityWarning, got[0].Severity)

	rt.sources.mu.RLock()
	defer rt.sources.mu.RUnlock()
	assert.Empty(t, rt.sources.sources, "tree source must be released after the run")
}

func TestScriptRule_Options(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(manifestFS(nil)))
	rs, err := rt.LoadRules(ManifestPath)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte("rules:\n  SA9101:\n    options:\n      loud: true\n"))
	require.NoError(t, err)

	sink := analyzeWith(t, cfg, "Cart.cs", csTestSource, rs[1])
	assert.Len(t, sink.Rule("Cart.cs", "SA9101"), 1)

	sink = analyzeWith(t, cfg, "Other.cs", csTestSource, rs[1])
	assert.Empty(t, sink.Rule("Other.cs", "SA9101"))
}

func TestScriptRule_DisabledByConfig(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(manifestFS(nil)))
	rs, err := rt.LoadRules(ManifestPath)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte("rules:\n  SA9100:\n    severity: none\n"))
	require.NoError(t, err)
	d, err := analyzer.NewDriver(nil, []analyzer.Rule{rs[0]}, analyzer.WithConfig(cfg))
	require.NoError(t, err)
	assert.Empty(t, d.Rules())
}

func TestScriptRule_ErrorBecomesFault(t *testing.T) {
	t.Parallel()

	fsys := manifestFS(map[string]string{"rules/types.risor": `assert(false, "boom")`})
	rt := NewRuntime("", WithRuntimeFS(fsys))
	rs, err := rt.LoadRules(ManifestPath)
	require.NoError(t, err)

	sink := analyzeWith(t, nil, "Cart.cs", csTestSource, rs[0])
	assert.Empty(t, sink.Rule("Cart.cs", "SA9100"))
	faults := sink.Rule("Cart.cs", analyzer.FaultID)
	require.Len(t, faults, 1)
	assert.Contains(t, faults[0].Message, "SA9100")
	assert.Contains(t, faults[0].Message, "boom")
}

func TestFileStem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"Cart.cs", "Cart"},
		{"src/Shop/Cart.cs", "Cart"},
		{`src\Shop\Cart.cs`, "Cart"},
		{"Cart.Designer.cs", "Cart"},
		{"Box{T}.cs", "Box"},
		{"Box`1.cs", "Box"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileStem(tt.path), tt.path)
	}
}
