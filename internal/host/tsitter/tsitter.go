// Package tsitter adapts github.com/smacker/go-tree-sitter grammars to the
// host interfaces. The bundled C# grammar is the production host; its symbol
// and field tables are what the capability probe reads.
package tsitter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/jward/sharplint/internal/host"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".cs":  "csharp",
	".csx": "csharp",
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// LanguageByName returns the grammar for a canonical language name.
func LanguageByName(name string) (*Language, bool) {
	switch name {
	case "csharp":
		return CSharp(), true
	}
	return nil, false
}

var (
	csharpLang     *Language
	csharpLangOnce sync.Once
)

// CSharp returns the C# grammar.
func CSharp() *Language {
	csharpLangOnce.Do(func() {
		csharpLang = NewLanguage("csharp", csharp.GetLanguage())
	})
	return csharpLang
}

// Language wraps a tree-sitter grammar. Its symbol and field tables are read
// once on construction.
type Language struct {
	name   string
	lang   *sitter.Language
	kinds  []string
	fields []string
}

// NewLanguage reads the symbol and field tables of lang.
func NewLanguage(name string, lang *sitter.Language) *Language {
	l := &Language{name: name, lang: lang}
	seen := make(map[string]bool)
	for i := uint32(0); i < lang.SymbolCount(); i++ {
		kind := lang.SymbolName(sitter.Symbol(i))
		if kind == "" || seen[kind] {
			continue
		}
		seen[kind] = true
		l.kinds = append(l.kinds, kind)
	}
	// Field ids start at 1; the table ends at the first empty name.
	for i := 1; ; i++ {
		f := lang.FieldName(i)
		if f == "" {
			break
		}
		l.fields = append(l.fields, f)
	}
	return l
}

func (l *Language) Name() string         { return l.name }
func (l *Language) NodeKinds() []string  { return l.kinds }
func (l *Language) FieldNames() []string { return l.fields }

// Unwrap returns the underlying tree-sitter language.
func (l *Language) Unwrap() *sitter.Language { return l.lang }

// Parser parses sources with one grammar. A fresh tree-sitter parser is used
// per call, so a Parser is safe for concurrent use.
type Parser struct {
	lang *Language
}

// NewParser returns a parser for lang.
func NewParser(lang *Language) *Parser {
	return &Parser{lang: lang}
}

func (p *Parser) Language() host.Language { return p.lang }

// Parse parses src. The returned tree keeps the tree-sitter tree alive.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (host.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tsitter: parse %s: %w", path, err)
	}
	return &Tree{tree: tree, src: src, path: path, lang: p.lang}, nil
}

// Tree is a parsed document.
type Tree struct {
	tree *sitter.Tree
	src  []byte
	path string
	lang *Language
}

func (t *Tree) Root() host.Node         { return wrap(t.tree.RootNode(), t) }
func (t *Tree) Source() []byte          { return t.src }
func (t *Tree) Language() host.Language { return t.lang }
func (t *Tree) Path() string            { return t.path }

// Unwrap returns the underlying tree-sitter tree.
func (t *Tree) Unwrap() *sitter.Tree { return t.tree }

// Node adapts *sitter.Node. go-tree-sitter caches node objects per tree, so
// two Nodes for the same syntax node compare equal.
type Node struct {
	n *sitter.Node
	t *Tree
}

func wrap(n *sitter.Node, t *Tree) host.Node {
	if n == nil {
		return nil
	}
	return Node{n: n, t: t}
}

// Unwrap returns the underlying tree-sitter node.
func (n Node) Unwrap() *sitter.Node { return n.n }

// Tree returns the tree n belongs to.
func (n Node) Tree() *Tree { return n.t }

func (n Node) Type() string      { return n.n.Type() }
func (n Node) StartByte() uint32 { return n.n.StartByte() }
func (n Node) EndByte() uint32   { return n.n.EndByte() }

func (n Node) StartPoint() host.Point {
	p := n.n.StartPoint()
	return host.Point{Row: p.Row, Column: p.Column}
}

func (n Node) EndPoint() host.Point {
	p := n.n.EndPoint()
	return host.Point{Row: p.Row, Column: p.Column}
}

func (n Node) ChildCount() int                        { return int(n.n.ChildCount()) }
func (n Node) Child(i int) host.Node                  { return wrap(n.n.Child(i), n.t) }
func (n Node) FieldNameForChild(i int) string         { return n.n.FieldNameForChild(i) }
func (n Node) ChildByFieldName(name string) host.Node { return wrap(n.n.ChildByFieldName(name), n.t) }
func (n Node) Parent() host.Node                      { return wrap(n.n.Parent(), n.t) }
func (n Node) IsNamed() bool                          { return n.n.IsNamed() }
func (n Node) IsExtra() bool                          { return n.n.IsExtra() }
func (n Node) IsMissing() bool                        { return n.n.IsMissing() }
func (n Node) HasError() bool                         { return n.n.HasError() }
