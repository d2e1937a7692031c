// Package hosttest provides an in-memory host for tests: languages with an
// arbitrary set of node kinds and field names, and trees assembled from node
// specs. It models host versions the production grammar does not have.
package hosttest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/sharplint/internal/host"
)

// Language is a simulated host version.
type Language struct {
	name   string
	kinds  []string
	fields []string
}

// NewLanguage declares a host version with the given node kinds and fields.
func NewLanguage(name string, kinds, fields []string) *Language {
	return &Language{name: name, kinds: kinds, fields: fields}
}

func (l *Language) Name() string         { return l.name }
func (l *Language) NodeKinds() []string  { return l.kinds }
func (l *Language) FieldNames() []string { return l.fields }

// Spec describes a node to build.
type Spec struct {
	kind     string
	text     string
	field    string
	named    bool
	extra    bool
	children []*Spec
}

// N is a named interior node.
func N(kind string, children ...*Spec) *Spec {
	return &Spec{kind: kind, named: true, children: children}
}

// L is a named leaf carrying text.
func L(kind, text string) *Spec {
	return &Spec{kind: kind, text: text, named: true}
}

// T is an anonymous token whose kind is its text.
func T(text string) *Spec {
	return &Spec{kind: text, text: text}
}

// As attaches s to its parent under field.
func (s *Spec) As(field string) *Spec {
	s.field = field
	return s
}

// Extra marks s as an extra node (comments, directives).
func (s *Spec) Extra() *Spec {
	s.extra = true
	return s
}

// Tree is a built tree.
type Tree struct {
	root *Node
	src  []byte
	path string
	lang *Language
}

func (t *Tree) Root() host.Node         { return t.root }
func (t *Tree) Source() []byte          { return t.src }
func (t *Tree) Language() host.Language { return t.lang }
func (t *Tree) Path() string            { return t.path }

// Build lays out root. Leaf texts are joined by single spaces; interior
// nodes span their first to last leaf.
func Build(lang *Language, path string, root *Spec) *Tree {
	var sb strings.Builder
	t := &Tree{path: path, lang: lang}
	t.root = layout(root, nil, &sb)
	t.src = []byte(sb.String())
	li := host.NewLineIndex(t.src)
	host.Walk(t.root, func(n host.Node) bool {
		nd := n.(*Node)
		nd.start = li.Point(nd.span.Start)
		nd.end = li.Point(nd.span.End)
		return true
	})
	return t
}

func layout(s *Spec, parent *Node, sb *strings.Builder) *Node {
	n := &Node{spec: s, parent: parent}
	if len(s.children) == 0 {
		if sb.Len() > 0 && s.text != "" {
			sb.WriteByte(' ')
		}
		n.span.Start = uint32(sb.Len())
		sb.WriteString(s.text)
		n.span.End = uint32(sb.Len())
		return n
	}
	for i, c := range s.children {
		child := layout(c, n, sb)
		if i == 0 {
			n.span.Start = child.span.Start
		}
		n.span.End = child.span.End
		n.children = append(n.children, child)
	}
	return n
}

// Node is a built node. Pointers are identities.
type Node struct {
	spec     *Spec
	parent   *Node
	children []*Node
	span     host.Span
	start    host.Point
	end      host.Point
}

func (n *Node) Type() string           { return n.spec.kind }
func (n *Node) StartByte() uint32      { return n.span.Start }
func (n *Node) EndByte() uint32        { return n.span.End }
func (n *Node) StartPoint() host.Point { return n.start }
func (n *Node) EndPoint() host.Point   { return n.end }
func (n *Node) ChildCount() int        { return len(n.children) }
func (n *Node) IsNamed() bool          { return n.spec.named }
func (n *Node) IsExtra() bool          { return n.spec.extra }
func (n *Node) IsMissing() bool        { return false }
func (n *Node) HasError() bool         { return n.spec.kind == "ERROR" }

func (n *Node) Child(i int) host.Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *Node) FieldNameForChild(i int) string {
	if i < 0 || i >= len(n.children) {
		return ""
	}
	return n.children[i].spec.field
}

func (n *Node) ChildByFieldName(name string) host.Node {
	for _, c := range n.children {
		if c.spec.field == name {
			return c
		}
	}
	return nil
}

func (n *Node) Parent() host.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Parser builds trees from a fixed table of sources. It exists so code that
// takes a host.Parser can run against a simulated host.
type Parser struct {
	lang  *Language
	build func(path string, src []byte) (*Spec, error)
}

// NewParser returns a parser that turns sources into specs with build.
func NewParser(lang *Language, build func(path string, src []byte) (*Spec, error)) *Parser {
	return &Parser{lang: lang, build: build}
}

func (p *Parser) Language() host.Language { return p.lang }

func (p *Parser) Parse(ctx context.Context, path string, src []byte) (host.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec, err := p.build(path, src)
	if err != nil {
		return nil, fmt.Errorf("hosttest: parse %s: %w", path, err)
	}
	return Build(p.lang, path, spec), nil
}

// Capabilities is a simulated semantic provider surface: operation kind to
// members.
type Capabilities map[string][]string

func (c Capabilities) OperationKinds() []string {
	kinds := make([]string, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (c Capabilities) OperationMembers(kind string) []string { return c[kind] }

// Operation is a simulated semantic operation.
type Operation struct {
	OpKind  string
	Node    host.Node
	Members map[string]any
}

func (o *Operation) Kind() string      { return o.OpKind }
func (o *Operation) Syntax() host.Node { return o.Node }

func (o *Operation) Value(member string) (any, bool) {
	v, ok := o.Members[member]
	return v, ok
}
