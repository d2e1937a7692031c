// Package semantic is a declaration-level binder for C# syntax trees. It
// builds per-type member tables and per-member local scopes, resolves simple
// names against them, and exposes the result as host operations.
//
// Resolution is conservative: a name is only classified when it binds to a
// member of the enclosing type or to a local or parameter declared anywhere
// in the enclosing member. Inherited members, other files and overload
// resolution are out of reach; such names produce no operation.
package semantic

import (
	"sync"

	"github.com/jward/sharplint/internal/host"
)

// Operation kinds produced by the binder.
const (
	KindFieldReference     = "FieldReference"
	KindPropertyReference  = "PropertyReference"
	KindMethodReference    = "MethodReference"
	KindLocalReference     = "LocalReference"
	KindParameterReference = "ParameterReference"
)

// Operation members.
const (
	MemberSymbol   = "Symbol"
	MemberInstance = "Instance"
)

var typeKinds = []string{
	"class_declaration", "struct_declaration", "interface_declaration",
	"record_declaration", "record_struct_declaration",
}

var memberKinds = []string{
	"method_declaration", "constructor_declaration", "destructor_declaration",
	"operator_declaration", "conversion_operator_declaration",
	"property_declaration", "indexer_declaration", "event_declaration",
	"field_declaration",
}

// Provider builds binder models. The zero value advertises every operation
// kind with all members.
type Provider struct {
	caps Capabilities
}

// NewProvider returns a provider that advertises caps. A nil caps advertises
// the full surface.
func NewProvider(caps Capabilities) *Provider {
	return &Provider{caps: caps}
}

// Capabilities is the advertised operation surface: kind to members.
type Capabilities map[string][]string

// DefaultCapabilities is everything the binder can produce.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		KindFieldReference:     {MemberSymbol, MemberInstance},
		KindPropertyReference:  {MemberSymbol, MemberInstance},
		KindMethodReference:    {MemberSymbol, MemberInstance},
		KindLocalReference:     {MemberSymbol},
		KindParameterReference: {MemberSymbol},
	}
}

func (c Capabilities) OperationKinds() []string {
	out := make([]string, 0, len(c))
	for _, k := range []string{KindFieldReference, KindPropertyReference, KindMethodReference, KindLocalReference, KindParameterReference} {
		if _, ok := c[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func (c Capabilities) OperationMembers(kind string) []string { return c[kind] }

func (c Capabilities) has(kind, member string) bool {
	for _, m := range c[kind] {
		if m == member {
			return true
		}
	}
	return false
}

// Capabilities implements host.SemanticProvider.
func (p *Provider) Capabilities() host.SemanticCapabilities { return p.surface() }

func (p *Provider) surface() Capabilities {
	if p == nil || p.caps == nil {
		return DefaultCapabilities()
	}
	return p.caps
}

// Model implements host.SemanticProvider. Binding happens on first use.
func (p *Provider) Model(tree host.Tree) host.SemanticModel {
	return &Model{tree: tree, caps: p.surface()}
}

// Model is the binding of one tree. It is safe for concurrent use once
// built; building happens at most once.
type Model struct {
	tree host.Tree
	caps Capabilities

	once    sync.Once
	types   map[host.Node]*typeScope
	members map[host.Node]*memberScope
	decls   map[host.Node]*host.Symbol
	ops     map[host.Node]*operation
	refs    map[*host.Symbol][]host.Node
}

type typeScope struct {
	name    string
	members map[string]*host.Symbol
}

type memberScope struct {
	isStatic bool
	locals   map[string]*host.Symbol
}

var _ host.SemanticModel = (*Model)(nil)

// Operation returns the operation produced for n, if any.
func (m *Model) Operation(n host.Node) (host.Operation, bool) {
	m.build()
	if n == nil {
		return nil, false
	}
	op, ok := m.ops[n]
	if !ok {
		return nil, false
	}
	return op, true
}

// Symbol returns the symbol declared or referenced by n. For a declaration
// the node is the declaring identifier; for a reference it is the node the
// operation was produced for.
func (m *Model) Symbol(n host.Node) (*host.Symbol, bool) {
	m.build()
	if n == nil {
		return nil, false
	}
	if sym, ok := m.decls[n]; ok {
		return sym, true
	}
	if op, ok := m.ops[n]; ok {
		return op.symbol, true
	}
	return nil, false
}

// References returns the identifier nodes referring to sym, declaration
// first, in source order.
func (m *Model) References(sym *host.Symbol) []host.Node {
	m.build()
	if sym == nil {
		return nil
	}
	out := make([]host.Node, 0, len(m.refs[sym])+1)
	if sym.Declaration != nil {
		out = append(out, sym.Declaration)
	}
	return append(out, m.refs[sym]...)
}

func (m *Model) build() {
	m.once.Do(func() {
		m.types = make(map[host.Node]*typeScope)
		m.members = make(map[host.Node]*memberScope)
		m.decls = make(map[host.Node]*host.Symbol)
		m.ops = make(map[host.Node]*operation)
		m.refs = make(map[*host.Symbol][]host.Node)
		root := m.tree.Root()
		m.declare(root)
		m.bind(root)
	})
}

// declare collects type members and member-local declarations.
func (m *Model) declare(root host.Node) {
	src := m.tree.Source()
	host.Walk(root, func(n host.Node) bool {
		switch {
		case isOneOf(n.Type(), typeKinds...):
			m.declareType(n, src)
		case isOneOf(n.Type(), memberKinds...):
			m.members[n] = &memberScope{
				isStatic: hasModifier(src, n, "static"),
				locals:   make(map[string]*host.Symbol),
			}
		case n.Type() == "identifier":
			m.declareLocal(n, src)
		}
		return true
	})
}

func (m *Model) declareType(n host.Node, src []byte) {
	ts := &typeScope{
		name:    host.Text(src, n.ChildByFieldName("name")),
		members: make(map[string]*host.Symbol),
	}
	m.types[n] = ts
	body := n.ChildByFieldName("body")
	if body == nil {
		body = host.FirstChildOfType(n, "declaration_list")
	}
	if body == nil {
		return
	}
	add := func(name host.Node, kind host.SymbolKind, decl host.Node) {
		if name == nil {
			return
		}
		text := host.Text(src, name)
		if _, dup := ts.members[text]; dup {
			return
		}
		isConst := hasModifier(src, decl, "const")
		sym := &host.Symbol{
			Name:        text,
			Kind:        kind,
			Container:   ts.name,
			IsStatic:    hasModifier(src, decl, "static") || isConst,
			IsConst:     isConst,
			IsReadonly:  hasModifier(src, decl, "readonly"),
			Declaration: name,
		}
		ts.members[text] = sym
		m.decls[name] = sym
	}
	for _, c := range host.NamedChildren(body) {
		switch c.Type() {
		case "field_declaration", "event_field_declaration":
			vd := host.FirstChildOfType(c, "variable_declaration")
			if vd == nil {
				continue
			}
			for _, d := range host.ChildrenOfType(vd, "variable_declarator") {
				add(DeclaratorName(d), host.SymbolField, c)
			}
		case "property_declaration":
			add(c.ChildByFieldName("name"), host.SymbolProperty, c)
		case "method_declaration":
			add(c.ChildByFieldName("name"), host.SymbolMethod, c)
		case "class_declaration", "struct_declaration", "interface_declaration",
			"record_declaration", "record_struct_declaration", "enum_declaration", "delegate_declaration":
			add(c.ChildByFieldName("name"), host.SymbolType, c)
		}
	}
}

// declareLocal records n when it names a local or parameter inside a member.
func (m *Model) declareLocal(n host.Node, src []byte) {
	kind, ok := localDeclaration(n)
	if !ok {
		return
	}
	member := host.Ancestor(n, memberKinds...)
	if member == nil {
		return
	}
	scope := m.members[member]
	if scope == nil {
		return
	}
	name := host.Text(src, n)
	sym, ok := scope.locals[name]
	if !ok {
		sym = &host.Symbol{Name: name, Kind: kind, Declaration: n}
		scope.locals[name] = sym
	}
	m.decls[n] = sym
}

// bind classifies every expression-position name.
func (m *Model) bind(root host.Node) {
	src := m.tree.Source()
	host.Walk(root, func(n host.Node) bool {
		switch n.Type() {
		case "identifier":
			if !isSimpleNameReference(n) {
				return true
			}
			m.bindSimpleName(n, src)
		case "member_access_expression":
			m.bindThisAccess(n, src)
		}
		return true
	})
}

func (m *Model) bindSimpleName(n host.Node, src []byte) {
	name := host.Text(src, n)
	member := host.Ancestor(n, memberKinds...)
	if member != nil {
		if scope := m.members[member]; scope != nil {
			if sym, ok := scope.locals[name]; ok {
				kind := KindLocalReference
				if sym.Kind == host.SymbolParameter {
					kind = KindParameterReference
				}
				m.record(&operation{kind: kind, syntax: n, symbol: sym, caps: m.caps})
				return
			}
		}
	}
	ts := m.enclosingType(n)
	if ts == nil {
		return
	}
	sym, ok := ts.members[name]
	if !ok {
		return
	}
	if kind := referenceKind(sym.Kind); kind != "" {
		m.record(&operation{kind: kind, syntax: n, symbol: sym, caps: m.caps})
	}
}

// bindThisAccess classifies this.Name, attaching the operation to the member
// access and recording the name for rename.
func (m *Model) bindThisAccess(n host.Node, src []byte) {
	recv := n.ChildByFieldName("expression")
	name := n.ChildByFieldName("name")
	if recv == nil || name == nil || !isOneOf(recv.Type(), "this_expression", "this") {
		return
	}
	ts := m.enclosingType(n)
	if ts == nil {
		return
	}
	sym, ok := ts.members[host.Text(src, name)]
	if !ok {
		return
	}
	kind := referenceKind(sym.Kind)
	if kind == "" {
		return
	}
	m.record(&operation{kind: kind, syntax: n, symbol: sym, instance: recv, caps: m.caps, nameNode: name})
}

func (m *Model) record(op *operation) {
	if _, advertised := m.caps[op.kind]; !advertised {
		return
	}
	m.ops[op.syntax] = op
	ref := op.syntax
	if op.nameNode != nil {
		ref = op.nameNode
	}
	m.refs[op.symbol] = append(m.refs[op.symbol], ref)
}

func (m *Model) enclosingType(n host.Node) *typeScope {
	t := host.Ancestor(n, typeKinds...)
	if t == nil {
		return nil
	}
	return m.types[t]
}

// InStaticContext reports whether n sits inside a static member.
func (m *Model) InStaticContext(n host.Node) bool {
	m.build()
	member := host.Ancestor(n, memberKinds...)
	if member == nil {
		return false
	}
	scope := m.members[member]
	return scope != nil && scope.isStatic
}

func referenceKind(k host.SymbolKind) string {
	switch k {
	case host.SymbolField:
		return KindFieldReference
	case host.SymbolProperty:
		return KindPropertyReference
	case host.SymbolMethod:
		return KindMethodReference
	}
	return ""
}

func isOneOf(kind string, kinds ...string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func hasModifier(src []byte, decl host.Node, mod string) bool {
	for _, c := range host.ChildrenOfType(decl, "modifier") {
		if host.Text(src, c) == mod {
			return true
		}
	}
	return false
}
