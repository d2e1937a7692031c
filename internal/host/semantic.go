package host

// SymbolKind classifies a declared entity.
type SymbolKind int

const (
	SymbolUnknown SymbolKind = iota
	SymbolType
	SymbolField
	SymbolProperty
	SymbolMethod
	SymbolLocal
	SymbolParameter
)

var symbolKindNames = [...]string{"unknown", "type", "field", "property", "method", "local", "parameter"}

func (k SymbolKind) String() string {
	if k < 0 || int(k) >= len(symbolKindNames) {
		return "unknown"
	}
	return symbolKindNames[k]
}

// Symbol is a declared entity. Pointers are stable for the lifetime of the
// SemanticModel that produced them.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Container  string
	IsStatic   bool
	IsConst    bool
	IsReadonly bool
	// Declaration is the identifier node naming the symbol.
	Declaration Node
}

// Operation is a semantic view of a syntax node. Members are the named
// values the provider exposes for the operation's kind; which members exist
// depends on the provider version and is advertised by
// SemanticCapabilities.
type Operation interface {
	Kind() string
	Syntax() Node
	Value(member string) (any, bool)
}

// SemanticCapabilities advertises the operation kinds a provider can produce
// and the members each kind carries.
type SemanticCapabilities interface {
	OperationKinds() []string
	OperationMembers(kind string) []string
}

// SemanticModel answers semantic questions about one tree. A false result
// means the provider could not resolve the question.
type SemanticModel interface {
	Operation(n Node) (Operation, bool)
	Symbol(n Node) (*Symbol, bool)
	References(sym *Symbol) []Node
}

// SemanticProvider builds models for trees.
type SemanticProvider interface {
	Capabilities() SemanticCapabilities
	Model(tree Tree) SemanticModel
}

// NoSemantics is a provider with no operations at all.
type NoSemantics struct{}

func (NoSemantics) Capabilities() SemanticCapabilities { return noCaps{} }
func (NoSemantics) Model(Tree) SemanticModel           { return noModel{} }

type noCaps struct{}

func (noCaps) OperationKinds() []string         { return nil }
func (noCaps) OperationMembers(string) []string { return nil }

type noModel struct{}

func (noModel) Operation(Node) (Operation, bool) { return nil, false }
func (noModel) Symbol(Node) (*Symbol, bool)      { return nil, false }
func (noModel) References(*Symbol) []Node        { return nil }
