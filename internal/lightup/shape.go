package lightup

import "github.com/jward/sharplint/internal/host"

// Shape is a named, versioned syntax or operation abstraction that rules
// program against. Host versions implement a shape with zero or more node
// (or operation) kinds.
type Shape int

const (
	ShapeInvalid Shape = iota

	CompilationUnit
	Identifier
	Comment
	Block
	ThisExpression
	MemberAccess
	StringLiteral
	RawStringLiteral
	CollectionExpression

	TypeDeclaration
	ClassDeclaration
	StructDeclaration
	InterfaceDeclaration
	RecordDeclaration
	EnumDeclaration

	MemberDeclaration
	FieldDeclaration
	MethodDeclaration
	PropertyDeclaration
	ConstructorDeclaration
	VariableDeclarator

	QueryExpression
	QueryClause
	FromClause
	WhereClause
	SelectClause
	LetClause
	JoinClause
	OrderByClause
	GroupClause

	RegionDirective
	EndRegionDirective

	MemberReference
	FieldReference
	PropertyReference
	MethodReference
	LocalReference
	ParameterReference

	numShapes
)

// Property names a readable aspect of a shape.
type Property string

const (
	PropName        Property = "Name"
	PropModifiers   Property = "Modifiers"
	PropBody        Property = "Body"
	PropDeclarators Property = "Declarators"
	PropInitializer Property = "Initializer"
	PropClauses     Property = "Clauses"
	PropKeyword     Property = "Keyword"
	PropCondition   Property = "Condition"
	PropContent     Property = "Content"
	PropElements    Property = "Elements"
	PropExpression  Property = "Expression"
	PropSymbol      Property = "Symbol"
	PropInstance    Property = "Instance"
)

// reader extracts a property from a raw host value (host.Node or
// host.Operation).
type reader func(r *Registry, raw any) any

// requirement lists what must exist in a profile for an accessor to bind.
type requirement struct {
	fields  []string
	kinds   []string
	members []string
}

type accessor struct {
	requires requirement
	read     reader
}

type shapeSpec struct {
	name      string
	parent    Shape
	kinds     []string
	operation bool
	mandatory bool
	props     map[Property][]accessor
}

func (s Shape) String() string {
	if s <= ShapeInvalid || s >= numShapes {
		return "InvalidShape"
	}
	return shapeTable[s].name
}

// Shapes returns every defined shape.
func Shapes() []Shape {
	out := make([]Shape, 0, numShapes-1)
	for s := ShapeInvalid + 1; s < numShapes; s++ {
		out = append(out, s)
	}
	return out
}

// Parent returns the shape s specialises, or ShapeInvalid.
func (s Shape) Parent() Shape {
	if s <= ShapeInvalid || s >= numShapes {
		return ShapeInvalid
	}
	return shapeTable[s].parent
}

// IsOperation reports whether s is a semantic operation shape.
func (s Shape) IsOperation() bool {
	return s > ShapeInvalid && s < numShapes && shapeTable[s].operation
}

// IsA reports whether s is base or specialises it.
func (s Shape) IsA(base Shape) bool {
	for cur := s; cur != ShapeInvalid; cur = cur.Parent() {
		if cur == base {
			return true
		}
	}
	return false
}

// ParseShape returns the shape with the given name.
func ParseShape(name string) (Shape, bool) {
	for s := ShapeInvalid + 1; s < numShapes; s++ {
		if shapeTable[s].name == name {
			return s, true
		}
	}
	return ShapeInvalid, false
}

func field(name string) accessor {
	return accessor{
		requires: requirement{fields: []string{name}},
		read: func(_ *Registry, raw any) any {
			return raw.(host.Node).ChildByFieldName(name)
		},
	}
}

func firstChild(kinds ...string) accessor {
	return accessor{
		requires: requirement{kinds: kinds},
		read: func(_ *Registry, raw any) any {
			return host.FirstChildOfType(raw.(host.Node), kinds...)
		},
	}
}

func children(kinds ...string) accessor {
	return accessor{
		requires: requirement{kinds: kinds},
		read: func(_ *Registry, raw any) any {
			return host.ChildrenOfType(raw.(host.Node), kinds...)
		},
	}
}

func member(name string) accessor {
	return accessor{
		requires: requirement{members: []string{name}},
		read: func(_ *Registry, raw any) any {
			v, _ := raw.(host.Operation).Value(name)
			return v
		},
	}
}

func custom(req requirement, read reader) accessor {
	return accessor{requires: req, read: read}
}

// shapeTable is the static binding table. Candidate kinds and accessors are
// listed newest host version first; the probe keeps the ones that exist.
var shapeTable = [numShapes]shapeSpec{
	ShapeInvalid: {name: "InvalidShape"},

	CompilationUnit: {name: "CompilationUnit", kinds: []string{"compilation_unit"}, mandatory: true},
	Identifier:      {name: "Identifier", kinds: []string{"identifier", "identifier_name"}, mandatory: true},
	Comment:         {name: "Comment", kinds: []string{"comment"}, mandatory: true},
	Block:           {name: "Block", kinds: []string{"block"}},
	ThisExpression:  {name: "ThisExpression", kinds: []string{"this_expression", "this"}},
	MemberAccess: {
		name:  "MemberAccess",
		kinds: []string{"member_access_expression"},
		props: map[Property][]accessor{
			PropExpression: {field("expression")},
			PropName:       {field("name")},
		},
	},
	StringLiteral:    {name: "StringLiteral", kinds: []string{"string_literal"}},
	RawStringLiteral: {name: "RawStringLiteral", kinds: []string{"raw_string_literal"}},
	CollectionExpression: {
		name:  "CollectionExpression",
		kinds: []string{"collection_expression"},
		props: map[Property][]accessor{
			PropElements: {custom(requirement{}, func(_ *Registry, raw any) any {
				return host.NamedChildren(raw.(host.Node))
			})},
		},
	},

	TypeDeclaration: {
		name: "TypeDeclaration",
		props: map[Property][]accessor{
			PropName:      {field("name")},
			PropModifiers: {children("modifier")},
			PropBody:      {field("body"), firstChild("declaration_list", "enum_member_declaration_list")},
		},
	},
	ClassDeclaration:     {name: "ClassDeclaration", parent: TypeDeclaration, kinds: []string{"class_declaration"}},
	StructDeclaration:    {name: "StructDeclaration", parent: TypeDeclaration, kinds: []string{"struct_declaration"}},
	InterfaceDeclaration: {name: "InterfaceDeclaration", parent: TypeDeclaration, kinds: []string{"interface_declaration"}},
	RecordDeclaration:    {name: "RecordDeclaration", parent: TypeDeclaration, kinds: []string{"record_declaration", "record_struct_declaration"}},
	EnumDeclaration:      {name: "EnumDeclaration", parent: TypeDeclaration, kinds: []string{"enum_declaration"}},

	MemberDeclaration: {
		name: "MemberDeclaration",
		props: map[Property][]accessor{
			PropModifiers: {children("modifier")},
		},
	},
	FieldDeclaration: {
		name:   "FieldDeclaration",
		parent: MemberDeclaration,
		kinds:  []string{"field_declaration"},
		props: map[Property][]accessor{
			PropDeclarators: {custom(requirement{kinds: []string{"variable_declaration", "variable_declarator"}}, func(_ *Registry, raw any) any {
				decl := host.FirstChildOfType(raw.(host.Node), "variable_declaration")
				if decl == nil {
					return []host.Node(nil)
				}
				return host.ChildrenOfType(decl, "variable_declarator")
			})},
		},
	},
	MethodDeclaration: {
		name:   "MethodDeclaration",
		parent: MemberDeclaration,
		kinds:  []string{"method_declaration"},
		props: map[Property][]accessor{
			PropName: {field("name")},
			PropBody: {field("body"), firstChild("block", "arrow_expression_clause")},
		},
	},
	PropertyDeclaration: {
		name:   "PropertyDeclaration",
		parent: MemberDeclaration,
		kinds:  []string{"property_declaration"},
		props: map[Property][]accessor{
			PropName: {field("name")},
			PropBody: {field("accessors"), firstChild("accessor_list", "arrow_expression_clause")},
		},
	},
	ConstructorDeclaration: {
		name:   "ConstructorDeclaration",
		parent: MemberDeclaration,
		kinds:  []string{"constructor_declaration"},
		props: map[Property][]accessor{
			PropName: {field("name")},
			PropBody: {field("body"), firstChild("block", "arrow_expression_clause")},
		},
	},
	VariableDeclarator: {
		name:  "VariableDeclarator",
		kinds: []string{"variable_declarator"},
		props: map[Property][]accessor{
			// Newer grammars name the declarator; older ones lead with a
			// bare identifier.
			PropName: {field("name"), firstChild("identifier")},
			PropInitializer: {custom(requirement{}, func(_ *Registry, raw any) any {
				return declaratorInitializer(raw.(host.Node))
			})},
		},
	},

	QueryExpression: {
		name:  "QueryExpression",
		kinds: []string{"query_expression"},
		props: map[Property][]accessor{
			PropClauses: {custom(requirement{kinds: []string{"from_clause"}}, func(r *Registry, raw any) any {
				var out []host.Node
				for _, c := range host.NamedChildren(raw.(host.Node)) {
					if r.family[QueryClause][c.Type()] {
						out = append(out, c)
					}
				}
				return out
			})},
		},
	},
	QueryClause: {
		name: "QueryClause",
		props: map[Property][]accessor{
			PropKeyword: {custom(requirement{}, func(_ *Registry, raw any) any {
				return raw.(host.Node).Child(0)
			})},
		},
	},
	FromClause: {name: "FromClause", parent: QueryClause, kinds: []string{"from_clause"}},
	WhereClause: {
		name:   "WhereClause",
		parent: QueryClause,
		kinds:  []string{"where_clause"},
		props: map[Property][]accessor{
			PropCondition: {custom(requirement{}, func(_ *Registry, raw any) any {
				named := host.NamedChildren(raw.(host.Node))
				if len(named) == 0 {
					return host.Node(nil)
				}
				return named[len(named)-1]
			})},
		},
	},
	SelectClause:  {name: "SelectClause", parent: QueryClause, kinds: []string{"select_clause"}},
	LetClause:     {name: "LetClause", parent: QueryClause, kinds: []string{"let_clause"}},
	JoinClause:    {name: "JoinClause", parent: QueryClause, kinds: []string{"join_clause"}},
	OrderByClause: {name: "OrderByClause", parent: QueryClause, kinds: []string{"order_by_clause"}},
	GroupClause:   {name: "GroupClause", parent: QueryClause, kinds: []string{"group_clause"}},

	RegionDirective: {
		name:  "RegionDirective",
		kinds: []string{"preproc_region", "region_directive"},
		props: map[Property][]accessor{
			PropContent: {field("content"), firstChild("preproc_arg", "preproc_message")},
		},
	},
	EndRegionDirective: {name: "EndRegionDirective", kinds: []string{"preproc_endregion", "endregion_directive"}},

	MemberReference: {
		name:      "MemberReference",
		operation: true,
		props: map[Property][]accessor{
			PropSymbol:   {member("Symbol")},
			PropInstance: {member("Instance")},
		},
	},
	FieldReference:    {name: "FieldReference", parent: MemberReference, operation: true, kinds: []string{"FieldReference"}},
	PropertyReference: {name: "PropertyReference", parent: MemberReference, operation: true, kinds: []string{"PropertyReference"}},
	MethodReference:   {name: "MethodReference", parent: MemberReference, operation: true, kinds: []string{"MethodReference"}},
	LocalReference: {
		name:      "LocalReference",
		operation: true,
		kinds:     []string{"LocalReference"},
		props:     map[Property][]accessor{PropSymbol: {member("Symbol")}},
	},
	ParameterReference: {
		name:      "ParameterReference",
		operation: true,
		kinds:     []string{"ParameterReference"},
		props:     map[Property][]accessor{PropSymbol: {member("Symbol")}},
	},
}

// declaratorInitializer returns the initializer expression of a variable
// declarator in either grammar layout: wrapped in equals_value_clause, or
// following a bare '=' token.
func declaratorInitializer(n host.Node) host.Node {
	if evc := host.FirstChildOfType(n, "equals_value_clause"); evc != nil {
		named := host.NamedChildren(evc)
		if len(named) > 0 {
			return named[len(named)-1]
		}
		return nil
	}
	afterEq := false
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if afterEq && c.IsNamed() && !c.IsExtra() {
			return c
		}
		if c.Type() == "=" {
			afterEq = true
		}
	}
	return nil
}

// specialisations returns the shapes whose parent is s.
func specialisations(s Shape) []Shape {
	var out []Shape
	for c := ShapeInvalid + 1; c < numShapes; c++ {
		if shapeTable[c].parent == s {
			out = append(out, c)
		}
	}
	return out
}

// familyOf returns s and every shape that transitively specialises it.
func familyOf(s Shape) []Shape {
	out := []Shape{s}
	for _, c := range specialisations(s) {
		out = append(out, familyOf(c)...)
	}
	return out
}
