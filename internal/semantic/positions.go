package semantic

import "github.com/jward/sharplint/internal/host"

// DeclaratorName returns the identifier a variable declarator declares, in
// either grammar layout.
func DeclaratorName(d host.Node) host.Node {
	if n := d.ChildByFieldName("name"); n != nil {
		return n
	}
	return host.FirstChildOfType(d, "identifier")
}

// localDeclaration reports whether identifier n declares a local or a
// parameter, and which.
func localDeclaration(n host.Node) (host.SymbolKind, bool) {
	p := n.Parent()
	if p == nil {
		return host.SymbolUnknown, false
	}
	field := host.FieldOf(n)
	switch p.Type() {
	case "parameter":
		if field == "name" {
			return host.SymbolParameter, true
		}
	case "implicit_parameter":
		return host.SymbolParameter, true
	case "lambda_expression":
		if field == "parameters" || field == "" && host.SameNode(firstNamed(p), n) {
			return host.SymbolParameter, true
		}
	case "variable_declarator":
		if !host.SameNode(DeclaratorName(p), n) {
			return host.SymbolUnknown, false
		}
		// Field declarators are members, not locals.
		if vd := p.Parent(); vd != nil {
			if owner := vd.Parent(); owner != nil && isOneOf(owner.Type(), "field_declaration", "event_field_declaration") {
				return host.SymbolUnknown, false
			}
		}
		return host.SymbolLocal, true
	case "foreach_statement":
		if field == "left" {
			return host.SymbolLocal, true
		}
	case "catch_declaration", "local_function_statement", "declaration_expression":
		if field == "name" {
			return host.SymbolLocal, true
		}
	case "single_variable_designation", "from_clause", "let_clause", "join_clause", "join_into_clause", "query_continuation":
		return host.SymbolLocal, true
	}
	return host.SymbolUnknown, false
}

func firstNamed(n host.Node) host.Node {
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c.IsNamed() && !c.IsExtra() {
			return c
		}
	}
	return nil
}

// expressionParents are the node kinds under which a bare identifier is an
// expression, with the fields that exclude it.
var expressionParents = map[string][]string{
	"argument":                      {"name"},
	"arrow_expression_clause":       nil,
	"assignment_expression":         nil,
	"await_expression":              nil,
	"binary_expression":             nil,
	"cast_expression":               {"type"},
	"checked_expression":            nil,
	"conditional_access_expression": nil,
	"conditional_expression":        nil,
	"do_statement":                  {"body"},
	"element_access_expression":     nil,
	"element_binding_expression":    nil,
	"equals_value_clause":           nil,
	"expression_statement":          nil,
	"for_statement":                 {"body"},
	"foreach_statement":             {"left", "type", "body"},
	"if_statement":                  {"consequence", "alternative"},
	"initializer_expression":        nil,
	"interpolation":                 nil,
	"invocation_expression":         {"arguments"},
	"is_pattern_expression":         {"pattern"},
	"lock_statement":                {"body"},
	"member_access_expression":      {"name"},
	"parenthesized_expression":      nil,
	"postfix_unary_expression":      nil,
	"prefix_unary_expression":       nil,
	"range_expression":              nil,
	"ref_expression":                nil,
	"return_statement":              nil,
	"switch_expression":             nil,
	"switch_statement":              {"body"},
	"throw_expression":              nil,
	"throw_statement":               nil,
	"using_statement":               {"body"},
	"variable_declarator":           nil,
	"while_statement":               {"body"},
	"with_expression":               nil,
	"yield_statement":               nil,
}

// isSimpleNameReference reports whether identifier n is a bare name used as
// an expression.
func isSimpleNameReference(n host.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	excluded, ok := expressionParents[p.Type()]
	if !ok {
		return false
	}
	if _, decl := localDeclaration(n); decl {
		return false
	}
	field := host.FieldOf(n)
	for _, f := range excluded {
		if field == f {
			return false
		}
	}
	switch p.Type() {
	case "variable_declarator":
		return !host.SameNode(DeclaratorName(p), n)
	case "binary_expression":
		// The right operand of is/as is a type.
		if op := p.ChildByFieldName("operator"); op != nil && isOneOf(op.Type(), "is", "as") && field == "right" {
			return false
		}
	case "member_access_expression":
		return field == "expression" || field == "" && host.SameNode(firstNamed(p), n)
	case "assignment_expression":
		// The left side of an object initializer entry names a member of
		// the created type.
		if (field == "left" || field == "" && host.SameNode(firstNamed(p), n)) && isObjectInitializerEntry(p) {
			return false
		}
	}
	return true
}

// isObjectInitializerEntry reports whether assignment a is an entry of an
// object initializer, nested initializers included.
func isObjectInitializerEntry(a host.Node) bool {
	init := a.Parent()
	if init == nil || init.Type() != "initializer_expression" {
		return false
	}
	owner := init.Parent()
	if owner == nil {
		return false
	}
	switch owner.Type() {
	case "object_creation_expression", "implicit_object_creation_expression",
		"anonymous_object_creation_expression", "with_expression":
		return true
	case "assignment_expression":
		return isObjectInitializerEntry(owner)
	}
	return false
}
