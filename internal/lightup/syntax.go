package lightup

import "github.com/jward/sharplint/internal/host"

// TypeDeclarationSyntax is any type declaration.
type TypeDeclarationSyntax struct{ Node }

// TypeDeclaration wraps n as a type declaration.
func (r *Registry) TypeDeclaration(n host.Node) (TypeDeclarationSyntax, error) {
	w, err := r.Wrap(TypeDeclaration, n)
	return TypeDeclarationSyntax{w}, err
}

func (t TypeDeclarationSyntax) Name() (host.Node, error)        { return t.node(PropName) }
func (t TypeDeclarationSyntax) Modifiers() ([]host.Node, error) { return t.nodes(PropModifiers) }
func (t TypeDeclarationSyntax) Body() (host.Node, error)        { return t.node(PropBody) }

// AsStruct is a checked downcast.
func (t TypeDeclarationSyntax) AsStruct() (StructDeclarationSyntax, bool) {
	n, ok := t.As(StructDeclaration)
	return StructDeclarationSyntax{n}, ok
}

// AsClass is a checked downcast.
func (t TypeDeclarationSyntax) AsClass() (ClassDeclarationSyntax, bool) {
	n, ok := t.As(ClassDeclaration)
	return ClassDeclarationSyntax{n}, ok
}

// ClassDeclarationSyntax is a class declaration.
type ClassDeclarationSyntax struct{ Node }

// AsType is the total upcast to TypeDeclaration.
func (c ClassDeclarationSyntax) AsType() TypeDeclarationSyntax {
	return TypeDeclarationSyntax{c.upcast(TypeDeclaration)}
}

// StructDeclarationSyntax is a struct declaration.
type StructDeclarationSyntax struct{ Node }

// AsType is the total upcast to TypeDeclaration.
func (s StructDeclarationSyntax) AsType() TypeDeclarationSyntax {
	return TypeDeclarationSyntax{s.upcast(TypeDeclaration)}
}

// MemberDeclarationSyntax is any member of a type.
type MemberDeclarationSyntax struct{ Node }

// MemberDeclaration wraps n as a member declaration.
func (r *Registry) MemberDeclaration(n host.Node) (MemberDeclarationSyntax, error) {
	w, err := r.Wrap(MemberDeclaration, n)
	return MemberDeclarationSyntax{w}, err
}

func (m MemberDeclarationSyntax) Modifiers() ([]host.Node, error) { return m.nodes(PropModifiers) }

// AsField is a checked downcast.
func (m MemberDeclarationSyntax) AsField() (FieldDeclarationSyntax, bool) {
	n, ok := m.As(FieldDeclaration)
	return FieldDeclarationSyntax{n}, ok
}

// AsMethod is a checked downcast.
func (m MemberDeclarationSyntax) AsMethod() (MethodDeclarationSyntax, bool) {
	n, ok := m.As(MethodDeclaration)
	return MethodDeclarationSyntax{n}, ok
}

// FieldDeclarationSyntax is a field declaration with one or more declarators.
type FieldDeclarationSyntax struct{ Node }

// FieldDeclaration wraps n as a field declaration.
func (r *Registry) FieldDeclaration(n host.Node) (FieldDeclarationSyntax, error) {
	w, err := r.Wrap(FieldDeclaration, n)
	return FieldDeclarationSyntax{w}, err
}

// AsMember is the total upcast to MemberDeclaration.
func (f FieldDeclarationSyntax) AsMember() MemberDeclarationSyntax {
	return MemberDeclarationSyntax{f.upcast(MemberDeclaration)}
}

func (f FieldDeclarationSyntax) Modifiers() ([]host.Node, error) { return f.AsMember().Modifiers() }

// Declarators returns the declarators in source order.
func (f FieldDeclarationSyntax) Declarators() ([]VariableDeclaratorSyntax, error) {
	raw, err := f.nodes(PropDeclarators)
	if err != nil {
		return nil, err
	}
	out := make([]VariableDeclaratorSyntax, 0, len(raw))
	for _, n := range raw {
		w, err := f.d.reg.Wrap(VariableDeclarator, n)
		if err != nil {
			return nil, err
		}
		out = append(out, VariableDeclaratorSyntax{w})
	}
	return out, nil
}

// MethodDeclarationSyntax is a method declaration.
type MethodDeclarationSyntax struct{ Node }

func (m MethodDeclarationSyntax) Name() (host.Node, error) { return m.node(PropName) }
func (m MethodDeclarationSyntax) Body() (host.Node, error) { return m.node(PropBody) }

// AsMember is the total upcast to MemberDeclaration.
func (m MethodDeclarationSyntax) AsMember() MemberDeclarationSyntax {
	return MemberDeclarationSyntax{m.upcast(MemberDeclaration)}
}

// VariableDeclaratorSyntax is one declared variable.
type VariableDeclaratorSyntax struct{ Node }

// VariableDeclarator wraps n as a variable declarator.
func (r *Registry) VariableDeclarator(n host.Node) (VariableDeclaratorSyntax, error) {
	w, err := r.Wrap(VariableDeclarator, n)
	return VariableDeclaratorSyntax{w}, err
}

func (v VariableDeclaratorSyntax) Name() (host.Node, error)        { return v.node(PropName) }
func (v VariableDeclaratorSyntax) Initializer() (host.Node, error) { return v.node(PropInitializer) }

// QueryExpressionSyntax is a query comprehension.
type QueryExpressionSyntax struct{ Node }

// QueryExpression wraps n as a query expression.
func (r *Registry) QueryExpression(n host.Node) (QueryExpressionSyntax, error) {
	w, err := r.Wrap(QueryExpression, n)
	return QueryExpressionSyntax{w}, err
}

// Clauses returns the clauses in source order.
func (q QueryExpressionSyntax) Clauses() ([]QueryClauseSyntax, error) {
	raw, err := q.nodes(PropClauses)
	if err != nil {
		return nil, err
	}
	out := make([]QueryClauseSyntax, 0, len(raw))
	for _, n := range raw {
		w, err := q.d.reg.Wrap(QueryClause, n)
		if err != nil {
			return nil, err
		}
		out = append(out, QueryClauseSyntax{w})
	}
	return out, nil
}

// QueryClauseSyntax is any clause of a query expression.
type QueryClauseSyntax struct{ Node }

// Keyword returns the clause's first token.
func (c QueryClauseSyntax) Keyword() (host.Node, error) { return c.node(PropKeyword) }

// AsWhere is a checked downcast.
func (c QueryClauseSyntax) AsWhere() (WhereClauseSyntax, bool) {
	n, ok := c.As(WhereClause)
	return WhereClauseSyntax{n}, ok
}

// WhereClauseSyntax is a where clause.
type WhereClauseSyntax struct{ Node }

func (w WhereClauseSyntax) Condition() (host.Node, error) { return w.node(PropCondition) }

// AsClause is the total upcast to QueryClause.
func (w WhereClauseSyntax) AsClause() QueryClauseSyntax {
	return QueryClauseSyntax{w.upcast(QueryClause)}
}

// RegionDirectiveSyntax is a #region directive.
type RegionDirectiveSyntax struct{ Node }

// RegionDirective wraps n as a region directive.
func (r *Registry) RegionDirective(n host.Node) (RegionDirectiveSyntax, error) {
	w, err := r.Wrap(RegionDirective, n)
	return RegionDirectiveSyntax{w}, err
}

// Content returns the region name, if any.
func (d RegionDirectiveSyntax) Content() (host.Node, error) { return d.node(PropContent) }

// MemberAccessSyntax is a dotted member access.
type MemberAccessSyntax struct{ Node }

// MemberAccess wraps n as a member access.
func (r *Registry) MemberAccess(n host.Node) (MemberAccessSyntax, error) {
	w, err := r.Wrap(MemberAccess, n)
	return MemberAccessSyntax{w}, err
}

func (m MemberAccessSyntax) Expression() (host.Node, error) { return m.node(PropExpression) }
func (m MemberAccessSyntax) Name() (host.Node, error)       { return m.node(PropName) }

// CollectionExpressionSyntax is a collection expression.
type CollectionExpressionSyntax struct{ Node }

func (c CollectionExpressionSyntax) Elements() ([]host.Node, error) { return c.nodes(PropElements) }
