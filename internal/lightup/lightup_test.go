package lightup

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/host/hosttest"
	"github.com/jward/sharplint/internal/host/tsitter"
)

var baseKinds = []string{
	"compilation_unit", "identifier", "comment", "modifier",
	"class_declaration", "struct_declaration", "declaration_list",
	"field_declaration", "variable_declaration", "variable_declarator",
	"equals_value_clause", "integer_literal", "=", ";", "{", "}",
}

// oldHost lacks the declarator name field, collection expressions and any
// region content node.
func oldHost() *hosttest.Language {
	kinds := append([]string{"region_directive", "preprocessor_call"}, baseKinds...)
	return hosttest.NewLanguage("sim-old", kinds, []string{"type", "body"})
}

func newHost() *hosttest.Language {
	kinds := append([]string{"preproc_region", "preproc_arg", "collection_expression"}, baseKinds...)
	return hosttest.NewLanguage("sim-new", kinds, []string{"type", "body", "name", "content"})
}

func mustRegistry(t *testing.T, lang host.Language, caps host.SemanticCapabilities) *Registry {
	t.Helper()
	p, err := Probe(lang, caps)
	require.NoError(t, err)
	return NewRegistry(p)
}

// fieldTree builds "readonly int x = 1 ;" inside a struct, laid out the way
// the given host version shapes declarators.
func fieldTree(lang *hosttest.Language, named bool) *hosttest.Tree {
	name := hosttest.L("identifier", "x")
	var declarator *hosttest.Spec
	if named {
		declarator = hosttest.N("variable_declarator",
			name.As("name"), hosttest.T("="), hosttest.L("integer_literal", "1"))
	} else {
		declarator = hosttest.N("variable_declarator",
			name, hosttest.N("equals_value_clause", hosttest.T("="), hosttest.L("integer_literal", "1")))
	}
	return hosttest.Build(lang, "S.cs", hosttest.N("compilation_unit",
		hosttest.N("struct_declaration",
			hosttest.T("struct"), hosttest.L("identifier", "S").As("name"),
			hosttest.N("declaration_list",
				hosttest.T("{"),
				hosttest.N("field_declaration",
					hosttest.N("modifier", hosttest.T("readonly")),
					hosttest.N("variable_declaration", hosttest.L("predefined_type", "int").As("type"), declarator),
					hosttest.T(";")),
				hosttest.T("}")).As("body"))))
}

func findKind(root host.Node, kind string) host.Node {
	var found host.Node
	host.Walk(root, func(n host.Node) bool {
		if found == nil && n.Type() == kind {
			found = n
		}
		return found == nil
	})
	return found
}

func TestProbe_MandatoryShapeMissing(t *testing.T) {
	t.Parallel()

	lang := hosttest.NewLanguage("broken", []string{"compilation_unit", "comment"}, nil)
	_, err := Probe(lang, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMandatoryShape)
	assert.Contains(t, err.Error(), "Identifier")
}

func TestProbe_RecordsAbsence(t *testing.T) {
	t.Parallel()

	oldP, err := Probe(oldHost(), nil)
	require.NoError(t, err)
	newP, err := Probe(newHost(), nil)
	require.NoError(t, err)

	assert.False(t, oldP.Has(CollectionExpression))
	assert.True(t, newP.Has(CollectionExpression))
	assert.Contains(t, oldP.Absent(), CollectionExpression)

	assert.Equal(t, []string{"region_directive"}, oldP.Kinds(RegionDirective))
	assert.Equal(t, []string{"preproc_region"}, newP.Kinds(RegionDirective))

	// Abstract shapes are present when any specialisation is.
	assert.True(t, oldP.Has(TypeDeclaration))
	assert.Empty(t, oldP.Kinds(TypeDeclaration))
	assert.False(t, oldP.Has(QueryClause))

	assert.Len(t, oldP.Fingerprint(), 64)
	assert.NotEqual(t, oldP.Fingerprint(), newP.Fingerprint())
}

func TestProbe_FingerprintStable(t *testing.T) {
	t.Parallel()

	a, err := Probe(newHost(), hosttest.Capabilities{"FieldReference": {"Symbol", "Instance"}})
	require.NoError(t, err)
	b, err := Probe(newHost(), hosttest.Capabilities{"FieldReference": {"Instance", "Symbol"}})
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestProbe_CSharpGrammar(t *testing.T) {
	t.Parallel()

	p, err := Probe(tsitter.CSharp(), nil)
	require.NoError(t, err)
	for _, s := range []Shape{CompilationUnit, Identifier, Comment, ClassDeclaration, StructDeclaration,
		FieldDeclaration, MethodDeclaration, VariableDeclarator, QueryExpression, WhereClause, StringLiteral} {
		assert.True(t, p.Has(s), "shape %s", s)
	}
	assert.False(t, p.Has(FieldReference), "no semantic provider means no operations")
}

func TestWrap_Idempotent(t *testing.T) {
	t.Parallel()

	lang := newHost()
	reg := mustRegistry(t, lang, nil)
	tree := fieldTree(lang, true)
	raw := findKind(tree.Root(), "field_declaration")

	a, err := reg.Wrap(FieldDeclaration, raw)
	require.NoError(t, err)
	b, err := reg.Wrap(FieldDeclaration, raw)
	require.NoError(t, err)
	assert.True(t, a == b)

	fa, err := reg.FieldDeclaration(raw)
	require.NoError(t, err)
	fb, err := reg.FieldDeclaration(raw)
	require.NoError(t, err)
	assert.True(t, fa == fb)
}

func TestWrap_SafeMismatch(t *testing.T) {
	t.Parallel()

	lang := newHost()
	reg := mustRegistry(t, lang, nil)
	tree := fieldTree(lang, true)
	raw := findKind(tree.Root(), "field_declaration")

	assert.False(t, reg.IsInstance(FieldDeclaration, nil))
	assert.False(t, reg.IsInstance(ClassDeclaration, raw))
	assert.False(t, reg.IsInstance(FieldReference, raw))

	_, err := reg.Wrap(ClassDeclaration, raw)
	var castErr *InvalidCastError
	require.ErrorAs(t, err, &castErr)
	assert.Equal(t, ClassDeclaration, castErr.Shape)
	assert.Equal(t, "field_declaration", castErr.Actual)
	assert.ErrorIs(t, err, ErrInvalidShapeCast)

	_, err = reg.Wrap(FieldDeclaration, nil)
	assert.ErrorIs(t, err, ErrInvalidShapeCast)

	// A shape the host version lacks still reports the actual kind.
	old := oldHost()
	oldReg := mustRegistry(t, old, nil)
	oldField := findKind(fieldTree(old, false).Root(), "field_declaration")
	_, err = oldReg.Wrap(CollectionExpression, oldField)
	require.ErrorAs(t, err, &castErr)
	assert.Equal(t, CollectionExpression, castErr.Shape)
	assert.Equal(t, "field_declaration", castErr.Actual)
	assert.ErrorIs(t, err, ErrInvalidShapeCast)
	assert.ErrorIs(t, err, ErrCapabilityAbsent)

	_, err = oldReg.WrapOperation(LocalReference, &hosttest.Operation{OpKind: "FieldReference", Node: oldField})
	require.ErrorAs(t, err, &castErr)
	assert.Equal(t, "FieldReference", castErr.Actual)
	assert.ErrorIs(t, err, ErrInvalidShapeCast)
	assert.ErrorIs(t, err, ErrCapabilityAbsent)
}

func TestWrap_SpecialisedKindIsInstanceOfFamily(t *testing.T) {
	t.Parallel()

	lang := newHost()
	reg := mustRegistry(t, lang, nil)
	tree := fieldTree(lang, true)
	raw := findKind(tree.Root(), "struct_declaration")

	assert.True(t, reg.IsInstance(StructDeclaration, raw))
	assert.True(t, reg.IsInstance(TypeDeclaration, raw))
	assert.False(t, reg.IsInstance(ClassDeclaration, raw))
	assert.Equal(t, []Shape{StructDeclaration}, reg.ShapesOf("struct_declaration"))

	td, err := reg.TypeDeclaration(raw)
	require.NoError(t, err)
	name, err := td.Name()
	require.NoError(t, err)
	assert.Equal(t, "S", host.Text(tree.Source(), name))

	st, ok := td.AsStruct()
	require.True(t, ok)
	assert.True(t, st.AsType() == td)
	_, ok = td.AsClass()
	assert.False(t, ok)
}

func TestUpcastIdentity(t *testing.T) {
	t.Parallel()

	lang := newHost()
	reg := mustRegistry(t, lang, nil)
	tree := fieldTree(lang, true)
	raw := findKind(tree.Root(), "field_declaration")

	f, err := reg.FieldDeclaration(raw)
	require.NoError(t, err)
	m := f.AsMember()
	assert.True(t, host.SameNode(m.Raw(), f.Raw()))
	assert.Equal(t, MemberDeclaration, m.Shape())

	direct, err := reg.MemberDeclaration(raw)
	require.NoError(t, err)
	assert.True(t, m == direct)

	back, ok := m.AsField()
	require.True(t, ok)
	assert.True(t, back == f)
	_, ok = m.AsMethod()
	assert.False(t, ok)

	mods, err := m.Modifiers()
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "readonly", host.Text(tree.Source(), mods[0]))
}

func TestZeroValue(t *testing.T) {
	t.Parallel()

	var n Node
	assert.True(t, n.IsZero())
	assert.Equal(t, ShapeInvalid, n.Shape())
	assert.Nil(t, n.Registry())
	_, err := n.Get(PropName)
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, PropName, unsupported.Property)
	assert.ErrorIs(t, err, ErrUnsupportedInHostVersion)

	_, err = MemberDeclarationSyntax{}.Modifiers()
	assert.ErrorIs(t, err, ErrUnsupportedInHostVersion)
	assert.True(t, ClassDeclarationSyntax{}.AsType().IsZero())
	_, ok := n.As(FieldDeclaration)
	assert.False(t, ok)

	var op Operation
	assert.True(t, op.IsZero())
	assert.Nil(t, op.Syntax())
	_, err = op.Get(PropName)
	assert.ErrorIs(t, err, ErrUnsupportedInHostVersion)
	assert.True(t, FieldReferenceOperation{}.AsMemberReference().IsZero())
}

func TestDeclaratorName_BindsPerHostVersion(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		lang  *hosttest.Language
		named bool
	}{
		{"old layout", oldHost(), false},
		{"new layout", newHost(), true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reg := mustRegistry(t, tc.lang, nil)
			tree := fieldTree(tc.lang, tc.named)
			f, err := reg.FieldDeclaration(findKind(tree.Root(), "field_declaration"))
			require.NoError(t, err)

			decls, err := f.Declarators()
			require.NoError(t, err)
			require.Len(t, decls, 1)

			name, err := decls[0].Name()
			require.NoError(t, err)
			assert.Equal(t, "x", host.Text(tree.Source(), name))

			init, err := decls[0].Initializer()
			require.NoError(t, err)
			assert.Equal(t, "1", host.Text(tree.Source(), init))
		})
	}
}

func TestMissingCapabilityIsolation(t *testing.T) {
	t.Parallel()

	lang := oldHost()
	reg := mustRegistry(t, lang, hosttest.Capabilities{"FieldReference": {"Symbol"}})

	// Absent shape.
	assert.False(t, reg.Supports(CollectionExpression))
	ftree := fieldTree(lang, false)
	_, err := reg.Wrap(CollectionExpression, ftree.Root())
	var absent *InvalidCastError
	require.ErrorAs(t, err, &absent)
	assert.Equal(t, CollectionExpression, absent.Shape)
	assert.True(t, absent.Absent)
	assert.ErrorIs(t, err, ErrCapabilityAbsent)
	assert.ErrorIs(t, err, ErrInvalidShapeCast)

	// Present shape, property with no binding on this version.
	tree := hosttest.Build(lang, "R.cs", hosttest.N("compilation_unit",
		hosttest.N("preprocessor_call", hosttest.T("#"), hosttest.N("region_directive", hosttest.T("region")))))
	region, err := reg.RegionDirective(findKind(tree.Root(), "region_directive"))
	require.NoError(t, err)
	_, err = region.Content()
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, RegionDirective, unsupported.Shape)
	assert.Equal(t, PropContent, unsupported.Property)
	assert.ErrorIs(t, err, ErrUnsupportedInHostVersion)
	assert.False(t, reg.Descriptor(RegionDirective).Supports(PropContent))

	// Repeated reads keep failing the same way.
	_, err = region.Content()
	assert.ErrorIs(t, err, ErrUnsupportedInHostVersion)

	// Other shapes and properties are unaffected.
	f, err := reg.FieldDeclaration(findKind(ftree.Root(), "field_declaration"))
	require.NoError(t, err)
	decls, err := f.Declarators()
	require.NoError(t, err)
	assert.Len(t, decls, 1)

	// Operation member missing from the provider.
	op := &hosttest.Operation{OpKind: "FieldReference", Node: findKind(ftree.Root(), "identifier"),
		Members: map[string]any{"Symbol": &host.Symbol{Name: "x", Kind: host.SymbolField}}}
	fr, err := reg.FieldReference(op)
	require.NoError(t, err)
	mr := fr.AsMemberReference()
	sym, err := mr.Symbol()
	require.NoError(t, err)
	assert.Equal(t, "x", sym.Name)
	_, err = mr.Instance()
	assert.ErrorIs(t, err, ErrUnsupportedInHostVersion)

	// Operation kinds the provider never produces.
	assert.False(t, reg.Supports(LocalReference))
	assert.False(t, reg.IsOperation(LocalReference, op))
}

func TestOperation_IdempotentAndDowncast(t *testing.T) {
	t.Parallel()

	lang := newHost()
	caps := hosttest.Capabilities{
		"FieldReference":    {"Symbol", "Instance"},
		"PropertyReference": {"Symbol", "Instance"},
	}
	reg := mustRegistry(t, lang, caps)
	op := &hosttest.Operation{OpKind: "FieldReference", Members: map[string]any{}}

	a, err := reg.WrapOperation(MemberReference, op)
	require.NoError(t, err)
	b, err := reg.WrapOperation(MemberReference, op)
	require.NoError(t, err)
	assert.True(t, a == b)

	mr := MemberReferenceOperation{a}
	fr, ok := mr.AsFieldReference()
	require.True(t, ok)
	assert.True(t, fr.AsMemberReference() == mr)
	_, ok = mr.AsPropertyReference()
	assert.False(t, ok)

	inst, err := mr.Instance()
	require.NoError(t, err)
	assert.Nil(t, inst)

	_, err = reg.WrapOperation(FieldDeclaration, op)
	assert.ErrorIs(t, err, ErrInvalidShapeCast)
}

func TestCache_FirstUseWins(t *testing.T) {
	t.Parallel()

	c := NewCache()
	lang := newHost()

	var wg sync.WaitGroup
	regs := make([]*Registry, 8)
	for i := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Registry(lang, nil)
			if err == nil {
				regs[i] = r
			}
		}()
	}
	wg.Wait()
	for _, r := range regs {
		require.NotNil(t, r)
		assert.Same(t, regs[0], r)
	}

	// Same name, different tables: the cached entry wins.
	other := hosttest.NewLanguage("sim-new", baseKinds, nil)
	r, err := c.Registry(other, nil)
	require.NoError(t, err)
	assert.Same(t, regs[0], r)
}

func TestCache_RemembersFailure(t *testing.T) {
	t.Parallel()

	c := NewCache()
	lang := hosttest.NewLanguage("broken", []string{"comment"}, nil)
	_, err1 := c.Registry(lang, nil)
	_, err2 := c.Registry(lang, nil)
	assert.ErrorIs(t, err1, ErrMandatoryShape)
	assert.True(t, errors.Is(err2, ErrMandatoryShape))
}

func TestShapeNames(t *testing.T) {
	t.Parallel()

	for _, s := range Shapes() {
		got, ok := ParseShape(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	assert.True(t, WhereClause.IsA(QueryClause))
	assert.True(t, FieldReference.IsA(MemberReference))
	assert.False(t, LocalReference.IsA(MemberReference))
	assert.True(t, FieldReference.IsOperation())
	assert.False(t, FieldDeclaration.IsOperation())
}
