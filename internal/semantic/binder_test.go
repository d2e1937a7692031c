package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/host/tsitter"
)

const sample = `class C
{
    private int _x;
    private static int s;
    const int K = 1;
    public int P { get; set; }

    void M(int a)
    {
        var b = a;
        _x = b;
        this._x = 2;
        Run();
        P = K;
    }

    static void S()
    {
        s = 1;
    }

    void Run() { }
}
`

func parse(t *testing.T, src string) host.Tree {
	t.Helper()
	tree, err := tsitter.NewParser(tsitter.CSharp()).Parse(context.Background(), "C.cs", []byte(src))
	require.NoError(t, err)
	return tree
}

// identifiers returns the identifier nodes spelling name, in source order.
func identifiers(tree host.Tree, name string) []host.Node {
	var out []host.Node
	host.Walk(tree.Root(), func(n host.Node) bool {
		if n.Type() == "identifier" && host.Text(tree.Source(), n) == name {
			out = append(out, n)
		}
		return true
	})
	return out
}

func TestModel_DeclarationsAndReferences(t *testing.T) {
	t.Parallel()

	tree := parse(t, sample)
	model := NewProvider(nil).Model(tree)

	xs := identifiers(tree, "_x")
	require.Len(t, xs, 3)

	decl, ok := model.Symbol(xs[0])
	require.True(t, ok)
	assert.Equal(t, "_x", decl.Name)
	assert.Equal(t, host.SymbolField, decl.Kind)
	assert.Equal(t, "C", decl.Container)
	assert.False(t, decl.IsStatic)

	op, ok := model.Operation(xs[1])
	require.True(t, ok)
	assert.Equal(t, KindFieldReference, op.Kind())
	sym, ok := op.Value(MemberSymbol)
	require.True(t, ok)
	assert.Same(t, decl, sym)
	inst, ok := op.Value(MemberInstance)
	require.True(t, ok)
	assert.Nil(t, inst)

	// this._x is one operation on the member access.
	_, ok = model.Operation(xs[2])
	assert.False(t, ok)
	access := xs[2].Parent()
	require.Equal(t, "member_access_expression", access.Type())
	op, ok = model.Operation(access)
	require.True(t, ok)
	inst, ok = op.Value(MemberInstance)
	require.True(t, ok)
	require.NotNil(t, inst)
	assert.Equal(t, "this", host.Text(tree.Source(), inst.(host.Node)))

	refs := model.References(decl)
	require.Len(t, refs, 3)
	for i, r := range refs {
		assert.True(t, host.SameNode(xs[i], r), "reference %d", i)
	}
}

func TestModel_LocalsAndParameters(t *testing.T) {
	t.Parallel()

	tree := parse(t, sample)
	model := NewProvider(nil).Model(tree)

	as := identifiers(tree, "a")
	require.Len(t, as, 2)
	op, ok := model.Operation(as[1])
	require.True(t, ok)
	assert.Equal(t, KindParameterReference, op.Kind())

	bs := identifiers(tree, "b")
	require.Len(t, bs, 2)
	_, ok = model.Operation(bs[0])
	assert.False(t, ok, "declaration is not a reference")
	op, ok = model.Operation(bs[1])
	require.True(t, ok)
	assert.Equal(t, KindLocalReference, op.Kind())
	sym, ok := model.Symbol(bs[0])
	require.True(t, ok)
	assert.Equal(t, host.SymbolLocal, sym.Kind)
}

func TestModel_MemberKinds(t *testing.T) {
	t.Parallel()

	tree := parse(t, sample)
	model := NewProvider(nil).Model(tree)

	runs := identifiers(tree, "Run")
	require.Len(t, runs, 2)
	op, ok := model.Operation(runs[0])
	require.True(t, ok)
	assert.Equal(t, KindMethodReference, op.Kind())

	ps := identifiers(tree, "P")
	require.Len(t, ps, 2)
	op, ok = model.Operation(ps[1])
	require.True(t, ok)
	assert.Equal(t, KindPropertyReference, op.Kind())

	ks := identifiers(tree, "K")
	require.Len(t, ks, 2)
	op, ok = model.Operation(ks[1])
	require.True(t, ok)
	v, _ := op.Value(MemberSymbol)
	k := v.(*host.Symbol)
	assert.True(t, k.IsConst)
	assert.True(t, k.IsStatic)

	ss := identifiers(tree, "s")
	require.Len(t, ss, 2)
	m := model.(*Model)
	assert.True(t, m.InStaticContext(ss[1]))
	assert.False(t, m.InStaticContext(ks[1]))
}

func TestModel_TypeNamesAreNotReferences(t *testing.T) {
	t.Parallel()

	tree := parse(t, `class D
{
    int n;
    void M()
    {
        var d = new D();
        int n = 3;
        n++;
    }
}
`)
	model := NewProvider(nil).Model(tree)

	for _, d := range identifiers(tree, "D") {
		_, ok := model.Operation(d)
		assert.False(t, ok)
	}
	// The local shadows the field.
	ns := identifiers(tree, "n")
	require.Len(t, ns, 3)
	op, ok := model.Operation(ns[2])
	require.True(t, ok)
	assert.Equal(t, KindLocalReference, op.Kind())
}

func TestCapabilities_RestrictSurface(t *testing.T) {
	t.Parallel()

	caps := Capabilities{KindFieldReference: {MemberSymbol}}
	p := NewProvider(caps)
	assert.Equal(t, []string{KindFieldReference}, p.Capabilities().OperationKinds())

	tree := parse(t, sample)
	model := p.Model(tree)

	op, ok := model.Operation(identifiers(tree, "_x")[1])
	require.True(t, ok)
	_, ok = op.Value(MemberInstance)
	assert.False(t, ok)

	_, ok = model.Operation(identifiers(tree, "Run")[0])
	assert.False(t, ok, "method references are not advertised")
}

func TestDefaultCapabilities(t *testing.T) {
	t.Parallel()

	kinds := NewProvider(nil).Capabilities().OperationKinds()
	assert.Equal(t, []string{KindFieldReference, KindPropertyReference, KindMethodReference, KindLocalReference, KindParameterReference}, kinds)
}
