package tsitter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sharplint/internal/host"
)

func parse(t *testing.T, src string) host.Tree {
	t.Helper()
	tree, err := NewParser(CSharp()).Parse(context.Background(), "Test.cs", []byte(src))
	require.NoError(t, err)
	return tree
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"Program.cs", "csharp", true},
		{"script.CSX", "csharp", true},
		{"main.go", "", false},
		{"README", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := LanguageForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLanguageByName(t *testing.T) {
	t.Parallel()

	l, ok := LanguageByName("csharp")
	require.True(t, ok)
	assert.Same(t, CSharp(), l)

	_, ok = LanguageByName("go")
	assert.False(t, ok)
}

func TestCSharpTables(t *testing.T) {
	t.Parallel()

	lang := CSharp()
	assert.Same(t, lang, CSharp())
	assert.Equal(t, "csharp", lang.Name())
	assert.Contains(t, lang.NodeKinds(), "compilation_unit")
	assert.Contains(t, lang.NodeKinds(), "class_declaration")
	assert.Contains(t, lang.NodeKinds(), "identifier")
	assert.Contains(t, lang.NodeKinds(), "comment")
	assert.Contains(t, lang.FieldNames(), "name")
	assert.Contains(t, lang.FieldNames(), "body")
}

func TestParse(t *testing.T) {
	t.Parallel()

	src := "class Foo\n{\n    int x;\n}\n"
	tree := parse(t, src)
	root := tree.Root()
	require.NotNil(t, root)
	assert.Equal(t, "compilation_unit", root.Type())
	assert.Nil(t, root.Parent())
	assert.Equal(t, "Test.cs", tree.Path())
	assert.Equal(t, []byte(src), tree.Source())

	class := root.Child(0)
	require.NotNil(t, class)
	assert.Equal(t, "class_declaration", class.Type())

	name := class.ChildByFieldName("name")
	require.NotNil(t, name)
	assert.Equal(t, "Foo", host.Text(tree.Source(), name))
	assert.Equal(t, host.Point{Row: 0, Column: 6}, name.StartPoint())
	assert.Nil(t, class.ChildByFieldName("no_such_field"))
}

func TestNodeIdentity(t *testing.T) {
	t.Parallel()

	tree := parse(t, "class Foo { }")
	root := tree.Root()
	a := root.Child(0)
	b := root.Child(0)
	assert.True(t, a == b)
	assert.True(t, host.SameNode(a.Parent(), root))
}

func TestFindBySpan(t *testing.T) {
	t.Parallel()

	src := "class Foo { int x; }"
	tree := parse(t, src)
	n := host.FindBySpan(tree.Root(), host.Span{Start: 6, End: 9}, "identifier")
	require.NotNil(t, n)
	assert.Equal(t, "Foo", host.Text(tree.Source(), n))
	assert.Equal(t, "name", host.FieldOf(n))
}
