// Package host defines the surfaces sharplint consumes from the syntax tree
// provider and the semantic model provider. Implementations live in
// subpackages: tsitter adapts a tree-sitter C# grammar, hosttest builds
// in-memory trees for arbitrary simulated host versions.
package host

import (
	"context"
	"fmt"
)

// Point is a zero-based row and byte column.
type Point struct {
	Row    uint32
	Column uint32
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row+1, p.Column+1)
}

// Span is a half-open byte range [Start, End).
type Span struct {
	Start uint32
	End   uint32
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() uint32 {
	return s.End - s.Start
}

// Contains reports whether offset lies inside s.
func (s Span) Contains(offset uint32) bool {
	return s.Start <= offset && offset < s.End
}

// Overlaps reports whether two spans share at least one byte, or whether an
// empty span sits strictly inside the other.
func (s Span) Overlaps(o Span) bool {
	if s.Len() == 0 && o.Len() == 0 {
		return s.Start == o.Start
	}
	if s.Len() == 0 {
		return o.Start < s.Start && s.Start < o.End
	}
	if o.Len() == 0 {
		return s.Start < o.Start && o.Start < s.End
	}
	return s.Start < o.End && o.Start < s.End
}

// Node is a node of a concrete syntax tree. Child, ChildByFieldName and
// Parent return a nil interface when there is no such node.
type Node interface {
	Type() string
	StartByte() uint32
	EndByte() uint32
	StartPoint() Point
	EndPoint() Point
	ChildCount() int
	Child(i int) Node
	FieldNameForChild(i int) string
	ChildByFieldName(name string) Node
	Parent() Node
	IsNamed() bool
	IsExtra() bool
	IsMissing() bool
	HasError() bool
}

// Tree is a parsed document.
type Tree interface {
	Root() Node
	Source() []byte
	Language() Language
	Path() string
}

// Language is the discoverable surface of a host version: every node kind
// (named and anonymous) and every field name it knows.
type Language interface {
	Name() string
	NodeKinds() []string
	FieldNames() []string
}

// Parser produces trees for one language.
type Parser interface {
	Language() Language
	Parse(ctx context.Context, path string, src []byte) (Tree, error)
}
