package host

import (
	"bytes"
	"sort"
)

// Walk visits n and its descendants in pre-order, children in source order.
// Returning false from fn skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		Walk(n.Child(i), fn)
	}
}

// SpanOf returns the byte span of n.
func SpanOf(n Node) Span {
	return Span{Start: n.StartByte(), End: n.EndByte()}
}

// Text returns the source text covered by n.
func Text(src []byte, n Node) string {
	if n == nil {
		return ""
	}
	s, e := n.StartByte(), n.EndByte()
	if int(e) > len(src) || s > e {
		return ""
	}
	return string(src[s:e])
}

// Children returns all children of n.
func Children(n Node) []Node {
	out := make([]Node, 0, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// NamedChildren returns the named children of n.
func NamedChildren(n Node) []Node {
	var out []Node
	for i := 0; i < n.ChildCount(); i++ {
		if c := n.Child(i); c.IsNamed() {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenOfType returns the direct children of n whose type is one of types.
func ChildrenOfType(n Node, types ...string) []Node {
	var out []Node
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		for _, t := range types {
			if c.Type() == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// FirstChildOfType returns the first direct child of n with one of types.
func FirstChildOfType(n Node, types ...string) Node {
	if cs := ChildrenOfType(n, types...); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// FieldOf returns the field name under which n hangs from its parent.
func FieldOf(n Node) string {
	p := n.Parent()
	if p == nil {
		return ""
	}
	for i := 0; i < p.ChildCount(); i++ {
		if SameNode(p.Child(i), n) {
			return p.FieldNameForChild(i)
		}
	}
	return ""
}

// Ancestor returns the nearest proper ancestor of n whose type is one of
// types, or nil.
func Ancestor(n Node, types ...string) Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, t := range types {
			if p.Type() == t {
				return p
			}
		}
	}
	return nil
}

// SameNode reports whether a and b denote the same node. Adapters return
// comparable values, so equality is identity.
func SameNode(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// FindBySpan returns the outermost node under root whose span equals span
// and, when kind is non-empty, whose type equals kind.
func FindBySpan(root Node, span Span, kind string) Node {
	var found Node
	Walk(root, func(n Node) bool {
		if found != nil {
			return false
		}
		if n.EndByte() < span.Start || n.StartByte() > span.End {
			return false
		}
		if SpanOf(n) == span && (kind == "" || n.Type() == kind) {
			found = n
			return false
		}
		return true
	})
	return found
}

// LineIndex maps byte offsets to rows and columns.
type LineIndex struct {
	starts []uint32
}

// NewLineIndex indexes the line starts of src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []uint32{0}
	for i := 0; ; {
		j := bytes.IndexByte(src[i:], '\n')
		if j < 0 {
			break
		}
		i += j + 1
		starts = append(starts, uint32(i))
	}
	return &LineIndex{starts: starts}
}

// Point returns the row and byte column of offset.
func (li *LineIndex) Point(offset uint32) Point {
	row := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	if row < 0 {
		row = 0
	}
	return Point{Row: uint32(row), Column: offset - li.starts[row]}
}

// LineStart returns the offset of the first byte of row.
func (li *LineIndex) LineStart(row uint32) uint32 {
	if int(row) >= len(li.starts) {
		return li.starts[len(li.starts)-1]
	}
	return li.starts[row]
}

// Lines returns the number of lines.
func (li *LineIndex) Lines() int {
	return len(li.starts)
}
