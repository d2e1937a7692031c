package lightup

import "github.com/jward/sharplint/internal/host"

// Node is a host syntax node viewed as a shape. Nodes are comparable values:
// wrapping the same node as the same shape yields equal Nodes. The zero
// Node wraps nothing: its Registry is nil and every Get fails with
// *UnsupportedError.
type Node struct {
	d   *Descriptor
	raw host.Node
}

// Shape returns the shape n is viewed as.
func (n Node) Shape() Shape {
	if n.d == nil {
		return ShapeInvalid
	}
	return n.d.shape
}

// Raw returns the wrapped host node.
func (n Node) Raw() host.Node { return n.raw }

// IsZero reports whether n wraps nothing.
func (n Node) IsZero() bool { return n.raw == nil }

// Span returns the byte span of the wrapped node.
func (n Node) Span() host.Span { return host.SpanOf(n.raw) }

// Registry returns the registry that produced n.
func (n Node) Registry() *Registry {
	if n.d == nil {
		return nil
	}
	return n.d.reg
}

// As views the same node as s, which may be a parent or a specialisation of
// n's shape. It reports false when the node is not an instance of s.
func (n Node) As(s Shape) (Node, bool) {
	if n.d == nil || !n.d.reg.IsInstance(s, n.raw) {
		return Node{}, false
	}
	return Node{d: n.d.reg.descs[s], raw: n.raw}, true
}

// upcast views n as one of its parent shapes. It cannot fail.
func (n Node) upcast(s Shape) Node {
	if n.d == nil {
		return Node{}
	}
	return Node{d: n.d.reg.descs[s], raw: n.raw}
}

// Get reads a property by name.
func (n Node) Get(prop Property) (any, error) {
	if n.d == nil {
		return nil, &UnsupportedError{Shape: ShapeInvalid, Property: prop}
	}
	rd, err := n.d.reader(prop)
	if err != nil {
		return nil, err
	}
	return rd(n.d.reg, n.raw), nil
}

func (n Node) node(prop Property) (host.Node, error) {
	v, err := n.Get(prop)
	if err != nil {
		return nil, err
	}
	hn, _ := v.(host.Node)
	return hn, nil
}

func (n Node) nodes(prop Property) ([]host.Node, error) {
	v, err := n.Get(prop)
	if err != nil {
		return nil, err
	}
	hn, _ := v.([]host.Node)
	return hn, nil
}

// Operation is a semantic operation viewed as a shape. Like Node, it is a
// comparable value, and its zero value fails every Get.
type Operation struct {
	d   *Descriptor
	raw host.Operation
}

// Shape returns the shape op is viewed as.
func (op Operation) Shape() Shape {
	if op.d == nil {
		return ShapeInvalid
	}
	return op.d.shape
}

// Raw returns the wrapped host operation.
func (op Operation) Raw() host.Operation { return op.raw }

// IsZero reports whether op wraps nothing.
func (op Operation) IsZero() bool { return op.raw == nil }

// Syntax returns the syntax node the operation was produced for.
func (op Operation) Syntax() host.Node {
	if op.raw == nil {
		return nil
	}
	return op.raw.Syntax()
}

// As views the same operation as s.
func (op Operation) As(s Shape) (Operation, bool) {
	if op.d == nil || !op.d.reg.IsOperation(s, op.raw) {
		return Operation{}, false
	}
	return Operation{d: op.d.reg.descs[s], raw: op.raw}, true
}

func (op Operation) upcast(s Shape) Operation {
	if op.d == nil {
		return Operation{}
	}
	return Operation{d: op.d.reg.descs[s], raw: op.raw}
}

// Get reads a property by name.
func (op Operation) Get(prop Property) (any, error) {
	if op.d == nil {
		return nil, &UnsupportedError{Shape: ShapeInvalid, Property: prop}
	}
	rd, err := op.d.reader(prop)
	if err != nil {
		return nil, err
	}
	return rd(op.d.reg, op.raw), nil
}
