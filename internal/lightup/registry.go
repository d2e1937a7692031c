package lightup

import (
	"sync"

	"github.com/jward/sharplint/internal/host"
)

// Registry holds one descriptor per shape, bound against a profile. It is
// built once per host version and is safe for concurrent use; property
// bindings resolve lazily, at most once each.
type Registry struct {
	profile *Profile
	descs   [numShapes]*Descriptor
	// family maps a shape to every host kind implementing it, specialised
	// shapes included.
	family [numShapes]map[string]bool
	byKind map[string][]Shape
}

// Descriptor is the binding of one shape to a host version.
type Descriptor struct {
	shape    Shape
	kinds    []string
	parent   *Descriptor
	reg      *Registry
	bindings map[Property]*binding
}

type binding struct {
	once       sync.Once
	candidates []accessor
	read       reader
}

// NewRegistry builds descriptors for every shape of p.
func NewRegistry(p *Profile) *Registry {
	r := &Registry{profile: p, byKind: make(map[string][]Shape)}
	for s := ShapeInvalid + 1; s < numShapes; s++ {
		spec := &shapeTable[s]
		d := &Descriptor{
			shape:    s,
			kinds:    p.Kinds(s),
			reg:      r,
			bindings: make(map[Property]*binding, len(spec.props)),
		}
		for prop, cands := range spec.props {
			d.bindings[prop] = &binding{candidates: cands}
		}
		r.descs[s] = d
	}
	for s := ShapeInvalid + 1; s < numShapes; s++ {
		if parent := shapeTable[s].parent; parent != ShapeInvalid {
			r.descs[s].parent = r.descs[parent]
		}
		set := make(map[string]bool)
		for _, f := range familyOf(s) {
			for _, k := range p.Kinds(f) {
				set[k] = true
			}
		}
		r.family[s] = set
		for _, k := range p.Kinds(s) {
			r.byKind[k] = append(r.byKind[k], s)
		}
	}
	return r
}

// Profile returns the profile the registry was bound against.
func (r *Registry) Profile() *Profile { return r.profile }

// Descriptor returns the descriptor of s, or nil for an invalid shape.
func (r *Registry) Descriptor(s Shape) *Descriptor {
	if s <= ShapeInvalid || s >= numShapes {
		return nil
	}
	return r.descs[s]
}

// Supports reports whether s exists in the host version.
func (r *Registry) Supports(s Shape) bool { return r.profile.Has(s) }

// Kinds returns every host kind that is an instance of s.
func (r *Registry) Kinds(s Shape) []string {
	if s <= ShapeInvalid || s >= numShapes {
		return nil
	}
	out := make([]string, 0, len(r.family[s]))
	for _, f := range familyOf(s) {
		out = append(out, r.profile.Kinds(f)...)
	}
	return out
}

// ShapesOf returns the most specific shapes implemented by a host kind.
func (r *Registry) ShapesOf(kind string) []Shape { return r.byKind[kind] }

// IsInstance reports whether n is an instance of s. It is false for nil and
// never fails.
func (r *Registry) IsInstance(s Shape, n host.Node) bool {
	if n == nil || s <= ShapeInvalid || s >= numShapes || s.IsOperation() {
		return false
	}
	return r.family[s][n.Type()]
}

// IsOperation reports whether op is an instance of operation shape s.
func (r *Registry) IsOperation(s Shape, op host.Operation) bool {
	if op == nil || s <= ShapeInvalid || s >= numShapes || !s.IsOperation() {
		return false
	}
	return r.family[s][op.Kind()]
}

// Wrap returns n viewed as s. Wrapping the same node for the same shape
// twice yields equal values. Any node that is not an instance of s fails
// with *InvalidCastError, including every node when s is absent.
func (r *Registry) Wrap(s Shape, n host.Node) (Node, error) {
	if s <= ShapeInvalid || s >= numShapes || s.IsOperation() {
		return Node{}, &InvalidCastError{Shape: s, Actual: kindOf(n)}
	}
	if !r.IsInstance(s, n) {
		return Node{}, &InvalidCastError{Shape: s, Actual: kindOf(n), Absent: !r.Supports(s)}
	}
	return Node{d: r.descs[s], raw: n}, nil
}

// WrapOperation returns op viewed as s.
func (r *Registry) WrapOperation(s Shape, op host.Operation) (Operation, error) {
	if s <= ShapeInvalid || s >= numShapes || !s.IsOperation() {
		return Operation{}, &InvalidCastError{Shape: s, Actual: opKindOf(op)}
	}
	if !r.IsOperation(s, op) {
		return Operation{}, &InvalidCastError{Shape: s, Actual: opKindOf(op), Absent: !r.Supports(s)}
	}
	return Operation{d: r.descs[s], raw: op}, nil
}

func kindOf(n host.Node) string {
	if n == nil {
		return ""
	}
	return n.Type()
}

func opKindOf(op host.Operation) string {
	if op == nil {
		return ""
	}
	return op.Kind()
}

// Shape returns the shape the descriptor binds.
func (d *Descriptor) Shape() Shape { return d.shape }

// Kinds returns the host kinds implementing the shape itself.
func (d *Descriptor) Kinds() []string { return d.kinds }

// Parent returns the descriptor of the shape d specialises, or nil.
func (d *Descriptor) Parent() *Descriptor { return d.parent }

// Supports reports whether prop can be read on this host version.
func (d *Descriptor) Supports(prop Property) bool {
	_, err := d.reader(prop)
	return err == nil
}

// reader returns the bound accessor for prop, resolving it on first use.
// Properties are inherited from parent shapes.
func (d *Descriptor) reader(prop Property) (reader, error) {
	for cur := d; cur != nil; cur = cur.parent {
		b, ok := cur.bindings[prop]
		if !ok {
			continue
		}
		b.once.Do(func() {
			opKinds := d.reg.Kinds(cur.shape)
			for _, c := range b.candidates {
				if d.reg.profile.satisfies(c.requires, opKinds) {
					b.read = c.read
					return
				}
			}
		})
		if b.read == nil {
			return nil, &UnsupportedError{Shape: d.shape, Property: prop}
		}
		return b.read, nil
	}
	return nil, &UnsupportedError{Shape: d.shape, Property: prop}
}
