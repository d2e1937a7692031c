package lightup

import "github.com/jward/sharplint/internal/host"

// MemberReferenceOperation is a reference to a member of a type.
type MemberReferenceOperation struct{ Operation }

// MemberReference wraps op as a member reference.
func (r *Registry) MemberReference(op host.Operation) (MemberReferenceOperation, error) {
	w, err := r.WrapOperation(MemberReference, op)
	return MemberReferenceOperation{w}, err
}

// Symbol returns the referenced member.
func (m MemberReferenceOperation) Symbol() (*host.Symbol, error) {
	v, err := m.Get(PropSymbol)
	if err != nil {
		return nil, err
	}
	sym, _ := v.(*host.Symbol)
	return sym, nil
}

// Instance returns the explicit receiver, or nil for an implicit one.
func (m MemberReferenceOperation) Instance() (host.Node, error) {
	v, err := m.Get(PropInstance)
	if err != nil {
		return nil, err
	}
	n, _ := v.(host.Node)
	return n, nil
}

// AsFieldReference is a checked downcast.
func (m MemberReferenceOperation) AsFieldReference() (FieldReferenceOperation, bool) {
	op, ok := m.As(FieldReference)
	return FieldReferenceOperation{op}, ok
}

// AsPropertyReference is a checked downcast.
func (m MemberReferenceOperation) AsPropertyReference() (PropertyReferenceOperation, bool) {
	op, ok := m.As(PropertyReference)
	return PropertyReferenceOperation{op}, ok
}

// FieldReferenceOperation is a reference to a field.
type FieldReferenceOperation struct{ Operation }

// FieldReference wraps op as a field reference.
func (r *Registry) FieldReference(op host.Operation) (FieldReferenceOperation, error) {
	w, err := r.WrapOperation(FieldReference, op)
	return FieldReferenceOperation{w}, err
}

// AsMemberReference is the total upcast to MemberReference.
func (f FieldReferenceOperation) AsMemberReference() MemberReferenceOperation {
	return MemberReferenceOperation{f.upcast(MemberReference)}
}

// PropertyReferenceOperation is a reference to a property.
type PropertyReferenceOperation struct{ Operation }

// AsMemberReference is the total upcast to MemberReference.
func (p PropertyReferenceOperation) AsMemberReference() MemberReferenceOperation {
	return MemberReferenceOperation{p.upcast(MemberReference)}
}

// LocalReferenceOperation is a reference to a local variable.
type LocalReferenceOperation struct{ Operation }

// Symbol returns the referenced local.
func (l LocalReferenceOperation) Symbol() (*host.Symbol, error) {
	v, err := l.Get(PropSymbol)
	if err != nil {
		return nil, err
	}
	sym, _ := v.(*host.Symbol)
	return sym, nil
}
