package rules

import (
	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

var SA1101 = descriptor("SA1101",
	"Prefix local calls with this",
	"Prefix local calls with this",
	CategoryReadability)

// noThisContexts are the places where C# does not allow this.
var noThisContexts = []string{
	"field_declaration", "event_field_declaration", "constructor_initializer",
	"attribute_list", "enum_member_declaration",
}

// staticContext is implemented by semantic models that know whether a node
// sits in a static member.
type staticContext interface {
	InStaticContext(n host.Node) bool
}

// PrefixLocalCalls requires instance members of the enclosing type to be
// accessed through this. The include_methods option (default true) extends
// the check to method references.
type PrefixLocalCalls struct{}

func (PrefixLocalCalls) Descriptors() []diag.Descriptor { return []diag.Descriptor{SA1101} }

func (PrefixLocalCalls) Initialize(ctx *analyzer.Context) {
	shapes := []lightup.Shape{lightup.FieldReference, lightup.PropertyReference}
	if ctx.Config().BoolOption(SA1101.ID, "include_methods", true) {
		shapes = append(shapes, lightup.MethodReference)
	}
	ctx.RegisterOperationAction(func(oc *analyzer.OperationContext) {
		op, ok := oc.Operation.As(lightup.MemberReference)
		if !ok {
			return
		}
		ref := lightup.MemberReferenceOperation{Operation: op}
		// A host that cannot say whether the receiver is implicit gets no
		// diagnostic.
		inst, err := ref.Instance()
		if err != nil || inst != nil {
			return
		}
		sym, err := ref.Symbol()
		if err != nil || sym == nil || sym.IsStatic {
			return
		}
		n := op.Syntax()
		if sc, ok := oc.Semantic().(staticContext); ok && sc.InStaticContext(n) {
			return
		}
		if host.Ancestor(n, noThisContexts...) != nil {
			return
		}
		oc.ReportNode(SA1101, n)
	}, shapes...)
}

func (PrefixLocalCalls) FixableIDs() []string { return []string{SA1101.ID} }

func (PrefixLocalCalls) Fix(ctx *fix.Context) (fix.Fix, bool) {
	n := anchor(ctx, lightup.Identifier)
	if n == nil {
		return fix.Fix{}, false
	}
	return fix.Fix{
		Title: "Prefix with this.",
		Edits: []fix.Edit{fix.InsertBeforeNode(n, "this.")},
	}, true
}
