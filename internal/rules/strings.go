package rules

import (
	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

var SA1122 = descriptor("SA1122",
	"Use string.Empty for empty strings",
	"Use string.Empty for empty strings",
	CategoryReadability)

// constantContexts require a compile-time constant, which string.Empty is
// not.
var constantContexts = []string{
	"attribute_argument", "attribute_list", "parameter", "switch_label",
	"case_switch_label", "case_pattern_switch_label", "constant_pattern",
}

// StringEmpty replaces "" with string.Empty outside constant contexts.
type StringEmpty struct{}

func (StringEmpty) Descriptors() []diag.Descriptor { return []diag.Descriptor{SA1122} }

func (StringEmpty) Initialize(ctx *analyzer.Context) {
	ctx.RegisterSyntaxNodeAction(func(nc *analyzer.NodeContext) {
		n := nc.Node.Raw()
		if nc.Text(n) == `""` && !inConstantContext(nc.Source(), n) {
			nc.ReportNode(SA1122, n)
		}
	}, lightup.StringLiteral)
}

func (StringEmpty) FixableIDs() []string { return []string{SA1122.ID} }

func (StringEmpty) Fix(ctx *fix.Context) (fix.Fix, bool) {
	n := anchor(ctx, lightup.StringLiteral)
	if n == nil || ctx.Text(n) != `""` {
		return fix.Fix{}, false
	}
	return fix.Fix{
		Title: "Use string.Empty",
		Edits: []fix.Edit{fix.ReplaceNode(n, "string.Empty")},
	}, true
}

func inConstantContext(src []byte, n host.Node) bool {
	if host.Ancestor(n, constantContexts...) != nil {
		return true
	}
	decl := host.Ancestor(n, "field_declaration", "local_declaration_statement")
	if decl == nil {
		return false
	}
	for _, m := range host.ChildrenOfType(decl, "modifier") {
		if host.Text(src, m) == "const" {
			return true
		}
	}
	return false
}
