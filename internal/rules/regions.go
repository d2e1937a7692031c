package rules

import (
	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

var SA1123 = descriptor("SA1123",
	"Do not place regions within elements",
	"Region must not be placed within a code element",
	CategoryReadability)

// elementBodies are the nodes that make up the body of a code element.
var elementBodies = []string{"block", "accessor_list", "arrow_expression_clause"}

// RegionPlacement forbids #region inside method, accessor and other
// element bodies. The diagnostic covers the #region keyword only.
type RegionPlacement struct{}

func (RegionPlacement) Descriptors() []diag.Descriptor { return []diag.Descriptor{SA1123} }

func (RegionPlacement) Initialize(ctx *analyzer.Context) {
	ctx.RegisterSyntaxNodeAction(func(nc *analyzer.NodeContext) {
		n := nc.Node.Raw()
		if host.Ancestor(n, elementBodies...) == nil {
			return
		}
		nc.ReportSpan(SA1123, regionKeyword(nc.Source(), n))
	}, lightup.RegionDirective)
}

// regionKeyword returns the span of the #region keyword of directive n.
// Grammars that split the directive leave the # outside the node.
func regionKeyword(src []byte, n host.Node) host.Span {
	if kw := host.FirstChildOfType(n, "#region"); kw != nil {
		return host.SpanOf(kw)
	}
	start := n.StartByte()
	if int(start) < len(src) && src[start] != '#' && start > 0 && src[start-1] == '#' {
		start--
	}
	end := start
	if int(end) < len(src) && src[end] == '#' {
		end++
	}
	for int(end) < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	for int(end) < len(src) && src[end] >= 'a' && src[end] <= 'z' {
		end++
	}
	return host.Span{Start: start, End: end}
}
