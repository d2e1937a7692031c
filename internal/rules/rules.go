// Package rules holds the built-in style rules. Each rule is a plug-in
// [analyzer.Rule]; rules that can correct their findings also implement
// [fix.Provider].
package rules

import (
	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

// Rule categories.
const (
	CategorySpacing         = "Spacing"
	CategoryReadability     = "Readability"
	CategoryNaming          = "Naming"
	CategoryMaintainability = "Maintainability"
	CategoryDocumentation   = "Documentation"
)

// All returns a fresh instance of every built-in rule.
func All() []analyzer.Rule {
	return []analyzer.Rule{
		CommentSpacing{},   // SA1005
		PrefixLocalCalls{}, // SA1101
		QueryClauses{},     // SA1102
		StringEmpty{},      // SA1122
		RegionPlacement{},  // SA1123
		FieldNames{},       // SA1306, SA1307, SA1309
	}
}

// Providers returns the members of rs that can fix their diagnostics.
func Providers(rs []analyzer.Rule) []fix.Provider {
	var out []fix.Provider
	for _, r := range rs {
		if p, ok := r.(fix.Provider); ok {
			out = append(out, p)
		}
	}
	return out
}

func descriptor(id, title, format, category string) diag.Descriptor {
	return diag.Descriptor{
		ID:               id,
		Title:            title,
		MessageFormat:    format,
		Category:         category,
		DefaultSeverity:  diag.SeverityWarning,
		EnabledByDefault: true,
	}
}

// anchor finds the node a diagnostic was reported on as an instance of
// shape.
func anchor(ctx *fix.Context, shape lightup.Shape) host.Node {
	if ctx.Registry == nil {
		return ctx.Node("")
	}
	for _, k := range ctx.Registry.Kinds(shape) {
		if n := ctx.Node(k); n != nil {
			return n
		}
	}
	return nil
}

func modifierSet(src []byte, mods []host.Node) map[string]bool {
	set := make(map[string]bool, len(mods))
	for _, m := range mods {
		set[host.Text(src, m)] = true
	}
	return set
}
