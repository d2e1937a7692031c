package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

var (
	SA1306 = descriptor("SA1306",
		"Field names must begin with lower-case letter",
		"Field '%s' must begin with lower-case letter",
		CategoryNaming)
	SA1307 = descriptor("SA1307",
		"Accessible fields must begin with upper-case letter",
		"Field '%s' must begin with upper-case letter",
		CategoryNaming)
	SA1309 = descriptor("SA1309",
		"Field names must not begin with underscore",
		"Field '%s' must not begin with an underscore",
		CategoryNaming)
)

// FieldNames checks the casing and prefix of field names. Public and
// internal fields start upper-case; other fields, except constants and
// static readonly fields, start lower-case; no field starts with an
// underscore. Underscores are stripped by a rename across the document.
// SA1309 skips the names listed in its allowed option.
type FieldNames struct{}

func (FieldNames) Descriptors() []diag.Descriptor {
	return []diag.Descriptor{SA1306, SA1307, SA1309}
}

func (FieldNames) Initialize(ctx *analyzer.Context) {
	allowed := make(map[string]bool)
	for _, name := range ctx.Config().StringsOption(SA1309.ID, "allowed") {
		allowed[name] = true
	}
	ctx.RegisterSyntaxNodeAction(func(nc *analyzer.NodeContext) {
		checkFields(nc, allowed)
	}, lightup.FieldDeclaration)
}

func checkFields(nc *analyzer.NodeContext, allowed map[string]bool) {
	f, err := nc.Registry().FieldDeclaration(nc.Node.Raw())
	if err != nil {
		return
	}
	src := nc.Source()
	mods, _ := f.Modifiers()
	set := modifierSet(src, mods)
	accessible := set["public"] || set["internal"]

	decls, err := f.Declarators()
	if err != nil {
		return
	}
	for _, d := range decls {
		name, err := d.Name()
		if err != nil || name == nil {
			continue
		}
		text := strings.TrimPrefix(host.Text(src, name), "@")
		if strings.HasPrefix(text, "_") && !allowed[text] {
			nc.ReportNode(SA1309, name, text)
		}
		if set["const"] {
			continue
		}
		first, ok := firstLetter(text)
		if !ok {
			continue
		}
		switch {
		case accessible:
			if unicode.IsLower(first) {
				nc.ReportNode(SA1307, name, text)
			}
		case set["static"] && set["readonly"]:
		default:
			if unicode.IsUpper(first) {
				nc.ReportNode(SA1306, name, text)
			}
		}
	}
}

// firstLetter returns the first rune of name after leading underscores.
func firstLetter(name string) (rune, bool) {
	name = strings.TrimLeft(name, "_")
	if name == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r, unicode.IsLetter(r)
}

func (FieldNames) FixableIDs() []string { return []string{SA1309.ID} }

// Fix renames the field and every reference the semantic model knows of.
func (FieldNames) Fix(ctx *fix.Context) (fix.Fix, bool) {
	if ctx.Diagnostic.RuleID != SA1309.ID || ctx.Semantic == nil {
		return fix.Fix{}, false
	}
	n := anchor(ctx, lightup.Identifier)
	if n == nil {
		return fix.Fix{}, false
	}
	sym, ok := ctx.Semantic.Symbol(n)
	if !ok || sym.Kind != host.SymbolField {
		return fix.Fix{}, false
	}
	name := strings.TrimLeft(sym.Name, "_")
	if _, ok := firstLetter(name); !ok {
		return fix.Fix{}, false
	}
	refs := ctx.Semantic.References(sym)
	edits := make([]fix.Edit, 0, len(refs))
	for _, ref := range refs {
		edits = append(edits, fix.ReplaceNode(ref, name))
	}
	return fix.Fix{Title: "Rename to " + name, Edits: edits}, true
}
