package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/lightup"
)

var SA1005 = descriptor("SA1005",
	"Single line comment must begin with a space",
	"Single line comment must begin with a space",
	CategorySpacing)

// CommentSpacing requires a space after the // of a single line comment.
// Documentation comments (///) and commented-out code (////) are left
// alone.
type CommentSpacing struct{}

func (CommentSpacing) Descriptors() []diag.Descriptor { return []diag.Descriptor{SA1005} }

func (CommentSpacing) Initialize(ctx *analyzer.Context) {
	ctx.RegisterSyntaxNodeAction(func(nc *analyzer.NodeContext) {
		n := nc.Node.Raw()
		if missingCommentSpace(nc.Text(n)) {
			nc.ReportNode(SA1005, n)
		}
	}, lightup.Comment)
}

func (CommentSpacing) FixableIDs() []string { return []string{SA1005.ID} }

func (CommentSpacing) Fix(ctx *fix.Context) (fix.Fix, bool) {
	n := anchor(ctx, lightup.Comment)
	if n == nil {
		return fix.Fix{}, false
	}
	text := ctx.Text(n)
	if !missingCommentSpace(text) {
		return fix.Fix{}, false
	}
	return fix.Fix{
		Title: "Insert space after //",
		Edits: []fix.Edit{fix.ReplaceNode(n, "// "+text[2:])},
	}, true
}

func missingCommentSpace(text string) bool {
	rest, ok := strings.CutPrefix(text, "//")
	if !ok || rest == "" || rest[0] == '/' {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !unicode.IsSpace(r)
}
