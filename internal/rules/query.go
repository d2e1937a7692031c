package rules

import (
	"bytes"

	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/lightup"
)

var SA1102 = descriptor("SA1102",
	"Query clause must follow previous clause",
	"Query clause must follow previous clause",
	CategoryReadability)

// QueryClauses rejects blank lines between the clauses of a query
// expression. The diagnostic is placed on the first token of the clause
// that follows the gap.
type QueryClauses struct{}

func (QueryClauses) Descriptors() []diag.Descriptor { return []diag.Descriptor{SA1102} }

func (QueryClauses) Initialize(ctx *analyzer.Context) {
	ctx.RegisterSyntaxNodeAction(func(nc *analyzer.NodeContext) {
		q, err := nc.Registry().QueryExpression(nc.Node.Raw())
		if err != nil {
			return
		}
		clauses, err := q.Clauses()
		if err != nil {
			return
		}
		src := nc.Source()
		for i := 1; i < len(clauses); i++ {
			kw, err := clauses[i].Keyword()
			if err != nil || kw == nil {
				continue
			}
			prev := clauses[i-1].Span().End
			if prev <= kw.StartByte() && hasBlankLine(src[prev:kw.StartByte()]) {
				nc.ReportNode(SA1102, kw)
			}
		}
	}, lightup.QueryExpression)
}

func (QueryClauses) FixableIDs() []string { return []string{SA1102.ID} }

func (QueryClauses) Fix(ctx *fix.Context) (fix.Fix, bool) {
	kw := ctx.Node("")
	if kw == nil {
		return fix.Fix{}, false
	}
	src := ctx.Document.Source()
	start := kw.StartByte()
	for start > 0 && isSpace(src[start-1]) {
		start--
	}
	gap := src[start:kw.StartByte()]
	if !hasBlankLine(gap) {
		return fix.Fix{}, false
	}
	eol := "\n"
	if bytes.Contains(gap, []byte("\r\n")) {
		eol = "\r\n"
	}
	indent := gap[bytes.LastIndexByte(gap, '\n')+1:]
	return fix.Fix{
		Title: "Remove blank lines between query clauses",
		Edits: []fix.Edit{fix.ReplaceTriviaBefore(kw, eol+string(indent))},
	}, true
}

// hasBlankLine reports whether gap contains a whole line of only
// whitespace.
func hasBlankLine(gap []byte) bool {
	lines := bytes.Split(gap, []byte("\n"))
	for i := 1; i < len(lines)-1; i++ {
		if len(bytes.TrimSpace(lines[i])) == 0 {
			return true
		}
	}
	return false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
