package fix

import (
	"bytes"
	"context"
	"fmt"
	"runtime/trace"
	"slices"

	"github.com/jward/sharplint/internal/host"
)

// SkipReason says why a fix was not applied.
type SkipReason uint8

const (
	// SkipConflict marks a fix overlapping an already accepted fix.
	SkipConflict SkipReason = iota + 1
	// SkipAnchor marks a fix with an edit whose node is not in the document.
	SkipAnchor
)

func (r SkipReason) String() string {
	switch r {
	case SkipConflict:
		return "conflict"
	case SkipAnchor:
		return "anchor"
	}
	return fmt.Sprintf("SkipReason(%d)", r)
}

// Skipped is a fix FixAll did not apply.
type Skipped struct {
	Fix    Fix
	Reason SkipReason
	Err    error
}

// Result is the outcome of FixAll.
type Result struct {
	// Document is the fixed document. It is the input document when no fix
	// applied.
	Document *Document
	Applied  []Fix
	Skipped  []Skipped
}

// Changed reports whether any fix applied.
func (r *Result) Changed() bool { return len(r.Applied) > 0 }

// textEdit is an edit resolved to a byte span of the original source.
type textEdit struct {
	span host.Span
	text string
}

type resolvedFix struct {
	fix   Fix
	order int
	edits []textEdit
	start uint32
}

// FixAll applies fixes to doc as one batch. Every anchor is resolved on the
// original tree first. Fixes are then taken in source order of their first
// edit; a fix with an edit overlapping an edit of an accepted fix is rejected
// as a whole with ErrFixConflict. Edits identical to an accepted edit are
// merged. The accepted edits are spliced in one pass and the result is
// re-parsed with parser.
func FixAll(ctx context.Context, parser host.Parser, doc *Document, fixes []Fix) (*Result, error) {
	defer trace.StartRegion(ctx, "FixAll").End()

	res := &Result{Document: doc}
	resolved := make([]resolvedFix, 0, len(fixes))
	for i, f := range fixes {
		rf, err := resolve(doc, f, i)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Fix: f, Reason: SkipAnchor, Err: err})
			continue
		}
		resolved = append(resolved, rf)
	}
	slices.SortStableFunc(resolved, func(a, b resolvedFix) int {
		if a.start != b.start {
			return int(a.start) - int(b.start)
		}
		return a.order - b.order
	})

	var accepted []textEdit
	for _, rf := range resolved {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fix: %s: %w", doc.Path(), err)
		}
		merged, err := admit(accepted, rf)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Fix: rf.fix, Reason: SkipConflict, Err: err})
			continue
		}
		accepted = merged
		res.Applied = append(res.Applied, rf.fix)
	}
	if len(accepted) == 0 {
		return res, nil
	}

	src := splice(doc.Source(), accepted)
	tree, err := parser.Parse(ctx, doc.Path(), src)
	if err != nil {
		return nil, fmt.Errorf("fix: reparse %s: %w", doc.Path(), err)
	}
	res.Document = NewDocument(tree)
	return res, nil
}

// Apply applies a single fix.
func Apply(ctx context.Context, parser host.Parser, doc *Document, f Fix) (*Document, error) {
	res, err := FixAll(ctx, parser, doc, []Fix{f})
	if err != nil {
		return nil, err
	}
	if len(res.Skipped) > 0 {
		return nil, res.Skipped[0].Err
	}
	return res.Document, nil
}

func resolve(doc *Document, f Fix, order int) (resolvedFix, error) {
	rf := resolvedFix{fix: f, order: order}
	src := doc.Source()
	root := doc.Root()
	for i, e := range f.Edits {
		if e.Node == nil {
			return rf, fmt.Errorf("%w: edit %d of %q has no node", ErrAnchorNotFound, i, f.Title)
		}
		span := host.SpanOf(e.Node)
		if int(span.End) > len(src) || host.FindBySpan(root, span, e.Node.Type()) == nil {
			return rf, fmt.Errorf("%w: %s at %d", ErrAnchorNotFound, e.Node.Type(), span.Start)
		}
		te := textEdit{text: e.Text}
		switch e.Kind {
		case Replace:
			te.span = span
		case InsertBefore:
			te.span = host.Span{Start: span.Start, End: span.Start}
		case InsertAfter:
			te.span = host.Span{Start: span.End, End: span.End}
		case Remove:
			te.span = span
			te.text = ""
		case ReplaceLeadingTrivia:
			te.span = host.Span{Start: triviaStart(src, span.Start), End: span.Start}
		default:
			return rf, fmt.Errorf("fix: unknown edit kind %s", e.Kind)
		}
		if i == 0 || te.span.Start < rf.start {
			rf.start = te.span.Start
		}
		rf.edits = append(rf.edits, te)
	}
	return rf, nil
}

// triviaStart scans back from offset over whitespace.
func triviaStart(src []byte, offset uint32) uint32 {
	i := offset
	for i > 0 {
		switch src[i-1] {
		case ' ', '\t', '\r', '\n':
			i--
			continue
		}
		break
	}
	return i
}

// admit returns accepted plus the edits of rf, or ErrFixConflict when one of
// them overlaps an accepted edit or another edit of rf.
func admit(accepted []textEdit, rf resolvedFix) ([]textEdit, error) {
	out := slices.Clone(accepted)
	for _, e := range rf.edits {
		dup := false
		for _, a := range out {
			if a == e {
				dup = true
				break
			}
			if a.span.Overlaps(e.span) {
				return nil, fmt.Errorf("%w: %q at %d overlaps edit at %d", ErrFixConflict, rf.fix.Title, e.span.Start, a.span.Start)
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out, nil
}

// splice rewrites src with non-overlapping edits in one pass.
func splice(src []byte, edits []textEdit) []byte {
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b textEdit) int {
		if a.span.Start != b.span.Start {
			return int(a.span.Start) - int(b.span.Start)
		}
		return int(a.span.End) - int(b.span.End)
	})
	var buf bytes.Buffer
	buf.Grow(len(src))
	pos := uint32(0)
	for _, e := range sorted {
		buf.Write(src[pos:e.span.Start])
		buf.WriteString(e.text)
		pos = e.span.End
	}
	buf.Write(src[pos:])
	return buf.Bytes()
}
