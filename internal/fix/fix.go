// Package fix applies node-anchored edits to documents. Edits of many fixes
// are resolved against the original tree, checked for conflicts, and spliced
// into the source in a single pass; the result is re-parsed into a new
// document. Documents are never mutated.
package fix

import (
	"errors"
	"fmt"

	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

var (
	// ErrFixConflict classifies a fix rejected because it overlaps an
	// accepted fix.
	ErrFixConflict = errors.New("fix: conflicting edits")
	// ErrAnchorNotFound classifies an edit whose node is not part of the
	// document.
	ErrAnchorNotFound = errors.New("fix: edit anchor not found")
)

// Document is an immutable parsed source file.
type Document struct {
	tree host.Tree
}

// NewDocument wraps tree.
func NewDocument(tree host.Tree) *Document { return &Document{tree: tree} }

func (d *Document) Tree() host.Tree { return d.tree }
func (d *Document) Path() string    { return d.tree.Path() }
func (d *Document) Source() []byte  { return d.tree.Source() }
func (d *Document) Root() host.Node { return d.tree.Root() }
func (d *Document) String() string  { return string(d.tree.Source()) }

// EditKind is the operation an edit performs on its anchor node.
type EditKind uint8

const (
	// Replace replaces the node's text.
	Replace EditKind = iota
	// InsertBefore inserts text at the node's start.
	InsertBefore
	// InsertAfter inserts text at the node's end.
	InsertAfter
	// Remove deletes the node's text.
	Remove
	// ReplaceLeadingTrivia replaces the whitespace between the previous
	// token and the node.
	ReplaceLeadingTrivia
)

var editKindNames = [...]string{"replace", "insert-before", "insert-after", "remove", "replace-leading-trivia"}

func (k EditKind) String() string {
	if int(k) >= len(editKindNames) {
		return fmt.Sprintf("EditKind(%d)", k)
	}
	return editKindNames[k]
}

// Edit is a change anchored to a node of the original tree.
type Edit struct {
	Kind EditKind
	Node host.Node
	Text string
}

// ReplaceNode replaces the text of n.
func ReplaceNode(n host.Node, text string) Edit {
	return Edit{Kind: Replace, Node: n, Text: text}
}

// InsertBeforeNode inserts text at the start of n.
func InsertBeforeNode(n host.Node, text string) Edit {
	return Edit{Kind: InsertBefore, Node: n, Text: text}
}

// InsertAfterNode inserts text at the end of n.
func InsertAfterNode(n host.Node, text string) Edit {
	return Edit{Kind: InsertAfter, Node: n, Text: text}
}

// RemoveNode deletes n.
func RemoveNode(n host.Node) Edit {
	return Edit{Kind: Remove, Node: n}
}

// ReplaceTriviaBefore replaces the whitespace preceding n with text.
func ReplaceTriviaBefore(n host.Node, text string) Edit {
	return Edit{Kind: ReplaceLeadingTrivia, Node: n, Text: text}
}

// Fix is the set of edits that corrects one diagnostic. Its edits are
// applied all together or not at all.
type Fix struct {
	Title      string
	Diagnostic diag.Diagnostic
	Edits      []Edit
}

// Provider computes fixes. Rules that can correct their diagnostics
// implement it.
type Provider interface {
	// FixableIDs lists the diagnostic ids the provider can fix.
	FixableIDs() []string
	// Fix returns the fix for the diagnostic in ctx, or false when the
	// diagnostic cannot be fixed.
	Fix(ctx *Context) (Fix, bool)
}

// Context is what a provider sees for one diagnostic.
type Context struct {
	Document   *Document
	Diagnostic diag.Diagnostic
	Registry   *lightup.Registry
	Semantic   host.SemanticModel
}

// Node returns the outermost node of kind (any kind when empty) whose span
// is the diagnostic's span.
func (c *Context) Node(kind string) host.Node {
	return host.FindBySpan(c.Document.Root(), c.Diagnostic.Span, kind)
}

// Text returns the source text of n.
func (c *Context) Text(n host.Node) string { return host.Text(c.Document.Source(), n) }

// Compute asks providers for a fix for every diagnostic they handle. Order
// follows diags.
func Compute(doc *Document, diags []diag.Diagnostic, providers []Provider, reg *lightup.Registry, sem host.SemanticModel) []Fix {
	byID := make(map[string]Provider)
	for _, p := range providers {
		for _, id := range p.FixableIDs() {
			byID[id] = p
		}
	}
	var out []Fix
	for _, d := range diags {
		if d.Path != "" && d.Path != doc.Path() {
			continue
		}
		p, ok := byID[d.RuleID]
		if !ok {
			continue
		}
		f, ok := p.Fix(&Context{Document: doc, Diagnostic: d, Registry: reg, Semantic: sem})
		if !ok || len(f.Edits) == 0 {
			continue
		}
		if f.Diagnostic.RuleID == "" {
			f.Diagnostic = d
		}
		out = append(out, f)
	}
	return out
}
