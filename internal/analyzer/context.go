package analyzer

import (
	"context"
	"sync"

	"github.com/jward/sharplint/internal/config"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

// Rule is a plug-in style rule. Initialize registers the rule's actions; it
// runs once per driver and only when at least one of the rule's descriptors
// is enabled.
type Rule interface {
	Descriptors() []diag.Descriptor
	Initialize(ctx *Context)
}

type (
	NodeAction             func(*NodeContext)
	TreeAction             func(*TreeContext)
	OperationAction        func(*OperationContext)
	CompilationStartAction func(*CompilationStartContext)
	CompilationEndAction   func(*CompilationEndContext)
)

type nodeAction struct {
	rule  *ruleState
	shape lightup.Shape
	fn    NodeAction
}

type treeAction struct {
	rule *ruleState
	fn   TreeAction
}

type operationAction struct {
	rule  *ruleState
	shape lightup.Shape
	fn    OperationAction
}

type endAction struct {
	rule *ruleState
	fn   CompilationEndAction
}

// actions is a dispatch table: host node kinds and operation kinds to the
// actions interested in them, in registration order.
type actions struct {
	nodes map[string][]nodeAction
	ops   map[string][]operationAction
	trees []treeAction
	ends  []endAction
}

func newActions() *actions {
	return &actions{
		nodes: make(map[string][]nodeAction),
		ops:   make(map[string][]operationAction),
	}
}

func (a *actions) clone() *actions {
	c := newActions()
	for k, v := range a.nodes {
		c.nodes[k] = append([]nodeAction(nil), v...)
	}
	for k, v := range a.ops {
		c.ops[k] = append([]operationAction(nil), v...)
	}
	c.trees = append(c.trees, a.trees...)
	c.ends = append(c.ends, a.ends...)
	return c
}

// registrar binds registrations to a table.
type registrar struct {
	d     *Driver
	rule  *ruleState
	table *actions
}

func (r registrar) registerNode(fn NodeAction, shapes []lightup.Shape) {
	for _, s := range shapes {
		kinds := r.d.registry.Kinds(s)
		if len(kinds) == 0 {
			r.d.logger.Debug("shape absent in host version, action inert", "rule", r.rule.name, "shape", s.String())
		}
		for _, k := range kinds {
			r.table.nodes[k] = append(r.table.nodes[k], nodeAction{rule: r.rule, shape: s, fn: fn})
		}
	}
}

func (r registrar) registerOperation(fn OperationAction, shapes []lightup.Shape) {
	for _, s := range shapes {
		if !s.IsOperation() {
			r.d.logger.Warn("not an operation shape", "rule", r.rule.name, "shape", s.String())
			continue
		}
		for _, k := range r.d.registry.Kinds(s) {
			r.table.ops[k] = append(r.table.ops[k], operationAction{rule: r.rule, shape: s, fn: fn})
		}
	}
}

// Context is passed to [Rule.Initialize].
type Context struct {
	reg    registrar
	starts *[]startAction
}

type startAction struct {
	rule *ruleState
	fn   CompilationStartAction
}

// RegisterSyntaxNodeAction runs fn for every node that is an instance of one
// of shapes. Shapes absent from the host version never fire.
func (c *Context) RegisterSyntaxNodeAction(fn NodeAction, shapes ...lightup.Shape) {
	c.reg.registerNode(fn, shapes)
}

// RegisterSyntaxTreeAction runs fn once per analysed tree, before its nodes.
func (c *Context) RegisterSyntaxTreeAction(fn TreeAction) {
	c.reg.table.trees = append(c.reg.table.trees, treeAction{rule: c.reg.rule, fn: fn})
}

// RegisterOperationAction runs fn for every semantic operation that is an
// instance of one of shapes.
func (c *Context) RegisterOperationAction(fn OperationAction, shapes ...lightup.Shape) {
	c.reg.registerOperation(fn, shapes)
}

// RegisterCompilationStartAction runs fn once at the start of every
// compilation.
func (c *Context) RegisterCompilationStartAction(fn CompilationStartAction) {
	*c.starts = append(*c.starts, startAction{rule: c.reg.rule, fn: fn})
}

// Registry returns the wrapper registry of the host version.
func (c *Context) Registry() *lightup.Registry { return c.reg.d.registry }

// Config returns the ruleset.
func (c *Context) Config() *config.Config { return c.reg.d.cfg }

// CompilationStartContext is passed to compilation start actions. Actions
// registered on it live for one compilation.
type CompilationStartContext struct {
	ctx context.Context
	reg registrar
}

func (c *CompilationStartContext) Context() context.Context    { return c.ctx }
func (c *CompilationStartContext) Registry() *lightup.Registry { return c.reg.d.registry }
func (c *CompilationStartContext) Config() *config.Config      { return c.reg.d.cfg }

func (c *CompilationStartContext) RegisterSyntaxNodeAction(fn NodeAction, shapes ...lightup.Shape) {
	c.reg.registerNode(fn, shapes)
}

func (c *CompilationStartContext) RegisterSyntaxTreeAction(fn TreeAction) {
	c.reg.table.trees = append(c.reg.table.trees, treeAction{rule: c.reg.rule, fn: fn})
}

func (c *CompilationStartContext) RegisterOperationAction(fn OperationAction, shapes ...lightup.Shape) {
	c.reg.registerOperation(fn, shapes)
}

// RegisterCompilationEndAction runs fn once when the compilation ends.
func (c *CompilationStartContext) RegisterCompilationEndAction(fn CompilationEndAction) {
	c.reg.table.ends = append(c.reg.table.ends, endAction{rule: c.reg.rule, fn: fn})
}

// CompilationEndContext is passed to compilation end actions.
type CompilationEndContext struct {
	ctx  context.Context
	rule *ruleState
	comp *Compilation
	sink diag.Sink
}

func (c *CompilationEndContext) Context() context.Context { return c.ctx }

// Report emits d. Compilation-level diagnostics are not subject to
// positional suppression.
func (c *CompilationEndContext) Report(d diag.Diagnostic) {
	c.comp.driver.deliver(c.rule, d, nil, c.sink)
}

// document is the per-tree state shared by the action contexts of one pass.
type document struct {
	ctx      context.Context
	comp     *Compilation
	tree     host.Tree
	sink     diag.Sink
	suppress *Suppressions

	modelOnce sync.Once
	model     host.SemanticModel

	linesOnce sync.Once
	lines     *host.LineIndex
}

func (doc *document) semantic() host.SemanticModel {
	doc.modelOnce.Do(func() {
		doc.model = doc.comp.driver.semantic.Model(doc.tree)
	})
	return doc.model
}

// lineIndex returns the line starts of the document, indexed on first use.
func (doc *document) lineIndex() *host.LineIndex {
	doc.linesOnce.Do(func() {
		doc.lines = host.NewLineIndex(doc.tree.Source())
	})
	return doc.lines
}

// actionContext is what every per-tree action sees.
type actionContext struct {
	doc  *document
	rule *ruleState
}

// Context returns the pass context.
func (c *actionContext) Context() context.Context { return c.doc.ctx }

// Tree returns the analysed tree.
func (c *actionContext) Tree() host.Tree { return c.doc.tree }

// Path returns the analysed document path.
func (c *actionContext) Path() string { return c.doc.tree.Path() }

// Source returns the analysed document text.
func (c *actionContext) Source() []byte { return c.doc.tree.Source() }

// Registry returns the wrapper registry.
func (c *actionContext) Registry() *lightup.Registry { return c.doc.comp.driver.registry }

// Semantic returns the semantic model of the tree, built on first use.
func (c *actionContext) Semantic() host.SemanticModel { return c.doc.semantic() }

// Config returns the ruleset.
func (c *actionContext) Config() *config.Config { return c.doc.comp.driver.cfg }

// Text returns the source text of n.
func (c *actionContext) Text(n host.Node) string { return host.Text(c.doc.tree.Source(), n) }

// Report emits d after applying configuration and suppressions.
func (c *actionContext) Report(d diag.Diagnostic) {
	if d.Path == "" {
		d.Path = c.doc.tree.Path()
	}
	c.doc.comp.driver.deliver(c.rule, d, c.doc.suppress, c.doc.sink)
}

// ReportNode reports desc at n with message args.
func (c *actionContext) ReportNode(desc diag.Descriptor, n host.Node, args ...any) {
	c.Report(diag.New(desc, c.doc.tree.Path(), n, desc.DefaultSeverity, args...))
}

// ReportSpan reports desc at an explicit byte span of the document.
func (c *actionContext) ReportSpan(desc diag.Descriptor, span host.Span, args ...any) {
	li := c.doc.lineIndex()
	c.Report(diag.At(desc, c.doc.tree.Path(), span, li.Point(span.Start), li.Point(span.End), desc.DefaultSeverity, args...))
}

// TreeContext is passed to syntax tree actions.
type TreeContext struct {
	actionContext
}

// NodeContext is passed to syntax node actions.
type NodeContext struct {
	actionContext
	// Node is the visited node viewed as the registered shape.
	Node lightup.Node
}

// OperationContext is passed to operation actions.
type OperationContext struct {
	actionContext
	// Operation is the visited operation viewed as the registered shape.
	Operation lightup.Operation
}
