// Package analyzer registers style rules and dispatches syntax nodes,
// syntax trees and semantic operations to them. It owns configuration-based
// rule exclusion, positional suppression and rule fault isolation; rules
// only register callbacks and report.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"runtime/trace"
	"sync"

	"github.com/jward/sharplint/internal/config"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host"
	"github.com/jward/sharplint/internal/lightup"
)

// Driver holds the rules bound to one host version.
type Driver struct {
	registry *lightup.Registry
	semantic host.SemanticProvider
	cfg      *config.Config
	logger   *slog.Logger
	onFault  func(*RuleCallbackFault)

	rules      []*ruleState
	static     *actions
	starts     []startAction
	initFaults []*RuleCallbackFault
}

type ruleState struct {
	rule  Rule
	name  string
	descs map[string]diag.Descriptor
}

// Option configures a Driver.
type Option func(*Driver)

// WithConfig sets the ruleset.
func WithConfig(cfg *config.Config) Option {
	return func(d *Driver) { d.cfg = cfg }
}

// WithLogger sets the logger faults and dispatch events are written to.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithSemantic sets the semantic provider. The registry must have been
// probed against the same provider's capabilities.
func WithSemantic(p host.SemanticProvider) Option {
	return func(d *Driver) { d.semantic = p }
}

// WithFaultHandler is called for every rule callback fault, in addition to
// logging and the SL0001 diagnostic.
func WithFaultHandler(fn func(*RuleCallbackFault)) Option {
	return func(d *Driver) { d.onFault = fn }
}

// NewDriver initialises rules against reg. Rules none of whose descriptors
// are enabled are skipped. A rule whose Initialize panics is dropped; its
// fault goes to the fault handler and is reported when each compilation
// ends.
func NewDriver(reg *lightup.Registry, rules []Rule, opts ...Option) (*Driver, error) {
	d := &Driver{
		registry: reg,
		semantic: host.NoSemantics{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		static:   newActions(),
	}
	for _, opt := range opts {
		opt(d)
	}

	seen := map[string]string{FaultID: "analyzer"}
	for _, r := range rules {
		rs := &ruleState{rule: r, descs: make(map[string]diag.Descriptor)}
		for _, desc := range r.Descriptors() {
			if owner, dup := seen[desc.ID]; dup {
				return nil, fmt.Errorf("%w: %s (declared by %s)", ErrDuplicateDescriptor, desc.ID, owner)
			}
			if rs.name == "" {
				rs.name = desc.ID
			}
			rs.descs[desc.ID] = desc
			seen[desc.ID] = rs.name
		}
		if !d.anyEnabled(rs) {
			d.logger.Debug("rule disabled by configuration", "rule", rs.name)
			continue
		}

		trees, ends := len(d.static.trees), len(d.static.ends)
		starts := len(d.starts)
		ctx := &Context{reg: registrar{d: d, rule: rs, table: d.static}, starts: &d.starts}
		if fault := d.invoke(rs, "initialize", "", host.Span{}, func() { r.Initialize(ctx) }); fault != nil {
			d.initFaults = append(d.initFaults, fault)
			d.dropActions(rs, trees, ends, starts)
			continue
		}
		d.rules = append(d.rules, rs)
	}
	return d, nil
}

// dropActions removes what a faulted rule managed to register.
func (d *Driver) dropActions(rs *ruleState, trees, ends, starts int) {
	for k, list := range d.static.nodes {
		kept := list[:0]
		for _, a := range list {
			if a.rule != rs {
				kept = append(kept, a)
			}
		}
		d.static.nodes[k] = kept
	}
	for k, list := range d.static.ops {
		kept := list[:0]
		for _, a := range list {
			if a.rule != rs {
				kept = append(kept, a)
			}
		}
		d.static.ops[k] = kept
	}
	d.static.trees = d.static.trees[:trees]
	d.static.ends = d.static.ends[:ends]
	d.starts = d.starts[:starts]
}

func (d *Driver) anyEnabled(rs *ruleState) bool {
	for _, desc := range rs.descs {
		if d.cfg.Enabled(desc) {
			return true
		}
	}
	return false
}

// Registry returns the wrapper registry the driver dispatches with.
func (d *Driver) Registry() *lightup.Registry { return d.registry }

// Rules returns the rules that were initialised.
func (d *Driver) Rules() []Rule {
	out := make([]Rule, len(d.rules))
	for i, rs := range d.rules {
		out[i] = rs.rule
	}
	return out
}

// invoke runs fn, converting a panic into a fault. The fault is logged and
// handed to the fault handler; reporting it is left to the caller.
func (d *Driver) invoke(rs *ruleState, action, path string, span host.Span, fn func()) (fault *RuleCallbackFault) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		fault = &RuleCallbackFault{
			Rule:   rs.name,
			Action: action,
			Path:   path,
			Span:   span,
			Value:  v,
			Stack:  debug.Stack(),
		}
		d.logger.Error("rule callback fault", "rule", rs.name, "action", action, "path", path, "offset", span.Start, "panic", fmt.Sprint(v))
		if d.onFault != nil {
			d.onFault(fault)
		}
	}()
	fn()
	return nil
}

// deliver applies configuration and suppression to a diagnostic reported by
// rs and forwards it to sink.
func (d *Driver) deliver(rs *ruleState, dg diag.Diagnostic, sup *Suppressions, sink diag.Sink) {
	desc, ok := rs.descs[dg.RuleID]
	if !ok {
		d.logger.Warn("diagnostic with undeclared id dropped", "rule", rs.name, "id", dg.RuleID)
		return
	}
	if !d.cfg.Enabled(desc) {
		return
	}
	if sup.Suppressed(dg.RuleID, dg.Span.Start) {
		return
	}
	dg.Severity = d.cfg.Severity(desc)
	sink.Report(dg)
}

// reportFault reports f as a diagnostic. doc is nil for faults outside a
// document pass.
func (d *Driver) reportFault(f *RuleCallbackFault, doc *document, sink diag.Sink) {
	if sink == nil || !d.cfg.Enabled(FaultDescriptor) {
		return
	}
	var dg diag.Diagnostic
	if doc != nil {
		li := doc.lineIndex()
		dg = diag.At(FaultDescriptor, doc.tree.Path(), f.Span, li.Point(f.Span.Start), li.Point(f.Span.End),
			d.cfg.Severity(FaultDescriptor), f.Rule, f.Action, fmt.Sprint(f.Value))
	} else {
		dg = diag.At(FaultDescriptor, f.Path, f.Span, host.Point{}, host.Point{},
			d.cfg.Severity(FaultDescriptor), f.Rule, f.Action, fmt.Sprint(f.Value))
	}
	sink.Report(dg)
}

// Compilation is one analysis run over a set of trees. Analyze may be called
// concurrently for different trees.
type Compilation struct {
	driver *Driver
	task   *trace.Task
	table  *actions
	faults []*RuleCallbackFault

	mu    sync.Mutex
	ended bool
}

// Start begins a compilation and runs compilation start actions.
func (d *Driver) Start(ctx context.Context) (*Compilation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, task := trace.NewTask(ctx, "Compilation")
	c := &Compilation{driver: d, task: task, table: d.static.clone()}
	c.faults = append(c.faults, d.initFaults...)

	defer trace.StartRegion(ctx, "CompilationStart").End()
	for _, sa := range d.starts {
		sc := &CompilationStartContext{ctx: ctx, reg: registrar{d: d, rule: sa.rule, table: c.table}}
		if fault := d.invoke(sa.rule, "compilation start", "", host.Span{}, func() { sa.fn(sc) }); fault != nil {
			c.faults = append(c.faults, fault)
		}
	}
	return c, nil
}

// Analyze performs one pre-order pass over tree, children in source order,
// dispatching to the registered actions. It checks ctx between node visits.
func (c *Compilation) Analyze(ctx context.Context, tree host.Tree, sink diag.Sink) error {
	c.mu.Lock()
	ended := c.ended
	c.mu.Unlock()
	if ended {
		return ErrCompilationEnded
	}

	d := c.driver
	if !d.cfg.IncludesGenerated() && IsGenerated(tree) {
		d.logger.Debug("skipping generated file", "path", tree.Path())
		return nil
	}

	defer trace.StartRegion(ctx, "Analyze").End()

	doc := &document{
		ctx:      ctx,
		comp:     c,
		tree:     tree,
		sink:     sink,
		suppress: ParseSuppressions(tree.Source()),
	}

	for _, ta := range c.table.trees {
		tc := &TreeContext{actionContext{doc: doc, rule: ta.rule}}
		if f := d.invoke(ta.rule, "syntax tree", tree.Path(), host.SpanOf(tree.Root()), func() { ta.fn(tc) }); f != nil {
			d.reportFault(f, doc, sink)
		}
	}

	wantOps := len(c.table.ops) > 0
	var err error
	host.Walk(tree.Root(), func(n host.Node) bool {
		if err != nil {
			return false
		}
		if err = ctx.Err(); err != nil {
			return false
		}
		c.dispatchNode(doc, n)
		if wantOps {
			c.dispatchOperation(doc, n)
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("analyzer: %s: %w", tree.Path(), err)
	}
	return nil
}

func (c *Compilation) dispatchNode(doc *document, n host.Node) {
	list := c.table.nodes[n.Type()]
	if len(list) == 0 {
		return
	}
	d := c.driver
	for _, na := range list {
		w, err := d.registry.Wrap(na.shape, n)
		if err != nil {
			continue
		}
		nc := &NodeContext{actionContext: actionContext{doc: doc, rule: na.rule}, Node: w}
		if f := d.invoke(na.rule, "syntax node", doc.tree.Path(), host.SpanOf(n), func() { na.fn(nc) }); f != nil {
			d.reportFault(f, doc, doc.sink)
		}
	}
}

func (c *Compilation) dispatchOperation(doc *document, n host.Node) {
	op, ok := doc.semantic().Operation(n)
	if !ok {
		return
	}
	list := c.table.ops[op.Kind()]
	if len(list) == 0 {
		return
	}
	d := c.driver
	for _, oa := range list {
		w, err := d.registry.WrapOperation(oa.shape, op)
		if err != nil {
			continue
		}
		oc := &OperationContext{actionContext: actionContext{doc: doc, rule: oa.rule}, Operation: w}
		if f := d.invoke(oa.rule, "operation", doc.tree.Path(), host.SpanOf(n), func() { oa.fn(oc) }); f != nil {
			d.reportFault(f, doc, doc.sink)
		}
	}
}

// End runs compilation end actions, reports faults raised by start actions,
// and discards the compilation's state. Ending twice is a no-op.
func (c *Compilation) End(ctx context.Context, sink diag.Sink) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	c.mu.Unlock()
	defer c.task.End()

	d := c.driver
	for _, f := range c.faults {
		d.reportFault(f, nil, sink)
	}
	for _, ea := range c.table.ends {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("analyzer: compilation end: %w", err)
		}
		ec := &CompilationEndContext{ctx: ctx, rule: ea.rule, comp: c, sink: sink}
		if f := d.invoke(ea.rule, "compilation end", "", host.Span{}, func() { ea.fn(ec) }); f != nil {
			d.reportFault(f, nil, sink)
		}
	}
	c.table = newActions()
	c.faults = nil
	return nil
}
