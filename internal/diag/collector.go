package diag

import (
	"slices"
	"sync"
)

// Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(Diagnostic)

func (f SinkFunc) Report(d Diagnostic) { f(d) }

// Collector aggregates diagnostics per document and rule. Exact duplicates
// are dropped. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	byDoc map[string]map[string][]Diagnostic
	count int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{byDoc: make(map[string]map[string][]Diagnostic)}
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rules, ok := c.byDoc[d.Path]
	if !ok {
		rules = make(map[string][]Diagnostic)
		c.byDoc[d.Path] = rules
	}
	for _, existing := range rules[d.RuleID] {
		if less(existing, d) == 0 && existing.Severity == d.Severity {
			return
		}
	}
	rules[d.RuleID] = append(rules[d.RuleID], d)
	c.count++
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Paths returns the documents that have diagnostics, sorted.
func (c *Collector) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.byDoc))
	for p := range c.byDoc {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Document returns the diagnostics of one document ordered by position.
func (c *Collector) Document(path string) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, ds := range c.byDoc[path] {
		out = append(out, ds...)
	}
	slices.SortFunc(out, less)
	return out
}

// Rule returns the diagnostics of one rule in one document.
func (c *Collector) Rule(path, ruleID string) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.byDoc[path][ruleID])
	slices.SortFunc(out, less)
	return out
}

// All returns every diagnostic ordered by path, position and rule.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, 0, c.count)
	for _, rules := range c.byDoc {
		for _, ds := range rules {
			out = append(out, ds...)
		}
	}
	slices.SortFunc(out, less)
	return out
}

// Reset drops the diagnostics of one document.
func (c *Collector) Reset(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ds := range c.byDoc[path] {
		c.count -= len(ds)
	}
	delete(c.byDoc, path)
}

// Max returns the highest severity collected and whether anything was.
func (c *Collector) Max() (Severity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var maxSev Severity
	found := false
	for _, rules := range c.byDoc {
		for _, ds := range rules {
			for _, d := range ds {
				if !found || d.Severity > maxSev {
					maxSev, found = d.Severity, true
				}
			}
		}
	}
	return maxSev, found
}
