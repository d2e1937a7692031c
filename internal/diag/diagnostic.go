// Package diag defines diagnostics, the descriptors rules declare them with,
// and the sink that aggregates them per document.
package diag

import (
	"fmt"
	"log/slog"

	"github.com/jward/sharplint/internal/host"
)

// Descriptor declares one diagnostic a rule can report.
type Descriptor struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	MessageFormat    string   `json:"message_format" yaml:"message"`
	Category         string   `json:"category" yaml:"category"`
	DefaultSeverity  Severity `json:"default_severity" yaml:"severity"`
	EnabledByDefault bool     `json:"enabled_by_default" yaml:"enabled"`
}

// Format renders the message with args. A format without verbs is returned
// as is.
func (d Descriptor) Format(args ...any) string {
	if len(args) == 0 {
		return d.MessageFormat
	}
	return fmt.Sprintf(d.MessageFormat, args...)
}

// Diagnostic is one reported finding. Diagnostics are values and are never
// mutated after construction.
type Diagnostic struct {
	RuleID   string     `json:"rule_id"`
	Path     string     `json:"path"`
	Span     host.Span  `json:"span"`
	Start    host.Point `json:"start"`
	End      host.Point `json:"end"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Args     []string   `json:"args,omitempty"`
}

// New builds a diagnostic for d located at n.
func New(d Descriptor, path string, n host.Node, sev Severity, args ...any) Diagnostic {
	return At(d, path, host.SpanOf(n), n.StartPoint(), n.EndPoint(), sev, args...)
}

// At builds a diagnostic for d at an explicit location.
func At(d Descriptor, path string, span host.Span, start, end host.Point, sev Severity, args ...any) Diagnostic {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = fmt.Sprint(a)
	}
	return Diagnostic{
		RuleID:   d.ID,
		Path:     path,
		Span:     span,
		Start:    start,
		End:      end,
		Severity: sev,
		Message:  d.Format(args...),
		Args:     strs,
	}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s %s: %s", d.Path, d.Start, d.Severity, d.RuleID, d.Message)
}

// LogValue implements [slog.LogValuer].
func (d Diagnostic) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("rule", d.RuleID),
		slog.String("path", d.Path),
		slog.String("at", d.Start.String()),
		slog.String("severity", d.Severity.String()),
	)
}

// less orders diagnostics by path, position, then rule id.
func less(a, b Diagnostic) int {
	switch {
	case a.Path != b.Path:
		if a.Path < b.Path {
			return -1
		}
		return 1
	case a.Span.Start != b.Span.Start:
		return int(a.Span.Start) - int(b.Span.Start)
	case a.RuleID != b.RuleID:
		if a.RuleID < b.RuleID {
			return -1
		}
		return 1
	case a.Span.End != b.Span.End:
		return int(a.Span.End) - int(b.Span.End)
	}
	if a.Message < b.Message {
		return -1
	} else if a.Message > b.Message {
		return 1
	}
	return 0
}
