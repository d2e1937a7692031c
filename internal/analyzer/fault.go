package analyzer

import (
	"errors"
	"fmt"

	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/host"
)

// ErrRuleCallbackFault classifies a rule callback that panicked.
var ErrRuleCallbackFault = errors.New("analyzer: rule callback fault")

// ErrCompilationEnded is returned when a finished compilation is used.
var ErrCompilationEnded = errors.New("analyzer: compilation ended")

// ErrDuplicateDescriptor is returned when two rules declare the same id.
var ErrDuplicateDescriptor = errors.New("analyzer: duplicate descriptor id")

// FaultID is the diagnostic id faults are reported under.
const FaultID = "SL0001"

// FaultDescriptor describes rule callback faults.
var FaultDescriptor = diag.Descriptor{
	ID:               FaultID,
	Title:            "Rule failed",
	MessageFormat:    "rule %s failed in %s action: %s",
	Category:         "Analyzer",
	DefaultSeverity:  diag.SeverityWarning,
	EnabledByDefault: true,
}

// RuleCallbackFault is a panic recovered from a rule callback.
type RuleCallbackFault struct {
	Rule   string
	Action string
	Path   string
	Span   host.Span
	Value  any
	Stack  []byte
}

func (f *RuleCallbackFault) Error() string {
	if f.Path == "" {
		return fmt.Sprintf("rule %s: %s action: %v", f.Rule, f.Action, f.Value)
	}
	return fmt.Sprintf("rule %s: %s action on %s@%d: %v", f.Rule, f.Action, f.Path, f.Span.Start, f.Value)
}

func (f *RuleCallbackFault) Unwrap() error { return ErrRuleCallbackFault }
