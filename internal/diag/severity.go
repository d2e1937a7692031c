package diag

import (
	"fmt"
	"strings"
)

// Severity is the effective level of a diagnostic.
type Severity uint8

//go:generate go tool stringer -type Severity -linecomment
const (
	// SeverityHidden diagnostics are recorded but not shown by default.
	SeverityHidden Severity = iota // hidden
	// SeverityInfo is informational.
	SeverityInfo // info
	// SeverityWarning is the default for style rules.
	SeverityWarning // warning
	// SeverityError fails the run.
	SeverityError // error
)

// ParseSeverity returns the severity with the given name.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hidden", "silent":
		return SeverityHidden, nil
	case "info", "suggestion":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return 0, fmt.Errorf("diag: unknown severity %q", s)
}

// MarshalText implements [encoding.TextMarshaler].
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
