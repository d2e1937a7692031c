// Package config loads the YAML ruleset: per-rule enablement, severity and
// options, path exclusions, and generated-code handling.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/jward/sharplint/internal/diag"
)

// DefaultFile is the ruleset file looked up at the repository root.
const DefaultFile = ".sharplint.yaml"

// SeverityNone in a rule's severity disables the rule.
const SeverityNone = "none"

// Config is a ruleset. The zero value enables every rule that is enabled by
// default, at its default severity.
type Config struct {
	IncludeGenerated bool                  `yaml:"include_generated,omitempty"`
	Exclude          []string              `yaml:"exclude,omitempty"`
	Rules            map[string]RuleConfig `yaml:"rules,omitempty"`
}

// RuleConfig overrides one diagnostic id.
type RuleConfig struct {
	Enabled  *bool          `yaml:"enabled,omitempty"`
	Severity string         `yaml:"severity,omitempty"`
	Options  map[string]any `yaml:"options,omitempty"`
}

// Default returns the empty ruleset.
func Default() *Config { return &Config{} }

// Load reads a ruleset file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDir reads DefaultFile from dir, or returns the default ruleset when the
// file does not exist.
func LoadDir(dir string) (*Config, error) {
	path := filepath.Join(dir, DefaultFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes and validates a ruleset.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks exclusion patterns and severities.
func (c *Config) Validate() error {
	for _, pat := range c.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("invalid exclude pattern %q", pat)
		}
	}
	for id, rc := range c.Rules {
		if rc.Severity == "" || rc.Severity == SeverityNone {
			continue
		}
		if _, err := diag.ParseSeverity(rc.Severity); err != nil {
			return fmt.Errorf("rule %s: %w", id, err)
		}
	}
	return nil
}

// Enabled reports whether diagnostics of d are produced.
func (c *Config) Enabled(d diag.Descriptor) bool {
	if c == nil {
		return d.EnabledByDefault
	}
	rc, ok := c.Rules[d.ID]
	if !ok {
		return d.EnabledByDefault
	}
	if rc.Severity == SeverityNone {
		return false
	}
	if rc.Enabled != nil {
		return *rc.Enabled
	}
	return d.EnabledByDefault
}

// Severity returns the effective severity of d.
func (c *Config) Severity(d diag.Descriptor) diag.Severity {
	if c == nil {
		return d.DefaultSeverity
	}
	if rc, ok := c.Rules[d.ID]; ok && rc.Severity != "" && rc.Severity != SeverityNone {
		if sev, err := diag.ParseSeverity(rc.Severity); err == nil {
			return sev
		}
	}
	return d.DefaultSeverity
}

// IncludesGenerated reports whether generated code is analysed.
func (c *Config) IncludesGenerated() bool { return c != nil && c.IncludeGenerated }

// Option returns a rule option.
func (c *Config) Option(id, key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.Rules[id].Options[key]
	return v, ok
}

// Options returns a copy of every option set for rule id. It is never nil.
func (c *Config) Options(id string) map[string]any {
	out := make(map[string]any)
	if c == nil {
		return out
	}
	for k, v := range c.Rules[id].Options {
		out[k] = v
	}
	return out
}

// BoolOption returns a boolean rule option, or def when unset or mistyped.
func (c *Config) BoolOption(id, key string, def bool) bool {
	v, ok := c.Option(id, key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// StringsOption returns a list-of-strings rule option.
func (c *Config) StringsOption(id, key string) []string {
	v, ok := c.Option(id, key)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{list}
	}
	return nil
}

// Excluded reports whether a slash-separated path relative to the analysed
// root matches an exclusion pattern.
func (c *Config) Excluded(rel string) bool {
	if c == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range c.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// Hash identifies the ruleset's effect. Equal rulesets hash equal.
func (c *Config) Hash() string {
	if c == nil {
		c = Default()
	}
	// yaml.v3 emits map keys sorted.
	data, err := yaml.Marshal(c)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", c))
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// String renders the ruleset as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
