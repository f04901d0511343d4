// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rules defines the lint rule contract and the built-in catalog.
//
// A rule is a declarative consumer of the tree walker: it registers
// selector-to-callback pairs and reports problems through its run context.
// Rules never mutate trees; fixes are expressed as text edits over the
// original source.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/filterlint/filterlint/fixer"
	"github.com/filterlint/filterlint/textpos"
	"github.com/filterlint/filterlint/walker"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDuplicateRule indicates a rule name registered twice.
	ErrDuplicateRule = errors.New("duplicate rule name")

	// ErrUnknownSeverity indicates an unrecognized severity string.
	ErrUnknownSeverity = errors.New("unknown severity")
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity is the reporting level of a problem.
type Severity int

const (
	// SeverityOff disables a rule entirely.
	SeverityOff Severity = iota

	// SeverityInfo is advisory.
	SeverityInfo

	// SeverityWarning should be addressed but does not fail the lint.
	SeverityWarning

	// SeverityError fails the lint.
	SeverityError
)

// String returns the lowercase severity name used in config files.
func (s Severity) String() string {
	switch s {
	case SeverityOff:
		return "off"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalJSON encodes the severity as its config-file string.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a config-file severity string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a config-file severity string.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "off":
		return SeverityOff, nil
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityOff, fmt.Errorf("%w: %q", ErrUnknownSeverity, s)
	}
}

// =============================================================================
// RULE CONTRACT
// =============================================================================

// Problem is one reported finding. Rules fill Message, Start, End, and
// optionally Fix; the runtime fills Rule, Severity, Line, and Column.
type Problem struct {
	Rule     string
	Severity Severity
	Message  string

	// Start and End are the byte range in the original source.
	Start, End int

	// Line is 1-based, Column 0-based, derived from Start.
	Line, Column int

	// Fatal marks problems that survive suppression by default, such as
	// parse errors.
	Fatal bool

	// Fix optionally proposes a text edit resolving the problem.
	Fix *fixer.Fix
}

// Meta describes a rule for registries, configuration, and reporting.
type Meta struct {
	Description     string
	DefaultSeverity Severity
	Fixable         bool
}

// Rule is one lint rule.
type Rule interface {
	// Name is the stable rule id used in config and inline directives.
	Name() string

	// Meta returns the rule's static metadata.
	Meta() Meta

	// Register wires the rule's selector callbacks into the visitor set.
	// Callbacks report through the run context.
	Register(rc *RunContext, vs *walker.VisitorSet)
}

// RunContext carries per-run, per-rule state into rule callbacks.
//
// Thread Safety: Read-only during a walk; safe to share across the
// callbacks of the one rule it was built for.
type RunContext struct {
	// Source is the full original text being linted.
	Source string

	// Index is the position index over Source.
	Index *textpos.Index

	// Options holds the rule's configuration options, decoded from the
	// config file. Nil when the rule has none.
	Options map[string]any

	report func(Problem)
}

// NewRunContext creates a run context reporting into sink.
func NewRunContext(source string, index *textpos.Index, options map[string]any, sink func(Problem)) *RunContext {
	return &RunContext{
		Source:  source,
		Index:   index,
		Options: options,
		report:  sink,
	}
}

// Report emits a problem. Line and column are derived from Start when not
// already set.
func (rc *RunContext) Report(p Problem) {
	if p.Line == 0 {
		if pos, ok := rc.Index.PositionAt(p.Start); ok {
			p.Line = pos.Line
			p.Column = pos.Column
		}
	}
	rc.report(p)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is a named collection of rules.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule. Registering a name twice is an error.
func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := rule.Name()
	if _, exists := r.rules[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, name)
	}
	r.rules[name] = rule
	return nil
}

// Get returns the rule registered under name.
func (r *Registry) Get(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// Names returns all registered rule names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered rules, sorted by name.
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Rule, 0, len(names))
	for _, name := range names {
		out = append(out, r.rules[name])
	}
	return out
}
