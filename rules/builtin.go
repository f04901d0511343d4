// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"fmt"
	"strings"

	"github.com/filterlint/filterlint/adblock"
	"github.com/filterlint/filterlint/fixer"
	"github.com/filterlint/filterlint/walker"
)

// InvalidCSSRuleName is the rule id under which the runtime reports CSS
// sub-parse failures. It exists in the catalog so its severity can be
// configured and suppressed like any other rule.
const InvalidCSSRuleName = "invalid-css-syntax"

// DefaultRegistry returns a registry with every built-in rule.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range []Rule{
		&duplicatedModifiers{},
		&unknownPreProcessor{},
		&singleSelector{},
		&shortPattern{},
		&invalidCSS{},
	} {
		// Built-in names are unique by construction.
		_ = r.Register(rule)
	}
	return r
}

// =============================================================================
// duplicated-modifiers
// =============================================================================

// duplicatedModifiers flags network rules listing the same modifier more
// than once and offers a fix that keeps the first occurrence of each.
type duplicatedModifiers struct{}

func (*duplicatedModifiers) Name() string { return "duplicated-modifiers" }

func (*duplicatedModifiers) Meta() Meta {
	return Meta{
		Description:     "Network rule modifiers must not repeat",
		DefaultSeverity: SeverityWarning,
		Fixable:         true,
	}
}

func (r *duplicatedModifiers) Register(rc *RunContext, vs *walker.VisitorSet) {
	vs.MustOn(adblock.TypeNetworkRule, func(n *walker.Node, _ []*walker.Node) {
		v, ok := n.Get("modifiers")
		if !ok {
			return
		}
		mods, ok := v.([]*walker.Node)
		if !ok || len(mods) < 2 {
			return
		}

		seen := make(map[string]bool)
		var kept []*walker.Node
		var dups []string
		for _, m := range mods {
			name, _ := m.String("name")
			if seen[name] {
				dups = append(dups, name)
				continue
			}
			seen[name] = true
			kept = append(kept, m)
		}
		if len(dups) == 0 {
			return
		}

		first, _ := mods[0].Int("start")
		last, _ := mods[len(mods)-1].Int("end")

		parts := make([]string, 0, len(kept))
		for _, m := range kept {
			s, _ := m.Int("start")
			e, _ := m.Int("end")
			parts = append(parts, rc.Source[s:e])
		}

		rc.Report(Problem{
			Message: fmt.Sprintf("duplicated modifier(s): %s", strings.Join(dups, ", ")),
			Start:   first,
			End:     last,
			Fix: &fixer.Fix{
				Start: first,
				End:   last,
				Text:  strings.Join(parts, ","),
				Rule:  r.Name(),
			},
		})
	})
}

// =============================================================================
// unknown-preprocessor-directive
// =============================================================================

var knownPreProcessors = map[string]bool{
	"if":                 true,
	"else":               true,
	"endif":              true,
	"include":            true,
	"safari_cb_affinity": true,
}

// unknownPreProcessor flags "!#directive" lines with an unrecognized
// directive name, usually a typo.
type unknownPreProcessor struct{}

func (*unknownPreProcessor) Name() string { return "unknown-preprocessor-directive" }

func (*unknownPreProcessor) Meta() Meta {
	return Meta{
		Description:     "Pre-processor directives must use a known name",
		DefaultSeverity: SeverityError,
	}
}

func (*unknownPreProcessor) Register(rc *RunContext, vs *walker.VisitorSet) {
	vs.MustOn(adblock.TypePreProcessor, func(n *walker.Node, _ []*walker.Node) {
		name, _ := n.String("name")
		if knownPreProcessors[name] {
			return
		}
		start, _ := n.Int("start")
		end, _ := n.Int("end")
		rc.Report(Problem{
			Message: fmt.Sprintf("unknown pre-processor directive %q", name),
			Start:   start,
			End:     end,
		})
	})
}

// =============================================================================
// single-selector
// =============================================================================

// singleSelector flags cosmetic rule bodies carrying a comma-separated
// selector list; one selector per rule keeps lists diffable and lets
// blockers report which selector matched.
type singleSelector struct{}

func (*singleSelector) Name() string { return "single-selector" }

func (*singleSelector) Meta() Meta {
	return Meta{
		Description:     "Cosmetic rules should contain a single selector",
		DefaultSeverity: SeverityInfo,
	}
}

func (*singleSelector) Register(rc *RunContext, vs *walker.VisitorSet) {
	// "selectors" nodes only occur in CSS sub-trees delegated from
	// cosmetic rule bodies.
	vs.MustOn("selectors", func(n *walker.Node, _ []*walker.Node) {
		v, ok := n.Get("children")
		if !ok {
			return
		}
		children, ok := v.([]*walker.Node)
		if !ok || len(children) < 2 {
			return
		}
		start, _ := n.Int("start")
		end, _ := n.Int("end")
		rc.Report(Problem{
			Message: fmt.Sprintf("%d selectors in one rule; use one rule per selector", len(children)),
			Start:   start,
			End:     end,
		})
	})
}

// =============================================================================
// short-pattern
// =============================================================================

const defaultMinPatternLength = 4

// shortPattern flags network rule patterns so short they are likely to
// over-block. The threshold is configurable via the "minLength" option.
type shortPattern struct{}

func (*shortPattern) Name() string { return "short-pattern" }

func (*shortPattern) Meta() Meta {
	return Meta{
		Description:     "Network rule patterns must not be too short",
		DefaultSeverity: SeverityWarning,
	}
}

func (r *shortPattern) Register(rc *RunContext, vs *walker.VisitorSet) {
	min := optionInt(rc.Options, "minLength", defaultMinPatternLength)

	vs.MustOn(adblock.TypeNetworkRule, func(n *walker.Node, _ []*walker.Node) {
		pattern, _ := n.String("pattern")
		if len(pattern) >= min {
			return
		}
		start, _ := n.Int("start")
		end, _ := n.Int("end")
		rc.Report(Problem{
			Message: fmt.Sprintf("pattern %q is shorter than %d characters and may over-block", pattern, min),
			Start:   start,
			End:     end,
		})
	})
}

// =============================================================================
// invalid-css-syntax
// =============================================================================

// invalidCSS has no visitors of its own: the runtime reports CSS sub-parse
// failures under this rule's name through the orchestrator's error sink.
// It is registered so configuration and suppression treat it uniformly.
type invalidCSS struct{}

func (*invalidCSS) Name() string { return InvalidCSSRuleName }

func (*invalidCSS) Meta() Meta {
	return Meta{
		Description:     "Cosmetic rule bodies must be valid CSS",
		DefaultSeverity: SeverityError,
	}
}

func (*invalidCSS) Register(*RunContext, *walker.VisitorSet) {}

// optionInt reads an integer rule option, tolerating the numeric types
// yaml and json decoders produce.
func optionInt(options map[string]any, key string, fallback int) int {
	v, ok := options[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}
