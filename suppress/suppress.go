// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package suppress reconciles reported problems against inline
// disable/enable directives scattered through a source file.
//
// The engine is a pure function over its inputs: directives are projected
// onto a position-ordered timeline, problems are swept through it, and the
// survivors come back in their original input order. Nothing here performs
// I/O or holds state between calls.
package suppress

import "sort"

// =============================================================================
// TYPES
// =============================================================================

// Command is the kind of an inline suppression directive.
type Command int

const (
	// Disable turns suppression on from the directive's position forward.
	Disable Command = iota

	// Enable turns suppression off from the directive's position forward.
	Enable

	// DisableNextLine suppresses problems on exactly the line after the
	// directive's own line. Its effect does not persist.
	DisableNextLine
)

// String returns the directive keyword as written in source.
func (c Command) String() string {
	switch c {
	case Disable:
		return "disable"
	case Enable:
		return "enable"
	case DisableNextLine:
		return "disable-next-line"
	default:
		return "unknown"
	}
}

// Directive is one inline suppression instruction.
//
// Line and Column locate the directive itself. An empty Rule applies the
// directive to all rules; a non-empty Rule restricts it to that rule only.
type Directive struct {
	Command Command
	Line    int
	Column  int
	Rule    string
}

// Problem is one reported lint finding, reduced to the fields the
// suppression sweep needs. Line and Column locate the problem; an empty
// Rule means the problem carries no rule identity (parse errors and the
// like), which only a blanket disable can suppress.
type Problem struct {
	Rule   string
	Line   int
	Column int
	Fatal  bool
}

// =============================================================================
// OPTIONS
// =============================================================================

type config struct {
	keepFatal           bool
	sameLineTakesEffect bool
}

// Option configures a suppression sweep.
type Option func(*config)

// KeepFatal controls whether fatal problems survive suppression regardless
// of directives. Defaults to true.
func KeepFatal(v bool) Option {
	return func(c *config) { c.keepFatal = v }
}

// SameLineTakesEffect controls whether a disable/enable directive on the
// exact same line and column region as a problem already applies to that
// problem. When false, a directive only affects problems on strictly later
// lines. Defaults to true.
func SameLineTakesEffect(v bool) Option {
	return func(c *config) { c.sameLineTakesEffect = v }
}

func buildConfig(opts []Option) config {
	c := config{keepFatal: true, sameLineTakesEffect: true}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// =============================================================================
// PUBLIC API
// =============================================================================

// Filter returns the problems not suppressed by the directives, in their
// original input order.
func Filter(problems []Problem, directives []Directive, opts ...Option) []Problem {
	kept, _ := sweep(problems, directives, buildConfig(opts), false)
	return collect(problems, kept)
}

// FilterWithUnused is Filter plus unused-directive tracking: the second
// result lists every disable or disable-next-line directive that suppressed
// nothing, in input order. Enable directives are never reported.
func FilterWithUnused(problems []Problem, directives []Directive, opts ...Option) ([]Problem, []Directive) {
	kept, unused := MaskWithUnused(problems, directives, opts...)
	return collect(problems, kept), unused
}

// Mask reports, per input problem, whether it survives suppression. Useful
// when the caller needs to correlate survivors with a richer parallel
// structure.
func Mask(problems []Problem, directives []Directive, opts ...Option) []bool {
	kept, _ := sweep(problems, directives, buildConfig(opts), false)
	return kept
}

// MaskWithUnused is Mask plus the unused-directive list of
// FilterWithUnused, computed in one sweep.
func MaskWithUnused(problems []Problem, directives []Directive, opts ...Option) ([]bool, []Directive) {
	kept, used := sweep(problems, directives, buildConfig(opts), true)

	var unused []Directive
	for i, d := range directives {
		if d.Command == Enable {
			continue
		}
		if !used[i] {
			unused = append(unused, d)
		}
	}
	return kept, unused
}

// =============================================================================
// SWEEP
// =============================================================================

// lineMask is the folded effect of all disable-next-line directives
// targeting one line. dirAll and dirRules remember which directive indexes
// contributed, for unused tracking.
type lineMask struct {
	all      bool
	rules    map[string]struct{}
	dirAll   []int
	dirRules map[string][]int
}

// event is a disable/enable directive on the position timeline.
type event struct {
	dir int // index into the directives slice
	d   Directive
}

func sweep(problems []Problem, directives []Directive, cfg config, trackUsed bool) (kept []bool, used []bool) {
	kept = make([]bool, len(problems))
	used = make([]bool, len(directives))

	// Partition: next-line directives fold into a per-target-line mask,
	// disable/enable directives become a position-sorted event list.
	nextLine := make(map[int]*lineMask)
	var events []event
	for i, d := range directives {
		switch d.Command {
		case DisableNextLine:
			target := d.Line + 1
			m := nextLine[target]
			if m == nil {
				m = &lineMask{rules: make(map[string]struct{}), dirRules: make(map[string][]int)}
				nextLine[target] = m
			}
			if d.Rule == "" {
				m.all = true
				m.dirAll = append(m.dirAll, i)
			} else {
				m.rules[d.Rule] = struct{}{}
				m.dirRules[d.Rule] = append(m.dirRules[d.Rule], i)
			}
		default:
			events = append(events, event{dir: i, d: d})
		}
	}
	sort.SliceStable(events, func(a, b int) bool {
		if events[a].d.Line != events[b].d.Line {
			return events[a].d.Line < events[b].d.Line
		}
		return events[a].d.Column < events[b].d.Column
	})

	// Problems sweep in position order; ties keep input order so problems
	// sharing a position resolve against the same state snapshot.
	order := make([]int, len(problems))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := problems[order[a]], problems[order[b]]
		if pa.Line != pb.Line {
			return pa.Line < pb.Line
		}
		return pa.Column < pb.Column
	})

	// Running state: blanket disable plus individually disabled rule ids.
	// allBy / rulesBy remember the opening directive for unused tracking.
	allDisabled := false
	allBy := -1
	disabledRules := make(map[string]int)

	next := 0
	for _, pi := range order {
		p := problems[pi]

		for next < len(events) && eventApplies(events[next].d, p, cfg.sameLineTakesEffect) {
			e := events[next]
			next++
			switch e.d.Command {
			case Disable:
				if e.d.Rule == "" {
					allDisabled = true
					allBy = e.dir
				} else {
					disabledRules[e.d.Rule] = e.dir
				}
			case Enable:
				if e.d.Rule == "" {
					// Blanket enable is a full reset, not a toggle.
					allDisabled = false
					allBy = -1
					disabledRules = make(map[string]int)
				} else {
					delete(disabledRules, e.d.Rule)
				}
			}
		}

		if cfg.keepFatal && p.Fatal {
			kept[pi] = true
			continue
		}

		suppressed := false
		if m := nextLine[p.Line]; m != nil {
			if m.all {
				suppressed = true
				if trackUsed {
					markAll(used, m.dirAll)
				}
			}
			if p.Rule != "" {
				if _, ok := m.rules[p.Rule]; ok {
					suppressed = true
					if trackUsed {
						markAll(used, m.dirRules[p.Rule])
					}
				}
			}
		}
		if allDisabled {
			suppressed = true
			if trackUsed && allBy >= 0 {
				used[allBy] = true
			}
		}
		if p.Rule != "" {
			if dir, ok := disabledRules[p.Rule]; ok {
				suppressed = true
				if trackUsed {
					used[dir] = true
				}
			}
		}

		kept[pi] = !suppressed
	}

	return kept, used
}

// eventApplies reports whether a disable/enable event at-or-before the
// problem's position has taken effect for that problem.
func eventApplies(d Directive, p Problem, sameLine bool) bool {
	if d.Line < p.Line {
		return true
	}
	if !sameLine {
		return false
	}
	return d.Line == p.Line && d.Column <= p.Column
}

func markAll(used []bool, dirs []int) {
	for _, i := range dirs {
		used[i] = true
	}
}

func collect(problems []Problem, kept []bool) []Problem {
	out := make([]Problem, 0, len(problems))
	for i, p := range problems {
		if kept[i] {
			out = append(out, p)
		}
	}
	return out
}
