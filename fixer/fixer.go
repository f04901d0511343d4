// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package fixer merges proposed text edits into one consistent rewrite.
//
// Every edit's range is expressed in original-source coordinates and is
// never adjusted for the cumulative effect of earlier edits; the compositor
// resolves conflicts by applying the earliest non-overlapping subset and
// reporting the rest back to the caller.
package fixer

import (
	"sort"
	"strings"
)

// =============================================================================
// TYPES
// =============================================================================

// Fix is one proposed replacement of original source bytes [Start, End)
// with Text. A zero-length range (Start == End) is a pure insertion.
type Fix struct {
	Start int
	End   int
	Text  string

	// Rule optionally names the rule that proposed the fix, carried
	// through untouched for reporting.
	Rule string
}

// Result is the outcome of composing a set of fixes.
type Result struct {
	// Output is the rewritten source.
	Output string

	// Applied lists the fixes merged into Output, in application order.
	Applied []Fix

	// Rejected lists the fixes that overlapped an already applied fix or
	// carried an invalid range. Callers typically re-lint Output and try
	// again.
	Rejected []Fix
}

// =============================================================================
// COMPOSITOR
// =============================================================================

// Apply composes the fixes over the source.
//
// Description:
//
//	Fixes are ordered by (start, end, input order), then spliced left to
//	right while tracking the furthest original offset consumed. A fix
//	starting before that mark overlaps an applied fix and is rejected
//	without consuming anything. Pure insertions at one offset never
//	conflict with each other or with a replacement starting there: the
//	mark does not advance past them, so they land in input order.
//
// Inputs:
//
//	source - Original text, never mutated
//	fixes - Proposed edits in original-source coordinates
//
// Outputs:
//
//	Result - Rewritten text plus the applied/rejected partition
func Apply(source string, fixes []Fix) Result {
	res := Result{Output: source}
	if len(fixes) == 0 {
		return res
	}

	order := make([]int, 0, len(fixes))
	for i, f := range fixes {
		if f.Start < 0 || f.End < f.Start || f.End > len(source) {
			res.Rejected = append(res.Rejected, f)
			continue
		}
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		fa, fb := fixes[order[a]], fixes[order[b]]
		if fa.Start != fb.Start {
			return fa.Start < fb.Start
		}
		return fa.End < fb.End
	})

	var out strings.Builder
	out.Grow(len(source))
	mark := 0
	for _, i := range order {
		f := fixes[i]
		if f.Start < mark {
			res.Rejected = append(res.Rejected, f)
			continue
		}
		out.WriteString(source[mark:f.Start])
		out.WriteString(f.Text)
		mark = f.End
		res.Applied = append(res.Applied, f)
	}
	out.WriteString(source[mark:])

	res.Output = out.String()
	return res
}
