// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lint

import (
	"time"

	"github.com/filterlint/filterlint/fixer"
	"github.com/filterlint/filterlint/rules"
)

// =============================================================================
// LINT ISSUE
// =============================================================================

// UnusedDirectiveRule is the rule id under which unnecessary inline
// disable comments are reported.
const UnusedDirectiveRule = "unused-directive"

// Issue is a single reported finding, positioned in the linted source.
//
// Thread Safety: Immutable after creation.
type Issue struct {
	// File is the path of the linted file, empty for in-memory sources.
	File string `json:"file,omitempty"`

	// Line is 1-indexed; Column is 0-indexed.
	Line   int `json:"line"`
	Column int `json:"column"`

	// Start and End are the byte range in the original source.
	Start int `json:"start"`
	End   int `json:"end"`

	// Rule is the rule id that reported the issue; empty for parse errors.
	Rule string `json:"rule,omitempty"`

	// Severity is the effective severity after policy overrides.
	Severity rules.Severity `json:"severity"`

	// Message describes the issue.
	Message string `json:"message"`

	// Fatal issues survive inline suppression by default.
	Fatal bool `json:"fatal,omitempty"`

	// Fix is the proposed edit, when the rule offers one.
	Fix *fixer.Fix `json:"-"`
}

// Location returns "file:line:column" for human-readable output.
func (i *Issue) Location() string {
	loc := ""
	if i.File != "" {
		loc = i.File + ":"
	}
	return loc + itoa(i.Line) + ":" + itoa(i.Column)
}

// CanAutoFix reports whether the issue carries an applicable fix.
func (i *Issue) CanAutoFix() bool {
	return i.Fix != nil
}

// =============================================================================
// LINT RESULT
// =============================================================================

// Result contains the outcome of linting one source.
//
// Thread Safety: Immutable after creation by the runner.
type Result struct {
	// Valid is true when no error-severity issues were found.
	Valid bool `json:"valid"`

	// Errors, Warnings, and Infos are issues bucketed by severity.
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Infos    []Issue `json:"infos,omitempty"`

	// Duration is how long the lint took.
	Duration time.Duration `json:"duration"`

	// FilePath is the linted file, empty for in-memory sources.
	FilePath string `json:"file_path,omitempty"`
}

// HasErrors reports whether any blocking issue was found.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// IssueCount returns the total number of issues across severities.
func (r *Result) IssueCount() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Infos)
}

// AllIssues returns every issue in severity-bucket order.
func (r *Result) AllIssues() []Issue {
	out := make([]Issue, 0, r.IssueCount())
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	out = append(out, r.Infos...)
	return out
}

// FixableCount returns how many issues carry an applicable fix.
func (r *Result) FixableCount() int {
	count := 0
	for _, issue := range r.AllIssues() {
		if issue.CanAutoFix() {
			count++
		}
	}
	return count
}

// =============================================================================
// FIX RESULT
// =============================================================================

// FixResult is the outcome of an auto-fix pass.
type FixResult struct {
	// Output is the rewritten source.
	Output string `json:"output"`

	// Changed is true when Output differs from the input.
	Changed bool `json:"changed"`

	// Applied and Rejected partition the proposed fixes.
	Applied  []fixer.Fix `json:"applied"`
	Rejected []fixer.Fix `json:"rejected,omitempty"`

	// Relint is the result of linting Output once after fixing, so
	// callers can see what remains.
	Relint *Result `json:"relint,omitempty"`
}

// =============================================================================
// BATCH RESULT
// =============================================================================

// BatchResult aggregates the results of linting several files.
type BatchResult struct {
	// RunID uniquely identifies this batch for logs and reports.
	RunID string `json:"run_id"`

	// Results holds one entry per input path, in input order.
	Results []*Result `json:"results"`

	// Duration is the wall time of the whole batch.
	Duration time.Duration `json:"duration"`
}

// Valid reports whether every file in the batch passed.
func (b *BatchResult) Valid() bool {
	for _, r := range b.Results {
		if r != nil && !r.Valid {
			return false
		}
	}
	return true
}

// TotalIssues returns the issue count across all files.
func (b *BatchResult) TotalIssues() int {
	total := 0
	for _, r := range b.Results {
		if r != nil {
			total += r.IssueCount()
		}
	}
	return total
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	if i < 0 {
		return "-" + itoa(-i)
	}
	var b [20]byte
	n := len(b)
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	return string(b[n:])
}
