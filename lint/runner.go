// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lint wires the rule catalog to the tree walker stack and runs
// the full pipeline: parse, walk, collect problems, apply inline
// suppression, and optionally compose fixes.
package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/filterlint/filterlint/adblock"
	"github.com/filterlint/filterlint/cssparse"
	"github.com/filterlint/filterlint/fixer"
	"github.com/filterlint/filterlint/rules"
	"github.com/filterlint/filterlint/suppress"
	"github.com/filterlint/filterlint/textpos"
	"github.com/filterlint/filterlint/walker"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidInput indicates a nil or otherwise unusable argument.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoFilterLists indicates a directory walk found nothing to lint.
	ErrNoFilterLists = errors.New("no filter lists found")
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes the lint pipeline over filter-list sources.
//
// Description:
//
//	For each source the runner parses the filter list, registers every
//	active rule's visitors, walks the tree through the sub-parse
//	orchestrator (so cosmetic rule bodies are analyzed as CSS), collects
//	reported problems, reconciles them against inline suppression
//	directives, and buckets the survivors by severity.
//
// Thread Safety: Safe for concurrent use; per-run state lives on the
// stack of each call.
type Runner struct {
	registry     *rules.Registry
	policies     *PolicyRegistry
	cssBinding   *walker.Binding
	workingDir   string
	reportUnused bool
	syntaxOnly   bool
}

// Option configures the Runner.
type Option func(*Runner)

// WithRegistry sets a custom rule registry.
func WithRegistry(registry *rules.Registry) Option {
	return func(r *Runner) { r.registry = registry }
}

// WithPolicies sets a custom policy registry.
func WithPolicies(policies *PolicyRegistry) Option {
	return func(r *Runner) { r.policies = policies }
}

// WithCSSBinding replaces the default tree-sitter CSS binding. A nil
// binding disables CSS sub-parsing entirely.
func WithCSSBinding(b *walker.Binding) Option {
	return func(r *Runner) { r.cssBinding = b }
}

// WithWorkingDir resolves relative file paths against dir.
func WithWorkingDir(dir string) Option {
	return func(r *Runner) { r.workingDir = dir }
}

// WithReportUnusedDirectives enables reporting of inline disable comments
// that suppressed nothing.
func WithReportUnusedDirectives(v bool) Option {
	return func(r *Runner) { r.reportUnused = v }
}

// WithSyntaxOnly restricts the run to parse errors, skipping all rules.
func WithSyntaxOnly(v bool) Option {
	return func(r *Runner) { r.syntaxOnly = v }
}

// NewRunner creates a runner with the built-in rule catalog and the
// tree-sitter CSS binding.
func NewRunner(opts ...Option) *Runner {
	css := cssparse.NewParser().Binding(adblock.TypeElementHidingBody)
	r := &Runner{
		registry:   rules.DefaultRegistry(),
		policies:   NewPolicyRegistry(),
		cssBinding: &css,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// =============================================================================
// LINTING
// =============================================================================

// LintSource lints in-memory filter-list text.
//
// Inputs:
//
//	ctx - Context for tracing; not consulted mid-walk
//	name - Display name for the source (file path or synthetic)
//	src - The filter-list text
//
// Outputs:
//
//	*Result - Bucketed surviving issues
//	error - Non-nil only for invalid arguments
//
// Thread Safety: Safe for concurrent use.
func (r *Runner) LintSource(ctx context.Context, name, src string) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}

	ctx, span := startLintSpan(ctx, "Runner.LintSource", name)
	defer span.End()
	start := time.Now()

	result, suppressed := r.lint(name, src)
	result.Duration = time.Since(start)

	setLintSpanResult(span, len(result.Errors), len(result.Warnings), suppressed)
	recordLintMetrics(ctx, result.Duration, len(result.Errors), len(result.Warnings), suppressed)

	slog.Debug("Lint complete",
		slog.String("source", name),
		slog.Int("errors", len(result.Errors)),
		slog.Int("warnings", len(result.Warnings)),
		slog.Int("suppressed", suppressed),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// lint runs the pipeline and returns the result plus the count of
// problems dropped by inline directives.
func (r *Runner) lint(name, src string) (*Result, int) {
	index := textpos.NewIndex(src)
	var problems []rules.Problem

	parser := adblock.NewParser(adblock.WithErrorCallback(func(e *adblock.ParseError) {
		problems = append(problems, rules.Problem{
			Severity: rules.SeverityError,
			Message:  e.Message,
			Start:    e.Start,
			End:      e.End,
			Line:     e.Line,
			Column:   e.Column,
			Fatal:    true,
		})
	}))
	root := parser.Parse(src)
	directives := adblock.ExtractDirectives(root, index)

	vs := walker.NewVisitorSet()
	active := make(map[string]rules.Severity)
	if !r.syntaxOnly {
		for _, rule := range r.registry.All() {
			severity, options := r.policies.Effective(rule)
			if severity == rules.SeverityOff {
				continue
			}
			active[rule.Name()] = severity

			ruleName := rule.Name()
			rc := rules.NewRunContext(src, index, options, func(p rules.Problem) {
				p.Rule = ruleName
				p.Severity = severity
				problems = append(problems, p)
			})
			rule.Register(rc, vs)
		}
	}

	r.walk(index, root, vs, &problems, active)

	kept, unused := r.applySuppression(problems, directives)

	result := &Result{FilePath: fileName(name)}
	suppressedCount := 0
	for i, p := range problems {
		if !kept[i] {
			suppressedCount++
			continue
		}
		issue := Issue{
			File:     result.FilePath,
			Line:     p.Line,
			Column:   p.Column,
			Start:    p.Start,
			End:      p.End,
			Rule:     p.Rule,
			Severity: p.Severity,
			Message:  p.Message,
			Fatal:    p.Fatal,
			Fix:      p.Fix,
		}
		switch p.Severity {
		case rules.SeverityError:
			result.Errors = append(result.Errors, issue)
		case rules.SeverityWarning:
			result.Warnings = append(result.Warnings, issue)
		default:
			result.Infos = append(result.Infos, issue)
		}
	}

	for _, d := range unused {
		result.Warnings = append(result.Warnings, Issue{
			File:     result.FilePath,
			Line:     d.Line,
			Column:   d.Column,
			Rule:     UnusedDirectiveRule,
			Severity: rules.SeverityWarning,
			Message:  fmt.Sprintf("%s directive suppresses nothing", d.Command),
		})
	}

	result.Valid = len(result.Errors) == 0
	return result, suppressedCount
}

// walk traverses the parsed tree, through the orchestrator when a CSS
// binding is configured.
func (r *Runner) walk(index *textpos.Index, root *walker.Node, vs *walker.VisitorSet, problems *[]rules.Problem, active map[string]rules.Severity) {
	if r.cssBinding == nil {
		walker.NewWalker().Walk(root, vs, adblock.Schema())
		return
	}

	severity, cssActive := active[rules.InvalidCSSRuleName]
	o, err := walker.NewOrchestrator(
		[]walker.Binding{*r.cssBinding},
		walker.WithErrorSink(func(e *walker.SubParseError) {
			if !cssActive {
				return
			}
			*problems = append(*problems, rules.Problem{
				Rule:     rules.InvalidCSSRuleName,
				Severity: severity,
				Message:  e.Err.Error(),
				Start:    e.Start,
				End:      e.End,
				Line:     e.StartPos.Line,
				Column:   e.StartPos.Column,
			})
		}),
	)
	if err != nil {
		// Bindings are static; a bad selector is a programming error.
		panic(err)
	}
	o.Walk(index, root, vs, adblock.Schema())
}

// applySuppression reconciles problems against inline directives.
func (r *Runner) applySuppression(problems []rules.Problem, directives []suppress.Directive) ([]bool, []suppress.Directive) {
	sp := make([]suppress.Problem, len(problems))
	for i, p := range problems {
		sp[i] = suppress.Problem{
			Rule:   p.Rule,
			Line:   p.Line,
			Column: p.Column,
			Fatal:  p.Fatal,
		}
	}
	if r.reportUnused {
		return suppress.MaskWithUnused(sp, directives)
	}
	return suppress.Mask(sp, directives), nil
}

// =============================================================================
// FIXING
// =============================================================================

// FixSource lints the text, applies every surviving fix, and re-lints the
// rewritten output once.
//
// Outputs:
//
//	*FixResult - Rewritten text, applied/rejected fixes, and the re-lint
//	error - Non-nil only for invalid arguments
func (r *Runner) FixSource(ctx context.Context, name, src string) (*FixResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}

	ctx, span := startLintSpan(ctx, "Runner.FixSource", name)
	defer span.End()

	first, _ := r.lint(name, src)

	var fixes []fixer.Fix
	for _, issue := range first.AllIssues() {
		if issue.Fix != nil {
			fixes = append(fixes, *issue.Fix)
		}
	}

	res := fixer.Apply(src, fixes)
	out := &FixResult{
		Output:   res.Output,
		Changed:  res.Output != src,
		Applied:  res.Applied,
		Rejected: res.Rejected,
	}

	if out.Changed {
		relint, _ := r.lint(name, res.Output)
		out.Relint = relint
	} else {
		out.Relint = first
	}

	recordFixMetrics(ctx, len(out.Applied))
	slog.Debug("Fix complete",
		slog.String("source", name),
		slog.Int("applied", len(out.Applied)),
		slog.Int("rejected", len(out.Rejected)),
	)
	return out, nil
}

// =============================================================================
// FILES AND DIRECTORIES
// =============================================================================

// LintFile reads and lints one file. Relative paths resolve against the
// runner's working directory.
func (r *Runner) LintFile(ctx context.Context, path string) (*Result, error) {
	abs := r.resolve(path)
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return r.LintSource(ctx, path, string(content))
}

// LintFiles lints several files concurrently, preserving input order in
// the batch result.
//
// Outputs:
//
//	*BatchResult - One result per path, nil entries for failed reads
//	error - Joined read errors, nil when every file was linted
func (r *Runner) LintFiles(ctx context.Context, paths []string) (*BatchResult, error) {
	start := time.Now()
	batch := &BatchResult{
		RunID:   uuid.New().String(),
		Results: make([]*Result, len(paths)),
	}
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			batch.Results[i], errs[i] = r.LintFile(ctx, path)
		}(i, path)
	}
	wg.Wait()

	batch.Duration = time.Since(start)
	slog.Info("Batch lint complete",
		slog.String("run_id", batch.RunID),
		slog.Int("files", len(paths)),
		slog.Int("issues", batch.TotalIssues()),
		slog.Duration("duration", batch.Duration),
	)
	return batch, errors.Join(errs...)
}

// LintDirectory lints every filter list under dir, recursively. Hidden
// directories and common dependency directories are skipped.
func (r *Runner) LintDirectory(ctx context.Context, dir string) (*BatchResult, error) {
	paths, err := FindFilterLists(r.resolve(dir))
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFilterLists, dir)
	}
	return r.LintFiles(ctx, paths)
}

// FindFilterLists returns the sorted paths of all filter lists under
// root, recursively. Hidden directories, node_modules, and vendor are
// skipped.
func FindFilterLists(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(name), ".txt") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *Runner) resolve(path string) string {
	if filepath.IsAbs(path) || r.workingDir == "" {
		return path
	}
	return filepath.Join(r.workingDir, path)
}

// fileName normalizes a source display name to a file path field; an
// empty or synthetic name stays empty.
func fileName(name string) string {
	if name == "" || name == "<stdin>" {
		return ""
	}
	return name
}
