// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package report renders lint results for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/filterlint/filterlint/lint"
	"github.com/filterlint/filterlint/rules"
)

// Formatter renders a set of lint results.
type Formatter interface {
	Format(w io.Writer, results []*lint.Result) error
}

// =============================================================================
// TEXT
// =============================================================================

// Semantic colors for terminal output.
var (
	colorError   = lipgloss.Color("#E74C3C")
	colorWarning = lipgloss.Color("#F4D03F")
	colorMuted   = lipgloss.Color("#2C4A54")
	colorOK      = lipgloss.Color("#2CD7C7")
)

type textStyles struct {
	file     lipgloss.Style
	location lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	info     lipgloss.Style
	rule     lipgloss.Style
	ok       lipgloss.Style
	summary  lipgloss.Style
}

func coloredStyles() textStyles {
	return textStyles{
		file:     lipgloss.NewStyle().Bold(true).Underline(true),
		location: lipgloss.NewStyle().Foreground(colorMuted),
		err:      lipgloss.NewStyle().Foreground(colorError),
		warn:     lipgloss.NewStyle().Foreground(colorWarning),
		info:     lipgloss.NewStyle().Foreground(colorMuted),
		rule:     lipgloss.NewStyle().Foreground(colorMuted),
		ok:       lipgloss.NewStyle().Foreground(colorOK),
		summary:  lipgloss.NewStyle().Bold(true),
	}
}

func plainStyles() textStyles {
	return textStyles{}
}

// TextFormatter renders results for humans.
type TextFormatter struct {
	styles textStyles
}

// TextOption configures a TextFormatter.
type TextOption func(*TextFormatter)

// WithColor forces color on or off. The default follows whether stdout is
// a terminal.
func WithColor(enabled bool) TextOption {
	return func(f *TextFormatter) {
		if enabled {
			f.styles = coloredStyles()
		} else {
			f.styles = plainStyles()
		}
	}
}

// NewTextFormatter creates a text formatter with auto-detected color.
func NewTextFormatter(opts ...TextOption) *TextFormatter {
	f := &TextFormatter{styles: plainStyles()}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		f.styles = coloredStyles()
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format writes one block per file followed by a summary line.
func (f *TextFormatter) Format(w io.Writer, results []*lint.Result) error {
	errors, warnings, infos := 0, 0, 0

	for _, r := range results {
		if r == nil || r.IssueCount() == 0 {
			continue
		}
		name := r.FilePath
		if name == "" {
			name = "<input>"
		}
		if _, err := fmt.Fprintln(w, f.styles.file.Render(name)); err != nil {
			return err
		}
		for _, issue := range r.AllIssues() {
			if err := f.writeIssue(w, issue); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		errors += len(r.Errors)
		warnings += len(r.Warnings)
		infos += len(r.Infos)
	}

	return f.writeSummary(w, errors, warnings, infos)
}

func (f *TextFormatter) writeIssue(w io.Writer, issue lint.Issue) error {
	var level string
	switch issue.Severity {
	case rules.SeverityError:
		level = f.styles.err.Render("error")
	case rules.SeverityWarning:
		level = f.styles.warn.Render("warning")
	default:
		level = f.styles.info.Render("info")
	}

	rule := ""
	if issue.Rule != "" {
		rule = "  " + f.styles.rule.Render(issue.Rule)
	}
	_, err := fmt.Fprintf(w, "  %s  %s  %s%s\n",
		f.styles.location.Render(fmt.Sprintf("%d:%d", issue.Line, issue.Column)),
		level,
		issue.Message,
		rule,
	)
	return err
}

func (f *TextFormatter) writeSummary(w io.Writer, errors, warnings, infos int) error {
	total := errors + warnings + infos
	if total == 0 {
		_, err := fmt.Fprintln(w, f.styles.ok.Render("✓ no problems found"))
		return err
	}

	mark := f.styles.warn.Render("⚠")
	if errors > 0 {
		mark = f.styles.err.Render("✗")
	}
	_, err := fmt.Fprintf(w, "%s %s\n", mark, f.styles.summary.Render(
		fmt.Sprintf("%d problem%s (%d errors, %d warnings, %d infos)",
			total, plural(total), errors, warnings, infos)))
	return err
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// =============================================================================
// JSON
// =============================================================================

// JSONFormatter renders results as indented JSON for tooling.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the results array as JSON.
func (f *JSONFormatter) Format(w io.Writer, results []*lint.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
