// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/filterlint/filterlint/rules"
)

// --- Global Command Variables ---
var (
	configPath    string
	outputFormat  string // text or json
	applyFixes    bool
	watchMode     bool
	noColor       bool
	reportUnused  bool
	syntaxOnly    bool
	logLevel      string
	dryRun        bool
	fixInPlaceExt string // backup extension for fix, empty means none

	rootCmd = &cobra.Command{
		Use:   "filterlint [files or directories...]",
		Short: "A linter for adblock filter lists",
		Long: `Filterlint checks adblock filter lists for syntax errors and
style problems, with inline suppression comments and auto-fixing.`,
		SilenceUsage: true,
		RunE:         runLint, // Defined in lint_cmd.go
	}

	fixCmd = &cobra.Command{
		Use:   "fix [files or directories...]",
		Short: "Apply auto-fixes to filter lists",
		RunE:  runFix, // Defined in fix_cmd.go
	}

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "List the available rules",
		Run:   runRules,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a .filterlintrc config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text or json)")
	rootCmd.Flags().BoolVar(&applyFixes, "fix", false, "Apply auto-fixes before reporting")
	rootCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-lint when the inputs change")
	rootCmd.Flags().BoolVar(&reportUnused, "report-unused-disables", false, "Report inline disable comments that suppress nothing")
	rootCmd.Flags().BoolVar(&syntaxOnly, "syntax-only", false, "Only report parse errors")

	fixCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print a diff instead of rewriting files")
	fixCmd.Flags().StringVar(&fixInPlaceExt, "backup", "", "Keep the original with this extension (e.g. .orig)")

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) {
	registry := rules.DefaultRegistry()
	for _, rule := range registry.All() {
		meta := rule.Meta()
		fixable := ""
		if meta.Fixable {
			fixable = " (fixable)"
		}
		fmt.Fprintf(os.Stdout, "%-32s %-8s %s%s\n",
			rule.Name(), meta.DefaultSeverity, meta.Description, fixable)
	}
}
