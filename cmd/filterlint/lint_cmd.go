// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filterlint/filterlint/config"
	"github.com/filterlint/filterlint/lint"
	"github.com/filterlint/filterlint/report"
	"github.com/filterlint/filterlint/rules"
)

func runLint(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	runner, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	formatter, err := buildFormatter()
	if err != nil {
		return err
	}

	if watchMode {
		return watchLoop(ctx, runner, formatter, args)
	}

	if applyFixes || cfg.Fix {
		paths, err := fixTargets(args)
		if err != nil {
			return err
		}
		for _, path := range paths {
			if _, err := fixFile(ctx, runner, path); err != nil {
				return err
			}
		}
	}

	results, err := lintTargets(ctx, runner, args)
	if err != nil {
		return err
	}
	if err := formatter.Format(os.Stdout, results); err != nil {
		return err
	}

	for _, r := range results {
		if r != nil && r.HasErrors() {
			os.Exit(1)
		}
	}
	return nil
}

// loadConfig resolves the effective configuration: the --config flag if
// given, otherwise the nearest .filterlintrc discovered from the working
// directory, otherwise built-in defaults.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	path, err := config.Discover(cwd)
	if errors.Is(err, config.ErrNotFound) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// setupLogging installs a text slog handler on stderr. The --log-level
// flag overrides the config file; the default is warn so lint output
// stays clean.
func setupLogging(cfg *config.Config) {
	levelName := cfg.LogLevel
	if logLevel != "" {
		levelName = logLevel
	}

	level := slog.LevelWarn
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func buildRunner(cfg *config.Config) (*lint.Runner, error) {
	registry := rules.DefaultRegistry()
	policies, err := cfg.Policies(registry)
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	return lint.NewRunner(
		lint.WithRegistry(registry),
		lint.WithPolicies(policies),
		lint.WithWorkingDir(cwd),
		lint.WithReportUnusedDirectives(reportUnused || cfg.ReportUnusedDirectives),
		lint.WithSyntaxOnly(syntaxOnly || cfg.SyntaxOnly),
	), nil
}

func buildFormatter() (report.Formatter, error) {
	switch outputFormat {
	case "text":
		if noColor {
			return report.NewTextFormatter(report.WithColor(false)), nil
		}
		return report.NewTextFormatter(), nil
	case "json":
		return report.NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", outputFormat)
	}
}

// lintTargets lints each argument, expanding directories. No arguments
// means the current directory.
func lintTargets(ctx context.Context, runner *lint.Runner, args []string) ([]*lint.Result, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var results []*lint.Result
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			batch, err := runner.LintDirectory(ctx, arg)
			if err != nil {
				return nil, err
			}
			results = append(results, batch.Results...)
			continue
		}
		result, err := runner.LintFile(ctx, arg)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
