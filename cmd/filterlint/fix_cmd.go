// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filterlint/filterlint/lint"
	"github.com/filterlint/filterlint/report"
)

func runFix(cmd *cobra.Command, args []string) error {
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

	paths, err := fixTargets(args)
	if err != nil {
		return err
	}

	changed := 0
	for _, path := range paths {
		didChange, err := fixFile(ctx, runner, path)
		if err != nil {
			return err
		}
		if didChange {
			changed++
		}
	}

	if !dryRun {
		fmt.Fprintf(os.Stdout, "fixed %d of %d files\n", changed, len(paths))
	}
	return nil
}

// fixTargets expands the arguments into filter list paths. No arguments
// means the current directory.
func fixTargets(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := lint.FindFilterLists(arg)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, lint.ErrNoFilterLists
	}
	return paths, nil
}

// fixFile applies fixes to one file, either printing a diff (dry run) or
// rewriting it in place.
func fixFile(ctx context.Context, runner *lint.Runner, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	source := string(data)

	result, err := runner.FixSource(ctx, path, source)
	if err != nil {
		return false, err
	}
	if !result.Changed {
		return false, nil
	}

	if dryRun {
		return true, report.NewDiffFormatter().Format(os.Stdout, path, source, result.Output)
	}

	if fixInPlaceExt != "" {
		backup := path + fixInPlaceExt
		if err := os.WriteFile(backup, data, info.Mode().Perm()); err != nil {
			return false, fmt.Errorf("write backup %s: %w", backup, err)
		}
	}
	if err := os.WriteFile(path, []byte(result.Output), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}

	slog.Info("Applied fixes",
		slog.String("path", path),
		slog.Int("applied", len(result.Applied)),
		slog.Int("rejected", len(result.Rejected)),
	)
	return true, nil
}
