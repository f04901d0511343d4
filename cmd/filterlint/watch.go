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
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/filterlint/filterlint/lint"
	"github.com/filterlint/filterlint/report"
)

// debounceDelay coalesces editor save bursts into one re-lint.
const debounceDelay = 200 * time.Millisecond

// watchLoop lints the targets, then re-lints whenever a filter list under
// them changes. Blocks until the context is cancelled.
func watchLoop(ctx context.Context, runner *lint.Runner, formatter report.Formatter, args []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if len(args) == 0 {
		args = []string{"."}
	}
	if err := addTargets(watcher, args); err != nil {
		return err
	}

	relint := func() {
		results, err := lintTargets(ctx, runner, args)
		if err != nil {
			slog.Error("Lint failed", slog.Any("error", err))
			return
		}
		if err := formatter.Format(os.Stdout, results); err != nil {
			slog.Error("Format failed", slog.Any("error", err))
		}
	}
	relint()

	// The timer is stopped until the first event arrives.
	debounce := time.NewTimer(debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	slog.Info("Watching for changes", slog.Int("targets", len(args)))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantChange(event) {
				continue
			}
			slog.Debug("Change detected",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()),
			)
			debounce.Reset(debounceDelay)

		case <-debounce.C:
			relint()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", slog.Any("error", err))
		}
	}
}

// addTargets registers the arguments with the watcher. Directories are
// watched recursively; for single files the containing directory is
// watched so editors that replace files on save are still seen.
func addTargets(watcher *fsnotify.Watcher, args []string) error {
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			if err := watcher.Add(filepath.Dir(arg)); err != nil {
				return fmt.Errorf("watch %s: %w", arg, err)
			}
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if path != arg && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
		if err != nil {
			return fmt.Errorf("watch %s: %w", arg, err)
		}
	}
	return nil
}

// relevantChange reports whether an fsnotify event should trigger a
// re-lint.
func relevantChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".txt")
}
