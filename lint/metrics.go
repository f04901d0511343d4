// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lint

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for lint operations.
var (
	tracer = otel.Tracer("filterlint.lint")
	meter  = otel.Meter("filterlint.lint")
)

// Metrics for lint operations.
var (
	lintLatency       metric.Float64Histogram
	lintTotal         metric.Int64Counter
	problemsFound     metric.Int64Histogram
	errorsFound       metric.Int64Counter
	warningsFound     metric.Int64Counter
	suppressedTotal   metric.Int64Counter
	fixesAppliedTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		lintLatency, err = meter.Float64Histogram(
			"lint_duration_seconds",
			metric.WithDescription("Duration of lint operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		lintTotal, err = meter.Int64Counter(
			"lint_total",
			metric.WithDescription("Total number of lint operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		problemsFound, err = meter.Int64Histogram(
			"lint_problems_found",
			metric.WithDescription("Number of problems found per lint operation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		errorsFound, err = meter.Int64Counter(
			"lint_errors_found_total",
			metric.WithDescription("Total number of error-severity problems found"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		warningsFound, err = meter.Int64Counter(
			"lint_warnings_found_total",
			metric.WithDescription("Total number of warning-severity problems found"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		suppressedTotal, err = meter.Int64Counter(
			"lint_suppressed_total",
			metric.WithDescription("Total number of problems dropped by inline directives"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		fixesAppliedTotal, err = meter.Int64Counter(
			"lint_fixes_applied_total",
			metric.WithDescription("Total number of auto-fixes applied"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startLintSpan creates a span for a lint operation.
func startLintSpan(ctx context.Context, op, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op,
		trace.WithAttributes(
			attribute.String("lint.source", name),
		),
	)
}

// setLintSpanResult sets the result attributes on a lint span.
func setLintSpanResult(span trace.Span, errorCount, warningCount, suppressed int) {
	span.SetAttributes(
		attribute.Int("lint.error_count", errorCount),
		attribute.Int("lint.warning_count", warningCount),
		attribute.Int("lint.suppressed_count", suppressed),
	)
}

// recordLintMetrics records metrics for one lint operation.
func recordLintMetrics(ctx context.Context, duration time.Duration, errorCount, warningCount, suppressed int) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("valid", errorCount == 0),
	)

	lintLatency.Record(ctx, duration.Seconds(), attrs)
	lintTotal.Add(ctx, 1, attrs)
	problemsFound.Record(ctx, int64(errorCount+warningCount))
	errorsFound.Add(ctx, int64(errorCount))
	warningsFound.Add(ctx, int64(warningCount))
	suppressedTotal.Add(ctx, int64(suppressed))
}

// recordFixMetrics records metrics for one fix operation.
func recordFixMetrics(ctx context.Context, applied int) {
	if err := initMetrics(); err != nil {
		return
	}
	fixesAppliedTotal.Add(ctx, int64(applied))
}
