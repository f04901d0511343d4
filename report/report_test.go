// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlint/filterlint/lint"
	"github.com/filterlint/filterlint/rules"
)

func sampleResults() []*lint.Result {
	return []*lint.Result{
		{
			FilePath: "lists/base.txt",
			Errors: []lint.Issue{
				{
					File: "lists/base.txt", Line: 3, Column: 0,
					Rule: "unknown-preprocessor-directive", Severity: rules.SeverityError,
					Message: `unknown preprocessor directive "includ"`,
				},
			},
			Warnings: []lint.Issue{
				{
					File: "lists/base.txt", Line: 7, Column: 16,
					Rule: "short-pattern", Severity: rules.SeverityWarning,
					Message: "pattern is shorter than 4 characters",
				},
			},
		},
		{
			FilePath: "lists/clean.txt",
			Valid:    true,
		},
	}
}

func TestTextFormatter_Plain(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(WithColor(false))
	require.NoError(t, f.Format(&buf, sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "lists/base.txt")
	assert.Contains(t, out, "3:0  error  unknown preprocessor directive \"includ\"  unknown-preprocessor-directive")
	assert.Contains(t, out, "7:16  warning  pattern is shorter than 4 characters  short-pattern")
	assert.Contains(t, out, "2 problems (1 errors, 1 warnings, 0 infos)")
	// Clean file gets no block.
	assert.NotContains(t, out, "lists/clean.txt")
}

func TestTextFormatter_NoProblems(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(WithColor(false))
	require.NoError(t, f.Format(&buf, []*lint.Result{{FilePath: "a.txt", Valid: true}}))
	assert.Contains(t, buf.String(), "no problems found")
}

func TestTextFormatter_SummaryMark(t *testing.T) {
	warnOnly := []*lint.Result{{
		FilePath: "a.txt",
		Warnings: []lint.Issue{{Line: 1, Rule: "short-pattern", Severity: rules.SeverityWarning, Message: "m"}},
	}}

	var buf bytes.Buffer
	f := NewTextFormatter(WithColor(false))
	require.NoError(t, f.Format(&buf, warnOnly))
	assert.Contains(t, buf.String(), "⚠")
	assert.NotContains(t, buf.String(), "✗")
}

func TestTextFormatter_EmptyFilePath(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(WithColor(false))
	results := []*lint.Result{{
		Infos: []lint.Issue{{Line: 1, Rule: "single-selector", Severity: rules.SeverityInfo, Message: "m"}},
	}}
	require.NoError(t, f.Format(&buf, results))
	assert.Contains(t, buf.String(), "<input>")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()
	require.NoError(t, f.Format(&buf, sampleResults()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)

	first := decoded[0]
	assert.Equal(t, "lists/base.txt", first["file_path"])
	errs, ok := first["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	issue := errs[0].(map[string]any)
	assert.Equal(t, "unknown-preprocessor-directive", issue["rule"])
	assert.Equal(t, "error", issue["severity"])
}
