// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package adblock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlint/filterlint/suppress"
	"github.com/filterlint/filterlint/textpos"
)

func extract(t *testing.T, src string) []suppress.Directive {
	t.Helper()
	root := NewParser().Parse(src)
	return ExtractDirectives(root, textpos.NewIndex(src))
}

func TestExtractDirectives_AllRules(t *testing.T) {
	got := extract(t, "! filterlint-disable\n||example.org^")
	require.Len(t, got, 1)
	assert.Equal(t, suppress.Disable, got[0].Command)
	assert.Equal(t, "", got[0].Rule)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, 0, got[0].Column)
}

func TestExtractDirectives_RuleList(t *testing.T) {
	got := extract(t, "! filterlint-disable short-pattern, single-selector")
	require.Len(t, got, 2)
	assert.Equal(t, "short-pattern", got[0].Rule)
	assert.Equal(t, "single-selector", got[1].Rule)
	for _, d := range got {
		assert.Equal(t, suppress.Disable, d.Command)
		assert.Equal(t, 1, d.Line)
	}
}

func TestExtractDirectives_Commands(t *testing.T) {
	src := strings.Join([]string{
		"! filterlint-disable-next-line short-pattern",
		"! filterlint-enable",
		"! filterlint-disable",
	}, "\n")

	got := extract(t, src)
	require.Len(t, got, 3)
	assert.Equal(t, suppress.DisableNextLine, got[0].Command)
	assert.Equal(t, "short-pattern", got[0].Rule)
	assert.Equal(t, suppress.Enable, got[1].Command)
	assert.Equal(t, 2, got[1].Line)
	assert.Equal(t, suppress.Disable, got[2].Command)
	assert.Equal(t, 3, got[2].Line)
}

func TestExtractDirectives_IgnoresNonDirectives(t *testing.T) {
	src := strings.Join([]string{
		"! ordinary comment",
		"! filterlint-disabled is not a keyword",
		"||example.org^",
		"example.org##.banner",
	}, "\n")

	assert.Empty(t, extract(t, src))
}

func TestExtractDirectives_ColumnOfIndentedComment(t *testing.T) {
	got := extract(t, "   ! filterlint-disable")
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Column)
}

func TestExtractDirectives_RoundTripWithSuppress(t *testing.T) {
	src := strings.Join([]string{
		"! filterlint-disable-next-line short-pattern",
		"ab",
		"cd",
	}, "\n")

	directives := extract(t, src)
	problems := []suppress.Problem{
		{Rule: "short-pattern", Line: 2},
		{Rule: "short-pattern", Line: 3},
	}

	kept := suppress.Filter(problems, directives)
	require.Len(t, kept, 1)
	assert.Equal(t, 3, kept[0].Line)
}
