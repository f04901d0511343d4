// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlint/filterlint/rules"
)

// These tests run the full pipeline including the tree-sitter CSS binding.

func TestLintSource_CSSSelectorList(t *testing.T) {
	res, err := NewRunner().LintSource(context.Background(), "test.txt",
		"example.org##.a, .b")
	require.NoError(t, err)

	require.Len(t, res.Infos, 1)
	assert.Equal(t, "single-selector", res.Infos[0].Rule)
	assert.True(t, res.Valid)
}

func TestLintSource_InvalidCSS(t *testing.T) {
	res, err := NewRunner().LintSource(context.Background(), "test.txt",
		"example.org##..[[[")
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, rules.InvalidCSSRuleName, res.Errors[0].Rule)
	assert.False(t, res.Valid)
}

func TestLintSource_ValidCSSSingleSelector(t *testing.T) {
	res, err := NewRunner().LintSource(context.Background(), "test.txt",
		"example.org##.banner")
	require.NoError(t, err)
	assert.Zero(t, res.IssueCount())
}
