// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlint/filterlint/adblock"
	"github.com/filterlint/filterlint/fixer"
	"github.com/filterlint/filterlint/textpos"
	"github.com/filterlint/filterlint/walker"
)

// runRule parses src as a filter list and walks it with one rule's
// visitors, returning the reported problems.
func runRule(t *testing.T, rule Rule, src string, options map[string]any) []Problem {
	t.Helper()

	var problems []Problem
	rc := NewRunContext(src, textpos.NewIndex(src), options, func(p Problem) {
		problems = append(problems, p)
	})

	vs := walker.NewVisitorSet()
	rule.Register(rc, vs)

	root := adblock.NewParser().Parse(src)
	walker.NewWalker().Walk(root, vs, adblock.Schema())
	return problems
}

func TestDuplicatedModifiers(t *testing.T) {
	rule := &duplicatedModifiers{}

	t.Run("clean rule reports nothing", func(t *testing.T) {
		assert.Empty(t, runRule(t, rule, "||example.org^$script,third-party", nil))
	})

	t.Run("duplicate reported with fix", func(t *testing.T) {
		src := "||example.org^$script,third-party,script"
		problems := runRule(t, rule, src, nil)
		require.Len(t, problems, 1)

		p := problems[0]
		assert.Contains(t, p.Message, "script")
		require.NotNil(t, p.Fix)

		res := fixer.Apply(src, []fixer.Fix{*p.Fix})
		assert.Equal(t, "||example.org^$script,third-party", res.Output)
	})

	t.Run("value-bearing duplicates keep first", func(t *testing.T) {
		src := "||example.org^$domain=a.com,script,domain=b.com"
		problems := runRule(t, rule, src, nil)
		require.Len(t, problems, 1)

		res := fixer.Apply(src, []fixer.Fix{*problems[0].Fix})
		assert.Equal(t, "||example.org^$domain=a.com,script", res.Output)
	})
}

func TestUnknownPreProcessor(t *testing.T) {
	rule := &unknownPreProcessor{}

	assert.Empty(t, runRule(t, rule, "!#include list.txt\n!#if (adguard)\n!#endif", nil))

	problems := runRule(t, rule, "!#includ list.txt", nil)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, `"includ"`)
	assert.Equal(t, 1, problems[0].Line)
}

func TestSingleSelector(t *testing.T) {
	rule := &singleSelector{}

	var problems []Problem
	rc := NewRunContext(".a, .b", textpos.NewIndex(".a, .b"), nil, func(p Problem) {
		problems = append(problems, p)
	})
	vs := walker.NewVisitorSet()
	rule.Register(rc, vs)

	// Shape of a CSS sub-tree for ".a, .b".
	selectors := walker.New("selectors").
		Set("start", 0).
		Set("end", 6).
		Set("children", []*walker.Node{
			walker.New("class_selector").Set("start", 0).Set("end", 2),
			walker.New("class_selector").Set("start", 4).Set("end", 6),
		})
	root := walker.New("stylesheet").Set("children", []*walker.Node{selectors})

	schema := walker.Schema{ChildKeys: []string{"children"}}
	walker.NewWalker().Walk(root, vs, schema)

	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "2 selectors")

	// A single selector is fine.
	problems = nil
	single := walker.New("selectors").
		Set("start", 0).
		Set("end", 2).
		Set("children", []*walker.Node{
			walker.New("class_selector").Set("start", 0).Set("end", 2),
		})
	walker.NewWalker().Walk(walker.New("stylesheet").Set("children", []*walker.Node{single}), vs, schema)
	assert.Empty(t, problems)
}

func TestShortPattern(t *testing.T) {
	rule := &shortPattern{}

	t.Run("default threshold", func(t *testing.T) {
		problems := runRule(t, rule, "ad\n||example.org^", nil)
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0].Message, `"ad"`)
	})

	t.Run("configurable threshold", func(t *testing.T) {
		problems := runRule(t, rule, "ad", map[string]any{"minLength": 2})
		assert.Empty(t, problems)

		problems = runRule(t, rule, "ad", map[string]any{"minLength": float64(10)})
		assert.Len(t, problems, 1)
	})
}

func TestInvalidCSSIsVisitorless(t *testing.T) {
	rule := &invalidCSS{}
	vs := walker.NewVisitorSet()
	rule.Register(nil, vs)
	assert.Zero(t, vs.Len())
	assert.Equal(t, InvalidCSSRuleName, rule.Name())
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{
		"duplicated-modifiers",
		"invalid-css-syntax",
		"short-pattern",
		"single-selector",
		"unknown-preprocessor-directive",
	}, r.Names())

	rule, ok := r.Get("short-pattern")
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, rule.Meta().DefaultSeverity)
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&shortPattern{}))
	err := r.Register(&shortPattern{})
	require.ErrorIs(t, err, ErrDuplicateRule)
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		err  bool
	}{
		{"off", SeverityOff, false},
		{"info", SeverityInfo, false},
		{"warning", SeverityWarning, false},
		{"warn", SeverityWarning, false},
		{"error", SeverityError, false},
		{"fatal", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseSeverity(tc.in)
		if tc.err {
			assert.ErrorIs(t, err, ErrUnknownSeverity)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "off", SeverityOff.String())
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "error", SeverityError.String())
}
