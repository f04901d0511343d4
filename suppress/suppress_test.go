// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package suppress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rules(problems []Problem) []string {
	out := make([]string, len(problems))
	for i, p := range problems {
		out[i] = p.Rule
	}
	return out
}

func TestFilter_DisableAll(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 1, Column: 0}}
	problems := []Problem{
		{Rule: "r1", Line: 2},
		{Rule: "r2", Line: 3},
	}

	assert.Empty(t, Filter(problems, directives))
}

func TestFilter_DisableSpecificRule(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 1, Column: 0, Rule: "rule1"}}
	problems := []Problem{
		{Rule: "rule1", Line: 2},
		{Rule: "rule2", Line: 3},
	}

	got := Filter(problems, directives)
	assert.Equal(t, []string{"rule2"}, rules(got))
}

func TestFilter_DisableNextLineScope(t *testing.T) {
	directives := []Directive{{Command: DisableNextLine, Line: 2, Column: 0}}
	problems := []Problem{
		{Rule: "r1", Line: 2},
		{Rule: "r2", Line: 3},
		{Rule: "r3", Line: 4},
	}

	got := Filter(problems, directives)
	assert.Equal(t, []string{"r1", "r3"}, rules(got))
}

func TestFilter_DisableNextLineSpecificRule(t *testing.T) {
	directives := []Directive{{Command: DisableNextLine, Line: 2, Column: 0, Rule: "r2"}}
	problems := []Problem{
		{Rule: "r2", Line: 3},
		{Rule: "other", Line: 3},
	}

	got := Filter(problems, directives)
	assert.Equal(t, []string{"other"}, rules(got))
}

func TestFilter_EnableReopens(t *testing.T) {
	directives := []Directive{
		{Command: Disable, Line: 1, Column: 0},
		{Command: Enable, Line: 3, Column: 0},
	}
	problems := []Problem{
		{Rule: "r1", Line: 2},
		{Rule: "r2", Line: 4},
	}

	got := Filter(problems, directives)
	assert.Equal(t, []string{"r2"}, rules(got))
}

func TestFilter_BlanketEnableClearsRuleSpecificDisables(t *testing.T) {
	directives := []Directive{
		{Command: Disable, Line: 1, Column: 0, Rule: "r1"},
		{Command: Disable, Line: 1, Column: 5, Rule: "r2"},
		{Command: Enable, Line: 2, Column: 0},
	}
	problems := []Problem{
		{Rule: "r1", Line: 3},
		{Rule: "r2", Line: 3, Column: 4},
	}

	// Enable with no rule id is a full reset.
	got := Filter(problems, directives)
	assert.Equal(t, []string{"r1", "r2"}, rules(got))
}

func TestFilter_RuleSpecificEnable(t *testing.T) {
	directives := []Directive{
		{Command: Disable, Line: 1, Column: 0, Rule: "r1"},
		{Command: Disable, Line: 1, Column: 5, Rule: "r2"},
		{Command: Enable, Line: 2, Column: 0, Rule: "r1"},
	}
	problems := []Problem{
		{Rule: "r1", Line: 3},
		{Rule: "r2", Line: 3, Column: 4},
	}

	got := Filter(problems, directives)
	assert.Equal(t, []string{"r1"}, rules(got))
}

func TestFilter_NoRuleIDProblem(t *testing.T) {
	problems := []Problem{{Line: 2}} // no rule id, e.g. a parse error

	// A rule-specific disable never touches it.
	got := Filter(problems, []Directive{{Command: Disable, Line: 1, Rule: "r1"}})
	assert.Len(t, got, 1)

	// A blanket disable does.
	got = Filter(problems, []Directive{{Command: Disable, Line: 1}})
	assert.Empty(t, got)
}

func TestFilter_FatalRetainedByDefault(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 1, Column: 0}}
	problems := []Problem{{Rule: "r1", Line: 2, Fatal: true}}

	assert.Len(t, Filter(problems, directives), 1)
	assert.Empty(t, Filter(problems, directives, KeepFatal(false)))
}

func TestFilter_SameLineTakesEffect(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 2, Column: 0}}
	problems := []Problem{{Rule: "r1", Line: 2, Column: 10}}

	// Default: a directive earlier on the same line already applies.
	assert.Empty(t, Filter(problems, directives))

	// Disabled: same-line directives only matter from the next line on.
	got := Filter(problems, directives, SameLineTakesEffect(false))
	assert.Len(t, got, 1)

	laterProblems := []Problem{{Rule: "r1", Line: 3}}
	assert.Empty(t, Filter(laterProblems, directives, SameLineTakesEffect(false)))
}

func TestFilter_DirectiveAfterProblemHasNoEffect(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 5, Column: 0}}
	problems := []Problem{{Rule: "r1", Line: 2}}

	assert.Len(t, Filter(problems, directives), 1)
}

func TestFilter_UnsortedInputsAndOriginalOrder(t *testing.T) {
	// Directives and problems arrive out of position order; survivors must
	// come back in the order the problems were supplied.
	directives := []Directive{
		{Command: Enable, Line: 4, Column: 0},
		{Command: Disable, Line: 2, Column: 0},
	}
	problems := []Problem{
		{Rule: "late", Line: 5},
		{Rule: "suppressed", Line: 3},
		{Rule: "early", Line: 1},
	}

	got := Filter(problems, directives)
	assert.Equal(t, []string{"late", "early"}, rules(got))
}

func TestFilter_SamePositionProblemsShareSnapshot(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 1, Column: 0, Rule: "r1"}}
	problems := []Problem{
		{Rule: "r2", Line: 3, Column: 0},
		{Rule: "r1", Line: 3, Column: 0},
		{Rule: "r1", Line: 3, Column: 0},
	}

	got := Filter(problems, directives)
	assert.Equal(t, []string{"r2"}, rules(got))
}

func TestMask(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 1, Rule: "r1"}}
	problems := []Problem{
		{Rule: "r1", Line: 2},
		{Rule: "r2", Line: 2},
	}

	assert.Equal(t, []bool{false, true}, Mask(problems, directives))
}

func TestFilterWithUnused_Ranges(t *testing.T) {
	directives := []Directive{
		{Command: Disable, Line: 1, Column: 0, Rule: "r1"},  // suppresses
		{Command: Disable, Line: 1, Column: 5, Rule: "idle"}, // never matches
		{Command: Enable, Line: 10, Column: 0},               // never reported
	}
	problems := []Problem{{Rule: "r1", Line: 2}}

	kept, unused := FilterWithUnused(problems, directives)
	assert.Empty(t, kept)
	require.Len(t, unused, 1)
	assert.Equal(t, "idle", unused[0].Rule)
}

func TestFilterWithUnused_NextLine(t *testing.T) {
	directives := []Directive{
		{Command: DisableNextLine, Line: 2, Column: 0, Rule: "r1"},
		{Command: DisableNextLine, Line: 2, Column: 5, Rule: "r9"},
		{Command: DisableNextLine, Line: 7, Column: 0},
	}
	problems := []Problem{
		{Rule: "r1", Line: 3},
		{Rule: "anything", Line: 8},
	}

	kept, unused := FilterWithUnused(problems, directives)
	assert.Empty(t, kept)
	require.Len(t, unused, 1)
	assert.Equal(t, "r9", unused[0].Rule)
	assert.Equal(t, 2, unused[0].Line)
}

func TestFilterWithUnused_BlanketDisableWithNoProblems(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 1, Column: 0}}

	kept, unused := FilterWithUnused(nil, directives)
	assert.Empty(t, kept)
	require.Len(t, unused, 1)
	assert.Equal(t, Disable, unused[0].Command)
}

func TestFilterWithUnused_FatalDoesNotMarkUsed(t *testing.T) {
	directives := []Directive{{Command: Disable, Line: 1, Column: 0}}
	problems := []Problem{{Rule: "r1", Line: 2, Fatal: true}}

	kept, unused := FilterWithUnused(problems, directives)
	assert.Len(t, kept, 1)
	assert.Len(t, unused, 1, "a directive shielded by keepFatal suppressed nothing")
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "disable", Disable.String())
	assert.Equal(t, "enable", Enable.String())
	assert.Equal(t, "disable-next-line", DisableNextLine.String())
}
