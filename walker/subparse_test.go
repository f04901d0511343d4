// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package walker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlint/filterlint/textpos"
)

// miniParser is a toy secondary grammar: it wraps the slice in a Fragment
// node holding one Token child per comma-separated field, with absolute
// offsets.
func miniParser(calls *int) SubParser {
	return func(slice string, absStart, line, lineStart int) (*Node, error) {
		if calls != nil {
			*calls++
		}
		frag := New("Fragment").
			Set("start", absStart).
			Set("end", absStart+len(slice)).
			Set("line", line).
			Set("lineStart", lineStart)

		var tokens []*Node
		fieldStart := 0
		for i := 0; i <= len(slice); i++ {
			if i == len(slice) || slice[i] == ',' {
				tokens = append(tokens, New("Token").
					Set("text", slice[fieldStart:i]).
					Set("start", absStart+fieldStart).
					Set("end", absStart+i))
				fieldStart = i + 1
			}
		}
		frag.Set("children", tokens)
		return frag, nil
	}
}

var miniSchema = Schema{ChildKeys: []string{"children"}}

// hostTree builds a primary tree with one Body node covering src[start:end].
func hostTree(start, end int) (*Node, *Node) {
	body := New("Body").Set("start", start).Set("end", end)
	root := New("Root").Set("children", []*Node{body})
	return root, body
}

func TestOrchestrator_SubParseAndInnerWalk(t *testing.T) {
	src := "ab,cd\nxx"
	index := textpos.NewIndex(src)
	root, body := hostTree(0, 5)

	o, err := NewOrchestrator([]Binding{
		{Name: "mini", Selector: "Body", Parse: miniParser(nil), Schema: miniSchema},
	})
	require.NoError(t, err)

	var texts []string
	var tokenAncestry []*Node
	vs := NewVisitorSet()
	vs.MustOn("Token", func(n *Node, ancestry []*Node) {
		text, _ := n.String("text")
		texts = append(texts, text)
		tokenAncestry = append([]*Node(nil), ancestry...)
	})

	o.Walk(index, root, vs, miniSchema)

	assert.Equal(t, []string{"ab", "cd"}, texts)

	// Secondary-tree callbacks see their primary-tree lineage.
	require.Len(t, tokenAncestry, 3)
	assert.Same(t, root, tokenAncestry[0])
	assert.Same(t, body, tokenAncestry[1])
	assert.Equal(t, "Fragment", tokenAncestry[2].Type())
}

func TestOrchestrator_ParsedOncePerHostAndParser(t *testing.T) {
	src := "ab,cd"
	index := textpos.NewIndex(src)
	root, _ := hostTree(0, 5)

	calls := 0
	// Two distinct selectors trigger the same parser on the same host.
	o, err := NewOrchestrator([]Binding{
		{Name: "mini", Selector: "Body", Parse: miniParser(&calls), Schema: miniSchema},
		{Name: "mini", Selector: "[start=0]", Parse: miniParser(&calls), Schema: miniSchema},
	})
	require.NoError(t, err)

	o.Walk(index, root, NewVisitorSet(), miniSchema)
	assert.Equal(t, 1, calls, "same (host, parser) pair must parse exactly once")

	// A fresh walk re-parses: results are never reused across walks.
	o.Walk(index, root, NewVisitorSet(), miniSchema)
	assert.Equal(t, 2, calls)
}

func TestOrchestrator_SecondaryTreeIsFrozen(t *testing.T) {
	src := "ab,cd"
	index := textpos.NewIndex(src)
	root, body := hostTree(0, 5)

	o, err := NewOrchestrator([]Binding{
		{Name: "mini", Selector: "Body", Parse: miniParser(nil), Schema: miniSchema},
	})
	require.NoError(t, err)

	vs := NewVisitorSet()
	vs.MustOn("Token", func(n *Node, _ []*Node) {
		assert.Panics(t, func() { n.Set("text", "corrupted") })
	})
	o.Walk(index, root, vs, miniSchema)

	sub, ok := o.SubTree(body, "mini")
	require.True(t, ok)
	assert.True(t, sub.Frozen())
	assert.Panics(t, func() { sub.Set("x", 1) })
}

func TestOrchestrator_OwnerLookup(t *testing.T) {
	src := "ab,cd"
	index := textpos.NewIndex(src)
	root, body := hostTree(0, 5)

	o, err := NewOrchestrator([]Binding{
		{Name: "mini", Selector: "Body", Parse: miniParser(nil), Schema: miniSchema},
	})
	require.NoError(t, err)

	var token *Node
	vs := NewVisitorSet()
	vs.MustOn("Token", func(n *Node, _ []*Node) {
		if token == nil {
			token = n
		}
	})
	o.Walk(index, root, vs, miniSchema)

	require.NotNil(t, token)
	assert.Equal(t, "mini", o.OwnerOf(token))
	assert.Equal(t, "", o.OwnerOf(root), "primary nodes have no owner")
	assert.Equal(t, "", o.OwnerOf(body))
	assert.Equal(t, "", o.OwnerOf(New("Stranger")))
}

func TestOrchestrator_MissingOrEmptyRangeIsSkipped(t *testing.T) {
	src := "ab,cd"
	index := textpos.NewIndex(src)

	calls := 0
	o, err := NewOrchestrator([]Binding{
		{Name: "mini", Selector: "Body", Parse: miniParser(&calls), Schema: miniSchema},
	})
	require.NoError(t, err)

	noRange := New("Body")
	emptyRange := New("Body").Set("start", 3).Set("end", 3)
	inverted := New("Body").Set("start", 4).Set("end", 2)
	root := New("Root").Set("children", []*Node{noRange, emptyRange, inverted})

	o.Walk(index, root, NewVisitorSet(), miniSchema)
	assert.Zero(t, calls)
}

func TestOrchestrator_ParserErrorIsIsolated(t *testing.T) {
	src := "ab,cd\nef"
	index := textpos.NewIndex(src)

	bad := New("Body").Set("start", 0).Set("end", 5)
	good := New("Body").Set("start", 6).Set("end", 8)
	root := New("Root").Set("children", []*Node{bad, good})

	parseErr := errors.New("broken grammar")
	var sunk []*SubParseError
	o, err := NewOrchestrator([]Binding{
		{
			Name:     "flaky",
			Selector: "Body",
			Schema:   miniSchema,
			Parse: func(slice string, absStart, line, lineStart int) (*Node, error) {
				if absStart == 0 {
					return nil, parseErr
				}
				return miniParser(nil)(slice, absStart, line, lineStart)
			},
		},
	}, WithErrorSink(func(e *SubParseError) { sunk = append(sunk, e) }))
	require.NoError(t, err)

	var texts []string
	vs := NewVisitorSet()
	vs.MustOn("Token", func(n *Node, _ []*Node) {
		text, _ := n.String("text")
		texts = append(texts, text)
	})
	o.Walk(index, root, vs, miniSchema)

	// The failing region is abandoned; the healthy one still parses.
	assert.Equal(t, []string{"ef"}, texts)

	require.Len(t, sunk, 1)
	assert.Equal(t, "flaky", sunk[0].Parser)
	assert.Equal(t, 0, sunk[0].Start)
	assert.Equal(t, 5, sunk[0].End)
	assert.Equal(t, textpos.Position{Line: 1, Column: 0}, sunk[0].StartPos)
	assert.True(t, errors.Is(sunk[0], parseErr))
}

func TestOrchestrator_CallerGlobalVisitorPreserved(t *testing.T) {
	src := "ab"
	index := textpos.NewIndex(src)
	root, _ := hostTree(0, 2)

	o, err := NewOrchestrator([]Binding{
		{Name: "mini", Selector: "Body", Parse: miniParser(nil), Schema: miniSchema},
	})
	require.NoError(t, err)

	globalHits := 0
	vs := NewVisitorSet()
	vs.MustOn("*", func(*Node, []*Node) { globalHits++ })

	o.Walk(index, root, vs, miniSchema)

	// Root, Body, Fragment, Token: the caller's global visitor sees the
	// primary and secondary trees alike.
	assert.Equal(t, 4, globalHits)
}

func TestOrchestrator_SecondaryParserLineContext(t *testing.T) {
	src := "!comment\nab,cd"
	index := textpos.NewIndex(src)
	root, _ := hostTree(9, 14)

	var gotLine, gotLineStart int
	o, err := NewOrchestrator([]Binding{
		{
			Name:     "mini",
			Selector: "Body",
			Schema:   miniSchema,
			Parse: func(slice string, absStart, line, lineStart int) (*Node, error) {
				gotLine, gotLineStart = line, lineStart
				return miniParser(nil)(slice, absStart, line, lineStart)
			},
		},
	})
	require.NoError(t, err)

	o.Walk(index, root, NewVisitorSet(), miniSchema)
	assert.Equal(t, 2, gotLine)
	assert.Equal(t, 9, gotLineStart)
}

func TestOrchestrator_BadBindingSelector(t *testing.T) {
	_, err := NewOrchestrator([]Binding{{Name: "x", Selector: "A[", Parse: miniParser(nil)}})
	require.Error(t, err)
}
