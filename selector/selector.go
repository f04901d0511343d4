// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package selector compiles CSS-like structural selectors into predicates
// over syntax-tree nodes and their ancestor chains.
//
// The grammar is a small subset of CSS selectors adapted to heterogeneous
// parser-defined trees:
//
//	*                      every node
//	NetworkRule            nodes whose type tag is "NetworkRule"
//	[exception]            nodes with a non-nil "exception" field
//	[separator="##"]       field equality (string, number, bool literals)
//	[separator!="##"]      field present and not equal
//	Modifier[name="third-party"]   compound
//	:not(CommentRule)      negation of a compound
//	A > B                  child combinator
//	A B                    descendant combinator
//	A, B                   alternation
//
// A compiled Selector is immutable and safe for concurrent use.
package selector

import (
	"errors"
	"fmt"
	"sort"
)

// =============================================================================
// NODE CONTRACT
// =============================================================================

// Node is the minimal view of a syntax-tree node a selector can match.
//
// Trees of any dialect can be matched as long as their nodes expose a type
// tag and field lookup.
type Node interface {
	// Type returns the node's type tag.
	Type() string

	// Get returns the named field value and whether it is present.
	Get(key string) (any, bool)
}

// Ancestry is the chain of strict ancestors of a node, ordered from the
// outermost ancestor (index 0) down to the immediate parent (index Len-1).
type Ancestry interface {
	Len() int
	At(i int) Node
}

// Nodes is a convenience Ancestry backed by a slice.
type Nodes []Node

// Len returns the number of ancestors.
func (n Nodes) Len() int { return len(n) }

// At returns the i-th ancestor.
func (n Nodes) At(i int) Node { return n[i] }

// =============================================================================
// SELECTOR
// =============================================================================

// ErrEmptySelector is returned when the pattern contains no selector.
var ErrEmptySelector = errors.New("empty selector")

// SyntaxError reports a malformed selector pattern.
type SyntaxError struct {
	// Pattern is the full pattern being compiled.
	Pattern string

	// Offset is the byte offset of the problem within the pattern.
	Offset int

	// Message describes the problem.
	Message string
}

// Error returns a formatted message including the offset.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("selector %q: offset %d: %s", e.Pattern, e.Offset, e.Message)
}

// Selector is a compiled structural pattern.
//
// Thread Safety: Immutable after compilation; safe for concurrent use.
type Selector struct {
	pattern string
	alts    []complexSel
	typeSet []string // nil for global selectors
}

// Compile parses a selector pattern.
//
// Outputs:
//
//	*Selector - The compiled selector
//	error - ErrEmptySelector or a *SyntaxError on malformed input
func Compile(pattern string) (*Selector, error) {
	p := &parser{pattern: pattern}
	alts, err := p.parse()
	if err != nil {
		return nil, err
	}

	sel := &Selector{pattern: pattern, alts: alts}
	sel.typeSet = computeTypeSet(alts)
	return sel, nil
}

// MustCompile is like Compile but panics on error. Intended for selector
// literals in rule definitions.
func MustCompile(pattern string) *Selector {
	sel, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return sel
}

// Pattern returns the original pattern string.
func (s *Selector) Pattern() string {
	return s.pattern
}

// TypeSet returns the finite set of node types this selector can match.
//
// Typed selectors report (types, true): only nodes whose type tag is in the
// set can match, so dispatch may pre-filter by type. Global selectors report
// (nil, false) and must be evaluated against every node.
func (s *Selector) TypeSet() ([]string, bool) {
	if s.typeSet == nil {
		return nil, false
	}
	return s.typeSet, true
}

// Matches evaluates the selector against a node and its ancestor chain.
func (s *Selector) Matches(node Node, ancestry Ancestry) bool {
	if node == nil {
		return false
	}
	for i := range s.alts {
		if s.alts[i].matches(node, ancestry) {
			return true
		}
	}
	return false
}

// computeTypeSet derives the typed/global classification from the rightmost
// compound of every alternative.
func computeTypeSet(alts []complexSel) []string {
	seen := make(map[string]struct{})
	for _, alt := range alts {
		last := alt.parts[len(alt.parts)-1]
		if last.typ == "" {
			return nil // one unbounded alternative makes the whole selector global
		}
		seen[last.typ] = struct{}{}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// =============================================================================
// COMPILED FORM
// =============================================================================

type combinator int

const (
	combDescendant combinator = iota
	combChild
)

// complexSel is a sequence of compounds joined by combinators; the last
// compound applies to the candidate node itself.
type complexSel struct {
	parts []compoundSel
	combs []combinator // combs[i] joins parts[i] and parts[i+1]
}

func (c *complexSel) matches(node Node, ancestry Ancestry) bool {
	last := len(c.parts) - 1
	if !c.parts[last].matches(node) {
		return false
	}
	ancLen := 0
	if ancestry != nil {
		ancLen = ancestry.Len()
	}
	return c.matchAncestors(last-1, ancLen-1, ancestry)
}

// matchAncestors walks the remaining compounds leftward over the ancestor
// chain. pi indexes the compound to satisfy next, ai the deepest ancestor
// still available for it.
func (c *complexSel) matchAncestors(pi, ai int, ancestry Ancestry) bool {
	if pi < 0 {
		return true
	}
	if ai < 0 {
		return false
	}

	if c.combs[pi] == combChild {
		if !c.parts[pi].matches(ancestry.At(ai)) {
			return false
		}
		return c.matchAncestors(pi-1, ai-1, ancestry)
	}

	for j := ai; j >= 0; j-- {
		if c.parts[pi].matches(ancestry.At(j)) && c.matchAncestors(pi-1, j-1, ancestry) {
			return true
		}
	}
	return false
}

// compoundSel is a type constraint plus attribute matchers and negations,
// all of which must hold on a single node.
type compoundSel struct {
	typ   string // "" matches any type
	attrs []attrMatcher
	nots  []compoundSel
}

func (c *compoundSel) matches(node Node) bool {
	if node == nil {
		return false
	}
	if c.typ != "" && node.Type() != c.typ {
		return false
	}
	for i := range c.attrs {
		if !c.attrs[i].matches(node) {
			return false
		}
	}
	for i := range c.nots {
		if c.nots[i].matches(node) {
			return false
		}
	}
	return true
}

type attrOp int

const (
	attrExists attrOp = iota
	attrEq
	attrNeq
)

type attrValue struct {
	kind byte // 's' string, 'n' number, 'b' bool
	s    string
	n    float64
	b    bool
}

type attrMatcher struct {
	key string
	op  attrOp
	val attrValue
}

func (m *attrMatcher) matches(node Node) bool {
	v, ok := node.Get(m.key)
	if !ok || v == nil {
		return false
	}

	switch m.op {
	case attrExists:
		return true
	case attrEq:
		return valueEquals(v, m.val)
	case attrNeq:
		return !valueEquals(v, m.val)
	default:
		return false
	}
}

// valueEquals compares a node field value against a selector literal.
// Numeric fields compare as float64 regardless of the Go integer type used
// by the tree builder.
func valueEquals(v any, want attrValue) bool {
	switch want.kind {
	case 's':
		s, ok := v.(string)
		return ok && s == want.s
	case 'b':
		b, ok := v.(bool)
		return ok && b == want.b
	case 'n':
		switch n := v.(type) {
		case int:
			return float64(n) == want.n
		case int64:
			return float64(n) == want.n
		case float64:
			return n == want.n
		default:
			return false
		}
	default:
		return false
	}
}
