// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package walker

import (
	"fmt"

	"github.com/filterlint/filterlint/selector"
	"github.com/filterlint/filterlint/textpos"
)

// =============================================================================
// SUB-PARSE CONTRACT
// =============================================================================

// SubParser parses a source slice delegated from a primary-tree node.
//
// Inputs:
//
//	slice - The covered source text
//	absStart - Byte offset of the slice in the full source
//	line - 1-based line number of absStart
//	lineStart - Byte offset of that line's first character
//
// The offsets let the parser emit node positions already translated into
// absolute source coordinates.
type SubParser func(slice string, absStart, line, lineStart int) (*Node, error)

// Binding registers a secondary grammar against a selector over the
// primary tree.
type Binding struct {
	// Name identifies the parser. Bindings sharing a Name share the
	// parsed-once guard and the inner walker.
	Name string

	// Selector chooses which primary-tree nodes delegate to this parser.
	Selector string

	// Parse is the secondary grammar parser.
	Parse SubParser

	// Schema describes the tree dialect the parser returns.
	Schema Schema
}

// SubParseError reports one failed sub-parse attempt. The range and
// positions describe the host node in the primary source.
type SubParseError struct {
	// Parser is the binding name.
	Parser string

	// Start and End are the host node's byte range.
	Start, End int

	// StartPos and EndPos are the range translated to line/column.
	StartPos, EndPos textpos.Position

	// Err is the underlying parser error.
	Err error
}

// Error returns a formatted message including the host position.
func (e *SubParseError) Error() string {
	return fmt.Sprintf("%s sub-parse at %d:%d: %v",
		e.Parser, e.StartPos.Line, e.StartPos.Column, e.Err)
}

// Unwrap returns the underlying parser error.
func (e *SubParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator walks a primary tree and delegates bounded source regions of
// matching nodes to registered secondary grammars.
//
// Description:
//
//	During a walk, an internal global enter visitor evaluates every
//	binding's selector against each primary-tree node. For each match the
//	host node's byte range is sliced out of the source, handed to the
//	secondary parser exactly once per (host node, parser name), and the
//	resulting tree is deep-frozen and walked with the caller's own
//	visitor set, spliced into the host's ancestry. Parser failures are
//	isolated per attempt and reported through the optional error sink.
//
// Thread Safety: NOT safe for concurrent walks. The parsed-once guard and
// the sub-tree and ownership maps are instance state scoped to one
// top-level walk; callers must serialize Walk calls on an instance.
type Orchestrator struct {
	walker   *Walker
	bindings []compiledBinding
	sink     func(*SubParseError)

	// composed caches the caller's visitor set merged with the internal
	// sub-parsing visitor, keyed by caller-set identity.
	composed map[*VisitorSet]*VisitorSet

	// inner holds one persistent walker per parser name so repeated hosts
	// amortize index construction.
	inner map[string]*Walker

	// Per-walk state, reset at the start of every top-level Walk.
	parsed    map[parsedKey]struct{}
	subtrees  map[parsedKey]*Node
	owners    map[*Node]string
	curIndex  *textpos.Index
	curSchema Schema
}

type compiledBinding struct {
	Binding
	sel *selector.Selector
}

type parsedKey struct {
	host   *Node
	parser string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithErrorSink sets the callback receiving isolated sub-parse failures.
func WithErrorSink(sink func(*SubParseError)) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sink = sink
	}
}

// NewOrchestrator creates an orchestrator over the given bindings.
//
// Outputs:
//
//	*Orchestrator - The configured orchestrator
//	error - Non-nil if a binding selector is malformed
func NewOrchestrator(bindings []Binding, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		walker:   NewWalker(),
		composed: make(map[*VisitorSet]*VisitorSet),
		inner:    make(map[string]*Walker),
	}

	for _, b := range bindings {
		sel, err := selector.Compile(b.Selector)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", b.Name, err)
		}
		o.bindings = append(o.bindings, compiledBinding{Binding: b, sel: sel})
		if _, ok := o.inner[b.Name]; !ok {
			o.inner[b.Name] = NewWalker()
		}
	}

	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Walk traverses the primary tree, sub-parsing matching regions.
//
// Inputs:
//
//	index - Position index over the full primary source
//	root - Primary tree root
//	vs - Caller's visitor set; applied to primary and secondary nodes alike
//	schema - Primary tree dialect (its range keys locate sub-parse regions)
func (o *Orchestrator) Walk(index *textpos.Index, root *Node, vs *VisitorSet, schema Schema) {
	// Sub-parse results are never reused across top-level walks: the
	// source may have changed between calls.
	o.parsed = make(map[parsedKey]struct{})
	o.subtrees = make(map[parsedKey]*Node)
	o.owners = make(map[*Node]string)
	o.curIndex = index
	o.curSchema = schema

	o.walker.Walk(root, o.composedSet(vs), schema)
}

// OwnerOf returns the name of the secondary parser that produced the
// sub-tree a node belongs to, or "" for primary-tree or unknown nodes.
// Valid for nodes observed during the most recent Walk.
func (o *Orchestrator) OwnerOf(n *Node) string {
	return o.owners[n]
}

// SubTree returns the secondary tree parsed from a host node by the named
// parser during the most recent Walk.
func (o *Orchestrator) SubTree(host *Node, parser string) (*Node, bool) {
	sub, ok := o.subtrees[parsedKey{host: host, parser: parser}]
	return sub, ok
}

// composedSet merges the caller's visitor set with the internal global
// enter visitor. Caller-registered global visitors are preserved and run
// alongside the internal one. Composition is cached per caller-set
// identity so repeated walks reuse the dispatch index.
func (o *Orchestrator) composedSet(vs *VisitorSet) *VisitorSet {
	if cached, ok := o.composed[vs]; ok {
		return cached
	}

	merged := NewVisitorSet()
	merged.MustOn("*", func(n *Node, ancestry []*Node) {
		o.subParse(n, ancestry, vs)
	})
	for _, e := range vs.entries {
		merged.entries = append(merged.entries, e)
	}

	o.composed[vs] = merged
	return merged
}

// subParse runs every matching binding against one primary-tree node.
func (o *Orchestrator) subParse(n *Node, ancestry []*Node, vs *VisitorSet) {
	// Nodes already owned by a secondary grammar are never re-delegated.
	if o.owners[n] != "" {
		return
	}

	anc := nodeList(ancestry)
	for i := range o.bindings {
		b := &o.bindings[i]
		if types, typed := b.sel.TypeSet(); typed && !containsType(types, n.Type()) {
			continue
		}
		if !b.sel.Matches(n, anc) {
			continue
		}

		key := parsedKey{host: n, parser: b.Name}
		if _, done := o.parsed[key]; done {
			continue
		}
		o.parsed[key] = struct{}{}

		o.parseAndWalk(n, ancestry, vs, b, key)
	}
}

func (o *Orchestrator) parseAndWalk(host *Node, ancestry []*Node, vs *VisitorSet, b *compiledBinding, key parsedKey) {
	index := o.curIndex
	start, end, ok := o.curSchema.Range(host)
	if !ok || start < 0 || end > len(index.Source()) || start >= end {
		// Nothing to sub-parse; not an error.
		return
	}

	pos, _ := index.PositionAt(start)
	lineStart, _, _ := index.LineRange(pos.Line, false)

	sub, err := b.Parse(index.Source()[start:end], start, pos.Line, lineStart)
	if err != nil {
		if o.sink != nil {
			endPos, _ := index.PositionAt(end)
			o.sink(&SubParseError{
				Parser:   b.Name,
				Start:    start,
				End:      end,
				StartPos: pos,
				EndPos:   endPos,
				Err:      err,
			})
		}
		return
	}
	if sub == nil {
		return
	}

	// Freeze before anything else can observe the tree; a rule callback
	// must not be able to corrupt a cached sub-tree.
	sub.Freeze()
	o.subtrees[key] = sub
	o.recordOwnership(sub, b.Name, b.Schema)

	innerAncestry := make([]*Node, len(ancestry)+1)
	copy(innerAncestry, ancestry)
	innerAncestry[len(ancestry)] = host

	o.inner[b.Name].WalkFrom(sub, vs, b.Schema, innerAncestry)
}

// recordOwnership registers every node of a secondary tree against its
// producing parser for later OwnerOf lookups.
func (o *Orchestrator) recordOwnership(n *Node, parser string, schema Schema) {
	o.owners[n] = parser
	for _, child := range schema.children(n) {
		o.recordOwnership(child, parser, schema)
	}
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
