// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package walker

import (
	"strings"
	"sync"

	"github.com/filterlint/filterlint/selector"
)

// =============================================================================
// VISITORS
// =============================================================================

// VisitFunc is invoked for a node together with its strict ancestor chain
// (outermost ancestor first, immediate parent last).
type VisitFunc func(node *Node, ancestry []*Node)

// ExitSuffix marks a selector pattern as a post-order ("exit") visitor.
const ExitSuffix = ":exit"

// VisitorSet is an ordered registration of selector patterns to callbacks.
//
// Description:
//
//	Multiple callbacks registered under the same pattern fire in
//	registration order. A pattern ending in ":exit" fires post-order,
//	after all of the node's descendants; all other patterns fire
//	pre-order. Selector compilation happens once at registration; the
//	dispatch index over a VisitorSet is built once per Walker and reused
//	for every walk with the same set (identity-keyed cache).
//
// Thread Safety: Not safe for concurrent registration. Safe for concurrent
// read-only use once all registrations are done.
type VisitorSet struct {
	entries []*visitorEntry
}

type visitorEntry struct {
	pattern string
	exit    bool
	sel     *selector.Selector
	fns     []VisitFunc
}

// NewVisitorSet creates an empty visitor set.
func NewVisitorSet() *VisitorSet {
	return &VisitorSet{}
}

// On registers a callback under a selector pattern.
//
// Inputs:
//
//	pattern - Selector pattern, optionally suffixed with ":exit"
//	fn - Callback to invoke on matching nodes
//
// Outputs:
//
//	error - Non-nil if the selector pattern is malformed
func (vs *VisitorSet) On(pattern string, fn VisitFunc) error {
	raw := pattern
	exit := false
	if strings.HasSuffix(raw, ExitSuffix) {
		raw = strings.TrimSuffix(raw, ExitSuffix)
		exit = true
	}

	for _, e := range vs.entries {
		if e.pattern == pattern {
			e.fns = append(e.fns, fn)
			return nil
		}
	}

	sel, err := selector.Compile(raw)
	if err != nil {
		return err
	}
	vs.entries = append(vs.entries, &visitorEntry{
		pattern: pattern,
		exit:    exit,
		sel:     sel,
		fns:     []VisitFunc{fn},
	})
	return nil
}

// MustOn is like On but panics on a malformed pattern. Intended for
// statically known selector literals.
func (vs *VisitorSet) MustOn(pattern string, fn VisitFunc) *VisitorSet {
	if err := vs.On(pattern, fn); err != nil {
		panic(err)
	}
	return vs
}

// Len returns the number of distinct registered patterns.
func (vs *VisitorSet) Len() int {
	return len(vs.entries)
}

// =============================================================================
// SELECTOR INDEX
// =============================================================================

// dispatchIndex splits a VisitorSet's entries into type-bucketed and global
// lists per phase, preserving registration order via sequence numbers.
type dispatchIndex struct {
	enter phaseIndex
	exit  phaseIndex
}

type phaseIndex struct {
	byType map[string][]indexedEntry
	global []indexedEntry
}

type indexedEntry struct {
	seq   int
	entry *visitorEntry
}

func buildIndex(vs *VisitorSet) *dispatchIndex {
	idx := &dispatchIndex{
		enter: phaseIndex{byType: make(map[string][]indexedEntry)},
		exit:  phaseIndex{byType: make(map[string][]indexedEntry)},
	}

	for seq, e := range vs.entries {
		phase := &idx.enter
		if e.exit {
			phase = &idx.exit
		}
		ie := indexedEntry{seq: seq, entry: e}

		if types, typed := e.sel.TypeSet(); typed {
			for _, t := range types {
				phase.byType[t] = append(phase.byType[t], ie)
			}
		} else {
			phase.global = append(phase.global, ie)
		}
	}
	return idx
}

// dispatch invokes every callback whose selector matches the node, in
// registration order, merging type-bucketed candidates with globals.
func (pi *phaseIndex) dispatch(n *Node, ancestry []*Node) {
	typed := pi.byType[n.Type()]
	global := pi.global

	anc := nodeList(ancestry)
	ti, gi := 0, 0
	for ti < len(typed) || gi < len(global) {
		var ie indexedEntry
		if gi >= len(global) || (ti < len(typed) && typed[ti].seq < global[gi].seq) {
			ie = typed[ti]
			ti++
		} else {
			ie = global[gi]
			gi++
		}

		if ie.entry.sel.Matches(n, anc) {
			for _, fn := range ie.entry.fns {
				fn(n, ancestry)
			}
		}
	}
}

// nodeList adapts an ancestor slice to the selector.Ancestry contract.
type nodeList []*Node

func (l nodeList) Len() int { return len(l) }

func (l nodeList) At(i int) selector.Node { return l[i] }

// =============================================================================
// WALKER
// =============================================================================

// Walker performs synchronous depth-first traversals, dispatching visitor
// callbacks on node enter (pre-order) and exit (post-order).
//
// Description:
//
//	A node's exit callbacks fire strictly after all of its descendants'
//	enter and exit callbacks, and before its next sibling's enter
//	callbacks. Callback panics are not recovered; a faulty visitor fails
//	loudly in the caller.
//
// Thread Safety: Safe for concurrent walks with distinct visitor sets; the
// index cache is internally locked.
type Walker struct {
	mu      sync.Mutex
	indexes map[*VisitorSet]*dispatchIndex
}

// NewWalker creates a walker with an empty index cache.
func NewWalker() *Walker {
	return &Walker{indexes: make(map[*VisitorSet]*dispatchIndex)}
}

// Walk traverses the tree rooted at root with an empty initial ancestry.
func (w *Walker) Walk(root *Node, vs *VisitorSet, schema Schema) {
	w.WalkFrom(root, vs, schema, nil)
}

// WalkFrom traverses the tree rooted at root, presenting initialAncestry as
// the ancestor chain of root itself. Used to splice secondary trees into
// their primary-tree lineage.
func (w *Walker) WalkFrom(root *Node, vs *VisitorSet, schema Schema, initialAncestry []*Node) {
	if root == nil || vs == nil {
		return
	}

	idx := w.indexFor(vs)

	// Clamp capacity so sibling visits never share append growth.
	anc := initialAncestry[:len(initialAncestry):len(initialAncestry)]
	w.visit(root, anc, idx, schema)
}

func (w *Walker) visit(n *Node, ancestry []*Node, idx *dispatchIndex, schema Schema) {
	idx.enter.dispatch(n, ancestry)

	children := schema.children(n)
	if len(children) > 0 {
		childAnc := make([]*Node, len(ancestry)+1)
		copy(childAnc, ancestry)
		childAnc[len(ancestry)] = n
		for _, child := range children {
			w.visit(child, childAnc, idx, schema)
		}
	}

	idx.exit.dispatch(n, ancestry)
}

// indexFor returns the dispatch index for a visitor set, building it on
// first use. The cache is keyed by set identity: the same *VisitorSet
// reuses its index across walks, a structurally identical but distinct set
// gets its own.
func (w *Walker) indexFor(vs *VisitorSet) *dispatchIndex {
	w.mu.Lock()
	defer w.mu.Unlock()

	if idx, ok := w.indexes[vs]; ok {
		return idx
	}
	idx := buildIndex(vs)
	w.indexes[vs] = idx
	return idx
}
