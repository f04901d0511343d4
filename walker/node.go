// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package walker provides a generic syntax-tree node model, a depth-first
// tree walker with selector-dispatched visitors, and a sub-parse
// orchestrator that delegates bounded source regions to secondary grammars.
package walker

import (
	"fmt"
	"sort"
)

// =============================================================================
// NODE
// =============================================================================

// Node is one syntax-tree element: a type tag plus a bag of named fields.
//
// Description:
//
//	Nodes carry no identity beyond their fields and no parent pointers;
//	ancestry is supplied by the traversal. Child-bearing fields hold a
//	*Node, a []*Node, or one level of plain slice/map wrapping around
//	Nodes — which fields bear children is declared per tree dialect via
//	Schema, not on the node itself.
//
// Thread Safety: Not safe for concurrent mutation. Frozen nodes are
// immutable and safe for concurrent reads.
type Node struct {
	typ    string
	fields map[string]any
	frozen bool
}

// New creates a node with the given type tag.
func New(typ string) *Node {
	return &Node{typ: typ, fields: make(map[string]any)}
}

// Type returns the node's type tag.
func (n *Node) Type() string {
	return n.typ
}

// Get returns the named field value and whether it is present.
func (n *Node) Get(key string) (any, bool) {
	v, ok := n.fields[key]
	return v, ok
}

// Set stores a field value and returns the node for chaining.
//
// Set panics if the node has been frozen; mutating a frozen node is a
// programmer error, not a recoverable condition.
func (n *Node) Set(key string, value any) *Node {
	if n.frozen {
		panic(fmt.Sprintf("walker: Set %q on frozen %s node", key, n.typ))
	}
	n.fields[key] = value
	return n
}

// Keys returns the node's field names in sorted order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.fields))
	for k := range n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns the named field as an int.
func (n *Node) Int(key string) (int, bool) {
	v, ok := n.fields[key]
	if !ok {
		return 0, false
	}
	switch i := v.(type) {
	case int:
		return i, true
	case int64:
		return int(i), true
	case float64:
		return int(i), true
	default:
		return 0, false
	}
}

// String returns the named field as a string.
func (n *Node) String(key string) (string, bool) {
	v, ok := n.fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the named field as a bool.
func (n *Node) Bool(key string) (bool, bool) {
	v, ok := n.fields[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Frozen reports whether the node has been frozen.
func (n *Node) Frozen() bool {
	return n.frozen
}

// Freeze makes the node and every node reachable through its fields
// immutable, including nodes inside plain slice or map wrappers. Freezing
// an already-frozen node is a no-op.
func (n *Node) Freeze() *Node {
	if n.frozen {
		return n
	}
	n.frozen = true
	for _, v := range n.fields {
		freezeValue(v)
	}
	return n
}

func freezeValue(v any) {
	switch val := v.(type) {
	case *Node:
		val.Freeze()
	case []*Node:
		for _, child := range val {
			child.Freeze()
		}
	case []any:
		for _, elem := range val {
			freezeValue(elem)
		}
	case map[string]any:
		for _, elem := range val {
			freezeValue(elem)
		}
	}
}

// =============================================================================
// SCHEMA
// =============================================================================

// Schema describes how to traverse one tree dialect: which fields bear
// children and which fields carry a node's byte range.
type Schema struct {
	// ChildKeys lists the child-bearing field names, visited in order.
	ChildKeys []string

	// StartKey names the field holding a node's starting byte offset.
	// Empty means "start".
	StartKey string

	// EndKey names the field holding a node's ending byte offset
	// (exclusive). Empty means "end".
	EndKey string
}

func (s Schema) startKey() string {
	if s.StartKey == "" {
		return "start"
	}
	return s.StartKey
}

func (s Schema) endKey() string {
	if s.EndKey == "" {
		return "end"
	}
	return s.EndKey
}

// Range returns a node's byte range per the schema, or ok=false when the
// node lacks range fields.
func (s Schema) Range(n *Node) (start, end int, ok bool) {
	start, ok = n.Int(s.startKey())
	if !ok {
		return 0, 0, false
	}
	end, ok = n.Int(s.endKey())
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// children collects a node's child nodes per the schema's field order.
// Non-node values are skipped; one level of plain slice/map wrapping around
// nodes is transparent.
func (s Schema) children(n *Node) []*Node {
	var out []*Node
	for _, key := range s.ChildKeys {
		v, ok := n.Get(key)
		if !ok {
			continue
		}
		out = collectNodes(v, out, true)
	}
	return out
}

func collectNodes(v any, out []*Node, unwrap bool) []*Node {
	switch val := v.(type) {
	case *Node:
		if val != nil {
			out = append(out, val)
		}
	case []*Node:
		for _, child := range val {
			if child != nil {
				out = append(out, child)
			}
		}
	case []any:
		if unwrap {
			for _, elem := range val {
				out = collectNodes(elem, out, false)
			}
		}
	case map[string]any:
		if unwrap {
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out = collectNodes(val[k], out, false)
			}
		}
	}
	return out
}
