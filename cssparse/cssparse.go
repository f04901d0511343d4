// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cssparse adapts the tree-sitter CSS grammar to the walker's
// sub-parser contract, so cosmetic rule bodies can be analyzed as real CSS
// selector trees instead of opaque strings.
package cssparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"

	"github.com/filterlint/filterlint/walker"
)

// BindingName identifies this grammar in orchestrator bindings and in
// OwnerOf lookups.
const BindingName = "css"

// SyntaxError reports malformed CSS inside a delegated slice. Offset is
// absolute in the primary source.
type SyntaxError struct {
	Offset int
	Near   string
}

// Error returns a formatted message.
func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("css syntax error at offset %d", e.Offset)
	}
	return fmt.Sprintf("css syntax error at offset %d near %q", e.Offset, e.Near)
}

// Parser converts CSS text into generic walker nodes via tree-sitter.
//
// Thread Safety: Safe for concurrent use; each parse creates its own
// tree-sitter parser instance.
type Parser struct{}

// NewParser creates a CSS sub-parser.
func NewParser() *Parser {
	return &Parser{}
}

// Schema returns the dialect of the trees this parser produces: tree-sitter
// node types with all named children under "children".
func (p *Parser) Schema() walker.Schema {
	return walker.Schema{ChildKeys: []string{"children"}}
}

// SubParser returns the walker.SubParser adapter.
//
// Description:
//
//	The returned function parses the delegated slice, converts the sitter
//	tree to generic nodes with absolute start/end offsets, and fails with
//	a SyntaxError when the grammar reports ERROR or MISSING nodes, so the
//	orchestrator isolates the region instead of walking a broken tree.
//	Element-hiding bodies are bare selector lists with no declaration
//	block, which the stylesheet grammar rejects; those get a synthetic
//	"{}" appended before a second attempt, and the synthetic block is
//	pruned from the converted tree.
func (p *Parser) SubParser() walker.SubParser {
	return func(slice string, absStart, line, lineStart int) (*walker.Node, error) {
		content := []byte(slice)

		root, close1, err := parseTree(content)
		if err != nil {
			return nil, err
		}
		defer close1()
		if !root.HasError() {
			return convert(root, content, absStart, len(content)), nil
		}
		firstErr := syntaxError(root, slice, absStart)

		wrapped := append([]byte(slice), '{', '}')
		wroot, close2, err := parseTree(wrapped)
		if err != nil {
			return nil, err
		}
		defer close2()
		if wroot.HasError() {
			return nil, firstErr
		}
		return convert(wroot, wrapped, absStart, len(content)), nil
	}
}

func parseTree(content []byte) (*sitter.Node, func(), error) {
	parser := sitter.NewParser()
	parser.SetLanguage(css.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return tree.RootNode(), func() { tree.Close() }, nil
}

func syntaxError(root *sitter.Node, slice string, absStart int) *SyntaxError {
	if bad := findErrorNode(root); bad != nil {
		return &SyntaxError{
			Offset: absStart + int(bad.StartByte()),
			Near:   clip(slice, int(bad.StartByte()), int(bad.EndByte())),
		}
	}
	return &SyntaxError{Offset: absStart}
}

// Binding returns an orchestrator binding delegating nodes matched by the
// selector to this parser.
func (p *Parser) Binding(selector string) walker.Binding {
	return walker.Binding{
		Name:     BindingName,
		Selector: selector,
		Parse:    p.SubParser(),
		Schema:   p.Schema(),
	}
}

// convert maps a sitter node to a generic node, keeping only named
// children. Leaves carry their source text. Nodes at or beyond limit are
// synthetic wrapper bytes and are dropped; ranges are clamped to it.
func convert(n *sitter.Node, content []byte, absStart, limit int) *walker.Node {
	start := int(n.StartByte())
	end := int(n.EndByte())
	if end > limit {
		end = limit
	}
	out := walker.New(n.Type()).
		Set("start", absStart+start).
		Set("end", absStart+end)

	var children []*walker.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if int(child.StartByte()) >= limit {
			continue
		}
		children = append(children, convert(child, content, absStart, limit))
	}
	if len(children) == 0 {
		out.Set("text", string(content[start:end]))
		return out
	}
	out.Set("children", children)
	return out
}

// findErrorNode locates the first ERROR or MISSING node in document order.
func findErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := findErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func clip(slice string, start, end int) string {
	if start < 0 || start >= len(slice) {
		return ""
	}
	if end > len(slice) {
		end = len(slice)
	}
	const max = 20
	if end-start > max {
		end = start + max
	}
	return slice[start:end]
}
