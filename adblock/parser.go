// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package adblock parses adblock filter-list source text into the generic
// node model consumed by the tree walker.
//
// The parser is tolerant: a malformed line becomes an InvalidRule node and
// is reported through the error callback, but the parse itself never
// aborts. Every node carries absolute start/end byte offsets into the
// original source so downstream engines can slice, sub-parse, and fix.
package adblock

import (
	"fmt"
	"strings"

	"github.com/filterlint/filterlint/walker"
)

// =============================================================================
// NODE TYPES
// =============================================================================

// Node type tags produced by the parser.
const (
	TypeFilterList        = "FilterList"
	TypeCommentRule       = "CommentRule"
	TypePreProcessor      = "PreProcessor"
	TypeNetworkRule       = "NetworkRule"
	TypeModifier          = "Modifier"
	TypeCosmeticRule      = "CosmeticRule"
	TypeElementHidingBody = "ElementHidingBody"
	TypeInvalidRule       = "InvalidRule"
)

// Cosmetic rule separators, longest first so prefix-overlapping markers
// resolve correctly ("#@#" before "##").
var cosmeticSeparators = []string{"#@#", "#?#", "#$#", "##"}

// =============================================================================
// ERRORS
// =============================================================================

// ParseError describes one unparseable line. The parse continues past it.
type ParseError struct {
	// Line is 1-based, Column 0-based within the line.
	Line    int
	Column  int
	Message string

	// Start and End are the absolute byte range of the offending text.
	Start, End int
}

// Error returns a formatted position-bearing message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// =============================================================================
// PARSER
// =============================================================================

// Parser converts filter-list text into a FilterList node tree.
//
// Thread Safety: Safe for concurrent Parse calls; the parser holds only
// configuration.
type Parser struct {
	onError func(*ParseError)
}

// Option configures a Parser.
type Option func(*Parser)

// WithErrorCallback sets the callback receiving per-line parse errors.
func WithErrorCallback(fn func(*ParseError)) Option {
	return func(p *Parser) { p.onError = fn }
}

// NewParser creates a parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Schema returns the tree dialect the parser produces, for walker calls.
func Schema() walker.Schema {
	return walker.Schema{ChildKeys: []string{"rules", "modifiers", "body"}}
}

// Parse converts source text into a FilterList root node.
//
// Inputs:
//
//	src - Full filter-list source
//
// Outputs:
//
//	*walker.Node - FilterList root; malformed lines appear as InvalidRule
//	children and are also reported through the error callback
func (p *Parser) Parse(src string) *walker.Node {
	root := walker.New(TypeFilterList).
		Set("start", 0).
		Set("end", len(src))

	var rules []*walker.Node
	lineNo := 0
	offset := 0
	for offset <= len(src) {
		lineNo++
		lineEnd := offset
		for lineEnd < len(src) && src[lineEnd] != '\n' && src[lineEnd] != '\r' {
			lineEnd++
		}

		if n := p.parseLine(src, offset, lineEnd, lineNo); n != nil {
			rules = append(rules, n)
		}

		if lineEnd >= len(src) {
			break
		}
		// Consume the break: CRLF counts as one.
		next := lineEnd + 1
		if src[lineEnd] == '\r' && next < len(src) && src[next] == '\n' {
			next++
		}
		offset = next
	}

	root.Set("rules", rules)
	return root
}

// parseLine classifies one source line. Returns nil for blank lines.
func (p *Parser) parseLine(src string, lineStart, lineEnd, lineNo int) *walker.Node {
	start, end := trimRange(src, lineStart, lineEnd)
	if start >= end {
		return nil
	}
	line := src[start:end]

	switch {
	case strings.HasPrefix(line, "!#"):
		return p.parsePreProcessor(line, start, end, lineNo)
	case line[0] == '!':
		return parseComment(line, start, end)
	case line[0] == '#' && (len(line) == 1 || line[1] == ' '):
		// Hosts-style comment.
		return walker.New(TypeCommentRule).
			Set("marker", "#").
			Set("text", strings.TrimSpace(line[1:])).
			Set("start", start).
			Set("end", end)
	}

	if sep, at := findCosmeticSeparator(line); at >= 0 {
		return p.parseCosmetic(line, start, end, sep, at, lineNo)
	}
	return p.parseNetwork(line, start, end, lineNo)
}

// parseComment handles "!" comments, lifting agent-hint style metadata
// headers ("! Title: My List") into dedicated fields.
func parseComment(line string, start, end int) *walker.Node {
	n := walker.New(TypeCommentRule).
		Set("marker", "!").
		Set("text", strings.TrimSpace(line[1:])).
		Set("start", start).
		Set("end", end)

	body := strings.TrimSpace(line[1:])
	if colon := strings.IndexByte(body, ':'); colon > 0 {
		key := strings.TrimSpace(body[:colon])
		if isMetaKey(key) {
			n.Set("metaKey", key)
			n.Set("metaValue", strings.TrimSpace(body[colon+1:]))
		}
	}
	return n
}

func isMetaKey(key string) bool {
	switch strings.ToLower(key) {
	case "title", "description", "homepage", "version", "expires",
		"last modified", "licence", "license", "checksum", "diff-path":
		return true
	}
	return false
}

// parsePreProcessor handles "!#directive params" lines.
func (p *Parser) parsePreProcessor(line string, start, end, lineNo int) *walker.Node {
	body := line[2:]
	name := body
	params := ""
	if sp := strings.IndexByte(body, ' '); sp >= 0 {
		name = body[:sp]
		params = strings.TrimSpace(body[sp+1:])
	}
	if name == "" {
		return p.invalid(line, start, end, lineNo, 2, "empty pre-processor directive name")
	}
	return walker.New(TypePreProcessor).
		Set("name", name).
		Set("params", params).
		Set("start", start).
		Set("end", end)
}

// parseCosmetic handles element-hiding and CSS-injection rules. The body
// node's range covers exactly the selector text after the separator, which
// is what the sub-parse orchestrator delegates to the CSS grammar.
func (p *Parser) parseCosmetic(line string, start, end int, sep string, at, lineNo int) *walker.Node {
	bodyText := line[at+len(sep):]
	if strings.TrimSpace(bodyText) == "" {
		return p.invalid(line, start, end, lineNo, at+len(sep), "empty cosmetic rule body")
	}

	bodyStart := start + at + len(sep)
	body := walker.New(TypeElementHidingBody).
		Set("text", bodyText).
		Set("start", bodyStart).
		Set("end", end)

	return walker.New(TypeCosmeticRule).
		Set("domains", line[:at]).
		Set("separator", sep).
		Set("exception", sep == "#@#").
		Set("body", body).
		Set("start", start).
		Set("end", end)
}

// parseNetwork handles basic blocking/exception rules with $modifiers.
func (p *Parser) parseNetwork(line string, start, end, lineNo int) *walker.Node {
	pattern := line
	exception := false
	patStart := start
	if strings.HasPrefix(pattern, "@@") {
		exception = true
		pattern = pattern[2:]
		patStart += 2
	}

	modText := ""
	modStart := -1
	// Regex rules ("/.../") keep their dollars; everything else splits at
	// the last '$'.
	if !(len(pattern) >= 2 && pattern[0] == '/' && pattern[len(pattern)-1] == '/') {
		if dollar := strings.LastIndexByte(pattern, '$'); dollar > 0 {
			modText = pattern[dollar+1:]
			modStart = patStart + dollar + 1
			pattern = pattern[:dollar]
		}
	}
	if pattern == "" {
		return p.invalid(line, start, end, lineNo, patStart-start, "network rule with empty pattern")
	}

	n := walker.New(TypeNetworkRule).
		Set("pattern", pattern).
		Set("exception", exception).
		Set("start", start).
		Set("end", end)

	if modStart >= 0 {
		mods, err := parseModifiers(modText, modStart)
		if err != nil {
			return p.invalid(line, start, end, lineNo, modStart-start, err.Error())
		}
		n.Set("modifiers", mods)
	}
	return n
}

// parseModifiers splits "$a,b=c" modifier text into Modifier nodes.
func parseModifiers(text string, absStart int) ([]*walker.Node, error) {
	var mods []*walker.Node
	at := 0
	for _, part := range strings.Split(text, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			return nil, fmt.Errorf("empty modifier in %q", text)
		}
		name := trimmed
		value := ""
		if eq := strings.IndexByte(trimmed, '='); eq >= 0 {
			name = trimmed[:eq]
			value = trimmed[eq+1:]
		}
		if name == "" {
			return nil, fmt.Errorf("modifier with empty name in %q", text)
		}
		lead := len(part) - len(strings.TrimLeft(part, " \t"))
		mods = append(mods, walker.New(TypeModifier).
			Set("name", name).
			Set("value", value).
			Set("start", absStart+at+lead).
			Set("end", absStart+at+lead+len(trimmed)))
		at += len(part) + 1
	}
	return mods, nil
}

// invalid emits an InvalidRule node and reports the error.
func (p *Parser) invalid(line string, start, end, lineNo, col int, msg string) *walker.Node {
	if p.onError != nil {
		p.onError(&ParseError{
			Line:    lineNo,
			Column:  col,
			Message: msg,
			Start:   start,
			End:     end,
		})
	}
	return walker.New(TypeInvalidRule).
		Set("text", line).
		Set("reason", msg).
		Set("start", start).
		Set("end", end)
}

// findCosmeticSeparator locates the earliest cosmetic separator in a line,
// preferring the longest marker at a given position.
func findCosmeticSeparator(line string) (string, int) {
	for i := 0; i < len(line); i++ {
		if line[i] != '#' {
			continue
		}
		for _, sep := range cosmeticSeparators {
			if strings.HasPrefix(line[i:], sep) {
				return sep, i
			}
		}
	}
	return "", -1
}

// trimRange narrows [start, end) to exclude leading and trailing spaces and
// tabs, keeping offsets absolute.
func trimRange(src string, start, end int) (int, int) {
	for start < end && (src[start] == ' ' || src[start] == '\t') {
		start++
	}
	for end > start && (src[end-1] == ' ' || src[end-1] == '\t') {
		end--
	}
	return start, end
}
