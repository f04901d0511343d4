// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package adblock

import (
	"strings"

	"github.com/filterlint/filterlint/suppress"
	"github.com/filterlint/filterlint/textpos"
	"github.com/filterlint/filterlint/walker"
)

// Inline suppression comment keywords, longest first so the prefix match
// resolves "disable-next-line" before "disable".
var directiveCommands = []struct {
	keyword string
	command suppress.Command
}{
	{"filterlint-disable-next-line", suppress.DisableNextLine},
	{"filterlint-disable", suppress.Disable},
	{"filterlint-enable", suppress.Enable},
}

// ExtractDirectives collects inline suppression directives from the comment
// nodes of a parsed filter list.
//
// Description:
//
//	A comment of the form "! filterlint-disable rule-a, rule-b" yields one
//	directive per listed rule id; a bare "! filterlint-disable" yields a
//	single all-rules directive. The directive's position is the comment
//	node's own start offset translated through the index.
//
// Inputs:
//
//	root - FilterList node produced by Parse
//	index - Position index over the same source
//
// Outputs:
//
//	[]suppress.Directive - Directives in source order
func ExtractDirectives(root *walker.Node, index *textpos.Index) []suppress.Directive {
	var out []suppress.Directive

	rulesVal, ok := root.Get("rules")
	if !ok {
		return nil
	}
	rules, ok := rulesVal.([]*walker.Node)
	if !ok {
		return nil
	}

	for _, n := range rules {
		if n.Type() != TypeCommentRule {
			continue
		}
		text, _ := n.String("text")
		keyword, rest, found := matchDirective(text)
		if !found {
			continue
		}

		start, _ := n.Int("start")
		pos, ok := index.PositionAt(start)
		if !ok {
			continue
		}

		ids := splitRuleIDs(rest)
		if len(ids) == 0 {
			out = append(out, suppress.Directive{
				Command: keyword,
				Line:    pos.Line,
				Column:  pos.Column,
			})
			continue
		}
		for _, id := range ids {
			out = append(out, suppress.Directive{
				Command: keyword,
				Line:    pos.Line,
				Column:  pos.Column,
				Rule:    id,
			})
		}
	}
	return out
}

// matchDirective tests whether comment text begins with a suppression
// keyword, returning the command and the trailing rule-id list.
func matchDirective(text string) (suppress.Command, string, bool) {
	trimmed := strings.TrimSpace(text)
	for _, dc := range directiveCommands {
		if !strings.HasPrefix(trimmed, dc.keyword) {
			continue
		}
		rest := trimmed[len(dc.keyword):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			// Some other word sharing the prefix, e.g. "filterlint-disabled".
			continue
		}
		return dc.command, strings.TrimSpace(rest), true
	}
	return 0, "", false
}

func splitRuleIDs(rest string) []string {
	if rest == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(rest, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
