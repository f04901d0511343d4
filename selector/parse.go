// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package selector

import (
	"fmt"
	"strconv"
)

// parser is a single-pass recursive-descent parser over a pattern string.
type parser struct {
	pattern string
	pos     int
}

func (p *parser) parse() ([]complexSel, error) {
	var alts []complexSel

	for {
		p.skipSpace()
		if p.eof() {
			if len(alts) == 0 {
				return nil, ErrEmptySelector
			}
			return nil, p.errf("trailing comma")
		}

		alt, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)

		p.skipSpace()
		if p.eof() {
			return alts, nil
		}
		if p.peek() != ',' {
			return nil, p.errf("unexpected character %q", p.peek())
		}
		p.pos++
	}
}

func (p *parser) parseComplex() (complexSel, error) {
	var c complexSel

	first, err := p.parseCompound()
	if err != nil {
		return c, err
	}
	c.parts = append(c.parts, first)

	for {
		hadSpace := p.skipSpace()
		if p.eof() || p.peek() == ',' {
			return c, nil
		}

		var comb combinator
		switch {
		case p.peek() == '>':
			p.pos++
			p.skipSpace()
			comb = combChild
		case hadSpace:
			comb = combDescendant
		default:
			return c, p.errf("unexpected character %q", p.peek())
		}

		next, err := p.parseCompound()
		if err != nil {
			return c, err
		}
		c.combs = append(c.combs, comb)
		c.parts = append(c.parts, next)
	}
}

func (p *parser) parseCompound() (compoundSel, error) {
	var c compoundSel
	consumed := false

	if !p.eof() {
		switch {
		case p.peek() == '*':
			p.pos++
			consumed = true
		case isIdentStart(p.peek()):
			c.typ = p.readIdent()
			consumed = true
		}
	}

	for !p.eof() {
		switch p.peek() {
		case '[':
			attr, err := p.parseAttr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, attr)
			consumed = true
		case ':':
			not, err := p.parseNot()
			if err != nil {
				return c, err
			}
			c.nots = append(c.nots, not)
			consumed = true
		default:
			if !consumed {
				return c, p.errf("expected selector")
			}
			return c, nil
		}
	}

	if !consumed {
		return c, p.errf("expected selector")
	}
	return c, nil
}

func (p *parser) parseAttr() (attrMatcher, error) {
	var m attrMatcher

	p.pos++ // '['
	p.skipSpace()
	if p.eof() || !isIdentStart(p.peek()) {
		return m, p.errf("expected field name")
	}
	m.key = p.readIdent()
	p.skipSpace()

	if p.eof() {
		return m, p.errf("unterminated attribute matcher")
	}

	switch p.peek() {
	case ']':
		p.pos++
		m.op = attrExists
		return m, nil
	case '=':
		p.pos++
		m.op = attrEq
	case '!':
		p.pos++
		if p.eof() || p.peek() != '=' {
			return m, p.errf("expected '=' after '!'")
		}
		p.pos++
		m.op = attrNeq
	default:
		return m, p.errf("unexpected character %q in attribute matcher", p.peek())
	}

	p.skipSpace()
	val, err := p.parseValue()
	if err != nil {
		return m, err
	}
	m.val = val

	p.skipSpace()
	if p.eof() || p.peek() != ']' {
		return m, p.errf("unterminated attribute matcher")
	}
	p.pos++
	return m, nil
}

func (p *parser) parseValue() (attrValue, error) {
	if p.eof() {
		return attrValue{}, p.errf("expected value")
	}

	switch ch := p.peek(); {
	case ch == '"' || ch == '\'':
		quote := ch
		p.pos++
		start := p.pos
		for !p.eof() && p.peek() != quote {
			p.pos++
		}
		if p.eof() {
			return attrValue{}, p.errf("unterminated string")
		}
		s := p.pattern[start:p.pos]
		p.pos++
		return attrValue{kind: 's', s: s}, nil

	case ch == '-' || (ch >= '0' && ch <= '9'):
		start := p.pos
		p.pos++
		for !p.eof() && (p.peek() == '.' || (p.peek() >= '0' && p.peek() <= '9')) {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.pattern[start:p.pos], 64)
		if err != nil {
			return attrValue{}, p.errf("invalid number %q", p.pattern[start:p.pos])
		}
		return attrValue{kind: 'n', n: n}, nil

	case isIdentStart(ch):
		word := p.readIdent()
		switch word {
		case "true":
			return attrValue{kind: 'b', b: true}, nil
		case "false":
			return attrValue{kind: 'b', b: false}, nil
		default:
			// Bare words compare as strings.
			return attrValue{kind: 's', s: word}, nil
		}

	default:
		return attrValue{}, p.errf("expected value")
	}
}

func (p *parser) parseNot() (compoundSel, error) {
	p.pos++ // ':'
	name := p.readIdent()
	if name != "not" {
		return compoundSel{}, p.errf("unsupported pseudo-class %q", name)
	}
	if p.eof() || p.peek() != '(' {
		return compoundSel{}, p.errf("expected '(' after :not")
	}
	p.pos++
	p.skipSpace()

	inner, err := p.parseCompound()
	if err != nil {
		return compoundSel{}, err
	}

	p.skipSpace()
	if p.eof() || p.peek() != ')' {
		return compoundSel{}, p.errf("unterminated :not")
	}
	p.pos++
	return inner, nil
}

// =============================================================================
// SCANNER HELPERS
// =============================================================================

func (p *parser) eof() bool {
	return p.pos >= len(p.pattern)
}

func (p *parser) peek() byte {
	return p.pattern[p.pos]
}

func (p *parser) skipSpace() bool {
	skipped := false
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
			skipped = true
		default:
			return skipped
		}
	}
	return skipped
}

func (p *parser) readIdent() string {
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	return p.pattern[start:p.pos]
}

func (p *parser) errf(format string, args ...any) error {
	return &SyntaxError{
		Pattern: p.pattern,
		Offset:  p.pos,
		Message: fmt.Sprintf(format, args...),
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || ch == '-' || (ch >= '0' && ch <= '9')
}
