// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package textpos converts between byte offsets and line/column positions
// in source text and classifies line-break styles.
package textpos

// =============================================================================
// LINE BREAKS
// =============================================================================

// LineBreak identifies the terminator style of a single line.
type LineBreak int

const (
	// LineBreakNone marks a line with no terminator (the last line).
	LineBreakNone LineBreak = iota

	// LineBreakLF marks a line terminated by "\n".
	LineBreakLF

	// LineBreakCR marks a line terminated by "\r".
	LineBreakCR

	// LineBreakCRLF marks a line terminated by "\r\n".
	LineBreakCRLF
)

// String returns the string representation of the line break style.
func (b LineBreak) String() string {
	switch b {
	case LineBreakNone:
		return "none"
	case LineBreakLF:
		return "lf"
	case LineBreakCR:
		return "cr"
	case LineBreakCRLF:
		return "crlf"
	default:
		return "unknown"
	}
}

// Sequence returns the literal terminator bytes for the style.
func (b LineBreak) Sequence() string {
	switch b {
	case LineBreakLF:
		return "\n"
	case LineBreakCR:
		return "\r"
	case LineBreakCRLF:
		return "\r\n"
	default:
		return ""
	}
}

// =============================================================================
// POSITION
// =============================================================================

// Position is a location in source text.
//
// Line is 1-based and Column is 0-based (the column is the byte distance
// from the start of the line), matching editor and LSP conventions.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// =============================================================================
// INDEX
// =============================================================================

// Index is a precomputed offset/line lookup table for one source text.
//
// Description:
//
//	NewIndex scans the source once and records the starting offset and
//	terminator style of every line. All queries are then O(log n) or O(1)
//	and never mutate the index.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Index struct {
	src        string
	lineStarts []int
	breaks     []LineBreak
}

// NewIndex builds an Index for the given source text.
//
// An empty source still has one line (line 1, empty, no terminator).
func NewIndex(src string) *Index {
	ix := &Index{src: src}
	ix.lineStarts = append(ix.lineStarts, 0)

	i := 0
	for i < len(src) {
		switch src[i] {
		case '\n':
			ix.breaks = append(ix.breaks, LineBreakLF)
			i++
			ix.lineStarts = append(ix.lineStarts, i)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				ix.breaks = append(ix.breaks, LineBreakCRLF)
				i += 2
			} else {
				ix.breaks = append(ix.breaks, LineBreakCR)
				i++
			}
			ix.lineStarts = append(ix.lineStarts, i)
		default:
			i++
		}
	}

	// The final line never has a terminator.
	ix.breaks = append(ix.breaks, LineBreakNone)
	return ix
}

// Source returns the indexed source text.
func (ix *Index) Source() string {
	return ix.src
}

// LineCount returns the number of lines in the source.
func (ix *Index) LineCount() int {
	return len(ix.lineStarts)
}

// PositionAt converts a byte offset into a line/column position.
//
// Offsets from 0 through len(source) inclusive are valid; the end offset
// maps to the position just past the last character. Out-of-range offsets
// return ok=false.
func (ix *Index) PositionAt(offset int) (Position, bool) {
	if offset < 0 || offset > len(ix.src) {
		return Position{}, false
	}

	// Binary search for the last line start <= offset.
	lo, hi := 0, len(ix.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if ix.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return Position{Line: lo + 1, Column: offset - ix.lineStarts[lo]}, true
}

// OffsetOf converts a line/column position back into a byte offset.
//
// The column may address any byte of the line including its terminator.
// Invalid positions return ok=false.
func (ix *Index) OffsetOf(pos Position) (int, bool) {
	if pos.Line < 1 || pos.Line > len(ix.lineStarts) || pos.Column < 0 {
		return 0, false
	}

	start := ix.lineStarts[pos.Line-1]
	end := len(ix.src)
	if pos.Line < len(ix.lineStarts) {
		end = ix.lineStarts[pos.Line]
	}

	offset := start + pos.Column
	if offset > end {
		return 0, false
	}
	return offset, true
}

// LineRange returns the byte range [start, end) of a 1-based line.
//
// When includeBreak is true the range covers the line's terminator;
// otherwise it stops before it. Invalid line numbers return ok=false.
func (ix *Index) LineRange(line int, includeBreak bool) (start, end int, ok bool) {
	if line < 1 || line > len(ix.lineStarts) {
		return 0, 0, false
	}

	start = ix.lineStarts[line-1]
	if line < len(ix.lineStarts) {
		end = ix.lineStarts[line]
	} else {
		end = len(ix.src)
	}

	if !includeBreak {
		end -= len(ix.breaks[line-1].Sequence())
	}
	return start, end, true
}

// LineBreakAt returns the terminator style of a 1-based line.
func (ix *Index) LineBreakAt(line int) (LineBreak, bool) {
	if line < 1 || line > len(ix.breaks) {
		return LineBreakNone, false
	}
	return ix.breaks[line-1], true
}

// DominantLineBreak returns the most common terminator style in the source.
//
// The vote counts LF, CR, and CRLF terminators. Ties and sources with no
// terminators at all resolve to CRLF.
func (ix *Index) DominantLineBreak() LineBreak {
	var lf, cr, crlf int
	for _, b := range ix.breaks {
		switch b {
		case LineBreakLF:
			lf++
		case LineBreakCR:
			cr++
		case LineBreakCRLF:
			crlf++
		}
	}

	if lf > cr && lf > crlf {
		return LineBreakLF
	}
	if cr > lf && cr > crlf {
		return LineBreakCR
	}
	return LineBreakCRLF
}

// ScanForward returns the offset of the next occurrence of ch at or after
// from, or -1 if there is none.
//
// The scan is a literal byte match with no escape-sequence awareness.
// A negative bound means "to the end of the source"; otherwise the scan
// stops before the bound offset.
func (ix *Index) ScanForward(ch byte, from, bound int) int {
	if from < 0 {
		from = 0
	}
	limit := len(ix.src)
	if bound >= 0 && bound < limit {
		limit = bound
	}
	for i := from; i < limit; i++ {
		if ix.src[i] == ch {
			return i
		}
	}
	return -1
}

// ScanBackward returns the offset of the nearest occurrence of ch strictly
// before from, or -1 if there is none.
//
// The scan is a literal byte match with no escape-sequence awareness.
// A negative bound means "to the start of the source"; otherwise the scan
// stops at the bound offset (inclusive).
func (ix *Index) ScanBackward(ch byte, from, bound int) int {
	if from > len(ix.src) {
		from = len(ix.src)
	}
	limit := 0
	if bound > 0 {
		limit = bound
	}
	for i := from - 1; i >= limit; i-- {
		if ix.src[i] == ch {
			return i
		}
	}
	return -1
}
