// Copyright (C) 2025 Filterlint Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// DiffFormatter renders a unified diff between the original and fixed
// text, for fix previews.
type DiffFormatter struct {
	// Context is the number of unchanged lines kept around each change.
	Context int
}

// NewDiffFormatter creates a diff formatter with three context lines.
func NewDiffFormatter() *DiffFormatter {
	return &DiffFormatter{Context: 3}
}

// Format writes a unified diff of the fix. Writes nothing when the texts
// are identical.
func (f *DiffFormatter) Format(w io.Writer, path, original, fixed string) error {
	if original == fixed {
		return nil
	}

	hunks := f.hunks(splitLines(original), splitLines(fixed))
	fd := &diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks:    hunks,
	}

	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return fmt.Errorf("print diff: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// editOp is one line-level edit: ' ' keep, '-' delete, '+' insert.
type editOp struct {
	kind byte
	line string
}

// hunks groups the line edits into context-bounded hunks.
func (f *DiffFormatter) hunks(orig, fixed []string) []*diff.Hunk {
	ops := lineDiff(orig, fixed)

	var hunks []*diff.Hunk
	origLine, newLine := 1, 1
	i := 0
	for i < len(ops) {
		if ops[i].kind == ' ' {
			origLine++
			newLine++
			i++
			continue
		}

		// Walk back for leading context.
		start := i
		for c := 0; start > 0 && c < f.Context && ops[start-1].kind == ' '; c++ {
			start--
		}

		// Extend through changes, absorbing gaps of unchanged lines
		// shorter than twice the context.
		end := i
		run := 0
		for j := i; j < len(ops); j++ {
			if ops[j].kind == ' ' {
				run++
				if run > 2*f.Context {
					break
				}
			} else {
				run = 0
				end = j + 1
			}
		}
		// Trailing context.
		stop := end
		for c := 0; stop < len(ops) && c < f.Context && ops[stop].kind == ' '; c++ {
			stop++
		}

		h := &diff.Hunk{
			OrigStartLine: int32(origLine - (i - start)),
			NewStartLine:  int32(newLine - (i - start)),
		}
		var body strings.Builder
		for j := start; j < stop; j++ {
			op := ops[j]
			body.WriteByte(op.kind)
			body.WriteString(op.line)
			body.WriteByte('\n')
			switch op.kind {
			case ' ':
				h.OrigLines++
				h.NewLines++
			case '-':
				h.OrigLines++
			case '+':
				h.NewLines++
			}
			if j >= i {
				switch op.kind {
				case ' ':
					origLine++
					newLine++
				case '-':
					origLine++
				case '+':
					newLine++
				}
			}
		}
		h.Body = []byte(body.String())
		hunks = append(hunks, h)
		i = stop
	}
	return hunks
}

// lineDiff computes a line-level edit script via longest common
// subsequence. Inputs are interactive-scale files, so the quadratic table
// is fine.
func lineDiff(a, b []string) []editOp {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []editOp
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, editOp{' ', a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, editOp{'-', a[i]})
			i++
		default:
			ops = append(ops, editOp{'+', b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, editOp{'-', a[i]})
	}
	for ; j < m; j++ {
		ops = append(ops, editOp{'+', b[j]})
	}
	return ops
}

// splitLines splits text into lines without trailing breaks. A trailing
// newline does not produce a phantom empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
