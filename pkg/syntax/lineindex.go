package syntax

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mamaar/rbrefactor/pkg/types"
)

// LineIndex converts between byte offsets and LSP positions, whose
// character component counts UTF-16 code units.
type LineIndex struct {
	src   []byte
	lines []int
}

func NewLineIndex(src []byte) *LineIndex {
	lines := []int{0}
	for i, b := range src {
		if b == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &LineIndex{src: src, lines: lines}
}

// LineCount is the number of lines, counting a trailing partial line.
func (li *LineIndex) LineCount() int { return len(li.lines) }

// LineStart returns the offset of the first byte of line.
func (li *LineIndex) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(li.lines) {
		return len(li.src)
	}
	return li.lines[line]
}

// Line returns the zero-based line containing offset.
func (li *LineIndex) Line(offset int) int {
	return sort.Search(len(li.lines), func(i int) bool { return li.lines[i] > offset }) - 1
}

// Position converts a byte offset. Offsets past the end clamp to the end.
func (li *LineIndex) Position(offset int) types.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.src) {
		offset = len(li.src)
	}
	line := li.Line(offset)
	start := li.lines[line]
	return types.Position{Line: line, Character: utf16Len(li.src[start:offset])}
}

// Range converts a byte range.
func (li *LineIndex) Range(start, end int) types.Range {
	return types.Range{Start: li.Position(start), End: li.Position(end)}
}

// Offset converts an LSP position. Characters past the end of the line clamp
// to the line end; lines past the end clamp to the document end.
func (li *LineIndex) Offset(pos types.Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(li.lines) {
		return len(li.src)
	}
	offset := li.lines[pos.Line]
	end := len(li.src)
	if pos.Line+1 < len(li.lines) {
		end = li.lines[pos.Line+1] - 1
	}
	for units := 0; offset < end && units < pos.Character; {
		r, size := utf8.DecodeRune(li.src[offset:end])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
		offset += size
	}
	return offset
}

func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if u := utf16.RuneLen(r); u > 0 {
			n += u
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}
