package syntax

import (
	"testing"

	"github.com/mamaar/rbrefactor/pkg/types"
)

func TestLineIndex_RoundTrip(t *testing.T) {
	src := []byte("ab\ncéd\n\U0001F600x\n")
	li := NewLineIndex(src)

	testCases := []struct {
		name   string
		offset int
		pos    types.Position
	}{
		{"start", 0, types.Position{Line: 0, Character: 0}},
		{"end of first line", 2, types.Position{Line: 0, Character: 2}},
		{"second line", 3, types.Position{Line: 1, Character: 0}},
		{"after two-byte rune", 6, types.Position{Line: 1, Character: 2}},
		{"after astral rune", 12, types.Position{Line: 2, Character: 2}},
		{"end of document", len(src), types.Position{Line: 3, Character: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := li.Position(tc.offset); got != tc.pos {
				t.Errorf("Position(%d) = %+v, want %+v", tc.offset, got, tc.pos)
			}
			if got := li.Offset(tc.pos); got != tc.offset {
				t.Errorf("Offset(%+v) = %d, want %d", tc.pos, got, tc.offset)
			}
		})
	}
}

func TestLineIndex_Clamps(t *testing.T) {
	src := []byte("abc\nde")
	li := NewLineIndex(src)

	if got := li.Offset(types.Position{Line: 0, Character: 40}); got != 3 {
		t.Errorf("Expected clamp to line end 3, got %d", got)
	}
	if got := li.Offset(types.Position{Line: 9, Character: 0}); got != len(src) {
		t.Errorf("Expected clamp to document end, got %d", got)
	}
	if got := li.Position(100); got != (types.Position{Line: 1, Character: 2}) {
		t.Errorf("Expected clamp to last position, got %+v", got)
	}
	if li.LineCount() != 2 {
		t.Errorf("Expected 2 lines, got %d", li.LineCount())
	}
	if li.LineStart(1) != 4 {
		t.Errorf("Expected line 1 to start at 4, got %d", li.LineStart(1))
	}
}
