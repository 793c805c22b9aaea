package refactor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mamaar/rbrefactor/pkg/types"
)

func edit(start, end int, text string) types.TextEdit {
	return types.TextEdit{Start: start, End: end, NewText: text}
}

func TestApplyEdits(t *testing.T) {
	src := []byte("puts 1 + 2\n")

	testCases := []struct {
		name    string
		edits   []types.TextEdit
		want    string
		wantErr bool
	}{
		{
			name:  "no edits",
			edits: nil,
			want:  "puts 1 + 2\n",
		},
		{
			name:  "insert and replace",
			edits: []types.TextEdit{edit(0, 0, "x = 1 + 2\n"), edit(5, 10, "x")},
			want:  "x = 1 + 2\nputs x\n",
		},
		{
			name:  "insertion before replacement at the same offset",
			edits: []types.TextEdit{edit(5, 5, "("), edit(5, 10, "x)")},
			want:  "puts (x)\n",
		},
		{
			name:    "overlapping replacements",
			edits:   []types.TextEdit{edit(5, 8, "a"), edit(7, 10, "b")},
			wantErr: true,
		},
		{
			name:    "two insertions at the same offset",
			edits:   []types.TextEdit{edit(5, 5, "a"), edit(5, 5, "b")},
			wantErr: true,
		},
		{
			name:    "unsorted",
			edits:   []types.TextEdit{edit(5, 10, "x"), edit(0, 0, "y")},
			wantErr: true,
		},
		{
			name:    "out of bounds",
			edits:   []types.TextEdit{edit(5, 100, "x")},
			wantErr: true,
		},
		{
			name:    "inverted",
			edits:   []types.TextEdit{edit(6, 5, "x")},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ApplyEdits(src, tc.edits)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if !types.IsErrorType(err, types.InternalInconsistency) {
					t.Errorf("expected InternalInconsistency, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	if string(src) != "puts 1 + 2\n" {
		t.Errorf("source was modified: %q", src)
	}
}

func TestSortEdits(t *testing.T) {
	edits := []types.TextEdit{edit(5, 10, "x"), edit(12, 12, "y"), edit(5, 5, "z"), edit(0, 0, "w")}
	SortEdits(edits)

	want := []string{"w", "z", "x", "y"}
	for i, e := range edits {
		if e.NewText != want[i] {
			t.Errorf("edit %d: got %q, want %q", i, e.NewText, want[i])
		}
	}
}

func TestSerializer_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.rb")
	original := "def d\n  1 + 123\nend\n"
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := NewSerializer()
	s.Backup = true
	at := strings.Index(original, "123")
	edits := []types.TextEdit{
		edit(6, 6, "  n = 123\n"),
		edit(at, at+3, "n"),
	}
	if err := s.WriteFile(path, edits); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "def d\n  n = 123\n  1 + n\nend\n"; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}

	backup, err := os.ReadFile(path + ".backup")
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if string(backup) != original {
		t.Errorf("backup content: got %q, want %q", backup, original)
	}
}

func TestSerializer_WriteFile_Errors(t *testing.T) {
	s := NewSerializer()

	err := s.WriteFile(filepath.Join(t.TempDir(), "missing.rb"), nil)
	if !types.IsErrorType(err, types.FileSystemError) {
		t.Errorf("expected FileSystemError for missing file, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "sample.rb")
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err = s.WriteFile(path, []types.TextEdit{edit(0, 10, "y")})
	if !types.IsErrorType(err, types.InternalInconsistency) {
		t.Errorf("expected InternalInconsistency for bad edit, got %v", err)
	}
	if _, statErr := os.Stat(path + ".backup"); !os.IsNotExist(statErr) {
		t.Error("no backup should be written when edits are rejected")
	}
}

func TestPreviewEdits(t *testing.T) {
	if got := PreviewEdits("file:///a.rb", nil, nil); got != "No changes to preview" {
		t.Errorf("unexpected empty preview %q", got)
	}

	src := []byte("puts 1 + 2\n")
	edits := []types.TextEdit{
		{Start: 0, End: 0, NewText: "x = 1 + 2\n"},
		{Start: 5, End: 10, NewText: "x", Range: types.Range{
			Start: types.Position{Line: 0, Character: 5},
			End:   types.Position{Line: 0, Character: 10},
		}},
	}
	preview := PreviewEdits("file:///a.rb", src, edits)
	for _, want := range []string{"Preview of 2 edits", "File: file:///a.rb", "1. 1:1-1:1", `+ x = 1 + 2\n`, "2. 1:6-1:11", "- 1 + 2", "+ x"} {
		if !strings.Contains(preview, want) {
			t.Errorf("preview missing %q:\n%s", want, preview)
		}
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("a\nb"); got != `a\nb` {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("x", 100)
	if got := TruncateText(long, 10); got != "xxxxxxx..." {
		t.Errorf("got %q", got)
	}
}
