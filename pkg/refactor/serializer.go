package refactor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mamaar/rbrefactor/pkg/types"
)

// ApplyEdits applies sorted, non-overlapping edits to src and returns the
// edited text. src is not modified.
func ApplyEdits(src []byte, edits []types.TextEdit) ([]byte, error) {
	if err := ValidateEdits(edits, len(src)); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(len(src))
	last := 0
	for _, e := range edits {
		out.Write(src[last:e.Start])
		out.WriteString(e.NewText)
		last = e.End
	}
	out.Write(src[last:])
	return out.Bytes(), nil
}

// ValidateEdits ensures edits are in bounds, sorted and pairwise disjoint.
func ValidateEdits(edits []types.TextEdit, size int) error {
	for i, e := range edits {
		if e.Start < 0 || e.End > size || e.Start > e.End {
			return types.Errorf(types.InternalInconsistency,
				"invalid edit bounds: start=%d, end=%d, content length=%d", e.Start, e.End, size)
		}
		if i == 0 {
			continue
		}
		prev := edits[i-1]
		if prev.Start > e.Start {
			return types.Errorf(types.InternalInconsistency, "edits are not sorted: %d after %d", e.Start, prev.Start)
		}
		if editsOverlap(prev, e) {
			return types.Errorf(types.InternalInconsistency,
				"overlapping edits detected: [%d-%d] and [%d-%d]", prev.Start, prev.End, e.Start, e.End)
		}
	}
	return nil
}

// editsOverlap checks if two edits overlap. Two insertions at the same
// offset conflict because their order would be ambiguous.
func editsOverlap(a, b types.TextEdit) bool {
	if a.Start == a.End && b.Start == b.End {
		return a.Start == b.Start
	}
	return a.Start < b.End && b.Start < a.End
}

// Serializer writes edited documents back to disk.
type Serializer struct {
	Backup bool
}

func NewSerializer() *Serializer {
	return &Serializer{}
}

// WriteFile applies edits to the file at path. When Backup is set the
// original content is saved next to it first.
func (s *Serializer) WriteFile(path string, edits []types.TextEdit) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to read %s", path),
			Cause:   err,
		}
	}

	edited, err := ApplyEdits(content, edits)
	if err != nil {
		return fmt.Errorf("failed to apply edits to %s: %w", path, err)
	}

	if s.Backup {
		if _, err := s.BackupFile(path); err != nil {
			return err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: fmt.Sprintf("failed to stat %s", path), Cause: err}
	}
	if err := os.WriteFile(path, edited, info.Mode().Perm()); err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: fmt.Sprintf("failed to write %s", path), Cause: err}
	}
	return nil
}

// BackupFile creates a backup of a file before modifications
func (s *Serializer) BackupFile(filePath string) (string, error) {
	backupPath := filePath + ".backup"

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", &types.RefactorError{Type: types.FileSystemError, Message: "failed to read original file", File: filePath, Cause: err}
	}
	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(backupPath, content, 0644); err != nil {
		return "", &types.RefactorError{Type: types.FileSystemError, Message: "failed to create backup", File: backupPath, Cause: err}
	}
	return backupPath, nil
}

// PreviewEdits describes edits in a human readable form.
func PreviewEdits(uri string, src []byte, edits []types.TextEdit) string {
	if len(edits) == 0 {
		return "No changes to preview"
	}

	var preview strings.Builder
	fmt.Fprintf(&preview, "Preview of %d edits:\n\n", len(edits))
	fmt.Fprintf(&preview, "File: %s\n", uri)
	preview.WriteString(strings.Repeat("-", len(uri)+6) + "\n")

	for i, e := range edits {
		fmt.Fprintf(&preview, "%d. %d:%d-%d:%d\n", i+1,
			e.Range.Start.Line+1, e.Range.Start.Character+1, e.Range.End.Line+1, e.Range.End.Character+1)
		if e.End > e.Start && e.End <= len(src) {
			fmt.Fprintf(&preview, "   - %s\n", TruncateText(string(src[e.Start:e.End])))
		}
		if e.NewText != "" {
			fmt.Fprintf(&preview, "   + %s\n", TruncateText(e.NewText))
		}
	}
	return preview.String()
}

// TruncateText truncates text for display in previews
func TruncateText(text string, maxLength ...int) string {
	length := 80
	if len(maxLength) > 0 {
		length = maxLength[0]
	}

	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\t", `\t`)

	if len(text) <= length {
		return text
	}
	return text[:length-3] + "..."
}
