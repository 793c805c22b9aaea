package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/mamaar/rbrefactor/internal/cli"
	"github.com/mamaar/rbrefactor/pkg/refactor"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// ParsePosition parses a 1-based "line:column" argument into an LSP
// position.
func ParsePosition(arg string) (types.Position, error) {
	lineStr, colStr, ok := strings.Cut(arg, ":")
	if !ok {
		return types.Position{}, cli.Usagef("invalid position %q: want line:column", arg)
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return types.Position{}, cli.Usagef("invalid line in %q", arg)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || col < 1 {
		return types.Position{}, cli.Usagef("invalid column in %q", arg)
	}
	return types.Position{Line: line - 1, Character: col - 1}, nil
}

// OutputJSON writes v as indented JSON
func OutputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// renderEdits prints one table row per edit.
func renderEdits(w io.Writer, src []byte, edits []types.TextEdit) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Range", "Removed", "Inserted"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, e := range edits {
		removed := ""
		if e.End > e.Start && e.End <= len(src) {
			removed = refactor.TruncateText(string(src[e.Start:e.End]), 40)
		}
		table.Append([]string{
			fmt.Sprintf("%d:%d-%d:%d", e.Range.Start.Line+1, e.Range.Start.Character+1, e.Range.End.Line+1, e.Range.End.Character+1),
			removed,
			refactor.TruncateText(e.NewText, 40),
		})
	}
	table.Render()
}
