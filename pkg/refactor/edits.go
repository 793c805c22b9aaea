package refactor

import (
	"sort"

	"github.com/mamaar/rbrefactor/pkg/syntax"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// ExtractVariableTitle is the title of the code action.
const ExtractVariableTitle = "Extract Variable"

// BuildEdits produces the declaration and replacement edits for cand, in
// original-document coordinates, and the post-apply range of the new name.
func BuildEdits(tree *syntax.Tree, cand *ExtractionCandidate, name string) (*types.CodeActionResult, error) {
	decl := name + " = " + tree.Text(cand.Expression)

	var declText string
	var nameAt int
	switch cand.Layout {
	case LayoutLineStart:
		declText = cand.Indent + decl + "\n"
		nameAt = len(cand.Indent)
	case LayoutExpand:
		declText = "\n" + cand.Indent + decl + "\n" + cand.Indent
		nameAt = 1 + len(cand.Indent)
	case LayoutInline:
		declText = decl + "; "
	default:
		return nil, types.Errorf(types.InternalInconsistency, "unknown layout %v", cand.Layout)
	}

	lines := tree.Lines()
	edit := func(start, end int, text string) types.TextEdit {
		return types.TextEdit{Start: start, End: end, Range: lines.Range(start, end), NewText: text}
	}

	declEdit := edit(cand.Offset, cand.GapEnd, declText)
	edits := []types.TextEdit{declEdit}
	for _, occ := range cand.Occurrences {
		edits = append(edits, edit(occ.Start(), occ.End(), name))
	}
	if cand.CloserGap[0] >= 0 {
		edits = append(edits, edit(cand.CloserGap[0], cand.CloserGap[1], "\n"+cand.CloserIndent))
	}

	SortEdits(edits)
	if err := ValidateEdits(edits, len(tree.Source())); err != nil {
		return nil, err
	}

	// Offsets of the declaration's name shift by the size change of every
	// edit before it.
	shift := 0
	for _, e := range edits {
		if e.Start == declEdit.Start && e.End == declEdit.End && e.NewText == declEdit.NewText {
			break
		}
		shift += len(e.NewText) - (e.End - e.Start)
	}
	edited, err := ApplyEdits(tree.Source(), edits)
	if err != nil {
		return nil, err
	}
	at := declEdit.Start + shift + nameAt
	selectOnApply := syntax.NewLineIndex(edited).Range(at, at+len(name))

	return &types.CodeActionResult{
		Title:         ExtractVariableTitle,
		Kind:          types.CodeActionKindRefactorExtract,
		Edits:         edits,
		SelectOnApply: &selectOnApply,
		Name:          name,
	}, nil
}

// SortEdits orders edits by start offset. At equal starts insertions come
// before replacements.
func SortEdits(edits []types.TextEdit) {
	sort.SliceStable(edits, func(i, j int) bool {
		a, b := edits[i], edits[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End-a.Start < b.End-b.Start
	})
}
