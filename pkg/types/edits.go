package types

// Position is a zero-based line and UTF-16 character offset, as used by LSP.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open range of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Selection is a half-open byte range of a specific document version.
type Selection struct {
	Start   int
	End     int
	Version int
}

// Empty reports whether the selection is a caret.
func (s Selection) Empty() bool {
	return s.Start == s.End
}

// TextEdit replaces the bytes [Start, End) of the original document with NewText.
// Range carries the same span in LSP coordinates.
type TextEdit struct {
	Start   int    `json:"-"`
	End     int    `json:"-"`
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// CodeActionKindRefactorExtract is the LSP kind of every extract action.
const CodeActionKindRefactorExtract = "refactor.extract"

// KindMatches reports whether a code action of kind passes an LSP "only"
// filter. Filters match hierarchically: "refactor" admits "refactor.extract".
// An empty filter admits everything.
func KindMatches(kind string, only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, o := range only {
		if kind == o || (len(kind) > len(o) && kind[:len(o)] == o && kind[len(o)] == '.') {
			return true
		}
	}
	return false
}

// CodeActionResult is the outcome of a successful Extract Variable request.
type CodeActionResult struct {
	Title string     `json:"title"`
	Kind  string     `json:"kind"`
	Edits []TextEdit `json:"edits"`
	// SelectOnApply is the range of the new variable's name in the edited
	// document, for the client to start a rename.
	SelectOnApply *Range `json:"selectOnApply,omitempty"`
	// Name is the variable name that was chosen.
	Name string `json:"name"`
}

// ExtractVariableRequest asks for an Extract Variable action on a document.
type ExtractVariableRequest struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Range   Range  `json:"range"`
	// Name overrides the configured variable name hint when non-empty.
	Name string `json:"name,omitempty"`
}
