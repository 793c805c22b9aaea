package analysis

import (
	"bytes"

	"github.com/mamaar/rbrefactor/pkg/syntax"
)

// DefaultIndentUnit is used when the document has no indented lines.
const DefaultIndentUnit = "  "

// Scope is the statement sequence an extracted variable is declared in.
// Scopes are derived per request and never stored.
type Scope struct {
	Kind  ScopeKind
	Owner *syntax.Node // node that holds the statement sequence
	List  *syntax.Node // the KindStatements node
	// IndentUnit is one level of indentation, sampled from the document.
	IndentUnit string
}

type ScopeKind int

const (
	ProgramScope ScopeKind = iota // top level of a file
	MethodScope                   // def body
	BlockScope                    // do/end and brace block bodies
	ClassScope                    // class, module and singleton class bodies
	BranchScope                   // conditional, loop, begin and rescue bodies
)

// String returns the string representation of a ScopeKind
func (sk ScopeKind) String() string {
	switch sk {
	case ProgramScope:
		return "Program"
	case MethodScope:
		return "Method"
	case BlockScope:
		return "Block"
	case ClassScope:
		return "Class"
	case BranchScope:
		return "Branch"
	default:
		return "Unknown"
	}
}

// Statements returns the statements of the scope in source order.
func (s *Scope) Statements() []*syntax.Node {
	return s.List.Children()
}

// StatementIndex returns the index of stmt in the scope, or -1.
func (s *Scope) StatementIndex(stmt *syntax.Node) int {
	for i, st := range s.List.Children() {
		if st == stmt {
			return i
		}
	}
	return -1
}

// Gate returns the nearest enclosing node that starts a fresh set of local
// variables: the method, class, module or program around the scope.
func (s *Scope) Gate() *syntax.Node {
	for n := s.Owner; n != nil; n = n.Parent() {
		if n.Kind().IsScopeGate() {
			return n
		}
	}
	return s.Owner
}

func newScope(src []byte, list *syntax.Node) *Scope {
	owner := list.Parent()
	return &Scope{
		Kind:       scopeKindOf(owner.Kind()),
		Owner:      owner,
		List:       list,
		IndentUnit: IndentUnit(src),
	}
}

func scopeKindOf(k syntax.Kind) ScopeKind {
	switch k {
	case syntax.KindProgram:
		return ProgramScope
	case syntax.KindMethod, syntax.KindSingletonMethod:
		return MethodScope
	case syntax.KindBlock:
		return BlockScope
	case syntax.KindClass, syntax.KindModule:
		return ClassScope
	default:
		return BranchScope
	}
}

// IndentUnit samples one indentation level from src: a tab when indented
// lines start with tabs, otherwise the smallest positive run of spaces.
func IndentUnit(src []byte) string {
	smallest := 0
	for _, line := range bytes.Split(src, []byte("\n")) {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == 0 || len(trimmed) == len(line) {
			continue
		}
		if line[0] == '\t' {
			return "\t"
		}
		n := len(line) - len(bytes.TrimLeft(line, " "))
		if n > 0 && (smallest == 0 || n < smallest) {
			smallest = n
		}
	}
	if smallest == 0 {
		return DefaultIndentUnit
	}
	return string(bytes.Repeat([]byte(" "), smallest))
}

// LineIndent returns the whitespace at the start of the line containing offset.
func LineIndent(src []byte, offset int) string {
	start := LineStart(src, offset)
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// LineStart returns the offset of the first byte of the line containing offset.
func LineStart(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.LastIndexByte(src[:offset], '\n') + 1
}
