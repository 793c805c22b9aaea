package refactor

import (
	"fmt"

	"github.com/mamaar/rbrefactor/pkg/analysis"
	"github.com/mamaar/rbrefactor/pkg/syntax"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// Layout is how the declaration is placed relative to the statement it
// precedes.
type Layout int

const (
	// LayoutLineStart inserts the declaration on its own line above the statement.
	LayoutLineStart Layout = iota
	// LayoutExpand breaks a single-line body onto separate lines.
	LayoutExpand
	// LayoutInline inserts "name = expr; " directly before the statement.
	LayoutInline
)

func (l Layout) String() string {
	switch l {
	case LayoutLineStart:
		return "line-start"
	case LayoutExpand:
		return "expand"
	case LayoutInline:
		return "inline"
	default:
		return "unknown"
	}
}

// ParseSingleLineStyle parses the layout used for bodies that share a line
// with their header: "expand" or "inline".
func ParseSingleLineStyle(s string) (Layout, error) {
	switch s {
	case "", "expand":
		return LayoutExpand, nil
	case "inline":
		return LayoutInline, nil
	default:
		return LayoutExpand, fmt.Errorf("unknown single-line style %q (want expand or inline)", s)
	}
}

// ExtractionCandidate is a fully resolved extraction, ready for edit building.
type ExtractionCandidate struct {
	Expression  *syntax.Node
	Occurrences []*syntax.Node
	Scope       *analysis.Scope

	// Statement contains the first occurrence; Insert is the statement the
	// declaration goes before. Insert precedes or equals Statement.
	Statement   *syntax.Node
	Insert      *syntax.Node
	InsertIndex int

	Layout Layout
	// Offset is where the declaration edit starts. For LayoutExpand the edit
	// replaces the separator [Offset, GapEnd) between header and body.
	Offset int
	GapEnd int
	Indent string

	// CloserGap is the separator between the last statement and a closing
	// delimiter on the same line, replaced with a line break by LayoutExpand.
	// Both ends are -1 when there is nothing to replace.
	CloserGap    [2]int
	CloserIndent string
}

// ResolveInsertionPoint determines where the declaration for occurrences goes
// within scope. The declaration precedes the statement containing the first
// occurrence and never splits statements that share a line.
func ResolveInsertionPoint(tree *syntax.Tree, expr *syntax.Node, occurrences []*syntax.Node, scope *analysis.Scope, singleLine Layout) (*ExtractionCandidate, error) {
	if len(occurrences) == 0 {
		return nil, types.Errorf(types.InternalInconsistency, "no occurrences to replace")
	}
	stmt := statementOf(occurrences[0], scope.List)
	if stmt == nil {
		return nil, types.Errorf(types.InternalInconsistency, "occurrence at %d is outside its scope", occurrences[0].Start())
	}

	stmts := scope.Statements()
	lines := tree.Lines()
	idx := scope.StatementIndex(stmt)
	for idx > 0 && lines.Line(stmts[idx-1].End()) == lines.Line(stmts[idx].Start()) {
		idx--
	}
	insert := stmts[idx]
	if name, ok := readsAssigned(expr, stmts[idx:scope.StatementIndex(stmt)]); ok {
		pos := lines.Position(expr.Start())
		return nil, &types.RefactorError{
			Type:    types.NotExtractable,
			Message: fmt.Sprintf("expression reads %s, which is assigned earlier on the same line", name),
			File:    tree.URI,
			Line:    pos.Line + 1,
			Column:  pos.Character + 1,
		}
	}

	cand := &ExtractionCandidate{
		Expression:  expr,
		Occurrences: occurrences,
		Scope:       scope,
		Statement:   stmt,
		Insert:      insert,
		InsertIndex: idx,
		CloserGap:   [2]int{-1, -1},
	}

	src := tree.Source()
	lineStart := analysis.LineStart(src, insert.Start())
	if onlyBlanks(src[lineStart:insert.Start()]) {
		cand.Layout = LayoutLineStart
		cand.Offset = lineStart
		cand.GapEnd = lineStart
		cand.Indent = string(src[lineStart:insert.Start()])
		return cand, nil
	}

	closer, hasCloser := scope.Owner.Closer()
	if singleLine != LayoutExpand || !hasCloser || idx != 0 || !expandable(scope.Owner.Kind()) {
		cand.Layout = LayoutInline
		cand.Offset = insert.Start()
		cand.GapEnd = insert.Start()
		return cand, nil
	}

	gapStart := insert.Start()
	for gapStart > 0 && isSeparator(src[gapStart-1]) {
		gapStart--
	}
	outer := analysis.LineIndent(src, scope.Owner.Start())
	cand.Layout = LayoutExpand
	cand.Offset = gapStart
	cand.GapEnd = insert.Start()
	cand.Indent = outer + scope.IndentUnit
	cand.CloserIndent = outer

	last := stmts[len(stmts)-1]
	if lines.Line(last.End()) == lines.Line(closer) && allSeparators(src[last.End():closer]) {
		cand.CloserGap = [2]int{last.End(), closer}
	}
	return cand, nil
}

// statementOf returns the child of list that contains n.
func statementOf(n, list *syntax.Node) *syntax.Node {
	for ; n != nil; n = n.Parent() {
		if n.Parent() == list {
			return n
		}
	}
	return nil
}

// readsAssigned reports a local read by expr that one of stmts assigns.
func readsAssigned(expr *syntax.Node, stmts []*syntax.Node) (string, bool) {
	if len(stmts) == 0 {
		return "", false
	}
	assigned := make(map[string]bool)
	for _, stmt := range stmts {
		stmt.Walk(func(n *syntax.Node) bool {
			if n.Kind() == syntax.KindIdentifier && isAssignTarget(n, stmt) {
				assigned[n.Text()] = true
			}
			return true
		})
	}

	var name string
	expr.Walk(func(n *syntax.Node) bool {
		if name == "" && n.Kind() == syntax.KindIdentifier && n.Role() != syntax.RoleCallee && assigned[n.Text()] {
			name = n.Text()
		}
		return name == ""
	})
	return name, name != ""
}

func isAssignTarget(n, stmt *syntax.Node) bool {
	for ; n != nil && n != stmt.Parent(); n = n.Parent() {
		if n.Role() == syntax.RoleAssignTarget {
			return true
		}
	}
	return false
}

func expandable(k syntax.Kind) bool {
	switch k {
	case syntax.KindMethod, syntax.KindSingletonMethod, syntax.KindBlock,
		syntax.KindClass, syntax.KindModule, syntax.KindBegin, syntax.KindDo:
		return true
	}
	return false
}

func onlyBlanks(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}

func isSeparator(c byte) bool {
	return c == ' ' || c == '\t' || c == ';'
}

func allSeparators(b []byte) bool {
	for _, c := range b {
		if !isSeparator(c) {
			return false
		}
	}
	return true
}
