package analysis

import (
	"github.com/mamaar/rbrefactor/pkg/syntax"
	"github.com/mamaar/rbrefactor/pkg/types"
)

// FindEnclosing returns the smallest expression that encloses the selection.
// Whitespace at both ends of the selection is ignored.
func FindEnclosing(tree *syntax.Tree, sel types.Selection) (*syntax.Node, error) {
	src := tree.Source()
	if sel.Start < 0 || sel.End > len(src) || sel.Start > sel.End {
		return nil, notExtractable(tree, sel.Start, "selection [%d,%d) is outside the document", sel.Start, sel.End)
	}
	start, end := trimSelection(src, sel.Start, sel.End)

	n := tree.Root()
	for {
		next := childContaining(n, start, end)
		if next == nil {
			break
		}
		n = next
	}

	switch {
	case n.Kind() == syntax.KindStatements:
		return nil, notExtractable(tree, start, "selection spans more than one statement")
	case !n.IsLeaf() && start != end && !(start == n.Start() && end == n.End()) && !overlapsChild(n, start, end):
		return nil, notExtractable(tree, start, "selection does not cover an expression")
	case start == end && !n.IsLeaf() && !overlapsChild(n, start, end):
		return nil, notExtractable(tree, start, "cursor is not on an expression")
	case !n.Kind().IsExpression():
		return nil, notExtractable(tree, start, "%s is not an expression", describe(n))
	case n.HasError():
		return nil, notExtractable(tree, start, "expression contains syntax errors")
	}

	switch n.Role() {
	case syntax.RoleName:
		return nil, notExtractable(tree, start, "cannot extract a name")
	case syntax.RoleParameters:
		return nil, notExtractable(tree, start, "cannot extract a parameter")
	case syntax.RoleAssignTarget:
		return nil, notExtractable(tree, start, "cannot extract an assignment target")
	case syntax.RoleCallee:
		return nil, notExtractable(tree, start, "cannot extract a method name")
	}
	return n, nil
}

// EnclosingScope returns the statement sequence that contains node and the
// statement of that sequence on the path to node.
func EnclosingScope(tree *syntax.Tree, node *syntax.Node) (*Scope, *syntax.Node, error) {
	child := node
	for p := node.Parent(); p != nil; child, p = p, p.Parent() {
		if err := checkEdge(tree, p, child); err != nil {
			return nil, nil, err
		}
		if p.Kind() == syntax.KindStatements {
			return newScope(tree.Source(), p), child, nil
		}
		if isContainer(p.Kind()) {
			return nil, nil, notExtractable(tree, node.Start(), "expression is not part of a statement of the enclosing %s", p.Kind())
		}
	}
	return nil, nil, &types.RefactorError{
		Type:    types.NoEnclosingScope,
		Message: "no statement sequence encloses the expression",
		File:    tree.URI,
		Line:    tree.Lines().Position(node.Start()).Line + 1,
		Column:  tree.Lines().Position(node.Start()).Character + 1,
	}
}

// checkEdge rejects positions where hoisting the child out of p would change
// how often, or whether, it is evaluated.
func checkEdge(tree *syntax.Tree, p, child *syntax.Node) error {
	if p.Kind() == syntax.KindParameters || child.Role() == syntax.RoleParameters {
		return notExtractable(tree, child.Start(), "default parameter values cannot be extracted")
	}
	if p.Kind() == syntax.KindParenthesized && child.Index() > 0 {
		return notExtractable(tree, child.Start(), "expression follows other statements in parentheses")
	}
	switch child.Role() {
	case syntax.RoleCondition:
		switch p.Kind() {
		case syntax.KindWhile, syntax.KindModifierWhile:
			return notExtractable(tree, child.Start(), "loop conditions are evaluated on every iteration")
		case syntax.KindElsif, syntax.KindWhen:
			return notExtractable(tree, child.Start(), "condition is only evaluated when earlier branches fail")
		}
	case syntax.RoleBody:
		return notExtractable(tree, child.Start(), "body of a %s modifier is evaluated conditionally", p.Type())
	case syntax.RoleBranch:
		return notExtractable(tree, child.Start(), "operand is evaluated conditionally")
	}
	return nil
}

func isContainer(k syntax.Kind) bool {
	switch k {
	case syntax.KindThen, syntax.KindElse, syntax.KindDo, syntax.KindBegin, syntax.KindEnsure:
		return true
	}
	return k.IsScopeOwner()
}

// childContaining picks the child of n enclosing [start, end). A caret that
// touches two children prefers the one it is strictly inside.
func childContaining(n *syntax.Node, start, end int) *syntax.Node {
	if start == end {
		for _, c := range n.Children() {
			if c.Start() <= start && start < c.End() {
				return c
			}
		}
	}
	for _, c := range n.Children() {
		if c.Start() <= start && end <= c.End() {
			return c
		}
	}
	return nil
}

func overlapsChild(n *syntax.Node, start, end int) bool {
	for _, c := range n.Children() {
		if start == end {
			if c.Start() <= start && start <= c.End() {
				return true
			}
			continue
		}
		if c.Start() < end && start < c.End() {
			return true
		}
	}
	return false
}

func trimSelection(src []byte, start, end int) (int, int) {
	for start < end && isSpace(src[start]) {
		start++
	}
	for end > start && isSpace(src[end-1]) {
		end--
	}
	return start, end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func describe(n *syntax.Node) string {
	if n.Type() != "" {
		return n.Type()
	}
	return n.Kind().String()
}

func notExtractable(tree *syntax.Tree, offset int, format string, args ...any) error {
	err := types.Errorf(types.NotExtractable, format, args...)
	pos := tree.Lines().Position(offset)
	err.File = tree.URI
	err.Line = pos.Line + 1
	err.Column = pos.Character + 1
	return err
}
