package analysis

import (
	"fmt"
	"sort"

	"github.com/mamaar/rbrefactor/pkg/syntax"
)

// OccurrencePolicy selects which occurrences of an expression are replaced.
type OccurrencePolicy int

const (
	// SingleOccurrence replaces only the selected expression.
	SingleOccurrence OccurrencePolicy = iota
	// AllOccurrences replaces every structurally equal expression in the scope.
	AllOccurrences
)

func (p OccurrencePolicy) String() string {
	switch p {
	case AllOccurrences:
		return "all"
	default:
		return "single"
	}
}

// ParseOccurrencePolicy parses "single" or "all".
func ParseOccurrencePolicy(s string) (OccurrencePolicy, error) {
	switch s {
	case "", "single":
		return SingleOccurrence, nil
	case "all":
		return AllOccurrences, nil
	default:
		return SingleOccurrence, fmt.Errorf("unknown occurrence policy %q (want single or all)", s)
	}
}

// FindOccurrences returns the occurrences of expr to replace, in source
// order. The selected expression is always included.
func FindOccurrences(tree *syntax.Tree, expr *syntax.Node, scope *Scope, policy OccurrencePolicy) []*syntax.Node {
	if policy == SingleOccurrence {
		return []*syntax.Node{expr}
	}

	found := []*syntax.Node{expr}
	scope.List.Walk(func(n *syntax.Node) bool {
		if n == expr {
			return false
		}
		switch n.Kind() {
		case syntax.KindMethod, syntax.KindSingletonMethod, syntax.KindClass,
			syntax.KindModule, syntax.KindBlock, syntax.KindLambda:
			return false
		}
		if !Equal(n, expr) {
			return true
		}
		if replaceable(tree, n, scope.List) {
			found = append(found, n)
		}
		return false
	})

	sort.Slice(found, func(i, j int) bool { return found[i].Start() < found[j].Start() })
	return found
}

// replaceable reports whether n can be swapped for a variable declared in
// the statement sequence list.
func replaceable(tree *syntax.Tree, n, list *syntax.Node) bool {
	if n.HasError() {
		return false
	}
	switch n.Role() {
	case syntax.RoleName, syntax.RoleParameters, syntax.RoleAssignTarget, syntax.RoleCallee:
		return false
	}
	child := n
	for p := n.Parent(); p != nil; child, p = p, p.Parent() {
		if checkEdge(tree, p, child) != nil {
			return false
		}
		if p == list {
			return true
		}
	}
	return false
}

// Equal reports whether a and b are structurally equal: same kinds,
// operators and leaf text, ignoring layout and comments.
func Equal(a, b *syntax.Node) bool {
	if a.Kind() != b.Kind() || a.Type() != b.Type() || a.Op() != b.Op() {
		return false
	}
	if a.ChildCount() != b.ChildCount() {
		return false
	}
	if a.IsLeaf() {
		return a.Text() == b.Text()
	}
	for i := 0; i < a.ChildCount(); i++ {
		if a.Child(i).Role() != b.Child(i).Role() || !Equal(a.Child(i), b.Child(i)) {
			return false
		}
	}
	return true
}
