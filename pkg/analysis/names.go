package analysis

import (
	"fmt"

	"github.com/mamaar/rbrefactor/pkg/syntax"
)

// DefaultVariableName is the name hint used when none is configured.
const DefaultVariableName = "newVariable"

// FreshName returns prefix, or prefix followed by the smallest positive
// integer, such that the name collides with no identifier visible in scope.
func FreshName(scope *Scope, prefix string) string {
	if prefix == "" {
		prefix = DefaultVariableName
	}
	used := identifiers(scope.Gate())
	name, _ := generateName(0, prefix, func(name string) bool {
		return used[name]
	})
	return name
}

func generateName(idx int, prefix string, hasCollision func(string) bool) (string, int) {
	name := prefix
	if idx != 0 {
		name += fmt.Sprintf("%d", idx)
	}
	for hasCollision(name) {
		idx++
		name = fmt.Sprintf("%v%d", prefix, idx)
	}
	return name, idx + 1
}

func identifiers(root *syntax.Node) map[string]bool {
	used := make(map[string]bool)
	root.Walk(func(n *syntax.Node) bool {
		if n != root && n.Kind().IsScopeGate() {
			return false
		}
		// The gate's own name is not a local of its body.
		if n.Parent() == root && n.Role() == syntax.RoleName {
			return false
		}
		if n.Kind() == syntax.KindIdentifier {
			used[n.Text()] = true
		}
		return true
	})
	return used
}
