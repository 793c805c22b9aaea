package syntax

import (
	"fmt"
	"strings"
)

// Tree is a parsed document version. Trees are never mutated after Parse
// returns and may be shared between goroutines.
type Tree struct {
	URI     string
	Version int

	root  *Node
	src   []byte
	lines *LineIndex
}

func (t *Tree) Root() *Node       { return t.root }
func (t *Tree) Source() []byte    { return t.src }
func (t *Tree) Lines() *LineIndex { return t.lines }

// HasErrors reports whether the parser had to recover from syntax errors.
func (t *Tree) HasErrors() bool { return t.root.hasError }

// Text returns the source text spanned by n.
func (t *Tree) Text(n *Node) string {
	return string(t.src[n.start:n.end])
}

// Dump renders the tree one node per line, indented by depth.
func (t *Tree) Dump() string {
	var b strings.Builder
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.kind.String())
		if n.typ != "" && n.typ != strings.ToLower(n.kind.String()) {
			fmt.Fprintf(&b, "(%s)", n.typ)
		}
		start := t.lines.Position(n.start)
		end := t.lines.Position(n.end)
		fmt.Fprintf(&b, " %d:%d-%d:%d", start.Line+1, start.Character+1, end.Line+1, end.Character+1)
		if r := n.role.String(); r != "" {
			fmt.Fprintf(&b, " %s", r)
		}
		if n.op != "" {
			fmt.Fprintf(&b, " op=%q", n.op)
		}
		if n.text != "" && n.kind != KindStatements {
			fmt.Fprintf(&b, " %q", n.text)
		}
		if n.hasError {
			b.WriteString(" !error")
		}
		b.WriteByte('\n')
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
	return b.String()
}
