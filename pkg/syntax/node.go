package syntax

// Node is an immutable syntax tree node covering the bytes [Start, End) of
// its document. Children are disjoint and ordered by position. Comments and
// punctuation are not represented as nodes.
type Node struct {
	kind     Kind
	typ      string
	start    int
	end      int
	children []*Node
	parent   *Node
	role     Role
	op       string
	text     string
	closer   int
	hasError bool
}

func (n *Node) Kind() Kind        { return n.kind }
func (n *Node) Start() int        { return n.start }
func (n *Node) End() int          { return n.end }
func (n *Node) Children() []*Node { return n.children }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) Role() Role        { return n.role }
func (n *Node) HasError() bool    { return n.hasError }
func (n *Node) Len() int          { return n.end - n.start }
func (n *Node) ChildCount() int   { return len(n.children) }
func (n *Node) Child(i int) *Node { return n.children[i] }
func (n *Node) IsLeaf() bool      { return len(n.children) == 0 }
func (n *Node) Contains(o *Node) bool {
	return n.start <= o.start && o.end <= n.end
}

// Type is the grammar's name for the node, e.g. "binary" or "do_block".
func (n *Node) Type() string { return n.typ }

// Op is the operator token of binary, unary and operator-assignment nodes and
// the dispatch token ("." or "&.") of calls with a receiver.
func (n *Node) Op() string { return n.op }

// Text is the source text of leaf nodes; empty for interior nodes.
func (n *Node) Text() string { return n.text }

// Closer returns the offset of the closing "end" or "}" of a statement
// container, if it has one.
func (n *Node) Closer() (int, bool) {
	return n.closer, n.closer >= 0
}

// Index returns the position of n among its parent's children, or -1 for
// the root.
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	return -1
}

// Walk calls fn for n and its descendants in source order. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Ancestors returns the parent chain of n, nearest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}
