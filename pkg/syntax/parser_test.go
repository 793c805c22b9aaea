package syntax

import (
	"context"
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), "file:///test.rb", 1, []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return tree
}

func childOfKind(n *Node, kind Kind) *Node {
	for _, c := range n.Children() {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

func TestParse_SingleLineMethod(t *testing.T) {
	src := "def b; 1 + 123; end\n"
	tree := mustParse(t, src)

	root := tree.Root()
	if root.Kind() != KindProgram {
		t.Fatalf("Expected Program root, got %v", root.Kind())
	}
	if root.Start() != 0 || root.End() != len(src) {
		t.Errorf("Root should span the whole document, got [%d,%d)", root.Start(), root.End())
	}

	top := childOfKind(root, KindStatements)
	if top == nil || top.ChildCount() != 1 {
		t.Fatalf("Expected one top-level statement")
	}
	method := top.Child(0)
	if method.Kind() != KindMethod {
		t.Fatalf("Expected Method, got %v", method.Kind())
	}
	closer, ok := method.Closer()
	if !ok || closer != strings.Index(src, "end") {
		t.Errorf("Expected closer at %d, got %d (%v)", strings.Index(src, "end"), closer, ok)
	}

	name := method.Child(0)
	if name.Role() != RoleName || name.Text() != "b" {
		t.Errorf("Expected method name child, got %v %q", name.Role(), name.Text())
	}

	body := childOfKind(method, KindStatements)
	if body == nil || body.ChildCount() != 1 {
		t.Fatalf("Expected one statement in method body")
	}
	binary := body.Child(0)
	if binary.Kind() != KindBinary || binary.Op() != "+" {
		t.Fatalf("Expected binary +, got %v %q", binary.Kind(), binary.Op())
	}
	if tree.Text(binary) != "1 + 123" {
		t.Errorf("Unexpected binary text %q", tree.Text(binary))
	}
	right := binary.Child(1)
	if right.Kind() != KindInteger || right.Text() != "123" {
		t.Errorf("Expected integer 123, got %v %q", right.Kind(), right.Text())
	}
	if right.Parent() != binary || binary.Parent() != body || body.Parent() != method {
		t.Error("Parent links are broken")
	}
}

func TestParse_StatementsSplitBySemicolon(t *testing.T) {
	tree := mustParse(t, "def c; 1 + 1; 1 + 123; end\n")
	method := childOfKind(tree.Root(), KindStatements).Child(0)
	body := childOfKind(method, KindStatements)
	if body.ChildCount() != 2 {
		t.Fatalf("Expected 2 statements, got %d", body.ChildCount())
	}
	if tree.Text(body.Child(0)) != "1 + 1" || tree.Text(body.Child(1)) != "1 + 123" {
		t.Errorf("Unexpected statements %q, %q", tree.Text(body.Child(0)), tree.Text(body.Child(1)))
	}
}

func TestParse_CommentsAreNotNodes(t *testing.T) {
	tree := mustParse(t, "# header\nx = 1 # trailing\n# footer\n")
	top := childOfKind(tree.Root(), KindStatements)
	if top.ChildCount() != 1 {
		t.Fatalf("Expected comments to be skipped, got %d statements", top.ChildCount())
	}
	assign := top.Child(0)
	if assign.Kind() != KindAssignment {
		t.Fatalf("Expected Assignment, got %v", assign.Kind())
	}
	if assign.Child(0).Role() != RoleAssignTarget {
		t.Errorf("Expected assignment target role, got %v", assign.Child(0).Role())
	}
}

func TestParse_Roles(t *testing.T) {
	tree := mustParse(t, "foo.bar(1)\na && b\nx = y if z\n")
	stmts := childOfKind(tree.Root(), KindStatements)
	if stmts.ChildCount() != 3 {
		t.Fatalf("Expected 3 statements, got %d", stmts.ChildCount())
	}

	call := stmts.Child(0)
	if call.Kind() != KindCall || call.Op() != "." {
		t.Fatalf("Expected call with '.', got %v %q", call.Kind(), call.Op())
	}
	if call.Child(0).Role() != RoleReceiver || call.Child(1).Role() != RoleCallee {
		t.Errorf("Unexpected call roles %v, %v", call.Child(0).Role(), call.Child(1).Role())
	}
	if childOfKind(call, KindArguments) == nil {
		t.Error("Expected argument list")
	}

	and := stmts.Child(1)
	if and.Op() != "&&" || and.Child(1).Role() != RoleBranch {
		t.Errorf("Expected short-circuit right operand, got %q %v", and.Op(), and.Child(1).Role())
	}

	mod := stmts.Child(2)
	if mod.Kind() != KindModifierIf {
		t.Fatalf("Expected ModifierIf, got %v", mod.Kind())
	}
	if mod.Child(0).Role() != RoleBody || mod.Child(1).Role() != RoleCondition {
		t.Errorf("Unexpected modifier roles %v, %v", mod.Child(0).Role(), mod.Child(1).Role())
	}
}

func TestParse_BranchesHoldStatements(t *testing.T) {
	src := "if c\n  a + 1\nelse\n  b + 2\nend\n"
	tree := mustParse(t, src)
	ifNode := childOfKind(tree.Root(), KindStatements).Child(0)
	if ifNode.Kind() != KindIf {
		t.Fatalf("Expected If, got %v", ifNode.Kind())
	}
	then := childOfKind(ifNode, KindThen)
	if then == nil || childOfKind(then, KindStatements) == nil {
		t.Fatal("Expected then branch with statements")
	}
	els := childOfKind(ifNode, KindElse)
	if els == nil || childOfKind(els, KindStatements) == nil {
		t.Fatal("Expected else branch with statements")
	}
}

func TestParse_RecordsSyntaxErrors(t *testing.T) {
	tree := mustParse(t, "def broken(\n  1 +\n")
	if !tree.HasErrors() {
		t.Error("Expected syntax errors to be recorded")
	}

	clean := mustParse(t, "puts 1\n")
	if clean.HasErrors() {
		t.Error("Expected no syntax errors")
	}
}

func TestTree_Dump(t *testing.T) {
	tree := mustParse(t, "x = 1\n")
	dump := tree.Dump()
	for _, want := range []string{"Program", "Statements", "Assignment", "Identifier 1:1-1:2 target \"x\"", "Integer"} {
		if !strings.Contains(dump, want) {
			t.Errorf("Expected dump to contain %q, got:\n%s", want, dump)
		}
	}
}
