package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/mamaar/rbrefactor/pkg/types"
)

var kindByType = map[string]Kind{
	"ERROR":                    KindError,
	"program":                  KindProgram,
	"method":                   KindMethod,
	"singleton_method":         KindSingletonMethod,
	"class":                    KindClass,
	"singleton_class":          KindClass,
	"module":                   KindModule,
	"block":                    KindBlock,
	"do_block":                 KindBlock,
	"then":                     KindThen,
	"else":                     KindElse,
	"elsif":                    KindElsif,
	"do":                       KindDo,
	"begin":                    KindBegin,
	"rescue":                   KindRescue,
	"ensure":                   KindEnsure,
	"if":                       KindIf,
	"unless":                   KindUnless,
	"if_modifier":              KindModifierIf,
	"unless_modifier":          KindModifierIf,
	"rescue_modifier":          KindModifierIf,
	"while":                    KindWhile,
	"until":                    KindWhile,
	"while_modifier":           KindModifierWhile,
	"until_modifier":           KindModifierWhile,
	"for":                      KindFor,
	"case":                     KindCase,
	"case_match":               KindCase,
	"when":                     KindWhen,
	"in_clause":                KindWhen,
	"return":                   KindJump,
	"break":                    KindJump,
	"next":                     KindJump,
	"redo":                     KindJump,
	"retry":                    KindJump,
	"integer":                  KindInteger,
	"float":                    KindFloat,
	"rational":                 KindFloat,
	"complex":                  KindFloat,
	"string":                   KindString,
	"chained_string":           KindString,
	"character":                KindString,
	"simple_symbol":            KindSymbol,
	"delimited_symbol":         KindSymbol,
	"regex":                    KindRegex,
	"true":                     KindTrue,
	"false":                    KindFalse,
	"nil":                      KindNil,
	"self":                     KindSelf,
	"identifier":               KindIdentifier,
	"constant":                 KindConstant,
	"instance_variable":        KindVariable,
	"class_variable":           KindVariable,
	"global_variable":          KindVariable,
	"array":                    KindArray,
	"string_array":             KindArray,
	"symbol_array":             KindArray,
	"hash":                     KindHash,
	"binary":                   KindBinary,
	"unary":                    KindUnary,
	"call":                     KindCall,
	"yield":                    KindCall,
	"super":                    KindCall,
	"parenthesized_statements": KindParenthesized,
	"conditional":              KindConditional,
	"range":                    KindRange,
	"element_reference":        KindIndex,
	"scope_resolution":         KindScopeResolution,
	"lambda":                   KindLambda,
	"string_content":           KindStringContent,
	"escape_sequence":          KindStringContent,
	"interpolation":            KindInterpolation,
	"pair":                     KindPair,
	"argument_list":            KindArguments,
	"method_parameters":        KindParameters,
	"lambda_parameters":        KindParameters,
	"block_parameters":         KindParameters,
	"parameters":               KindParameters,
	"bare_parameters":          KindParameters,
	"optional_parameter":       KindParameters,
	"keyword_parameter":        KindParameters,
	"splat_parameter":          KindParameters,
	"hash_splat_parameter":     KindParameters,
	"block_parameter":          KindParameters,
	"destructured_parameter":   KindParameters,
	"assignment":               KindAssignment,
	"operator_assignment":      KindOperatorAssignment,
	"hash_key_symbol":          KindName,
}

// containerTypes hold a statement sequence. Their statements are wrapped in a
// synthesized KindStatements child.
var containerTypes = map[string]bool{
	"program":          true,
	"method":           true,
	"singleton_method": true,
	"class":            true,
	"singleton_class":  true,
	"module":           true,
	"block":            true,
	"do_block":         true,
	"then":             true,
	"else":             true,
	"do":               true,
	"begin":            true,
	"ensure":           true,
}

// bodyTypes wrap a container's statements in some grammar versions and are
// flattened into their container.
var bodyTypes = map[string]bool{
	"body_statement": true,
	"block_body":     true,
}

// clauseTypes are named children of a container that are not statements.
var clauseTypes = map[string]bool{
	"rescue":            true,
	"else":              true,
	"ensure":            true,
	"superclass":        true,
	"method_parameters": true,
	"lambda_parameters": true,
	"block_parameters":  true,
	"parameters":        true,
	"bare_parameters":   true,
}

var skippedTypes = map[string]bool{
	"comment":         true,
	"empty_statement": true,
	"heredoc_body":    true,
	"uninterpreted":   true,
}

var fieldRoles = map[string]map[string]Role{
	"method":              {"name": RoleName, "parameters": RoleParameters, "object": RoleReceiver},
	"singleton_method":    {"name": RoleName, "parameters": RoleParameters, "object": RoleReceiver},
	"class":               {"name": RoleName},
	"module":              {"name": RoleName},
	"singleton_class":     {"value": RoleReceiver},
	"block":               {"parameters": RoleParameters},
	"do_block":            {"parameters": RoleParameters},
	"lambda":              {"parameters": RoleParameters},
	"assignment":          {"left": RoleAssignTarget},
	"operator_assignment": {"left": RoleAssignTarget},
	"if":                  {"condition": RoleCondition},
	"unless":              {"condition": RoleCondition},
	"elsif":               {"condition": RoleCondition},
	"while":               {"condition": RoleCondition},
	"until":               {"condition": RoleCondition},
	"if_modifier":         {"condition": RoleCondition, "body": RoleBody},
	"unless_modifier":     {"condition": RoleCondition, "body": RoleBody},
	"while_modifier":      {"condition": RoleCondition, "body": RoleBody},
	"until_modifier":      {"condition": RoleCondition, "body": RoleBody},
	"rescue_modifier":     {"body": RoleBody, "handler": RoleBranch},
	"conditional":         {"condition": RoleCondition, "consequence": RoleBranch, "alternative": RoleBranch},
	"call":                {"method": RoleCallee, "receiver": RoleReceiver},
	"pair":                {"key": RoleKey},
	"for":                 {"pattern": RoleAssignTarget},
	"when":                {"pattern": RoleCondition},
	"in_clause":           {"pattern": RoleCondition},
	"scope_resolution":    {"name": RoleName},
	"optional_parameter":  {"name": RoleName},
	"keyword_parameter":   {"name": RoleName},
}

var shortCircuitOps = map[string]bool{
	"&&":  true,
	"||":  true,
	"and": true,
	"or":  true,
	"&&=": true,
	"||=": true,
}

// Parse parses Ruby source into an immutable Tree. Syntax errors do not fail
// the parse; they are recorded on the affected nodes.
func Parse(ctx context.Context, uri string, version int, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(ruby.GetLanguage())

	tsTree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &types.RefactorError{
			Type:    types.ParseError,
			Message: fmt.Sprintf("failed to parse %s", uri),
			File:    uri,
			Cause:   err,
		}
	}
	defer tsTree.Close()

	c := &converter{src: src}
	root := c.convert(tsTree.RootNode(), nil, RoleNone)
	root.start = 0
	root.end = len(src)

	return &Tree{
		URI:     uri,
		Version: version,
		root:    root,
		src:     src,
		lines:   NewLineIndex(src),
	}, nil
}

type span struct {
	start, end uint32
	typ        string
}

func spanOf(n *sitter.Node) span {
	return span{start: n.StartByte(), end: n.EndByte(), typ: n.Type()}
}

type converter struct {
	src []byte
}

func (c *converter) convert(ts *sitter.Node, parent *Node, role Role) *Node {
	typ := ts.Type()
	n := &Node{
		kind:     kindByType[typ],
		typ:      typ,
		start:    int(ts.StartByte()),
		end:      int(ts.EndByte()),
		parent:   parent,
		role:     role,
		closer:   -1,
		hasError: ts.HasError() || ts.IsMissing() || typ == "ERROR",
	}
	n.op = c.operator(ts, typ)
	roles := c.roles(ts, typ, n.op)

	if containerTypes[typ] && !isEndless(ts) {
		c.convertContainer(ts, n, roles)
	} else {
		for i := 0; i < int(ts.NamedChildCount()); i++ {
			child := ts.NamedChild(i)
			if skippedTypes[child.Type()] {
				continue
			}
			n.children = append(n.children, c.convert(child, n, roles[spanOf(child)]))
		}
	}

	if len(n.children) == 0 {
		n.text = string(c.src[n.start:n.end])
	}
	return n
}

// convertContainer splits the children of a statement container into
// structural children (names, parameters, clauses) and statements, wrapping
// the statements in a KindStatements node.
func (c *converter) convertContainer(ts *sitter.Node, n *Node, roles map[span]Role) {
	var stmts *Node
	var visit func(parent *sitter.Node)
	visit = func(parent *sitter.Node) {
		for i := 0; i < int(parent.ChildCount()); i++ {
			child := parent.Child(i)
			typ := child.Type()
			if !child.IsNamed() {
				if typ == "end" || typ == "}" {
					n.closer = int(child.StartByte())
				}
				continue
			}
			if skippedTypes[typ] {
				continue
			}
			if bodyTypes[typ] {
				visit(child)
				continue
			}
			role, isField := roles[spanOf(child)]
			if isField || clauseTypes[typ] {
				n.children = append(n.children, c.convert(child, n, role))
				continue
			}
			if stmts == nil {
				stmts = &Node{
					kind:   KindStatements,
					typ:    "statements",
					start:  int(child.StartByte()),
					parent: n,
					closer: -1,
				}
				n.children = append(n.children, stmts)
			}
			stmt := c.convert(child, stmts, RoleNone)
			stmts.children = append(stmts.children, stmt)
			stmts.end = stmt.end
			stmts.hasError = stmts.hasError || stmt.hasError
		}
	}
	visit(ts)
}

func (c *converter) roles(ts *sitter.Node, typ, op string) map[span]Role {
	fields := fieldRoles[typ]
	out := make(map[span]Role, len(fields)+1)
	for field, role := range fields {
		if child := ts.ChildByFieldName(field); child != nil {
			out[spanOf(child)] = role
		}
	}
	if (typ == "binary" || typ == "operator_assignment") && shortCircuitOps[op] {
		if right := ts.ChildByFieldName("right"); right != nil {
			out[spanOf(right)] = RoleBranch
		}
	}
	return out
}

func (c *converter) operator(ts *sitter.Node, typ string) string {
	switch typ {
	case "binary", "unary", "operator_assignment":
		if op := ts.ChildByFieldName("operator"); op != nil {
			return op.Type()
		}
		for i := 0; i < int(ts.ChildCount()); i++ {
			if child := ts.Child(i); !child.IsNamed() {
				return child.Type()
			}
		}
	case "call":
		for i := 0; i < int(ts.ChildCount()); i++ {
			child := ts.Child(i)
			switch child.Type() {
			case ".", "&.", "::":
				return child.Type()
			}
		}
	}
	return ""
}

// isEndless reports whether a method definition has the "def m = expr" form,
// whose body is a single expression rather than a statement sequence.
func isEndless(ts *sitter.Node) bool {
	switch ts.Type() {
	case "method", "singleton_method":
	default:
		return false
	}
	for i := int(ts.ChildCount()) - 1; i >= 0; i-- {
		if ts.Child(i).Type() == "end" {
			return false
		}
	}
	return true
}
