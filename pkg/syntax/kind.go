package syntax

// Kind is the closed set of node kinds the refactoring engine understands.
// Grammar node types without a dedicated kind map to KindOther.
type Kind int

const (
	KindOther Kind = iota
	KindError

	// Statement containers.
	KindProgram
	KindStatements
	KindMethod
	KindSingletonMethod
	KindClass
	KindModule
	KindBlock
	KindThen
	KindElse
	KindElsif
	KindDo
	KindBegin
	KindRescue
	KindEnsure

	// Control flow.
	KindIf
	KindUnless
	KindModifierIf
	KindWhile
	KindModifierWhile
	KindFor
	KindCase
	KindWhen
	KindJump

	// Expressions.
	KindInteger
	KindFloat
	KindString
	KindSymbol
	KindRegex
	KindTrue
	KindFalse
	KindNil
	KindSelf
	KindIdentifier
	KindConstant
	KindVariable
	KindArray
	KindHash
	KindBinary
	KindUnary
	KindCall
	KindParenthesized
	KindConditional
	KindRange
	KindIndex
	KindScopeResolution
	KindLambda

	// Parts of other constructs.
	KindStringContent
	KindInterpolation
	KindPair
	KindArguments
	KindParameters
	KindAssignment
	KindOperatorAssignment
	KindName
)

var kindNames = map[Kind]string{
	KindOther:              "Other",
	KindError:              "Error",
	KindProgram:            "Program",
	KindStatements:         "Statements",
	KindMethod:             "Method",
	KindSingletonMethod:    "SingletonMethod",
	KindClass:              "Class",
	KindModule:             "Module",
	KindBlock:              "Block",
	KindThen:               "Then",
	KindElse:               "Else",
	KindElsif:              "Elsif",
	KindDo:                 "Do",
	KindBegin:              "Begin",
	KindRescue:             "Rescue",
	KindEnsure:             "Ensure",
	KindIf:                 "If",
	KindUnless:             "Unless",
	KindModifierIf:         "ModifierIf",
	KindWhile:              "While",
	KindModifierWhile:      "ModifierWhile",
	KindFor:                "For",
	KindCase:               "Case",
	KindWhen:               "When",
	KindJump:               "Jump",
	KindInteger:            "Integer",
	KindFloat:              "Float",
	KindString:             "String",
	KindSymbol:             "Symbol",
	KindRegex:              "Regex",
	KindTrue:               "True",
	KindFalse:              "False",
	KindNil:                "Nil",
	KindSelf:               "Self",
	KindIdentifier:         "Identifier",
	KindConstant:           "Constant",
	KindVariable:           "Variable",
	KindArray:              "Array",
	KindHash:               "Hash",
	KindBinary:             "Binary",
	KindUnary:              "Unary",
	KindCall:               "Call",
	KindParenthesized:      "Parenthesized",
	KindConditional:        "Conditional",
	KindRange:              "Range",
	KindIndex:              "Index",
	KindScopeResolution:    "ScopeResolution",
	KindLambda:             "Lambda",
	KindStringContent:      "StringContent",
	KindInterpolation:      "Interpolation",
	KindPair:               "Pair",
	KindArguments:          "Arguments",
	KindParameters:         "Parameters",
	KindAssignment:         "Assignment",
	KindOperatorAssignment: "OperatorAssignment",
	KindName:               "Name",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsExpression reports whether a node of this kind produces a value that can
// be bound to a local variable.
func (k Kind) IsExpression() bool {
	switch k {
	case KindInteger, KindFloat, KindString, KindSymbol, KindRegex,
		KindTrue, KindFalse, KindNil, KindSelf,
		KindIdentifier, KindConstant, KindVariable,
		KindArray, KindHash, KindBinary, KindUnary, KindCall,
		KindParenthesized, KindConditional, KindRange, KindIndex,
		KindScopeResolution, KindLambda:
		return true
	}
	return false
}

// IsScopeOwner reports whether the kind opens a new lexical region whose
// statements are evaluated separately from the enclosing statement.
func (k Kind) IsScopeOwner() bool {
	switch k {
	case KindProgram, KindMethod, KindSingletonMethod, KindClass, KindModule, KindBlock:
		return true
	}
	return false
}

// IsScopeGate reports whether local variables of the enclosing code are
// invisible inside nodes of this kind.
func (k Kind) IsScopeGate() bool {
	switch k {
	case KindProgram, KindMethod, KindSingletonMethod, KindClass, KindModule:
		return true
	}
	return false
}

// Role describes the position a node occupies within its parent.
type Role int

const (
	RoleNone Role = iota
	RoleName
	RoleParameters
	RoleAssignTarget
	RoleCondition
	RoleCallee
	RoleReceiver
	RoleKey
	RoleBody
	RoleBranch
)

func (r Role) String() string {
	switch r {
	case RoleName:
		return "name"
	case RoleParameters:
		return "parameters"
	case RoleAssignTarget:
		return "target"
	case RoleCondition:
		return "condition"
	case RoleCallee:
		return "callee"
	case RoleReceiver:
		return "receiver"
	case RoleKey:
		return "key"
	case RoleBody:
		return "body"
	case RoleBranch:
		return "branch"
	default:
		return ""
	}
}
