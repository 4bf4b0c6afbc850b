package exprtree

import (
	"fmt"

	"github.com/recera/rapier/pkg/exprparse"
)

// OperationType is the operation performed by an expression node
type OperationType uint8

const (
	And OperationType = iota
	Or
	Not
	Equal
	NotEqual
	GreaterThan
	LessThan
	GreaterThanOrEqual
	LessThanOrEqual
)

var operationNames = [...]string{
	And:                "And",
	Or:                 "Or",
	Not:                "Not",
	Equal:              "Equal",
	NotEqual:           "NotEqual",
	GreaterThan:        "GreaterThan",
	LessThan:           "LessThan",
	GreaterThanOrEqual: "GreaterThanOrEqual",
	LessThanOrEqual:    "LessThanOrEqual",
}

func (o OperationType) String() string {
	if int(o) < len(operationNames) {
		return operationNames[o]
	}
	return fmt.Sprintf("OperationType(%d)", o)
}

// comparisons maps source operators onto leaf operations. Bitwise and
// arithmetic operators parse but have no entry, so they fail to lower.
var comparisons = map[string]OperationType{
	"==":  Equal,
	"===": Equal,
	"!=":  NotEqual,
	"!==": NotEqual,
	">":   GreaterThan,
	"<":   LessThan,
	">=":  GreaterThanOrEqual,
	"<=":  LessThanOrEqual,
}

// mirrored gives the operation to use when the literal is on the left
var mirrored = map[OperationType]OperationType{
	GreaterThan:        LessThan,
	LessThan:           GreaterThan,
	GreaterThanOrEqual: LessThanOrEqual,
	LessThanOrEqual:    GreaterThanOrEqual,
}

// BuildErrorMessage is the text of every BuildError
const BuildErrorMessage = "Cannot build valid expression from statement."

// BuildError reports an expression that parsed but cannot be lowered into a
// supported comparison. Reason carries detail for debugging.
type BuildError struct {
	Reason string
}

func (e *BuildError) Error() string {
	return BuildErrorMessage
}

func buildErrorf(format string, args ...any) error {
	return &BuildError{Reason: fmt.Sprintf(format, args...)}
}

// Node is an evaluable expression node. Comparison leaves carry Address and
// Test; And and Or carry Left and Right; Not carries Left only.
type Node struct {
	Operation OperationType
	Left      *Node
	Right     *Node
	Test      any
	Address   *DataAddress
}

// IsLeaf reports whether the node is a comparison against a data address
func (n *Node) IsLeaf() bool {
	return n.Address != nil
}

func (n *Node) evaluate(s Scope) bool {
	switch n.Operation {
	case And:
		return n.Left.evaluate(s) && n.Right.evaluate(s)
	case Or:
		return n.Left.evaluate(s) || n.Right.evaluate(s)
	case Not:
		return !n.Left.evaluate(s)
	case Equal:
		return equals(n.Address.Read(s), n.Test)
	case NotEqual:
		return !equals(n.Address.Read(s), n.Test)
	default:
		return compare(n.Address.Read(s), n.Test, n.Operation)
	}
}

// Tree is a lowered boolean expression
type Tree struct {
	root *Node
}

// Create parses and lowers expr
func Create(expr string) (*Tree, error) {
	ast, err := exprparse.Parse(expr)
	if err != nil {
		return nil, err
	}
	return CreateFromParsed(ast)
}

// CreateFromParsed lowers an already parsed expression
func CreateFromParsed(ast exprparse.Node) (*Tree, error) {
	root, err := lower(ast)
	if err != nil {
		return nil, err
	}
	return &Tree{root: root}, nil
}

// IsTrue evaluates the tree against a scope. Use Root to wrap plain data.
func (t *Tree) IsTrue(s Scope) bool {
	return t.root.evaluate(s)
}

// DataAddress returns the address tested by the root node, or nil when the
// root is a logical combinator
func (t *Tree) DataAddress() *DataAddress {
	return t.root.Address
}

// Root exposes the lowered node tree
func (t *Tree) Root() *Node {
	return t.root
}

func lower(ast exprparse.Node) (*Node, error) {
	switch n := ast.(type) {
	case *exprparse.LogicalExpression:
		op := And
		if n.Operator == "||" {
			op = Or
		}
		left, err := lower(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := lower(n.Right)
		if err != nil {
			return nil, err
		}
		return &Node{Operation: op, Left: left, Right: right}, nil

	case *exprparse.BinaryExpression:
		return lowerBinary(n)

	case *exprparse.UnaryExpression:
		if n.Operator != "!" {
			return nil, buildErrorf("unsupported unary operator %s", n.Operator)
		}
		inner, err := lower(n.Argument)
		if err != nil {
			return nil, err
		}
		return &Node{Operation: Not, Left: inner}, nil

	case *exprparse.Identifier, *exprparse.MemberExpression, *exprparse.ThisExpression:
		addr, err := AddressFromNode(ast)
		if err != nil {
			return nil, err
		}
		return &Node{Operation: Equal, Address: addr, Test: true}, nil
	}
	if ast == nil {
		return nil, buildErrorf("empty expression")
	}
	return nil, buildErrorf("unsupported %s", ast.Type())
}

func lowerBinary(n *exprparse.BinaryExpression) (*Node, error) {
	op, ok := comparisons[n.Operator]
	if !ok {
		return nil, buildErrorf("unsupported operator %s", n.Operator)
	}

	leftLit, leftIsLit := n.Left.(*exprparse.Literal)
	rightLit, rightIsLit := n.Right.(*exprparse.Literal)
	switch {
	case isAddressable(n.Left) && rightIsLit:
		addr, err := AddressFromNode(n.Left)
		if err != nil {
			return nil, err
		}
		return &Node{Operation: op, Address: addr, Test: rightLit.Value}, nil
	case leftIsLit && isAddressable(n.Right):
		addr, err := AddressFromNode(n.Right)
		if err != nil {
			return nil, err
		}
		if m, ok := mirrored[op]; ok {
			op = m
		}
		return &Node{Operation: op, Address: addr, Test: leftLit.Value}, nil
	}
	return nil, buildErrorf("%s needs one address and one literal", n.Operator)
}

func isAddressable(n exprparse.Node) bool {
	switch n.Type() {
	case exprparse.NodeIdentifier, exprparse.NodeMember, exprparse.NodeThis:
		return true
	}
	return false
}
