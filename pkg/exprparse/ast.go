// Package exprparse parses the small JavaScript-like expression language used
// by template conditions and data bindings into an abstract syntax tree.
package exprparse

// NodeType tags every AST node
type NodeType uint8

const (
	NodeCompound NodeType = iota
	NodeIdentifier
	NodeMember
	NodeLiteral
	NodeThis
	NodeCall
	NodeUnary
	NodeBinary
	NodeLogical
	NodeConditional
	NodeArray
)

var nodeTypeNames = [...]string{
	NodeCompound:    "Compound",
	NodeIdentifier:  "Identifier",
	NodeMember:      "MemberExpression",
	NodeLiteral:     "Literal",
	NodeThis:        "ThisExpression",
	NodeCall:        "CallExpression",
	NodeUnary:       "UnaryExpression",
	NodeBinary:      "BinaryExpression",
	NodeLogical:     "LogicalExpression",
	NodeConditional: "ConditionalExpression",
	NodeArray:       "ArrayExpression",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

// Node is implemented by every AST node
type Node interface {
	Type() NodeType
}

// Compound holds several expressions separated by ';' or ','
type Compound struct {
	Body []Node
}

// Identifier is a bare variable name
type Identifier struct {
	Name string
}

// MemberExpression is obj.prop (Computed false) or obj[prop] (Computed true)
type MemberExpression struct {
	Object   Node
	Property Node
	Computed bool
}

// Literal is a number, string, boolean or null. Value holds float64, string,
// bool or nil; Raw is the source text.
type Literal struct {
	Value any
	Raw   string
}

// ThisExpression refers to the root of the current scope
type ThisExpression struct{}

// CallExpression is callee(args...)
type CallExpression struct {
	Callee    Node
	Arguments []Node
}

// UnaryExpression is a prefix operator applied to an argument
type UnaryExpression struct {
	Operator string
	Argument Node
	Prefix   bool
}

// BinaryExpression is any binary operator except && and ||
type BinaryExpression struct {
	Operator string
	Left     Node
	Right    Node
}

// LogicalExpression is && or ||
type LogicalExpression struct {
	Operator string
	Left     Node
	Right    Node
}

// ConditionalExpression is test ? consequent : alternate
type ConditionalExpression struct {
	Test       Node
	Consequent Node
	Alternate  Node
}

// ArrayExpression is [a, b, ...]
type ArrayExpression struct {
	Elements []Node
}

func (*Compound) Type() NodeType              { return NodeCompound }
func (*Identifier) Type() NodeType            { return NodeIdentifier }
func (*MemberExpression) Type() NodeType      { return NodeMember }
func (*Literal) Type() NodeType               { return NodeLiteral }
func (*ThisExpression) Type() NodeType        { return NodeThis }
func (*CallExpression) Type() NodeType        { return NodeCall }
func (*UnaryExpression) Type() NodeType       { return NodeUnary }
func (*BinaryExpression) Type() NodeType      { return NodeBinary }
func (*LogicalExpression) Type() NodeType     { return NodeLogical }
func (*ConditionalExpression) Type() NodeType { return NodeConditional }
func (*ArrayExpression) Type() NodeType       { return NodeArray }

// Walk calls fn for node and then, depth first, for every child. Returning
// false from fn skips the children of that node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Compound:
		for _, c := range n.Body {
			Walk(c, fn)
		}
	case *MemberExpression:
		Walk(n.Object, fn)
		Walk(n.Property, fn)
	case *CallExpression:
		Walk(n.Callee, fn)
		for _, a := range n.Arguments {
			Walk(a, fn)
		}
	case *UnaryExpression:
		Walk(n.Argument, fn)
	case *BinaryExpression:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *LogicalExpression:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *ConditionalExpression:
		Walk(n.Test, fn)
		Walk(n.Consequent, fn)
		Walk(n.Alternate, fn)
	case *ArrayExpression:
		for _, e := range n.Elements {
			Walk(e, fn)
		}
	}
}
