package exprparse

import (
	"fmt"
	"strconv"
)

// ParseError describes malformed input. Index is the character offset where
// parsing stopped.
type ParseError struct {
	Description string
	Index       int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at character %d", e.Description, e.Index)
}

var unaryOps = map[string]bool{
	"-": true,
	"!": true,
	"~": true,
	"+": true,
}

var binaryOps = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6, "===": 6, "!==": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8, ">>>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var literals = map[string]any{
	"true":  true,
	"false": false,
	"null":  nil,
}

const (
	maxUnaryLen  = 1
	maxBinaryLen = 3
	thisKeyword  = "this"
)

// BinaryPrecedence returns the precedence of a binary operator, or 0 if op is
// not a binary operator.
func BinaryPrecedence(op string) int {
	return binaryOps[op]
}

// IsUnaryOperator reports whether op is recognised as a prefix operator
func IsUnaryOperator(op string) bool {
	return unaryOps[op]
}

// parser is a recursive descent parser with a precedence-climbing loop for
// binary operators
type parser struct {
	expr []rune
	pos  int
}

// Parse parses expr into an AST. A single expression is returned as is,
// several expressions separated by ';' or ',' come back as a *Compound.
func Parse(expr string) (Node, error) {
	p := &parser{expr: []rune(expr)}
	return p.parseExpressions()
}

// MustParse is like Parse but panics on error
func MustParse(expr string) Node {
	node, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return node
}

func (p *parser) parseExpressions() (Node, error) {
	var nodes []Node
	for p.pos < len(p.expr) {
		ch := p.expr[p.pos]
		if ch == ';' || ch == ',' {
			p.pos++
			continue
		}
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, node)
		} else if p.pos < len(p.expr) {
			return nil, p.errorf(`Unexpected "%c"`, p.expr[p.pos])
		}
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &Compound{Body: nodes}, nil
}

// parseExpression parses a binary expression optionally followed by a ternary
func (p *parser) parseExpression() (Node, error) {
	test, err := p.parseBinaryExpression()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if test == nil || p.current() != '?' {
		return test, nil
	}

	p.pos++
	consequent, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if consequent == nil {
		return nil, p.errorf("Expected expression")
	}
	p.skipSpaces()
	if p.current() != ':' {
		return nil, p.errorf("Expected :")
	}
	p.pos++
	alternate, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if alternate == nil {
		return nil, p.errorf("Expected expression")
	}
	return &ConditionalExpression{Test: test, Consequent: consequent, Alternate: alternate}, nil
}

// parseBinaryOp consumes the longest binary operator at the current position
func (p *parser) parseBinaryOp() string {
	p.skipSpaces()
	for n := maxBinaryLen; n > 0; n-- {
		if p.pos+n > len(p.expr) {
			continue
		}
		candidate := string(p.expr[p.pos : p.pos+n])
		if _, ok := binaryOps[candidate]; ok {
			p.pos += n
			return candidate
		}
	}
	return ""
}

type binaryOpInfo struct {
	op   string
	prec int
}

// parseBinaryExpression parses operands and operators into a tree that
// respects the precedence table. Operands and operators are kept on a stack
// and reduced whenever an operator of lower or equal precedence arrives.
func (p *parser) parseBinaryExpression() (Node, error) {
	left, err := p.parseToken()
	if err != nil || left == nil {
		return left, err
	}
	op := p.parseBinaryOp()
	if op == "" {
		return left, nil
	}
	right, err := p.parseToken()
	if err != nil {
		return nil, err
	}
	if right == nil {
		return nil, p.errorf("Expected expression after %s", op)
	}

	operands := []Node{left, right}
	operators := []binaryOpInfo{{op: op, prec: binaryOps[op]}}

	for {
		op = p.parseBinaryOp()
		if op == "" {
			break
		}
		prec := binaryOps[op]
		for len(operators) > 0 && prec <= operators[len(operators)-1].prec {
			r := operands[len(operands)-1]
			l := operands[len(operands)-2]
			top := operators[len(operators)-1]
			operands = operands[:len(operands)-2]
			operators = operators[:len(operators)-1]
			operands = append(operands, createBinary(top.op, l, r))
		}
		node, err := p.parseToken()
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, p.errorf("Expected expression after %s", op)
		}
		operators = append(operators, binaryOpInfo{op: op, prec: prec})
		operands = append(operands, node)
	}

	node := operands[len(operands)-1]
	for i := len(operators) - 1; i >= 0; i-- {
		node = createBinary(operators[i].op, operands[i], node)
	}
	return node, nil
}

func createBinary(op string, left, right Node) Node {
	if op == "||" || op == "&&" {
		return &LogicalExpression{Operator: op, Left: left, Right: right}
	}
	return &BinaryExpression{Operator: op, Left: left, Right: right}
}

// parseToken parses a single operand: a literal, array, unary expression or
// variable. It returns a nil node when nothing at the current position starts
// an operand.
func (p *parser) parseToken() (Node, error) {
	p.skipSpaces()
	if p.pos >= len(p.expr) {
		return nil, nil
	}
	ch := p.expr[p.pos]

	switch {
	case isDecimalDigit(ch) || ch == '.':
		return p.parseNumericLiteral()
	case ch == '\'' || ch == '"':
		return p.parseStringLiteral()
	case ch == '[':
		return p.parseArray()
	}

	for n := maxUnaryLen; n > 0; n-- {
		if p.pos+n > len(p.expr) {
			continue
		}
		op := string(p.expr[p.pos : p.pos+n])
		if unaryOps[op] {
			p.pos += n
			arg, err := p.parseToken()
			if err != nil {
				return nil, err
			}
			if arg == nil {
				return nil, p.errorf("Expected expression after %s", op)
			}
			return &UnaryExpression{Operator: op, Argument: arg, Prefix: true}, nil
		}
	}

	if isIdentifierStart(ch) || ch == '(' {
		return p.parseVariable()
	}
	return nil, nil
}

func (p *parser) parseNumericLiteral() (Node, error) {
	start := p.pos
	for p.pos < len(p.expr) && isDecimalDigit(p.expr[p.pos]) {
		p.pos++
	}
	if p.current() == '.' {
		p.pos++
		for p.pos < len(p.expr) && isDecimalDigit(p.expr[p.pos]) {
			p.pos++
		}
	}
	if ch := p.current(); ch == 'e' || ch == 'E' {
		p.pos++
		if ch := p.current(); ch == '+' || ch == '-' {
			p.pos++
		}
		digits := p.pos
		for p.pos < len(p.expr) && isDecimalDigit(p.expr[p.pos]) {
			p.pos++
		}
		if p.pos == digits {
			return nil, p.errorf("Expected exponent (%s%s)", string(p.expr[start:p.pos]), p.currentString())
		}
	}

	raw := string(p.expr[start:p.pos])
	if p.pos < len(p.expr) {
		ch := p.expr[p.pos]
		if isIdentifierStart(ch) {
			return nil, p.errorf("Variable names cannot start with a number (%s%c)", raw, ch)
		}
		if ch == '.' {
			return nil, p.errorf("Unexpected period")
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &ParseError{Description: fmt.Sprintf("Invalid number %q", raw), Index: start}
	}
	return &Literal{Value: value, Raw: raw}, nil
}

func (p *parser) parseStringLiteral() (Node, error) {
	quote := p.expr[p.pos]
	p.pos++
	var str []rune
	closed := false

	for p.pos < len(p.expr) {
		ch := p.expr[p.pos]
		p.pos++
		if ch == quote {
			closed = true
			break
		}
		if ch != '\\' {
			str = append(str, ch)
			continue
		}
		if p.pos >= len(p.expr) {
			break
		}
		ch = p.expr[p.pos]
		p.pos++
		switch ch {
		case 'n':
			str = append(str, '\n')
		case 'r':
			str = append(str, '\r')
		case 't':
			str = append(str, '\t')
		case 'b':
			str = append(str, '\b')
		case 'f':
			str = append(str, '\f')
		case 'v':
			str = append(str, '\v')
		default:
			str = append(str, ch)
		}
	}

	if !closed {
		return nil, p.errorf(`Unclosed quote after "%s"`, string(str))
	}
	return &Literal{Value: string(str), Raw: string(quote) + string(str) + string(quote)}, nil
}

func (p *parser) parseIdentifier() (Node, error) {
	start := p.pos
	if p.pos >= len(p.expr) || !isIdentifierStart(p.expr[p.pos]) {
		if p.pos >= len(p.expr) {
			return nil, p.errorf("Unexpected end of expression")
		}
		return nil, p.errorf("Unexpected %c", p.expr[p.pos])
	}
	p.pos++
	for p.pos < len(p.expr) && isIdentifierPart(p.expr[p.pos]) {
		p.pos++
	}

	name := string(p.expr[start:p.pos])
	if value, ok := literals[name]; ok {
		return &Literal{Value: value, Raw: name}, nil
	}
	if name == thisKeyword {
		return &ThisExpression{}, nil
	}
	return &Identifier{Name: name}, nil
}

// parseArguments parses a comma separated list up to the termination
// character, used by calls and array literals
func (p *parser) parseArguments(termination rune) ([]Node, error) {
	var args []Node
	closed := false
	for p.pos < len(p.expr) {
		p.skipSpaces()
		ch := p.current()
		if ch == termination {
			closed = true
			p.pos++
			break
		}
		if ch == ',' {
			p.pos++
			continue
		}
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if node == nil || node.Type() == NodeCompound {
			return nil, p.errorf("Expected comma")
		}
		args = append(args, node)
	}
	if !closed {
		return nil, p.errorf("Expected %c", termination)
	}
	return args, nil
}

// parseVariable parses an identifier or group followed by any number of
// member accesses and calls
func (p *parser) parseVariable() (Node, error) {
	var node Node
	var err error
	if p.current() == '(' {
		node, err = p.parseGroup()
	} else {
		node, err = p.parseIdentifier()
	}
	if err != nil {
		return nil, err
	}

	p.skipSpaces()
	for ch := p.current(); ch == '.' || ch == '[' || ch == '('; ch = p.current() {
		p.pos++
		switch ch {
		case '.':
			p.skipSpaces()
			prop, err := p.parseIdentifier()
			if err != nil {
				return nil, err
			}
			node = &MemberExpression{Object: node, Property: prop}
		case '[':
			prop, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if prop == nil {
				return nil, p.errorf("Expected expression")
			}
			node = &MemberExpression{Object: node, Property: prop, Computed: true}
			p.skipSpaces()
			if p.current() != ']' {
				return nil, p.errorf("Unclosed [")
			}
			p.pos++
		case '(':
			args, err := p.parseArguments(')')
			if err != nil {
				return nil, err
			}
			node = &CallExpression{Callee: node, Arguments: args}
		}
		p.skipSpaces()
	}
	return node, nil
}

func (p *parser) parseGroup() (Node, error) {
	p.pos++
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.current() != ')' {
		return nil, p.errorf("Unclosed (")
	}
	p.pos++
	return node, nil
}

func (p *parser) parseArray() (Node, error) {
	p.pos++
	elements, err := p.parseArguments(']')
	if err != nil {
		return nil, err
	}
	return &ArrayExpression{Elements: elements}, nil
}

// Helper methods

func (p *parser) current() rune {
	if p.pos < len(p.expr) {
		return p.expr[p.pos]
	}
	return 0
}

func (p *parser) currentString() string {
	if p.pos < len(p.expr) {
		return string(p.expr[p.pos])
	}
	return ""
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.expr) {
		switch p.expr[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Description: fmt.Sprintf(format, args...), Index: p.pos}
}

func isDecimalDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// isIdentifierStart follows JavaScript rules loosely: ASCII letters, '$', '_'
// and any non-ASCII character that is not itself an operator.
func isIdentifierStart(ch rune) bool {
	return ch == '$' || ch == '_' ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 128 && binaryOps[string(ch)] == 0)
}

func isIdentifierPart(ch rune) bool {
	return isIdentifierStart(ch) || isDecimalDigit(ch)
}
