package exprparse

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ident(name string) *Identifier { return &Identifier{Name: name} }

func num(v float64, raw string) *Literal { return &Literal{Value: v, Raw: raw} }

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Node
	}{
		{
			name: "identifier",
			expr: "val",
			want: ident("val"),
		},
		{
			name: "this",
			expr: "this",
			want: &ThisExpression{},
		},
		{
			name: "literals",
			expr: "true",
			want: &Literal{Value: true, Raw: "true"},
		},
		{
			name: "null literal",
			expr: "null",
			want: &Literal{Value: nil, Raw: "null"},
		},
		{
			name: "member access",
			expr: "a.b[3]",
			want: &MemberExpression{
				Object:   &MemberExpression{Object: ident("a"), Property: ident("b")},
				Property: num(3, "3"),
				Computed: true,
			},
		},
		{
			name: "equality",
			expr: `val == "1"`,
			want: &BinaryExpression{Operator: "==", Left: ident("val"), Right: &Literal{Value: "1", Raw: `"1"`}},
		},
		{
			name: "strict equality picks longest operator",
			expr: "val !== 2",
			want: &BinaryExpression{Operator: "!==", Left: ident("val"), Right: num(2, "2")},
		},
		{
			name: "precedence of && over ||",
			expr: "a || b && c",
			want: &LogicalExpression{
				Operator: "||",
				Left:     ident("a"),
				Right:    &LogicalExpression{Operator: "&&", Left: ident("b"), Right: ident("c")},
			},
		},
		{
			name: "left associativity",
			expr: "a && b && c",
			want: &LogicalExpression{
				Operator: "&&",
				Left:     &LogicalExpression{Operator: "&&", Left: ident("a"), Right: ident("b")},
				Right:    ident("c"),
			},
		},
		{
			name: "comparison binds tighter than logical",
			expr: "a > 1 && b <= 2",
			want: &LogicalExpression{
				Operator: "&&",
				Left:     &BinaryExpression{Operator: ">", Left: ident("a"), Right: num(1, "1")},
				Right:    &BinaryExpression{Operator: "<=", Left: ident("b"), Right: num(2, "2")},
			},
		},
		{
			name: "arithmetic precedence",
			expr: "1 + 2 * 3",
			want: &BinaryExpression{
				Operator: "+",
				Left:     num(1, "1"),
				Right:    &BinaryExpression{Operator: "*", Left: num(2, "2"), Right: num(3, "3")},
			},
		},
		{
			name: "groups",
			expr: "(a || b) && c",
			want: &LogicalExpression{
				Operator: "&&",
				Left:     &LogicalExpression{Operator: "||", Left: ident("a"), Right: ident("b")},
				Right:    ident("c"),
			},
		},
		{
			name: "unary",
			expr: "!val",
			want: &UnaryExpression{Operator: "!", Argument: ident("val"), Prefix: true},
		},
		{
			name: "negative number is a unary expression",
			expr: "-1",
			want: &UnaryExpression{Operator: "-", Argument: num(1, "1"), Prefix: true},
		},
		{
			name: "fractions and exponents",
			expr: "1.5e+2",
			want: num(150, "1.5e+2"),
		},
		{
			name: "string escapes",
			expr: `'a\nb\'c\q'`,
			want: &Literal{Value: "a\nb'cq", Raw: "'a\nb'cq'"},
		},
		{
			name: "ternary",
			expr: "a ? 1 : 2",
			want: &ConditionalExpression{Test: ident("a"), Consequent: num(1, "1"), Alternate: num(2, "2")},
		},
		{
			name: "array",
			expr: "[1, b]",
			want: &ArrayExpression{Elements: []Node{num(1, "1"), ident("b")}},
		},
		{
			name: "call",
			expr: "fn(a, 2)",
			want: &CallExpression{Callee: ident("fn"), Arguments: []Node{ident("a"), num(2, "2")}},
		},
		{
			name: "compound",
			expr: "a; b",
			want: &Compound{Body: []Node{ident("a"), ident("b")}},
		},
		{
			name: "whitespace everywhere",
			expr: " \ta\r\n.\nb ",
			want: &MemberExpression{Object: ident("a"), Property: ident("b")},
		},
		{
			name: "non-ascii identifiers",
			expr: "größe",
			want: ident("größe"),
		},
		{
			name: "bitwise operators are parsed",
			expr: "a | 1",
			want: &BinaryExpression{Operator: "|", Left: ident("a"), Right: num(1, "1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.expr, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) diff (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		expr      string
		wantMsg   string
		wantIndex int
	}{
		{expr: `"abc`, wantMsg: "Unclosed quote", wantIndex: 4},
		{expr: "a[1", wantMsg: "Unclosed [", wantIndex: 3},
		{expr: "(a", wantMsg: "Unclosed (", wantIndex: 2},
		{expr: "1a", wantMsg: "Variable names cannot start with a number (1a)", wantIndex: 1},
		{expr: "1.2.3", wantMsg: "Unexpected period", wantIndex: 3},
		{expr: "1e", wantMsg: "Expected exponent", wantIndex: 2},
		{expr: "a ==", wantMsg: "Expected expression after ==", wantIndex: 4},
		{expr: "a ? b", wantMsg: "Expected :", wantIndex: 5},
		{expr: "#", wantMsg: `Unexpected "#"`, wantIndex: 0},
		{expr: "fn(a;b)", wantMsg: "Expected comma", wantIndex: 4},
		{expr: "a.", wantMsg: "Unexpected end of expression", wantIndex: 2},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.expr)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if !strings.Contains(perr.Description, tt.wantMsg) {
				t.Errorf("description = %q, want it to contain %q", perr.Description, tt.wantMsg)
			}
			if perr.Index != tt.wantIndex {
				t.Errorf("index = %d, want %d", perr.Index, tt.wantIndex)
			}
			if !strings.HasSuffix(err.Error(), "at character "+strconv.Itoa(tt.wantIndex)) {
				t.Errorf("Error() = %q, missing character offset", err.Error())
			}
		})
	}
}

func TestWalk(t *testing.T) {
	node := MustParse("a && (b.c == 1 || !d)")
	var names []string
	Walk(node, func(n Node) bool {
		if id, ok := n.(*Identifier); ok {
			names = append(names, id.Name)
		}
		return true
	})
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, names); diff != "" {
		t.Errorf("identifiers diff (-want +got):\n%s", diff)
	}
}

func TestBinaryPrecedence(t *testing.T) {
	if BinaryPrecedence("||") != 1 || BinaryPrecedence("*") != 10 {
		t.Error("unexpected precedence table")
	}
	if BinaryPrecedence("!") != 0 {
		t.Error("! must not be a binary operator")
	}
	if !IsUnaryOperator("~") {
		t.Error("~ should be recognised as unary")
	}
}
