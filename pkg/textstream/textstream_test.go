package textstream

import (
	"errors"
	"testing"

	"github.com/recera/rapier/pkg/exprparse"
	"github.com/recera/rapier/pkg/exprtree"
)

func format(t *testing.T, tmpl string, data any) string {
	t.Helper()
	out, err := New(tmpl).Format(data)
	if err != nil {
		t.Fatalf("Format(%q) failed: %v", tmpl, err)
	}
	return out
}

func TestFormat_PlainText(t *testing.T) {
	texts := []string{
		"",
		"hello world",
		"<div class=\"a\">no directives</div>",
		"single {brace} stays",
		"unterminated {{ stays",
		".a { color: red; }",
	}
	for _, text := range texts {
		ts := New(text)
		got, err := ts.Format(map[string]any{"name": "x"})
		if err != nil {
			t.Fatalf("Format(%q) failed: %v", text, err)
		}
		if got != text {
			t.Errorf("Format(%q) = %q", text, got)
		}
		found, err := ts.FoundVariable()
		if err != nil || found {
			t.Errorf("FoundVariable(%q) = %v, %v; want false", text, found, err)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data any
		want string
	}{
		{
			name: "variable",
			tmpl: "<p>{{name}}</p>",
			data: map[string]any{"name": "x"},
			want: "<p>x</p>",
		},
		{
			name: "variable is escaped",
			tmpl: "<p>{{name}}</p>",
			data: map[string]any{"name": "<b>a & b</b>"},
			want: "<p>&lt;b&gt;a&#x20;&amp;&#x20;b&lt;/b&gt;</p>",
		},
		{
			name: "whitespace inside directive",
			tmpl: "{{ name }}",
			data: map[string]any{"name": "x"},
			want: "x",
		},
		{
			name: "nested address",
			tmpl: "{{a.b[1]}}",
			data: map[string]any{"a": map[string]any{"b": []any{"no", "yes"}}},
			want: "yes",
		},
		{
			name: "missing value renders empty",
			tmpl: "[{{missing}}]",
			data: map[string]any{},
			want: "[]",
		},
		{
			name: "numbers",
			tmpl: "{{n}}",
			data: map[string]any{"n": 2.0},
			want: "2",
		},
		{
			name: "extra brackets are stripped once",
			tmpl: "{{{{name}}}}",
			data: map[string]any{"name": "x"},
			want: "{{{name}}}",
		},
		{
			name: "three brackets are literal",
			tmpl: "a{{{name}}}b",
			data: map[string]any{"name": "x"},
			want: "a{{name}}b",
		},
		{
			name: "this on a scalar",
			tmpl: "{{this}}",
			data: "a b",
			want: "a&#x20;b",
		},
		{
			name: "this on an object",
			tmpl: "{{this}}",
			data: map[string]any{"a": 1.0},
			want: "&#x7B;&quot;a&quot;:1&#x7D;",
		},
		{
			name: "this inside a loop is the enclosing root",
			tmpl: "{{for i in val}}{{this}}{{/for}}",
			data: map[string]any{"val": []any{1.0, 2.0}},
			want: "&#x7B;&quot;val&quot;:&#x5B;1,2&#x5D;&#x7D;&#x7B;&quot;val&quot;:&#x5B;1,2&#x5D;&#x7D;",
		},
		{
			name: "loop item is read through its name",
			tmpl: "{{for i in val}}[{{i}}]{{/for}}",
			data: map[string]any{"val": []any{1.0, 2.0}},
			want: "[1][2]",
		},
		{
			name: "if true",
			tmpl: "{{if val}}hi{{/if}}",
			data: map[string]any{"val": true},
			want: "hi",
		},
		{
			name: "if false",
			tmpl: "{{if val}}hi{{/if}}",
			data: map[string]any{"val": false},
			want: "",
		},
		{
			name: "if else",
			tmpl: "{{if val}}hi{{else}}bye{{/if}}",
			data: map[string]any{"val": false},
			want: "bye",
		},
		{
			name: "text around blocks",
			tmpl: "<a>{{if val}}hi{{/if}}</a>",
			data: map[string]any{"val": true},
			want: "<a>hi</a>",
		},
		{
			name: "nested if",
			tmpl: "{{if a}}A{{if b}}B{{else}}b{{/if}}{{/if}}",
			data: map[string]any{"a": true, "b": false},
			want: "Ab",
		},
		{
			name: "loop",
			tmpl: "{{for i in val}}{{i.num}}{{/for}}",
			data: map[string]any{"val": []any{
				map[string]any{"num": 1.0},
				map[string]any{"num": 2.0},
				map[string]any{"num": 3.0},
			}},
			want: "123",
		},
		{
			name: "loop reads enclosing scope",
			tmpl: "{{for i in val}}{{fromBase}}{{/for}}",
			data: map[string]any{"val": []any{1.0, 2.0}, "fromBase": "b"},
			want: "bb",
		},
		{
			name: "loop over scalars",
			tmpl: "{{for i in val}}<{{i}}>{{/for}}",
			data: map[string]any{"val": []string{"x", "y"}},
			want: "<x><y>",
		},
		{
			name: "nested loops see outer variables",
			tmpl: "{{for r in rows}}{{for c in r.cells}}{{r.id}}{{c}};{{/for}}{{/for}}",
			data: map[string]any{"rows": []any{
				map[string]any{"id": "a", "cells": []any{1.0, 2.0}},
				map[string]any{"id": "b", "cells": []any{3.0}},
			}},
			want: "a1;a2;b3;",
		},
		{
			name: "condition inside loop",
			tmpl: "{{for i in val}}{{if i.on}}+{{else}}-{{/if}}{{/for}}",
			data: map[string]any{"val": []any{
				map[string]any{"on": true},
				map[string]any{"on": false},
			}},
			want: "+-",
		},
		{
			name: "loop over missing value",
			tmpl: "a{{for i in nothing}}x{{/for}}b",
			data: map[string]any{},
			want: "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := format(t, tt.tmpl, tt.data); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat_ElseIfChain(t *testing.T) {
	tmpl := New("{{if val === 1}}a{{else if val === 2}}b{{else}}c{{/if}}")
	for val, want := range map[float64]string{1: "a", 2: "b", 3: "c"} {
		got, err := tmpl.Format(map[string]any{"val": val})
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("val=%v: got %q, want %q", val, got, want)
		}
	}

	noElse := New("{{if val == 1}}a{{else if val == 2}}b{{/if}}")
	got, err := noElse.Format(map[string]any{"val": 3.0})
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("no matching branch should render nothing, got %q", got)
	}
}

func TestFormat_Options(t *testing.T) {
	raw := NewWithOptions("{{v}}", Options{Escape: false})
	got, err := raw.Format(map[string]any{"v": "<b>"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<b>" {
		t.Errorf("unescaped output = %q", got)
	}

	angle := NewWithOptions("<<v>> {{v}}", Options{Open: '<', Close: '>', Escape: true})
	got, err = angle.Format(map[string]any{"v": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "x {{v}}" {
		t.Errorf("custom delimiters output = %q", got)
	}
}

func TestFormat_Scope(t *testing.T) {
	root := exprtree.Root(map[string]any{"base": "B"})
	frame := exprtree.NewFrame("item", "I", root)
	got, err := New("{{item}}{{base}}").FormatScope(frame)
	if err != nil {
		t.Fatal(err)
	}
	if got != "IB" {
		t.Errorf("FormatScope() = %q", got)
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		tmpl string
		want error
	}{
		{"{{if a}}x", ErrUnclosedBlock},
		{"{{for i in a}}x", ErrUnclosedBlock},
		{"{{/if}}", ErrUnexpected},
		{"{{else}}", ErrUnexpected},
		{"{{if a}}{{else}}{{else}}{{/if}}", ErrUnexpected},
		{"{{for i in a}}{{/if}}", ErrUnexpected},
		{"{{if a}}{{/for}}", ErrUnexpected},
		{"{{for i of a}}{{/for}}", ErrBadLoop},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			_, err := New(tt.tmpl).Format(nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var serr *Error
			if !errors.As(err, &serr) {
				t.Errorf("error %T is not a *Error", err)
			}
		})
	}

	_, err := New("{{if a | 1}}x{{/if}}").Format(nil)
	var berr *exprtree.BuildError
	if !errors.As(err, &berr) {
		t.Errorf("bitwise condition error = %v, want *exprtree.BuildError", err)
	}

	_, err = New("{{a[}}").Format(nil)
	var perr *exprparse.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("malformed variable error = %v, want *exprparse.ParseError", err)
	}
}

func TestTokenize_Memoized(t *testing.T) {
	ts := New("{{if a}}")
	first := ts.Tokenize()
	if first == nil {
		t.Fatal("expected an error")
	}
	if second := ts.Tokenize(); second != first {
		t.Error("tokenize result should be memoized")
	}

	ok := New("{{a}}")
	if err := ok.Tokenize(); err != nil {
		t.Fatal(err)
	}
	nodes := ok.nodes
	if _, err := ok.Format(map[string]any{"a": 1.0}); err != nil {
		t.Fatal(err)
	}
	if &ok.nodes[0] != &nodes[0] {
		t.Error("Format should reuse the tokenized nodes")
	}
}

func TestVisitVariables(t *testing.T) {
	ts := New("{{a}}{{if b.c == 1}}{{d}}{{else}}{{e}}{{/if}}{{for i in list}}{{i.x}}{{/for}}")
	var got []string
	if err := ts.VisitVariables(func(addr *exprtree.DataAddress) {
		got = append(got, addr.AddressString())
	}); err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b.c", "d", "e", "list", "i.x"}
	if len(got) != len(want) {
		t.Fatalf("visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	found, err := ts.FoundVariable()
	if err != nil || !found {
		t.Errorf("FoundVariable() = %v, %v", found, err)
	}
}

func TestEscape(t *testing.T) {
	got := Escape(`<a href="x">'&'</a>`)
	want := "&lt;a&#x20;href&#x3D;&quot;x&quot;&gt;&#x27;&amp;&#x27;&lt;/a&gt;"
	if got != want {
		t.Errorf("Escape() = %q, want %q", got, want)
	}
	if Escape("plain-text_123") != "plain-text_123" {
		t.Error("alphanumerics should pass through")
	}
}
