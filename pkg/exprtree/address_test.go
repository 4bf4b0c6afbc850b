package exprtree

import (
	"testing"
)

func TestDataAddress_Strings(t *testing.T) {
	addr := NewDataAddress([]AddressNode{
		{Key: "test", Kind: AddressObject},
		{Key: "nested", Kind: AddressObject},
		{Key: 5, Kind: AddressArray},
		{Key: "address", Kind: AddressObject},
	})
	if got := addr.AddressString(); got != "test.nested[5].address" {
		t.Errorf("AddressString() = %q", got)
	}
	if got := addr.AddressStringNoIndices(); got != "test.nested[].address" {
		t.Errorf("AddressStringNoIndices() = %q", got)
	}
}

func TestNewDataAddress_StripsThis(t *testing.T) {
	addr := NewDataAddress([]AddressNode{
		{Key: "this", Kind: AddressObject},
		{Key: "a", Kind: AddressObject},
	})
	if got := addr.AddressString(); got != "a" {
		t.Errorf("AddressString() = %q, want a", got)
	}

	addr, err := ParseAddress("this")
	if err != nil {
		t.Fatal(err)
	}
	if !addr.IsEmpty() {
		t.Error("this should produce an empty address")
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"a", "a"},
		{" a.b ", "a.b"},
		{"a[0].b", "a[0].b"},
		{`a["key"]`, "a.key"},
		{"this.a[2]", "a[2]"},
	}
	for _, tt := range tests {
		addr, err := ParseAddress(tt.expr)
		if err != nil {
			t.Errorf("ParseAddress(%q) failed: %v", tt.expr, err)
			continue
		}
		if got := addr.AddressString(); got != tt.want {
			t.Errorf("ParseAddress(%q) = %q, want %q", tt.expr, got, tt.want)
		}
	}

	for _, bad := range []string{"a == 1", "a[b]", "1", "a[-1]"} {
		if _, err := ParseAddress(bad); err == nil {
			t.Errorf("ParseAddress(%q) should fail", bad)
		}
	}
}

type person struct {
	Name    string
	Email   string `json:"email_address"`
	Friends []string
}

func TestDataAddress_Read(t *testing.T) {
	data := map[string]any{
		"list": []any{map[string]any{"v": "first"}, nil},
		"p":    &person{Name: "ann", Email: "a@b", Friends: []string{"x", "y"}},
		"m":    map[string]int{"n": 3},
	}

	tests := []struct {
		expr string
		want any
	}{
		{"list[0].v", "first"},
		{"list[1].v", nil},
		{"list[9]", nil},
		{"list.length", 2},
		{"missing.deep.path", nil},
		{"p.Name", "ann"},
		{"p.email_address", "a@b"},
		{"p.Friends[1]", "y"},
		{"m.n", 3},
	}
	for _, tt := range tests {
		addr, err := ParseAddress(tt.expr)
		if err != nil {
			t.Fatal(err)
		}
		if got := addr.Read(Root(data)); got != tt.want {
			t.Errorf("read %q = %#v, want %#v", tt.expr, got, tt.want)
		}
	}
}

func TestFrame_Lookup(t *testing.T) {
	root := Root(map[string]any{"fromBase": "base", "i": "shadowed"})
	outer := NewFrame("row", map[string]any{"id": 7.0}, root)
	inner := NewFrame("i", map[string]any{"num": 1.0}, outer)

	read := func(expr string) any {
		addr, err := ParseAddress(expr)
		if err != nil {
			t.Fatal(err)
		}
		return addr.Read(inner)
	}

	if got := read("i.num"); got != 1.0 {
		t.Errorf("i.num = %v", got)
	}
	if got := read("row.id"); got != 7.0 {
		t.Errorf("row.id = %v", got)
	}
	if got := read("fromBase"); got != "base" {
		t.Errorf("fromBase = %v", got)
	}
	if got, ok := read("this").(map[string]any); !ok || got["fromBase"] != "base" {
		t.Errorf("this = %v, want root data", got)
	}
}

func TestToString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{1.0, "1"},
		{1.5, "1.5"},
		{int64(42), "42"},
		{true, "true"},
		{[]any{1.0, "a"}, "1,a"},
		{map[string]any{}, "[object Object]"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		if got := ToString(tt.in); got != tt.want {
			t.Errorf("ToString(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
