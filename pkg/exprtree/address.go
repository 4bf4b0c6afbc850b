// Package exprtree lowers parsed expressions into boolean trees that are
// evaluated against data addresses within a scope.
package exprtree

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/recera/rapier/pkg/exprparse"
)

// AddressNodeType tells whether a segment indexes an object key or an array
type AddressNodeType uint8

const (
	AddressObject AddressNodeType = iota
	AddressArray
)

// AddressNode is a single path segment. Key is a string for AddressObject and
// an int for AddressArray.
type AddressNode struct {
	Key  any
	Kind AddressNodeType
}

// DataAddress is an immutable path into a data value such as foo.bar[3]
type DataAddress struct {
	nodes []AddressNode
}

// NewDataAddress builds an address from segments. A leading object segment
// named "this" is dropped since it refers to the current scope itself.
func NewDataAddress(nodes []AddressNode) *DataAddress {
	if len(nodes) > 0 && nodes[0].Kind == AddressObject && nodes[0].Key == "this" {
		nodes = nodes[1:]
	}
	copied := make([]AddressNode, len(nodes))
	copy(copied, nodes)
	return &DataAddress{nodes: copied}
}

// ParseAddress parses an identifier, member or this expression into an
// address
func ParseAddress(expr string) (*DataAddress, error) {
	ast, err := exprparse.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, err
	}
	return AddressFromNode(ast)
}

// AddressFromNode converts an Identifier, MemberExpression or ThisExpression
// into an address
func AddressFromNode(node exprparse.Node) (*DataAddress, error) {
	nodes, err := appendAddressNodes(nil, node)
	if err != nil {
		return nil, err
	}
	return NewDataAddress(nodes), nil
}

func appendAddressNodes(nodes []AddressNode, node exprparse.Node) ([]AddressNode, error) {
	switch n := node.(type) {
	case *exprparse.ThisExpression:
		return nodes, nil
	case *exprparse.Identifier:
		return append(nodes, AddressNode{Key: n.Name, Kind: AddressObject}), nil
	case *exprparse.MemberExpression:
		nodes, err := appendAddressNodes(nodes, n.Object)
		if err != nil {
			return nil, err
		}
		if !n.Computed {
			switch prop := n.Property.(type) {
			case *exprparse.Identifier:
				return append(nodes, AddressNode{Key: prop.Name, Kind: AddressObject}), nil
			case *exprparse.Literal:
				return append(nodes, AddressNode{Key: prop.Raw, Kind: AddressObject}), nil
			case *exprparse.ThisExpression:
				return append(nodes, AddressNode{Key: "this", Kind: AddressObject}), nil
			}
			return nil, buildErrorf("unsupported property %s", n.Property.Type())
		}
		lit, ok := n.Property.(*exprparse.Literal)
		if !ok {
			return nil, buildErrorf("computed property must be a literal, got %s", n.Property.Type())
		}
		switch v := lit.Value.(type) {
		case float64:
			if v < 0 || v != float64(int(v)) {
				return nil, buildErrorf("invalid array index %s", lit.Raw)
			}
			return append(nodes, AddressNode{Key: int(v), Kind: AddressArray}), nil
		case string:
			return append(nodes, AddressNode{Key: v, Kind: AddressObject}), nil
		}
		return nil, buildErrorf("invalid property %s", lit.Raw)
	}
	if node == nil {
		return nil, buildErrorf("empty address")
	}
	return nil, buildErrorf("%s is not addressable", node.Type())
}

// Segments returns a copy of the address segments
func (a *DataAddress) Segments() []AddressNode {
	out := make([]AddressNode, len(a.nodes))
	copy(out, a.nodes)
	return out
}

// IsEmpty reports whether the address refers to the scope itself
func (a *DataAddress) IsEmpty() bool {
	return len(a.nodes) == 0
}

// RootName returns the key of the first segment when it is an object key
func (a *DataAddress) RootName() (string, bool) {
	if len(a.nodes) == 0 || a.nodes[0].Kind != AddressObject {
		return "", false
	}
	name, ok := a.nodes[0].Key.(string)
	return name, ok
}

// Read resolves the address within a scope
func (a *DataAddress) Read(s Scope) any {
	if s == nil {
		return nil
	}
	return s.Lookup(a)
}

// ReadValue walks every segment into v
func (a *DataAddress) ReadValue(v any) any {
	return readNodes(v, a.nodes)
}

// ReadScoped walks every segment except the first into v. It is used when
// the first segment named a loop variable whose value is v.
func (a *DataAddress) ReadScoped(v any) any {
	if len(a.nodes) == 0 {
		return v
	}
	return readNodes(v, a.nodes[1:])
}

// AddressString formats the address as test.nested[5].address
func (a *DataAddress) AddressString() string {
	return a.format(true)
}

// AddressStringNoIndices formats the address as test.nested[].address
func (a *DataAddress) AddressStringNoIndices() string {
	return a.format(false)
}

func (a *DataAddress) String() string {
	return a.AddressString()
}

func (a *DataAddress) format(indices bool) string {
	var sb strings.Builder
	for i, n := range a.nodes {
		switch n.Kind {
		case AddressArray:
			sb.WriteByte('[')
			if indices {
				fmt.Fprint(&sb, n.Key)
			}
			sb.WriteByte(']')
		default:
			if i > 0 {
				sb.WriteByte('.')
			}
			fmt.Fprint(&sb, n.Key)
		}
	}
	return sb.String()
}

func readNodes(v any, nodes []AddressNode) any {
	for _, n := range nodes {
		if v == nil {
			return nil
		}
		v = readKey(v, n)
	}
	return v
}

// readKey indexes a single segment into v, returning nil for anything that
// does not resolve
func readKey(v any, n AddressNode) any {
	switch t := v.(type) {
	case map[string]any:
		return t[keyString(n)]
	case []any:
		if idx, ok := keyIndex(n); ok {
			if idx < len(t) {
				return t[idx]
			}
			return nil
		}
		if n.Key == "length" {
			return len(t)
		}
		return nil
	case string:
		if n.Key == "length" {
			return len(t)
		}
		return nil
	}
	return readReflect(reflect.ValueOf(v), n)
}

func readReflect(rv reflect.Value, n AddressNode) any {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(keyString(n)).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Slice, reflect.Array:
		if idx, ok := keyIndex(n); ok {
			if idx < rv.Len() {
				return rv.Index(idx).Interface()
			}
			return nil
		}
		if n.Key == "length" {
			return rv.Len()
		}
	case reflect.Struct:
		return structField(rv, keyString(n))
	}
	return nil
}

func structField(rv reflect.Value, name string) any {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if tag == name || (tag == "" && f.Name == name) || strings.EqualFold(f.Name, name) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}

func keyString(n AddressNode) string {
	switch k := n.Key.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	}
	return fmt.Sprint(n.Key)
}

func keyIndex(n AddressNode) (int, bool) {
	switch k := n.Key.(type) {
	case int:
		return k, k >= 0
	case string:
		idx, err := strconv.Atoi(k)
		return idx, err == nil && idx >= 0
	}
	return 0, false
}
