package textstream

import (
	"iter"
	"reflect"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/recera/rapier/pkg/exprtree"
)

// node is one element of a tokenized stream
type node interface {
	write(sb *strings.Builder, s exprtree.Scope)
	visit(fn func(*exprtree.DataAddress))
}

type textNode struct {
	text string
}

func (n *textNode) write(sb *strings.Builder, _ exprtree.Scope) {
	sb.WriteString(n.text)
}

func (n *textNode) visit(func(*exprtree.DataAddress)) {}

type variableNode struct {
	address *exprtree.DataAddress
	escape  bool
}

func (n *variableNode) write(sb *strings.Builder, s exprtree.Scope) {
	text := exprtree.ToString(n.address.Read(s))
	if n.escape {
		text = Escape(text)
	}
	sb.WriteString(text)
}

func (n *variableNode) visit(fn func(*exprtree.DataAddress)) {
	fn(n.address)
}

// thisNode writes the whole current scope value
type thisNode struct {
	escape bool
}

var thisAddress = exprtree.NewDataAddress(nil)

func (n *thisNode) write(sb *strings.Builder, s exprtree.Scope) {
	v := thisAddress.Read(s)
	var text string
	if isComposite(v) {
		b, err := json.Marshal(v)
		if err != nil {
			text = exprtree.ToString(v)
		} else {
			text = string(b)
		}
	} else {
		text = exprtree.ToString(v)
	}
	if n.escape {
		text = Escape(text)
	}
	sb.WriteString(text)
}

func (n *thisNode) visit(fn func(*exprtree.DataAddress)) {
	fn(thisAddress)
}

func isComposite(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

type branch struct {
	condition *exprtree.Tree
	body      []node
}

// ifNode renders the first branch whose condition holds, else the else body
type ifNode struct {
	branches []*branch
	elseBody []node
	hasElse  bool
}

func (n *ifNode) write(sb *strings.Builder, s exprtree.Scope) {
	for _, b := range n.branches {
		if b.condition.IsTrue(s) {
			writeNodes(sb, b.body, s)
			return
		}
	}
	if n.hasElse {
		writeNodes(sb, n.elseBody, s)
	}
}

func (n *ifNode) visit(fn func(*exprtree.DataAddress)) {
	for _, b := range n.branches {
		visitTree(b.condition.Root(), fn)
		visitNodes(b.body, fn)
	}
	visitNodes(n.elseBody, fn)
}

func visitTree(n *exprtree.Node, fn func(*exprtree.DataAddress)) {
	if n == nil {
		return
	}
	if n.Address != nil {
		fn(n.Address)
	}
	visitTree(n.Left, fn)
	visitTree(n.Right, fn)
}

// forNode renders its body once per element with the element bound to name
type forNode struct {
	name   string
	source *exprtree.DataAddress
	body   []node
}

func (n *forNode) write(sb *strings.Builder, s exprtree.Scope) {
	Each(n.source.Read(s), func(item any) {
		writeNodes(sb, n.body, exprtree.NewFrame(n.name, item, s))
	})
}

func (n *forNode) visit(fn func(*exprtree.DataAddress)) {
	fn(n.source)
	visitNodes(n.body, fn)
}

// ForEachable is implemented by collections that are not slices but can
// still be iterated by loops
type ForEachable interface {
	ForEach(fn func(item any))
}

// Each calls fn for every element of a slice, array or ForEachable. Other
// values, including nil, produce no calls.
func Each(v any, fn func(item any)) {
	switch t := v.(type) {
	case nil:
		return
	case []any:
		for _, item := range t {
			fn(item)
		}
		return
	case ForEachable:
		t.ForEach(fn)
		return
	case iter.Seq[any]:
		t(func(item any) bool {
			fn(item)
			return true
		})
		return
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			fn(rv.Index(i).Interface())
		}
	}
}

func writeNodes(sb *strings.Builder, nodes []node, s exprtree.Scope) {
	for _, n := range nodes {
		n.write(sb, s)
	}
}

func visitNodes(nodes []node, fn func(*exprtree.DataAddress)) {
	for _, n := range nodes {
		n.visit(fn)
	}
}

// IsIterable reports whether Each would visit the elements of v
func IsIterable(v any) bool {
	switch v.(type) {
	case nil:
		return false
	case []any, ForEachable, iter.Seq[any]:
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}
