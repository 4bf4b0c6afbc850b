package exprtree

// Scope resolves data addresses. The root of a render is a value scope; each
// loop iteration pushes a Frame that binds the loop variable and defers every
// other name to its parent.
type Scope interface {
	Lookup(addr *DataAddress) any
}

type valueScope struct {
	value any
}

// Root returns a scope that reads addresses directly out of v. If v already
// is a Scope it is returned unchanged.
func Root(v any) Scope {
	if s, ok := v.(Scope); ok {
		return s
	}
	return valueScope{value: v}
}

func (s valueScope) Lookup(addr *DataAddress) any {
	return addr.ReadValue(s.value)
}

// Frame is a scope that binds a single name on top of a parent scope
type Frame struct {
	name   string
	value  any
	parent Scope
}

// NewFrame binds name to value. Addresses that start with another name, and
// the empty (this) address, resolve through parent.
func NewFrame(name string, value any, parent Scope) *Frame {
	return &Frame{name: name, value: value, parent: parent}
}

func (f *Frame) Lookup(addr *DataAddress) any {
	if root, ok := addr.RootName(); ok && root == f.name {
		return addr.ReadScoped(f.value)
	}
	if f.parent == nil {
		return nil
	}
	return f.parent.Lookup(addr)
}

// Name returns the bound variable name
func (f *Frame) Name() string { return f.name }

// Parent returns the enclosing scope
func (f *Frame) Parent() Scope { return f.parent }
