package component

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/net/html"

	"github.com/recera/rapier/pkg/bindings"
	"github.com/recera/rapier/pkg/dom"
	"github.com/recera/rapier/pkg/textstream"
)

// ErrNotChild is returned when the insertion point is not a child of parent
var ErrNotChild = errors.New("insertion point is not a child of parent")

// VariantBuilder renders an alternate template of a component
type VariantBuilder struct {
	stream *textstream.TextStream
}

// NewVariantBuilder creates a variant from template markup
func NewVariantBuilder(markup string, opts textstream.Options) *VariantBuilder {
	return &VariantBuilder{stream: textstream.NewWithOptions(markup, opts)}
}

// Create renders the variant and inserts the result under parent
func (v *VariantBuilder) Create(data any, parent, insertBefore *html.Node) (*bindings.Collection, error) {
	return create(v.stream, data, parent, insertBefore)
}

// Markup returns the variant template source
func (v *VariantBuilder) Markup() string {
	return v.stream.Text()
}

// Builder renders a component template and owns its named variants
type Builder struct {
	stream   *textstream.TextStream
	variants map[string]*VariantBuilder
}

// NewBuilder creates a builder from template markup. The markup is
// tokenized on the first Create.
func NewBuilder(markup string, opts textstream.Options) *Builder {
	return &Builder{
		stream:   textstream.NewWithOptions(markup, opts),
		variants: make(map[string]*VariantBuilder),
	}
}

// Markup returns the component template source
func (b *Builder) Markup() string {
	return b.stream.Text()
}

// AddVariant registers an alternate template under name
func (b *Builder) AddVariant(name string, v *VariantBuilder) {
	b.variants[name] = v
}

// Variant looks up a variant by name
func (b *Builder) Variant(name string) (*VariantBuilder, bool) {
	v, ok := b.variants[name]
	return v, ok
}

// VariantNames returns the registered variant names in sorted order
func (b *Builder) VariantNames() []string {
	names := make([]string, 0, len(b.variants))
	for name := range b.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create renders data with the named variant, or with the component's own
// template when variant is empty or unknown, and inserts the nodes under
// parent before insertBefore. A nil insertBefore appends; a nil parent
// leaves the nodes detached.
func (b *Builder) Create(data any, parent, insertBefore *html.Node, variant string) (*bindings.Collection, error) {
	if variant != "" {
		if v, ok := b.variants[variant]; ok {
			return v.Create(data, parent, insertBefore)
		}
	}
	return create(b.stream, data, parent, insertBefore)
}

func create(stream *textstream.TextStream, data any, parent, insertBefore *html.Node) (*bindings.Collection, error) {
	if insertBefore != nil && insertBefore.Parent != parent {
		return nil, ErrNotChild
	}
	markup, err := stream.Format(data)
	if err != nil {
		return nil, err
	}
	nodes, err := dom.ParseFragment(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered markup: %w", err)
	}
	if parent != nil {
		for _, n := range nodes {
			parent.InsertBefore(n, insertBefore)
		}
	}
	return bindings.New(nodes), nil
}
