// Package page is the runtime for one HTML document: it gathers the
// document's templates into a component registry and binds data onto the
// elements that declare a model.
package page

import (
	"fmt"
	"io"

	"golang.org/x/net/html"

	"github.com/recera/rapier/pkg/bindings"
	"github.com/recera/rapier/pkg/component"
	"github.com/recera/rapier/pkg/dom"
	"github.com/recera/rapier/pkg/exprtree"
	"github.com/recera/rapier/pkg/textstream"
)

// Page owns a parsed document and the components gathered from it
type Page struct {
	doc      *html.Node
	registry *component.Registry
}

// Parse reads a document and gathers its templates
func Parse(r io.Reader, opts component.Options) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return FromDocument(doc, opts)
}

// FromDocument gathers the templates of an already parsed document
func FromDocument(doc *html.Node, opts component.Options) (*Page, error) {
	reg := component.NewRegistry(opts)
	if err := reg.Gather(doc); err != nil {
		return nil, fmt.Errorf("failed to gather components: %w", err)
	}
	return &Page{doc: doc, registry: reg}, nil
}

// Document returns the root node
func (p *Page) Document() *html.Node { return p.doc }

// Registry returns the page's component registry
func (p *Page) Registry() *component.Registry { return p.registry }

// maxBindDepth bounds how deeply rendered components may nest further model
// bindings
const maxBindDepth = 32

// Bind renders data into every element carrying both data-hr-model, an
// address into data, and the model component attribute. Lists are rendered
// item by item through Many, other values through One; nil values just empty
// the element. Model elements inside the rendered markup are bound in turn
// against the item they were rendered from.
func (p *Page) Bind(data any, finder component.VariantFinder) error {
	return p.bindTargets(dom.All(p.doc, p.isTarget), data, finder, 0)
}

func (p *Page) isTarget(n *html.Node) bool {
	_, model := dom.Attr(n, bindings.ModelAttr)
	_, comp := dom.Attr(n, p.registry.Options().Attributes.ModelComponent)
	return model && comp
}

// rendered pairs a created collection with the data it was rendered from
type rendered struct {
	collection *bindings.Collection
	data       any
}

func (p *Page) bindTargets(targets []*html.Node, data any, finder component.VariantFinder, depth int) error {
	if len(targets) == 0 {
		return nil
	}
	if depth > maxBindDepth {
		return fmt.Errorf("model bindings nested deeper than %d", maxBindDepth)
	}
	attrs := p.registry.Options().Attributes
	root := exprtree.Root(data)

	for _, el := range targets {
		expr, _ := dom.Attr(el, bindings.ModelAttr)
		name, _ := dom.Attr(el, attrs.ModelComponent)
		addr, err := exprtree.ParseAddress(expr)
		if err != nil {
			return fmt.Errorf("model %q: %w", expr, err)
		}
		value := addr.Read(root)

		var created []rendered
		onCreated := func(c *bindings.Collection, item any) {
			created = append(created, rendered{collection: c, data: item})
		}

		p.registry.Empty(el)
		switch {
		case value == nil:
		case textstream.IsIterable(value):
			if _, err := p.registry.Many(name, value, el, nil, onCreated, finder); err != nil {
				return err
			}
		default:
			if _, err := p.registry.One(name, value, el, nil, onCreated, finder); err != nil {
				return err
			}
		}

		for _, r := range created {
			if err := p.bindTargets(r.collection.All(p.isTarget), r.data, finder, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Render writes the document
func (p *Page) Render(w io.Writer) error {
	return html.Render(w, p.doc)
}

// RenderComponent renders a single registered component with data and
// returns the markup. Iterable data renders one instance per item.
func (p *Page) RenderComponent(name string, data any, variant string) (string, error) {
	if !p.registry.IsDefined(name) {
		return "", fmt.Errorf("component %s is not defined", name)
	}
	var finder component.VariantFinder
	if variant != "" {
		finder = func(any) string { return variant }
	}

	holder := &html.Node{Type: html.ElementNode, Data: "div"}
	var err error
	if textstream.IsIterable(data) {
		_, err = p.registry.Many(name, data, holder, nil, nil, finder)
	} else {
		_, err = p.registry.One(name, data, holder, nil, nil, finder)
	}
	if err != nil {
		return "", err
	}
	return dom.InnerHTML(holder)
}
