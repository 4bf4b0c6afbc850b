// Package bindings wraps freshly rendered nodes so callers can look up
// handles, models, configuration and controllers declared in the markup.
package bindings

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/recera/rapier/pkg/dom"
)

const (
	HandleAttr     = "data-hr-handle"
	ModelAttr      = "data-hr-model"
	ControllerAttr = "data-hr-controller"
	ConfigPrefix   = "data-hr-config-"
)

// Collection is a set of root nodes and everything beneath them
type Collection struct {
	roots []*html.Node
}

// New creates a collection over the given roots
func New(roots []*html.Node) *Collection {
	return &Collection{roots: roots}
}

// Roots returns the top level nodes of the collection
func (c *Collection) Roots() []*html.Node {
	return c.roots
}

// Iterate yields each root element followed by its descendants
func (c *Collection) Iterate(yield func(*html.Node) bool) {
	for _, r := range c.roots {
		if r.Type == html.ElementNode && !yield(r) {
			return
		}
		for n := range dom.Iterate(r) {
			if !yield(n) {
				return
			}
		}
	}
}

// First returns the first element in the collection matching m
func (c *Collection) First(m dom.Matcher) *html.Node {
	var found *html.Node
	c.Iterate(func(n *html.Node) bool {
		if m(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// All returns every element in the collection matching m
func (c *Collection) All(m dom.Matcher) []*html.Node {
	var out []*html.Node
	c.Iterate(func(n *html.Node) bool {
		if m(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Handle returns the element marked data-hr-handle="name"
func (c *Collection) Handle(name string) *html.Node {
	return c.First(dom.ByAttrValue(HandleAttr, name))
}

// Model returns the element marked data-hr-model="name"
func (c *Collection) Model(name string) *html.Node {
	return c.First(dom.ByAttrValue(ModelAttr, name))
}

// Config collects data-hr-config-* attributes from the root elements
func (c *Collection) Config() map[string]string {
	cfg := make(map[string]string)
	for _, r := range c.roots {
		if r.Type != html.ElementNode {
			continue
		}
		for _, a := range r.Attr {
			if strings.HasPrefix(a.Key, ConfigPrefix) {
				cfg[strings.TrimPrefix(a.Key, ConfigPrefix)] = a.Val
			}
		}
	}
	return cfg
}

// IterateControllers calls fn with a collection for every element marked
// data-hr-controller="name"
func (c *Collection) IterateControllers(name string, fn func(*Collection)) {
	for _, n := range c.All(dom.ByAttrValue(ControllerAttr, name)) {
		fn(New([]*html.Node{n}))
	}
}
