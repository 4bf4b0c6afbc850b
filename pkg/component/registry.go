// Package component extracts <template> markup from a document into named
// builders and instantiates them into DOM fragments bound to data.
package component

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"golang.org/x/net/html"

	"github.com/recera/rapier/pkg/bindings"
	"github.com/recera/rapier/pkg/dom"
	"github.com/recera/rapier/pkg/textstream"
)

const autoNamePrefix = "hr.autocomponent."

// CreatedFunc is called with each newly rendered collection and its data
type CreatedFunc func(c *bindings.Collection, data any)

// VariantFinder picks a variant name for a data item. An empty result
// selects the default template.
type VariantFinder func(data any) string

// Registry maps component names to builders for one page. Builders are
// registered once, normally by Gather, and live as long as the registry. A
// registry is meant to be used from a single goroutine.
type Registry struct {
	builders   map[string]*Builder
	opts       Options
	log        *slog.Logger
	autoID     int
	directives *regexp.Regexp
}

// NewRegistry creates an empty registry
func NewRegistry(opts Options) *Registry {
	opts = opts.withDefaults()
	open := regexp.QuoteMeta(string(opts.Stream.Open))
	closing := regexp.QuoteMeta(string(opts.Stream.Close))
	return &Registry{
		builders:   make(map[string]*Builder),
		opts:       opts,
		log:        opts.Logger,
		directives: regexp.MustCompile(open + open + `(?s:.*?)` + closing + closing),
	}
}

// Options returns the effective registry options
func (r *Registry) Options() Options {
	return r.opts
}

// Register adds a builder under name, replacing any previous one
func (r *Registry) Register(name string, b *Builder) {
	if _, exists := r.builders[name]; exists {
		r.log.Warn("component redefined", "component", name)
	}
	r.builders[name] = b
}

// IsDefined reports whether a component is registered
func (r *Registry) IsDefined(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Builder returns the builder registered under name
func (r *Registry) Builder(name string) (*Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

// Names returns the registered component names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) *Builder {
	b, ok := r.builders[name]
	if !ok {
		r.log.Warn("component not defined", "component", name)
		return nil
	}
	return b
}

// One renders a single item of the named component under parent. An
// unknown component is logged and yields a nil collection without error;
// template errors are returned.
func (r *Registry) One(name string, data any, parent, insertBefore *html.Node, created CreatedFunc, finder VariantFinder) (*bindings.Collection, error) {
	b := r.lookup(name)
	if b == nil {
		return nil, nil
	}
	variant := ""
	if finder != nil {
		variant = finder(data)
	}
	c, err := b.Create(data, parent, insertBefore, variant)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", name, err)
	}
	if created != nil {
		created(c, data)
	}
	return c, nil
}

// Many renders every item of a slice, array or textstream.ForEachable. When
// insertBefore is nil the first child of parent carrying the insert marker
// is used, falling back to appending. All items are built into a detached
// fragment first and then moved into parent in one pass; on error parent is
// left untouched.
func (r *Registry) Many(name string, data any, parent, insertBefore *html.Node, created CreatedFunc, finder VariantFinder) ([]*bindings.Collection, error) {
	b := r.lookup(name)
	if b == nil {
		return nil, nil
	}
	if insertBefore == nil && parent != nil {
		insertBefore = r.insertionPoint(parent)
	}
	if insertBefore != nil && insertBefore.Parent != parent {
		return nil, fmt.Errorf("component %s: %w", name, ErrNotChild)
	}

	fragment := &html.Node{Type: html.DocumentNode}
	var out []*bindings.Collection
	var err error
	textstream.Each(data, func(item any) {
		if err != nil {
			return
		}
		variant := ""
		if finder != nil {
			variant = finder(item)
		}
		var c *bindings.Collection
		c, err = b.Create(item, fragment, nil, variant)
		if err != nil {
			return
		}
		out = append(out, c)
		if created != nil {
			created(c, item)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", name, err)
	}

	for n := fragment.FirstChild; n != nil; {
		next := n.NextSibling
		fragment.RemoveChild(n)
		if parent != nil {
			parent.InsertBefore(n, insertBefore)
		}
		n = next
	}
	return out, nil
}

func (r *Registry) insertionPoint(parent *html.Node) *html.Node {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if _, ok := dom.Attr(c, r.opts.Attributes.Insert); ok {
			return c
		}
	}
	return nil
}

// Empty removes the children of parent, keeping insert markers so later
// calls to Many still find them
func (r *Registry) Empty(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if _, ok := dom.Attr(c, r.opts.Attributes.Insert); !ok {
			parent.RemoveChild(c)
		}
		c = next
	}
}

func (r *Registry) nextAutoName() string {
	r.autoID++
	return fmt.Sprintf("%s%d", autoNamePrefix, r.autoID)
}
