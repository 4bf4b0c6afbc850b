package component

import (
	"iter"
	"strings"

	"golang.org/x/net/html"

	"github.com/recera/rapier/pkg/dom"
)

// visit is produced while walking the document: once when a template is
// entered and once, after all of its descendants, when it is left
type visit struct {
	node *html.Node
	exit bool
}

// walkTemplates walks root depth first with an explicit stack and yields
// enter and exit visits for every template outside an ignored subtree. The
// children of a node are collected before they are visited, so nodes may be
// detached from the tree during iteration.
func (r *Registry) walkTemplates(root *html.Node) iter.Seq[visit] {
	attrs := r.opts.Attributes
	return func(yield func(visit) bool) {
		stack := []visit{{node: root}}
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if v.exit {
				if !yield(v) {
					return
				}
				continue
			}

			n := v.node
			if _, ignored := dom.Attr(n, attrs.Ignored); ignored {
				continue
			}
			if n != root && r.isTemplate(n) {
				if !yield(v) {
					return
				}
				stack = append(stack, visit{node: n, exit: true})
			}
			for c := n.LastChild; c != nil; c = c.PrevSibling {
				stack = append(stack, visit{node: c})
			}
		}
	}
}

func (r *Registry) isTemplate(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.Data == "template" {
		return true
	}
	if !r.opts.MarkedElements {
		return false
	}
	_, named := dom.Attr(n, r.opts.Attributes.Component)
	_, variant := dom.Attr(n, r.opts.Attributes.Variant)
	return named || variant
}

// pending is a template whose descendants are still being gathered
type pending struct {
	name     string
	variant  string
	variants map[string]*VariantBuilder
}

// Gather extracts every template under root into the registry and removes
// the template elements from the tree. Nested templates are extracted first
// so a parent's markup never contains them. Anonymous templates get a
// generated name, written onto their parent element.
func (r *Registry) Gather(root *html.Node) error {
	attrs := r.opts.Attributes
	var chain []*pending

	for v := range r.walkTemplates(root) {
		n := v.node
		if !v.exit {
			p := &pending{variants: make(map[string]*VariantBuilder)}
			name, named := dom.Attr(n, attrs.Component)
			variant, isVariant := dom.Attr(n, attrs.Variant)
			switch {
			case isVariant:
				p.name = name
				p.variant = variant
			case named:
				p.name = name
			default:
				p.name = r.nextAutoName()
				if n.Parent != nil && n.Parent.Type == html.ElementNode {
					dom.SetAttr(n.Parent, attrs.ModelComponent, p.name)
				}
			}
			chain = append(chain, p)
			continue
		}

		p := chain[len(chain)-1]
		chain = chain[:len(chain)-1]
		markup, err := r.capture(n)
		if err != nil {
			return err
		}
		dom.Remove(n)

		if p.variant != "" {
			r.attachVariant(chain, p, NewVariantBuilder(markup, r.opts.Stream))
			continue
		}
		b := NewBuilder(markup, r.opts.Stream)
		for name, vb := range p.variants {
			b.AddVariant(name, vb)
		}
		r.Register(p.name, b)
	}
	return nil
}

// attachVariant adds a variant to the nearest enclosing component in the
// chain, or to the component it names. A variant without a home is logged
// and dropped.
func (r *Registry) attachVariant(chain []*pending, p *pending, vb *VariantBuilder) {
	for i := len(chain) - 1; i >= 0; i-- {
		owner := chain[i]
		if owner.variant != "" {
			continue
		}
		if p.name == "" || owner.name == p.name {
			owner.variants[p.variant] = vb
			return
		}
	}
	if p.name != "" {
		if b, ok := r.builders[p.name]; ok {
			b.AddVariant(p.variant, vb)
			return
		}
	}
	r.log.Error("variant has no enclosing component", "variant", p.variant, "component", p.name)
}

// capture serializes the content of a template. A lone <table>, and a lone
// <tbody> inside it, are unwrapped: they only exist so the rows parse.
func (r *Registry) capture(n *html.Node) (string, error) {
	content := n
	if table := soleElementChild(content, "table"); table != nil {
		content = table
		if tbody := soleElementChild(content, "tbody"); tbody != nil {
			content = tbody
		}
	}
	markup, err := dom.InnerHTML(content)
	if err != nil {
		return "", err
	}
	return r.unescapeDirectives(markup), nil
}

// unescapeDirectives reverses the entity encoding serialization applied
// inside {{ }} so comparisons and quoted literals survive
func (r *Registry) unescapeDirectives(markup string) string {
	return r.directives.ReplaceAllStringFunc(markup, html.UnescapeString)
}

func soleElementChild(n *html.Node, tag string) *html.Node {
	var found *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if found != nil || c.Data != tag {
				return nil
			}
			found = c
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		case html.CommentNode:
		default:
			return nil
		}
	}
	return found
}
