// Package dom provides query, fragment parsing and serialization helpers over
// golang.org/x/net/html node trees.
package dom

import (
	"iter"

	"golang.org/x/net/html"
)

// Matcher selects nodes
type Matcher func(n *html.Node) bool

// ByAttr matches elements carrying the attribute
func ByAttr(name string) Matcher {
	return func(n *html.Node) bool {
		_, ok := Attr(n, name)
		return ok
	}
}

// ByAttrValue matches elements whose attribute equals value
func ByAttrValue(name, value string) Matcher {
	return func(n *html.Node) bool {
		v, ok := Attr(n, name)
		return ok && v == value
	}
}

// ByTag matches elements by tag name
func ByTag(tag string) Matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// IterateNodes yields every descendant of root in document order
func IterateNodes(root *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		if root == nil {
			return
		}
		stack := childrenReversed(root, nil)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n) {
				return
			}
			stack = childrenReversed(n, stack)
		}
	}
}

// Iterate yields every descendant element of root in document order
func Iterate(root *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		for n := range IterateNodes(root) {
			if n.Type == html.ElementNode && !yield(n) {
				return
			}
		}
	}
}

// First returns the first descendant element of root matching m, or nil
func First(root *html.Node, m Matcher) *html.Node {
	for n := range Iterate(root) {
		if m(n) {
			return n
		}
	}
	return nil
}

// All returns every descendant element of root matching m
func All(root *html.Node, m Matcher) []*html.Node {
	var out []*html.Node
	for n := range Iterate(root) {
		if m(n) {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the direct children of n
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func childrenReversed(n *html.Node, stack []*html.Node) []*html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	return stack
}

// Attr returns the value of an attribute on an element
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute
func SetAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// Remove detaches n from its parent
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// HasAncestor reports whether any ancestor of n matches m
func HasAncestor(n *html.Node, m Matcher) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && m(p) {
			return true
		}
	}
	return false
}
