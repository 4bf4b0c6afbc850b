package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// renderer serializes nodes and keeps the first write error
type renderer struct {
	w   io.Writer
	err error
}

func (r *renderer) render(n *html.Node) {
	if r.err != nil {
		return
	}
	r.err = html.Render(r.w, n)
}

// Render writes each node to w
func Render(w io.Writer, nodes ...*html.Node) error {
	r := &renderer{w: w}
	for _, n := range nodes {
		r.render(n)
	}
	return r.err
}

// RenderToString serializes nodes to markup
func RenderToString(nodes ...*html.Node) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, nodes...); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// InnerHTML serializes the children of n
func InnerHTML(n *html.Node) (string, error) {
	return RenderToString(Children(n)...)
}
