package dom

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// wrapMap gives the context element some tags need before they can be
// parsed. Without it a leading <tr> or <option> is dropped by the parser.
var wrapMap = map[string]string{
	"option":   "select",
	"optgroup": "select",
	"legend":   "fieldset",
	"area":     "map",
	"param":    "object",
	"thead":    "table",
	"tbody":    "table",
	"tfoot":    "table",
	"colgroup": "table",
	"caption":  "table",
	"col":      "colgroup",
	"tr":       "tbody",
	"td":       "tr",
	"th":       "tr",
}

var firstTag = regexp.MustCompile(`<\s*([a-zA-Z][\w:-]*)`)

// ContextFor returns the element name markup must be parsed inside, chosen
// by the first tag it contains
func ContextFor(markup string) string {
	m := firstTag.FindStringSubmatch(markup)
	if m == nil {
		return "body"
	}
	if ctx, ok := wrapMap[strings.ToLower(m[1])]; ok {
		return ctx
	}
	return "body"
}

// ParseFragment parses markup into a detached list of nodes
func ParseFragment(markup string) ([]*html.Node, error) {
	ctx := ContextFor(markup)
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     ctx,
		DataAtom: atom.Lookup([]byte(ctx)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		n.Parent = nil
		n.PrevSibling = nil
		n.NextSibling = nil
	}
	return nodes, nil
}
