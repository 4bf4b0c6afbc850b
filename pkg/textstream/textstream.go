// Package textstream implements the {{ }} template language: variable
// substitution, if / else if / else blocks and for-in loops over data.
package textstream

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/recera/rapier/pkg/exprtree"
)

// Options configures the delimiters and escaping of a stream
type Options struct {
	// Open and Close are the bracket characters. A directive is exactly two
	// of them on each side.
	Open  rune
	Close rune

	// Escape HTML-encodes substituted values
	Escape bool
}

// DefaultOptions returns {{ }} delimiters with escaping enabled
func DefaultOptions() Options {
	return Options{Open: '{', Close: '}', Escape: true}
}

// Error reports a directive that could not be tokenized
type Error struct {
	Directive string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("textstream: {{%s}}: %v", e.Directive, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrUnclosedBlock = errors.New("unclosed block")
	ErrUnexpected    = errors.New("unexpected block terminator")
	ErrBadLoop       = errors.New("expected 'for <name> in <expression>'")
)

type streamState uint8

const (
	untokenized streamState = iota
	tokenized
)

// TextStream is a template string that is tokenized once, on first use, and
// then formatted any number of times. It is not safe for concurrent use
// before the first Tokenize call completes.
type TextStream struct {
	text  string
	opts  Options
	state streamState
	nodes []node
	err   error
}

// New creates a stream with DefaultOptions
func New(text string) *TextStream {
	return NewWithOptions(text, DefaultOptions())
}

// NewWithOptions creates a stream with explicit options. Zero delimiters
// fall back to the defaults.
func NewWithOptions(text string, opts Options) *TextStream {
	if opts.Open == 0 {
		opts.Open = '{'
	}
	if opts.Close == 0 {
		opts.Close = '}'
	}
	return &TextStream{text: text, opts: opts}
}

// Text returns the template source
func (ts *TextStream) Text() string {
	return ts.text
}

// Tokenize parses the template. Only the first call does any work; later
// calls return the memoized result.
func (ts *TextStream) Tokenize() error {
	if ts.state == untokenized {
		ts.nodes, ts.err = ts.tokenize()
		ts.state = tokenized
	}
	return ts.err
}

// Format renders the template against data. data may be a plain value or an
// exprtree.Scope.
func (ts *TextStream) Format(data any) (string, error) {
	return ts.FormatScope(exprtree.Root(data))
}

// FormatScope renders the template within an existing scope
func (ts *TextStream) FormatScope(s exprtree.Scope) (string, error) {
	if err := ts.Tokenize(); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(ts.text))
	writeNodes(&sb, ts.nodes, s)
	return sb.String(), nil
}

// FoundVariable reports whether the template contains any directive
func (ts *TextStream) FoundVariable() (bool, error) {
	if err := ts.Tokenize(); err != nil {
		return false, err
	}
	for _, n := range ts.nodes {
		if _, ok := n.(*textNode); !ok {
			return true, nil
		}
	}
	return false, nil
}

// VisitVariables calls fn for every data address the template reads
func (ts *TextStream) VisitVariables(fn func(*exprtree.DataAddress)) error {
	if err := ts.Tokenize(); err != nil {
		return err
	}
	visitNodes(ts.nodes, fn)
	return nil
}

// block is an open if or for whose body is being collected
type block struct {
	directive string
	ifNode    *ifNode
	forNode   *forNode
	target    *[]node
	inElse    bool
}

type tokenizer struct {
	opts   Options
	root   []node
	blocks []*block
}

func (t *tokenizer) current() *[]node {
	if len(t.blocks) == 0 {
		return &t.root
	}
	return t.blocks[len(t.blocks)-1].target
}

func (t *tokenizer) emit(n node) {
	target := t.current()
	*target = append(*target, n)
}

func (t *tokenizer) emitText(text string) {
	if text != "" {
		t.emit(&textNode{text: text})
	}
}

// tokenize scans for runs of open brackets. A run of one is literal text, a
// run of two starts a directive and longer runs are literal with one bracket
// removed from each side. A run is only recognised once an equal number of
// close brackets follows it.
func (ts *TextStream) tokenize() ([]node, error) {
	text := []rune(ts.text)
	open, closing := ts.opts.Open, ts.opts.Close
	t := &tokenizer{opts: ts.opts}

	var pending strings.Builder
	textStart := 0
	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}
		start := i
		count := 1
		for i+1 < len(text) && text[i+1] == open {
			i++
			count++
		}

		// The first character after the run is always content
		check := count
		end := i + 2
		for ; end < len(text); end++ {
			if text[end] == closing {
				check--
				if check == 0 {
					break
				}
			}
		}
		if check != 0 {
			break
		}

		leading := string(text[textStart:start])
		bracketed := text[start : end+1]
		switch count {
		case 1:
			pending.WriteString(leading)
			pending.WriteString(string(bracketed))
		case 2:
			pending.WriteString(leading)
			t.emitText(pending.String())
			pending.Reset()
			directive := string(bracketed[2 : len(bracketed)-2])
			if err := t.directive(directive); err != nil {
				return nil, &Error{Directive: directive, Err: err}
			}
		default:
			pending.WriteString(leading)
			pending.WriteString(string(bracketed[1 : len(bracketed)-1]))
		}
		textStart = end + 1
		i = end
	}
	pending.WriteString(string(text[textStart:]))
	t.emitText(pending.String())

	if n := len(t.blocks); n > 0 {
		open := t.blocks[n-1]
		return nil, &Error{Directive: open.directive, Err: ErrUnclosedBlock}
	}
	return t.root, nil
}

var loopPattern = regexp.MustCompile(`^([A-Za-z_$][\w$]*)\s+in\s+(.+)$`)

// directive turns the content of a {{...}} into a node or block transition
func (t *tokenizer) directive(raw string) error {
	v := strings.TrimSpace(raw)
	switch {
	case hasKeyword(v, "if"):
		cond, err := exprtree.Create(v[len("if"):])
		if err != nil {
			return err
		}
		n := &ifNode{branches: []*branch{{condition: cond}}}
		t.emit(n)
		t.blocks = append(t.blocks, &block{directive: raw, ifNode: n, target: &n.branches[0].body})
		return nil

	case v == "else" || hasKeyword(v, "else"):
		top := t.top()
		if top == nil || top.ifNode == nil || top.inElse {
			return ErrUnexpected
		}
		rest := strings.TrimSpace(v[len("else"):])
		if rest == "" {
			top.inElse = true
			top.ifNode.hasElse = true
			top.target = &top.ifNode.elseBody
			return nil
		}
		if !hasKeyword(rest, "if") {
			return fmt.Errorf("expected 'else' or 'else if', got %q", v)
		}
		cond, err := exprtree.Create(rest[len("if"):])
		if err != nil {
			return err
		}
		b := &branch{condition: cond}
		top.ifNode.branches = append(top.ifNode.branches, b)
		top.target = &b.body
		return nil

	case v == "/if":
		if top := t.top(); top == nil || top.ifNode == nil {
			return ErrUnexpected
		}
		t.pop()
		return nil

	case hasKeyword(v, "for"):
		m := loopPattern.FindStringSubmatch(strings.TrimSpace(v[len("for"):]))
		if m == nil {
			return ErrBadLoop
		}
		source, err := exprtree.ParseAddress(m[2])
		if err != nil {
			return err
		}
		n := &forNode{name: m[1], source: source}
		t.emit(n)
		t.blocks = append(t.blocks, &block{directive: raw, forNode: n, target: &n.body})
		return nil

	case v == "/for":
		if top := t.top(); top == nil || top.forNode == nil {
			return ErrUnexpected
		}
		t.pop()
		return nil

	case v == "this":
		t.emit(&thisNode{escape: t.opts.Escape})
		return nil
	}

	addr, err := exprtree.ParseAddress(v)
	if err != nil {
		return err
	}
	t.emit(&variableNode{address: addr, escape: t.opts.Escape})
	return nil
}

func (t *tokenizer) top() *block {
	if len(t.blocks) == 0 {
		return nil
	}
	return t.blocks[len(t.blocks)-1]
}

func (t *tokenizer) pop() {
	t.blocks = t.blocks[:len(t.blocks)-1]
}

func hasKeyword(v, kw string) bool {
	return len(v) > len(kw) && strings.HasPrefix(v, kw) && unicode.IsSpace(rune(v[len(kw)]))
}
