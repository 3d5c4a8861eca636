// Package markup provides read-only document trees layout works on.
package markup

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Node is a single markup node. Element nodes have tag name and may have
// attributes and children, text nodes only carry text.
type Node interface {
	// Tag returns lowercase local element name, empty for text nodes.
	Tag() string
	Attr(name string) (string, bool)
	Children() []Node
	// Text returns character data and true for text nodes.
	Text() (string, bool)
	// Identity is unique for every node of a single document.
	Identity() int
}

type attr struct {
	name, value string
}

type node struct {
	id       int
	tag      string
	attrs    []attr
	children []Node
	text     string
	isText   bool
}

func (n *node) Tag() string { return n.tag }

func (n *node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}

func (n *node) Children() []Node { return n.children }

func (n *node) Text() (string, bool) { return n.text, n.isText }

func (n *node) Identity() int { return n.id }

func (n *node) String() string {
	if n.isText {
		return fmt.Sprintf("#text(%q)", n.text)
	}
	return "<" + n.tag + ">"
}

// builder hands out node identities in document order.
type builder struct {
	next int
}

func (b *builder) element(tag string) *node {
	b.next++
	return &node{id: b.next, tag: strings.ToLower(tag)}
}

func (b *builder) text(s string) *node {
	b.next++
	return &node{id: b.next, text: s, isText: true}
}

// ErrNoRoot is returned when document does not have root element.
var ErrNoRoot = errors.New("document has no root element")

// Parse parses document content. Content is treated as XHTML first, when XML
// parsing fails the HTML5 parser is used, so tag soup still produces a tree.
func Parse(data []byte, name string, log *zap.Logger) (Node, error) {
	if log == nil {
		log = zap.NewNop()
	}
	root, err := ParseXHTML(data)
	if err == nil {
		return root, nil
	}
	log.Debug("Falling back to HTML parser", zap.String("name", name), zap.Error(err))

	root, herr := ParseHTML(data)
	if herr != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, errors.Join(err, herr))
	}
	return root, nil
}

// Body returns document body: root itself when it is body or body child of
// html root.
func Body(root Node) (Node, bool) {
	if root == nil {
		return nil, false
	}
	switch root.Tag() {
	case "body":
		return root, true
	case "html":
		if body := FirstChild(root, "body"); body != nil {
			return body, true
		}
	}
	return nil, false
}

// FirstChild returns first element child with given tag.
func FirstChild(n Node, tag string) Node {
	for _, c := range n.Children() {
		if c.Tag() == tag {
			return c
		}
	}
	return nil
}

// TextContent returns concatenated text of the subtree.
func TextContent(n Node) string {
	var sb strings.Builder
	var walk func(Node)
	walk = func(n Node) {
		if s, ok := n.Text(); ok {
			sb.WriteString(s)
			return
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Walk calls fn for every node of the subtree in document order, returning
// false from fn skips node children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
