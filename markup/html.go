package markup

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ParseHTML parses arbitrary HTML using HTML5 parsing rules, document
// encoding is detected from BOM and meta tags.
func ParseHTML(data []byte) (Node, error) {
	r, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			var b builder
			return b.fromHTML(c), nil
		}
	}
	return nil, ErrNoRoot
}

func (b *builder) fromHTML(hn *html.Node) *node {
	n := b.element(hn.Data)
	for _, a := range hn.Attr {
		name := strings.ToLower(a.Key)
		if a.Namespace != "" {
			name = a.Namespace + ":" + name
		}
		n.attrs = append(n.attrs, attr{name: name, value: a.Val})
	}
	for c := hn.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			n.children = append(n.children, b.fromHTML(c))
		case html.TextNode:
			if c.Data != "" {
				n.children = append(n.children, b.text(c.Data))
			}
		}
	}
	return n
}
