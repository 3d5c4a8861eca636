package markup

import (
	"bytes"
	"encoding/xml"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// ParseXHTML parses well formed XHTML. HTML named entities are accepted.
func ParseXHTML(data []byte) (Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        xml.HTMLEntity,
	}
	if _, err := doc.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	el := doc.Root()
	if el == nil {
		return nil, ErrNoRoot
	}
	var b builder
	return b.fromEtree(el), nil
}

// FromElement converts already parsed etree element into markup tree.
func FromElement(el *etree.Element) Node {
	var b builder
	return b.fromEtree(el)
}

func (b *builder) fromEtree(el *etree.Element) *node {
	n := b.element(el.Tag)
	for _, a := range el.Attr {
		name := a.Key
		if a.Space != "" && a.Space != "xmlns" {
			name = a.Space + ":" + a.Key
		} else if a.Space == "xmlns" {
			continue
		}
		n.attrs = append(n.attrs, attr{name: name, value: a.Value})
	}
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.children = append(n.children, b.fromEtree(t))
		case *etree.CharData:
			if t.Data == "" {
				continue
			}
			// adjacent character data (text + CDATA) is merged
			if last := len(n.children) - 1; last >= 0 {
				if prev, ok := n.children[last].(*node); ok && prev.isText {
					prev.text += t.Data
					continue
				}
			}
			n.children = append(n.children, b.text(t.Data))
		}
	}
	return n
}
