package book

import (
	"slices"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"folio/layout"
)

const ncxMimeType = "application/x-dtbncx+xml"

// TOCEntry is a table of contents node. Href is container path with
// optional fragment.
type TOCEntry struct {
	Title    string
	Href     string
	Children []TOCEntry
}

// TOC returns table of contents from EPUB 3 navigation document, falling
// back to EPUB 2 NCX. Books without either have empty TOC.
func (b *Book) TOC() []TOCEntry {
	b.tocOnce.Do(func() {
		if nav, ok := b.navItem(); ok {
			b.toc = b.readNav(nav.Href)
		}
		if len(b.toc) == 0 {
			if ncx, ok := b.ncxItem(); ok {
				b.toc = b.readNCX(ncx.Href)
			}
		}
		b.log.Debug("TOC loaded", zap.Int("entries", len(b.toc)))
	})
	return b.toc
}

func (b *Book) navItem() (Item, bool) {
	for _, it := range b.items {
		if it.HasProperty("nav") {
			return it, true
		}
	}
	return Item{}, false
}

func (b *Book) ncxItem() (Item, bool) {
	if i, ok := b.manifest[b.tocID]; ok {
		return b.items[i], true
	}
	for _, it := range b.items {
		if it.MediaType == ncxMimeType {
			return it, true
		}
	}
	return Item{}, false
}

// resolveHref resolves reference relative to document keeping fragment.
func resolveHref(base, href string) (string, bool) {
	p, err := layout.ResolvePath(base, href)
	if err != nil {
		return "", false
	}
	if _, frag := layout.SplitHref(href); frag != "" {
		return p + "#" + frag, true
	}
	return p, true
}

func (b *Book) readNav(p string) []TOCEntry {
	data, err := b.src.ReadFile(p)
	if err != nil {
		b.log.Warn("Unable to read navigation document", zap.String("path", p), zap.Error(err))
		return nil
	}
	doc, err := readXML(data)
	if err != nil {
		b.log.Warn("Unable to parse navigation document", zap.String("path", p), zap.Error(err))
		return nil
	}

	var nav *etree.Element
	var find func(el *etree.Element)
	find = func(el *etree.Element) {
		if nav != nil {
			return
		}
		if el.Tag == "nav" && slices.Contains(strings.Fields(attr(el, "epub:type")), "toc") {
			nav = el
			return
		}
		for _, c := range el.ChildElements() {
			find(c)
		}
	}
	find(doc.Root())
	if nav == nil {
		return nil
	}
	if ol := child(nav, "ol"); ol != nil {
		return b.navList(p, ol)
	}
	return nil
}

func (b *Book) navList(base string, ol *etree.Element) []TOCEntry {
	var entries []TOCEntry
	for _, li := range children(ol, "li") {
		var e TOCEntry
		if a := child(li, "a"); a != nil {
			e.Title = collapseSpace(textOf(a))
			if href, ok := resolveHref(base, attr(a, "href")); ok && attr(a, "href") != "" {
				e.Href = href
			}
		} else if span := child(li, "span"); span != nil {
			e.Title = collapseSpace(textOf(span))
		}
		if sub := child(li, "ol"); sub != nil {
			e.Children = b.navList(base, sub)
		}
		if e.Title == "" && len(e.Children) == 0 {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (b *Book) readNCX(p string) []TOCEntry {
	data, err := b.src.ReadFile(p)
	if err != nil {
		b.log.Warn("Unable to read NCX", zap.String("path", p), zap.Error(err))
		return nil
	}
	doc, err := readXML(data)
	if err != nil {
		b.log.Warn("Unable to parse NCX", zap.String("path", p), zap.Error(err))
		return nil
	}
	navMap := child(doc.Root(), "navMap")
	if navMap == nil {
		return nil
	}
	return b.navPoints(p, navMap)
}

func (b *Book) navPoints(base string, parent *etree.Element) []TOCEntry {
	var entries []TOCEntry
	for _, np := range children(parent, "navPoint") {
		var e TOCEntry
		if label := child(np, "navLabel"); label != nil {
			if text := child(label, "text"); text != nil {
				e.Title = collapseSpace(textOf(text))
			}
		}
		if content := child(np, "content"); content != nil {
			if href, ok := resolveHref(base, attr(content, "src")); ok {
				e.Href = href
			}
		}
		e.Children = b.navPoints(base, np)
		entries = append(entries, e)
	}
	return entries
}

func textOf(el *etree.Element) string {
	var sb strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, t := range el.Child {
			switch t := t.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
