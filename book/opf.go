package book

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"folio/layout"
	"folio/markup"
)

const (
	containerPath   = "META-INF/container.xml"
	packageMimeType = "application/oebps-package+xml"
)

func readXML(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, markup.ErrNoRoot
	}
	return doc, nil
}

// attr returns attribute value. Key may carry namespace prefix, without it
// attribute is matched by local name only.
func attr(el *etree.Element, key string) string {
	space, local, ok := strings.Cut(key, ":")
	if !ok {
		space, local = "", key
	}
	for _, a := range el.Attr {
		if a.Key == local && (space == "" || a.Space == space) {
			return a.Value
		}
	}
	return ""
}

// children returns child elements with given local name.
func children(el *etree.Element, tag string) []*etree.Element {
	var res []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			res = append(res, c)
		}
	}
	return res
}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// findPackage locates package document through container.xml, books with
// broken container are searched for the first .opf file.
func (b *Book) findPackage() (string, error) {
	data, err := b.src.ReadFile(containerPath)
	if err == nil {
		if opf, ok := b.parseContainer(data); ok {
			return opf, nil
		}
	} else {
		b.log.Debug("Container is not readable", zap.Error(err))
	}

	var opf string
	if err := b.src.walk(func(name string) bool {
		if strings.EqualFold(path.Ext(name), ".opf") {
			opf = name
			return false
		}
		return true
	}); err != nil {
		return "", fmt.Errorf("unable to look for package document: %w", err)
	}
	if opf == "" {
		return "", ErrNoPackage
	}
	b.log.Warn("Package document found without container", zap.String("path", opf))
	return opf, nil
}

func (b *Book) parseContainer(data []byte) (string, bool) {
	doc, err := readXML(data)
	if err != nil {
		b.log.Warn("Unable to parse container", zap.Error(err))
		return "", false
	}
	rootfiles := child(doc.Root(), "rootfiles")
	if rootfiles == nil {
		return "", false
	}
	var first string
	for _, rf := range children(rootfiles, "rootfile") {
		full := attr(rf, "full-path")
		if full == "" {
			continue
		}
		if attr(rf, "media-type") == packageMimeType {
			return full, true
		}
		if first == "" {
			first = full
		}
	}
	return first, first != ""
}

func (b *Book) readPackage() error {
	data, err := b.src.ReadFile(b.opfPath)
	if err != nil {
		return fmt.Errorf("unable to read package document: %w", err)
	}
	doc, err := readXML(data)
	if err != nil {
		return fmt.Errorf("unable to parse package document %s: %w", b.opfPath, err)
	}
	pkg := doc.Root()
	if pkg.Tag != "package" {
		return fmt.Errorf("%s: %w: root is %q", b.opfPath, ErrNoPackage, pkg.Tag)
	}

	if md := child(pkg, "metadata"); md != nil {
		b.readMetadata(md, attr(pkg, "unique-identifier"))
	}
	if mf := child(pkg, "manifest"); mf != nil {
		b.readManifest(mf)
	}
	if sp := child(pkg, "spine"); sp != nil {
		b.readSpine(sp)
	}
	return nil
}

func (b *Book) readMetadata(md *etree.Element, uniqueID string) {
	var ids []string
	for _, el := range md.ChildElements() {
		text := strings.TrimSpace(el.Text())
		switch el.Tag {
		case "title":
			if b.Meta.Title == "" {
				b.Meta.Title = text
			}
		case "language":
			if b.Meta.Language == "" {
				b.Meta.Language = text
			}
		case "creator":
			if text != "" {
				b.Meta.Authors = append(b.Meta.Authors, text)
			}
		case "identifier":
			if attr(el, "id") == uniqueID && uniqueID != "" {
				ids = append([]string{text}, ids...)
			} else {
				ids = append(ids, text)
			}
		case "meta":
			if attr(el, "name") == "cover" {
				b.coverID = attr(el, "content")
			}
		}
	}
	if len(ids) > 0 {
		b.Meta.Identifier = NormalizeIdentifier(ids[0])
	}
}

// NormalizeIdentifier returns canonical form of UUID identifiers (with or
// without "urn:uuid:" prefix), other identifiers are returned trimmed.
func NormalizeIdentifier(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil && u != uuid.Nil {
		return u.String()
	}
	return id
}

func (b *Book) readManifest(mf *etree.Element) {
	for _, el := range children(mf, "item") {
		id, href := attr(el, "id"), attr(el, "href")
		if id == "" || href == "" {
			b.log.Debug("Manifest item without id or href", zap.String("id", id), zap.String("href", href))
			continue
		}
		p, err := layout.ResolvePath(b.opfPath, href)
		if err != nil {
			b.log.Debug("Manifest item is not in container", zap.String("href", href), zap.Error(err))
			continue
		}
		it := Item{
			ID:         id,
			Href:       p,
			MediaType:  attr(el, "media-type"),
			Properties: strings.Fields(attr(el, "properties")),
		}
		b.manifest[id] = len(b.items)
		if _, dup := b.byPath[p]; !dup {
			b.byPath[p] = len(b.items)
		}
		b.items = append(b.items, it)
	}
}

func (b *Book) readSpine(sp *etree.Element) {
	b.tocID = attr(sp, "toc")
	for _, el := range children(sp, "itemref") {
		idref := attr(el, "idref")
		i, ok := b.manifest[idref]
		if !ok {
			b.log.Warn("Spine references unknown item", zap.String("idref", idref))
			continue
		}
		it := b.items[i]
		if _, dup := b.index[it.Href]; dup {
			continue
		}
		b.index[it.Href] = len(b.spine)
		b.spine = append(b.spine, Section{
			ID:     it.ID,
			Path:   it.Href,
			Linear: attr(el, "linear") != "no",
		})
	}
}
