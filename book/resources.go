package book

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"folio/css"
	"folio/images"
	"folio/markup"
)

// importDepth limits @import chains.
const importDepth = 4

// Markup reads and parses section at spine index.
func (b *Book) Markup(i int) (markup.Node, error) {
	if i < 0 || i >= len(b.spine) {
		return nil, fmt.Errorf("section %d is out of range [0, %d)", i, len(b.spine))
	}
	p := b.spine[i].Path
	data, err := b.src.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("unable to read section %s: %w", p, err)
	}
	return markup.Parse(data, p, b.log)
}

// Stylesheets returns stylesheets of the section in document order: linked
// sheets (with their imports spliced before them) and style elements from
// head. Linked sheets are parsed once and shared between sections.
func (b *Book) Stylesheets(sectionPath string, root markup.Node) []*css.Stylesheet {
	if root == nil {
		return nil
	}
	head := markup.FirstChild(root, "head")
	if head == nil {
		return nil
	}

	var sheets []*css.Stylesheet
	for i, n := range head.Children() {
		switch n.Tag() {
		case "link":
			rel, _ := n.Attr("rel")
			href, _ := n.Attr("href")
			media, _ := n.Attr("media")
			if href == "" || !slices.Contains(strings.Fields(strings.ToLower(rel)), "stylesheet") || !mediaApplies(media) {
				continue
			}
			p, ok := resolveHref(sectionPath, href)
			if !ok {
				b.log.Debug("Skipping external stylesheet", zap.String("href", href))
				continue
			}
			sheets = b.linked(sheets, strings.SplitN(p, "#", 2)[0], 0, nil)
		case "style":
			media, _ := n.Attr("media")
			if !mediaApplies(media) {
				continue
			}
			sheets = append(sheets, b.parser.Parse([]byte(markup.TextContent(n)), fmt.Sprintf("%s#style[%d]", sectionPath, i)))
		}
	}
	return sheets
}

// linked appends sheet at path preceded by its imports.
func (b *Book) linked(sheets []*css.Stylesheet, p string, depth int, seen []string) []*css.Stylesheet {
	if depth > importDepth || slices.Contains(seen, p) {
		b.log.Debug("Stylesheet import cycle or chain too deep", zap.String("path", p))
		return sheets
	}
	sheet, ok := b.sheet(p)
	if !ok {
		return sheets
	}
	seen = append(seen, p)
	for _, imp := range sheet.Imports() {
		ip, ok := resolveHref(p, imp)
		if !ok {
			continue
		}
		sheets = b.linked(sheets, strings.SplitN(ip, "#", 2)[0], depth+1, seen)
	}
	return append(sheets, sheet)
}

func (b *Book) sheet(p string) (*css.Stylesheet, bool) {
	b.sheetsMu.Lock()
	defer b.sheetsMu.Unlock()

	if sheet, ok := b.sheets[p]; ok {
		return sheet, sheet != nil
	}
	data, err := b.src.ReadFile(p)
	if err != nil {
		b.log.Warn("Unable to read stylesheet", zap.String("path", p), zap.Error(err))
		b.sheets[p] = nil
		return nil, false
	}
	sheet := b.parser.Parse(data, p)
	for _, w := range sheet.Warnings {
		b.log.Debug("Stylesheet warning", zap.String("path", p), zap.String("warning", w))
	}
	b.sheets[p] = sheet
	return sheet, true
}

// mediaApplies evaluates media attribute of link and style elements for
// screen rendering. Empty list applies.
func mediaApplies(media string) bool {
	media = strings.TrimSpace(strings.ToLower(media))
	if media == "" {
		return true
	}
	for _, q := range strings.Split(media, ",") {
		words := strings.Fields(q)
		if len(words) == 0 {
			continue
		}
		negate := false
		switch words[0] {
		case "not":
			negate = true
			words = words[1:]
		case "only":
			words = words[1:]
		}
		typ := "all"
		if len(words) > 0 && !strings.HasPrefix(words[0], "(") {
			typ = words[0]
		}
		match := typ == "all" || typ == css.MediaScreen
		if match != negate {
			return true
		}
	}
	return false
}

// ImageTable probes natural sizes of all manifest images. Table is built
// once, images which cannot be probed are left out and reported.
func (b *Book) ImageTable() *images.Table {
	b.imgOnce.Do(func() {
		b.images = images.NewTable()
		for _, it := range b.items {
			if !strings.HasPrefix(it.MediaType, "image/") {
				continue
			}
			data, err := b.src.ReadFile(it.Href)
			if err != nil {
				b.log.Warn("Unable to read image", zap.String("path", it.Href), zap.Error(err))
				continue
			}
			kind, w, h, err := images.Probe(data)
			if err != nil {
				b.log.Warn("Unable to probe image", zap.String("path", it.Href), zap.Error(err))
				continue
			}
			b.images.Add(&images.Entry{Path: it.Href, Kind: kind, Width: w, Height: h})
		}
		b.log.Debug("Image table built", zap.Int("images", b.images.Len()))
	})
	return b.images
}
