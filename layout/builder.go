package layout

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"folio/css"
	"folio/glyph"
	"folio/images"
	"folio/markup"
	"folio/style"
)

var (
	// ErrMarkupShape is reported when expected structural element is missing.
	ErrMarkupShape = errors.New("unexpected markup structure")
	// ErrImageUnresolved is reported when image source is not in the image table.
	ErrImageUnresolved = errors.New("image not resolved")
)

var blockTags = map[string]bool{
	"html": true, "body": true, "article": true, "section": true, "nav": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "hgroup": true, "header": true,
	"footer": true, "address": true, "p": true, "hr": true, "pre": true, "blockquote": true,
	"ol": true, "ul": true, "menu": true, "li": true, "dl": true, "dt": true, "dd": true, "figure": true,
	"figcaption": true, "main": true, "div": true, "table": true, "form": true, "fieldset": true,
	"legend": true, "details": true, "summary": true,
}

var skippedTags = map[string]bool{
	"head": true, "script": true, "style": true, "title": true, "template": true,
}

// IsBlockLevel reports whether tag starts a new block box.
func IsBlockLevel(tag string) bool {
	return blockTags[tag]
}

// ImageTable provides natural sizes and decode slots of document images.
type ImageTable interface {
	Lookup(path string) (*images.Entry, bool)
}

// Options control layout geometry.
type Options struct {
	Width         float64 // column width
	FontSize      float64 // base font size
	ListIndent    float64 // per nesting level
	CellPadding   float64 // horizontal gap between table cells
	MaxImageWidth float64 // 0 means column width
}

// Builder lays out document sections. It is safe to use from several
// goroutines as long as glyph cache is (it is).
type Builder struct {
	log    *zap.Logger
	glyphs *glyph.Cache
	images ImageTable
	opts   Options
}

// NewBuilder creates builder. Image table may be nil, all images are
// unresolved then.
func NewBuilder(glyphs *glyph.Cache, imgs ImageTable, opts Options, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Width <= 0 {
		panic("layout: column width must be positive")
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 16
	}
	return &Builder{
		log:    log.Named("layout"),
		glyphs: glyphs,
		images: imgs,
		opts:   opts,
	}
}

// run is state of a single Layout call.
type run struct {
	b        *Builder
	resolver *style.Resolver
	base     string
	anchors  map[string]IndexPath
	diag     error
	y        float64 // flow position
}

// Layout builds box tree for document root. Stylesheets are in document
// order, base path is used to resolve image references. Layout never fails,
// problems are collected in Page.Diagnostics.
func (b *Builder) Layout(root markup.Node, sheets []*css.Stylesheet, basePath string) *Page {
	r := &run{
		b:        b,
		resolver: style.NewResolver(sheets, b.log),
		base:     basePath,
		anchors:  make(map[string]IndexPath),
	}
	page := &Page{Anchors: r.anchors, Path: basePath}

	body, ok := markup.Body(root)
	if !ok {
		r.report(fmt.Errorf("%w: no body in %q", ErrMarkupShape, basePath))
		page.Root = &Elem{Lines: &Lines{}}
		page.Diagnostics = r.diag
		return page
	}

	ps := style.NewParseState(b.opts.Width, b.opts.FontSize)
	if root != body {
		_, rps, err := r.resolver.Resolve(root, ps)
		r.report(err)
		ps = rps
		ps.RootFontSize = ps.FontSize
		ps = ps.WithAncestor(root)
	}

	rootElem := &Elem{Block: &Block{}}
	bodyElem := r.layoutBlock(body, ps, IndexPath{0}, nil)
	rootElem.Block.Add(bodyElem)
	rootElem.Size = Size{W: b.opts.Width, H: r.y}
	settleAnchors(rootElem, r.anchors)
	page.Root = rootElem
	page.Diagnostics = r.diag

	b.log.Debug("Section laid out",
		zap.String("path", basePath),
		zap.Int("leaves", rootElem.LeafCount()),
		zap.Int("anchors", len(r.anchors)),
		zap.Float64("height", r.y))
	return page
}

func (r *run) report(err error) {
	if err == nil {
		return
	}
	r.diag = multierr.Append(r.diag, err)
	r.b.log.Debug("Layout problem", zap.String("path", r.base), zap.Error(err))
}

func (r *run) anchor(n markup.Node, path IndexPath) {
	id, ok := n.Attr("id")
	if !ok && n.Tag() == "a" {
		id, ok = n.Attr("name")
	}
	if !ok || id == "" {
		return
	}
	if _, exists := r.anchors[id]; !exists {
		r.anchors[id] = path.Clone()
	}
}

// settleAnchors re-points anchors whose pending inline run produced no leaf
// (empty trailing "<a id>") at the nearest preceding node.
func settleAnchors(root *Elem, anchors map[string]IndexPath) {
	for id, path := range anchors {
		if _, ok := root.Find(path); !ok {
			anchors[id] = nearestNode(root, path)
		}
	}
}

func nearestNode(root *Elem, path IndexPath) IndexPath {
	cur := root
	for i, idx := range path {
		if cur.IsLeaf() {
			return path[:i].Clone()
		}
		children := cur.Block.Children
		if idx >= len(children) {
			if len(children) == 0 {
				return path[:i].Clone()
			}
			return append(path[:i].Clone(), len(children)-1)
		}
		cur = children[idx]
	}
	return path
}

func (r *run) addLeaf(e *Elem, lines *Lines, x, width float64) {
	if lines == nil || len(lines.Lines) == 0 {
		return
	}
	e.Block.Add(&Elem{
		Origin: Point{X: x, Y: r.y},
		Size:   Size{W: width, H: lines.Height},
		Lines:  lines,
	})
	r.y += lines.Height
}

// layoutBlock lays out block level node. Prefix holds inline items which
// must start first line of the block (list markers).
func (r *run) layoutBlock(n markup.Node, ps style.ParseState, path IndexPath, prefix []InlineItem) *Elem {
	m, cps, err := r.resolver.Resolve(n, ps)
	r.report(err)
	r.anchor(n, path)

	cps.X += m.Left
	cps.Width = max(cps.Width-m.Left-m.Right, 1)

	if n.Tag() == "li" {
		format := cps.ListStyle
		if format == "" && cps.List.Kind == style.ListOrdered {
			format = "decimal"
		}
		if mk := Marker(format, cps.List.Item, cps.List.Depth); mk != "" {
			prefix = append([]InlineItem{r.shape(mk, cps, "")}, prefix...)
		}
	}

	top := r.y
	r.y += m.Top
	e := &Elem{
		Origin: Point{X: cps.X, Y: top},
		Block:  &Block{MarginTop: m.Top, MarginBottom: m.Bottom},
	}
	cps = cps.WithAncestor(n)

	switch tag := n.Tag(); {
	case tag == "pre" || cps.Pre:
		r.layoutPre(n, cps, e, prefix)
	case tag == "table":
		r.flushPrefix(e, cps, prefix)
		r.addLeaf(e, r.layoutTable(n, cps, path.Child(len(e.Block.Children))), cps.X, cps.Width)
	case tag == "ul" || tag == "ol" || tag == "menu":
		r.flushPrefix(e, cps, prefix)
		kind, start := style.ListUnordered, 1
		if tag == "ol" {
			kind, start = style.ListOrdered, style.ListStart(n)
		}
		indent := r.b.opts.ListIndent
		cps.List = cps.List.Enter(kind, start, indent)
		cps.X += indent
		cps.Width = max(cps.Width-indent, 1)
		r.layoutChildren(n, cps, e, path, nil)
	default:
		r.layoutChildren(n, cps, e, path, prefix)
	}

	r.y += m.Bottom
	e.Size = Size{W: cps.Width, H: r.y - top}
	return e
}

func (r *run) flushPrefix(e *Elem, ps style.ParseState, prefix []InlineItem) {
	if len(prefix) > 0 {
		r.addLeaf(e, BreakLines(prefix, ps.Width, ps.Align, true), ps.X, ps.Width)
	}
}

// layoutChildren accumulates inline runs and flushes them into Lines leaves
// whenever block level child is met.
func (r *run) layoutChildren(n markup.Node, ps style.ParseState, e *Elem, path IndexPath, prefix []InlineItem) {
	pending := prefix
	prefixOnly := len(prefix) > 0
	list := ps.List

	flush := func() {
		if hasContent(pending) {
			r.addLeaf(e, BreakLines(pending, ps.Width, ps.Align, true), ps.X, ps.Width)
		}
		pending, prefixOnly = nil, false
	}

	for _, c := range n.Children() {
		if skippedTags[c.Tag()] {
			continue
		}
		if IsBlockLevel(c.Tag()) {
			var childPrefix []InlineItem
			if prefixOnly {
				childPrefix, pending, prefixOnly = pending, nil, false
			} else {
				flush()
			}
			cps := ps
			if c.Tag() == "li" {
				list.Item++
				cps.List = list
			}
			e.Block.Add(r.layoutBlock(c, cps, path.Child(len(e.Block.Children)), childPrefix))
			continue
		}
		before := len(pending)
		pending = r.inline(c, ps, path.Child(len(e.Block.Children)), pending, "")
		if len(pending) > before {
			prefixOnly = false
		}
	}
	flush()
}

func hasContent(items []InlineItem) bool {
	for _, it := range items {
		if !it.space {
			return true
		}
	}
	return false
}

// collectInline gathers inline items of all node children.
func (r *run) collectInline(n markup.Node, ps style.ParseState, leaf IndexPath) []InlineItem {
	var items []InlineItem
	for _, c := range n.Children() {
		items = r.inline(c, ps, leaf, items, "")
	}
	return items
}

func endsWithBreak(items []InlineItem) bool {
	if len(items) == 0 {
		return true
	}
	_, ok := items[len(items)-1].Content.(lineBreak)
	return ok
}

// inline appends items of inline node to pending. Block level descendants of
// inline content are flattened and separated by line breaks. Leaf is the path
// pending items will be flushed to, inline anchors point there.
func (r *run) inline(n markup.Node, ps style.ParseState, leaf IndexPath, pending []InlineItem, href string) []InlineItem {
	if text, ok := n.Text(); ok {
		return r.textItems(text, ps, pending, href)
	}

	tag := n.Tag()
	switch {
	case skippedTags[tag]:
		return pending
	case tag == "br":
		r.anchor(n, leaf)
		return append(pending, r.breakItem(ps))
	case tag == "img":
		r.anchor(n, leaf)
		return r.imageItem(n, ps, pending)
	}

	_, cps, err := r.resolver.Resolve(n, ps)
	r.report(err)
	r.anchor(n, leaf)
	cps = cps.WithAncestor(n)
	if tag == "a" {
		if h, ok := n.Attr("href"); ok && h != "" {
			href = h
		}
	}

	block := IsBlockLevel(tag)
	if block && !endsWithBreak(pending) {
		pending = append(pending, r.breakItem(cps))
	}
	before := len(pending)
	for _, c := range n.Children() {
		pending = r.inline(c, cps, leaf, pending, href)
	}
	if block && len(pending) > before && !endsWithBreak(pending) {
		pending = append(pending, r.breakItem(cps))
	}
	return pending
}

// textItems segments text and shapes every run. Whitespace runs collapse to
// a single space and are dropped at the start of a run or after another
// space or break.
func (r *run) textItems(text string, ps style.ParseState, pending []InlineItem, href string) []InlineItem {
	text = norm.NFC.String(text)
	for _, seg := range Segment(text) {
		if isSpaceRun(seg) {
			if len(pending) == 0 || pending[len(pending)-1].space || endsWithBreak(pending) {
				continue
			}
			it := r.shape(" ", ps, "")
			it.space = true
			pending = append(pending, it)
			continue
		}
		pending = append(pending, r.shape(seg, ps, href))
	}
	return pending
}

// shape converts text run into positioned glyphs using glyph cache.
func (r *run) shape(text string, ps style.ParseState, href string) InlineItem {
	var (
		glyphs []Glyph
		x, h   float64
	)
	for _, ch := range text {
		g, handle, err := r.b.glyphs.GetOrInsert(ch, ps.FontSize, ps.FontWeight, ps.FontStyle)
		if err != nil {
			r.report(err)
			continue
		}
		glyphs = append(glyphs, Glyph{Handle: handle, X: float32(x)})
		x += g.Advance
		h = max(h, g.Height())
	}
	it := InlineItem{Width: x, Height: h}
	if href != "" {
		it.Content = Link{Glyphs: glyphs, Href: href}
	} else {
		it.Content = Text{Glyphs: glyphs}
	}
	return it
}

// lineHeight is height of a blank line in current font.
func (r *run) lineHeight(ps style.ParseState) float64 {
	g, _, err := r.b.glyphs.GetOrInsert(' ', ps.FontSize, ps.FontWeight, ps.FontStyle)
	if err != nil {
		r.report(err)
		return ps.FontSize
	}
	return g.Height()
}

func (r *run) breakItem(ps style.ParseState) InlineItem {
	return InlineItem{Content: lineBreak{height: r.lineHeight(ps)}}
}

func (r *run) imageItem(n markup.Node, ps style.ParseState, pending []InlineItem) []InlineItem {
	src, ok := n.Attr("src")
	if !ok || src == "" {
		r.report(fmt.Errorf("%w: img without src", ErrImageUnresolved))
		return pending
	}
	full, err := ResolvePath(r.base, src)
	if err != nil {
		r.report(fmt.Errorf("%w: %q: %w", ErrImageUnresolved, src, err))
		return pending
	}
	var entry *images.Entry
	if r.b.images != nil {
		entry, ok = r.b.images.Lookup(full)
	}
	if !ok || entry == nil {
		r.report(fmt.Errorf("%w: %q", ErrImageUnresolved, full))
		return pending
	}

	w, h := float64(entry.Width), float64(entry.Height)
	limit := r.b.opts.MaxImageWidth
	if limit <= 0 || limit > ps.Width {
		limit = ps.Width
	}
	if w > limit && w > 0 {
		h *= limit / w
		w = limit
	}
	return append(pending, InlineItem{
		Width:  w,
		Height: h,
		Content: Image{
			Width:  float64(entry.Width),
			Height: float64(entry.Height),
			Src:    full,
			Slot:   entry.Slot,
		},
	})
}

// layoutPre places preformatted text verbatim: explicit new lines only, no
// wrapping, nested markup contributes its text.
func (r *run) layoutPre(n markup.Node, ps style.ParseState, e *Elem, prefix []InlineItem) {
	text := norm.NFC.String(markup.TextContent(n))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "    ")
	// new line right after opening tag is not content
	text = strings.TrimPrefix(text, "\n")
	text = strings.TrimSuffix(text, "\n")

	out := &Lines{}
	if len(prefix) > 0 {
		out = BreakLines(prefix, ps.Width, style.AlignLeft, true)
	}
	if text != "" {
		blank := r.lineHeight(ps)
		for src := range strings.SplitSeq(text, "\n") {
			line := Line{Height: blank, Items: []InlineItem{{Height: blank, Content: Text{}}}}
			if src != "" {
				it := r.shape(src, ps, "")
				line = Line{Height: max(it.Height, blank), Width: it.Width, Items: []InlineItem{it}}
			}
			out.Lines = append(out.Lines, line)
			out.Height += line.Height
		}
	}
	r.addLeaf(e, out, ps.X, ps.Width)
}
