// Package layout turns markup trees into positioned box trees.
package layout

import (
	"fmt"
	"strconv"
	"strings"

	"folio/glyph"
	"folio/images"
)

// IndexPath addresses a node of the box tree by child index at every Block
// level.
type IndexPath []int

// Clone returns independent copy of the path.
func (p IndexPath) Clone() IndexPath {
	if p == nil {
		return nil
	}
	return append(IndexPath(nil), p...)
}

// Child returns path of i-th child, receiver is never modified.
func (p IndexPath) Child(i int) IndexPath {
	return append(p[:len(p):len(p)], i)
}

// Compare orders paths lexicographically, a path sorts before all its
// descendants.
func (p IndexPath) Compare(q IndexPath) int {
	for i := 0; i < len(p) && i < len(q); i++ {
		switch {
		case p[i] < q[i]:
			return -1
		case p[i] > q[i]:
			return 1
		}
	}
	switch {
	case len(p) < len(q):
		return -1
	case len(p) > len(q):
		return 1
	}
	return 0
}

func (p IndexPath) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.Itoa(v)
	}
	return "/" + strings.Join(parts, "/")
}

// Point is a location in device units.
type Point struct {
	X, Y float64
}

// Size is extent in device units.
type Size struct {
	W, H float64
}

// Elem is a box tree node. Exactly one of Block and Lines is set, only
// Lines nodes are leaves.
type Elem struct {
	Size   Size
	Origin Point // absolute position in document flow
	Block  *Block
	Lines  *Lines
}

// IsLeaf reports whether element holds lines.
func (e *Elem) IsLeaf() bool {
	return e.Lines != nil
}

// MustBlock returns block of the element. Calling it on a leaf is a
// programming error.
func (e *Elem) MustBlock() *Block {
	if e.Block == nil {
		panic("layout: lines element used as block")
	}
	return e.Block
}

// MustLines returns lines of the element. Calling it on a block is a
// programming error.
func (e *Elem) MustLines() *Lines {
	if e.Lines == nil {
		panic("layout: block element used as lines")
	}
	return e.Lines
}

// LeafCount returns number of Lines leaves in the subtree.
func (e *Elem) LeafCount() int {
	if e.Lines != nil {
		return 1
	}
	return e.Block.LeafCount
}

// Find returns element addressed by path and whether path is valid.
func (e *Elem) Find(path IndexPath) (*Elem, bool) {
	cur := e
	for _, i := range path {
		if cur.Block == nil || i < 0 || i >= len(cur.Block.Children) {
			return nil, false
		}
		cur = cur.Block.Children[i]
	}
	return cur, true
}

// Block is a container of elements.
type Block struct {
	Children     []*Elem
	LeafCount    int
	MarginTop    float64
	MarginBottom float64
}

// Add appends child and maintains leaf count.
func (b *Block) Add(e *Elem) {
	b.LeafCount += e.LeafCount()
	b.Children = append(b.Children, e)
}

// Lines is a leaf holding laid out lines.
type Lines struct {
	Height float64
	Lines  []Line
}

// ItemCount returns number of inline items in all lines.
func (l *Lines) ItemCount() int {
	n := 0
	for i := range l.Lines {
		n += len(l.Lines[i].Items)
	}
	return n
}

// LineAt returns index of the line containing item offset, len(Lines) when
// offset is past the last item.
func (l *Lines) LineAt(offset int) int {
	start := 0
	for i := range l.Lines {
		next := start + len(l.Lines[i].Items)
		if offset < next {
			return i
		}
		start = next
	}
	return len(l.Lines)
}

// Line is a single row of inline items. Every line has at least one item,
// blank lines hold an empty text item.
type Line struct {
	Height float64
	Width  float64 // extent of items before alignment
	Items  []InlineItem
}

// InlineItem is positioned content, X is relative to the containing leaf.
type InlineItem struct {
	X       float64
	Width   float64
	Height  float64
	Content Content

	space bool // collapsed whitespace
}

// Content is a variant of inline item payload: Text, Image or Link.
type Content interface {
	isContent()
}

// Glyph is a positioned glyph of a run, X is relative to the item left edge.
type Glyph struct {
	Handle glyph.Handle
	X      float32
}

// Text is a run of glyphs.
type Text struct {
	Glyphs []Glyph
}

// Image references natural size and decode slot of an image.
type Image struct {
	Width  float64 // natural pixel size
	Height float64
	Src    string // resolved path
	Slot   *images.Slot
}

// Link is a run of glyphs pointing somewhere.
type Link struct {
	Glyphs []Glyph
	Href   string
}

// lineBreak is forced line break, never survives line breaking.
type lineBreak struct {
	height float64
}

func (Text) isContent()      {}
func (Image) isContent()     {}
func (Link) isContent()      {}
func (lineBreak) isContent() {}

// Glyphs returns glyph run of text and link content.
func Glyphs(c Content) []Glyph {
	switch v := c.(type) {
	case Text:
		return v.Glyphs
	case Link:
		return v.Glyphs
	}
	return nil
}

// Page is layout result for one document section.
type Page struct {
	Root    *Elem
	Anchors map[string]IndexPath
	Path    string // section path images were resolved against
	// Diagnostics combines all recoverable problems met during layout.
	Diagnostics error
}

// Anchor returns path for identifier.
func (p *Page) Anchor(id string) (IndexPath, bool) {
	path, ok := p.Anchors[id]
	return path, ok
}

func (p *Page) String() string {
	return fmt.Sprintf("page %s: %d leaves, %d anchors", p.Path, p.Root.LeafCount(), len(p.Anchors))
}
