package layout

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"folio/glyph"
	"folio/utils/debug"
)

// Dump renders box tree of the page as indented text. Glyph runs are turned
// back into text using the cache they were shaped with.
func Dump(p *Page, glyphs *glyph.Cache) string {
	tw := debug.NewTreeWriter()
	tw.Enter("page %q", p.Path)
	dumpElem(tw, p.Root, nil, glyphs)
	if len(p.Anchors) > 0 {
		tw.Enter("anchors")
		for _, id := range slices.Sorted(maps.Keys(p.Anchors)) {
			tw.Line("%s -> %s", id, p.Anchors[id])
		}
		tw.Leave()
	}
	tw.Leave()
	return tw.String()
}

func dumpElem(tw *debug.TreeWriter, e *Elem, path IndexPath, glyphs *glyph.Cache) {
	if e.IsLeaf() {
		tw.Enter("lines %s at (%.1f, %.1f) %.1fx%.1f", path, e.Origin.X, e.Origin.Y, e.Size.W, e.Size.H)
		for i, l := range e.Lines.Lines {
			tw.Enter("line %d h=%.1f w=%.1f", i, l.Height, l.Width)
			for _, it := range l.Items {
				dumpItem(tw, it, glyphs)
			}
			tw.Leave()
		}
		tw.Leave()
		return
	}
	tw.Enter("block %s at (%.1f, %.1f) %.1fx%.1f leaves=%d", path, e.Origin.X, e.Origin.Y, e.Size.W, e.Size.H, e.Block.LeafCount)
	for i, c := range e.Block.Children {
		dumpElem(tw, c, path.Child(i), glyphs)
	}
	tw.Leave()
}

func dumpItem(tw *debug.TreeWriter, it InlineItem, glyphs *glyph.Cache) {
	switch c := it.Content.(type) {
	case Text:
		tw.Text(fmt.Sprintf("text x=%.1f w=%.1f", it.X, it.Width), RunText(c.Glyphs, glyphs))
	case Link:
		tw.Text(fmt.Sprintf("link x=%.1f w=%.1f href=%s", it.X, it.Width, c.Href), RunText(c.Glyphs, glyphs))
	case Image:
		tw.Line("image x=%.1f %.1fx%.1f src=%s", it.X, it.Width, it.Height, c.Src)
	}
}

// RunText returns characters of a glyph run.
func RunText(run []Glyph, glyphs *glyph.Cache) string {
	var sb strings.Builder
	for _, g := range run {
		sb.WriteRune(glyphs.Get(g.Handle).Rune)
	}
	return sb.String()
}
