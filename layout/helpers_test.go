package layout

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"folio/css"
	"folio/glyph"
	"folio/markup"
)

// fixedShaper gives every character the same metrics.
type fixedShaper struct{}

func (fixedShaper) Shape(r rune, _ float64, _ uint16, _ glyph.Style) glyph.Shaped {
	return glyph.Shaped{Rune: r, Advance: 10, Ascent: 8, Descent: 2}
}

func newTestBuilder(t *testing.T, opts Options, imgs ImageTable) (*Builder, *glyph.Cache) {
	t.Helper()
	cache := glyph.NewCache(fixedShaper{}, zap.NewNop())
	return NewBuilder(cache, imgs, opts, zaptest.NewLogger(t)), cache
}

func layoutDoc(t *testing.T, b *Builder, doc, base string, sheets ...string) *Page {
	t.Helper()
	root, err := markup.ParseXHTML([]byte(doc))
	if err != nil {
		t.Fatalf("ParseXHTML: %v", err)
	}
	p := css.NewParser(zap.NewNop())
	var parsed []*css.Stylesheet
	for _, s := range sheets {
		parsed = append(parsed, p.Parse([]byte(s)))
	}
	return b.Layout(root, parsed, base)
}

// leaves returns Lines leaves in document order.
func leaves(e *Elem) []*Elem {
	if e.IsLeaf() {
		return []*Elem{e}
	}
	var out []*Elem
	for _, c := range e.Block.Children {
		out = append(out, leaves(c)...)
	}
	return out
}

func itemText(cache *glyph.Cache, it InlineItem) string {
	return RunText(Glyphs(it.Content), cache)
}

func lineText(cache *glyph.Cache, l Line) []string {
	out := make([]string, len(l.Items))
	for i, it := range l.Items {
		out[i] = itemText(cache, it)
	}
	return out
}

// textItem makes test item of given width.
func textItem(w float64) InlineItem {
	return InlineItem{Width: w, Height: 10, Content: Text{}}
}

func spaceItem(w float64) InlineItem {
	return InlineItem{Width: w, Height: 10, Content: Text{}, space: true}
}
