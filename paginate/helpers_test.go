package paginate

import (
	"folio/layout"
)

// stack builds a block root with one leaf per entry, every leaf holding that
// many lines of height h, one item per line, leaves stacked without gaps.
func stack(h float64, leafLines ...int) *layout.Elem {
	root := &layout.Elem{Block: &layout.Block{}}
	var y float64
	for _, n := range leafLines {
		leaf := linesLeaf(n, h)
		leaf.Origin.Y = y
		y += leaf.Size.H
		root.Block.Add(leaf)
	}
	root.Size = layout.Size{W: 100, H: y}
	return root
}

func linesLeaf(n int, h float64) *layout.Elem {
	ls := &layout.Lines{}
	for range n {
		ls.Lines = append(ls.Lines, layout.Line{
			Height: h,
			Width:  10,
			Items:  []layout.InlineItem{{Width: 10, Height: h, Content: layout.Text{}}},
		})
		ls.Height += h
	}
	return &layout.Elem{Size: layout.Size{W: 100, H: ls.Height}, Lines: ls}
}

func geometry(cols int, height float64) Geometry {
	return NewGeometry(Viewport{Width: float64(cols) * 100, Height: height, Scale: 1}, 100)
}

func pos(offset int, path ...int) Position {
	return Position{Path: layout.IndexPath(path), Offset: offset}
}

// leaf builds a lines leaf with one line per height.
func leaf(heights ...float64) *layout.Elem {
	ls := &layout.Lines{}
	for _, h := range heights {
		ls.Lines = append(ls.Lines, layout.Line{
			Height: h,
			Width:  10,
			Items:  []layout.InlineItem{{Width: 10, Height: h, Content: layout.Text{}}},
		})
		ls.Height += h
	}
	return &layout.Elem{Size: layout.Size{W: 100, H: ls.Height}, Lines: ls}
}

// spaced stacks leaves under a block root separating them with margin above
// and below each leaf, the way paragraph margins do.
func spaced(margin float64, leaves ...*layout.Elem) *layout.Elem {
	root := &layout.Elem{Block: &layout.Block{}}
	var y float64
	for _, l := range leaves {
		y += margin
		l.Origin.Y = y
		y += l.Size.H + margin
		root.Block.Add(l)
	}
	root.Size = layout.Size{W: 100, H: y}
	return root
}

func repeat(n int, build func(i int) *layout.Elem) []*layout.Elem {
	out := make([]*layout.Elem, n)
	for i := range out {
		out[i] = build(i)
	}
	return out
}
