package paginate

import (
	"iter"
	"math"

	"folio/layout"
)

// Direction of a traversal. Child order, column fill order and the boundary
// test all flip together.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// lineRef is a line met during traversal.
type lineRef struct {
	Path   layout.IndexPath // leaf path
	Leaf   *layout.Elem
	Index  int     // line index in leaf
	Offset int     // item offset of the first item of the line
	Y      float64 // flow position of the line top
}

func (r lineRef) line() *layout.Line {
	return &r.Leaf.Lines.Lines[r.Index]
}

func (r lineRef) position() Position {
	return Position{Path: r.Path, Offset: r.Offset}
}

// lines visits lines of the tree. Going forward it starts with the line
// containing position, going backward it yields lines entirely before
// position, last one first.
func lines(root *layout.Elem, from Position, dir Direction) iter.Seq[lineRef] {
	return func(yield func(lineRef) bool) {
		walkElem(root, nil, from, dir, yield)
	}
}

func walkElem(e *layout.Elem, path layout.IndexPath, from Position, dir Direction, yield func(lineRef) bool) bool {
	if e.IsLeaf() {
		return walkLeaf(e, path, from, dir, yield)
	}
	children := e.MustBlock().Children
	for k := range children {
		i := k
		if dir == Backward {
			i = len(children) - 1 - k
		}
		cp := path.Child(i)
		if !dir.reaches(cp, from.Path) {
			continue
		}
		if !walkElem(children[i], cp, from, dir, yield) {
			return false
		}
	}
	return true
}

// reaches reports whether subtree at sub may hold lines visited when
// traversal starts at path from.
func (d Direction) reaches(sub, from layout.IndexPath) bool {
	if len(sub) < len(from) && sub.Compare(from[:len(sub)]) == 0 {
		return true
	}
	if d == Forward {
		return sub.Compare(from) >= 0
	}
	return sub.Compare(from) <= 0
}

func walkLeaf(e *layout.Elem, path layout.IndexPath, from Position, dir Direction, yield func(lineRef) bool) bool {
	ls := e.Lines.Lines
	first, last := 0, len(ls)
	if path.Compare(from.Path) == 0 {
		at := e.Lines.LineAt(from.Offset)
		if dir == Forward {
			first = at
		} else {
			last = at
		}
	}
	if first >= last {
		return true
	}

	offsets := make([]int, len(ls))
	ys := make([]float64, len(ls))
	off, y := 0, e.Origin.Y
	for i := range ls {
		offsets[i], ys[i] = off, y
		off += len(ls[i].Items)
		y += ls[i].Height
	}

	for k := range last - first {
		i := first + k
		if dir == Backward {
			i = last - 1 - k
		}
		if !yield(lineRef{Path: path, Leaf: e, Index: i, Offset: offsets[i], Y: ys[i]}) {
			return false
		}
	}
	return true
}

const epsilon = 1e-6

// placer assigns lines to columns. Lines come in traversal order, their
// distance from the first line decides the column. A line which would cross
// column bottom moves to the next column together with all lines after it.
// Going backward distances are measured up from the bottom of the first
// line and columns fill from the last one.
type placer struct {
	geo   Geometry
	dir   Direction
	base  float64
	shift float64
	began bool
}

// place returns column and local y of line top, false when line does not
// fit on screen.
func (p *placer) place(y, h float64) (int, float64, bool) {
	if !p.began {
		p.began = true
		p.base = y
		if p.dir == Backward {
			p.base = y + h
		}
	}
	rel := y - p.base
	if p.dir == Backward {
		rel = p.base - (y + h)
	}
	rel = max(rel, 0) + p.shift

	height := p.geo.ColumnHeight
	col := int(math.Floor(rel/height + epsilon))
	top := float64(col) * height
	if rel+h > top+height+epsilon && rel > top+epsilon {
		// line straddles column bottom, tall lines start at column top
		d := top + height - rel
		p.shift += d
		rel += d
		col++
		top += height
	}
	if col >= p.geo.Columns {
		return 0, 0, false
	}
	local := max(rel-top, 0)
	if p.dir == Backward {
		return p.geo.Columns - 1 - col, height - local - h, true
	}
	return col, local, true
}
