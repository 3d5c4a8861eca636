// Package selection decides which glyphs of a painted screen are covered by
// a mouse drag, selections may span several columns.
package selection

import (
	"strings"

	"folio/glyph"
	"folio/layout"
	"folio/paginate"
)

// Point is a location in logical screen units.
type Point struct {
	X, Y float64
}

// Rect is a glyph box in logical screen units.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

type end struct {
	Point
	col int
}

// Selection is a normalized drag: start precedes end in reading order.
type Selection struct {
	start, end end
}

// New normalizes press and move points. Points in different columns are
// ordered by column, points in one column by line and then by x.
func New(geo paginate.Geometry, press, move Point) Selection {
	a := end{Point: press, col: geo.ColumnAt(press.X)}
	b := end{Point: move, col: geo.ColumnAt(move.X)}
	swap := false
	switch {
	case a.col != b.col:
		swap = a.col > b.col
	case a.Y != b.Y:
		swap = a.Y > b.Y
	default:
		swap = a.X > b.X
	}
	if swap {
		a, b = b, a
	}
	return Selection{start: a, end: b}
}

// Hit reports whether glyph box in column col is selected. Glyph belongs
// to the selection by its horizontal center.
func (s Selection) Hit(col int, box Rect) bool {
	cx := (box.X0 + box.X1) / 2
	inStart := box.Y0 <= s.start.Y && s.start.Y < box.Y1
	inEnd := box.Y0 <= s.end.Y && s.end.Y < box.Y1

	if s.start.col == s.end.col {
		if col != s.start.col {
			return false
		}
		switch {
		case inStart && inEnd:
			lo, hi := min(s.start.X, s.end.X), max(s.start.X, s.end.X)
			return cx > lo && cx < hi
		case inStart:
			return cx > s.start.X
		case inEnd:
			return cx < s.end.X
		}
		return box.Y0 >= s.start.Y && box.Y1 <= s.end.Y
	}

	switch {
	case col < s.start.col || col > s.end.col:
		return false
	case col == s.start.col:
		if inStart {
			return cx > s.start.X
		}
		return box.Y0 >= s.start.Y
	case col == s.end.col:
		if inEnd {
			return cx < s.end.X
		}
		return box.Y1 <= s.end.Y
	}
	return true
}

// Glyph identifies selected glyph of a frame.
type Glyph struct {
	Line  int // index in frame lines
	Item  int
	Glyph int
}

// Result is selected glyphs in document order and their text, glyphs of
// different lines are separated by new lines.
type Result struct {
	Glyphs []Glyph
	Text   string
}

// Collect selects glyphs of the frame between physical press and move
// points. Glyph metrics come from the cache the frame was shaped with.
func Collect(frame *paginate.Frame, glyphs *glyph.Cache, press, move Point) Result {
	geo := frame.Geometry
	press.X, press.Y = geo.Logical(press.X, press.Y)
	move.X, move.Y = geo.Logical(move.X, move.Y)
	sel := New(geo, press, move)

	var (
		res  Result
		sb   strings.Builder
		last = -1
	)
	for i, pl := range frame.Lines {
		box := Rect{Y0: pl.Y, Y1: pl.Y + pl.Line.Height}
		for j, it := range pl.Line.Items {
			for k, g := range layout.Glyphs(it.Content) {
				shaped := glyphs.Get(g.Handle)
				box.X0 = pl.X + it.X + float64(g.X)
				box.X1 = box.X0 + shaped.Advance
				if !sel.Hit(pl.Column, box) {
					continue
				}
				if last >= 0 && last != i {
					sb.WriteByte('\n')
				}
				last = i
				sb.WriteRune(shaped.Rune)
				res.Glyphs = append(res.Glyphs, Glyph{Line: i, Item: j, Glyph: k})
			}
		}
	}
	res.Text = sb.String()
	return res
}
