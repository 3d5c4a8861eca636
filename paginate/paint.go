package paginate

import (
	"folio/layout"
)

// NavigationState is the cursor of a section. Start is set by navigation,
// End is always derived by the latest paint. When Direction is Backward the
// next paint derives Start from End instead.
type NavigationState struct {
	Start     Position
	End       Position
	Direction Direction
	// StartOffsetY is flow position of the first painted line.
	StartOffsetY float64
}

// PlacedLine is a line positioned on screen in logical units.
type PlacedLine struct {
	Path   layout.IndexPath // leaf holding the line
	Index  int              // line index within leaf
	Offset int              // item offset of the first item
	Column int
	X, Y   float64 // line origin, items are relative to it
	Line   *layout.Line
}

// Frame is a single painted screen.
type Frame struct {
	Geometry Geometry
	Start    Position
	End      Position
	Lines    []PlacedLine // document order
}

// Paint fills one screen starting at state Start. A backward state first
// finds Start for the screen ending at End; when there is not enough content
// before End the screen starts at document origin. Frames are always filled
// forward, so returned state is forward and carries new End. Paint does not
// modify its arguments.
func Paint(root *layout.Elem, geo Geometry, st NavigationState) (*Frame, NavigationState) {
	if st.Direction == Backward {
		st.Start = startBefore(root, geo, st.End)
		st.Direction = Forward
	}

	frame := &Frame{Geometry: geo, Start: st.Start}
	st.StartOffsetY = 0
	frame.End = fill(root, geo, st.Start, func(ref lineRef, col int, y float64) {
		if len(frame.Lines) == 0 {
			st.StartOffsetY = ref.Y
		}
		frame.Lines = append(frame.Lines, PlacedLine{
			Path:   ref.Path,
			Index:  ref.Index,
			Offset: ref.Offset,
			Column: col,
			X:      geo.ColumnX(col) + ref.Leaf.Origin.X,
			Y:      y,
			Line:   ref.line(),
		})
	})
	st.End = frame.End
	return frame, st
}

// fill places lines from start onto one screen and returns position of the
// first line which did not fit. visit, when not nil, gets every placed line.
func fill(root *layout.Elem, geo Geometry, start Position, visit func(ref lineRef, col int, y float64)) Position {
	p := placer{geo: geo, dir: Forward}
	for ref := range lines(root, start, Forward) {
		col, y, ok := p.place(ref.Y, ref.line().Height)
		if !ok {
			return ref.position()
		}
		if visit != nil {
			visit(ref, col, y)
		}
	}
	return Terminal(root)
}

// startBefore returns start of the screen ending at end. Screens are cut
// forward from the origin, so an end reached by paging forward leads back
// to exactly the screen it was reached from. Any other end gets the start
// found by filling columns backward, moved down until its screen reaches end.
func startBefore(root *layout.Elem, geo Geometry, end Position) Position {
	for start := Origin(); ; {
		next := fill(root, geo, start, nil)
		if next.Equal(end) {
			return start
		}
		if next.Compare(end) > 0 || next.Compare(start) <= 0 {
			break
		}
		start = next
	}

	start := fillBackward(root, geo, end)
	for start.Compare(end) < 0 && fill(root, geo, start, nil).Compare(end) < 0 {
		next, ok := lineAfter(root, start)
		if !ok {
			break
		}
		start = next
	}
	return start
}

// fillBackward returns position of the earliest line which still fits on a
// screen filled from end towards the origin.
func fillBackward(root *layout.Elem, geo Geometry, end Position) Position {
	var (
		p     = placer{geo: geo, dir: Backward}
		start Position
	)
	for ref := range lines(root, end, Backward) {
		if _, _, ok := p.place(ref.Y, ref.line().Height); !ok {
			return start
		}
		start = ref.position()
	}
	return Origin()
}

// lineAfter returns position of the line following the one containing pos.
func lineAfter(root *layout.Elem, pos Position) (Position, bool) {
	skip := true
	for ref := range lines(root, pos, Forward) {
		if skip {
			skip = false
			continue
		}
		return ref.position(), true
	}
	return Position{}, false
}

// ItemAt returns line and item under logical point.
func (f *Frame) ItemAt(x, y float64) (*PlacedLine, *layout.InlineItem, bool) {
	col := f.Geometry.ColumnAt(x)
	for i := range f.Lines {
		pl := &f.Lines[i]
		if pl.Column != col || y < pl.Y || y >= pl.Y+pl.Line.Height {
			continue
		}
		for j := range pl.Line.Items {
			it := &pl.Line.Items[j]
			left := pl.X + it.X
			if x >= left && x < left+it.Width {
				return pl, it, true
			}
		}
	}
	return nil, nil, false
}

// LinkAt returns target of the link under physical screen point.
func LinkAt(f *Frame, x, y float64) (string, bool) {
	x, y = f.Geometry.Logical(x, y)
	_, it, ok := f.ItemAt(x, y)
	if !ok {
		return "", false
	}
	if link, ok := it.Content.(layout.Link); ok {
		return link.Href, true
	}
	return "", false
}
