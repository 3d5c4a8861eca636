package paginate

import (
	"fmt"
	"math"
)

// Viewport is physical screen area, Scale > 1 zooms in.
type Viewport struct {
	Width  float64
	Height float64
	Scale  float64
}

// Geometry describes columns of a screen in logical (unscaled) units.
// Columns are separated and surrounded by equal gaps.
type Geometry struct {
	Columns      int
	ColumnWidth  float64
	ColumnHeight float64
	Gap          float64
	Scale        float64
}

// NewGeometry fits as many columns of given width as logical viewport
// allows, at least one, and spreads leftover width between gutters.
func NewGeometry(vp Viewport, columnWidth float64) Geometry {
	if vp.Scale <= 0 {
		vp.Scale = 1
	}
	if vp.Width <= 0 || vp.Height <= 0 || columnWidth <= 0 {
		panic(fmt.Sprintf("paginate: bad geometry %+v, column width %v", vp, columnWidth))
	}
	w, h := vp.Width/vp.Scale, vp.Height/vp.Scale
	cols := max(1, int(math.Floor(w/columnWidth)))
	return Geometry{
		Columns:      cols,
		ColumnWidth:  columnWidth,
		ColumnHeight: h,
		Gap:          max((w-float64(cols)*columnWidth)/float64(cols+1), 0),
		Scale:        vp.Scale,
	}
}

// ColumnX returns left edge of column i.
func (g Geometry) ColumnX(i int) float64 {
	return g.Gap + float64(i)*(g.ColumnWidth+g.Gap)
}

// ColumnAt returns column under logical x. Gap to the left of a column
// belongs to it, result is limited to existing columns.
func (g Geometry) ColumnAt(x float64) int {
	col := int(math.Floor(x / (g.ColumnWidth + g.Gap)))
	return min(max(col, 0), g.Columns-1)
}

// Logical converts physical screen point to logical units.
func (g Geometry) Logical(x, y float64) (float64, float64) {
	if g.Scale <= 0 {
		return x, y
	}
	return x / g.Scale, y / g.Scale
}
