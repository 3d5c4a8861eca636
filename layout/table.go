package layout

import (
	"slices"

	"folio/markup"
	"folio/style"
)

const epsilon = 1e-9

// ResolveColumnWidths distributes total width between columns. Every column
// gets its minimum, the rest is shared proportionally to each column slack
// (max - min) and never exceeds column maximum. When minimums alone do not
// fit, they are scaled down proportionally.
func ResolveColumnWidths(mins, maxs []float64, total float64) []float64 {
	widths := slices.Clone(mins)
	if len(widths) == 0 {
		return widths
	}

	var sumMin float64
	for _, m := range mins {
		sumMin += m
	}
	if sumMin > total {
		if sumMin <= 0 {
			return widths
		}
		scale := max(total, 0) / sumMin
		for i := range widths {
			widths[i] *= scale
		}
		return widths
	}

	slack := make([]float64, len(mins))
	for i := range mins {
		if i < len(maxs) {
			slack[i] = max(maxs[i]-mins[i], 0)
		}
	}

	remaining := total - sumMin
	for remaining > epsilon {
		var totalSlack float64
		for _, s := range slack {
			totalSlack += s
		}
		if totalSlack <= epsilon {
			break
		}
		var distributed float64
		for i := range widths {
			if slack[i] <= 0 {
				continue
			}
			give := min(remaining*slack[i]/totalSlack, slack[i])
			widths[i] += give
			slack[i] -= give
			distributed += give
		}
		if distributed <= epsilon {
			break
		}
		remaining -= distributed
	}
	return widths
}

type tableCell struct {
	ps    style.ParseState
	items []InlineItem
}

type tableRow struct {
	ancestors []markup.Node // row group (if any) and tr
	cells     []markup.Node
}

// tableRows collects rows of a table: tr children of table itself and of its
// row groups, each row keeps td and th cells.
func tableRows(table markup.Node) []tableRow {
	var rows []tableRow
	addRow := func(tr markup.Node, anc ...markup.Node) {
		row := tableRow{ancestors: append(anc, tr)}
		for _, c := range tr.Children() {
			if t := c.Tag(); t == "td" || t == "th" {
				row.cells = append(row.cells, c)
			}
		}
		rows = append(rows, row)
	}
	for _, c := range table.Children() {
		switch c.Tag() {
		case "tr":
			addRow(c)
		case "thead", "tbody", "tfoot":
			for _, tr := range c.Children() {
				if tr.Tag() == "tr" {
					addRow(tr, c)
				}
			}
		}
	}
	return rows
}

// layoutTable lays out table into a single Lines leaf. Cells are measured
// unconstrained first, then broken at their resolved column widths. Rows are
// as tall as their tallest cell, cells are separated horizontally by cell
// padding only.
func (r *run) layoutTable(n markup.Node, ps style.ParseState, path IndexPath) *Lines {
	rows := tableRows(n)
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row.cells))
	}
	if cols == 0 {
		return &Lines{}
	}

	pad := r.b.opts.CellPadding
	cells := make([][]tableCell, len(rows))
	mins := make([]float64, cols)
	maxs := make([]float64, cols)
	for i, row := range rows {
		rps := ps
		for _, a := range row.ancestors {
			rps = rps.WithAncestor(a)
		}
		for j, cn := range row.cells {
			_, cps, err := r.resolver.Resolve(cn, rps)
			r.report(err)
			cps = cps.WithAncestor(cn)
			r.anchor(cn, path)

			c := tableCell{ps: cps}
			c.items = r.collectInline(cn, cps, path)
			var widest, sum float64
			for _, it := range c.items {
				widest = max(widest, it.Width)
				sum += it.Width
			}
			mins[j] = max(mins[j], widest)
			maxs[j] = max(maxs[j], sum)
			cells[i] = append(cells[i], c)
		}
	}
	for j := range maxs {
		maxs[j] = max(maxs[j], mins[j])
	}

	total := max(ps.Width-pad*float64(cols-1), 0)
	widths := ResolveColumnWidths(mins, maxs, total)
	offsets := make([]float64, cols)
	for j := 1; j < cols; j++ {
		offsets[j] = offsets[j-1] + widths[j-1] + pad
	}

	out := &Lines{}
	for _, row := range cells {
		broken := make([]*Lines, len(row))
		height := 0
		for j, c := range row {
			broken[j] = BreakLines(c.items, widths[j], c.ps.Align, !c.ps.Pre)
			height = max(height, len(broken[j].Lines))
		}
		for k := range height {
			line := Line{Width: ps.Width}
			for j, cl := range broken {
				if k >= len(cl.Lines) {
					continue
				}
				src := cl.Lines[k]
				line.Height = max(line.Height, src.Height)
				for _, it := range src.Items {
					it.X += offsets[j]
					line.Items = append(line.Items, it)
				}
			}
			if len(line.Items) == 0 {
				continue
			}
			out.Lines = append(out.Lines, line)
			out.Height += line.Height
		}
	}
	return out
}
