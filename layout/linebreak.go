package layout

import (
	"folio/style"
)

// JustifyThreshold is the minimal fill ratio of a line to be justified.
const JustifyThreshold = 0.8

// BreakLines packs items into lines no wider than width (greedy, first fit)
// and aligns every line. Items wider than width are placed alone, images
// among them are scaled down to fit. Whitespace items which would overflow a
// line or start a wrapped line are dropped when collapse is set.
func BreakLines(items []InlineItem, width float64, align style.Align, collapse bool) *Lines {
	out := &Lines{}
	var (
		cur    []InlineItem
		curW   float64
		curH   float64
		broken bool // current line was opened by wrapping
	)
	closeLine := func(blankHeight float64) {
		if len(cur) == 0 {
			// blank line keeps a placeholder so item offsets stay unique
			cur = []InlineItem{{Height: blankHeight, Content: Text{}}}
			curH = blankHeight
		}
		line := Line{Height: curH, Width: curW, Items: cur}
		alignLine(&line, width, align)
		out.Lines = append(out.Lines, line)
		out.Height += line.Height
		cur, curW, curH = nil, 0, 0
	}
	place := func(it InlineItem) {
		it.X = curW
		cur = append(cur, it)
		curW += it.Width
		curH = max(curH, it.Height)
	}

	for _, it := range items {
		if br, ok := it.Content.(lineBreak); ok {
			trimTrailingSpace(&cur, &curW, collapse)
			closeLine(br.height)
			broken = false
			continue
		}
		space := collapse && isSpaceItem(it)

		if it.Width > width {
			if space {
				continue
			}
			if _, ok := it.Content.(Image); ok && it.Width > 0 {
				scale := width / it.Width
				it.Width = width
				it.Height *= scale
			}
			if len(cur) > 0 {
				trimTrailingSpace(&cur, &curW, collapse)
				closeLine(0)
			}
			place(it)
			closeLine(0)
			broken = true
			continue
		}

		if curW+it.Width > width {
			if space {
				// whitespace never opens a new line
				continue
			}
			if len(cur) > 0 {
				trimTrailingSpace(&cur, &curW, collapse)
				closeLine(0)
				broken = true
			}
		}
		if space && len(cur) == 0 && broken {
			continue
		}
		place(it)
	}
	if len(cur) > 0 {
		trimTrailingSpace(&cur, &curW, collapse)
		closeLine(0)
	}
	return out
}

func isSpaceItem(it InlineItem) bool {
	return it.space
}

// trimTrailingSpace removes whitespace items ending a line, a line never
// loses its last item.
func trimTrailingSpace(cur *[]InlineItem, curW *float64, collapse bool) {
	if !collapse {
		return
	}
	for len(*cur) > 1 {
		last := (*cur)[len(*cur)-1]
		if !isSpaceItem(last) {
			return
		}
		*cur = (*cur)[:len(*cur)-1]
		*curW -= last.Width
	}
}

// alignLine shifts items according to alignment. Justification spreads the
// slack over gaps between items, first item stays in place, and only lines
// filled to at least JustifyThreshold are justified.
func alignLine(line *Line, width float64, align style.Align) {
	slack := width - line.Width
	if slack <= 0 || len(line.Items) == 0 {
		return
	}
	switch align {
	case style.AlignRight:
		for i := range line.Items {
			line.Items[i].X += slack
		}
	case style.AlignCenter:
		for i := range line.Items {
			line.Items[i].X += slack / 2
		}
	case style.AlignJustify:
		n := len(line.Items)
		if n < 2 || line.Width < width*JustifyThreshold {
			return
		}
		gap := slack / float64(n-1)
		for i := range line.Items {
			line.Items[i].X += gap * float64(i)
		}
	}
}
