package layout

import (
	"unicode"
	"unicode/utf8"
)

// Segment splits text into maximal alternating runs of whitespace and
// non-whitespace characters. Joining the runs reproduces text.
func Segment(text string) []string {
	var (
		runs  []string
		start int
		inWS  bool
	)
	for i, r := range text {
		ws := unicode.IsSpace(r)
		if i == 0 {
			inWS = ws
			continue
		}
		if ws != inWS {
			runs = append(runs, text[start:i])
			start, inWS = i, ws
		}
	}
	if start < len(text) {
		runs = append(runs, text[start:])
	}
	return runs
}

// isSpaceRun reports whether run consists of whitespace only.
func isSpaceRun(run string) bool {
	r, _ := utf8.DecodeRuneInString(run)
	return unicode.IsSpace(r)
}
