package layout

import (
	"strconv"
	"strings"
)

var bullets = []string{"•", "◦", "▪"}

// Marker returns list item marker text. Unordered lists use bullets keyed by
// nesting depth unless circle or square is requested explicitly, ordered
// lists format item number n. Empty string means no marker.
func Marker(format string, n, depth int) string {
	switch format {
	case "none":
		return ""
	case "disc", "":
		return bullets[max(depth-1, 0)%len(bullets)] + " "
	case "circle":
		return bullets[1] + " "
	case "square":
		return bullets[2] + " "
	case "lower-alpha", "lower-latin":
		return alpha(n, 'a') + ". "
	case "upper-alpha", "upper-latin":
		return alpha(n, 'A') + ". "
	case "lower-roman":
		return strings.ToLower(roman(n)) + ". "
	case "upper-roman":
		return roman(n) + ". "
	}
	return strconv.Itoa(n) + ". "
}

// alpha formats n in bijective base 26: a..z, aa..az, ...
func alpha(n int, base rune) string {
	if n <= 0 {
		return strconv.Itoa(n)
	}
	var buf []rune
	for n > 0 {
		n--
		buf = append([]rune{base + rune(n%26)}, buf...)
		n /= 26
	}
	return string(buf)
}

var romanTable = []struct {
	v int
	s string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// roman formats n using roman numerals, values out of 1..3999 fall back to
// decimal.
func roman(n int) string {
	if n <= 0 || n >= 4000 {
		return strconv.Itoa(n)
	}
	var sb strings.Builder
	for _, r := range romanTable {
		for n >= r.v {
			sb.WriteString(r.s)
			n -= r.v
		}
	}
	return sb.String()
}
