package style

import (
	"errors"
	"fmt"
	"math"

	"folio/css"
)

// ErrUnsupportedUnit is reported for lengths with unknown units, such
// lengths resolve to 0.
var ErrUnsupportedUnit = errors.New("unsupported length unit")

// fontScale is ratio between adjacent font size keywords.
const fontScale = 1.2

var fontSizeSteps = map[string]int{
	"xx-small":  -3,
	"x-small":   -2,
	"small":     -1,
	"medium":    0,
	"large":     1,
	"x-large":   2,
	"xx-large":  3,
	"xxx-large": 4,
}

// LengthContext provides bases for relative units.
type LengthContext struct {
	FontSize     float64
	RootFontSize float64
	// Percent is the base 100% refers to, usually containing block width.
	Percent float64
}

// ResolveLength converts CSS length to device units. Keywords (auto,
// inherit) resolve to 0 silently, unknown units resolve to 0 with
// ErrUnsupportedUnit.
func ResolveLength(v css.Value, ctx LengthContext) (float64, error) {
	if !v.IsNumeric() {
		return 0, nil
	}
	switch v.Unit {
	case "", "px", "pt":
		return v.Value, nil
	case "em":
		return v.Value * ctx.FontSize, nil
	case "rem":
		return v.Value * ctx.RootFontSize, nil
	case "ex":
		return v.Value * ctx.FontSize * 0.5, nil
	case "%":
		return v.Value * ctx.Percent / 100, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, v.Raw)
}

// ResolveFontSize computes element font size from declared value, current
// (inherited) size and root size. Absolute keywords follow geometric ladder
// anchored at root size, relative keywords scale current size. Result is
// rounded to whole device units.
func ResolveFontSize(v css.Value, current, root float64) (float64, error) {
	if v.IsKeyword() {
		switch v.Keyword {
		case "smaller":
			return math.Round(current / fontScale), nil
		case "larger":
			return math.Round(current * fontScale), nil
		}
		if step, ok := fontSizeSteps[v.Keyword]; ok {
			return math.Round(root * math.Pow(fontScale, float64(step))), nil
		}
		return current, nil
	}
	if !v.IsNumeric() {
		return current, nil
	}
	// for font-size itself percents and em refer to inherited size
	size, err := ResolveLength(v, LengthContext{FontSize: current, RootFontSize: root, Percent: current})
	if err != nil {
		return current, err
	}
	if size <= 0 {
		return current, nil
	}
	return math.Round(size), nil
}

// ResolveFontWeight computes numeric font weight.
func ResolveFontWeight(v css.Value, current uint16) uint16 {
	if v.IsNumeric() && v.Unit == "" {
		w := math.Round(v.Value/100) * 100
		return uint16(min(max(w, 100), 900))
	}
	switch v.Keyword {
	case "normal":
		return 400
	case "bold":
		return 700
	case "bolder":
		switch {
		case current < 350:
			return 400
		case current < 550:
			return 700
		default:
			return 900
		}
	case "lighter":
		switch {
		case current < 550:
			return 100
		case current < 750:
			return 400
		default:
			return 700
		}
	}
	return current
}
