package glyph

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// BitmapShaper measures characters with fixed cell font, scaled linearly to
// requested size. Weight and style do not change metrics. Useful for
// terminal output and reproducible measurements.
type BitmapShaper struct {
	face font.Face
}

// NewBitmapShaper returns shaper over 7x13 basic font.
func NewBitmapShaper() *BitmapShaper {
	return &BitmapShaper{face: basicfont.Face7x13}
}

// Shape implements Shaper.
func (s *BitmapShaper) Shape(r rune, size float64, _ uint16, _ Style) Shaped {
	m := s.face.Metrics()
	scale := size / fixedToFloat(m.Height)

	adv, ok := s.face.GlyphAdvance(r)
	if !ok {
		// cell font, everything has the same width
		adv, _ = s.face.GlyphAdvance('x')
	}
	return Shaped{
		Rune:    r,
		Advance: fixedToFloat(adv) * scale,
		Ascent:  fixedToFloat(m.Ascent) * scale,
		Descent: fixedToFloat(m.Descent) * scale,
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
