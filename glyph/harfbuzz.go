package glyph

import (
	"bytes"
	"fmt"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// HarfbuzzShaper shapes characters with the Go font family.
type HarfbuzzShaper struct {
	mu     sync.Mutex
	shaper shaping.HarfbuzzShaper
	// indexed by faceIndex
	faces [4]*gofont.Face
}

// NewHarfbuzzShaper loads regular, bold, italic and bold italic faces.
func NewHarfbuzzShaper() (*HarfbuzzShaper, error) {
	s := &HarfbuzzShaper{}
	for i, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF} {
		face, err := gofont.ParseTTF(bytes.NewReader(ttf))
		if err != nil {
			return nil, fmt.Errorf("unable to parse built-in font %d: %w", i, err)
		}
		s.faces[i] = face
	}
	return s, nil
}

func faceIndex(weight uint16, style Style) int {
	idx := 0
	if weight >= 600 {
		idx |= 1
	}
	if style == StyleItalic {
		idx |= 2
	}
	return idx
}

// Shape implements Shaper.
func (s *HarfbuzzShaper) Shape(r rune, size float64, weight uint16, style Style) Shaped {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := []rune{r}
	out := s.shaper.Shape(shaping.Input{
		Text:      text,
		RunStart:  0,
		RunEnd:    len(text),
		Direction: di.DirectionLTR,
		Face:      s.faces[faceIndex(weight, style)],
		Size:      fixed.Int26_6(size * 64),
		Script:    scriptOf(r),
		Language:  language.DefaultLanguage(),
	})

	return Shaped{
		Rune:    r,
		Advance: fixedToFloat(out.Advance),
		Ascent:  fixedToFloat(out.LineBounds.Ascent),
		// descent is negative below baseline, gap goes under the line
		Descent: -fixedToFloat(out.LineBounds.Descent) + fixedToFloat(out.LineBounds.Gap),
	}
}

func scriptOf(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	default:
		return language.Latin
	}
}
