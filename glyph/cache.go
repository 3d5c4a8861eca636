// Package glyph interns shaped glyphs. Every text producing component asks
// the cache for a glyph and stores the small dense handle it returns, paint
// code resolves handles back to shaped glyphs.
package glyph

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// Style is font slant.
type Style uint8

const (
	StyleNormal Style = iota
	StyleItalic
)

func (s Style) String() string {
	if s == StyleItalic {
		return "italic"
	}
	return "normal"
}

// Handle addresses shaped glyph in the cache.
type Handle uint16

// MaxHandles is capacity of a single cache.
const MaxHandles = math.MaxUint16 + 1

// ErrExhausted is returned when all handles are in use.
var ErrExhausted = errors.New("glyph cache exhausted")

// Shaped is a single character shaped at particular size, weight and style.
type Shaped struct {
	Rune    rune
	Advance float64
	Ascent  float64
	Descent float64
}

// Height is line height of the glyph.
func (g Shaped) Height() float64 {
	return g.Ascent + g.Descent
}

// Shaper produces metrics for a single character.
type Shaper interface {
	Shape(r rune, size float64, weight uint16, style Style) Shaped
}

type key struct {
	r      rune
	size   uint8
	weight uint16
	style  Style
}

// Cache maps (character, size bucket, weight, style) to dense handles. It is
// scoped to a single base font configuration: the shaper it was created with.
// Safe for concurrent use.
type Cache struct {
	log    *zap.Logger
	shaper Shaper

	mu     sync.RWMutex
	index  map[key]Handle
	glyphs []Shaped
}

// NewCache creates empty cache on top of shaper.
func NewCache(shaper Shaper, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		log:    log.Named("glyphs"),
		shaper: shaper,
		index:  make(map[key]Handle),
	}
}

// SizeBucket quantizes font size to the cache key precision.
func SizeBucket(size float64) uint8 {
	switch {
	case size <= 1:
		return 1
	case size >= math.MaxUint8:
		return math.MaxUint8
	}
	return uint8(math.Round(size))
}

// GetOrInsert returns shaped glyph and its handle, shaping the character on
// first use.
func (c *Cache) GetOrInsert(r rune, size float64, weight uint16, style Style) (Shaped, Handle, error) {
	k := key{r: r, size: SizeBucket(size), weight: weight, style: style}

	c.mu.RLock()
	h, ok := c.index[k]
	if ok {
		g := c.glyphs[h]
		c.mu.RUnlock()
		return g, h, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// somebody may have inserted it while we were waiting
	if h, ok := c.index[k]; ok {
		return c.glyphs[h], h, nil
	}
	if len(c.glyphs) >= MaxHandles {
		return Shaped{}, 0, fmt.Errorf("%w: unable to intern %q", ErrExhausted, r)
	}

	g := c.shaper.Shape(r, float64(k.size), weight, style)
	g.Rune = r
	h = Handle(len(c.glyphs))
	c.glyphs = append(c.glyphs, g)
	c.index[k] = h

	if len(c.glyphs) == MaxHandles {
		c.log.Warn("Glyph cache is full, new characters will be skipped")
	}
	return g, h, nil
}

// Get returns glyph by handle. Handles always come from this cache, unknown
// handle means the caller mixed caches.
func (c *Cache) Get(h Handle) Shaped {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(h) >= len(c.glyphs) {
		panic(fmt.Sprintf("glyph handle %d is not known to this cache (%d entries)", h, len(c.glyphs)))
	}
	return c.glyphs[h]
}

// Len returns number of interned glyphs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.glyphs)
}
