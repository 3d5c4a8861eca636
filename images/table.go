// Package images keeps natural sizes of document images and decodes their
// pixels in background.
package images

import (
	"image"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/maruel/natural"
)

// Decoded is result of a background decode.
type Decoded struct {
	Image image.Image
	Err   error
}

// Slot is a shared cell filled once by decode pool and polled by painters.
// Reading never blocks.
type Slot struct {
	v atomic.Pointer[Decoded]
}

// Load returns decode result if it is already available.
func (s *Slot) Load() (*Decoded, bool) {
	d := s.v.Load()
	return d, d != nil
}

// Store publishes decode result. Only the first result is kept, it reports
// whether d was stored.
func (s *Slot) Store(d Decoded) bool {
	return s.v.CompareAndSwap(nil, &d)
}

// Entry describes single image of a document.
type Entry struct {
	Path   string
	Kind   string // file type extension: jpg, png, gif, svg...
	Width  int    // natural size in pixels
	Height int
	Slot   *Slot
}

// Table maps package paths to image entries. Safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewTable returns empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Add registers entry under its path, slot is created when missing.
func (t *Table) Add(e *Entry) {
	if e.Slot == nil {
		e.Slot = &Slot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[e.Path] = e
}

// Lookup returns entry by path.
func (t *Table) Lookup(path string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[path]
	return e, ok
}

// Keys returns all paths in natural order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	t.mu.RUnlock()

	sort.Sort(natural.StringSlice(keys))
	return keys
}

// Len returns number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
