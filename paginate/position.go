// Package paginate splits box trees into screens of side by side columns and
// keeps reading position while moving through a book.
package paginate

import (
	"errors"
	"fmt"

	"folio/layout"
)

// ErrPositionOutOfRange is returned when position addresses a node which
// does not exist in the tree.
var ErrPositionOutOfRange = errors.New("position out of range")

// Position is a reading cursor: path of a box tree node and number of inline
// items of the addressed leaf consumed before the cursor.
type Position struct {
	Path   layout.IndexPath
	Offset int
}

// Origin is position before any content.
func Origin() Position {
	return Position{}
}

// Terminal returns position past all content of the tree.
func Terminal(root *layout.Elem) Position {
	if root.IsLeaf() {
		return Position{Offset: root.Lines.ItemCount()}
	}
	return Position{Path: layout.IndexPath{len(root.Block.Children)}}
}

// Compare orders positions in document order.
func (p Position) Compare(q Position) int {
	if c := p.Path.Compare(q.Path); c != 0 {
		return c
	}
	switch {
	case p.Offset < q.Offset:
		return -1
	case p.Offset > q.Offset:
		return 1
	}
	return 0
}

// Equal reports whether positions are the same.
func (p Position) Equal(q Position) bool {
	return p.Compare(q) == 0
}

func (p Position) String() string {
	return fmt.Sprintf("%s@%d", p.Path, p.Offset)
}

// Clamp validates position against the tree. Position addressing a missing
// node is replaced with its nearest existing ancestor, offsets are limited to
// the leaf item count.
func Clamp(root *layout.Elem, pos Position) (Position, error) {
	if pos.Equal(Terminal(root)) {
		return pos, nil
	}
	cur := root
	for i, idx := range pos.Path {
		if cur.IsLeaf() || idx < 0 || idx >= len(cur.Block.Children) {
			return Position{Path: pos.Path[:i].Clone()}, fmt.Errorf("%w: %s", ErrPositionOutOfRange, pos)
		}
		cur = cur.Block.Children[idx]
	}

	limit := 0
	if cur.IsLeaf() {
		limit = cur.Lines.ItemCount()
	}
	if pos.Offset < 0 || pos.Offset > limit {
		clamped := Position{Path: pos.Path.Clone(), Offset: min(max(pos.Offset, 0), limit)}
		return clamped, fmt.Errorf("%w: %s", ErrPositionOutOfRange, pos)
	}
	return pos, nil
}

// AtOrigin reports whether there is no content before position.
func AtOrigin(root *layout.Elem, pos Position) bool {
	for range lines(root, pos, Backward) {
		return false
	}
	return true
}
