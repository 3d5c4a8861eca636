package style

import (
	"folio/css"
	"folio/glyph"
	"folio/markup"
)

// Align is horizontal alignment of line content.
type Align uint8

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
	AlignJustify
)

func (a Align) String() string {
	switch a {
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	case AlignJustify:
		return "justify"
	default:
		return "left"
	}
}

// Ancestors is the chain of elements from document root to the parent of
// the current node. It is extended by value, so every recursion level owns
// its own view and nothing has to be popped.
type Ancestors []markup.Node

// With returns chain extended by n. Receiver is never modified.
func (a Ancestors) With(n markup.Node) Ancestors {
	return append(a[:len(a):len(a)], n)
}

// Parent returns immediate parent or nil for root.
func (a Ancestors) Parent() markup.Node {
	if len(a) == 0 {
		return nil
	}
	return a[len(a)-1]
}

func (a Ancestors) elements() []css.Element {
	elems := make([]css.Element, len(a))
	for i, n := range a {
		elems[i] = n
	}
	return elems
}

// ListKind is kind of the enclosing list.
type ListKind uint8

const (
	ListNone ListKind = iota
	ListUnordered
	ListOrdered
)

// ListContext describes list currently being laid out.
type ListContext struct {
	Kind   ListKind
	Item   int // number of the current item
	Depth  int // nesting depth, 1 for outermost list
	Indent float64
}

// Enter returns context for a nested list. Counter is reset so first item
// gets start.
func (l ListContext) Enter(kind ListKind, start int, indent float64) ListContext {
	return ListContext{
		Kind:   kind,
		Item:   start - 1,
		Depth:  l.Depth + 1,
		Indent: indent,
	}
}

// ParseState carries inherited layout state down the tree, it is copied at
// each recursion step and never shared.
type ParseState struct {
	X     float64 // x origin of content box
	Width float64 // available width

	FontSize     float64
	RootFontSize float64
	FontWeight   uint16
	FontStyle    glyph.Style
	Align        Align
	Pre          bool
	ListStyle    string // inherited list-style-type

	List      ListContext
	Ancestors Ancestors
}

// NewParseState returns state for document root.
func NewParseState(width, fontSize float64) ParseState {
	return ParseState{
		Width:        width,
		FontSize:     fontSize,
		RootFontSize: fontSize,
		FontWeight:   400,
		FontStyle:    glyph.StyleNormal,
		Align:        AlignLeft,
	}
}

// WithAncestor returns copy of the state with n appended to ancestors.
func (ps ParseState) WithAncestor(n markup.Node) ParseState {
	ps.Ancestors = ps.Ancestors.With(n)
	return ps
}

// Margins are resolved box offsets in device units, padding included.
type Margins struct {
	Top, Right, Bottom, Left float64
}
