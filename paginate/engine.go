package paginate

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"folio/layout"
)

var (
	// ErrAnchorUnresolved is returned when anchor is not known to the
	// section, cursor is moved to the section origin.
	ErrAnchorUnresolved = errors.New("anchor not resolved")
	// ErrSectionUnresolved is returned when link target is not a section of
	// the book.
	ErrSectionUnresolved = errors.New("section not resolved")
	// ErrAtEnd is returned when moving past the last screen is not possible.
	ErrAtEnd = errors.New("at end")
	// ErrAtStart is returned when moving before the first screen is not
	// possible.
	ErrAtStart = errors.New("at start")
)

// Sections is the ordered list of document sections of a book.
type Sections interface {
	Len() int
	// Page returns laid out section.
	Page(i int) (*layout.Page, error)
	// Lookup returns index of section by its package path.
	Lookup(path string) (int, bool)
}

// BoundaryKind tells which end of a section was reached.
type BoundaryKind uint8

const (
	AtEnd BoundaryKind = iota
	AtStart
)

func (k BoundaryKind) String() string {
	if k == AtStart {
		return "start"
	}
	return "end"
}

// Boundary is passed to the collaborator when navigation reaches section
// edge and another section exists in that direction.
type Boundary struct {
	Kind BoundaryKind
	From int
	To   int
}

// BoundaryFunc decides whether navigation may cross into another section.
type BoundaryFunc func(Boundary) bool

// Engine keeps navigation state of a book and moves it between screens and
// sections. It is not safe for concurrent use.
type Engine struct {
	log      *zap.Logger
	sections Sections
	boundary BoundaryFunc
	geo      Geometry

	section int
	page    *layout.Page
	state   NavigationState
	frame   *Frame // nil when state changed since last paint
}

// NewEngine opens the first section. Nil boundary func allows crossing
// every section boundary.
func NewEngine(sections Sections, geo Geometry, boundary BoundaryFunc, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if boundary == nil {
		boundary = func(Boundary) bool { return true }
	}
	e := &Engine{
		log:      log.Named("paginate"),
		sections: sections,
		boundary: boundary,
		geo:      geo,
	}
	if sections.Len() == 0 {
		return nil, errors.New("book has no sections")
	}
	if err := e.load(0); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(i int) error {
	page, err := e.sections.Page(i)
	if err != nil {
		return fmt.Errorf("unable to open section %d: %w", i, err)
	}
	e.section, e.page = i, page
	e.state = NavigationState{Start: Origin()}
	e.frame = nil
	return nil
}

// Section returns index of the current section.
func (e *Engine) Section() int {
	return e.section
}

// Page returns current section layout.
func (e *Engine) Page() *layout.Page {
	return e.page
}

// State returns navigation state as of the latest paint.
func (e *Engine) State() NavigationState {
	return e.state
}

// SetGeometry changes screen geometry, next paint re-walks the tree.
func (e *Engine) SetGeometry(geo Geometry) {
	e.geo = geo
	e.frame = nil
}

// Paint returns current screen.
func (e *Engine) Paint() *Frame {
	if e.frame == nil {
		e.frame, e.state = Paint(e.page.Root, e.geo, e.state)
	}
	return e.frame
}

// Next moves to the following screen, crossing into the next section when
// the current one is exhausted and collaborator agrees. ErrAtEnd leaves
// state unchanged.
func (e *Engine) Next() error {
	e.Paint()
	if !e.state.End.Equal(Terminal(e.page.Root)) {
		e.state = NavigationState{Start: e.state.End, Direction: Forward}
		e.frame = nil
		return nil
	}
	to := e.section + 1
	if to >= e.sections.Len() || !e.boundary(Boundary{Kind: AtEnd, From: e.section, To: to}) {
		return ErrAtEnd
	}
	e.log.Debug("Crossing section boundary", zap.Int("from", e.section), zap.Int("to", to))
	return e.load(to)
}

// Prev moves to the preceding screen, opening last screen of the previous
// section when current one is at its origin and collaborator agrees.
// ErrAtStart leaves state unchanged.
func (e *Engine) Prev() error {
	e.Paint()
	if !AtOrigin(e.page.Root, e.state.Start) {
		e.state = NavigationState{End: e.state.Start, Direction: Backward}
		e.frame = nil
		return nil
	}
	to := e.section - 1
	if to < 0 || !e.boundary(Boundary{Kind: AtStart, From: e.section, To: to}) {
		return ErrAtStart
	}
	e.log.Debug("Crossing section boundary", zap.Int("from", e.section), zap.Int("to", to))
	if err := e.load(to); err != nil {
		return err
	}
	e.GotoLast()
	return nil
}

// GotoLast opens the last screen of the current section.
func (e *Engine) GotoLast() {
	e.state = NavigationState{End: Terminal(e.page.Root), Direction: Backward}
	e.frame = nil
}

// Goto opens section at anchor, empty anchor means section origin. Unknown
// anchor falls back to section origin and is reported with
// ErrAnchorUnresolved.
func (e *Engine) Goto(section int, anchor string) error {
	if section < 0 || section >= e.sections.Len() {
		return fmt.Errorf("%w: index %d", ErrSectionUnresolved, section)
	}
	if section != e.section || e.page == nil {
		if err := e.load(section); err != nil {
			return err
		}
	}
	e.state = NavigationState{Start: Origin()}
	e.frame = nil
	if anchor == "" {
		return nil
	}
	path, ok := e.page.Anchor(anchor)
	if !ok {
		err := fmt.Errorf("%w: %q in %s", ErrAnchorUnresolved, anchor, e.page.Path)
		e.log.Debug("Falling back to section origin", zap.Error(err))
		return err
	}
	e.state.Start = Position{Path: path.Clone()}
	return nil
}

// GotoHref follows reference found in the current section: "#id" within the
// section, "other.xhtml#id" relative to the section path.
func (e *Engine) GotoHref(href string) error {
	ref, fragment := layout.SplitHref(href)
	if ref == "" {
		return e.Goto(e.section, fragment)
	}
	target, err := layout.ResolvePath(e.page.Path, ref)
	if err != nil {
		return fmt.Errorf("unable to follow %q: %w", href, err)
	}
	idx, ok := e.sections.Lookup(target)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSectionUnresolved, target)
	}
	return e.Goto(idx, fragment)
}

// Location returns section and position of the current screen start, suitable
// for persisting.
func (e *Engine) Location() (int, Position) {
	e.Paint()
	return e.section, e.state.Start
}

// Restore opens previously saved location. Positions which no longer match
// the section tree are clamped and reported with ErrPositionOutOfRange.
func (e *Engine) Restore(section int, pos Position) error {
	if err := e.Goto(section, ""); err != nil {
		return err
	}
	clamped, err := Clamp(e.page.Root, pos)
	e.state.Start = clamped
	return err
}
