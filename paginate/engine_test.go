package paginate

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"folio/layout"
)

type fakeSections struct {
	pages []*layout.Page
}

func (f *fakeSections) Len() int { return len(f.pages) }

func (f *fakeSections) Page(i int) (*layout.Page, error) {
	if i < 0 || i >= len(f.pages) {
		return nil, errors.New("no such section")
	}
	return f.pages[i], nil
}

func (f *fakeSections) Lookup(path string) (int, bool) {
	for i, p := range f.pages {
		if p.Path == path {
			return i, true
		}
	}
	return 0, false
}

// book has two sections of 9 and 4 lines, 3 lines per screen.
func book() *fakeSections {
	first := &layout.Page{
		Root:    stack(10, 4, 5),
		Path:    "text/ch1.xhtml",
		Anchors: map[string]layout.IndexPath{"second": {1}},
	}
	first.Root.Block.Children[0].Lines.Lines[1].Items[0].Content = layout.Link{Href: "ch2.xhtml#end"}
	second := &layout.Page{
		Root:    stack(10, 2, 2),
		Path:    "text/ch2.xhtml",
		Anchors: map[string]layout.IndexPath{"end": {1}},
	}
	return &fakeSections{pages: []*layout.Page{first, second}}
}

func TestEngine_NextPrev(t *testing.T) {
	e, err := NewEngine(book(), geometry(1, 30), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	var starts []Position
	for range 3 {
		starts = append(starts, e.Paint().Start)
		if err := e.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if e.Section() != 1 || !e.Paint().Start.Equal(Origin()) {
		t.Fatalf("expected second section origin, got %d %v", e.Section(), e.State().Start)
	}
	want := []Position{Origin(), pos(3, 0), pos(2, 1)}
	for i := range want {
		if !starts[i].Equal(want[i]) {
			t.Fatalf("screen %d starts at %v, want %v", i, starts[i], want[i])
		}
	}

	// back into the first section lands on its last screen
	if err := e.Prev(); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	frame := e.Paint()
	if e.Section() != 0 || !frame.Start.Equal(pos(2, 1)) || !frame.End.Equal(Terminal(e.Page().Root)) {
		t.Fatalf("got section %d %v..%v", e.Section(), frame.Start, frame.End)
	}
	if err := e.Prev(); err != nil {
		t.Fatalf("Prev: %v", err)
	}
	if got := e.Paint().Start; !got.Equal(pos(3, 0)) {
		t.Fatalf("previous screen starts at %v", got)
	}
}

func TestEngine_NextDenied(t *testing.T) {
	var asked []Boundary
	deny := func(b Boundary) bool {
		asked = append(asked, b)
		return false
	}
	e, err := NewEngine(book(), geometry(1, 30), deny, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	e.GotoLast()
	e.Paint()
	before := e.State()

	for range 2 {
		if err := e.Next(); !errors.Is(err, ErrAtEnd) {
			t.Fatalf("expected ErrAtEnd, got %v", err)
		}
		e.Paint()
		after := e.State()
		if e.Section() != 0 || !after.Start.Equal(before.Start) || !after.End.Equal(before.End) || after.Direction != before.Direction {
			t.Fatalf("state changed: %+v -> %+v", before, after)
		}
	}
	if len(asked) != 2 || asked[0] != (Boundary{Kind: AtEnd, From: 0, To: 1}) {
		t.Fatalf("collaborator asked %v", asked)
	}

	e.Goto(0, "")
	if err := e.Prev(); !errors.Is(err, ErrAtStart) {
		t.Fatalf("expected ErrAtStart, got %v", err)
	}
	if len(asked) != 2 {
		t.Fatal("no previous section, collaborator must not be asked")
	}
}

func TestEngine_Goto(t *testing.T) {
	e, err := NewEngine(book(), geometry(1, 30), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Goto(0, "second"); err != nil {
		t.Fatal(err)
	}
	if got := e.Paint(); !got.Start.Equal(pos(0, 1)) || got.Lines[0].Path.String() != "/1" {
		t.Fatalf("anchor screen starts at %v", got.Start)
	}

	if err := e.Goto(1, "missing"); !errors.Is(err, ErrAnchorUnresolved) {
		t.Fatalf("expected ErrAnchorUnresolved, got %v", err)
	}
	if e.Section() != 1 || !e.Paint().Start.Equal(Origin()) {
		t.Fatal("unresolved anchor must fall back to section origin")
	}

	if err := e.Goto(5, ""); !errors.Is(err, ErrSectionUnresolved) {
		t.Fatalf("expected ErrSectionUnresolved, got %v", err)
	}
}

func TestEngine_Links(t *testing.T) {
	e, err := NewEngine(book(), geometry(1, 30), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	frame := e.Paint()
	href, ok := LinkAt(frame, 5, 15)
	if !ok || href != "ch2.xhtml#end" {
		t.Fatalf("LinkAt = %q %v", href, ok)
	}
	if _, ok := LinkAt(frame, 5, 5); ok {
		t.Fatal("plain text is not a link")
	}
	if _, ok := LinkAt(frame, 50, 15); ok {
		t.Fatal("point right of the item is not a link")
	}

	if err := e.GotoHref(href); err != nil {
		t.Fatal(err)
	}
	if e.Section() != 1 || !e.Paint().Start.Equal(pos(0, 1)) {
		t.Fatalf("followed link to %d %v", e.Section(), e.State().Start)
	}
	if err := e.GotoHref("missing.xhtml"); !errors.Is(err, ErrSectionUnresolved) {
		t.Fatalf("expected ErrSectionUnresolved, got %v", err)
	}
	if err := e.GotoHref("https://example.com/"); !errors.Is(err, layout.ErrExternalReference) {
		t.Fatalf("expected ErrExternalReference, got %v", err)
	}
	if err := e.GotoHref("#end"); err != nil || e.Section() != 1 {
		t.Fatalf("fragment only link: %v", err)
	}
}

func TestEngine_Restore(t *testing.T) {
	e, err := NewEngine(book(), geometry(1, 30), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Next(); err != nil {
		t.Fatal(err)
	}
	section, at := e.Location()
	if section != 0 || !at.Equal(pos(3, 0)) {
		t.Fatalf("location %d %v", section, at)
	}

	if err := e.Restore(0, pos(2, 1)); err != nil {
		t.Fatal(err)
	}
	if got := e.Paint().Start; !got.Equal(pos(2, 1)) {
		t.Fatalf("restored at %v", got)
	}
	if err := e.Restore(1, pos(0, 7, 2)); !errors.Is(err, ErrPositionOutOfRange) {
		t.Fatalf("expected ErrPositionOutOfRange, got %v", err)
	}
	if got := e.Paint().Start; !got.Equal(Origin()) {
		t.Fatalf("clamped to %v", got)
	}
}
