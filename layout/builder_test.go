package layout

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"folio/images"
)

const wide = 10000

func TestLayout_HelloWorld(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide}, nil)
	page := layoutDoc(t, b, `<html><body>Hello world</body></html>`, "text/a.xhtml")

	if page.Diagnostics != nil {
		t.Fatalf("unexpected diagnostics: %v", page.Diagnostics)
	}
	ls := leaves(page.Root)
	if len(ls) != 1 {
		t.Fatalf("got %d leaves", len(ls))
	}
	lines := ls[0].MustLines()
	if len(lines.Lines) != 1 {
		t.Fatalf("got %d lines", len(lines.Lines))
	}
	line := lines.Lines[0]
	if got := lineText(cache, line); !slices.Equal(got, []string{"Hello", " ", "world"}) {
		t.Fatalf("items %q", got)
	}
	var sum float64
	for _, it := range line.Items {
		sum += it.Width
	}
	if line.Width != sum || sum != 110 {
		t.Fatalf("line width %v, sum %v", line.Width, sum)
	}
	if page.Root.LeafCount() != 1 {
		t.Fatalf("leaf count %d", page.Root.LeafCount())
	}
}

func TestLayout_WhitespaceCollapse(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide}, nil)
	page := layoutDoc(t, b, "<body><p>\n  Hello \n\t world  </p>\n<p> </p></body>", "a.xhtml")

	ls := leaves(page.Root)
	if len(ls) != 1 {
		t.Fatalf("whitespace only paragraph must not produce lines, got %d leaves", len(ls))
	}
	got := lineText(cache, ls[0].Lines.Lines[0])
	if !slices.Equal(got, []string{"Hello", " ", "world"}) {
		t.Fatalf("items %q", got)
	}
}

func TestLayout_OrderedListMarkers(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide, ListIndent: 30}, nil)
	page := layoutDoc(t, b,
		`<body><ol><li>a</li><li>b<ol><li>x</li></ol></li><li>c</li></ol></body>`, "a.xhtml")

	ls := leaves(page.Root)
	want := []struct {
		marker string
		text   string
		x      float64
	}{
		{"1. ", "a", 30},
		{"2. ", "b", 30},
		{"1. ", "x", 60},
		{"3. ", "c", 30},
	}
	if len(ls) != len(want) {
		t.Fatalf("got %d leaves", len(ls))
	}
	for i, w := range want {
		items := lineText(cache, ls[i].Lines.Lines[0])
		if len(items) != 2 || items[0] != w.marker || items[1] != w.text {
			t.Errorf("leaf %d: %q", i, items)
		}
		if ls[i].Origin.X != w.x {
			t.Errorf("leaf %d at x=%v, want %v", i, ls[i].Origin.X, w.x)
		}
	}
}

func TestLayout_ListFormats(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide, ListIndent: 20}, nil)
	page := layoutDoc(t, b, `<body>
<ul><li><p>p</p></li><li>q<ul><li>r</li></ul></li></ul>
<ol type="i" start="3"><li>s</li></ol>
<ol style="list-style-type: upper-alpha"><li>t</li><li>u</li></ol>
<ul style="list-style: none"><li>v</li></ul>
</body>`, "a.xhtml")

	var got []string
	for _, l := range leaves(page.Root) {
		got = append(got, strings.Join(lineText(cache, l.Lines.Lines[0]), ""))
	}
	want := []string{"• p", "• q", "◦ r", "iii. s", "A. t", "B. u", "v"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLayout_Table(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		lines [][]float64 // item x offsets per line
	}{
		{"fits", 100, [][]float64{{0, 30, 60, 70}}},
		{"wraps", 60, [][]float64{{0, 30}, {30}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBuilder(t, Options{Width: tt.width, CellPadding: 10}, nil)
			page := layoutDoc(t, b,
				`<body><table><tbody><tr><td id="c1">ab</td><td>abc de</td></tr></tbody></table></body>`, "a.xhtml")

			ls := leaves(page.Root)
			if len(ls) != 1 {
				t.Fatalf("got %d leaves", len(ls))
			}
			lines := ls[0].Lines.Lines
			if len(lines) != len(tt.lines) {
				t.Fatalf("got %d lines", len(lines))
			}
			for i, want := range tt.lines {
				var xs []float64
				for _, it := range lines[i].Items {
					xs = append(xs, it.X)
				}
				if !slices.Equal(xs, want) {
					t.Errorf("line %d offsets %v, want %v", i, xs, want)
				}
			}
			if p, ok := page.Anchor("c1"); !ok || p.String() != "/0/0/0" {
				t.Errorf("cell anchor %v %v", p, ok)
			}
		})
	}
}

func TestLayout_Pre(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: 50}, nil)
	page := layoutDoc(t, b, "<body><pre>\nab cdefgh\n\n\tc</pre></body>", "a.xhtml")

	ls := leaves(page.Root)
	if len(ls) != 1 {
		t.Fatalf("got %d leaves", len(ls))
	}
	lines := ls[0].Lines.Lines
	var got []string
	for _, l := range lines {
		got = append(got, strings.Join(lineText(cache, l), ""))
	}
	if want := []string{"ab cdefgh", "", "    c"}; !slices.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if lines[0].Width != 90 {
		t.Fatalf("pre must not wrap, width %v", lines[0].Width)
	}
	if lines[1].Height != 10 {
		t.Fatalf("blank line height %v", lines[1].Height)
	}
}

func TestLayout_LineBreaks(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide}, nil)
	page := layoutDoc(t, b, `<body><p>a<br/><br/>b</p><p>c<span><div>d</div></span>e</p></body>`, "a.xhtml")

	ls := leaves(page.Root)
	if len(ls) != 2 {
		t.Fatalf("got %d leaves", len(ls))
	}
	for i, want := range [][]string{{"a", "", "b"}, {"c", "d", "e"}} {
		var got []string
		for _, l := range ls[i].Lines.Lines {
			got = append(got, strings.Join(lineText(cache, l), ""))
		}
		if !slices.Equal(got, want) {
			t.Errorf("leaf %d: got %q, want %q", i, got, want)
		}
	}
}

func TestLayout_Anchors(t *testing.T) {
	b, _ := newTestBuilder(t, Options{Width: wide}, nil)
	page := layoutDoc(t, b, `<body><p id="p1">x</p>
<div id="d"><p>y <span id="s">z</span><a name="n">w</a></p></div>
<p id="p1">dup</p></body>`, "a.xhtml")

	want := map[string]string{
		"p1": "/0/0",
		"d":  "/0/1",
		"s":  "/0/1/0/0",
		"n":  "/0/1/0/0",
	}
	for id, path := range want {
		got, ok := page.Anchor(id)
		if !ok || got.String() != path {
			t.Errorf("anchor %s = %v (%v), want %s", id, got, ok, path)
		}
	}
	if e, ok := page.Root.Find(page.Anchors["s"]); !ok || !e.IsLeaf() {
		t.Errorf("inline anchor must address a leaf")
	}
}

func TestLayout_AnchorsWithoutContent(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		id   string
		want string
	}{
		{"trailing", `<body><p>text</p><a id="end"/></body>`, "end", "/0/0"},
		{"trailing after text", `<body>one<p>two</p><a name="end"> </a></body>`, "end", "/0/1"},
		{"empty paragraph", `<body><p>text</p><p><a id="x"/></p></body>`, "x", "/0/1"},
		{"only child", `<body><a id="x"/></body>`, "x", "/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBuilder(t, Options{Width: wide}, nil)
			page := layoutDoc(t, b, tt.doc, "a.xhtml")

			for id, path := range page.Anchors {
				if _, ok := page.Root.Find(path); !ok {
					t.Errorf("anchor %s -> %v addresses no node", id, path)
				}
			}
			if got, ok := page.Anchor(tt.id); !ok || got.String() != tt.want {
				t.Errorf("anchor %s = %v (%v), want %s", tt.id, got, ok, tt.want)
			}
		})
	}
}

func TestLayout_Links(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide}, nil)
	page := layoutDoc(t, b, `<body><p>see <a href="ch2.xhtml#x">there</a></p></body>`, "a.xhtml")

	items := leaves(page.Root)[0].Lines.Lines[0].Items
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	link, ok := items[2].Content.(Link)
	if !ok || link.Href != "ch2.xhtml#x" || itemText(cache, items[2]) != "there" {
		t.Fatalf("got %#v", items[2].Content)
	}
}

func TestLayout_Styles(t *testing.T) {
	b, _ := newTestBuilder(t, Options{Width: 100}, nil)
	page := layoutDoc(t, b,
		`<body><p style="text-align: right">ab</p><p class="c">cd</p><blockquote>ef</blockquote></body>`,
		"a.xhtml", `.c { text-align: center; margin: 0 }`)

	ls := leaves(page.Root)
	if len(ls) != 3 {
		t.Fatalf("got %d leaves", len(ls))
	}
	if x := ls[0].Lines.Lines[0].Items[0].X; x != 80 {
		t.Errorf("right aligned x = %v", x)
	}
	if x := ls[1].Lines.Lines[0].Items[0].X; x != 40 {
		t.Errorf("centered x = %v", x)
	}
	if ls[2].Origin.X != 40 || ls[2].Size.W != 20 {
		t.Errorf("blockquote leaf at %v size %v", ls[2].Origin, ls[2].Size)
	}
	// margins are additive: first p has 16px bottom, .c has none
	if gap := ls[1].Origin.Y - (ls[0].Origin.Y + ls[0].Size.H); gap != 16 {
		t.Errorf("gap between paragraphs %v", gap)
	}
}

func TestLayout_Images(t *testing.T) {
	tbl := images.NewTable()
	tbl.Add(&images.Entry{Path: "img/a.png", Kind: "png", Width: 400, Height: 200})

	b, _ := newTestBuilder(t, Options{Width: 100}, tbl)
	page := layoutDoc(t, b,
		`<body><p><img src="../img/a.png"/><img src="nope.png"/><img src="http://x/y.png"/></p></body>`,
		"text/ch1.xhtml")

	if !errors.Is(page.Diagnostics, ErrImageUnresolved) {
		t.Fatalf("expected unresolved image diagnostics, got %v", page.Diagnostics)
	}
	items := leaves(page.Root)[0].Lines.Lines[0].Items
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	img, ok := items[0].Content.(Image)
	if !ok || img.Src != "img/a.png" || img.Slot == nil {
		t.Fatalf("got %#v", items[0].Content)
	}
	if items[0].Width != 100 || items[0].Height != 50 {
		t.Fatalf("image scaled to %vx%v", items[0].Width, items[0].Height)
	}
}

func TestLayout_MissingBody(t *testing.T) {
	b, _ := newTestBuilder(t, Options{Width: 100}, nil)
	page := layoutDoc(t, b, `<div>text</div>`, "a.xhtml")

	if !errors.Is(page.Diagnostics, ErrMarkupShape) {
		t.Fatalf("expected ErrMarkupShape, got %v", page.Diagnostics)
	}
	if !page.Root.IsLeaf() || page.Root.Lines.ItemCount() != 0 {
		t.Fatalf("expected empty lines root")
	}
}

func TestLayout_UnsupportedUnit(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide}, nil)
	page := layoutDoc(t, b, `<body><p style="margin-left: 3furlong">x</p></body>`, "a.xhtml")

	if page.Diagnostics == nil {
		t.Fatal("expected diagnostics")
	}
	ls := leaves(page.Root)
	if len(ls) != 1 || ls[0].Origin.X != 0 || itemText(cache, ls[0].Lines.Lines[0].Items[0]) != "x" {
		t.Fatalf("unsupported unit must resolve to 0")
	}
}

func TestElem_Contract(t *testing.T) {
	leaf := &Elem{Lines: &Lines{}}
	defer func() {
		if recover() == nil {
			t.Fatal("MustBlock on leaf must panic")
		}
	}()
	leaf.MustBlock()
}

func TestDump(t *testing.T) {
	b, cache := newTestBuilder(t, Options{Width: wide}, nil)
	page := layoutDoc(t, b, `<body id="top">Hello <a href="b.xhtml">world</a></body>`, "a.xhtml")

	out := Dump(page, cache)
	for _, want := range []string{
		`page "a.xhtml"`,
		`text x=0.0 w=50.0: "Hello"`,
		`link x=60.0 w=50.0 href=b.xhtml: "world"`,
		"top -> /0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump misses %q:\n%s", want, out)
		}
	}
}
