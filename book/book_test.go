package book

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/zap/zaptest"

	"folio/markup"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const packageOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="isbn">978-3-16-148410-0</dc:identifier>
    <dc:identifier id="bookid">urn:uuid:0F2A1B3C-4D5E-4F60-8172-93A4B5C6D7E8</dc:identifier>
    <dc:title>A Short Book</dc:title>
    <dc:language>en</dc:language>
    <dc:creator>First Author</dc:creator>
    <dc:creator>Second Author</dc:creator>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch%202.xhtml" media-type="application/xhtml+xml"/>
    <item id="style" href="css/style.css" media-type="text/css"/>
    <item id="base" href="css/base.css" media-type="text/css"/>
    <item id="cover" href="images/cover.png" media-type="image/png" properties="cover-image"/>
    <item id="bad" href="images/bad.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2" linear="no"/>
    <itemref idref="missing"/>
    <itemref idref="ch1"/>
  </spine>
</package>`

const navXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="landmarks"><ol><li><a href="text/ch1.xhtml">Start</a></li></ol></nav>
  <nav epub:type="toc">
    <ol>
      <li><a href="text/ch1.xhtml">Chapter   One</a>
        <ol>
          <li><a href="text/ch1.xhtml#s1">Section <em>1.1</em></a></li>
        </ol>
      </li>
      <li><span>Part</span>
        <ol><li><a href="text/ch%202.xhtml">Chapter Two</a></li></ol>
      </li>
    </ol>
  </nav>
</body>
</html>`

const tocNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>One</text></navLabel>
      <content src="text/ch1.xhtml"/>
      <navPoint id="p2" playOrder="2">
        <navLabel><text>One dot one</text></navLabel>
        <content src="text/ch1.xhtml#s1"/>
      </navPoint>
    </navPoint>
    <navPoint id="p3" playOrder="3">
      <navLabel><text>Two</text></navLabel>
      <content src="text/ch%202.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const chapterOne = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>One</title>
  <link rel="stylesheet" type="text/css" href="../css/style.css"/>
  <link rel="stylesheet" href="../css/print.css" media="print"/>
  <link rel="alternate stylesheet" href="http://example.com/x.css"/>
  <style>p { color: red }</style>
</head>
<body><p id="s1">Hello</p></body>
</html>`

const chapterTwo = `<html><head><link rel="stylesheet" href="../css/style.css"></head><body><p>Two<br>lines</p></body></html>`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func testFS(t *testing.T) fstest.MapFS {
	t.Helper()
	return fstest.MapFS{
		"mimetype":                 {Data: []byte("application/epub+zip")},
		"META-INF/container.xml":   {Data: []byte(containerXML)},
		"OEBPS/content.opf":        {Data: []byte(packageOPF)},
		"OEBPS/nav.xhtml":          {Data: []byte(navXHTML)},
		"OEBPS/toc.ncx":            {Data: []byte(tocNCX)},
		"OEBPS/text/ch1.xhtml":     {Data: []byte(chapterOne)},
		"OEBPS/text/ch 2.xhtml":    {Data: []byte(chapterTwo)},
		"OEBPS/css/style.css":      {Data: []byte(`@import "base.css"; p { margin: 0 }`)},
		"OEBPS/css/base.css":       {Data: []byte(`@import url(style.css); body { font-size: 12px }`)},
		"OEBPS/images/cover.png":   {Data: pngBytes(t, 3, 2)},
		"OEBPS/images/bad.png":     {Data: []byte("definitely not an image")},
		"OEBPS/images/unlisted.gif": {Data: []byte("GIF89a")},
	}
}

func openTestBook(t *testing.T, fsys fstest.MapFS) *Book {
	t.Helper()
	b, err := OpenFS(fsys, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("OpenFS() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestOpenFS(t *testing.T) {
	b := openTestBook(t, testFS(t))

	if b.Meta.Title != "A Short Book" {
		t.Errorf("Title = %q", b.Meta.Title)
	}
	if b.Meta.Language != "en" {
		t.Errorf("Language = %q", b.Meta.Language)
	}
	if want := []string{"First Author", "Second Author"}; !slices.Equal(b.Meta.Authors, want) {
		t.Errorf("Authors = %v, want %v", b.Meta.Authors, want)
	}
	if want := "0f2a1b3c-4d5e-4f60-8172-93a4b5c6d7e8"; b.Meta.Identifier != want {
		t.Errorf("Identifier = %q, want %q", b.Meta.Identifier, want)
	}

	want := []Section{
		{ID: "ch1", Path: "OEBPS/text/ch1.xhtml", Linear: true},
		{ID: "ch2", Path: "OEBPS/text/ch 2.xhtml", Linear: false},
	}
	if got := b.Sections(); !slices.Equal(got, want) {
		t.Errorf("Sections() = %+v, want %+v", got, want)
	}

	for i, s := range want {
		if idx, ok := b.SectionIndex(s.Path); !ok || idx != i {
			t.Errorf("SectionIndex(%q) = %d, %v, want %d", s.Path, idx, ok, i)
		}
	}
	if _, ok := b.SectionIndex("OEBPS/nav.xhtml"); ok {
		t.Error("SectionIndex() found non-spine document")
	}

	if it, ok := b.Item("OEBPS/css/style.css"); !ok || it.ID != "style" || it.MediaType != "text/css" {
		t.Errorf("Item() = %+v, %v", it, ok)
	}
}

func TestTOC(t *testing.T) {
	want := []TOCEntry{
		{Title: "Chapter One", Href: "OEBPS/text/ch1.xhtml", Children: []TOCEntry{
			{Title: "Section 1.1", Href: "OEBPS/text/ch1.xhtml#s1"},
		}},
		{Title: "Part", Children: []TOCEntry{
			{Title: "Chapter Two", Href: "OEBPS/text/ch 2.xhtml"},
		}},
	}
	ncxWant := []TOCEntry{
		{Title: "One", Href: "OEBPS/text/ch1.xhtml", Children: []TOCEntry{
			{Title: "One dot one", Href: "OEBPS/text/ch1.xhtml#s1"},
		}},
		{Title: "Two", Href: "OEBPS/text/ch 2.xhtml"},
	}

	t.Run("navigation document", func(t *testing.T) {
		b := openTestBook(t, testFS(t))
		assertTOC(t, b.TOC(), want)
	})

	t.Run("ncx fallback", func(t *testing.T) {
		fsys := testFS(t)
		delete(fsys, "OEBPS/nav.xhtml")
		b := openTestBook(t, fsys)
		assertTOC(t, b.TOC(), ncxWant)
	})

	t.Run("none", func(t *testing.T) {
		fsys := testFS(t)
		delete(fsys, "OEBPS/nav.xhtml")
		delete(fsys, "OEBPS/toc.ncx")
		b := openTestBook(t, fsys)
		if toc := b.TOC(); len(toc) != 0 {
			t.Errorf("TOC() = %+v, want empty", toc)
		}
	})
}

func assertTOC(t *testing.T, got, want []TOCEntry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Title != want[i].Title || got[i].Href != want[i].Href {
			t.Errorf("entry %d = {%q %q}, want {%q %q}", i, got[i].Title, got[i].Href, want[i].Title, want[i].Href)
		}
		assertTOC(t, got[i].Children, want[i].Children)
	}
}

func TestStylesheets(t *testing.T) {
	b := openTestBook(t, testFS(t))

	root, err := b.Markup(0)
	if err != nil {
		t.Fatalf("Markup() error = %v", err)
	}
	sheets := b.Stylesheets("OEBPS/text/ch1.xhtml", root)

	var sources []string
	for _, s := range sheets {
		sources = append(sources, s.Source)
	}
	if len(sources) != 3 {
		t.Fatalf("got sheets %v, want 3", sources)
	}
	if sources[0] != "OEBPS/css/base.css" || sources[1] != "OEBPS/css/style.css" {
		t.Errorf("linked sheets = %v, want base.css then style.css", sources[:2])
	}
	if !strings.HasPrefix(sources[2], "OEBPS/text/ch1.xhtml#style") {
		t.Errorf("inline sheet source = %q", sources[2])
	}

	// HTML section shares parsed linked sheets
	root2, err := b.Markup(1)
	if err != nil {
		t.Fatalf("Markup() error = %v", err)
	}
	sheets2 := b.Stylesheets("OEBPS/text/ch 2.xhtml", root2)
	if len(sheets2) != 2 || sheets2[1] != sheets[1] {
		t.Errorf("second section sheets = %d, want shared style.css", len(sheets2))
	}

	if got := b.Stylesheets("x", nil); got != nil {
		t.Errorf("Stylesheets(nil) = %v", got)
	}
}

func TestMarkup(t *testing.T) {
	b := openTestBook(t, testFS(t))

	root, err := b.Markup(1)
	if err != nil {
		t.Fatalf("Markup() error = %v", err)
	}
	if _, ok := markup.Body(root); !ok {
		t.Error("Markup() tree has no body")
	}
	if _, err := b.Markup(2); err == nil {
		t.Error("Markup() out of range succeeded")
	}
	if _, err := b.Markup(-1); err == nil {
		t.Error("Markup(-1) succeeded")
	}
}

func TestImageTable(t *testing.T) {
	b := openTestBook(t, testFS(t))

	tbl := b.ImageTable()
	if tbl != b.ImageTable() {
		t.Error("ImageTable() built twice")
	}
	if want := []string{"OEBPS/images/cover.png"}; !slices.Equal(tbl.Keys(), want) {
		t.Fatalf("Keys() = %v, want %v", tbl.Keys(), want)
	}
	e, _ := tbl.Lookup("OEBPS/images/cover.png")
	if e.Kind != "png" || e.Width != 3 || e.Height != 2 {
		t.Errorf("entry = %+v, want png 3x2", e)
	}

	if cover, ok := b.Cover(); !ok || cover != "OEBPS/images/cover.png" {
		t.Errorf("Cover() = %q, %v", cover, ok)
	}
}

func TestCoverGuess(t *testing.T) {
	fsys := testFS(t)
	opf := strings.Replace(packageOPF, ` properties="cover-image"`, "", 1)

	t.Run("by name", func(t *testing.T) {
		fsys["OEBPS/content.opf"] = &fstest.MapFile{Data: []byte(opf)}
		b := openTestBook(t, fsys)
		if cover, ok := b.Cover(); !ok || cover != "OEBPS/images/cover.png" {
			t.Errorf("Cover() = %q, %v", cover, ok)
		}
	})

	t.Run("epub2 meta", func(t *testing.T) {
		withMeta := strings.Replace(opf, "<dc:language>", `<meta name="cover" content="bad"/><dc:language>`, 1)
		fsys["OEBPS/content.opf"] = &fstest.MapFile{Data: []byte(withMeta)}
		b := openTestBook(t, fsys)
		if cover, ok := b.Cover(); !ok || cover != "OEBPS/images/bad.png" {
			t.Errorf("Cover() = %q, %v", cover, ok)
		}
	})
}

func TestOpenFSErrors(t *testing.T) {
	t.Run("package without container", func(t *testing.T) {
		fsys := testFS(t)
		delete(fsys, "META-INF/container.xml")
		b := openTestBook(t, fsys)
		if len(b.Sections()) != 2 {
			t.Errorf("Sections() = %v", b.Sections())
		}
	})

	t.Run("no package", func(t *testing.T) {
		fsys := fstest.MapFS{"mimetype": {Data: []byte("application/epub+zip")}}
		if _, err := OpenFS(fsys, nil); !errors.Is(err, ErrNoPackage) {
			t.Errorf("OpenFS() error = %v, want ErrNoPackage", err)
		}
	})

	t.Run("empty spine", func(t *testing.T) {
		fsys := testFS(t)
		fsys["OEBPS/content.opf"] = &fstest.MapFile{Data: []byte(`<package><metadata/><manifest/><spine/></package>`)}
		if _, err := OpenFS(fsys, nil); !errors.Is(err, ErrEmptySpine) {
			t.Errorf("OpenFS() error = %v, want ErrEmptySpine", err)
		}
	})

	t.Run("not a package", func(t *testing.T) {
		fsys := testFS(t)
		fsys["OEBPS/content.opf"] = &fstest.MapFile{Data: []byte(`<html/>`)}
		if _, err := OpenFS(fsys, nil); !errors.Is(err, ErrNoPackage) {
			t.Errorf("OpenFS() error = %v, want ErrNoPackage", err)
		}
	})
}

func TestOpenArchive(t *testing.T) {
	fsys := testFS(t)
	fsys["OEBPS/content.opf"] = &fstest.MapFile{Data: []byte(strings.Replace(packageOPF, "<dc:title>A Short Book</dc:title>", "", 1))}

	file := filepath.Join(t.TempDir(), "Untitled Book.epub")
	f, err := os.Create(file)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	zw := zip.NewWriter(f)
	for name, mf := range fsys {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
		if _, err := w.Write(mf.Data); err != nil {
			t.Fatalf("Write(%s) error = %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	f.Close()

	b, err := Open(file, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	if b.Meta.Title != "Untitled Book" {
		t.Errorf("Title = %q, want file name", b.Meta.Title)
	}
	data, err := b.ReadFile("OEBPS/text/ch1.xhtml")
	if err != nil || !bytes.Equal(data, []byte(chapterOne)) {
		t.Errorf("ReadFile() = %d bytes, %v", len(data), err)
	}
	if len(b.TOC()) != 2 {
		t.Errorf("TOC() = %+v", b.TOC())
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"urn:uuid:0F2A1B3C-4D5E-4F60-8172-93A4B5C6D7E8", "0f2a1b3c-4d5e-4f60-8172-93a4b5c6d7e8"},
		{"  0f2a1b3c4d5e4f60817293a4b5c6d7e8 ", "0f2a1b3c-4d5e-4f60-8172-93a4b5c6d7e8"},
		{"978-3-16-148410-0", "978-3-16-148410-0"},
		{"00000000-0000-0000-0000-000000000000", "00000000-0000-0000-0000-000000000000"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeIdentifier(tt.in); got != tt.want {
			t.Errorf("NormalizeIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMediaApplies(t *testing.T) {
	tests := []struct {
		media string
		want  bool
	}{
		{"", true},
		{"all", true},
		{"screen", true},
		{"only screen and (min-width: 100px)", true},
		{"(min-width: 100px)", true},
		{"print", false},
		{"print, screen", true},
		{"not print", true},
		{"not screen", false},
		{"amzn-kf8", false},
	}
	for _, tt := range tests {
		if got := mediaApplies(tt.media); got != tt.want {
			t.Errorf("mediaApplies(%q) = %v, want %v", tt.media, got, tt.want)
		}
	}
}
