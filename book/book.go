// Package book reads EPUB packages: container, package document, spine,
// table of contents and resources referenced by sections.
package book

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"folio/archive"
	"folio/css"
	"folio/images"
)

var (
	// ErrNoPackage is returned when package document cannot be located.
	ErrNoPackage = errors.New("package document not found")
	// ErrEmptySpine is returned for books without readable sections.
	ErrEmptySpine = errors.New("spine has no sections")
)

// source is file access to the unpacked container.
type source interface {
	ReadFile(name string) ([]byte, error)
	// walk calls fn for every file until fn returns false.
	walk(fn func(name string) bool) error
	Close() error
}

type archiveSource struct {
	*archive.Archive
}

var errStopWalk = errors.New("stop walk")

func (s archiveSource) walk(fn func(name string) bool) error {
	err := s.Walk("", func(name string, _ func() ([]byte, error)) error {
		if !fn(name) {
			return errStopWalk
		}
		return nil
	})
	if errors.Is(err, errStopWalk) {
		return nil
	}
	return err
}

type fsSource struct {
	fsys fs.FS
}

func (s fsSource) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(s.fsys, name)
}

func (s fsSource) walk(fn func(name string) bool) error {
	err := fs.WalkDir(s.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !fn(name) {
			return fs.SkipAll
		}
		return nil
	})
	return err
}

func (s fsSource) Close() error { return nil }

// Item is a manifest entry. Href is resolved to the container root.
type Item struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// HasProperty reports whether item carries EPUB 3 property.
func (it Item) HasProperty(name string) bool {
	for _, p := range it.Properties {
		if p == name {
			return true
		}
	}
	return false
}

// Section is a spine entry.
type Section struct {
	ID     string
	Path   string
	Linear bool
}

// Metadata is the subset of package metadata the reader shows.
type Metadata struct {
	Title      string
	Language   string
	Identifier string
	Authors    []string
}

// Book is an opened EPUB package. Book is safe for concurrent use.
type Book struct {
	log *zap.Logger
	src source

	Meta Metadata

	opfPath  string
	items    []Item         // manifest order
	manifest map[string]int // id to items index
	byPath   map[string]int
	coverID  string         // EPUB 2 cover meta
	spine    []Section
	index    map[string]int
	tocID    string // NCX manifest id from spine

	toc     []TOCEntry
	tocOnce sync.Once

	parser   *css.Parser
	sheetsMu sync.Mutex
	sheets   map[string]*css.Stylesheet

	imgOnce sync.Once
	images  *images.Table
}

// Open opens EPUB file.
func Open(file string, log *zap.Logger) (*Book, error) {
	a, err := archive.Open(file)
	if err != nil {
		return nil, err
	}
	b, err := open(archiveSource{a}, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)), log)
	if err != nil {
		a.Close()
		return nil, err
	}
	return b, nil
}

// OpenFS opens EPUB unpacked into file system.
func OpenFS(fsys fs.FS, log *zap.Logger) (*Book, error) {
	return open(fsSource{fsys}, "", log)
}

func open(src source, fallbackTitle string, log *zap.Logger) (*Book, error) {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Book{
		log:      log.Named("book"),
		src:      src,
		manifest: make(map[string]int),
		byPath:   make(map[string]int),
		index:    make(map[string]int),
		parser:   css.NewParser(log),
		sheets:   make(map[string]*css.Stylesheet),
	}

	opf, err := b.findPackage()
	if err != nil {
		return nil, err
	}
	b.opfPath = opf
	if err := b.readPackage(); err != nil {
		return nil, err
	}
	if len(b.spine) == 0 {
		return nil, fmt.Errorf("%s: %w", opf, ErrEmptySpine)
	}
	if b.Meta.Title == "" {
		b.Meta.Title = fallbackTitle
	}

	b.log.Debug("Book opened",
		zap.String("package", opf),
		zap.String("title", b.Meta.Title),
		zap.Int("manifest", len(b.items)),
		zap.Int("spine", len(b.spine)))
	return b, nil
}

// Sections returns spine in reading order.
func (b *Book) Sections() []Section {
	return append([]Section(nil), b.spine...)
}

// SectionIndex returns spine position of the section with given path.
func (b *Book) SectionIndex(p string) (int, bool) {
	i, ok := b.index[p]
	return i, ok
}

// Item returns manifest entry for container path.
func (b *Book) Item(p string) (Item, bool) {
	i, ok := b.byPath[p]
	if !ok {
		return Item{}, false
	}
	return b.items[i], true
}

// ReadFile returns content of container file.
func (b *Book) ReadFile(name string) ([]byte, error) {
	return b.src.ReadFile(name)
}

// Cover returns path of the cover image if book declares one or has an
// image which looks like a cover.
func (b *Book) Cover() (string, bool) {
	if i, ok := b.manifest[b.coverID]; ok && strings.HasPrefix(b.items[i].MediaType, "image/") {
		return b.items[i].Href, true
	}
	var guess string
	for _, it := range b.items {
		if !strings.HasPrefix(it.MediaType, "image/") {
			continue
		}
		if it.HasProperty("cover-image") {
			return it.Href, true
		}
		if guess == "" && (strings.Contains(strings.ToLower(it.ID), "cover") || strings.Contains(strings.ToLower(it.Href), "cover")) {
			guess = it.Href
		}
	}
	return guess, guess != ""
}

// Close releases container.
func (b *Book) Close() error {
	return b.src.Close()
}
