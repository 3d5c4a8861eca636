// Package reader ties opened book to layout and pagination: it lays out
// sections on demand, keeps them cached and decodes images in background.
package reader

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"folio/book"
	"folio/glyph"
	"folio/images"
	"folio/layout"
)

// Options configure session.
type Options struct {
	Layout layout.Options
	// DecodeWorkers is number of background image decoders, zero disables
	// decoding (layout still uses natural sizes).
	DecodeWorkers int
	// MaxImageWidth limits decoded image width, 0 means column width.
	MaxImageWidth int
	// Broken is SVG placeholder for undecodable images, may be nil.
	Broken []byte
}

// Session is a reading session over a single book. It implements
// paginate.Sections. Session is safe for concurrent use.
type Session struct {
	log     *zap.Logger
	book    *book.Book
	builder *layout.Builder
	pool    *images.Pool

	pages []func() (*layout.Page, error)
}

// NewSession prepares session and starts image decoding. Book stays owned by
// caller and must outlive session.
func NewSession(ctx context.Context, b *book.Book, glyphs *glyph.Cache, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		log:  log.Named("reader"),
		book: b,
	}

	table := b.ImageTable()
	s.builder = layout.NewBuilder(glyphs, table, opts.Layout, log)

	if opts.DecodeWorkers > 0 && table.Len() > 0 {
		maxWidth := opts.MaxImageWidth
		if maxWidth <= 0 {
			maxWidth = int(opts.Layout.Width)
		}
		s.pool = images.NewPool(ctx, opts.DecodeWorkers, table.Len(), maxWidth, b.ReadFile, opts.Broken, log)
		if err := s.pool.SubmitAll(table); err != nil {
			s.log.Warn("Not all images were queued for decoding", zap.Error(err))
		}
	}

	sections := b.Sections()
	s.pages = make([]func() (*layout.Page, error), len(sections))
	for i := range sections {
		s.pages[i] = sync.OnceValues(func() (*layout.Page, error) {
			return s.layout(i)
		})
	}
	return s
}

// Book returns underlying book.
func (s *Session) Book() *book.Book {
	return s.book
}

// Len returns number of sections.
func (s *Session) Len() int {
	return len(s.pages)
}

// Page returns laid out section, laying it out on first request.
func (s *Session) Page(i int) (*layout.Page, error) {
	if i < 0 || i >= len(s.pages) {
		return nil, fmt.Errorf("section %d is out of range [0, %d)", i, len(s.pages))
	}
	return s.pages[i]()
}

// Lookup returns index of section by package path.
func (s *Session) Lookup(path string) (int, bool) {
	return s.book.SectionIndex(path)
}

func (s *Session) layout(i int) (*layout.Page, error) {
	root, err := s.book.Markup(i)
	if err != nil {
		return nil, err
	}
	p := s.book.Sections()[i].Path
	page := s.builder.Layout(root, s.book.Stylesheets(p, root), p)
	if page.Diagnostics != nil {
		errs := multierr.Errors(page.Diagnostics)
		s.log.Debug("Section laid out with problems", zap.String("path", p), zap.Int("problems", len(errs)))
	}
	return page, nil
}

// LayoutAll lays out every section using at most limit goroutines. Sections
// which fail do not stop the others, all errors are returned combined.
func (s *Session) LayoutAll(ctx context.Context, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	var mu sync.Mutex
	var errs error
	for i := range s.pages {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.Page(i); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("section %d: %w", i, err))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return multierr.Append(err, errs)
	}
	return multierr.Append(ctx.Err(), errs)
}

// WaitImages stops accepting images and waits for queued decodes to finish.
// Returned error combines decode failures.
func (s *Session) WaitImages() error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Close()
}

// Close aborts background work.
func (s *Session) Close() error {
	if s.pool != nil {
		s.pool.Abort()
	}
	return nil
}
