// Package inspect implements command line actions which open a book, lay it
// out and show results as text.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"folio/book"
	"folio/config"
	"folio/glyph"
	"folio/layout"
	"folio/reader"
	"folio/state"
)

// opened is everything commands need to work with a single book.
type opened struct {
	src     string
	book    *book.Book
	glyphs  *glyph.Cache
	session *reader.Session
}

func (o *opened) Close() error {
	return errors.Join(o.session.Close(), o.book.Close())
}

func newShaper(kind config.ShaperKind, log *zap.Logger) glyph.Shaper {
	if kind == config.ShaperKindHarfbuzz {
		s, err := glyph.NewHarfbuzzShaper()
		if err == nil {
			return s
		}
		log.Warn("Falling back to bitmap shaper", zap.Error(err))
	}
	return glyph.NewBitmapShaper()
}

// openBook opens book named by the first command argument and prepares
// reading session according to configuration.
func openBook(ctx context.Context, cmd *cli.Command, log *zap.Logger) (*opened, error) {
	env := state.EnvFromContext(ctx)

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return nil, errors.New("no input book has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}

	b, err := book.Open(src, env.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to open book: %w", err)
	}

	cfg := env.Cfg
	glyphs := glyph.NewCache(newShaper(cfg.Layout.Shaper, log), env.Log)
	opts := reader.Options{
		Layout: layout.Options{
			Width:       cfg.Layout.ColumnWidth,
			FontSize:    cfg.Layout.BaseFontSize,
			ListIndent:  cfg.Layout.ListIndent,
			CellPadding: cfg.Layout.CellPadding,
		},
		DecodeWorkers: cfg.Images.DecodeWorkers,
		MaxImageWidth: cfg.MaxImageWidth(),
	}
	if cfg.Images.UseBroken {
		opts.Broken = env.BrokenImage
	}

	log.Info("Book opened",
		zap.String("file", src),
		zap.String("title", b.Meta.Title),
		zap.String("id", b.Meta.Identifier),
		zap.Int("sections", len(b.Sections())))

	return &opened{
		src:     src,
		book:    b,
		glyphs:  glyphs,
		session: reader.NewSession(ctx, b, glyphs, opts, env.Log),
	}, nil
}
