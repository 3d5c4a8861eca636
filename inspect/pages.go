package inspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"folio/book"
	"folio/config"
	"folio/glyph"
	"folio/layout"
	"folio/paginate"
	"folio/selection"
	"folio/state"
)

// Values is what page header template can use.
type Values struct {
	Title   string
	Authors []string
	BookID  string
	Section int
	Path    string
	Page    int
	Columns int
}

func headerTemplate(field string) (*template.Template, error) {
	tmpl, err := template.New(string(config.PageHeaderTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return nil, fmt.Errorf("unable to parse template field %s: %w", config.PageHeaderTemplateFieldName, err)
	}
	return tmpl, nil
}

func expandHeader(tmpl *template.Template, values Values) (string, error) {
	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FrameText renders painted screen as text, columns one after another
// separated by a blank line.
func FrameText(f *paginate.Frame, glyphs *glyph.Cache) string {
	var sb strings.Builder
	col := -1
	for _, pl := range f.Lines {
		if pl.Column != col {
			if col >= 0 {
				sb.WriteString("\n")
			}
			col = pl.Column
		}
		sb.WriteString(LineText(pl.Line, glyphs))
		sb.WriteString("\n")
	}
	return sb.String()
}

// LineText returns text of a laid out line, images are shown by their
// source path.
func LineText(l *layout.Line, glyphs *glyph.Cache) string {
	var sb strings.Builder
	for _, it := range l.Items {
		switch c := it.Content.(type) {
		case layout.Image:
			fmt.Fprintf(&sb, "[image %s]", c.Src)
		default:
			sb.WriteString(layout.RunText(layout.Glyphs(c), glyphs))
		}
	}
	return sb.String()
}

// Pages paginates the book with configured viewport and prints every screen
// preceded by page header.
func Pages(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("pages")

	tmpl, err := headerTemplate(env.Cfg.Output.PageHeaderTemplate)
	if err != nil {
		return err
	}

	o, err := openBook(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, o.Close())
	}()

	vp := env.Cfg.Viewport
	geo := paginate.NewGeometry(paginate.Viewport{Width: vp.Width, Height: vp.Height, Scale: vp.Scale}, env.Cfg.Layout.ColumnWidth)

	linearOnly := !cmd.Bool("all")
	sections := o.book.Sections()
	boundary := func(b paginate.Boundary) bool {
		return !linearOnly || sections[b.To].Linear
	}

	eng, err := paginate.NewEngine(o.session, geo, boundary, env.Log)
	if err != nil {
		return err
	}
	if start := cmd.String("start"); len(start) > 0 {
		if err := eng.GotoHref(start); err != nil {
			return fmt.Errorf("unable to go to %q: %w", start, err)
		}
	}

	if sel := cmd.String("select"); len(sel) > 0 {
		press, move, err := parseSelection(sel)
		if err != nil {
			return err
		}
		res := selection.Collect(eng.Paint(), o.glyphs, press, move)
		log.Debug("Selection collected", zap.Int("glyphs", len(res.Glyphs)))
		if _, err := fmt.Fprintln(os.Stdout, res.Text); err != nil {
			return fmt.Errorf("unable to write selection: %w", err)
		}
		return nil
	}

	return printPages(ctx, os.Stdout, eng, o.book, o.glyphs, tmpl, int(cmd.Int("max")), log)
}

// parseSelection reads press and move points from "x0,y0,x1,y1".
func parseSelection(s string) (press, move selection.Point, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return press, move, fmt.Errorf("selection %q: want 4 comma separated numbers", s)
	}
	var v [4]float64
	for i, p := range parts {
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return press, move, fmt.Errorf("selection %q: %w", s, err)
		}
	}
	return selection.Point{X: v[0], Y: v[1]}, selection.Point{X: v[2], Y: v[3]}, nil
}

func printPages(ctx context.Context, out io.Writer, eng *paginate.Engine, b *book.Book, glyphs *glyph.Cache, tmpl *template.Template, limit int, log *zap.Logger) error {
	values := Values{
		Title:   b.Meta.Title,
		Authors: b.Meta.Authors,
		BookID:  b.Meta.Identifier,
	}
	for page := 1; limit <= 0 || page <= limit; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := eng.Paint()

		values.Section = eng.Section()
		values.Path = eng.Page().Path
		values.Page = page
		values.Columns = frame.Geometry.Columns
		header, err := expandHeader(tmpl, values)
		if err != nil {
			return fmt.Errorf("unable to expand page header: %w", err)
		}
		if _, err := fmt.Fprintf(out, "%s\n%s", header, FrameText(frame, glyphs)); err != nil {
			return fmt.Errorf("unable to write page: %w", err)
		}

		if err := eng.Next(); err != nil {
			if errors.Is(err, paginate.ErrAtEnd) {
				log.Info("Pagination done", zap.Int("pages", page))
				return nil
			}
			return err
		}
	}
	return nil
}
