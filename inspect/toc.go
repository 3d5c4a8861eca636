package inspect

import (
	"context"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"folio/book"
	"folio/layout"
	"folio/state"
	"folio/utils/debug"
)

// TOCText renders table of contents as indented tree. Entries pointing
// outside of spine are marked.
func TOCText(b *book.Book) string {
	tw := debug.NewTreeWriter()
	var walk func(entries []book.TOCEntry)
	walk = func(entries []book.TOCEntry) {
		for _, e := range entries {
			ref, _ := layout.SplitHref(e.Href)
			switch i, ok := b.SectionIndex(ref); {
			case e.Href == "":
				tw.Enter("%s", e.Title)
			case ok:
				tw.Enter("%s [%d] %s", e.Title, i, e.Href)
			default:
				tw.Enter("%s [?] %s", e.Title, e.Href)
			}
			walk(e.Children)
			tw.Leave()
		}
	}
	walk(b.TOC())
	return tw.String()
}

// TOC prints book metadata and table of contents.
func TOC(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("toc")

	o, err := openBook(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, o.Close())
	}()

	m := o.book.Meta
	if _, err := fmt.Fprintf(os.Stdout, "%s\n%s\n%s\n\n%s", m.Title, strings.Join(m.Authors, ", "), m.Identifier, TOCText(o.book)); err != nil {
		return fmt.Errorf("unable to write table of contents: %w", err)
	}
	return nil
}
