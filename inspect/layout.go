package inspect

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gosimple/slug"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"folio/layout"
	"folio/state"
)

// dumpName returns file name of section dump.
func dumpName(index int, sectionPath string) string {
	base := strings.TrimSuffix(filepath.Base(sectionPath), filepath.Ext(sectionPath))
	return fmt.Sprintf("%03d-%s.txt", index, slug.Make(base))
}

// Layout lays out every section of the book and writes box tree dumps either
// to STDOUT or into destination directory.
func Layout(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("layout")

	o, err := openBook(ctx, cmd, log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, o.Close())
	}()

	dst := cmd.Args().Get(1)
	if len(dst) > 0 {
		if err := os.MkdirAll(dst, 0755); err != nil {
			return fmt.Errorf("unable to create destination directory: %w", err)
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if err := o.session.LayoutAll(ctx, runtime.NumCPU()); err != nil {
		// failed sections are reported below one by one
		log.Warn("Some sections could not be laid out", zap.Error(err))
	}

	for i, s := range o.book.Sections() {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, perr := o.session.Page(i)
		if perr != nil {
			log.Error("Section skipped", zap.String("path", s.Path), zap.Error(perr))
			continue
		}
		if page.Diagnostics != nil {
			for _, d := range multierr.Errors(page.Diagnostics) {
				log.Warn("Layout problem", zap.String("path", s.Path), zap.Error(d))
			}
		}

		text := layout.Dump(page, o.glyphs)
		name := dumpName(i, s.Path)
		if env.Rpt != nil {
			env.Rpt.StoreData("layout/"+name, []byte(text))
		}
		if len(dst) == 0 {
			if _, err := fmt.Fprint(os.Stdout, text); err != nil {
				return fmt.Errorf("unable to write layout: %w", err)
			}
			continue
		}
		if err := os.WriteFile(filepath.Join(dst, name), []byte(text), 0644); err != nil {
			return fmt.Errorf("unable to write layout: %w", err)
		}
	}

	log.Info("Layout done", zap.Int("sections", o.session.Len()), zap.Int("glyphs", o.glyphs.Len()), zap.Duration("elapsed", env.Uptime()))
	return nil
}
