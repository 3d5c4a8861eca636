// Package archive gives read access to zip containers. It is built on top of
// a fork of "archive/zip" which tolerates slightly broken containers
// produced by some e-book tools.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
)

// ErrUnsafePath is returned for entries which could escape extraction
// directory.
var ErrUnsafePath = errors.New("unsafe path in archive")

// WalkFunc is called for each file visited by Walk. If an error is returned,
// processing stops.
type WalkFunc func(name string, open func() ([]byte, error)) error

// Archive is an opened zip container. Archive is safe for concurrent reads.
type Archive struct {
	path  string
	rc    *fixzip.ReadCloser
	files map[string]*fixzip.File
	names []string
}

// Open opens archive and indexes its entries. Entries with path traversal
// components ("..") or absolute paths make the whole archive rejected.
func Open(file string) (*Archive, error) {
	rc, err := fixzip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive %s: %w", file, err)
	}

	a := &Archive{
		path:  file,
		rc:    rc,
		files: make(map[string]*fixzip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		name := f.Name
		if !isSafePath(name) {
			rc.Close()
			return nil, fmt.Errorf("%w: %q in %s", ErrUnsafePath, name, file)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if _, dup := a.files[name]; dup {
			// first entry wins, same as most readers do
			continue
		}
		a.files[name] = f
		a.names = append(a.names, name)
	}
	sort.Sort(natural.StringSlice(a.names))
	return a, nil
}

// Path returns file system path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Names returns names of all files in natural order.
func (a *Archive) Names() []string {
	return append([]string(nil), a.names...)
}

// ReadFile returns content of the named entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	return data, nil
}

// Walk visits files with names starting with prefix in natural order.
func (a *Archive) Walk(prefix string, walkFn WalkFunc) error {
	for _, name := range a.names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := walkFn(name, func() ([]byte, error) { return a.ReadFile(name) }); err != nil {
			return err
		}
	}
	return nil
}

// Close releases underlying file.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// isSafePath returns false for absolute paths and those containing ".."
// components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
