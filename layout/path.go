package layout

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// ErrExternalReference is returned for references with URL scheme.
var ErrExternalReference = errors.New("external reference")

// SplitHref separates fragment from reference.
func SplitHref(href string) (ref, fragment string) {
	ref, fragment, _ = strings.Cut(href, "#")
	return ref, fragment
}

// ResolvePath resolves reference found in document at base path to a clean
// package path. Fragment and query are dropped, "." and ".." segments are
// collapsed. Empty reference resolves to base itself.
func ResolvePath(base, ref string) (string, error) {
	ref, _ = SplitHref(ref)
	ref, _, _ = strings.Cut(ref, "?")
	if ref == "" {
		return base, nil
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return "", ErrExternalReference
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	if strings.HasPrefix(ref, "/") {
		return path.Clean(strings.TrimPrefix(ref, "/")), nil
	}
	return path.Join(path.Dir(base), ref), nil
}
