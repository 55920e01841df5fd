package memvfs

import (
	"strings"

	"github.com/pkg/errors"
)

// Path is a normalized path: an optional root marker plus the
// remaining name components. Normalization drops "." and empty
// components; ".." is kept and handled by the resolver.
type Path struct {
	// Root is "/" for absolute paths and empty for relative ones.
	Root string

	Components []string
}

// Absolute reports whether the path starts at a root.
func (p Path) Absolute() bool { return p.Root != "" }

func (p Path) String() string {
	return p.Root + strings.Join(p.Components, "/")
}

// ParsePath normalizes a slash-separated path string.
func ParsePath(s string) Path {
	var p Path
	if strings.HasPrefix(s, "/") {
		p.Root = "/"
	}
	for _, comp := range strings.Split(s, "/") {
		if comp == "" || comp == "." {
			continue
		}
		p.Components = append(p.Components, comp)
	}
	return p
}

// checkName validates a single directory entry name: non-empty, no
// separator, and not one of the synthesized "." or ".." entries.
func checkName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidFormat, "empty file name")
	case name == "." || name == "..":
		return errors.Wrapf(ErrInvalidFormat, "reserved file name %q", name)
	case strings.ContainsRune(name, '/'):
		return errors.Wrapf(ErrInvalidFormat, "file name %q contains a separator", name)
	}
	return nil
}
