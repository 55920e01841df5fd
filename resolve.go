package memvfs

import "github.com/pkg/errors"

// ResolveMode selects the symlink behavior for the final path
// component. Intermediate symlinks are always followed.
type ResolveMode int

const (
	// FollowLinks resolves a final symlink component to its target.
	FollowLinks ResolveMode = iota

	// NoFollowLinks returns the symlink node itself when it is the
	// final component.
	NoFollowLinks
)

// maxSymlinkDepth bounds symlink expansion within one resolution, so
// a cycle fails with ErrTooManyLinks instead of looping.
const maxSymlinkDepth = 32

// Resolution is the outcome of a lookup. When the final component
// exists, File returns its node and Parent/Name its containing
// directory and entry name. When only the final component is missing,
// File is nil and Parent/Name identify where a create would land;
// this is deliberately not an error, so create, mkdir and link share
// one traversal.
type Resolution struct {
	file   *File
	parent *File
	name   string
}

// Exists reports whether the final component resolved to a node.
func (r Resolution) Exists() bool { return r.file != nil }

// File returns the resolved node, nil when absent.
func (r Resolution) File() *File { return r.file }

// Parent returns the directory containing the final component. It is
// nil when the path resolved to a root or through a final "..".
func (r Resolution) Parent() *File { return r.parent }

// Name returns the final component name under Parent.
func (r Resolution) Name() string { return r.name }

// Resolve walks a normalized path from start (ignored for absolute
// paths) to a Resolution. A missing intermediate component fails with
// ErrNoSuchFile; a missing final component succeeds with an absent
// Resolution.
func (s *FileStore) Resolve(p Path, start *File, mode ResolveMode) (Resolution, error) {
	s.structural.RLock()
	defer s.structural.RUnlock()
	depth := 0
	return s.resolveLocked(p, start, mode, &depth)
}

// ResolvePath is Resolve over an unparsed path string.
func (s *FileStore) ResolvePath(path string, start *File, mode ResolveMode) (Resolution, error) {
	return s.Resolve(ParsePath(path), start, mode)
}

func (s *FileStore) resolveLocked(p Path, start *File, mode ResolveMode, depth *int) (Resolution, error) {
	cur := start
	if p.Absolute() {
		root, ok := s.roots[p.Root]
		if !ok {
			return Resolution{}, errors.Wrapf(ErrNoSuchFile, "root %q", p.Root)
		}
		cur = root
	}
	if cur == nil {
		return Resolution{}, errors.Wrap(ErrNullArgument, "relative path needs a working directory")
	}
	if _, err := cur.Dir(); err != nil {
		return Resolution{}, errors.Wrapf(ErrNotDirectory, "resolution start is %s", cur.Type())
	}

	for i, comp := range p.Components {
		final := i == len(p.Components)-1

		if comp == ".." {
			next, err := s.parentOfLocked(cur)
			if err != nil {
				return Resolution{}, err
			}
			if final {
				return Resolution{file: next}, nil
			}
			cur = next
			continue
		}

		key, ok := cur.dir().Get(comp)
		if !ok {
			if final {
				return Resolution{parent: cur, name: comp}, nil
			}
			return Resolution{}, errors.Wrapf(ErrNoSuchFile, "component %q of %q", comp, p)
		}
		node := s.files[key]
		if node == nil {
			panic("dangling directory entry")
		}

		if node.IsSymbolicLink() && (!final || mode == FollowLinks) {
			res, err := s.expandLinkLocked(node, cur, depth)
			if err != nil {
				return Resolution{}, err
			}
			if final {
				return res, nil
			}
			if !res.Exists() {
				return Resolution{}, errors.Wrapf(ErrNoSuchFile, "component %q of %q", comp, p)
			}
			node = res.File()
		}

		if final {
			return Resolution{file: node, parent: cur, name: comp}, nil
		}
		if !node.IsDirectory() {
			return Resolution{}, errors.Wrapf(ErrNotDirectory, "component %q of %q", comp, p)
		}
		cur = node
	}

	// Empty component list: the path names the start (or root) itself.
	return Resolution{file: cur}, nil
}

// expandLinkLocked resolves a symlink target from its containing
// directory, sharing the caller's expansion counter so chains and
// cycles are bounded across the whole resolution.
func (s *FileStore) expandLinkLocked(link *File, containing *File, depth *int) (Resolution, error) {
	*depth++
	if *depth > maxSymlinkDepth {
		return Resolution{}, errors.Wrapf(ErrTooManyLinks, "symlink expansion exceeded %d", maxSymlinkDepth)
	}
	target, err := link.SymlinkTarget()
	if err != nil {
		return Resolution{}, err
	}
	return s.resolveLocked(ParsePath(target), containing, FollowLinks, depth)
}

// parentOfLocked resolves "..". A root tracks itself as parent; with
// RootParentSelf disabled stepping above a root is an error.
func (s *FileStore) parentOfLocked(dir *File) (*File, error) {
	parentKey := dir.dir().Parent()
	if parentKey == dir.Key() && !s.rootParentSelf {
		return nil, errors.Wrap(ErrNoSuchFile, `no ".." above a root`)
	}
	parent, ok := s.files[parentKey]
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchFile, "parent of file %d", dir.Key())
	}
	return parent, nil
}
