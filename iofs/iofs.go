// Package iofs adapts a memvfs file store to the standard library
// io/fs interfaces.
//
// The adapter is read-only: it serves Open, ReadDir, Stat, Lstat and
// ReadLink over the live store. Mutation goes through the store's own
// operations; an adapter handle opened before a mutation keeps reading
// the node it resolved, even across a concurrent move or unlink, which
// matches the open-handle semantics of the store itself.
package iofs

import (
	"io"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/pkg/errors"

	memvfs "github.com/memvfs/go-memvfs"
	"github.com/memvfs/go-memvfs/bytestore"
)

// FS is an io/fs view rooted at one root directory of a FileStore.
type FS struct {
	store *memvfs.FileStore
	root  *memvfs.File
}

// New builds an io/fs view over the store's "/" root.
func New(store *memvfs.FileStore) (*FS, error) {
	return NewRooted(store, "/")
}

// NewRooted builds an io/fs view over a named root.
func NewRooted(store *memvfs.FileStore, root string) (*FS, error) {
	dir, ok := store.Root(root)
	if !ok {
		return nil, errors.Errorf("no root %q", root)
	}
	return &FS{store: store, root: dir}, nil
}

// resolve maps an io/fs name ("." or "a/b/c") to a store node.
func (f *FS) resolve(op, name string, mode memvfs.ResolveMode) (*memvfs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return f.root, nil
	}
	res, err := f.store.ResolvePath(name, f.root, mode)
	if err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: mapError(err)}
	}
	if !res.Exists() {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return res.File(), nil
}

// mapError translates store sentinels to their io/fs equivalents.
func mapError(err error) error {
	switch {
	case errors.Is(err, memvfs.ErrNoSuchFile):
		return fs.ErrNotExist
	case errors.Is(err, memvfs.ErrNotDirectory), errors.Is(err, memvfs.ErrTypeMismatch):
		return fs.ErrInvalid
	default:
		return err
	}
}

// Open opens the named file or directory, following symlinks.
func (f *FS) Open(name string) (fs.File, error) {
	node, err := f.resolve("open", name, memvfs.FollowLinks)
	if err != nil {
		return nil, err
	}
	base := path.Base(name)
	if node.IsDirectory() {
		entries, err := f.store.List(node)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: mapError(err)}
		}
		// The io/fs contract wants lexical order; the store's own
		// enumeration keeps insertion order.
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		return &dirHandle{fsys: f, node: node, name: base, entries: entries}, nil
	}
	store, err := node.Bytes()
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: mapError(err)}
	}
	node.Retain()
	return &fileHandle{fsys: f, node: node, name: base, bytes: store}, nil
}

// ReadDir returns the ordered entries of the named directory.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	node, err := f.resolve("readdir", name, memvfs.FollowLinks)
	if err != nil {
		return nil, err
	}
	entries, err := f.store.List(node)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: mapError(err)}
	}
	out := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, &dirEntry{fsys: f, entry: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Stat returns the info of the named file, following symlinks.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	node, err := f.resolve("stat", name, memvfs.FollowLinks)
	if err != nil {
		return nil, err
	}
	return f.info(path.Base(name), node)
}

// Lstat is Stat without following a final symlink.
func (f *FS) Lstat(name string) (fs.FileInfo, error) {
	node, err := f.resolve("lstat", name, memvfs.NoFollowLinks)
	if err != nil {
		return nil, err
	}
	return f.info(path.Base(name), node)
}

// ReadLink returns the target of the named symlink.
func (f *FS) ReadLink(name string) (string, error) {
	node, err := f.resolve("readlink", name, memvfs.NoFollowLinks)
	if err != nil {
		return "", err
	}
	target, err := node.SymlinkTarget()
	if err != nil {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: fs.ErrInvalid}
	}
	return target, nil
}

func (f *FS) info(name string, node *memvfs.File) (*fileInfo, error) {
	attrs, err := memvfs.ReadAttributesAs[memvfs.BasicAttributes](f.store.Attributes(), node)
	if err != nil {
		return nil, err
	}
	mode := fs.FileMode(0)
	if perms, err := f.store.Attributes().GetAttribute(node, "posix:permissions"); err == nil {
		if m, ok := perms.(fs.FileMode); ok {
			mode = m
		}
	}
	switch node.Type() {
	case memvfs.Directory:
		mode |= fs.ModeDir
	case memvfs.Symlink:
		mode |= fs.ModeSymlink
	}
	return &fileInfo{name: name, attrs: attrs, mode: mode}, nil
}

type fileInfo struct {
	name  string
	attrs memvfs.BasicAttributes
	mode  fs.FileMode
}

func (i *fileInfo) Name() string       { return i.name }
func (i *fileInfo) Size() int64        { return i.attrs.Size }
func (i *fileInfo) Mode() fs.FileMode  { return i.mode }
func (i *fileInfo) ModTime() time.Time { return i.attrs.LastModifiedTime }
func (i *fileInfo) IsDir() bool        { return i.mode.IsDir() }
func (i *fileInfo) Sys() any           { return i.attrs.FileKey }

// fileHandle is an open regular file. It holds an open-handle count on
// the node, so the content outlives a concurrent unlink until Close.
type fileHandle struct {
	fsys   *FS
	node   *memvfs.File
	name   string
	bytes  *bytestore.Store
	offset int64
	closed bool
}

func (h *fileHandle) Stat() (fs.FileInfo, error) {
	return h.fsys.info(h.name, h.node)
}

func (h *fileHandle) Read(p []byte) (int, error) {
	if h.closed {
		return 0, &fs.PathError{Op: "read", Path: h.name, Err: fs.ErrClosed}
	}
	n, err := h.bytes.ReadAt(p, h.offset)
	h.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (h *fileHandle) Close() error {
	if h.closed {
		return &fs.PathError{Op: "close", Path: h.name, Err: fs.ErrClosed}
	}
	h.closed = true
	h.fsys.store.Release(h.node)
	return nil
}

// dirHandle is an open directory over a snapshot of its entries.
type dirHandle struct {
	fsys    *FS
	node    *memvfs.File
	name    string
	entries []memvfs.DirEntry
	offset  int
}

func (h *dirHandle) Stat() (fs.FileInfo, error) {
	return h.fsys.info(h.name, h.node)
}

func (h *dirHandle) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: h.name, Err: errors.New("is a directory")}
}

func (h *dirHandle) Close() error { return nil }

func (h *dirHandle) ReadDir(n int) ([]fs.DirEntry, error) {
	remaining := len(h.entries) - h.offset
	if n <= 0 {
		out := make([]fs.DirEntry, 0, remaining)
		for _, e := range h.entries[h.offset:] {
			out = append(out, &dirEntry{fsys: h.fsys, entry: e})
		}
		h.offset = len(h.entries)
		return out, nil
	}
	if remaining == 0 {
		return nil, io.EOF
	}
	if n > remaining {
		n = remaining
	}
	out := make([]fs.DirEntry, 0, n)
	for _, e := range h.entries[h.offset : h.offset+n] {
		out = append(out, &dirEntry{fsys: h.fsys, entry: e})
	}
	h.offset += n
	return out, nil
}

type dirEntry struct {
	fsys  *FS
	entry memvfs.DirEntry
}

func (e *dirEntry) Name() string { return e.entry.Name }

func (e *dirEntry) IsDir() bool {
	node, ok := e.fsys.store.Lookup(e.entry.Key)
	return ok && node.IsDirectory()
}

func (e *dirEntry) Type() fs.FileMode {
	node, ok := e.fsys.store.Lookup(e.entry.Key)
	if !ok {
		return 0
	}
	switch node.Type() {
	case memvfs.Directory:
		return fs.ModeDir
	case memvfs.Symlink:
		return fs.ModeSymlink
	default:
		return 0
	}
}

func (e *dirEntry) Info() (fs.FileInfo, error) {
	node, ok := e.fsys.store.Lookup(e.entry.Key)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: e.entry.Name, Err: fs.ErrNotExist}
	}
	return e.fsys.info(e.entry.Name, node)
}

var (
	_ fs.FS        = (*FS)(nil)
	_ fs.ReadDirFS = (*FS)(nil)
	_ fs.StatFS    = (*FS)(nil)
)
