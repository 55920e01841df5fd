package memvfs

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/memvfs/go-memvfs/bytestore"
)

// FileType is the kind of a file node.
type FileType int

const (
	Regular FileType = iota
	Directory
	Symlink
)

func (t FileType) String() string {
	switch t {
	case Regular:
		return "regular"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// File is one node of the filesystem: a stable integer key, a kind,
// the kind-specific content, the attribute table and the reference
// counts that drive reclamation.
//
// A node is owned by its FileStore and referenced, non-owning, from
// directory entries by key. The link count is the number of directory
// entries naming the node; the handle count is the number of open
// handles the outer byte-stream layer holds on it. The node's content
// is released when both reach zero.
type File struct {
	key  int64
	kind FileType

	// content is a *bytestore.Store for regular files, a
	// *DirectoryTable for directories and the immutable target path
	// string for symlinks. Set to nil on reclamation. Guarded by
	// tableMtx: reclamation can race an attribute read on the node.
	content any

	// tableMtx guards content, attributes, links and handles.
	tableMtx   sync.Mutex
	attributes map[string]map[string]any
	links      int32
	handles    int32

	// attrMtx serializes whole attribute operations on this node, so
	// a wildcard read observes one consistent instant. Held only by
	// the AttributeService and by live view handles, never while
	// holding tableMtx.
	attrMtx sync.Mutex
}

func newRegularFile(key int64, store *bytestore.Store) *File {
	return &File{key: key, kind: Regular, content: store}
}

func newDirectory(key int64, parent int64) *File {
	return &File{key: key, kind: Directory, content: newDirectoryTable(parent)}
}

func newSymlink(key int64, target string) *File {
	return &File{key: key, kind: Symlink, content: target}
}

// Key returns the process-unique identity of the node, the analogue
// of an inode number. Keys are never reused while the node exists.
func (f *File) Key() int64 { return f.key }

// Type returns the node kind.
func (f *File) Type() FileType { return f.kind }

func (f *File) IsDirectory() bool    { return f.kind == Directory }
func (f *File) IsRegularFile() bool  { return f.kind == Regular }
func (f *File) IsSymbolicLink() bool { return f.kind == Symlink }

// loadContent reads the content slot under the node lock, so a read
// observes either the live content or the nil left by reclamation,
// never a torn value.
func (f *File) loadContent() any {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	return f.content
}

// Bytes returns the byte store of a regular file.
func (f *File) Bytes() (*bytestore.Store, error) {
	store, ok := f.loadContent().(*bytestore.Store)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "file %d is %s, not regular", f.key, f.kind)
	}
	return store, nil
}

// Dir returns the directory table of a directory node.
func (f *File) Dir() (*DirectoryTable, error) {
	table, ok := f.loadContent().(*DirectoryTable)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "file %d is %s, not a directory", f.key, f.kind)
	}
	return table, nil
}

// SymlinkTarget returns the target path of a symlink node. The target
// is fixed at creation and never resolved eagerly.
func (f *File) SymlinkTarget() (string, error) {
	target, ok := f.loadContent().(string)
	if !ok {
		return "", errors.Wrapf(ErrTypeMismatch, "file %d is %s, not a symlink", f.key, f.kind)
	}
	return target, nil
}

// Size returns the content size: the byte store size for regular
// files, zero for directories and symlinks.
func (f *File) Size() int64 {
	if store, ok := f.loadContent().(*bytestore.Store); ok {
		return store.Size()
	}
	return 0
}

// dir is Dir for paths that have already checked the node kind.
func (f *File) dir() *DirectoryTable {
	return f.loadContent().(*DirectoryTable)
}

// Attribute returns the stored value of the (view, name) pair. Values
// are in the defining provider's canonical form. Intended for use by
// attribute providers only.
func (f *File) Attribute(view, name string) (any, bool) {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	byName, ok := f.attributes[view]
	if !ok {
		return nil, false
	}
	value, ok := byName[name]
	return value, ok
}

// SetAttribute stores a canonical value under the (view, name) pair.
// Intended for use by attribute providers only; type checking and
// settability rules live in the providers.
func (f *File) SetAttribute(view, name string, value any) {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	if f.attributes == nil {
		f.attributes = make(map[string]map[string]any)
	}
	byName, ok := f.attributes[view]
	if !ok {
		byName = make(map[string]any)
		f.attributes[view] = byName
	}
	byName[name] = value
}

// DeleteAttribute removes a stored (view, name) pair.
func (f *File) DeleteAttribute(view, name string) {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	delete(f.attributes[view], name)
}

// AttributeNames returns the names stored under the view, in no
// particular order.
func (f *File) AttributeNames(view string) []string {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	byName := f.attributes[view]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	return names
}

// Links returns the current link count.
func (f *File) Links() int32 {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	return f.links
}

func (f *File) incrementLinks() {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	f.links++
}

func (f *File) decrementLinks() {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	if f.links <= 0 {
		panic("link count underflow")
	}
	f.links--
}

// Retain records an open handle on the node, keeping its content
// alive across an unlink.
func (f *File) Retain() {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	f.handles++
}

func (f *File) releaseHandle() {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	if f.handles <= 0 {
		panic("handle count underflow")
	}
	f.handles--
}

// unreferenced reports whether no directory entry and no open handle
// references the node.
func (f *File) unreferenced() bool {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	return f.links == 0 && f.handles == 0
}

// discardContent drops the node's content once it is unreferenced.
func (f *File) discardContent() {
	f.tableMtx.Lock()
	defer f.tableMtx.Unlock()
	f.content = nil
}
