package memvfs

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/memvfs/go-memvfs/bytestore"
	"github.com/memvfs/go-memvfs/clock"
	"github.com/memvfs/go-memvfs/log"
)

type storeConfig struct {
	roots          []string
	rootParentSelf bool
	maxFileSize    int64
	clk            clock.Clock
	logger         log.Log
	notifier       Notifier
	providers      []Provider
}

// Option configures a FileStore.
type Option func(*storeConfig)

// WithRoots sets the root directory names. The default is a single
// "/" root. Additional roots are reached through Root and relative
// resolution; only "/" participates in absolute path parsing.
func WithRoots(names ...string) Option {
	return func(c *storeConfig) { c.roots = names }
}

// WithRootParentSelf controls what ".." resolves to at a root: the
// root itself (true, the default) or a resolution failure (false).
func WithRootParentSelf(v bool) Option {
	return func(c *storeConfig) { c.rootParentSelf = v }
}

// WithMaxFileSize caps the byte content of each regular file. Zero,
// the default, disables the cap.
func WithMaxFileSize(n int64) Option {
	return func(c *storeConfig) { c.maxFileSize = n }
}

// WithClock sets the time source for time-valued attributes.
func WithClock(clk clock.Clock) Option {
	return func(c *storeConfig) { c.clk = clk }
}

// WithLogger sets the logger for structural operations.
func WithLogger(l log.Log) Option {
	return func(c *storeConfig) { c.logger = l }
}

// WithNotifier registers the watch-layer hook.
func WithNotifier(n Notifier) Option {
	return func(c *storeConfig) { c.notifier = n }
}

// WithProviders replaces the standard attribute providers. The set
// must include a "basic" provider and every inherited view.
func WithProviders(providers ...Provider) Option {
	return func(c *storeConfig) { c.providers = providers }
}

// FileStore owns the file nodes, the root directories, the file-key
// sequence and the coarse structural lock that serializes directory
// membership changes.
type FileStore struct {
	// structural serializes structural mutation on the write side;
	// resolution and enumeration snapshots take the read side.
	structural sync.RWMutex

	// keys is the process-wide file-key sequence. Keys are handed out
	// monotonically and never reused.
	keys atomic.Int64

	// files is the node arena: every live node, addressed by key.
	// Must hold structural to access.
	files map[int64]*File

	roots          map[string]*File
	rootParentSelf bool
	maxFileSize    int64
	clk            clock.Clock
	logger         log.Log
	notifier       Notifier
	attrs          *AttributeService
}

// NewFileStore builds an empty store with its configured roots
// created and stamped with initial attributes.
func NewFileStore(opts ...Option) (*FileStore, error) {
	cfg := storeConfig{
		roots:          []string{"/"},
		rootParentSelf: true,
		clk:            clock.Real(),
		logger:         log.NoLog{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.providers == nil {
		cfg.providers = StandardProviders(cfg.clk)
	}
	attrs, err := NewAttributeService(cfg.providers...)
	if err != nil {
		return nil, err
	}

	s := &FileStore{
		files:          make(map[int64]*File),
		roots:          make(map[string]*File),
		rootParentSelf: cfg.rootParentSelf,
		maxFileSize:    cfg.maxFileSize,
		clk:            cfg.clk,
		logger:         cfg.logger,
		notifier:       cfg.notifier,
		attrs:          attrs,
	}
	if len(cfg.roots) == 0 {
		return nil, errors.New("at least one root is required")
	}
	for _, name := range cfg.roots {
		if name == "" {
			return nil, errors.New("root name must not be empty")
		}
		if _, ok := s.roots[name]; ok {
			return nil, errors.Errorf("duplicate root %q", name)
		}
		key := s.nextKey()
		root := newDirectory(key, key)
		// Roots are never removable; the permanent link keeps the
		// node alive with no directory entry naming it.
		root.incrementLinks()
		if err := attrs.SetInitialAttributes(root); err != nil {
			return nil, errors.Wrapf(err, "initialize root %q", name)
		}
		s.files[key] = root
		s.roots[name] = root
	}
	return s, nil
}

// Attributes returns the attribute service composed over the
// installed providers.
func (s *FileStore) Attributes() *AttributeService { return s.attrs }

// Root returns the named root directory.
func (s *FileStore) Root(name string) (*File, bool) {
	root, ok := s.roots[name]
	return root, ok
}

// Roots returns the configured root names, sorted.
func (s *FileStore) Roots() []string {
	names := make([]string, 0, len(s.roots))
	for name := range s.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *FileStore) nextKey() int64 {
	return s.keys.Add(1) - 1
}

// CreateFile creates an empty regular file under parent. It fails
// with ErrAlreadyExists if the name is taken.
func (s *FileStore) CreateFile(parent *File, name string, attrs ...Attr) (file *File, err error) {
	cookie := s.logger.Call("CreateFile", log.M{"parent": parent.Key(), "name": name})
	defer func() { s.logger.Return("CreateFile", cookie, log.M{"err": err}) }()

	file, err = s.createNode(parent, name, false, attrs, func(key int64) *File {
		return newRegularFile(key, bytestore.New(s.maxFileSize))
	})
	if err == nil {
		s.notify(parent, EventCreated, name)
	}
	return file, err
}

// ReplaceFile is the overwrite variant of CreateFile: an existing
// entry under the name is unlinked first. Replacing a non-empty
// directory fails with ErrDirectoryNotEmpty.
func (s *FileStore) ReplaceFile(parent *File, name string, attrs ...Attr) (file *File, err error) {
	cookie := s.logger.Call("ReplaceFile", log.M{"parent": parent.Key(), "name": name})
	defer func() { s.logger.Return("ReplaceFile", cookie, log.M{"err": err}) }()

	file, err = s.createNode(parent, name, true, attrs, func(key int64) *File {
		return newRegularFile(key, bytestore.New(s.maxFileSize))
	})
	if err == nil {
		s.notify(parent, EventCreated, name)
	}
	return file, err
}

// CreateDirectory creates an empty directory under parent.
func (s *FileStore) CreateDirectory(parent *File, name string, attrs ...Attr) (dir *File, err error) {
	cookie := s.logger.Call("CreateDirectory", log.M{"parent": parent.Key(), "name": name})
	defer func() { s.logger.Return("CreateDirectory", cookie, log.M{"err": err}) }()

	dir, err = s.createNode(parent, name, false, attrs, func(key int64) *File {
		return newDirectory(key, parent.Key())
	})
	if err == nil {
		s.notify(parent, EventCreated, name)
	}
	return dir, err
}

// CreateSymlink creates a symlink under parent. The target string is
// stored as-is and only interpreted during resolution.
func (s *FileStore) CreateSymlink(parent *File, name, target string, attrs ...Attr) (link *File, err error) {
	cookie := s.logger.Call("CreateSymlink", log.M{"parent": parent.Key(), "name": name, "target": target})
	defer func() { s.logger.Return("CreateSymlink", cookie, log.M{"err": err}) }()

	link, err = s.createNode(parent, name, false, attrs, func(key int64) *File {
		return newSymlink(key, target)
	})
	if err == nil {
		s.notify(parent, EventCreated, name)
	}
	return link, err
}

// CopyFile creates a new regular file under destParent whose content
// is a copy-on-write duplicate of src's bytes. Attributes start from
// provider defaults plus the given overrides, not from src.
func (s *FileStore) CopyFile(src *File, destParent *File, name string, attrs ...Attr) (file *File, err error) {
	cookie := s.logger.Call("CopyFile", log.M{"src": src.Key(), "parent": destParent.Key(), "name": name})
	defer func() { s.logger.Return("CopyFile", cookie, log.M{"err": err}) }()

	srcStore, err := src.Bytes()
	if err != nil {
		return nil, err
	}
	file, err = s.createNode(destParent, name, false, attrs, func(key int64) *File {
		return newRegularFile(key, srcStore.Copy())
	})
	if err == nil {
		s.notify(destParent, EventCreated, name)
	}
	return file, err
}

func (s *FileStore) createNode(parent *File, name string, replace bool, attrs []Attr, build func(key int64) *File) (*File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	table, err := parent.Dir()
	if err != nil {
		return nil, errors.Wrapf(ErrNotDirectory, "create %q: parent is %s", name, parent.Type())
	}

	s.structural.Lock()
	defer s.structural.Unlock()

	existingKey, exists := table.Get(name)
	if exists && !replace {
		return nil, errors.Wrapf(ErrAlreadyExists, "create %q", name)
	}

	node := build(s.nextKey())
	if err := s.attrs.SetInitialAttributes(node, attrs...); err != nil {
		// The node was never linked; the directory is untouched.
		return nil, err
	}

	if exists {
		existing := s.files[existingKey]
		if existing.IsDirectory() && existing.dir().Len() > 0 {
			return nil, errors.Wrapf(ErrDirectoryNotEmpty, "replace %q", name)
		}
		existing.decrementLinks()
		s.reapLocked(existing)
	}

	// Replacing keeps the entry's enumeration position.
	if err := table.put(name, node.Key(), replace); err != nil {
		return nil, err
	}
	node.incrementLinks()
	s.files[node.Key()] = node
	return node, nil
}

// Link adds a directory entry naming an existing file, incrementing
// its link count. Directories cannot be hard-linked.
func (s *FileStore) Link(parent *File, name string, existing *File) (err error) {
	cookie := s.logger.Call("Link", log.M{"parent": parent.Key(), "name": name})
	defer func() { s.logger.Return("Link", cookie, log.M{"err": err}) }()

	if existing == nil {
		return errors.Wrap(ErrNullArgument, "link target")
	}
	if existing.IsDirectory() {
		return errors.Wrap(ErrUnsupported, "hard link to a directory")
	}
	if err := checkName(name); err != nil {
		return err
	}
	table, err := parent.Dir()
	if err != nil {
		return errors.Wrapf(ErrNotDirectory, "link %q: parent is %s", name, parent.Type())
	}

	s.structural.Lock()
	if _, ok := table.Get(name); ok {
		s.structural.Unlock()
		return errors.Wrapf(ErrAlreadyExists, "link %q", name)
	}
	if existing.Links() == 0 {
		s.structural.Unlock()
		return errors.Wrapf(ErrNoSuchFile, "link target %d was deleted", existing.Key())
	}
	if err := table.put(name, existing.Key(), false); err != nil {
		s.structural.Unlock()
		return err
	}
	existing.incrementLinks()
	s.structural.Unlock()

	s.notify(parent, EventCreated, name)
	return nil
}

// Delete unlinks the named entry. The node's content is released once
// its link count and open-handle count both reach zero. A non-empty
// directory fails with ErrDirectoryNotEmpty.
func (s *FileStore) Delete(parent *File, name string) (err error) {
	cookie := s.logger.Call("Delete", log.M{"parent": parent.Key(), "name": name})
	defer func() { s.logger.Return("Delete", cookie, log.M{"err": err}) }()

	table, err := parent.Dir()
	if err != nil {
		return errors.Wrapf(ErrNotDirectory, "delete %q: parent is %s", name, parent.Type())
	}

	s.structural.Lock()
	key, ok := table.Get(name)
	if !ok {
		s.structural.Unlock()
		return errors.Wrapf(ErrNoSuchFile, "delete %q", name)
	}
	node := s.files[key]
	if node.IsDirectory() && node.dir().Len() > 0 {
		s.structural.Unlock()
		return errors.Wrapf(ErrDirectoryNotEmpty, "delete %q", name)
	}
	table.remove(name)
	node.decrementLinks()
	s.reapLocked(node)
	s.structural.Unlock()

	s.notify(parent, EventDeleted, name)
	return nil
}

// Move transplants a directory entry under one hold of the structural
// lock, so no observer sees zero or two entries for the name. With
// replace an existing destination is unlinked first; a non-empty
// destination directory fails with ErrDirectoryNotEmpty.
func (s *FileStore) Move(srcParent *File, srcName string, destParent *File, destName string, replace bool) (err error) {
	cookie := s.logger.Call("Move", log.M{
		"srcParent": srcParent.Key(), "srcName": srcName,
		"destParent": destParent.Key(), "destName": destName,
	})
	defer func() { s.logger.Return("Move", cookie, log.M{"err": err}) }()

	if err := checkName(destName); err != nil {
		return err
	}
	srcTable, err := srcParent.Dir()
	if err != nil {
		return errors.Wrapf(ErrNotDirectory, "move %q: source parent is %s", srcName, srcParent.Type())
	}
	destTable, err := destParent.Dir()
	if err != nil {
		return errors.Wrapf(ErrNotDirectory, "move %q: destination parent is %s", destName, destParent.Type())
	}

	s.structural.Lock()
	key, ok := srcTable.Get(srcName)
	if !ok {
		s.structural.Unlock()
		return errors.Wrapf(ErrNoSuchFile, "move %q", srcName)
	}
	node := s.files[key]

	if srcParent == destParent && srcName == destName {
		s.structural.Unlock()
		return nil
	}
	if node.IsDirectory() {
		if err := s.checkNotAncestorLocked(node, destParent); err != nil {
			s.structural.Unlock()
			return err
		}
	}

	if destKey, ok := destTable.Get(destName); ok {
		if !replace {
			s.structural.Unlock()
			return errors.Wrapf(ErrAlreadyExists, "move to %q", destName)
		}
		existing := s.files[destKey]
		if existing == node {
			// Hard link of the source; the rename is a no-op.
			s.structural.Unlock()
			return nil
		}
		if existing.IsDirectory() && existing.dir().Len() > 0 {
			s.structural.Unlock()
			return errors.Wrapf(ErrDirectoryNotEmpty, "move over %q", destName)
		}
		existing.decrementLinks()
		s.reapLocked(existing)
		s.logger.Logf(log.TopicVerdict, "move replaced entry %q", destName)
	}

	srcTable.remove(srcName)
	// Overwrite keeps the destination entry's enumeration position.
	if err := destTable.put(destName, key, replace); err != nil {
		s.structural.Unlock()
		return err
	}
	if node.IsDirectory() {
		node.dir().setParent(destParent.Key())
	}
	s.structural.Unlock()

	s.notify(srcParent, EventDeleted, srcName)
	s.notify(destParent, EventCreated, destName)
	return nil
}

// checkNotAncestorLocked rejects moving a directory into itself or a
// descendant, which would detach a cycle from the tree.
func (s *FileStore) checkNotAncestorLocked(dir *File, destParent *File) error {
	for anc := destParent; ; {
		if anc == dir {
			return errors.Wrap(ErrUnsupported, "move a directory into itself")
		}
		parentKey := anc.dir().Parent()
		if parentKey == anc.Key() {
			return nil
		}
		next, ok := s.files[parentKey]
		if !ok {
			return nil
		}
		anc = next
	}
}

// Release drops an open handle taken with File.Retain, reclaiming the
// node if it is fully unlinked.
func (s *FileStore) Release(f *File) {
	s.structural.Lock()
	defer s.structural.Unlock()
	f.releaseHandle()
	s.reapLocked(f)
}

// reapLocked reclaims a node once nothing references it.
func (s *FileStore) reapLocked(node *File) {
	if !node.unreferenced() {
		return
	}
	delete(s.files, node.Key())
	node.discardContent()
}

// List returns an ordered snapshot of a directory's entries, taken
// under the structural lock.
func (s *FileStore) List(dir *File) ([]DirEntry, error) {
	table, err := dir.Dir()
	if err != nil {
		return nil, err
	}
	s.structural.RLock()
	defer s.structural.RUnlock()
	return table.Snapshot(), nil
}

// Lookup returns the live node for a key, if any.
func (s *FileStore) Lookup(key int64) (*File, bool) {
	s.structural.RLock()
	defer s.structural.RUnlock()
	f, ok := s.files[key]
	return f, ok
}

// TotalSize returns the bytes held by all regular files.
func (s *FileStore) TotalSize() int64 {
	s.structural.RLock()
	defer s.structural.RUnlock()
	var total int64
	for _, f := range s.files {
		if f.IsRegularFile() {
			total += f.Size()
		}
	}
	return total
}
