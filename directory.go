package memvfs

import "github.com/pkg/errors"

// DirEntry is one (name, file key) pair of a directory.
type DirEntry struct {
	Name string
	Key  int64
}

// DirectoryTable is the ordered name to file-key mapping of one
// directory node. Names are unique per table and enumeration follows
// insertion order. "." and ".." are never stored; the resolver
// synthesizes them, using the tracked parent key for "..".
//
// Must hold the owning FileStore's structural lock to access.
type DirectoryTable struct {
	parent  int64
	entries map[string]int64
	order   []string
}

func newDirectoryTable(parent int64) *DirectoryTable {
	return &DirectoryTable{
		parent:  parent,
		entries: make(map[string]int64),
	}
}

// Parent returns the file key ".." resolves to. A root directory
// tracks itself.
func (t *DirectoryTable) Parent() int64 { return t.parent }

func (t *DirectoryTable) setParent(key int64) { t.parent = key }

// Get returns the file key stored under name.
func (t *DirectoryTable) Get(name string) (int64, bool) {
	key, ok := t.entries[name]
	return key, ok
}

// Len returns the number of entries.
func (t *DirectoryTable) Len() int { return len(t.entries) }

// put inserts an entry. Without replace an existing name fails with
// ErrAlreadyExists; with replace the entry keeps its enumeration
// position, which is what move-with-overwrite wants.
func (t *DirectoryTable) put(name string, key int64, replace bool) error {
	if _, ok := t.entries[name]; ok {
		if !replace {
			return errors.Wrapf(ErrAlreadyExists, "entry %q", name)
		}
		t.entries[name] = key
		return nil
	}
	t.entries[name] = key
	t.order = append(t.order, name)
	return nil
}

// remove deletes an entry, returning the key it held.
func (t *DirectoryTable) remove(name string) (int64, bool) {
	key, ok := t.entries[name]
	if !ok {
		return 0, false
	}
	delete(t.entries, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return key, true
}

// Snapshot returns an ordered copy of the entries. The copy is taken
// under the structural lock by the caller, so a concurrent mutation is
// invisible to an iteration over the result.
func (t *DirectoryTable) Snapshot() []DirEntry {
	snapshot := make([]DirEntry, 0, len(t.order))
	for _, name := range t.order {
		snapshot = append(snapshot, DirEntry{Name: name, Key: t.entries[name]})
	}
	return snapshot
}
