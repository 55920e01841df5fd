package memvfs

import (
	"reflect"
	"time"

	"github.com/pkg/errors"

	"github.com/memvfs/go-memvfs/clock"
)

// BasicAttributes is the immutable snapshot of the basic view.
type BasicAttributes struct {
	FileKey        int64
	Size           int64
	IsDirectory    bool
	IsRegularFile  bool
	IsSymbolicLink bool
	IsOther        bool

	CreationTime     time.Time
	LastModifiedTime time.Time
	LastAccessTime   time.Time
}

// BasicProvider implements the "basic" view: node identity, size and
// kind flags (read-only, computed from the node) plus the three file
// times (runtime-settable, stamped from the clock at creation).
type BasicProvider struct {
	clk clock.Clock
}

func NewBasicProvider(clk clock.Clock) *BasicProvider {
	return &BasicProvider{clk: clk}
}

var basicAttributeNames = []string{
	"fileKey",
	"size",
	"isDirectory",
	"isRegularFile",
	"isSymbolicLink",
	"isOther",
	"creationTime",
	"lastModifiedTime",
	"lastAccessTime",
}

func (*BasicProvider) Name() string       { return "basic" }
func (*BasicProvider) Inherits() []string { return nil }

func (*BasicProvider) Defines(name string) bool {
	for _, n := range basicAttributeNames {
		if n == name {
			return true
		}
	}
	return false
}

func (*BasicProvider) Names(*File) []string {
	return append([]string(nil), basicAttributeNames...)
}

func (p *BasicProvider) Defaults() map[string]any {
	now := p.clk.Now()
	return map[string]any{
		"creationTime":     now,
		"lastModifiedTime": now,
		"lastAccessTime":   now,
	}
}

func (*BasicProvider) Get(f *File, name string) any {
	switch name {
	case "fileKey":
		return f.Key()
	case "size":
		return f.Size()
	case "isDirectory":
		return f.IsDirectory()
	case "isRegularFile":
		return f.IsRegularFile()
	case "isSymbolicLink":
		return f.IsSymbolicLink()
	case "isOther":
		return false
	default:
		value, _ := f.Attribute("basic", name)
		return value
	}
}

func (*BasicProvider) Set(f *File, name string, value any, create bool) error {
	switch name {
	case "creationTime", "lastModifiedTime", "lastAccessTime":
		// The creation defaults stamp the times; explicit values are
		// runtime-only.
		if create {
			return errors.Wrapf(ErrNotSettableOnCreate, "basic:%s at file creation", name)
		}
		t, ok := coerceTime(value)
		if !ok {
			return errors.Wrapf(ErrInvalidType, "basic:%s does not accept %T", name, value)
		}
		f.SetAttribute("basic", name, t)
		return nil
	default:
		return errors.Wrapf(ErrNotSettable, "basic:%s", name)
	}
}

func (*BasicProvider) SnapshotType() reflect.Type {
	return reflect.TypeOf(BasicAttributes{})
}

func (*BasicProvider) Snapshot(f *File) (any, error) {
	return basicAttributesOf(f), nil
}

// basicAttributesOf builds the snapshot straight from the node. The
// caller holds the node's attribute serialization.
func basicAttributesOf(f *File) BasicAttributes {
	attrs := BasicAttributes{
		FileKey:        f.Key(),
		Size:           f.Size(),
		IsDirectory:    f.IsDirectory(),
		IsRegularFile:  f.IsRegularFile(),
		IsSymbolicLink: f.IsSymbolicLink(),
	}
	if t, ok := f.Attribute("basic", "creationTime"); ok {
		attrs.CreationTime = t.(time.Time)
	}
	if t, ok := f.Attribute("basic", "lastModifiedTime"); ok {
		attrs.LastModifiedTime = t.(time.Time)
	}
	if t, ok := f.Attribute("basic", "lastAccessTime"); ok {
		attrs.LastAccessTime = t.(time.Time)
	}
	return attrs
}

func (*BasicProvider) ViewType() reflect.Type {
	return reflect.TypeOf((*BasicView)(nil))
}

func (p *BasicProvider) View(lookup FileLookup) any {
	return &BasicView{lookup: lookup}
}

// BasicView is the live handle of the basic view. It resolves its
// file lazily, so the handle stays valid across moves.
type BasicView struct {
	lookup FileLookup
}

func (*BasicView) Name() string { return "basic" }

func (v *BasicView) ReadAttributes() (BasicAttributes, error) {
	f, err := v.lookup()
	if err != nil {
		return BasicAttributes{}, err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	return basicAttributesOf(f), nil
}

// SetTimes updates any subset of the three file times; nil arguments
// leave the corresponding time unchanged.
func (v *BasicView) SetTimes(lastModified, lastAccess, creation *time.Time) error {
	f, err := v.lookup()
	if err != nil {
		return err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	if lastModified != nil {
		f.SetAttribute("basic", "lastModifiedTime", *lastModified)
	}
	if lastAccess != nil {
		f.SetAttribute("basic", "lastAccessTime", *lastAccess)
	}
	if creation != nil {
		f.SetAttribute("basic", "creationTime", *creation)
	}
	return nil
}

var _ Provider = (*BasicProvider)(nil)

// StandardProviders returns the default provider set: basic, owner,
// posix and user, with conventional defaults.
func StandardProviders(clk clock.Clock) []Provider {
	return []Provider{
		NewBasicProvider(clk),
		NewOwnerProvider("user"),
		NewPosixProvider("group", 0o644),
		NewUserProvider(),
	}
}
