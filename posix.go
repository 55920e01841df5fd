package memvfs

import (
	"io/fs"
	"reflect"

	"github.com/pkg/errors"
)

// PosixAttributes is the immutable snapshot of the posix view,
// extending the basic snapshot with ownership and permission bits.
type PosixAttributes struct {
	BasicAttributes

	Owner       string
	Group       string
	Permissions fs.FileMode
}

// PosixProvider implements the "posix" view. It declares "group" and
// "permissions" and inherits the basic and owner views, so e.g.
// "posix:owner" and "posix:size" resolve without duplicating storage.
type PosixProvider struct {
	defaultGroup string
	defaultPerms fs.FileMode
}

func NewPosixProvider(defaultGroup string, defaultPerms fs.FileMode) *PosixProvider {
	return &PosixProvider{
		defaultGroup: defaultGroup,
		defaultPerms: defaultPerms & fs.ModePerm,
	}
}

func (*PosixProvider) Name() string       { return "posix" }
func (*PosixProvider) Inherits() []string { return []string{"basic", "owner"} }

func (*PosixProvider) Defines(name string) bool {
	return name == "group" || name == "permissions"
}

func (*PosixProvider) Names(*File) []string {
	return []string{"group", "permissions"}
}

func (p *PosixProvider) Defaults() map[string]any {
	return map[string]any{
		"group":       p.defaultGroup,
		"permissions": p.defaultPerms,
	}
}

func (*PosixProvider) Get(f *File, name string) any {
	value, _ := f.Attribute("posix", name)
	return value
}

func (*PosixProvider) Set(f *File, name string, value any, create bool) error {
	switch name {
	case "group":
		group, ok := coerceString(value)
		if !ok {
			return errors.Wrapf(ErrInvalidType, "posix:group does not accept %T", value)
		}
		f.SetAttribute("posix", "group", group)
	case "permissions":
		mode, ok := coerceMode(value)
		if !ok {
			return errors.Wrapf(ErrInvalidType, "posix:permissions does not accept %T", value)
		}
		f.SetAttribute("posix", "permissions", mode)
	}
	return nil
}

func (*PosixProvider) SnapshotType() reflect.Type {
	return reflect.TypeOf(PosixAttributes{})
}

func (*PosixProvider) Snapshot(f *File) (any, error) {
	return posixAttributesOf(f), nil
}

func posixAttributesOf(f *File) PosixAttributes {
	attrs := PosixAttributes{BasicAttributes: basicAttributesOf(f)}
	if owner, ok := f.Attribute("owner", "owner"); ok {
		attrs.Owner, _ = owner.(string)
	}
	if group, ok := f.Attribute("posix", "group"); ok {
		attrs.Group, _ = group.(string)
	}
	if perms, ok := f.Attribute("posix", "permissions"); ok {
		attrs.Permissions, _ = perms.(fs.FileMode)
	}
	return attrs
}

func (*PosixProvider) ViewType() reflect.Type {
	return reflect.TypeOf((*PosixView)(nil))
}

func (p *PosixProvider) View(lookup FileLookup) any {
	return &PosixView{lookup: lookup}
}

// PosixView is the live handle of the posix view.
type PosixView struct {
	lookup FileLookup
}

func (*PosixView) Name() string { return "posix" }

func (v *PosixView) ReadAttributes() (PosixAttributes, error) {
	f, err := v.lookup()
	if err != nil {
		return PosixAttributes{}, err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	return posixAttributesOf(f), nil
}

func (v *PosixView) SetGroup(group string) error {
	f, err := v.lookup()
	if err != nil {
		return err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	f.SetAttribute("posix", "group", group)
	return nil
}

func (v *PosixView) SetPermissions(perms fs.FileMode) error {
	f, err := v.lookup()
	if err != nil {
		return err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	f.SetAttribute("posix", "permissions", perms&fs.ModePerm)
	return nil
}

var _ Provider = (*PosixProvider)(nil)
