package memvfs

import (
	"reflect"
	"sort"

	"github.com/pkg/errors"
)

// UserProvider implements the "user" view, the extended-attribute
// analogue: an open-ended set of named byte values. Unlike the other
// views it declares no fixed names; whatever a caller stores is
// declared by definition.
type UserProvider struct{}

func NewUserProvider() *UserProvider { return &UserProvider{} }

func (*UserProvider) Name() string       { return "user" }
func (*UserProvider) Inherits() []string { return nil }

func (*UserProvider) Defines(name string) bool { return name != "" }

func (*UserProvider) Names(f *File) []string {
	names := f.AttributeNames("user")
	sort.Strings(names)
	return names
}

func (*UserProvider) Defaults() map[string]any { return nil }

func (*UserProvider) Get(f *File, name string) any {
	value, ok := f.Attribute("user", name)
	if !ok {
		return nil
	}
	stored := value.([]byte)
	cloned := make([]byte, len(stored))
	copy(cloned, stored)
	return cloned
}

func (*UserProvider) Set(f *File, name string, value any, create bool) error {
	if create {
		return errors.Wrapf(ErrNotSettableOnCreate, "user:%s at file creation", name)
	}
	b, ok := coerceBytes(value)
	if !ok {
		return errors.Wrapf(ErrInvalidType, "user:%s does not accept %T", name, value)
	}
	f.SetAttribute("user", name, b)
	return nil
}

func (*UserProvider) SnapshotType() reflect.Type { return nil }

func (*UserProvider) Snapshot(*File) (any, error) {
	return nil, errors.Wrap(ErrUnsupported, "the user view has no snapshot form")
}

func (*UserProvider) ViewType() reflect.Type {
	return reflect.TypeOf((*UserView)(nil))
}

func (p *UserProvider) View(lookup FileLookup) any {
	return &UserView{lookup: lookup}
}

// UserView is the live handle of the user view.
type UserView struct {
	lookup FileLookup
}

func (*UserView) Name() string { return "user" }

func (v *UserView) List() ([]string, error) {
	f, err := v.lookup()
	if err != nil {
		return nil, err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	names := f.AttributeNames("user")
	sort.Strings(names)
	return names, nil
}

func (v *UserView) Get(name string) ([]byte, error) {
	f, err := v.lookup()
	if err != nil {
		return nil, err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	value, ok := f.Attribute("user", name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAttribute, "user:%s", name)
	}
	stored := value.([]byte)
	cloned := make([]byte, len(stored))
	copy(cloned, stored)
	return cloned, nil
}

func (v *UserView) Set(name string, value []byte) error {
	f, err := v.lookup()
	if err != nil {
		return err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	cloned := make([]byte, len(value))
	copy(cloned, value)
	f.SetAttribute("user", name, cloned)
	return nil
}

func (v *UserView) Delete(name string) error {
	f, err := v.lookup()
	if err != nil {
		return err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	f.DeleteAttribute("user", name)
	return nil
}

var _ Provider = (*UserProvider)(nil)
