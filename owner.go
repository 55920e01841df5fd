package memvfs

import (
	"reflect"

	"github.com/pkg/errors"
)

// OwnerProvider implements the "owner" view: a single settable
// "owner" attribute, canonically a string.
type OwnerProvider struct {
	defaultOwner string
}

func NewOwnerProvider(defaultOwner string) *OwnerProvider {
	return &OwnerProvider{defaultOwner: defaultOwner}
}

func (*OwnerProvider) Name() string       { return "owner" }
func (*OwnerProvider) Inherits() []string { return nil }

func (*OwnerProvider) Defines(name string) bool { return name == "owner" }

func (*OwnerProvider) Names(*File) []string { return []string{"owner"} }

func (p *OwnerProvider) Defaults() map[string]any {
	return map[string]any{"owner": p.defaultOwner}
}

func (*OwnerProvider) Get(f *File, name string) any {
	value, _ := f.Attribute("owner", name)
	return value
}

func (*OwnerProvider) Set(f *File, name string, value any, create bool) error {
	owner, ok := coerceString(value)
	if !ok {
		return errors.Wrapf(ErrInvalidType, "owner:%s does not accept %T", name, value)
	}
	f.SetAttribute("owner", name, owner)
	return nil
}

func (*OwnerProvider) SnapshotType() reflect.Type { return nil }

func (*OwnerProvider) Snapshot(*File) (any, error) {
	return nil, errors.Wrap(ErrUnsupported, "the owner view has no snapshot form")
}

func (*OwnerProvider) ViewType() reflect.Type {
	return reflect.TypeOf((*OwnerView)(nil))
}

func (p *OwnerProvider) View(lookup FileLookup) any {
	return &OwnerView{lookup: lookup}
}

// OwnerView is the live handle of the owner view.
type OwnerView struct {
	lookup FileLookup
}

func (*OwnerView) Name() string { return "owner" }

func (v *OwnerView) Owner() (string, error) {
	f, err := v.lookup()
	if err != nil {
		return "", err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	owner, _ := f.Attribute("owner", "owner")
	name, _ := owner.(string)
	return name, nil
}

func (v *OwnerView) SetOwner(owner string) error {
	f, err := v.lookup()
	if err != nil {
		return err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	f.SetAttribute("owner", "owner", owner)
	return nil
}

var _ Provider = (*OwnerProvider)(nil)
