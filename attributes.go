package memvfs

import (
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefaultView is the view a bare attribute name addresses.
const DefaultView = "basic"

// Attr is one creation-time attribute override, addressed by a
// "view:name" spec (or a bare name for the basic view).
type Attr struct {
	Spec  string
	Value any
}

// FileLookup resolves the target file of a live attribute view. The
// view re-resolves on every operation, so a handle stays valid when
// its file is moved.
type FileLookup func() (*File, error)

// Provider implements one attribute view: its declared attribute
// names, the views it inherits, per-attribute get/set rules and the
// typed snapshot projection.
//
// Values handed to File.SetAttribute must be in the provider's
// canonical internal form; coercion from accepted alternate input
// types happens inside Set. Provider methods are called with the
// target file's attribute operations already serialized by the
// service, so implementations only use the raw File accessors.
type Provider interface {
	// Name returns the view name.
	Name() string

	// Inherits returns the names of views whose attributes are also
	// reachable through this view's namespace.
	Inherits() []string

	// Defines reports whether the view itself declares the name.
	Defines(name string) bool

	// Names returns the view's own attribute names for the file.
	// Open-ended views report the names currently stored.
	Names(f *File) []string

	// Defaults returns canonical values to store at file creation.
	Defaults() map[string]any

	// Get returns the attribute's canonical value, nil when unset.
	// The name is already known to be declared by the view.
	Get(f *File, name string) any

	// Set validates and stores a value. create is true during
	// setInitialAttributes.
	Set(f *File, name string, value any, create bool) error

	// SnapshotType returns the type produced by Snapshot, or nil if
	// the view has no typed snapshot.
	SnapshotType() reflect.Type

	// Snapshot returns an immutable typed projection of the view.
	Snapshot(f *File) (any, error)

	// ViewType returns the type produced by View, or nil if the view
	// has no live handle form.
	ViewType() reflect.Type

	// View returns a live view handle bound to the lookup.
	View(lookup FileLookup) any
}

// AttributeService composes the installed providers: it resolves
// "view:attribute" specs, routes get/set through view inheritance and
// dispatches snapshot and live-view requests by type.
type AttributeService struct {
	providers map[string]Provider
	// closure maps each view to its providers in resolution order:
	// the view's own provider first, then inherited ones transitively.
	closure map[string][]Provider
	byView  map[reflect.Type]Provider
	bySnap  map[reflect.Type]Provider
}

// NewAttributeService validates the provider set: unique view names,
// a "basic" provider present, and every inherited view installed.
func NewAttributeService(providers ...Provider) (*AttributeService, error) {
	s := &AttributeService{
		providers: make(map[string]Provider),
		closure:   make(map[string][]Provider),
		byView:    make(map[reflect.Type]Provider),
		bySnap:    make(map[reflect.Type]Provider),
	}
	for _, p := range providers {
		if _, ok := s.providers[p.Name()]; ok {
			return nil, errors.Errorf("duplicate attribute view %q", p.Name())
		}
		s.providers[p.Name()] = p
		if t := p.ViewType(); t != nil {
			s.byView[t] = p
		}
		if t := p.SnapshotType(); t != nil {
			s.bySnap[t] = p
		}
	}
	if _, ok := s.providers[DefaultView]; !ok {
		return nil, errors.Errorf("the %q view provider is required", DefaultView)
	}
	for name, p := range s.providers {
		chain, err := s.expand(p, map[string]bool{})
		if err != nil {
			return nil, err
		}
		s.closure[name] = chain
	}
	return s, nil
}

func (s *AttributeService) expand(p Provider, seen map[string]bool) ([]Provider, error) {
	if seen[p.Name()] {
		return nil, nil
	}
	seen[p.Name()] = true
	chain := []Provider{p}
	for _, inherited := range p.Inherits() {
		q, ok := s.providers[inherited]
		if !ok {
			return nil, errors.Errorf("view %q inherits uninstalled view %q", p.Name(), inherited)
		}
		sub, err := s.expand(q, seen)
		if err != nil {
			return nil, err
		}
		chain = append(chain, sub...)
	}
	return chain, nil
}

// SupportedViews returns the installed view names, sorted.
func (s *AttributeService) SupportedViews() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportsView reports whether some installed provider produces live
// views of the given type.
func (s *AttributeService) SupportsView(t reflect.Type) bool {
	_, ok := s.byView[t]
	return ok
}

// splitSpec parses "view:name" (or a bare name, implying the basic
// view) into its parts. The name part may still be a comma list or
// wildcard; callers restrict it further.
func splitSpec(spec string) (view, name string, err error) {
	if strings.Count(spec, ":") > 1 {
		return "", "", errors.Wrapf(ErrInvalidFormat, "invalid attribute format: %q", spec)
	}
	view, name, found := strings.Cut(spec, ":")
	if !found {
		if spec == "" {
			return "", "", errors.Wrap(ErrInvalidFormat, "invalid attribute format: empty specification")
		}
		return DefaultView, spec, nil
	}
	if view == "" || name == "" {
		return "", "", errors.Wrapf(ErrInvalidFormat, "invalid attribute format: %q", spec)
	}
	return view, name, nil
}

// lookupProvider resolves the provider declaring the attribute, own
// view first, then inherited views.
func (s *AttributeService) lookupProvider(view, name string) (Provider, error) {
	chain, ok := s.closure[view]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownView, "%q", view)
	}
	for _, p := range chain {
		if p.Defines(name) {
			return p, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownAttribute, "%s:%s", view, name)
}

// GetAttribute returns the value of a single attribute addressed by
// "view:name" or a bare basic-view name.
func (s *AttributeService) GetAttribute(f *File, spec string) (any, error) {
	view, name, err := splitSpec(spec)
	if err != nil {
		return nil, err
	}
	if strings.Contains(name, ",") {
		return nil, errors.Wrapf(ErrInvalidFormat, "must specify a single attribute: %q", spec)
	}
	p, err := s.lookupProvider(view, name)
	if err != nil {
		return nil, err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	return p.Get(f, name), nil
}

// SetAttribute validates and sets a single attribute. An attribute
// reached through an inheriting view is stored under its defining
// view. create selects the creation-phase settability rules.
func (s *AttributeService) SetAttribute(f *File, spec string, value any, create bool) error {
	view, name, err := splitSpec(spec)
	if err != nil {
		return err
	}
	if strings.Contains(name, ",") {
		return errors.Wrapf(ErrInvalidFormat, "must specify a single attribute: %q", spec)
	}
	if value == nil {
		return errors.Wrapf(ErrNullArgument, "set %s", spec)
	}
	p, err := s.lookupProvider(view, name)
	if err != nil {
		return err
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	return p.Set(f, name, value, create)
}

// SetInitialAttributes stamps a newly created file: every installed
// provider's defaults first, then the overrides in order, each
// validated under creation rules. The first failing override aborts
// with the defaults (and earlier overrides) left in place; this
// partial effect is the documented contract, since the file is not
// yet linked anywhere.
func (s *AttributeService) SetInitialAttributes(f *File, overrides ...Attr) error {
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()

	for _, view := range s.SupportedViews() {
		p := s.providers[view]
		for name, value := range p.Defaults() {
			f.SetAttribute(view, name, value)
		}
	}

	for _, o := range overrides {
		view, name, err := splitSpec(o.Spec)
		if err != nil {
			return err
		}
		if o.Value == nil {
			return errors.Wrapf(ErrNullArgument, "initial attribute %s", o.Spec)
		}
		p, err := s.lookupProvider(view, name)
		if err != nil {
			return err
		}
		if err := p.Set(f, name, o.Value, true); err != nil {
			return err
		}
	}
	return nil
}

// ReadAttributes reads a batch of attributes as a bare-name to value
// map. The spec is "view:a,b,c" or the wildcard "view:*" for the
// view's full own-plus-inherited set. The whole read happens under
// the node's attribute serialization, so it reflects one instant.
func (s *AttributeService) ReadAttributes(f *File, spec string) (map[string]any, error) {
	view, rest, err := splitSpec(spec)
	if err != nil {
		return nil, err
	}
	chain, ok := s.closure[view]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownView, "%q", view)
	}

	parts := strings.Split(rest, ",")
	wildcard := false
	for _, part := range parts {
		if part == "" {
			return nil, errors.Wrapf(ErrInvalidFormat, "invalid attribute format: %q", spec)
		}
		if part == "*" {
			wildcard = true
		}
	}
	if wildcard && len(parts) > 1 {
		return nil, errors.Wrapf(ErrInvalidFormat, "must specify a single attribute when using the wildcard: %q", spec)
	}

	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()

	result := make(map[string]any)
	if wildcard {
		for _, p := range chain {
			for _, name := range p.Names(f) {
				if _, ok := result[name]; !ok {
					result[name] = p.Get(f, name)
				}
			}
		}
		return result, nil
	}
	for _, name := range parts {
		p, err := s.lookupProvider(view, name)
		if err != nil {
			return nil, err
		}
		result[name] = p.Get(f, name)
	}
	return result, nil
}

// ReadAttributesType returns the typed snapshot of the provider whose
// SnapshotType matches t, failing with ErrUnsupported when none does.
func (s *AttributeService) ReadAttributesType(f *File, t reflect.Type) (any, error) {
	p, ok := s.bySnap[t]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "no provider produces %v snapshots", t)
	}
	f.attrMtx.Lock()
	defer f.attrMtx.Unlock()
	return p.Snapshot(f)
}

// ReadAttributesAs is the typed form of ReadAttributesType.
func ReadAttributesAs[T any](s *AttributeService, f *File) (T, error) {
	var zero T
	v, err := s.ReadAttributesType(f, reflect.TypeOf(zero))
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// GetViewType returns a live view handle of the given type, or nil
// when no installed provider produces it. An unsupported view is a
// capability miss, not an error.
func (s *AttributeService) GetViewType(lookup FileLookup, t reflect.Type) any {
	p, ok := s.byView[t]
	if !ok {
		return nil
	}
	return p.View(lookup)
}

// GetView is the typed form of GetViewType.
func GetView[T any](s *AttributeService, lookup FileLookup) (T, bool) {
	var zero T
	v := s.GetViewType(lookup, reflect.TypeOf(zero))
	if v == nil {
		return zero, false
	}
	return v.(T), true
}
