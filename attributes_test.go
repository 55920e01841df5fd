package memvfs

import (
	"io/fs"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memvfs/go-memvfs/clock"
)

// testProvider declares foo (read-only, always "hello"), bar
// (runtime-settable integer, default 0) and baz (creation-only
// integer, default 1), with no inheritance.
type testProvider struct{}

func (testProvider) Name() string       { return "test" }
func (testProvider) Inherits() []string { return nil }

func (testProvider) Defines(name string) bool {
	return name == "foo" || name == "bar" || name == "baz"
}

func (testProvider) Names(*File) []string { return []string{"foo", "bar", "baz"} }

func (testProvider) Defaults() map[string]any {
	return map[string]any{"bar": int64(0), "baz": int64(1)}
}

func (testProvider) Get(f *File, name string) any {
	if name == "foo" {
		return "hello"
	}
	value, _ := f.Attribute("test", name)
	return value
}

func (testProvider) Set(f *File, name string, value any, create bool) error {
	switch name {
	case "foo":
		return ErrNotSettable
	case "bar":
		if create {
			return ErrNotSettableOnCreate
		}
	case "baz":
		if !create {
			return ErrNotSettableOnCreate
		}
	}
	n, ok := coerceInt64(value)
	if !ok {
		return ErrInvalidType
	}
	f.SetAttribute("test", name, n)
	return nil
}

func (testProvider) SnapshotType() reflect.Type { return reflect.TypeOf(testAttributes{}) }

func (testProvider) Snapshot(f *File) (any, error) {
	attrs := testAttributes{Foo: "hello"}
	if v, ok := f.Attribute("test", "bar"); ok {
		attrs.Bar = v.(int64)
	}
	if v, ok := f.Attribute("test", "baz"); ok {
		attrs.Baz = v.(int64)
	}
	return attrs, nil
}

func (testProvider) ViewType() reflect.Type { return reflect.TypeOf((*testView)(nil)) }

func (p testProvider) View(lookup FileLookup) any { return &testView{lookup: lookup} }

type testAttributes struct {
	Foo string
	Bar int64
	Baz int64
}

type testView struct {
	lookup FileLookup
}

func (v *testView) ReadAttributes() (testAttributes, error) {
	f, err := v.lookup()
	if err != nil {
		return testAttributes{}, err
	}
	snap, err := testProvider{}.Snapshot(f)
	if err != nil {
		return testAttributes{}, err
	}
	return snap.(testAttributes), nil
}

var testEpoch = time.Unix(1700000000, 0).UTC()

func newTestService(t *testing.T) *AttributeService {
	t.Helper()
	svc, err := NewAttributeService(
		NewBasicProvider(clock.NewFake(testEpoch)),
		NewOwnerProvider("user"),
		testProvider{},
	)
	require.NoError(t, err)
	return svc
}

func newTestDir() *File { return newDirectory(0, 0) }

func TestSupportedViews(t *testing.T) {
	svc := newTestService(t)
	assert.Equal(t, []string{"basic", "owner", "test"}, svc.SupportedViews())
}

func TestSupportsView(t *testing.T) {
	svc := newTestService(t)
	assert.True(t, svc.SupportsView(reflect.TypeOf((*BasicView)(nil))))
	assert.True(t, svc.SupportsView(reflect.TypeOf((*testView)(nil))))
	assert.False(t, svc.SupportsView(reflect.TypeOf((*PosixView)(nil))))
}

func TestServiceRequiresBasicView(t *testing.T) {
	_, err := NewAttributeService(NewOwnerProvider("user"))
	assert.Error(t, err)
}

func TestServiceRejectsUninstalledInheritedView(t *testing.T) {
	_, err := NewAttributeService(
		NewBasicProvider(clock.NewFake(testEpoch)),
		NewPosixProvider("group", 0o644), // inherits owner, not installed
	)
	assert.Error(t, err)
}

func TestSetInitialAttributes(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	assert.ElementsMatch(t, []string{"bar", "baz"}, file.AttributeNames("test"))
	assert.ElementsMatch(t, []string{"owner"}, file.AttributeNames("owner"))

	modified, err := svc.GetAttribute(file, "basic:lastModifiedTime")
	require.NoError(t, err)
	assert.Equal(t, testEpoch, modified)

	bar, _ := file.Attribute("test", "bar")
	assert.Equal(t, int64(0), bar)
	baz, _ := file.Attribute("test", "baz")
	assert.Equal(t, int64(1), baz)
}

func TestGetAttribute(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	for spec, want := range map[string]any{
		"test:foo":            "hello",
		"basic:isRegularFile": false,
		"isDirectory":         true, // bare name implies basic
		"test:baz":            int64(1),
		"fileKey":             int64(0),
	} {
		got, err := svc.GetAttribute(file, spec)
		require.NoError(t, err, spec)
		assert.Equal(t, want, got, spec)
	}
}

func TestGetAttributeUndeclared(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()

	_, err := svc.GetAttribute(file, "test:blah")
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	// baz is declared by "test", but basic does not inherit test.
	_, err = svc.GetAttribute(file, "basic:baz")
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	_, err = svc.GetAttribute(file, "nope:foo")
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestSetAttribute(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	require.NoError(t, svc.SetAttribute(file, "test:bar", int64(10), false))
	bar, _ := file.Attribute("test", "bar")
	assert.Equal(t, int64(10), bar)
}

func TestSetAttributeAlternateTypes(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	// Coercible alternates canonicalize to int64.
	require.NoError(t, svc.SetAttribute(file, "test:bar", 10.0, false))
	bar, _ := file.Attribute("test", "bar")
	assert.Equal(t, int64(10), bar)

	require.NoError(t, svc.SetAttribute(file, "test:bar", uint32(123), false))
	bar, _ = file.Attribute("test", "bar")
	assert.Equal(t, int64(123), bar)

	// Times accept raw Unix milliseconds.
	require.NoError(t, svc.SetAttribute(file, "basic:lastModifiedTime", int64(0), false))
	modified, err := svc.GetAttribute(file, "lastModifiedTime")
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(0), modified)
}

func TestSetAttributeInvalidType(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	err := svc.SetAttribute(file, "test:bar", "wrong", false)
	assert.ErrorIs(t, err, ErrInvalidType)

	bar, _ := file.Attribute("test", "bar")
	assert.Equal(t, int64(0), bar)
}

func TestSetAttributeNilValue(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	err := svc.SetAttribute(file, "test:bar", nil, false)
	assert.ErrorIs(t, err, ErrNullArgument)
}

func TestSetAttributeNotSettable(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()

	err := svc.SetAttribute(file, "test:foo", "world", false)
	assert.ErrorIs(t, err, ErrNotSettable)

	// Read-only fails at creation too.
	err = svc.SetInitialAttributes(file, Attr{"test:foo", "world"})
	assert.ErrorIs(t, err, ErrNotSettable)
}

func TestSettablePhases(t *testing.T) {
	svc := newTestService(t)

	// Creation-only succeeds as an override, fails afterwards.
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file, Attr{"test:baz", 123}))
	baz, _ := file.Attribute("test", "baz")
	assert.Equal(t, int64(123), baz)
	err := svc.SetAttribute(file, "test:baz", int64(5), false)
	assert.ErrorIs(t, err, ErrNotSettableOnCreate)

	// Runtime-only fails as a creation override.
	err = svc.SetInitialAttributes(newTestDir(), Attr{"test:bar", 5})
	assert.ErrorIs(t, err, ErrNotSettableOnCreate)
	err = svc.SetInitialAttributes(newTestDir(), Attr{"basic:lastModifiedTime", testEpoch})
	assert.ErrorIs(t, err, ErrNotSettableOnCreate)
}

func TestSetInitialAttributesPartialEffect(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()

	err := svc.SetInitialAttributes(file, Attr{"test:baz", 7}, Attr{"test:foo", "nope"})
	assert.ErrorIs(t, err, ErrNotSettable)

	// Defaults and the earlier override stay applied.
	baz, _ := file.Attribute("test", "baz")
	assert.Equal(t, int64(7), baz)
	bar, _ := file.Attribute("test", "bar")
	assert.Equal(t, int64(0), bar)
}

func TestInheritance(t *testing.T) {
	clk := clock.NewFake(testEpoch)
	svc, err := NewAttributeService(StandardProviders(clk)...)
	require.NoError(t, err)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	// Inherited attributes are reachable through the inheriting view.
	isDir, err := svc.GetAttribute(file, "posix:isDirectory")
	require.NoError(t, err)
	assert.Equal(t, true, isDir)
	owner, err := svc.GetAttribute(file, "posix:owner")
	require.NoError(t, err)
	assert.Equal(t, "user", owner)

	// A set through the inheriting view stores under the defining
	// view and reads identically from both namespaces.
	require.NoError(t, svc.SetAttribute(file, "posix:lastModifiedTime", time.UnixMilli(0), false))
	_, storedUnderPosix := file.Attribute("posix", "lastModifiedTime")
	assert.False(t, storedUnderPosix)
	fromBasic, err := svc.GetAttribute(file, "basic:lastModifiedTime")
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(0), fromBasic)
	fromPosix, err := svc.GetAttribute(file, "posix:lastModifiedTime")
	require.NoError(t, err)
	assert.Equal(t, fromBasic, fromPosix)

	require.NoError(t, svc.SetAttribute(file, "owner:owner", "alice", false))
	viaPosix, err := svc.GetAttribute(file, "posix:owner")
	require.NoError(t, err)
	assert.Equal(t, "alice", viaPosix)
}

func TestReadAttributesAsMap(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	m, err := svc.ReadAttributes(file, "test:foo,bar,baz")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "hello", "bar": int64(0), "baz": int64(1)}, m)

	m, err = svc.ReadAttributes(file, "test:*")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "hello", "bar": int64(0), "baz": int64(1)}, m)

	m, err = svc.ReadAttributes(file, "basic:*")
	require.NoError(t, err)
	assert.Len(t, m, len(basicAttributeNames))
	for name, value := range m {
		individual, err := svc.GetAttribute(file, "basic:"+name)
		require.NoError(t, err, name)
		assert.Equal(t, individual, value, name)
	}
}

func TestReadAttributesWildcardWithInheritance(t *testing.T) {
	svc, err := NewAttributeService(StandardProviders(clock.NewFake(testEpoch))...)
	require.NoError(t, err)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	m, err := svc.ReadAttributes(file, "posix:*")
	require.NoError(t, err)
	// Own names plus the transitive basic and owner sets.
	assert.Len(t, m, 2+len(basicAttributeNames)+1)
	assert.Contains(t, m, "group")
	assert.Contains(t, m, "permissions")
	assert.Contains(t, m, "owner")
	assert.Contains(t, m, "fileKey")
	assert.Equal(t, fs.FileMode(0o644), m["permissions"])
}

func TestReadAttributesInvalidSpecs(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()

	_, err := svc.ReadAttributes(file, "basic:fileKey,isOther,*,creationTime")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "single attribute")

	_, err = svc.ReadAttributes(file, "basic:*,*")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = svc.ReadAttributes(file, "basic:fileKey,isOther,foo")
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	_, err = svc.ReadAttributes(file, "basic:fileKey,,size")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "attribute format")
}

func TestIllegalAttributeFormats(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()

	for _, spec := range []string{":bar", "test:", "basic:test:isDirectory", ""} {
		_, err := svc.GetAttribute(file, spec)
		assert.ErrorIs(t, err, ErrInvalidFormat, spec)
		assert.Contains(t, err.Error(), "attribute format", spec)
	}

	_, err := svc.GetAttribute(file, "basic:fileKey,size")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "single attribute")
}

func TestReadAttributesTyped(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	basic, err := ReadAttributesAs[BasicAttributes](svc, file)
	require.NoError(t, err)
	assert.Equal(t, int64(0), basic.FileKey)
	assert.True(t, basic.IsDirectory)
	assert.False(t, basic.IsRegularFile)
	assert.Equal(t, testEpoch, basic.CreationTime)

	attrs, err := ReadAttributesAs[testAttributes](svc, file)
	require.NoError(t, err)
	assert.Equal(t, testAttributes{Foo: "hello", Bar: 0, Baz: 1}, attrs)

	// A later raw set is visible in the next snapshot.
	file.SetAttribute("test", "baz", int64(100))
	attrs, err = ReadAttributesAs[testAttributes](svc, file)
	require.NoError(t, err)
	assert.Equal(t, int64(100), attrs.Baz)

	_, err = ReadAttributesAs[PosixAttributes](svc, file)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGetViewHandles(t *testing.T) {
	svc := newTestService(t)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))
	lookup := func() (*File, error) { return file, nil }

	view, ok := GetView[*testView](svc, lookup)
	require.True(t, ok)
	attrs, err := view.ReadAttributes()
	require.NoError(t, err)
	assert.Equal(t, testAttributes{Foo: "hello", Bar: 0, Baz: 1}, attrs)

	basicView, ok := GetView[*BasicView](svc, lookup)
	require.True(t, ok)
	now := testEpoch.Add(time.Hour)
	require.NoError(t, basicView.SetTimes(&now, nil, nil))
	snap, err := basicView.ReadAttributes()
	require.NoError(t, err)
	assert.Equal(t, now, snap.LastModifiedTime)
	assert.Equal(t, testEpoch, snap.LastAccessTime)

	// Unsupported view type is a capability miss, not an error.
	_, ok = GetView[*PosixView](svc, lookup)
	assert.False(t, ok)
}

func TestUserViewAttributes(t *testing.T) {
	svc, err := NewAttributeService(StandardProviders(clock.NewFake(testEpoch))...)
	require.NoError(t, err)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	// Open-ended names, runtime-only.
	err = svc.SetInitialAttributes(newTestDir(), Attr{"user:mime", "text/plain"})
	assert.ErrorIs(t, err, ErrNotSettableOnCreate)

	require.NoError(t, svc.SetAttribute(file, "user:mime", "text/plain", false))
	value, err := svc.GetAttribute(file, "user:mime")
	require.NoError(t, err)
	assert.Equal(t, []byte("text/plain"), value)

	m, err := svc.ReadAttributes(file, "user:*")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mime": []byte("text/plain")}, m)

	view, ok := GetView[*UserView](svc, func() (*File, error) { return file, nil })
	require.True(t, ok)
	names, err := view.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"mime"}, names)
	require.NoError(t, view.Delete("mime"))
	names, err = view.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPermissionModeStrings(t *testing.T) {
	svc, err := NewAttributeService(StandardProviders(clock.NewFake(testEpoch))...)
	require.NoError(t, err)
	file := newTestDir()
	require.NoError(t, svc.SetInitialAttributes(file))

	require.NoError(t, svc.SetAttribute(file, "posix:permissions", "rwxr-x---", false))
	perms, err := svc.GetAttribute(file, "posix:permissions")
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o750), perms)

	err = svc.SetAttribute(file, "posix:permissions", "rwxr-xq--", false)
	assert.ErrorIs(t, err, ErrInvalidType)
}
