package memvfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates /work/one/two with a regular file /work/one/file.
func buildTree(t *testing.T) (*FileStore, map[string]*File) {
	t.Helper()
	s, root := newTestStore(t)
	nodes := map[string]*File{"/": root}

	work, err := s.CreateDirectory(root, "work")
	require.NoError(t, err)
	one, err := s.CreateDirectory(work, "one")
	require.NoError(t, err)
	two, err := s.CreateDirectory(one, "two")
	require.NoError(t, err)
	file, err := s.CreateFile(one, "file")
	require.NoError(t, err)

	nodes["work"] = work
	nodes["one"] = one
	nodes["two"] = two
	nodes["file"] = file
	return s, nodes
}

func TestParsePath(t *testing.T) {
	cases := []struct {
		in       string
		absolute bool
		comps    []string
	}{
		{"/", true, nil},
		{"/a/b", true, []string{"a", "b"}},
		{"a/b", false, []string{"a", "b"}},
		{"a//b/./c", false, []string{"a", "b", "c"}},
		{"../x", false, []string{"..", "x"}},
		{"", false, nil},
	}
	for _, c := range cases {
		p := ParsePath(c.in)
		assert.Equal(t, c.absolute, p.Absolute(), c.in)
		assert.Equal(t, c.comps, p.Components, c.in)
	}
}

func TestResolveAbsolute(t *testing.T) {
	s, nodes := buildTree(t)

	res, err := s.ResolvePath("/work/one/file", nil, FollowLinks)
	require.NoError(t, err)
	require.True(t, res.Exists())
	assert.Same(t, nodes["file"], res.File())
	assert.Same(t, nodes["one"], res.Parent())
	assert.Equal(t, "file", res.Name())

	res, err = s.ResolvePath("/", nil, FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["/"], res.File())
}

func TestResolveRelative(t *testing.T) {
	s, nodes := buildTree(t)

	res, err := s.ResolvePath("two", nodes["one"], FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["two"], res.File())

	res, err = s.ResolvePath("../file", nodes["two"], FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["file"], res.File())

	_, err = s.ResolvePath("two", nil, FollowLinks)
	assert.ErrorIs(t, err, ErrNullArgument)
}

func TestResolveMissingFinal(t *testing.T) {
	s, nodes := buildTree(t)

	res, err := s.ResolvePath("/work/one/nope", nil, FollowLinks)
	require.NoError(t, err)
	assert.False(t, res.Exists())
	assert.Same(t, nodes["one"], res.Parent())
	assert.Equal(t, "nope", res.Name())
}

func TestResolveMissingIntermediate(t *testing.T) {
	s, _ := buildTree(t)
	_, err := s.ResolvePath("/work/nope/file", nil, FollowLinks)
	assert.ErrorIs(t, err, ErrNoSuchFile)
}

func TestResolveThroughNonDirectory(t *testing.T) {
	s, _ := buildTree(t)
	_, err := s.ResolvePath("/work/one/file/deeper", nil, FollowLinks)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestResolveSymlink(t *testing.T) {
	s, nodes := buildTree(t)
	link, err := s.CreateSymlink(nodes["/"], "lnk", "/work/one/file")
	require.NoError(t, err)

	res, err := s.ResolvePath("/lnk", nil, FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["file"], res.File())

	res, err = s.ResolvePath("/lnk", nil, NoFollowLinks)
	require.NoError(t, err)
	assert.Same(t, link, res.File())
}

func TestResolveRelativeSymlinkTarget(t *testing.T) {
	s, nodes := buildTree(t)
	// Relative targets resolve from the symlink's containing directory.
	_, err := s.CreateSymlink(nodes["one"], "lnk", "two")
	require.NoError(t, err)

	res, err := s.ResolvePath("/work/one/lnk", nil, FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["two"], res.File())
}

func TestResolveIntermediateSymlinkAlwaysFollowed(t *testing.T) {
	s, nodes := buildTree(t)
	_, err := s.CreateSymlink(nodes["/"], "shortcut", "/work/one")
	require.NoError(t, err)

	res, err := s.ResolvePath("/shortcut/file", nil, NoFollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["file"], res.File())
}

func TestResolveSymlinkChain(t *testing.T) {
	s, nodes := buildTree(t)
	_, err := s.CreateSymlink(nodes["/"], "a", "b")
	require.NoError(t, err)
	_, err = s.CreateSymlink(nodes["/"], "b", "/work/one/file")
	require.NoError(t, err)

	res, err := s.ResolvePath("/a", nil, FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["file"], res.File())
}

func TestResolveSymlinkCycle(t *testing.T) {
	s, nodes := buildTree(t)
	_, err := s.CreateSymlink(nodes["/"], "a", "b")
	require.NoError(t, err)
	_, err = s.CreateSymlink(nodes["/"], "b", "a")
	require.NoError(t, err)

	_, err = s.ResolvePath("/a", nil, FollowLinks)
	assert.ErrorIs(t, err, ErrTooManyLinks)

	_, err = s.ResolvePath("/a/deeper", nil, FollowLinks)
	assert.ErrorIs(t, err, ErrTooManyLinks)
}

func TestResolveLongSymlinkChain(t *testing.T) {
	s, nodes := buildTree(t)
	// A chain just past the expansion bound.
	last := "/work/one/file"
	for i := 0; i < maxSymlinkDepth+1; i++ {
		name := fmt.Sprintf("l%d", i)
		_, err := s.CreateSymlink(nodes["/"], name, last)
		require.NoError(t, err)
		last = "/" + name
	}
	_, err := s.ResolvePath(last, nil, FollowLinks)
	assert.ErrorIs(t, err, ErrTooManyLinks)
}

func TestResolveDanglingSymlink(t *testing.T) {
	s, nodes := buildTree(t)
	_, err := s.CreateSymlink(nodes["/"], "dangle", "/work/one/nope")
	require.NoError(t, err)

	// A dangling final symlink resolves to where its target would be.
	res, err := s.ResolvePath("/dangle", nil, FollowLinks)
	require.NoError(t, err)
	assert.False(t, res.Exists())
	assert.Same(t, nodes["one"], res.Parent())
	assert.Equal(t, "nope", res.Name())

	// As an intermediate component it is an error.
	_, err = s.ResolvePath("/dangle/deeper", nil, FollowLinks)
	assert.ErrorIs(t, err, ErrNoSuchFile)
}

func TestResolveDotDot(t *testing.T) {
	s, nodes := buildTree(t)

	res, err := s.ResolvePath("/work/one/two/../file", nil, FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["file"], res.File())

	res, err = s.ResolvePath("..", nodes["two"], FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["one"], res.File())
}

func TestResolveDotDotAtRoot(t *testing.T) {
	s, nodes := buildTree(t)

	// By default the root is its own parent.
	res, err := s.ResolvePath("/../work", nil, FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["work"], res.File())

	res, err = s.ResolvePath("..", nodes["/"], FollowLinks)
	require.NoError(t, err)
	assert.Same(t, nodes["/"], res.File())
}

func TestResolveDotDotAtRootRejected(t *testing.T) {
	s, root := newTestStore(t, WithRootParentSelf(false))
	_, err := s.CreateDirectory(root, "work")
	require.NoError(t, err)

	_, err = s.ResolvePath("/../work", nil, FollowLinks)
	assert.ErrorIs(t, err, ErrNoSuchFile)

	// Below the root ".." still works.
	res, err := s.ResolvePath("/work/..", nil, FollowLinks)
	require.NoError(t, err)
	assert.Same(t, root, res.File())
}

func TestResolveStartMustBeDirectory(t *testing.T) {
	s, nodes := buildTree(t)
	_, err := s.ResolvePath("x", nodes["file"], FollowLinks)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestResolveUnknownRoot(t *testing.T) {
	s, _ := buildTree(t)
	p := Path{Root: "other", Components: []string{"x"}}
	require.True(t, p.Absolute())
	_, err := s.Resolve(p, nil, FollowLinks)
	assert.ErrorIs(t, err, ErrNoSuchFile)
}
