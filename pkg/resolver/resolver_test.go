package resolver

import (
	"path/filepath"
	"testing"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCanonical(t *testing.T) {
	r := New("/data/storage")

	for _, toPin := range []struct {
		physical string
		expected string
	}{
		{physical: "/data/storage/alice", expected: "/"},
		{physical: "/data/storage/alice/", expected: "/"},
		{physical: "/data/storage/alice/test.txt", expected: "/test.txt"},
		{physical: "/data/storage/alice/a/b/c.txt", expected: "/a/b/c.txt"},
		{physical: `\data\storage\alice\a\b\c.txt`, expected: "/a/b/c.txt"},
		{physical: "/data/storage/alice/a/../b", expected: "/b"},
	} {
		testcase := toPin
		t.Run(testcase.physical, func(t *testing.T) {
			canonical, err := r.ToCanonical(testcase.physical, "alice")
			require.NoError(t, err)
			assert.Equal(t, testcase.expected, canonical)
		})
	}
}

func TestToCanonicalOutsideRoot(t *testing.T) {
	r := New("/data/storage")

	for _, physical := range []string{
		"/data/storage",
		"/data/storage/bob/a.txt",
		"/data/storage/alice2/a.txt",
		"/data/storage/alice/../bob/a.txt",
		"/tmp/a.txt",
	} {
		_, err := r.ToCanonical(physical, "alice")
		require.Errorf(t, err, "expected %q to be rejected", physical)
		assert.True(t, errors.Is(err, ErrPathOutsideRoot))
	}
}

func TestToCanonicalWindowsRoot(t *testing.T) {
	r := New(`C:\vault`)

	canonical, err := r.ToCanonical(`C:\vault\alice\docs\cv.pdf`, "alice")
	require.NoError(t, err)
	assert.Equal(t, "/docs/cv.pdf", canonical)
}

func TestToParentCanonical(t *testing.T) {
	r := New("/data/storage")

	parent, err := r.ToParentCanonical("/data/storage/alice/test.txt", "alice")
	require.NoError(t, err)
	assert.Equal(t, "/", parent)

	parent, err = r.ToParentCanonical("/data/storage/alice/a/b/c.txt", "alice")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", parent)

	_, err = r.ToParentCanonical("/data/storage/alice", "alice")
	assert.True(t, errors.Is(err, ErrPathOutsideRoot))
}

func TestInvalidOwner(t *testing.T) {
	r := New("/data/storage")

	for _, owner := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := r.ToCanonical("/data/storage/x", owner)
		assert.Truef(t, errors.Is(err, ErrInvalidOwner), "owner %q", owner)

		_, err = r.OwnerRoot(owner)
		assert.True(t, errors.Is(err, ErrInvalidOwner))
	}
}

func TestToPhysical(t *testing.T) {
	r := New("/data/storage")

	physical, err := r.ToPhysical("/a/b.txt", "alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/data/storage/alice/a/b.txt"), physical)

	physical, err = r.ToPhysical("/../../etc/passwd", "alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/data/storage/alice/etc/passwd"), physical)

	physical, err = r.ToPhysical("/", "alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/data/storage/alice"), physical)

	// round trip
	canonical, err := r.ToCanonical(filepath.ToSlash(filepath.Join(r.StorageRoot(), "alice", "x", "y")), "alice")
	require.NoError(t, err)
	assert.Equal(t, "/x/y", canonical)
}

func TestOwnerOf(t *testing.T) {
	r := New("/data/storage")

	owner, err := r.OwnerOf("/data/storage/alice/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	owner, err = r.OwnerOf("/data/storage/bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	_, err = r.OwnerOf("/data/storage")
	assert.Error(t, err)

	_, err = r.OwnerOf("/data/other/bob")
	assert.True(t, errors.Is(err, ErrPathOutsideRoot))
}

func TestRootStorage(t *testing.T) {
	r := New("/")

	canonical, err := r.ToCanonical("/alice/a", "alice")
	require.NoError(t, err)
	assert.Equal(t, "/a", canonical)

	owner, err := r.OwnerOf("/alice/a")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestName(t *testing.T) {
	assert.Equal(t, "c.txt", Name("/a/b/c.txt"))
	assert.Equal(t, "c.txt", Name(`C:\a\b\c.txt`))
	assert.Equal(t, "b", Name("/a/b/"))
}
