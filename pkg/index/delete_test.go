package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/index/status"
	"github.com/oneconcern/tokenfs/pkg/token"
)

func TestDeleteRoundTrip(t *testing.T) {
	idx, blobs, done := setupIndex(t)
	defer done()
	ctx := context.Background()

	n := putFile(t, idx, alice, "/", "a.txt", "a")

	removed, err := idx.Delete(ctx, alice, n.Token, n.ParentToken)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = idx.Get(ctx, alice, n.Token, n.ParentToken)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	has, err := blobs.Has(ctx, blobKey(alice, n.Token))
	require.NoError(t, err)
	assert.False(t, has)

	_, err = idx.Delete(ctx, alice, n.Token, n.ParentToken)
	assert.True(t, errors.Is(err, status.ErrNotFound))
}

func TestDeleteWrongParent(t *testing.T) {
	idx, _, done := setupIndex(t)
	defer done()
	ctx := context.Background()

	n := putFile(t, idx, alice, "/", "a.txt", "a")

	_, err := idx.Delete(ctx, alice, n.Token, token.For("/b"))
	assert.True(t, errors.Is(err, status.ErrNotFound))

	_, err = idx.Lookup(ctx, alice, n.Token)
	require.NoError(t, err)
}

func TestDeleteCascade(t *testing.T) {
	idx, blobs, done := setupIndex(t)
	defer done()
	ctx := context.Background()

	root, err := idx.EnsureRoot(ctx, alice)
	require.NoError(t, err)

	folder := putFolder(t, idx, alice, "/", "F")
	direct := putFile(t, idx, alice, "/F", "direct.txt", "1")
	middle := putFolder(t, idx, alice, "/F", "middle")
	nested := putFile(t, idx, alice, "/F/middle", "nested.txt", "2")
	sibling := putFile(t, idx, alice, "/", "sibling.txt", "3")

	removed, err := idx.Delete(ctx, alice, folder.Token, folder.ParentToken)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	for _, tok := range []token.Token{folder.Token, direct.Token, middle.Token, nested.Token} {
		_, err = idx.Lookup(ctx, alice, tok)
		assert.Truef(t, errors.Is(err, status.ErrNotFound), "expected %s to be gone", tok)
	}

	_, err = idx.ListChildren(ctx, alice, folder.Token)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	children, err := idx.ListChildren(ctx, alice, root.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"sibling.txt"}, names(children))

	keys, err := blobs.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{blobKey(alice, sibling.Token)}, keys)
}

func TestDeletePartial(t *testing.T) {
	idx, blobs, done := setupIndex(t)
	defer done()
	ctx := context.Background()

	folder := putFolder(t, idx, alice, "/", "F")
	stuck := putFile(t, idx, alice, "/F", "stuck.txt", "1")
	putFile(t, idx, alice, "/F", "ok.txt", "2")
	sub := putFolder(t, idx, alice, "/F", "sub")
	putFile(t, idx, alice, "/F/sub", "deep.txt", "3")

	blobs.failOnDelete(blobKey(alice, stuck.Token))

	removed, err := idx.Delete(ctx, alice, folder.Token, folder.ParentToken)
	require.Error(t, err)
	assert.Equal(t, 3, removed)

	var partial *PartialDeleteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 5, partial.Expected)
	assert.Equal(t, 3, partial.Removed)
	assert.True(t, errors.Is(err, status.ErrStoreUnavailable))

	// what is left is still reachable
	_, err = idx.Get(ctx, alice, folder.Token, folder.ParentToken)
	require.NoError(t, err)
	children, err := idx.ListChildren(ctx, alice, folder.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"stuck.txt"}, names(children))
	_, err = idx.Lookup(ctx, alice, sub.Token)
	assert.True(t, errors.Is(err, status.ErrNotFound))

	blobs.heal()
	removed, err = idx.Delete(ctx, alice, folder.Token, folder.ParentToken)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestDeleteTooDeep(t *testing.T) {
	idx, _, done := setupIndex(t, WithMaxDepth(2))
	defer done()
	ctx := context.Background()

	top := putFolder(t, idx, alice, "/", "a")
	putFolder(t, idx, alice, "/a", "b")
	putFolder(t, idx, alice, "/a/b", "c")
	putFile(t, idx, alice, "/a/b/c", "d.txt", "d")

	removed, err := idx.Delete(ctx, alice, top.Token, top.ParentToken)
	assert.True(t, errors.Is(err, status.ErrTooDeep))
	assert.Zero(t, removed)

	_, err = idx.Lookup(ctx, alice, top.Token)
	require.NoError(t, err)
}
