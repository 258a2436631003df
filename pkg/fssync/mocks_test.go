package fssync

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	indexstatus "github.com/oneconcern/tokenfs/pkg/index/status"
	"github.com/oneconcern/tokenfs/pkg/model"
	"github.com/oneconcern/tokenfs/pkg/token"
)

type nodeKey struct {
	owner string
	tok   token.Token
}

// memIndex is a minimal in-memory Indexer
type memIndex struct {
	mx      sync.Mutex
	nodes   map[nodeKey]model.Node
	content map[nodeKey]string
	putErr  error
	puts    int
}

func newMemIndex() *memIndex {
	return &memIndex{
		nodes:   make(map[nodeKey]model.Node),
		content: make(map[nodeKey]string),
	}
}

func (x *memIndex) Put(_ context.Context, n model.Node, r io.Reader) error {
	x.mx.Lock()
	defer x.mx.Unlock()

	if x.putErr != nil {
		return x.putErr
	}
	x.puts++

	k := nodeKey{owner: n.OwnerID, tok: n.Token}
	if existing, ok := x.nodes[k]; ok && existing.ParentToken != n.ParentToken {
		return indexstatus.ErrDuplicateNode
	}
	x.nodes[k] = n
	if r != nil {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		x.content[k] = string(b)
	}

	return nil
}

func (x *memIndex) Delete(_ context.Context, owner string, tok, parent token.Token) (int, error) {
	x.mx.Lock()
	defer x.mx.Unlock()

	n, ok := x.nodes[nodeKey{owner: owner, tok: tok}]
	if !ok || n.ParentToken != parent {
		return 0, indexstatus.ErrNotFound
	}

	return x.cascade(owner, tok), nil
}

func (x *memIndex) cascade(owner string, tok token.Token) int {
	removed := 0
	for k, n := range x.nodes {
		if k.owner == owner && n.ParentToken == tok {
			removed += x.cascade(owner, n.Token)
		}
	}
	delete(x.nodes, nodeKey{owner: owner, tok: tok})
	delete(x.content, nodeKey{owner: owner, tok: tok})

	return removed + 1
}

func (x *memIndex) EnsureRoot(_ context.Context, owner string) (model.Node, error) {
	x.mx.Lock()
	defer x.mx.Unlock()

	k := nodeKey{owner: owner, tok: token.RootToken()}
	if root, ok := x.nodes[k]; ok {
		return root, nil
	}
	root := model.NewRoot(owner, time.Now())
	x.nodes[k] = root

	return root, nil
}

func (x *memIndex) get(owner, canonical string) (model.Node, string, bool) {
	x.mx.Lock()
	defer x.mx.Unlock()

	k := nodeKey{owner: owner, tok: token.For(canonical)}
	n, ok := x.nodes[k]

	return n, x.content[k], ok
}

func (x *memIndex) has(owner, canonical string) bool {
	_, _, ok := x.get(owner, canonical)
	return ok
}

func (x *memIndex) len() int {
	x.mx.Lock()
	defer x.mx.Unlock()

	return len(x.nodes)
}

func (x *memIndex) setPutErr(err error) {
	x.mx.Lock()
	defer x.mx.Unlock()

	x.putErr = err
}

// writeTree creates files (with their parent directories) under root, from a map of relative path to content.
// Relative paths ending with a slash are directories.
func writeTree(t testing.TB, root string, tree map[string]string) {
	t.Helper()

	for rel, content := range tree {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(p, 0o700))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}
