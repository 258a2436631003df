package index

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/oneconcern/tokenfs/pkg/metastore"
	"github.com/oneconcern/tokenfs/pkg/storage"
	"github.com/oneconcern/tokenfs/pkg/storage/localfs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

var errUnreachable = errors.New("connection refused")

// faultyStore is a blob store which can be made to fail on demand
type faultyStore struct {
	storage.Store
	down       atomic.Bool
	mx         sync.Mutex
	failDelete map[string]struct{}
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:      localfs.New(afero.NewMemMapFs()),
		failDelete: make(map[string]struct{}),
	}
}

func (f *faultyStore) failOnDelete(key string) {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.failDelete[key] = struct{}{}
}

func (f *faultyStore) heal() {
	f.down.Store(false)
	f.mx.Lock()
	defer f.mx.Unlock()
	f.failDelete = make(map[string]struct{})
}

func (f *faultyStore) Has(ctx context.Context, key string) (bool, error) {
	if f.down.Load() {
		return false, errUnreachable
	}
	return f.Store.Has(ctx, key)
}

func (f *faultyStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.down.Load() {
		return nil, errUnreachable
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Put(ctx context.Context, key string, rdr io.Reader) error {
	if f.down.Load() {
		return errUnreachable
	}
	return f.Store.Put(ctx, key, rdr)
}

func (f *faultyStore) Delete(ctx context.Context, key string) error {
	if f.down.Load() {
		return errUnreachable
	}
	f.mx.Lock()
	_, fail := f.failDelete[key]
	f.mx.Unlock()
	if fail {
		return errUnreachable
	}
	return f.Store.Delete(ctx, key)
}

func setupIndex(t testing.TB, opts ...Option) (*Index, *faultyStore, func()) {
	t.Helper()

	meta, err := metastore.OpenInMemory()
	require.NoError(t, err)
	blobs := newFaultyStore()

	return New(meta, blobs, opts...), blobs, func() {
		require.NoError(t, meta.Close())
	}
}
