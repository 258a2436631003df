package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/oneconcern/tokenfs/pkg/metrics"
	"github.com/oneconcern/tokenfs/pkg/storage"
	"github.com/oneconcern/tokenfs/pkg/storage/localfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInstrument(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	ctx := context.Background()

	store := storage.Instrument(zap.New(core), metrics.New(reg), localfs.New(afero.NewMemMapFs()))
	assert.Equal(t, "localfs", store.String())

	require.NoError(t, store.Put(ctx, "alice/key", bytes.NewBufferString("content")))
	has, err := store.Has(ctx, "alice/key")
	require.NoError(t, err)
	assert.True(t, has)

	rdr, err := store.Get(ctx, "alice/key")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "content", string(b))

	require.NoError(t, store.Delete(ctx, "alice/key"))
	_, err = store.Get(ctx, "alice/key")
	require.Error(t, err)
	require.NoError(t, store.Clear(ctx))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.Equal(t, 1, logs.FilterMessage("storage get failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("storage put").Len())

	n, err := testutil.GatherAndCount(reg, "tokenfs_blob_operation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 6, n, "one series per operation")
}
