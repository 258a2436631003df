package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/dlogger"
	"github.com/oneconcern/tokenfs/pkg/index"
	"github.com/oneconcern/tokenfs/pkg/metastore"
	"github.com/oneconcern/tokenfs/pkg/metrics"
	"github.com/oneconcern/tokenfs/pkg/resolver"
	"github.com/oneconcern/tokenfs/pkg/storage"
	"github.com/oneconcern/tokenfs/pkg/storage/localfs"
)

// stores opened for the duration of a command
type stores struct {
	logger *zap.Logger
	meta   metastore.Store
	idx    *index.Index
	res    *resolver.Resolver
}

func (s *stores) Close() error {
	err := s.meta.Close()
	return multierr.Append(err, s.logger.Sync())
}

func openStores(c *CLIConfig, m *metrics.Metrics) (*stores, error) {
	logger, err := dlogger.GetLogger(c.LogLevel, true)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	storageRoot, err := filepath.Abs(c.StorageRoot)
	if err != nil {
		return nil, err
	}

	meta, err := metastore.Open(c.MetaDir, metastore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening metadata store at %s: %w", c.MetaDir, err)
	}

	if err = os.MkdirAll(c.BlobDir, 0o700); err != nil {
		return nil, multierr.Append(err, meta.Close())
	}
	blobs, err := localfs.NewAtomic(afero.NewBasePathFs(afero.NewOsFs(), c.BlobDir))
	if err != nil {
		return nil, multierr.Append(err, meta.Close())
	}

	idx := index.New(meta, storage.Instrument(logger, m, blobs),
		index.WithLogger(logger),
		index.WithMetrics(m),
	)

	return &stores{
		logger: logger,
		meta:   meta,
		idx:    idx,
		res:    resolver.New(storageRoot),
	}, nil
}
