package fssync

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/resolver"
)

// BulkIndex indexes the whole tree of an owner, parents first, creating the owner's
// root folder if needed. Running it again over an unchanged tree changes nothing.
//
// It returns the number of entries visited, the owner root excluded.
func BulkIndex(ctx context.Context, owner string, res *resolver.Resolver, idx Indexer, opts ...Option) (int, error) {
	m, err := newMirror(owner, res, idx, opts)
	if err != nil {
		return 0, err
	}

	if _, err = idx.EnsureRoot(ctx, owner); err != nil {
		return 0, err
	}

	t0 := time.Now()
	var count int
	err = m.walk(ctx, m.root, func(p string, fi os.FileInfo) error {
		if p == m.root {
			return nil
		}

		if e := m.put(ctx, p, fi); e != nil {
			if errors.Is(e, iofs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("indexing %s: %w", p, e)
		}
		count++

		return nil
	})

	m.l.Info("bulk index",
		zap.String("owner", owner),
		zap.Int("entries", count),
		zap.Duration("took", time.Since(t0)),
		zap.Error(err),
	)

	return count, err
}
