package fssync

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oneconcern/tokenfs/pkg/resolver"
)

// Group runs one synchronizer per owner.
type Group struct {
	res  *resolver.Resolver
	idx  Indexer
	opts []Option

	// InitialIndex runs a bulk index pass for each owner, once its tree is watched
	InitialIndex bool
}

// NewGroup of synchronizers over the storage root of res
func NewGroup(res *resolver.Resolver, idx Indexer, opts ...Option) *Group {
	return &Group{
		res:  res,
		idx:  idx,
		opts: opts,
	}
}

// Owners found as directories under the storage root. Hidden directories are ignored.
func (g *Group) Owners() ([]string, error) {
	o := defaultOptions(g.opts)

	entries, err := afero.ReadDir(o.fs, g.res.StorageRoot())
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}

	owners := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		owner, err := g.res.OwnerOf(filepath.Join(g.res.StorageRoot(), entry.Name()))
		if err == nil && owner != entry.Name() {
			err = resolver.ErrInvalidOwner.Wrapf("%q", entry.Name())
		}
		if err != nil {
			o.l.Warn("skipping owner directory", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		owners = append(owners, owner)
	}

	return owners, nil
}

// Run synchronizers until ctx is done or one of them fails to start.
//
// Without owners, Run watches all the owners found under the storage root.
func (g *Group) Run(ctx context.Context, owners ...string) error {
	if len(owners) == 0 {
		var err error
		if owners, err = g.Owners(); err != nil {
			return err
		}
		if len(owners) == 0 {
			return fmt.Errorf("no owner directory found under %s", g.res.StorageRoot())
		}
	}

	eg, gctx := errgroup.WithContext(ctx)
	for _, owner := range owners {
		owner := owner
		eg.Go(func() error {
			return g.run(gctx, owner)
		})
	}

	return eg.Wait()
}

func (g *Group) run(ctx context.Context, owner string) error {
	s, err := New(owner, g.res, g.idx, g.opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	if err = s.Start(ctx); err != nil {
		return fmt.Errorf("starting synchronizer for %s: %w", owner, err)
	}

	if g.InitialIndex {
		if _, err = BulkIndex(ctx, owner, g.res, g.idx, g.opts...); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	return s.Run(ctx)
}
