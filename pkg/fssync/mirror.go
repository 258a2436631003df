package fssync

import (
	"context"
	"io"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/model"
	"github.com/oneconcern/tokenfs/pkg/resolver"
	"github.com/oneconcern/tokenfs/pkg/token"
)

// Indexer is the part of the file index maintained from the file system
type Indexer interface {
	Put(context.Context, model.Node, io.Reader) error
	Delete(context.Context, string, token.Token, token.Token) (int, error)
	EnsureRoot(context.Context, string) (model.Node, error)
}

// mirror translates physical entries of an owner's tree into index updates
type mirror struct {
	*options
	owner string
	root  string
	res   *resolver.Resolver
	idx   Indexer
}

func newMirror(owner string, res *resolver.Resolver, idx Indexer, opts []Option) (*mirror, error) {
	root, err := res.OwnerRoot(owner)
	if err != nil {
		return nil, err
	}

	return &mirror{
		options: defaultOptions(opts),
		owner:   owner,
		root:    root,
		res:     res,
		idx:     idx,
	}, nil
}

// put indexes the entry found at physical, with its content when it is a regular file.
//
// Entries which are neither folders nor regular files are skipped.
func (m *mirror) put(ctx context.Context, physical string, fi os.FileInfo) error {
	parent, err := m.res.ToParentCanonical(physical, m.owner)
	if err != nil {
		return err
	}
	name := resolver.Name(physical)

	switch {
	case fi.IsDir():
		return m.idx.Put(ctx, model.NewFolder(m.owner, parent, name, fi.ModTime()), nil)
	case fi.Mode().IsRegular():
	default:
		m.l.Debug("skipping special file", zap.String("path", physical), zap.Stringer("mode", fi.Mode()))
		return nil
	}

	f, err := m.fs.Open(physical)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	return m.idx.Put(ctx, model.NewFile(m.owner, parent, name, fi.Size(), fi.ModTime()), f)
}

// remove deletes the node mirroring physical, with all its descendants
func (m *mirror) remove(ctx context.Context, physical string) (int, error) {
	canonical, err := m.res.ToCanonical(physical, m.owner)
	if err != nil {
		return 0, err
	}
	parent, err := m.res.ToParentCanonical(physical, m.owner)
	if err != nil {
		return 0, err
	}

	return m.idx.Delete(ctx, m.owner, token.For(canonical), token.For(parent))
}

// walk the tree at dir, lexically. Entries vanishing during the walk are skipped.
func (m *mirror) walk(ctx context.Context, dir string, visit func(string, os.FileInfo) error) error {
	return afero.Walk(m.fs, dir, func(p string, fi os.FileInfo, err error) error {
		if e := ctx.Err(); e != nil {
			return e
		}
		if err != nil {
			if os.IsNotExist(err) && p != dir {
				return nil
			}
			return err
		}

		return visit(p, fi)
	})
}

func lstat(fs afero.Fs, name string) (os.FileInfo, error) {
	if lfs, ok := fs.(afero.Lstater); ok {
		fi, _, err := lfs.LstatIfPossible(name)
		return fi, err
	}

	return fs.Stat(name)
}
