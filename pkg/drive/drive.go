// Package drive exposes the operations of the API layer on top of the file index.
//
// Clients only ever see tokens: a Drive resolves them for one owner at a time and mints
// the tokens of new folders and files from the canonical path of their parent.
package drive

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/index"
	"github.com/oneconcern/tokenfs/pkg/index/status"
	"github.com/oneconcern/tokenfs/pkg/model"
	"github.com/oneconcern/tokenfs/pkg/resolver"
	"github.com/oneconcern/tokenfs/pkg/token"
)

// ErrInvalidName indicates a file or folder name which cannot be used as a path segment
var ErrInvalidName = errors.New("invalid name")

// Drive serves the API layer
type Drive struct {
	idx *index.Index
	l   *zap.Logger
	now func() time.Time
}

// Option for a drive
type Option func(*Drive)

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Drive) {
		if l != nil {
			d.l = l
		}
	}
}

// WithClock sets the time source used to stamp new nodes
func WithClock(now func() time.Time) Option {
	return func(d *Drive) {
		if now != nil {
			d.now = now
		}
	}
}

// New drive over an index
func New(idx *index.Index, opts ...Option) *Drive {
	d := &Drive{
		idx: idx,
		l:   zap.NewNop(),
		now: time.Now,
	}
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// RootToken returns the token of the owner's root folder, which is created on first use
func (d *Drive) RootToken(ctx context.Context, owner string) (token.Token, error) {
	root, err := d.idx.EnsureRoot(ctx, owner)
	if err != nil {
		return "", err
	}
	return root.Token, nil
}

// List the content of a folder: folders first, then files, each sorted by name
func (d *Drive) List(ctx context.Context, owner string, folder token.Token) ([]model.Node, error) {
	if err := validToken(folder); err != nil {
		return nil, err
	}

	nodes, err := d.idx.ListChildren(ctx, owner, folder)
	if err != nil {
		return nil, err
	}
	sortNodes(nodes)
	return nodes, nil
}

// Search names across the whole tree of the owner
func (d *Drive) Search(ctx context.Context, owner, pattern string) ([]model.Node, error) {
	nodes, err := d.idx.Search(ctx, owner, pattern)
	if err != nil {
		return nil, err
	}
	sortNodes(nodes)
	return nodes, nil
}

// CreateFolder named name under the folder parent
func (d *Drive) CreateFolder(ctx context.Context, owner string, parent token.Token, name string) (model.Node, error) {
	parentPath, err := d.folderPath(ctx, owner, parent, name)
	if err != nil {
		return model.Node{}, err
	}

	n := model.NewFolder(owner, parentPath, name, d.now())
	if err = d.idx.Put(ctx, n, nil); err != nil {
		return model.Node{}, err
	}

	d.l.Info("folder created", zap.String("owner", owner), zap.Stringer("token", n.Token), zap.String("name", name))
	return n, nil
}

// Upload a file named name under the folder parent. An existing file with this name is replaced.
func (d *Drive) Upload(ctx context.Context, owner string, parent token.Token, name string, content io.Reader) (model.Node, error) {
	parentPath, err := d.folderPath(ctx, owner, parent, name)
	if err != nil {
		return model.Node{}, err
	}

	if content == nil {
		content = strings.NewReader("")
	}
	n := model.NewFile(owner, parentPath, name, 0, d.now())
	if err = d.idx.Put(ctx, n, content); err != nil {
		return model.Node{}, err
	}

	// the index records the stored size, and keeps the creation time of a replaced file
	if n, err = d.idx.Lookup(ctx, owner, n.Token); err != nil {
		return model.Node{}, err
	}

	d.l.Info("file uploaded",
		zap.String("owner", owner),
		zap.Stringer("token", n.Token),
		zap.String("name", name),
		zap.Int64("size", n.Size),
	)
	return n, nil
}

// Download the content of a file. The caller must close the returned reader.
func (d *Drive) Download(ctx context.Context, owner string, tok token.Token) (model.Node, io.ReadCloser, error) {
	n, err := d.lookup(ctx, owner, tok)
	if err != nil {
		return model.Node{}, nil, err
	}

	rdr, err := d.idx.Open(ctx, owner, n.Token, n.ParentToken)
	if err != nil {
		return model.Node{}, nil, err
	}
	return n, rdr, nil
}

// Delete a file, or a folder with all its content. The root folder cannot be deleted.
func (d *Drive) Delete(ctx context.Context, owner string, tok token.Token) (int, error) {
	n, err := d.lookup(ctx, owner, tok)
	if err != nil {
		return 0, err
	}
	if n.IsRoot() {
		return 0, status.ErrInvalidNode.Wrapf("the root folder cannot be deleted")
	}

	removed, err := d.idx.Delete(ctx, owner, n.Token, n.ParentToken)
	if err != nil {
		d.l.Warn("delete", zap.String("owner", owner), zap.Stringer("token", tok), zap.Int("removed", removed), zap.Error(err))
		return removed, err
	}

	d.l.Info("deleted", zap.String("owner", owner), zap.Stringer("token", tok), zap.Int("removed", removed))
	return removed, nil
}

// StatusCode maps an error returned by a Drive to an HTTP status code
func StatusCode(err error) int {
	var partial *index.PartialDeleteError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, status.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &partial), errors.Is(err, status.ErrStoreUnavailable):
		return http.StatusInternalServerError
	case errors.Is(err, status.ErrDuplicateNode),
		errors.Is(err, status.ErrInvalidNode),
		errors.Is(err, status.ErrTooDeep),
		errors.Is(err, resolver.ErrPathOutsideRoot),
		errors.Is(err, ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (d *Drive) lookup(ctx context.Context, owner string, tok token.Token) (model.Node, error) {
	if err := validToken(tok); err != nil {
		return model.Node{}, err
	}
	return d.idx.Lookup(ctx, owner, tok)
}

// folderPath checks that a new entry may be created under parent and returns the canonical path of parent
func (d *Drive) folderPath(ctx context.Context, owner string, parent token.Token, name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	folder, err := d.lookup(ctx, owner, parent)
	if err != nil {
		return "", err
	}
	if !folder.IsFolder() {
		return "", status.ErrInvalidNode.Wrapf("%s is not a folder", parent)
	}

	return d.idx.CanonicalPath(ctx, owner, parent)
}

func validToken(tok token.Token) error {
	if !tok.Valid() {
		return status.ErrNotFound.Wrapf("malformed token %q", tok)
	}
	return nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidName.Wrapf("%q", name)
	}
	return nil
}

func sortNodes(nodes []model.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].IsFolder() != nodes[j].IsFolder() {
			return nodes[i].IsFolder()
		}
		return nodes[i].Name < nodes[j].Name
	})
}
