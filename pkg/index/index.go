package index

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/grafana/regexp"
	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/index/status"
	"github.com/oneconcern/tokenfs/pkg/metastore"
	"github.com/oneconcern/tokenfs/pkg/metrics"
	"github.com/oneconcern/tokenfs/pkg/model"
	"github.com/oneconcern/tokenfs/pkg/storage"
	storagestatus "github.com/oneconcern/tokenfs/pkg/storage/status"
	"github.com/oneconcern/tokenfs/pkg/token"
)

// Index of the nodes of all owners
type Index struct {
	meta     metastore.Store
	blobs    storage.Store
	l        *zap.Logger
	m        *metrics.Metrics
	maxDepth int
	now      func() time.Time
}

// New index over a metadata store and a blob store
func New(meta metastore.Store, blobs storage.Store, opts ...Option) *Index {
	i := &Index{
		meta:     meta,
		blobs:    blobs,
		l:        zap.NewNop(),
		maxDepth: defaultMaxDepth,
		now:      time.Now,
	}
	for _, apply := range opts {
		apply(i)
	}
	return i
}

// Put creates or updates a node.
//
// When the node is a file and content is not nil, the content is saved to the blob store
// before the metadata, and the size recorded is the number of bytes stored. Updating a node never changes its parent nor its kind: such an
// attempt fails with ErrDuplicateNode. The creation time of an existing node is preserved.
func (i *Index) Put(ctx context.Context, node model.Node, content io.Reader) (err error) {
	defer func() { i.m.IndexOp("put", err) }()

	if err = validNode(node); err != nil {
		return err
	}

	existing, err := i.Lookup(ctx, node.OwnerID, node.Token)
	switch {
	case errors.Is(err, status.ErrNotFound):
	case err != nil:
		return err
	case existing.ParentToken != node.ParentToken:
		return status.ErrDuplicateNode.Wrapf("token %s is already registered under parent %s, not %s",
			node.Token, existing.ParentToken, node.ParentToken)
	case existing.Kind != node.Kind:
		return status.ErrDuplicateNode.Wrapf("token %s is already registered as a %s", node.Token, existing.Kind)
	default:
		if !existing.CreateTime.IsZero() {
			node.CreateTime = existing.CreateTime
		}
	}

	switch {
	case node.Kind == model.KindFile && content != nil:
		counter := &countingReader{r: content}
		if err = i.blobs.Put(ctx, blobKey(node.OwnerID, node.Token), counter); err != nil {
			return unavailable(err)
		}
		node.Size = counter.n
	default:
		if err = i.probe(ctx, node.OwnerID, node.Token); err != nil {
			return err
		}
	}

	if err = i.meta.Put(ctx, node.OwnerID, string(node.Token), node.Metadata()); err != nil {
		return unavailable(err)
	}

	i.l.Debug("node indexed",
		zap.String("owner", node.OwnerID),
		zap.Stringer("token", node.Token),
		zap.Stringer("parent", node.ParentToken),
		zap.String("kind", string(node.Kind)),
	)
	return nil
}

// Get a node by token, under the parent it claims.
func (i *Index) Get(ctx context.Context, owner string, tok, parent token.Token) (model.Node, error) {
	n, err := i.Lookup(ctx, owner, tok)
	if err != nil {
		return model.Node{}, err
	}
	if n.ParentToken != parent {
		return model.Node{}, notFound(tok)
	}
	return n, nil
}

// Lookup a node by token only.
func (i *Index) Lookup(ctx context.Context, owner string, tok token.Token) (model.Node, error) {
	if validOwner(owner) != nil || tok == "" {
		return model.Node{}, notFound(tok)
	}

	md, err := i.meta.Get(ctx, owner, string(tok))
	if errors.Is(err, metastore.ErrNotFound) {
		return model.Node{}, notFound(tok)
	}
	if err != nil {
		return model.Node{}, unavailable(err)
	}

	n, err := model.NodeFromMetadata(md)
	if err != nil {
		return model.Node{}, err
	}
	if n.OwnerID != owner {
		return model.Node{}, notFound(tok)
	}
	return n, nil
}

// GetRoot returns the root folder of an owner.
func (i *Index) GetRoot(ctx context.Context, owner string) (root model.Node, err error) {
	defer func() { i.m.IndexOp("root", err) }()

	if validOwner(owner) != nil {
		return model.Node{}, notFound(token.RootToken())
	}

	nodes, err := i.query(ctx, owner, metastore.Eq(model.MetaParentToken, string(model.RootParentToken)))
	if err != nil {
		return model.Node{}, err
	}

	var roots []model.Node
	for _, n := range nodes {
		if n.IsRoot() && n.Name == model.RootName {
			roots = append(roots, n)
		}
	}
	switch len(roots) {
	case 0:
		return model.Node{}, notFound(token.RootToken())
	case 1:
	default:
		i.l.Warn("more than one root folder", zap.String("owner", owner), zap.Int("roots", len(roots)))
	}
	return roots[0], nil
}

// EnsureRoot returns the root folder of an owner, creating it if needed.
func (i *Index) EnsureRoot(ctx context.Context, owner string) (model.Node, error) {
	root, err := i.GetRoot(ctx, owner)
	if !errors.Is(err, status.ErrNotFound) {
		return root, err
	}
	if err = validOwner(owner); err != nil {
		return model.Node{}, err
	}

	root = model.NewRoot(owner, i.now())
	if err = i.Put(ctx, root, nil); err != nil {
		return model.Node{}, err
	}
	i.l.Info("root folder created", zap.String("owner", owner))
	return root, nil
}

// ListChildren returns the direct children of a folder, in no particular order.
//
// It fails with ErrNotFound if the folder itself does not exist.
func (i *Index) ListChildren(ctx context.Context, owner string, parent token.Token) (children []model.Node, err error) {
	defer func() { i.m.IndexOp("list", err) }()

	if _, err = i.Lookup(ctx, owner, parent); err != nil {
		return nil, err
	}
	return i.children(ctx, owner, parent)
}

// Search the names of all nodes of an owner.
//
// The pattern is a case-insensitive regular expression. A pattern which is not a valid
// regular expression is searched for as a plain substring. The root folder is never returned.
func (i *Index) Search(ctx context.Context, owner, pattern string) (found []model.Node, err error) {
	defer func() { i.m.IndexOp("search", err) }()

	if validOwner(owner) != nil {
		return nil, nil
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	}

	nodes, err := i.query(ctx, owner, metastore.Matches(model.MetaName, re.MatchString))
	if err != nil {
		return nil, err
	}

	found = nodes[:0]
	for _, n := range nodes {
		if !n.IsRoot() {
			found = append(found, n)
		}
	}
	return found, nil
}

// Open the content of a file.
func (i *Index) Open(ctx context.Context, owner string, tok, parent token.Token) (io.ReadCloser, error) {
	n, err := i.Get(ctx, owner, tok, parent)
	if err != nil {
		return nil, err
	}
	if n.IsFolder() {
		return nil, status.ErrInvalidNode.Wrapf("%s is a folder", tok)
	}

	rdr, err := i.blobs.Get(ctx, blobKey(owner, tok))
	if errors.Is(err, storagestatus.ErrNotExists) {
		return nil, status.ErrNotFound.Wrapf("no content for %s", tok)
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return rdr, nil
}

// CanonicalPath rebuilds the canonical path of a node from the names of its ancestors.
func (i *Index) CanonicalPath(ctx context.Context, owner string, tok token.Token) (string, error) {
	n, err := i.Lookup(ctx, owner, tok)
	if err != nil {
		return "", err
	}

	var names []string
	for depth := 0; !n.IsRoot(); depth++ {
		if depth >= i.maxDepth {
			return "", status.ErrTooDeep.Wrapf("resolving path of %s", tok)
		}
		names = append(names, n.Name)

		if n, err = i.Lookup(ctx, owner, n.ParentToken); err != nil {
			return "", err
		}
	}

	p := token.Root
	for j := len(names) - 1; j >= 0; j-- {
		p = token.ComposeChildPath(p, names[j])
	}
	return p, nil
}

func (i *Index) children(ctx context.Context, owner string, parent token.Token) ([]model.Node, error) {
	return i.query(ctx, owner, metastore.Eq(model.MetaParentToken, string(parent)))
}

func (i *Index) query(ctx context.Context, owner string, pred metastore.Predicate) ([]model.Node, error) {
	records, err := i.meta.Query(ctx, owner, pred)
	if err != nil {
		return nil, unavailable(err)
	}

	nodes := make([]model.Node, 0, len(records))
	for _, md := range records {
		n, err := model.NodeFromMetadata(md)
		if err != nil {
			i.l.Warn("skipping corrupted node record", zap.String("owner", owner), zap.Error(err))
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// probe the blob store, so that writes are refused while it is unreachable
func (i *Index) probe(ctx context.Context, owner string, tok token.Token) error {
	if _, err := i.blobs.Has(ctx, blobKey(owner, tok)); err != nil {
		return unavailable(err)
	}
	return nil
}

func blobKey(owner string, tok token.Token) string {
	return owner + "/" + string(tok)
}

func notFound(tok token.Token) error {
	return status.ErrNotFound.Wrapf("token %q", tok)
}

// unavailable flags a store failure, leaving context cancellations untouched
func unavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return status.ErrStoreUnavailable.Wrap(err)
}

func validOwner(owner string) error {
	if owner == "" || owner == "." || owner == ".." || strings.ContainsAny(owner, "/\\\x00") {
		return status.ErrInvalidNode.Wrapf("invalid owner %q", owner)
	}
	return nil
}

func validNode(n model.Node) error {
	if err := validOwner(n.OwnerID); err != nil {
		return err
	}
	switch {
	case n.Token == "" || n.ParentToken == "":
		return status.ErrInvalidNode.Wrapf("missing token or parent token")
	case n.Token == n.ParentToken:
		return status.ErrInvalidNode.Wrapf("node %s cannot be its own parent", n.Token)
	case n.Name == "":
		return status.ErrInvalidNode.Wrapf("node %s has no name", n.Token)
	case !n.Kind.Valid():
		return status.ErrInvalidNode.Wrapf("node %s has unknown kind %q", n.Token, n.Kind)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
