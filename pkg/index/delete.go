package index

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oneconcern/tokenfs/pkg/index/status"
	"github.com/oneconcern/tokenfs/pkg/model"
	"github.com/oneconcern/tokenfs/pkg/token"
)

// PartialDeleteError reports a cascading delete which could not remove all the nodes of a subtree.
//
// Nodes already removed are not restored. Nodes left over remain reachable from the
// subtree root, so the delete may be retried.
type PartialDeleteError struct {
	Expected int
	Removed  int
	Err      error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("partial delete: removed %d nodes out of %d: %v", e.Removed, e.Expected, e.Err)
}

// Unwrap the cause of the interruption
func (e *PartialDeleteError) Unwrap() error {
	return e.Err
}

// Delete a node. Deleting a folder deletes all its descendants, depth first.
//
// Delete returns the number of removed nodes, the node itself included.
func (i *Index) Delete(ctx context.Context, owner string, tok, parent token.Token) (removed int, err error) {
	defer func() {
		i.m.IndexOp("delete", err)
		i.m.Removed(removed)
	}()

	n, err := i.Get(ctx, owner, tok, parent)
	if err != nil {
		return 0, err
	}

	if err = i.probe(ctx, owner, tok); err != nil {
		return 0, err
	}

	subtree, err := i.collect(ctx, owner, n)
	if err != nil {
		return 0, err
	}

	// remove blobs first: a node whose content could not be removed is kept in the index,
	// together with its ancestors up to the deleted node
	kept := make(map[token.Token]struct{})
	var blobErrs error
	for _, node := range subtree {
		if node.IsFolder() {
			continue
		}
		if e := i.blobs.Delete(ctx, blobKey(owner, node.Token)); e != nil {
			blobErrs = multierr.Append(blobErrs, unavailable(e))
			keepWithAncestors(kept, subtree, node, tok)
		}
	}

	keys := make([]string, 0, len(subtree))
	for _, node := range subtree {
		if _, skip := kept[node.Token]; !skip {
			keys = append(keys, string(node.Token))
		}
	}

	// descendants go first: an interrupted cascade leaves no node without its parent
	removed, err = i.meta.Delete(ctx, owner, keys...)
	err = multierr.Append(blobErrs, unavailable(err))

	i.l.Debug("node deleted",
		zap.String("owner", owner),
		zap.Stringer("token", tok),
		zap.Int("expected", len(subtree)),
		zap.Int("removed", removed),
	)

	if err != nil {
		return removed, &PartialDeleteError{Expected: len(subtree), Removed: removed, Err: err}
	}
	return removed, nil
}

// collect the subtree rooted at n, descendants first
func (i *Index) collect(ctx context.Context, owner string, n model.Node) ([]model.Node, error) {
	var (
		subtree []model.Node
		visited = make(map[token.Token]struct{})
		walk    func(model.Node, int) error
	)

	walk = func(node model.Node, depth int) error {
		if depth > i.maxDepth {
			return status.ErrTooDeep.Wrapf("more than %d levels under %s", i.maxDepth, n.Token)
		}
		if _, seen := visited[node.Token]; seen {
			return nil
		}
		visited[node.Token] = struct{}{}

		if node.IsFolder() {
			children, err := i.children(ctx, owner, node.Token)
			if err != nil {
				return err
			}
			for _, child := range children {
				if err := walk(child, depth+1); err != nil {
					return err
				}
			}
		}

		subtree = append(subtree, node)
		return nil
	}

	if err := walk(n, 0); err != nil {
		return nil, err
	}
	return subtree, nil
}

func keepWithAncestors(kept map[token.Token]struct{}, subtree []model.Node, node model.Node, top token.Token) {
	parents := make(map[token.Token]token.Token, len(subtree))
	for _, n := range subtree {
		parents[n.Token] = n.ParentToken
	}

	for current := node.Token; ; {
		kept[current] = struct{}{}
		if current == top {
			return
		}
		parent, ok := parents[current]
		if !ok {
			return
		}
		current = parent
	}
}
