/*
Package index maintains the authoritative mapping from tokens to the nodes of each owner's tree.

Node metadata lives in a metastore.Store, scoped by owner. File contents live in a
storage.Store, keyed by owner and token.

The index owns the tree invariants:

  - every owner has exactly one root folder, whose parent is model.RootParentToken
  - the children of a node are the nodes whose parent token is the node's token
  - tokens and parent tokens never change once assigned
  - deleting a folder deletes its whole subtree

No lock is taken by the index: concurrent callers rely on the atomicity of individual
metastore writes. Multi-step operations such as a cascading delete are not transactional.
*/
package index
