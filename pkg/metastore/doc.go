/*
Package metastore persists node metadata, scoped by owner, and answers
queries by metadata predicate.

The badger implementation maintains a secondary index on one metadata field (the
parent token), so listing the children of a folder is a prefix scan rather than a
full scan of the owner's records.

Each Put and Delete is atomic. Deleting many keys is split in as many transactions as
the underlying store requires: a large cascade is not atomic as a whole.
*/
package metastore
