/*
Package model describes the nodes of a user's virtual tree, as stored by the index.

Nodes are persisted as flat string metadata maps. The mapping between a Node and its
metadata is written out field by field, in both directions: the metadata schema is
entirely described by the metaXXX constants of this package.
*/
package model
