/*
Package token derives the opaque identifiers under which nodes of a user's tree are indexed.

A token is the hex-encoded BLAKE2b-256 digest of the node's canonical path, i.e. the
forward-slash path relative to the owner's root ("/" being the root itself).

Tokens are deterministic: re-indexing the same path always yields the same token, so
index writes are idempotent. Tokens are one-way: they never reveal the path they stand for,
and are safe to place in an URL path segment as-is.
*/
package token
