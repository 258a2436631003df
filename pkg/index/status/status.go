// Package status exports errors produced by the index package.
package status

import (
	"github.com/oneconcern/tokenfs/pkg/errors"
)

var (
	// ErrNotFound indicates that no node exists with this token for this owner
	ErrNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates an attempt to create a node with a token already known under another parent
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrStoreUnavailable indicates that the backing metadata or blob store could not serve the request
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidNode indicates a node record which misses mandatory fields, or an operation which does not apply to this kind of node
	ErrInvalidNode = errors.New("invalid node")

	// ErrTooDeep indicates a tree deeper than the configured limit
	ErrTooDeep = errors.New("tree too deep")
)
