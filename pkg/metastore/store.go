package metastore

import (
	"context"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/model"
)

var (
	// ErrNotFound indicates that no record exists for this owner and key
	ErrNotFound = errors.New("metadata not found")

	// ErrClosed indicates an operation on a closed store
	ErrClosed = errors.New("metadata store closed")

	// ErrInvalidKey indicates an empty key or owner, or one containing reserved characters
	ErrInvalidKey = errors.New("invalid metadata key")
)

// Store knows how to persist and query metadata records, scoped by owner.
type Store interface {
	String() string
	// Put creates or replaces the record for key
	Put(context.Context, string, string, model.Metadata) error
	// Get the record for key
	Get(context.Context, string, string) (model.Metadata, error)
	// Delete records, returning how many existed. Missing keys are not an error.
	Delete(context.Context, string, ...string) (int, error)
	// Query returns all the records of an owner matching a predicate
	Query(context.Context, string, Predicate) ([]model.Metadata, error)
	Close() error
}

// Predicate on metadata records.
//
// A predicate with a Field and a nil Match selects records whose Field equals Value.
// A non-nil Match is called with the value of Field.
// The zero Predicate matches all records.
type Predicate struct {
	Field string
	Value string
	Match func(string) bool
}

// Eq builds an equality predicate
func Eq(field, value string) Predicate {
	return Predicate{Field: field, Value: value}
}

// Matches builds a predicate evaluating fn against the value of field
func Matches(field string, fn func(string) bool) Predicate {
	return Predicate{Field: field, Match: fn}
}

// All records
func All() Predicate {
	return Predicate{}
}

func (p Predicate) isEquality() bool {
	return p.Field != "" && p.Match == nil
}

// Apply the predicate to a record
func (p Predicate) Apply(md model.Metadata) bool {
	switch {
	case p.Field == "":
		return true
	case p.Match != nil:
		return p.Match(md[p.Field])
	default:
		return md[p.Field] == p.Value
	}
}
