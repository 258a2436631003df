// Package resolver maps physical paths of the storage area to the canonical,
// owner-relative paths used to derive tokens, and back.
//
// The storage area is laid out as <storage root>/<owner id>/<user tree>.
// Separators are normalized to forward slashes whatever the host OS, so a canonical
// path computed on one host resolves to the same token on any other.
package resolver

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/token"
)

var (
	// ErrPathOutsideRoot indicates a physical path which is not located under the expected owner root
	ErrPathOutsideRoot = errors.New("path outside owner root")

	// ErrInvalidOwner indicates an owner id which cannot be used as a directory name
	ErrInvalidOwner = errors.New("invalid owner id")
)

// Resolver converts paths for a given storage root.
//
// A Resolver is immutable and safe for concurrent use.
type Resolver struct {
	root string
}

// New resolver for the storage root.
func New(storageRoot string) *Resolver {
	return &Resolver{root: normalize(storageRoot)}
}

// StorageRoot returns the physical storage root, in the host's format
func (r *Resolver) StorageRoot() string {
	return filepath.FromSlash(r.root)
}

// OwnerRoot returns the physical root directory of an owner, in the host's format
func (r *Resolver) OwnerRoot(owner string) (string, error) {
	if err := validOwner(owner); err != nil {
		return "", err
	}

	return filepath.FromSlash(r.ownerRoot(owner)), nil
}

// ToCanonical strips the storage root and the owner's directory from a physical path.
//
// The owner root itself maps to "/".
func (r *Resolver) ToCanonical(physicalPath, owner string) (string, error) {
	if err := validOwner(owner); err != nil {
		return "", err
	}

	p := normalize(physicalPath)
	base := r.ownerRoot(owner)

	switch {
	case p == base:
		return token.Root, nil
	case strings.HasPrefix(p, base+token.Separator):
		return p[len(base):], nil
	default:
		return "", ErrPathOutsideRoot.Wrapf("%q is not under %q", physicalPath, base)
	}
}

// ToParentCanonical resolves the canonical path of the directory containing physicalPath.
//
// Direct children of the owner root resolve to "/". The owner root has no parent in the
// owner's tree and yields ErrPathOutsideRoot.
func (r *Resolver) ToParentCanonical(physicalPath, owner string) (string, error) {
	canonical, err := r.ToCanonical(physicalPath, owner)
	if err != nil {
		return "", err
	}
	if canonical == token.Root {
		return "", ErrPathOutsideRoot.Wrapf("owner root %q has no parent", physicalPath)
	}

	return path.Dir(canonical), nil
}

// ToPhysical maps a canonical path back to a physical path of the owner, in the host's format.
func (r *Resolver) ToPhysical(canonicalPath, owner string) (string, error) {
	if err := validOwner(owner); err != nil {
		return "", err
	}

	// rooting before cleaning prevents ".." from climbing out of the owner root
	canonical := path.Clean(token.Separator + strings.ReplaceAll(canonicalPath, `\`, token.Separator))
	if canonical == token.Root {
		return filepath.FromSlash(r.ownerRoot(owner)), nil
	}

	return filepath.FromSlash(r.ownerRoot(owner) + canonical), nil
}

// OwnerOf returns the owner whose tree contains physicalPath.
func (r *Resolver) OwnerOf(physicalPath string) (string, error) {
	p := normalize(physicalPath)
	prefix := strings.TrimSuffix(r.root, token.Separator) + token.Separator
	if !strings.HasPrefix(p, prefix) {
		return "", ErrPathOutsideRoot.Wrapf("%q is not under storage root %q", physicalPath, r.root)
	}

	owner := strings.SplitN(p[len(prefix):], token.Separator, 2)[0]
	if err := validOwner(owner); err != nil {
		return "", err
	}

	return owner, nil
}

// Name returns the leaf name of a physical path
func Name(physicalPath string) string {
	return path.Base(normalize(physicalPath))
}

func (r *Resolver) ownerRoot(owner string) string {
	if r.root == token.Root {
		return token.Root + owner
	}

	return r.root + token.Separator + owner
}

func normalize(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, token.Separator))
}

func validOwner(owner string) error {
	if owner == "" || owner == "." || owner == ".." || strings.ContainsAny(owner, `/\`) {
		return ErrInvalidOwner.Wrapf("%q", owner)
	}

	return nil
}
