package token

import (
	"encoding/hex"
	"io"
	"strings"

	blake2b "github.com/minio/blake2b-simd"
)

const (
	// Root is the canonical path of an owner's root folder
	Root = "/"

	// Separator of canonical paths, regardless of the host OS
	Separator = "/"

	// Len is the length of a token string
	Len = 2 * 32
)

// Token is the opaque key of a node.
type Token string

// For computes the token of a canonical path.
func For(canonicalPath string) Token {
	h := blake2b.New256()
	_, _ = io.WriteString(h, canonicalPath)

	return Token(hex.EncodeToString(h.Sum(nil)))
}

// ForChild computes the token of the child named name under the parent canonical path.
func ForChild(parentPath, name string) Token {
	return For(ComposeChildPath(parentPath, name))
}

// RootToken is the token of any owner's root folder.
func RootToken() Token {
	return For(Root)
}

// ComposeChildPath builds the canonical path of a child entry.
//
//	ComposeChildPath("/", "test.txt")   == "/test.txt"
//	ComposeChildPath("/a/b", "c.txt")   == "/a/b/c.txt"
func ComposeChildPath(parentPath, name string) string {
	name = strings.TrimLeft(name, Separator)
	if parentPath == Root || parentPath == "" {
		return Root + name
	}

	return strings.TrimRight(parentPath, Separator) + Separator + name
}

// String representation of a token
func (t Token) String() string {
	return string(t)
}

// Valid tells if the token has the shape of a digest produced by For.
//
// This does not tell whether the token is known to any index.
func (t Token) Valid() bool {
	if len(t) != Len {
		return false
	}
	for _, c := range []byte(t) {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}
