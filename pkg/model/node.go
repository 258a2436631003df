package model

import (
	"mime"
	"path"
	"strconv"
	"time"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/token"
)

const (
	// FolderMimeType is the mime type given to all folders
	FolderMimeType = "Folder"

	// DefaultMimeType is used for files whose type could not be guessed
	DefaultMimeType = "application/octet-stream"

	// RootName is the display name of an owner's root folder
	RootName = token.Root

	// RootParentToken is the parent token of an owner's root folder.
	//
	// It cannot collide with a real token, which is always a hex digest.
	RootParentToken token.Token = "root"
)

// ErrInvalidMetadata indicates a metadata map which does not describe a node
var ErrInvalidMetadata = errors.New("invalid node metadata")

// Kind of node
type Kind string

const (
	// KindFile is a regular file, with content in the blob store
	KindFile Kind = "File"

	// KindFolder is a folder, without content
	KindFolder Kind = "Folder"
)

// Valid kind?
func (k Kind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// Node is a file or folder in an owner's tree.
type Node struct {
	Token       token.Token `json:"token" yaml:"token"`
	ParentToken token.Token `json:"parentToken" yaml:"parentToken"`
	Name        string      `json:"name" yaml:"name"`
	Kind        Kind        `json:"kind" yaml:"kind"`
	MimeType    string      `json:"mimeType" yaml:"mimeType"`
	Size        int64       `json:"size" yaml:"size"`
	ModTime     time.Time   `json:"lastModifiedTime" yaml:"lastModifiedTime"`
	CreateTime  time.Time   `json:"createdTime" yaml:"createdTime"`
	OwnerID     string      `json:"ownerId" yaml:"ownerId"`
	_           struct{}
}

// IsFolder tells if the node is a folder
func (n Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsRoot tells if the node is an owner's root folder
func (n Node) IsRoot() bool {
	return n.ParentToken == RootParentToken && n.Kind == KindFolder
}

// NewRoot builds the root folder of an owner
func NewRoot(owner string, now time.Time) Node {
	return Node{
		Token:       token.RootToken(),
		ParentToken: RootParentToken,
		Name:        RootName,
		Kind:        KindFolder,
		MimeType:    FolderMimeType,
		ModTime:     now,
		CreateTime:  now,
		OwnerID:     owner,
	}
}

// NewFolder builds a folder node named name, under the folder located at parentPath
func NewFolder(owner, parentPath, name string, modTime time.Time) Node {
	return Node{
		Token:       token.ForChild(parentPath, name),
		ParentToken: token.For(parentPath),
		Name:        name,
		Kind:        KindFolder,
		MimeType:    FolderMimeType,
		ModTime:     modTime,
		CreateTime:  modTime,
		OwnerID:     owner,
	}
}

// NewFile builds a file node named name, under the folder located at parentPath
func NewFile(owner, parentPath, name string, size int64, modTime time.Time) Node {
	return Node{
		Token:       token.ForChild(parentPath, name),
		ParentToken: token.For(parentPath),
		Name:        name,
		Kind:        KindFile,
		MimeType:    GuessMimeType(name),
		Size:        size,
		ModTime:     modTime,
		CreateTime:  modTime,
		OwnerID:     owner,
	}
}

// GuessMimeType from the extension of a file name
func GuessMimeType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}

	return DefaultMimeType
}

// Metadata keys
const (
	metaToken       = "token"
	metaParentToken = "parentToken"
	metaName        = "name"
	metaKind        = "kind"
	metaMimeType    = "mimeType"
	metaSize        = "size"
	metaModTime     = "lastModifiedTime"
	metaCreateTime  = "createdTime"
	metaOwnerID     = "ownerId"
)

// MetaParentToken is the metadata key holding the parent token
const MetaParentToken = metaParentToken

// MetaName is the metadata key holding the display name
const MetaName = metaName

// Metadata is the flat representation of a node in the metadata store
type Metadata map[string]string

// Metadata maps a node to its metadata representation
func (n Node) Metadata() Metadata {
	return Metadata{
		metaToken:       string(n.Token),
		metaParentToken: string(n.ParentToken),
		metaName:        n.Name,
		metaKind:        string(n.Kind),
		metaMimeType:    n.MimeType,
		metaSize:        strconv.FormatInt(n.Size, 10),
		metaModTime:     formatTime(n.ModTime),
		metaCreateTime:  formatTime(n.CreateTime),
		metaOwnerID:     n.OwnerID,
	}
}

// NodeFromMetadata maps metadata back to a node
func NodeFromMetadata(md Metadata) (Node, error) {
	n := Node{
		Token:       token.Token(md[metaToken]),
		ParentToken: token.Token(md[metaParentToken]),
		Name:        md[metaName],
		Kind:        Kind(md[metaKind]),
		MimeType:    md[metaMimeType],
		OwnerID:     md[metaOwnerID],
	}
	if n.Token == "" || n.ParentToken == "" || n.OwnerID == "" {
		return Node{}, ErrInvalidMetadata.Wrapf("missing key in %v", md)
	}
	if !n.Kind.Valid() {
		return Node{}, ErrInvalidMetadata.Wrapf("unknown kind %q", md[metaKind])
	}

	var err error
	if s := md[metaSize]; s != "" {
		if n.Size, err = strconv.ParseInt(s, 10, 64); err != nil {
			return Node{}, ErrInvalidMetadata.Wrap(err)
		}
	}
	if n.ModTime, err = parseTime(md[metaModTime]); err != nil {
		return Node{}, ErrInvalidMetadata.Wrap(err)
	}
	if n.CreateTime, err = parseTime(md[metaCreateTime]); err != nil {
		return Node{}, ErrInvalidMetadata.Wrap(err)
	}

	return n, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339Nano, s)
}
