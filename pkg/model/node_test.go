package model

import (
	"testing"
	"time"

	"github.com/oneconcern/tokenfs/pkg/errors"
	"github.com/oneconcern/tokenfs/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeMetadataMapping(t *testing.T) {
	modTime := time.Date(2019, 3, 4, 5, 6, 7, 8, time.FixedZone("CET", 3600))
	n := NewFile("alice", "/a", "x.txt", 42, modTime)

	md := n.Metadata()
	assert.Equal(t, string(token.For("/a/x.txt")), md["token"])
	assert.Equal(t, string(token.For("/a")), md[MetaParentToken])
	assert.Equal(t, "x.txt", md[MetaName])
	assert.Equal(t, "File", md["kind"])
	assert.Equal(t, "42", md["size"])
	assert.Equal(t, "2019-03-04T04:06:07.000000008Z", md["lastModifiedTime"])

	back, err := NodeFromMetadata(md)
	require.NoError(t, err)
	assert.Equal(t, n.Token, back.Token)
	assert.Equal(t, n.ParentToken, back.ParentToken)
	assert.Equal(t, n.Size, back.Size)
	assert.True(t, n.ModTime.Equal(back.ModTime))
	assert.True(t, n.CreateTime.Equal(back.CreateTime))
	assert.Equal(t, "text/plain; charset=utf-8", back.MimeType)
}

func TestNodeFromInvalidMetadata(t *testing.T) {
	valid := NewFolder("alice", "/", "a", time.Now()).Metadata()

	for _, toPin := range []struct {
		name   string
		mutate func(Metadata)
	}{
		{name: "no token", mutate: func(md Metadata) { delete(md, "token") }},
		{name: "no owner", mutate: func(md Metadata) { md["ownerId"] = "" }},
		{name: "bad kind", mutate: func(md Metadata) { md["kind"] = "Symlink" }},
		{name: "bad size", mutate: func(md Metadata) { md["size"] = "big" }},
		{name: "bad time", mutate: func(md Metadata) { md["createdTime"] = "yesterday" }},
	} {
		testcase := toPin
		t.Run(testcase.name, func(t *testing.T) {
			md := Metadata{}
			for k, v := range valid {
				md[k] = v
			}
			testcase.mutate(md)

			_, err := NodeFromMetadata(md)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMetadata))
		})
	}
}

func TestNewRoot(t *testing.T) {
	root := NewRoot("bob", time.Now())
	assert.True(t, root.IsRoot())
	assert.True(t, root.IsFolder())
	assert.Equal(t, token.RootToken(), root.Token)
	assert.Equal(t, FolderMimeType, root.MimeType)

	folder := NewFolder("bob", "/", "shared", time.Now())
	assert.False(t, folder.IsRoot())
	assert.Equal(t, token.RootToken(), folder.ParentToken)
	assert.Equal(t, token.For("/shared"), folder.Token)
}

func TestGuessMimeType(t *testing.T) {
	assert.Equal(t, DefaultMimeType, GuessMimeType("README"))
	assert.Equal(t, "image/png", GuessMimeType("cat.png"))
}
