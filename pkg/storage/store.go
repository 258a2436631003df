// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
)

// Store implementations know how to write blobs to a K/V model.
//
// Typically this is something file system-like. Examples are S3, local FS, NFS, ...
// Implementations of this interface are assumed to be fairly simple.
//
// Get returns status.ErrNotExists for a missing key. Delete of a missing key is not an error.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// PipeIO copies a reader into a writer, with a pooled buffer
func PipeIO(writer io.Writer, reader io.Reader) (int64, error) {
	buf := bufPool.Get().(*[]byte)
	defer bufPool.Put(buf)

	return io.CopyBuffer(writer, reader, *buf)
}
