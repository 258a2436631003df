// Copyright © 2018 One Concern

// Package storage provides the interface to handle the blob store holding file contents.
//
// Blobs are opaque byte streams, stored under a key. The index keys file contents
// by owner and token, so a blob key never reveals the path of the file it holds.
//
// This package supports the following backends:
//   - local file system (or any afero.Fs)
package storage
