// Package fssync mirrors the physical tree of an owner into the file index.
//
// A Synchronizer registers every directory of an owner's tree with fsnotify, then
// translates create, write, remove and rename events into index updates:
//
//	Idle -> Scanning -> Watching -> Stopped
//
// Directories created while watching are registered before their current content is
// indexed, so that files created right after their parent directory are not missed.
// Events which cannot be mirrored are logged and dropped: the index is caught up by
// a later event on the same path or by a new bulk index pass (see BulkIndex).
//
// A Group runs one Synchronizer per owner.
package fssync
