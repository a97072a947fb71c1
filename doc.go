// Package kvfs provides an in-memory file system built on a single flat map
// keyed by slash separated paths. The store keeps the usual tree guarantees on
// top of that flat keyspace: every ancestor of a path exists and is a
// directory, removing a directory removes everything below it, and writes and
// copies create missing parent directories on the fly.
//
// The empty path "" is the root directory. It always exists and can be neither
// written to nor removed.
//
// A FileSystem may also be used through the absfs interfaces with NewFiler.
package kvfs
