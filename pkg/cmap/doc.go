// Package cmap provides a generic sharded concurrent map.
//
// Sharding spreads keys across independent buckets, each behind its
// own RWMutex, to keep unrelated operations from serializing behind a
// single lock under concurrent load.
//
// Usage:
//
//	m := cmap.New[uint64, *FileHandle]()
//	m.Set(fh, handle)
//	val, ok := m.Get(fh)
//
// All operations are safe for concurrent use. Read operations (Get,
// Has) take a per-shard RLock; write operations (Set, Delete) take a
// per-shard Lock.
package cmap
