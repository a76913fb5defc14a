// Package kvstore provides the embedded key-value storage abstraction
// used by the metadata node for inode attribute records, xattrs,
// and any other durable keyed record that isn't itself part of the Raft
// log (the Raft log lives purely in-memory in internal/raftcore; this
// store persists applied state).
package kvstore

import (
	"context"
	"errors"
	"io"
)

// ErrKeyNotFound is returned by Get when the key doesn't exist.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// ErrClosed is returned once a store has been closed.
var ErrClosed = errors.New("kvstore: closed")

// Store is the interface implemented by every embedded KV engine
// (in-memory for tests, Badger for production).
type Store interface {
	// Get retrieves a value by key. Returns ErrKeyNotFound if absent.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key. Not an error if the key is absent.
	Delete(ctx context.Context, key []byte) error

	// Scan iterates over keys with the given prefix in lexical order.
	// fn returning false stops iteration early.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// SaveSnapshot produces a reader over a point-in-time backup.
	SaveSnapshot(ctx context.Context) (io.ReadCloser, error)

	// LoadSnapshot restores store contents from a prior snapshot,
	// overwriting existing data.
	LoadSnapshot(ctx context.Context, r io.Reader) error

	// GC triggers engine-specific garbage collection (a no-op for the
	// in-memory engine). Returns an estimate of bytes reclaimed.
	GC(ctx context.Context) (uint64, error)

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close gracefully shuts the store down.
	Close() error
}

// Stats contains storage engine statistics.
type Stats struct {
	TotalKeys        uint64
	TotalSize        uint64
	LSMSize          uint64
	ValueLogSize     uint64
	LastGCTimeMillis int64
	GCBytesReclaimed uint64
}

// Config configures an embedded KV engine.
type Config struct {
	// Engine selects the backing implementation: "badger" or "memory".
	Engine string
	Dir    string
	Badger BadgerConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	GCIntervalSeconds int
	GCThreshold       float64
	CacheSize         int64
	ValueLogFileSize  int64
	SyncWrites        bool
}

// DefaultBadgerConfig returns sensible Badger defaults.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCIntervalSeconds: 600,
		GCThreshold:       0.5,
		CacheSize:         64 << 20,
		ValueLogFileSize:  1 << 30,
		SyncWrites:        false,
	}
}
