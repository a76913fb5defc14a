package metadatanode

import "github.com/cespare/xxhash/v2"

// DirShardConfig controls when and how a single large directory's
// entries are spread across internal sub-shards to bound per-shard
// entry counts.
type DirShardConfig struct {
	// ShardThreshold is the entry count above which a directory is
	// considered for internal sharding.
	ShardThreshold int
	// ShardCount is the number of internal sub-shards a sharded
	// directory is split across.
	ShardCount int
}

// DefaultDirShardConfig returns conservative defaults: directories stay
// single-shard until they exceed 10,000 entries.
func DefaultDirShardConfig() DirShardConfig {
	return DirShardConfig{ShardThreshold: 10_000, ShardCount: 16}
}

// DirShardManager decides which internal sub-shard a directory entry
// name belongs to, once its parent directory has grown past
// ShardThreshold entries.
type DirShardManager struct {
	cfg DirShardConfig
}

// NewDirShardManager creates a manager using cfg.
func NewDirShardManager(cfg DirShardConfig) *DirShardManager {
	return &DirShardManager{cfg: cfg}
}

// ShardForName returns the sub-shard index for name within dir, once
// dir has grown past the configured threshold.
func (m *DirShardManager) ShardForName(name string) int {
	if m.cfg.ShardCount <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(name) % uint64(m.cfg.ShardCount))
}

// ShouldShard reports whether a directory with entryCount entries has
// grown past the threshold and should start using sub-shards.
func (m *DirShardManager) ShouldShard(entryCount int) bool {
	return entryCount > m.cfg.ShardThreshold
}
