// Package config defines the layered configuration structure for the
// ClaudeFS metadata and storage plane daemon.
package config

import "time"

// NodeConfig is the root configuration for metadatad.
type NodeConfig struct {
	Node        NodeSection        `koanf:"node"`
	Cluster     ClusterSection     `koanf:"cluster"`
	KVStore     KVStoreSection     `koanf:"kvstore"`
	Raft        RaftSection        `koanf:"raft"`
	Shard       ShardSection       `koanf:"shard"`
	Replication ReplicationSection `koanf:"replication"`
	Cache       CacheSection       `koanf:"cache"`
	EC          ECSection          `koanf:"ec"`
	Recovery    RecoverySection    `koanf:"recovery"`
	Smart       SmartSection       `koanf:"smart"`
	Integrity   IntegritySection   `koanf:"integrity"`
	Journal     JournalSection     `koanf:"journal"`
	Log         LogSection         `koanf:"log"`
	Metrics     MetricsSection     `koanf:"metrics"`
}

// NodeSection identifies this node.
type NodeSection struct {
	ID       string `koanf:"id"`
	DataDir  string `koanf:"data_dir"`
	SiteID   string `koanf:"site_id"`
	HTTPAddr string `koanf:"http_addr"`
}

// ClusterSection configures gossip membership.
type ClusterSection struct {
	ID        string   `koanf:"id"`
	BindAddr  string   `koanf:"bind_addr"`
	BindPort  int      `koanf:"bind_port"`
	RaftAddr  string   `koanf:"raft_addr"`
	SeedNodes []string `koanf:"seed_nodes"`
}

// KVStoreSection configures the embedded KV engine.
type KVStoreSection struct {
	Engine string       `koanf:"engine"` // "badger" | "memory"
	Dir    string       `koanf:"dir"`
	Badger BadgerConfig `koanf:"badger"`
}

// BadgerConfig mirrors Badger's tunables.
type BadgerConfig struct {
	GCInterval       time.Duration `koanf:"gc_interval"`
	GCThreshold      float64       `koanf:"gc_threshold"`
	CacheSize        int64         `koanf:"cache_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size"`
	SyncWrites       bool          `koanf:"sync_writes"`
}

// DefaultBadgerConfig returns the default Badger tuning parameters.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		CacheSize:        64 << 20,
		ValueLogFileSize: 1 << 30,
		SyncWrites:       false,
	}
}

// RaftSection configures election/heartbeat timing.
type RaftSection struct {
	ElectionTimeoutMin time.Duration `koanf:"election_timeout_min"`
	ElectionTimeoutMax time.Duration `koanf:"election_timeout_max"`
	HeartbeatInterval  time.Duration `koanf:"heartbeat_interval"`
}

// DefaultRaftSection matches spec.md's defaults.
func DefaultRaftSection() RaftSection {
	return RaftSection{
		ElectionTimeoutMin: 150 * time.Millisecond,
		ElectionTimeoutMax: 300 * time.Millisecond,
		HeartbeatInterval:  50 * time.Millisecond,
	}
}

// ShardSection configures the virtual shard router and scaling manager.
type ShardSection struct {
	ShardCount        int           `koanf:"shard_count"`
	BalanceTolerance  float64       `koanf:"balance_tolerance"`
	MigrationWorkers  int          `koanf:"migration_workers"`
	MigrationRateMBps float64      `koanf:"migration_rate_mbps"`
	TickInterval      time.Duration `koanf:"tick_interval"`
}

// DefaultShardSection returns defaults per spec.md §4.4.
func DefaultShardSection() ShardSection {
	return ShardSection{
		ShardCount:        256,
		BalanceTolerance:  0.1,
		MigrationWorkers:  4,
		MigrationRateMBps: 50,
		TickInterval:      time.Second,
	}
}

// ReplicationSection configures cross-site replication.
type ReplicationSection struct {
	SiteID          string        `koanf:"site_id"`
	BatchMaxEntries int           `koanf:"batch_max_entries"`
	BatchMaxBytes   int64         `koanf:"batch_max_bytes"`
	LagWarnDuration time.Duration `koanf:"lag_warn_duration"`
}

// DefaultReplicationSection returns spec.md §4.5 defaults.
func DefaultReplicationSection() ReplicationSection {
	return ReplicationSection{
		BatchMaxEntries: 1000,
		BatchMaxBytes:   4 << 20,
		LagWarnDuration: 30 * time.Second,
	}
}

// CacheSection configures the block cache.
type CacheSection struct {
	MaxMemoryBytes    int64 `koanf:"max_memory_bytes"`
	MaxEntries        int   `koanf:"max_entries"`
	EvictionBatchSize int   `koanf:"eviction_batch_size"`
	WriteThrough      bool  `koanf:"write_through"`
}

// DefaultCacheSection matches block_cache.rs's BlockCacheConfig defaults.
func DefaultCacheSection() CacheSection {
	return CacheSection{
		MaxMemoryBytes:    256 << 20,
		MaxEntries:        65536,
		EvictionBatchSize: 16,
		WriteThrough:      true,
	}
}

// ECSection configures the erasure coding engine's default profile.
type ECSection struct {
	DataShards   int `koanf:"data_shards"`
	ParityShards int `koanf:"parity_shards"`
	ShardSize    int `koanf:"shard_size"`
}

// DefaultECSection mirrors erasure.rs's ec_4_2() profile.
func DefaultECSection() ECSection {
	return ECSection{DataShards: 4, ParityShards: 2, ShardSize: 64 << 10}
}

// RecoverySection configures storage recovery.
type RecoverySection struct {
	JournalScanBatchSize int `koanf:"journal_scan_batch_size"`
}

func DefaultRecoverySection() RecoverySection {
	return RecoverySection{JournalScanBatchSize: 256}
}

// SmartSection configures device health monitoring.
type SmartSection struct {
	PollInterval            time.Duration `koanf:"poll_interval"`
	TempWarningKelvin       float64       `koanf:"temp_warning_kelvin"`
	TempCriticalKelvin      float64       `koanf:"temp_critical_kelvin"`
	SpareWarningPercent     float64       `koanf:"spare_warning_percent"`
	EnduranceWarningPercent float64       `koanf:"endurance_warning_percent"`
}

// DefaultSmartSection mirrors smart.rs's SmartMonitorConfig defaults
// (temperatures converted from Celsius to Kelvin: 70C=343.15K, 80C=353.15K).
func DefaultSmartSection() SmartSection {
	return SmartSection{
		PollInterval:            60 * time.Second,
		TempWarningKelvin:       343.15,
		TempCriticalKelvin:      353.15,
		SpareWarningPercent:     20,
		EnduranceWarningPercent: 80,
	}
}

// IntegritySection configures the integrity chain manager.
type IntegritySection struct {
	DefaultAlgorithm string        `koanf:"default_algorithm"`
	ChainTTL         time.Duration `koanf:"chain_ttl"`
	GCInterval       time.Duration `koanf:"gc_interval"`
}

func DefaultIntegritySection() IntegritySection {
	return IntegritySection{
		DefaultAlgorithm: "blake3",
		ChainTTL:         10 * time.Minute,
		GCInterval:       time.Minute,
	}
}

// JournalSection configures the append-only journal.
type JournalSection struct {
	Dir           string        `koanf:"dir"`
	SyncMode      string        `koanf:"sync_mode"` // "sync" | "batch"
	SyncInterval  time.Duration `koanf:"sync_interval"`
	MaxFileSize   int64         `koanf:"max_file_size"`
	MaxEntryCount int           `koanf:"max_entry_count"`
}

func DefaultJournalSection() JournalSection {
	return JournalSection{
		SyncMode:      "batch",
		SyncInterval:  time.Second,
		MaxFileSize:   64 << 20,
		MaxEntryCount: 100000,
	}
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection configures the Prometheus exporter.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}

// Default returns a NodeConfig populated with every section's defaults.
func Default() NodeConfig {
	return NodeConfig{
		Node:        NodeSection{DataDir: "./data"},
		KVStore:     KVStoreSection{Engine: "badger", Badger: DefaultBadgerConfig()},
		Raft:        DefaultRaftSection(),
		Shard:       DefaultShardSection(),
		Replication: DefaultReplicationSection(),
		Cache:       DefaultCacheSection(),
		EC:          DefaultECSection(),
		Recovery:    DefaultRecoverySection(),
		Smart:       DefaultSmartSection(),
		Integrity:   DefaultIntegritySection(),
		Journal:     DefaultJournalSection(),
		Log:         LogSection{Level: "info", Format: "json"},
		Metrics:     MetricsSection{Addr: ":9090"},
	}
}
