// Package journal provides the append-only, segment-based write-ahead
// log the metadata service appends to on every committed Raft entry,
// and that cross-site replication and storage recovery both read back
// from.
package journal

import "github.com/claudefs/claudefs/internal/replication"

// Record is one durable operation appended to the journal. Its shape
// matches the cross-site replication wire format exactly, so a
// journal segment can be replayed directly into a BatchCompactor.
type Record struct {
	Seq         uint64
	ShardID     uint32
	SiteID      string
	TimestampUs int64
	Inode       uint64
	Op          replication.OpKind
	Payload     []byte
}

// NewRecord constructs a Record ready to append.
func NewRecord(seq uint64, shardID uint32, siteID string, timestampUs int64, inode uint64, op replication.OpKind, payload []byte) Record {
	return Record{
		Seq:         seq,
		ShardID:     shardID,
		SiteID:      siteID,
		TimestampUs: timestampUs,
		Inode:       inode,
		Op:          op,
		Payload:     payload,
	}
}
