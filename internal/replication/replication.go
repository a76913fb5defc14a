// Package replication implements cross-site replication of the
// metadata journal: batch compaction before a send, conflict-aware
// apply on receive, and per-(remote site, shard) cursor tracking.
package replication

import (
	"fmt"
	"sort"
	"time"

	"github.com/claudefs/claudefs/internal/domain"
)

// OpKind discriminates journal entry operation types. Structural ops
// are always replicated individually; the rest compact to their
// latest write per inode.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUnlink
	OpMkDir
	OpRmDir
	OpSymlink
	OpLink
	OpRename
	OpWrite
	OpTruncate
	OpSetAttr
)

func (k OpKind) isStructural() bool {
	switch k {
	case OpCreate, OpUnlink, OpMkDir, OpRmDir, OpSymlink, OpLink, OpRename:
		return true
	default:
		return false
	}
}

// Entry is one journal record eligible for cross-site replication.
type Entry struct {
	ShardID     uint32
	Seq         uint64
	Inode       uint64
	Op          OpKind
	TimestampUs int64
	SiteID      string
	Payload     []byte
}

// CompactionResult is the output of a batch compaction pass.
type CompactionResult struct {
	Entries       []Entry
	DroppedCount  int
	OriginalCount int
}

// BatchCompactor groups journal entries by inode before a cross-site
// send: structural ops pass through unchanged; Write, Truncate, and
// SetAttr entries on one inode are collapsed together to the single
// highest-timestamp entry, whatever its op kind.
type BatchCompactor struct{}

// NewBatchCompactor constructs a stateless compactor.
func NewBatchCompactor() *BatchCompactor {
	return &BatchCompactor{}
}

// Compact compacts a batch of entries, returning survivors sorted by
// (shard, seq).
func (c *BatchCompactor) Compact(entries []Entry) CompactionResult {
	structural := make([]Entry, 0, len(entries))
	latestByInode := make(map[uint64]Entry)

	for _, e := range entries {
		if e.Op.isStructural() {
			structural = append(structural, e)
			continue
		}
		existing, ok := latestByInode[e.Inode]
		if !ok || e.TimestampUs > existing.TimestampUs {
			latestByInode[e.Inode] = e
		}
	}

	survivors := make([]Entry, 0, len(structural)+len(latestByInode))
	survivors = append(survivors, structural...)
	for _, e := range latestByInode {
		survivors = append(survivors, e)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].ShardID != survivors[j].ShardID {
			return survivors[i].ShardID < survivors[j].ShardID
		}
		return survivors[i].Seq < survivors[j].Seq
	})

	return CompactionResult{
		Entries:       survivors,
		DroppedCount:  len(entries) - len(survivors),
		OriginalCount: len(entries),
	}
}

// Conflict records a last-writer-wins resolution between two sites
// claiming ownership of the same inode update.
type Conflict struct {
	Inode      uint64
	LocalSite  string
	RemoteSite string
	LocalTs    int64
	RemoteTs   int64
	Winner     string
	DetectedAt time.Time
}

// ConflictDetector inspects incoming entries against local state to
// find and record cross-site write conflicts, resolved by LWW (ties
// favor the local site).
type ConflictDetector struct {
	localSiteID string
	local       map[uint64]Entry // last known local entry per inode
	ledger      []Conflict
}

// NewConflictDetector creates a detector for localSiteID.
func NewConflictDetector(localSiteID string) *ConflictDetector {
	return &ConflictDetector{
		localSiteID: localSiteID,
		local:       make(map[uint64]Entry),
	}
}

// RecordLocal updates the detector's view of the latest local entry
// for an inode, called as local writes are journaled.
func (d *ConflictDetector) RecordLocal(e Entry) {
	d.local[e.Inode] = e
}

// Detect checks a remote entry for conflict against local state. If a
// local entry exists for the same inode from a different site, it
// resolves LWW and records the conflict, returning it. Returns
// (Conflict{}, false) if there's no conflict to record.
func (d *ConflictDetector) Detect(remote Entry, now time.Time) (Conflict, bool) {
	local, ok := d.local[remote.Inode]
	if !ok || local.SiteID == remote.SiteID {
		return Conflict{}, false
	}

	winner := remote.SiteID
	if local.TimestampUs >= remote.TimestampUs {
		winner = local.SiteID
	}

	c := Conflict{
		Inode:      remote.Inode,
		LocalSite:  local.SiteID,
		RemoteSite: remote.SiteID,
		LocalTs:    local.TimestampUs,
		RemoteTs:   remote.TimestampUs,
		Winner:     winner,
		DetectedAt: now,
	}
	d.ledger = append(d.ledger, c)
	return c, true
}

// Ledger returns all recorded conflicts.
func (d *ConflictDetector) Ledger() []Conflict {
	return append([]Conflict(nil), d.ledger...)
}

// ClearLedger discards all recorded conflicts.
func (d *ConflictDetector) ClearLedger() {
	d.ledger = nil
}

// cursorKey identifies a replication cursor by remote site and shard.
type cursorKey struct {
	remoteSite string
	shard      uint32
}

// Cursor tracks replication progress for one (remote site, shard) pair.
type Cursor struct {
	RemoteSite string
	Shard      uint32
	LastSeq    uint64
}

// Synchroniser drives cross-site replication for a single local site:
// it maintains cursors per (remote site, shard) and detects conflicts
// as remote batches are applied.
type Synchroniser struct {
	localSiteID string
	cursors     map[cursorKey]*Cursor
	detector    *ConflictDetector
	localTip    map[uint32]uint64 // highest known local seq per shard
}

// NewSynchroniser creates a synchroniser for localSiteID.
func NewSynchroniser(localSiteID string) *Synchroniser {
	return &Synchroniser{
		localSiteID: localSiteID,
		cursors:     make(map[cursorKey]*Cursor),
		detector:    NewConflictDetector(localSiteID),
		localTip:    make(map[uint32]uint64),
	}
}

// RecordLocalTip updates the highest known sequence for a shard,
// used to compute replication lag.
func (s *Synchroniser) RecordLocalTip(shard uint32, seq uint64) {
	if seq > s.localTip[shard] {
		s.localTip[shard] = seq
	}
}

// Cursor returns the cursor for (remoteSite, shard), creating a
// zero-valued one if it doesn't exist yet.
func (s *Synchroniser) Cursor(remoteSite string, shard uint32) Cursor {
	key := cursorKey{remoteSite, shard}
	c, ok := s.cursors[key]
	if !ok {
		return Cursor{RemoteSite: remoteSite, Shard: shard}
	}
	return *c
}

// RequireCursor returns the cursor for (remoteSite, shard), failing
// with ErrCursorNotFound if replication has never been initialized for
// that pair (distinct from Cursor, which returns a zero value for
// callers that want to lazily create one).
func (s *Synchroniser) RequireCursor(remoteSite string, shard uint32) (Cursor, error) {
	key := cursorKey{remoteSite, shard}
	c, ok := s.cursors[key]
	if !ok {
		return Cursor{}, fmt.Errorf("replication: cursor for %s/%d: %w", remoteSite, shard, domain.ErrCursorNotFound)
	}
	return *c, nil
}

// Lag returns local_tip - cursor.last_seq, saturating at zero.
func (s *Synchroniser) Lag(remoteSite string, shard uint32) uint64 {
	cursor := s.Cursor(remoteSite, shard)
	tip := s.localTip[shard]
	if tip < cursor.LastSeq {
		return 0
	}
	return tip - cursor.LastSeq
}

// ApplyBatch applies a batch of entries received from sourceSiteID for
// a single shard. It rejects a source site mismatch or a sequence gap
// (first entry's Seq != cursor.LastSeq+1, when the cursor is
// non-zero), otherwise walks entries updating the conflict ledger and
// advancing the cursor to the last entry's Seq.
func (s *Synchroniser) ApplyBatch(sourceSiteID string, shard uint32, entries []Entry, now time.Time) ([]Conflict, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	key := cursorKey{sourceSiteID, shard}
	cursor, exists := s.cursors[key]
	if !exists {
		cursor = &Cursor{RemoteSite: sourceSiteID, Shard: shard}
		s.cursors[key] = cursor
	}

	first := entries[0]
	if first.SiteID != sourceSiteID {
		return nil, fmt.Errorf("replication: apply batch: source mismatch: %w", domain.ErrSequenceGap)
	}
	if cursor.LastSeq != 0 && first.Seq != cursor.LastSeq+1 {
		return nil, fmt.Errorf("replication: apply batch: expected seq %d, got %d: %w", cursor.LastSeq+1, first.Seq, domain.ErrSequenceGap)
	}

	var conflicts []Conflict
	for _, e := range entries {
		if c, found := s.detector.Detect(e, now); found {
			conflicts = append(conflicts, c)
		}
		s.detector.RecordLocal(e)
		cursor.LastSeq = e.Seq
	}

	return conflicts, nil
}

// ConflictLedger returns all recorded conflicts across every remote
// site applied through this synchroniser.
func (s *Synchroniser) ConflictLedger() []Conflict {
	return s.detector.Ledger()
}

// ClearConflictLedger discards all recorded conflicts.
func (s *Synchroniser) ClearConflictLedger() {
	s.detector.ClearLedger()
}
