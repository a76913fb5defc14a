// Package recovery drives the phased startup recovery of an on-disk
// storage instance: superblock validation, allocator bitmap
// reconstruction, and journal replay from the last checkpoint.
package recovery

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/claudefs/claudefs/internal/domain"
)

// crc32cTable is the standard reflected CRC-32C (Castagnoli) table,
// used throughout for superblock and checkpoint integrity.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the reflected CRC-32C checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Phase is a step in the recovery state machine.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseSuperblockRead
	PhaseBitmapLoaded
	PhaseJournalScanned
	PhaseJournalReplayed
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseSuperblockRead:
		return "superblock_read"
	case PhaseBitmapLoaded:
		return "bitmap_loaded"
	case PhaseJournalScanned:
		return "journal_scanned"
	case PhaseJournalReplayed:
		return "journal_replayed"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// phaseOrder is the strict sequence recovery phases must follow.
var phaseOrder = []Phase{
	PhaseNotStarted,
	PhaseSuperblockRead,
	PhaseBitmapLoaded,
	PhaseJournalScanned,
	PhaseJournalReplayed,
	PhaseComplete,
}

// Superblock is the fixed on-disk header identifying a storage device.
type Superblock struct {
	ClusterUUID string
	DeviceID    string
	TotalBlocks uint64
	CRC         uint32
}

// JournalEntry is one deserialized journal record for replay.
type JournalEntry struct {
	Sequence    uint64
	ShardID     uint32
	SiteID      string
	TimestampUs int64
	Inode       uint64
	OpKind      uint8
	Payload     []byte
}

// Checkpoint is the journal's durable bookmark: the magic value
// identifies the record type, and the CRC is computed over the
// checkpoint's zero-checksum form.
type Checkpoint struct {
	Magic                 uint32
	LastCommittedSequence uint64
	LastFlushedSequence   uint64
	TimestampUs           int64
	CRC32C                uint32
}

// CheckpointMagic is the fixed magic value identifying a valid
// on-disk JournalCheckpoint record.
const CheckpointMagic uint32 = 0x434A4350

// encodeForCRC serializes a checkpoint with its CRC32C field zeroed,
// matching the on-disk "checksum over the zero-checksum form" scheme.
func (c Checkpoint) encodeForCRC() []byte {
	buf := make([]byte, 4+8+8+8)
	binary.BigEndian.PutUint32(buf[0:4], c.Magic)
	binary.BigEndian.PutUint64(buf[4:12], c.LastCommittedSequence)
	binary.BigEndian.PutUint64(buf[12:20], c.LastFlushedSequence)
	binary.BigEndian.PutUint64(buf[20:28], uint64(c.TimestampUs))
	return buf
}

// Seal computes and sets the checkpoint's CRC32C over its
// zero-checksum form.
func (c *Checkpoint) Seal() {
	c.CRC32C = CRC32C(c.encodeForCRC())
}

// Verify checks the checkpoint's magic and checksum.
func (c Checkpoint) Verify() error {
	if c.Magic != CheckpointMagic {
		return fmt.Errorf("recovery: checkpoint magic: %w", domain.ErrCheckpointMagic)
	}
	if CRC32C(c.encodeForCRC()) != c.CRC32C {
		return fmt.Errorf("recovery: checkpoint crc: %w", domain.ErrCheckpointCorrupt)
	}
	return nil
}

// Bitmap is the reconstructed block allocator bitmap.
type Bitmap struct {
	TotalBlocks uint64
	Bytes       []byte
}

// NewBitmap reconstructs a bitmap from persisted bytes, resizing or
// truncating to the expected byte length for totalBlocks
// (ceil(totalBlocks/8)).
func NewBitmap(totalBlocks uint64, persisted []byte) *Bitmap {
	expectedLen := int((totalBlocks + 7) / 8)
	bytes := make([]byte, expectedLen)
	copy(bytes, persisted)
	return &Bitmap{TotalBlocks: totalBlocks, Bytes: bytes}
}

// AllocatedCount returns the number of blocks marked allocated.
func (b *Bitmap) AllocatedCount() uint64 {
	var count uint64
	for blk := uint64(0); blk < b.TotalBlocks; blk++ {
		if b.isSet(blk) {
			count++
		}
	}
	return count
}

// FreeCount returns TotalBlocks - AllocatedCount().
func (b *Bitmap) FreeCount() uint64 {
	return b.TotalBlocks - b.AllocatedCount()
}

func (b *Bitmap) isSet(block uint64) bool {
	byteIdx := block / 8
	bitIdx := block % 8
	if int(byteIdx) >= len(b.Bytes) {
		return false
	}
	return b.Bytes[byteIdx]&(1<<bitIdx) != 0
}

// Range is a contiguous span of allocated blocks, [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// ContiguousAllocatedRanges returns every maximal run of allocated
// blocks.
func (b *Bitmap) ContiguousAllocatedRanges() []Range {
	var ranges []Range
	var start uint64
	inRun := false

	for blk := uint64(0); blk < b.TotalBlocks; blk++ {
		if b.isSet(blk) {
			if !inRun {
				start = blk
				inRun = true
			}
		} else if inRun {
			ranges = append(ranges, Range{Start: start, End: blk})
			inRun = false
		}
	}
	if inRun {
		ranges = append(ranges, Range{Start: start, End: b.TotalBlocks})
	}
	return ranges
}

// Config tunes the recovery process.
type Config struct {
	ValidateSuperblockCRC   bool
	PartialRecoveryAllowed  bool
	MaxJournalReplayEntries int
	StrictJournalScan       bool
}

// DefaultConfig returns sensible recovery defaults.
func DefaultConfig() Config {
	return Config{
		ValidateSuperblockCRC:   true,
		PartialRecoveryAllowed:  false,
		MaxJournalReplayEntries: 100000,
		StrictJournalScan:       true,
	}
}

// Report summarizes a completed (or failed) recovery run.
type Report struct {
	Phase            Phase
	AllocatedBlocks  uint64
	FreeBlocks       uint64
	ScannedEntries   int
	ReplayEntries    []JournalEntry
	Duration         time.Duration
	Warnings         []string
	Err              error
}

// State drives a single storage instance's recovery through its
// phases in strict order.
type State struct {
	cfg           Config
	expectedUUID  string
	phase         Phase
	startedAt     time.Time
	warnings      []string
	bitmap        *Bitmap
	scannedCount  int
}

// NewState creates a recovery state machine for a storage instance
// expected to carry expectedUUID.
func NewState(cfg Config, expectedUUID string) *State {
	return &State{cfg: cfg, expectedUUID: expectedUUID, phase: PhaseNotStarted}
}

// Phase returns the current recovery phase.
func (s *State) Phase() Phase {
	return s.phase
}

func (s *State) requirePhase(expected Phase) error {
	if s.phase != expected {
		return fmt.Errorf("recovery: expected phase %v, at %v: %w", expected, s.phase, domain.ErrRecoveryOutOfOrder)
	}
	return nil
}

// ReadSuperblock validates sb against the cluster UUID and (if
// configured) its CRC, advancing to PhaseSuperblockRead.
func (s *State) ReadSuperblock(sb Superblock, computedCRC uint32) error {
	if err := s.requirePhase(PhaseNotStarted); err != nil {
		return err
	}
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}

	if s.cfg.ValidateSuperblockCRC && sb.CRC != computedCRC {
		return fmt.Errorf("recovery: superblock crc: %w", domain.ErrSuperblockCorrupt)
	}

	if sb.ClusterUUID != s.expectedUUID {
		if !s.cfg.PartialRecoveryAllowed {
			return fmt.Errorf("recovery: superblock cluster_uuid mismatch (%s != %s): %w", sb.ClusterUUID, s.expectedUUID, domain.ErrSuperblockCorrupt)
		}
		s.warnings = append(s.warnings, fmt.Sprintf("cluster_uuid mismatch: expected %s, got %s (partial recovery)", s.expectedUUID, sb.ClusterUUID))
	}

	s.phase = PhaseSuperblockRead
	return nil
}

// LoadBitmap reconstructs the allocator bitmap, advancing to
// PhaseBitmapLoaded.
func (s *State) LoadBitmap(totalBlocks uint64, persisted []byte) (*Bitmap, error) {
	if err := s.requirePhase(PhaseSuperblockRead); err != nil {
		return nil, err
	}
	s.bitmap = NewBitmap(totalBlocks, persisted)
	s.phase = PhaseBitmapLoaded
	return s.bitmap, nil
}

// ScanJournal sequentially deserializes entries via decode until it
// returns an error (end of valid region) or MaxJournalReplayEntries is
// reached, advancing to PhaseJournalScanned. With StrictJournalScan set,
// an error after at least one entry fails the scan instead.
func (s *State) ScanJournal(decode func() (JournalEntry, error)) ([]JournalEntry, error) {
	if err := s.requirePhase(PhaseBitmapLoaded); err != nil {
		return nil, err
	}

	var entries []JournalEntry
	for len(entries) < s.cfg.MaxJournalReplayEntries {
		entry, err := decode()
		if err != nil {
			if s.cfg.StrictJournalScan && len(entries) > 0 {
				return nil, fmt.Errorf("recovery: journal scan failed after %d entries: %w", len(entries), err)
			}
			break
		}
		entries = append(entries, entry)
	}

	s.scannedCount = len(entries)
	s.phase = PhaseJournalScanned
	return entries, nil
}

// ReplayJournal verifies checkpoint and returns the subset of scanned
// entries with Sequence > checkpoint.LastCommittedSequence, advancing
// to PhaseJournalReplayed.
func (s *State) ReplayJournal(checkpoint Checkpoint, scanned []JournalEntry) ([]JournalEntry, error) {
	if err := s.requirePhase(PhaseJournalScanned); err != nil {
		return nil, err
	}
	if err := checkpoint.Verify(); err != nil {
		return nil, err
	}

	var replay []JournalEntry
	for _, e := range scanned {
		if e.Sequence > checkpoint.LastCommittedSequence {
			replay = append(replay, e)
		}
	}

	s.phase = PhaseJournalReplayed
	return replay, nil
}

// Complete finalizes recovery, producing the summary Report.
func (s *State) Complete(replay []JournalEntry) (Report, error) {
	if err := s.requirePhase(PhaseJournalReplayed); err != nil {
		return Report{}, err
	}
	s.phase = PhaseComplete

	report := Report{
		Phase:          PhaseComplete,
		ScannedEntries: s.scannedCount,
		ReplayEntries:  replay,
		Duration:       time.Since(s.startedAt),
		Warnings:       append([]string(nil), s.warnings...),
	}
	if s.bitmap != nil {
		report.AllocatedBlocks = s.bitmap.AllocatedCount()
		report.FreeBlocks = s.bitmap.FreeCount()
	}
	return report, nil
}

// Fail marks recovery as failed with err, producing a Report carrying
// it. Can be called from any phase.
func (s *State) Fail(err error) Report {
	s.phase = PhaseFailed
	return Report{
		Phase:    PhaseFailed,
		Duration: time.Since(s.startedAt),
		Warnings: append([]string(nil), s.warnings...),
		Err:      err,
	}
}
