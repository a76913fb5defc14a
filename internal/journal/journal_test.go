package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/claudefs/claudefs/internal/replication"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("x")
	if cfg.Dir != "x" {
		t.Fatalf("Dir = %q, want %q", cfg.Dir, "x")
	}
	if cfg.SyncMode != SyncModeBatch {
		t.Fatalf("SyncMode = %q, want %q", cfg.SyncMode, SyncModeBatch)
	}
	if cfg.BatchCount != DefaultBatchCount {
		t.Fatalf("BatchCount = %d, want %d", cfg.BatchCount, DefaultBatchCount)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Fatalf("MaxFileSize = %d, want %d", cfg.MaxFileSize, DefaultMaxFileSize)
	}
	if cfg.MaxEntryCount != DefaultMaxEntryCount {
		t.Fatalf("MaxEntryCount = %d, want %d", cfg.MaxEntryCount, DefaultMaxEntryCount)
	}
}

func TestWriterReader_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(Config{
		Dir:           dir,
		NodeID:        "node-1",
		SyncMode:      SyncModeSync,
		BatchCount:    2,
		BatchBytes:    1,
		MaxFileSize:   DefaultMaxFileSize,
		MaxEntryCount: DefaultMaxEntryCount,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	r1 := NewRecord(1, 3, "site-a", 1000, 42, replication.OpCreate, []byte("payload-1"))
	r2 := NewRecord(2, 3, "site-a", 1001, 43, replication.OpWrite, []byte("payload-2"))

	if err := w.Append(r1); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if err := w.Append(r2); err != nil {
		t.Fatalf("Append 2: %v", err)
	}

	offsetAtEnd := w.CurrentOffset()

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(dir, "journal-00000001.log")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected segment file: %v", err)
	}
	if ok, _, err := verifyChecksumTrailer(mustOpen(t, path), mustSize(t, path)); err != nil || !ok {
		t.Fatalf("verifyChecksumTrailer: ok=%v err=%v", ok, err)
	}

	rd, err := NewReader(dir)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer rd.Close()

	got1, err := rd.Read()
	if err != nil {
		t.Fatalf("Read 1: %v", err)
	}
	if got1.Seq != 1 || got1.Inode != 42 || got1.Op != replication.OpCreate {
		t.Fatalf("got1 mismatch: %+v", got1)
	}

	got2, err := rd.Read()
	if err != nil {
		t.Fatalf("Read 2: %v", err)
	}
	if got2.Seq != 2 || got2.Inode != 43 || got2.Op != replication.OpWrite {
		t.Fatalf("got2 mismatch: %+v", got2)
	}

	if _, err := rd.Read(); err == nil {
		t.Fatalf("expected EOF")
	}

	rd2, err := NewReader(dir)
	if err != nil {
		t.Fatalf("NewReader2: %v", err)
	}
	defer rd2.Close()
	if err := rd2.Seek(offsetAtEnd); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := rd2.Read(); err == nil {
		t.Fatalf("expected EOF after Seek(end)")
	}
}

func TestWriter_RotationByEntryCount(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(Config{
		Dir:           dir,
		NodeID:        "node-1",
		SyncMode:      SyncModeSync,
		BatchCount:    1,
		BatchBytes:    1,
		MaxFileSize:   DefaultMaxFileSize,
		MaxEntryCount: 1,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if err := w.Append(NewRecord(1, 0, "site-a", 100, 1, replication.OpCreate, nil)); err != nil {
		t.Fatalf("Append 1: %v", err)
	}
	if err := w.Append(NewRecord(2, 0, "site-a", 101, 2, replication.OpCreate, nil)); err != nil {
		t.Fatalf("Append 2: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("segment files = %d, want >= 2", len(entries))
	}
}

func TestWriter_ResumesUnfinalizedSegmentOnRestart(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(Config{
		Dir:           dir,
		NodeID:        "node-1",
		SyncMode:      SyncModeSync,
		BatchCount:    1,
		BatchBytes:    1,
		MaxFileSize:   DefaultMaxFileSize,
		MaxEntryCount: DefaultMaxEntryCount,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Append(NewRecord(1, 0, "site-a", 100, 1, replication.OpCreate, nil)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Simulate a crash: close the fd without finalizing the segment.
	if err := w.file.Close(); err != nil {
		t.Fatalf("close fd: %v", err)
	}

	w2, err := NewWriter(Config{
		Dir:           dir,
		NodeID:        "node-1",
		SyncMode:      SyncModeSync,
		BatchCount:    1,
		BatchBytes:    1,
		MaxFileSize:   DefaultMaxFileSize,
		MaxEntryCount: DefaultMaxEntryCount,
	})
	if err != nil {
		t.Fatalf("NewWriter (resume): %v", err)
	}
	defer w2.Close()

	if w2.segmentID != 1 {
		t.Fatalf("segmentID = %d, want 1 (resumed, not rotated)", w2.segmentID)
	}
	if err := w2.Append(NewRecord(2, 0, "site-a", 101, 2, replication.OpCreate, nil)); err != nil {
		t.Fatalf("Append after resume: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd, err := NewReader(dir)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer rd.Close()
	recs, err := rd.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func mustSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return info.Size()
}
