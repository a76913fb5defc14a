package metadatanode

import "sync"

// FingerprintIndex maps content fingerprints (e.g. a BLAKE3 digest of a
// block or file) to the set of inodes sharing that content, for CAS
// dedup integration with the block cache and erasure coding layers.
type FingerprintIndex struct {
	mu    sync.Mutex
	index map[string]map[uint64]struct{}
}

// NewFingerprintIndex creates an empty index.
func NewFingerprintIndex() *FingerprintIndex {
	return &FingerprintIndex{index: make(map[string]map[uint64]struct{})}
}

// Add records that ino shares content identified by fingerprint.
func (f *FingerprintIndex) Add(fingerprint string, ino uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.index[fingerprint]
	if !ok {
		set = make(map[uint64]struct{})
		f.index[fingerprint] = set
	}
	set[ino] = struct{}{}
}

// Remove drops ino from fingerprint's inode set, removing the
// fingerprint entirely once its set is empty.
func (f *FingerprintIndex) Remove(fingerprint string, ino uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.index[fingerprint]
	if !ok {
		return
	}
	delete(set, ino)
	if len(set) == 0 {
		delete(f.index, fingerprint)
	}
}

// Lookup returns every inode currently sharing fingerprint's content.
func (f *FingerprintIndex) Lookup(fingerprint string) []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.index[fingerprint]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(set))
	for ino := range set {
		out = append(out, ino)
	}
	return out
}
